package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"plaksha/ocr-api/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Migrate creates the tables plus a unique index on the lower-cased email
// so two registrations that only differ in casing can't both succeed
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.Account{}, model.ExtractionRecord{}); err != nil {
		return fmt.Errorf("failed to automigrate tables, %w", err)
	}

	err := db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_email_lower ON accounts (LOWER(email))").Error
	if err != nil {
		return fmt.Errorf("failed to create email index, %w", err)
	}

	return nil
}

type GormAccounts struct {
	DB *gorm.DB
}

type GormExtractions struct {
	DB *gorm.DB
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

func (s *GormAccounts) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	var a model.Account

	err := s.DB.WithContext(ctx).
		Where("LOWER(email) = LOWER(?)", email).
		First(&a).
		Error
	if err != nil {
		return nil, translate(err)
	}

	return &a, nil
}

func (s *GormAccounts) Create(ctx context.Context, a *model.Account) error {
	id, err := newID()
	if err != nil {
		return err
	}

	a.ID = id
	return translate(s.DB.WithContext(ctx).Create(a).Error)
}

func (s *GormAccounts) UpdatePending(ctx context.Context, id string, u PendingUpdate) error {
	r := s.DB.WithContext(ctx).
		Model(&model.Account{}).
		Where("id = ? AND is_verified = ?", id, false).
		Updates(map[string]any{
			"password_hash":      u.PasswordHash,
			"verify_code":        u.VerifyCode,
			"verify_code_expiry": u.VerifyCodeExpiry,
			"updated_at":         time.Now().UTC(),
		})
	if r.Error != nil {
		return translate(r.Error)
	}

	if r.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// ConsumeCode is a single UPDATE ... RETURNING so the match and the state
// change can't be split by a concurrent resend
func (s *GormAccounts) ConsumeCode(ctx context.Context, email, code string, now time.Time) (*model.Account, error) {
	var updated []model.Account

	err := s.DB.WithContext(ctx).
		Model(&updated).
		Clauses(clause.Returning{}).
		Where("LOWER(email) = LOWER(?) AND verify_code = ? AND verify_code_expiry > ? AND is_verified = ?",
			email, code, now, false).
		Updates(map[string]any{
			"is_verified":        true,
			"verify_code":        "",
			"verify_code_expiry": now,
			"updated_at":         now,
		}).
		Error
	if err != nil {
		return nil, translate(err)
	}

	if len(updated) == 0 {
		return nil, ErrNotFound
	}

	return &updated[0], nil
}

func (s *GormExtractions) Create(ctx context.Context, r *model.ExtractionRecord) error {
	id, err := newID()
	if err != nil {
		return err
	}

	r.ID = id
	return translate(s.DB.WithContext(ctx).Create(r).Error)
}

func (s *GormExtractions) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.ExtractionRecord, error) {
	records := []model.ExtractionRecord{}

	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(clampLimit(limit)).
		Offset(max(offset, 0)).
		Find(&records).
		Error
	if err != nil {
		return nil, translate(err)
	}

	return records, nil
}

func (s *GormExtractions) FindByID(ctx context.Context, userID, id string) (*model.ExtractionRecord, error) {
	var r model.ExtractionRecord

	err := s.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&r).
		Error
	if err != nil {
		return nil, translate(err)
	}

	return &r, nil
}
