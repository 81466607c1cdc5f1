// Package store holds the account and extraction repositories. Every backend
// implements the same interfaces so the services never know which database
// they talk to
package store

import (
	"context"
	"errors"
	"time"

	"plaksha/ocr-api/internal/model"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	charset   = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	idLength  = 16
	listLimit = 100
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// PendingUpdate carries the fields rewritten when an unverified account
// registers again
type PendingUpdate struct {
	PasswordHash     string
	VerifyCode       string
	VerifyCodeExpiry time.Time
}

type AccountStore interface {
	// FindByEmail matches the email case-insensitively
	FindByEmail(ctx context.Context, email string) (*model.Account, error)

	// Create fills in the ID and timestamps. Returns ErrDuplicate if the
	// email is taken
	Create(ctx context.Context, a *model.Account) error

	// UpdatePending only touches accounts that are still unverified and
	// returns ErrNotFound otherwise
	UpdatePending(ctx context.Context, id string, u PendingUpdate) error

	// ConsumeCode atomically finds the unverified account whose email,
	// code and unexpired expiry all match, marks it verified, clears the code
	// and returns the updated account. ErrNotFound when nothing matches
	ConsumeCode(ctx context.Context, email, code string, now time.Time) (*model.Account, error)
}

type ExtractionStore interface {
	// Create always inserts a new record and fills in ID and timestamps
	Create(ctx context.Context, r *model.ExtractionRecord) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.ExtractionRecord, error)
	FindByID(ctx context.Context, userID, id string) (*model.ExtractionRecord, error)
}

func newID() (string, error) {
	return gonanoid.Generate(charset, idLength)
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > listLimit {
		return listLimit
	}

	return limit
}
