package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"plaksha/ocr-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type backend struct {
	accounts    AccountStore
	extractions ExtractionStore
}

func newSQLite(t *testing.T) backend {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	return backend{&GormAccounts{DB: db}, &GormExtractions{DB: db}}
}

func newMem(t *testing.T) backend {
	t.Helper()

	m := NewMemory()
	return backend{m.Accounts(), m.Extractions()}
}

var backends = map[string]func(*testing.T) backend{
	"memory": newMem,
	"sqlite": newSQLite,
}

func pending(email, code string, expiry time.Time) *model.Account {
	return &model.Account{
		FirstName:        "Ada",
		LastName:         "Lovelace",
		Email:            email,
		PasswordHash:     "hash",
		VerifyCode:       code,
		VerifyCodeExpiry: expiry,
	}
}

func TestAccounts_CreateAndFind(t *testing.T) {
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			s := open(t).accounts
			ctx := context.Background()

			a := pending("Ada@Example.com", "123456", time.Now().UTC().Add(time.Hour))
			require.NoError(t, s.Create(ctx, a))
			assert.Len(t, a.ID, idLength)

			got, err := s.FindByEmail(ctx, "ada@example.COM")
			require.NoError(t, err)
			assert.Equal(t, a.ID, got.ID)
			assert.Equal(t, "Ada@Example.com", got.Email, "stored casing is preserved")
			assert.False(t, got.IsVerified)

			_, err = s.FindByEmail(ctx, "nobody@example.com")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestAccounts_CreateDuplicate(t *testing.T) {
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			s := open(t).accounts
			ctx := context.Background()

			require.NoError(t, s.Create(ctx, pending("a@x.com", "111111", time.Now().UTC())))

			err := s.Create(ctx, pending("A@X.com", "222222", time.Now().UTC()))
			assert.ErrorIs(t, err, ErrDuplicate)
		})
	}
}

func TestAccounts_ConsumeCode(t *testing.T) {
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			s := open(t).accounts
			ctx := context.Background()
			now := time.Now().UTC()

			a := pending("a@x.com", "123456", now.Add(time.Hour))
			require.NoError(t, s.Create(ctx, a))

			_, err := s.ConsumeCode(ctx, "a@x.com", "000000", now)
			assert.ErrorIs(t, err, ErrNotFound, "wrong code")

			_, err = s.ConsumeCode(ctx, "a@x.com", "123456", now.Add(2*time.Hour))
			assert.ErrorIs(t, err, ErrNotFound, "expired code")

			got, err := s.ConsumeCode(ctx, "A@X.COM", "123456", now)
			require.NoError(t, err)
			assert.Equal(t, a.ID, got.ID)
			assert.True(t, got.IsVerified)
			assert.Empty(t, got.VerifyCode)
			assert.WithinDuration(t, now, got.VerifyCodeExpiry, time.Millisecond)

			_, err = s.ConsumeCode(ctx, "a@x.com", "123456", now)
			assert.ErrorIs(t, err, ErrNotFound, "code is single use")

			_, err = s.ConsumeCode(ctx, "a@x.com", "", now.Add(-time.Hour))
			assert.ErrorIs(t, err, ErrNotFound, "cleared code never matches a verified account")
		})
	}
}

func TestAccounts_ConsumeCodeAtExpiry(t *testing.T) {
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			s := open(t).accounts
			ctx := context.Background()
			exp := time.Now().UTC().Add(time.Hour)

			require.NoError(t, s.Create(ctx, pending("a@x.com", "123456", exp)))

			_, err := s.ConsumeCode(ctx, "a@x.com", "123456", exp)
			assert.ErrorIs(t, err, ErrNotFound, "now == expiry is already expired")
		})
	}
}

func TestAccounts_UpdatePending(t *testing.T) {
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			s := open(t).accounts
			ctx := context.Background()
			now := time.Now().UTC()

			a := pending("a@x.com", "111111", now.Add(time.Hour))
			require.NoError(t, s.Create(ctx, a))

			require.NoError(t, s.UpdatePending(ctx, a.ID, PendingUpdate{
				PasswordHash:     "hash2",
				VerifyCode:       "222222",
				VerifyCodeExpiry: now.Add(time.Hour),
			}))

			got, err := s.FindByEmail(ctx, "a@x.com")
			require.NoError(t, err)
			assert.Equal(t, "hash2", got.PasswordHash)
			assert.Equal(t, "222222", got.VerifyCode)

			_, err = s.ConsumeCode(ctx, "a@x.com", "111111", now)
			assert.ErrorIs(t, err, ErrNotFound, "old code is replaced")

			_, err = s.ConsumeCode(ctx, "a@x.com", "222222", now)
			require.NoError(t, err)

			err = s.UpdatePending(ctx, a.ID, PendingUpdate{VerifyCode: "333333"})
			assert.ErrorIs(t, err, ErrNotFound, "verified accounts are never re-issued a code")
		})
	}
}

func TestExtractions_CreateListFind(t *testing.T) {
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			s := open(t).extractions
			ctx := context.Background()

			for i := range 3 {
				r := &model.ExtractionRecord{
					UserID:           "u1",
					DocumentType:     "salary",
					Extracted:        map[string]any{"gross_pay": float64(5000 + i)},
					OriginalFileName: "slip.png",
				}
				require.NoError(t, s.Create(ctx, r))
				require.NotEmpty(t, r.ID)
				time.Sleep(2 * time.Millisecond)
			}

			require.NoError(t, s.Create(ctx, &model.ExtractionRecord{UserID: "u2", DocumentType: "bill"}))

			list, err := s.ListByUser(ctx, "u1", 10, 0)
			require.NoError(t, err)
			require.Len(t, list, 3)
			assert.Equal(t, float64(5002), list[0].Extracted["gross_pay"], "newest first")

			page, err := s.ListByUser(ctx, "u1", 1, 1)
			require.NoError(t, err)
			require.Len(t, page, 1)
			assert.Equal(t, float64(5001), page[0].Extracted["gross_pay"])

			got, err := s.FindByID(ctx, "u1", list[0].ID)
			require.NoError(t, err)
			assert.Equal(t, "slip.png", got.OriginalFileName)

			_, err = s.FindByID(ctx, "u2", list[0].ID)
			assert.ErrorIs(t, err, ErrNotFound, "records are scoped to their owner")
		})
	}
}
