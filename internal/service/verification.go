package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"plaksha/ocr-api/internal/model"
	"plaksha/ocr-api/internal/store"
	"plaksha/ocr-api/pkg/security"
)

type VerifyResult struct {
	Token     string
	ExpiresAt time.Time
	Account   *model.Account
}

type Verification struct {
	accounts store.AccountStore
	secret   []byte
	now      func() time.Time
}

func NewVerification(accounts store.AccountStore, secret []byte) *Verification {
	return &Verification{
		accounts: accounts,
		secret:   secret,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Verify consumes the code and opens a session. Whether the email exists at
// all is never revealed
func (v *Verification) Verify(ctx context.Context, email, code string) (*VerifyResult, error) {
	if email == "" || code == "" {
		return nil, ErrInvalidOrExpiredCode
	}

	now := v.now()

	acc, err := v.accounts.ConsumeCode(ctx, email, code, now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidOrExpiredCode
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	token, exp, err := security.IssueSessionToken(v.secret, acc.ID, acc.Email, acc.FirstName, now)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token, %w", err)
	}

	return &VerifyResult{
		Token:     token,
		ExpiresAt: exp,
		Account:   acc,
	}, nil
}
