package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"plaksha/ocr-api/internal/store"
	"plaksha/ocr-api/pkg/security"
)

type Login struct {
	accounts store.AccountStore
	hasher   security.Hasher
	secret   []byte
	now      func() time.Time
}

func NewLogin(accounts store.AccountStore, hasher security.Hasher, secret []byte) *Login {
	return &Login{
		accounts: accounts,
		hasher:   hasher,
		secret:   secret,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Login opens a session for a verified account. Unknown emails and wrong
// passwords fail the same way
func (l *Login) Login(ctx context.Context, email, password string) (*VerifyResult, error) {
	acc, err := l.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	ok, err := l.hasher.VerifyPasswd(password, acc.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password, %w", err)
	}

	if !ok {
		return nil, ErrInvalidCredentials
	}

	if !acc.IsVerified {
		return nil, ErrNotVerified
	}

	token, exp, err := security.IssueSessionToken(l.secret, acc.ID, acc.Email, acc.FirstName, l.now())
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token, %w", err)
	}

	return &VerifyResult{
		Token:     token,
		ExpiresAt: exp,
		Account:   acc,
	}, nil
}
