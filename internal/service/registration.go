package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"plaksha/ocr-api/internal/model"
	"plaksha/ocr-api/internal/store"
	"plaksha/ocr-api/pkg/security"

	"go.uber.org/zap"
)

// Notifier delivers a verification code to the account owner
type Notifier interface {
	SendVerificationCode(ctx context.Context, to, name, code string, expiresAt time.Time) error
}

type RegisterParams struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

type RegisterResult struct {
	// Created is false when an unverified account got a fresh code instead
	Created bool
}

type Registration struct {
	accounts store.AccountStore
	hasher   security.Hasher
	notifier Notifier
	now      func() time.Time
}

func NewRegistration(accounts store.AccountStore, hasher security.Hasher, notifier Notifier) *Registration {
	return &Registration{
		accounts: accounts,
		hasher:   hasher,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an unverified account, or refreshes the password and code
// of one that never finished verification, then mails the new code. A mail
// failure is reported but the stored state is kept
func (r *Registration) Register(ctx context.Context, p RegisterParams) (*RegisterResult, error) {
	code, expiresAt, err := security.NewVerificationCode(r.now())
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification code, %w", err)
	}

	res, err := r.register(ctx, p, code, expiresAt)
	if errors.Is(err, store.ErrDuplicate) {
		// Someone created the same email between our lookup and insert
		zap.L().Debug("Concurrent registration detected, retrying lookup", zap.String("email", p.Email))
		res, err = r.register(ctx, p, code, expiresAt)
	}
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		return nil, err
	}

	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if err := r.notifier.SendVerificationCode(ctx, p.Email, name, code, expiresAt); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotificationFailed, err)
	}

	return res, nil
}

func (r *Registration) register(ctx context.Context, p RegisterParams, code string, expiresAt time.Time) (*RegisterResult, error) {
	existing, err := r.accounts.FindByEmail(ctx, p.Email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	if existing != nil && existing.IsVerified {
		return nil, ErrAlreadyRegistered
	}

	hash, err := r.hasher.GenerateFromPassword(p.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password, %w", err)
	}

	if existing != nil {
		err := r.accounts.UpdatePending(ctx, existing.ID, store.PendingUpdate{
			PasswordHash:     hash,
			VerifyCode:       code,
			VerifyCodeExpiry: expiresAt,
		})
		if err != nil {
			// Verified by someone else in the meantime
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrAlreadyRegistered
			}
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}

		return &RegisterResult{Created: false}, nil
	}

	err = r.accounts.Create(ctx, &model.Account{
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		Email:            p.Email,
		PasswordHash:     hash,
		VerifyCode:       code,
		VerifyCodeExpiry: expiresAt,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	return &RegisterResult{Created: true}, nil
}
