package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"plaksha/ocr-api/internal/model"
	"plaksha/ocr-api/internal/store"
	"plaksha/ocr-api/pkg/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentCode struct {
	To, Name, Code string
	ExpiresAt      time.Time
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentCode
	err  error
}

func (f *fakeNotifier) SendVerificationCode(_ context.Context, to, name, code string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sent = append(f.sent, sentCode{to, name, code, expiresAt})
	return f.err
}

func (f *fakeNotifier) last() sentCode {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.sent[len(f.sent)-1]
}

func fastHasher() security.Hasher {
	return &security.ArgonHash{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

var clock = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newRegistration(n Notifier) (*Registration, *store.Memory) {
	m := store.NewMemory()
	r := NewRegistration(m.Accounts(), fastHasher(), n)
	r.now = func() time.Time { return clock }
	return r, m
}

var alice = RegisterParams{FirstName: "Alice", LastName: "Smith", Email: "alice@example.com", Password: "hunter2"}

func TestRegister_NewAccount(t *testing.T) {
	n := &fakeNotifier{}
	r, m := newRegistration(n)

	res, err := r.Register(context.Background(), alice)
	require.NoError(t, err)
	assert.True(t, res.Created)

	acc, err := m.Accounts().FindByEmail(context.Background(), alice.Email)
	require.NoError(t, err)

	assert.False(t, acc.IsVerified)
	assert.Equal(t, "Alice", acc.FirstName)
	assert.Equal(t, "Smith", acc.LastName)
	assert.Regexp(t, `^\d{6}$`, acc.VerifyCode)
	assert.Equal(t, clock.Add(time.Hour), acc.VerifyCodeExpiry)
	assert.NotEqual(t, alice.Password, acc.PasswordHash)

	ok, err := fastHasher().VerifyPasswd(alice.Password, acc.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, n.sent, 1)
	assert.Equal(t, sentCode{alice.Email, "Alice Smith", acc.VerifyCode, acc.VerifyCodeExpiry}, n.last())
}

func TestRegister_ResendRefreshesUnverified(t *testing.T) {
	n := &fakeNotifier{}
	r, m := newRegistration(n)

	_, err := r.Register(context.Background(), alice)
	require.NoError(t, err)
	first := n.last().Code

	again := alice
	again.Email = "ALICE@example.com"
	again.Password = "new-password"

	r.now = func() time.Time { return clock.Add(10 * time.Minute) }

	res, err := r.Register(context.Background(), again)
	require.NoError(t, err)
	assert.False(t, res.Created)

	acc, err := m.Accounts().FindByEmail(context.Background(), alice.Email)
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", acc.Email)
	assert.Equal(t, n.last().Code, acc.VerifyCode)
	assert.Equal(t, clock.Add(70*time.Minute), acc.VerifyCodeExpiry)

	ok, _ := fastHasher().VerifyPasswd("new-password", acc.PasswordHash)
	assert.True(t, ok)

	// The first code must not verify any more unless both codes happen to match
	if first != acc.VerifyCode {
		_, err = m.Accounts().ConsumeCode(context.Background(), alice.Email, first, clock.Add(11*time.Minute))
		assert.ErrorIs(t, err, store.ErrNotFound)
	}
}

func TestRegister_VerifiedIsRejected(t *testing.T) {
	n := &fakeNotifier{}
	r, m := newRegistration(n)

	_, err := r.Register(context.Background(), alice)
	require.NoError(t, err)

	_, err = m.Accounts().ConsumeCode(context.Background(), alice.Email, n.last().Code, clock)
	require.NoError(t, err)

	before, _ := m.Accounts().FindByEmail(context.Background(), alice.Email)

	_, err = r.Register(context.Background(), alice)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
	assert.Len(t, n.sent, 1)

	after, _ := m.Accounts().FindByEmail(context.Background(), alice.Email)
	assert.Equal(t, before, after)
}

func TestRegister_NotificationFailureKeepsAccount(t *testing.T) {
	n := &fakeNotifier{err: errors.New("smtp down")}
	r, m := newRegistration(n)

	_, err := r.Register(context.Background(), alice)
	assert.ErrorIs(t, err, ErrNotificationFailed)

	acc, err := m.Accounts().FindByEmail(context.Background(), alice.Email)
	require.NoError(t, err)
	assert.False(t, acc.IsVerified)
	assert.Equal(t, n.last().Code, acc.VerifyCode)
}

type failingAccounts struct {
	store.AccountStore
}

func (failingAccounts) FindByEmail(context.Context, string) (*model.Account, error) {
	return nil, errors.New("connection refused")
}

func TestRegister_StoreFailure(t *testing.T) {
	n := &fakeNotifier{}
	r := NewRegistration(failingAccounts{}, fastHasher(), n)

	_, err := r.Register(context.Background(), alice)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Empty(t, n.sent)
}

// racingAccounts hides the account from the first lookup, as if another
// request created it right after
type racingAccounts struct {
	store.AccountStore
	lookups int
}

func (s *racingAccounts) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	s.lookups++
	if s.lookups == 1 {
		return nil, store.ErrNotFound
	}

	return s.AccountStore.FindByEmail(ctx, email)
}

func TestRegister_ConcurrentCreateFallsBackToResend(t *testing.T) {
	m := store.NewMemory()
	require.NoError(t, m.Accounts().Create(context.Background(), &model.Account{
		FirstName:        "Alice",
		Email:            alice.Email,
		PasswordHash:     "x",
		VerifyCode:       "000000",
		VerifyCodeExpiry: clock.Add(time.Hour),
	}))

	n := &fakeNotifier{}
	accounts := &racingAccounts{AccountStore: m.Accounts()}
	r := NewRegistration(accounts, fastHasher(), n)
	r.now = func() time.Time { return clock }

	res, err := r.Register(context.Background(), alice)
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, 2, accounts.lookups)

	acc, err := m.Accounts().FindByEmail(context.Background(), alice.Email)
	require.NoError(t, err)
	assert.Equal(t, n.last().Code, acc.VerifyCode)
	require.Len(t, n.sent, 1)
}
