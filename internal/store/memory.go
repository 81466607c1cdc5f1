package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"plaksha/ocr-api/internal/model"
)

// Memory keeps everything in maps. Used by tests and the "memory" driver for
// local development, data is gone on restart
type Memory struct {
	mu          sync.Mutex
	accounts    map[string]*model.Account
	emails      map[string]string
	extractions []model.ExtractionRecord
}

func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[string]*model.Account),
		emails:   make(map[string]string),
	}
}

func (m *Memory) Accounts() AccountStore       { return memoryAccounts{m} }
func (m *Memory) Extractions() ExtractionStore { return memoryExtractions{m} }

type memoryAccounts struct{ m *Memory }

func (s memoryAccounts) FindByEmail(_ context.Context, email string) (*model.Account, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	id, ok := s.m.emails[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}

	a := *s.m.accounts[id]
	return &a, nil
}

func (s memoryAccounts) Create(_ context.Context, a *model.Account) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	key := strings.ToLower(a.Email)
	if _, ok := s.m.emails[key]; ok {
		return ErrDuplicate
	}

	id, err := newID()
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	a.ID = id
	a.CreatedAt = now
	a.UpdatedAt = now

	stored := *a
	s.m.accounts[id] = &stored
	s.m.emails[key] = id

	return nil
}

func (s memoryAccounts) UpdatePending(_ context.Context, id string, u PendingUpdate) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	a, ok := s.m.accounts[id]
	if !ok || a.IsVerified {
		return ErrNotFound
	}

	a.PasswordHash = u.PasswordHash
	a.VerifyCode = u.VerifyCode
	a.VerifyCodeExpiry = u.VerifyCodeExpiry
	a.UpdatedAt = time.Now().UTC()

	return nil
}

func (s memoryAccounts) ConsumeCode(_ context.Context, email, code string, now time.Time) (*model.Account, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	id, ok := s.m.emails[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}

	a := s.m.accounts[id]
	if a.IsVerified || a.VerifyCode != code || !now.Before(a.VerifyCodeExpiry) {
		return nil, ErrNotFound
	}

	a.IsVerified = true
	a.VerifyCode = ""
	a.VerifyCodeExpiry = now
	a.UpdatedAt = now

	out := *a
	return &out, nil
}

type memoryExtractions struct{ m *Memory }

func (s memoryExtractions) Create(_ context.Context, r *model.ExtractionRecord) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	id, err := newID()
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	r.ID = id
	r.CreatedAt = now
	r.UpdatedAt = now

	s.m.extractions = append(s.m.extractions, *r)
	return nil
}

func (s memoryExtractions) ListByUser(_ context.Context, userID string, limit, offset int) ([]model.ExtractionRecord, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	out := []model.ExtractionRecord{}
	for _, r := range slices.Backward(s.m.extractions) {
		if r.UserID == userID {
			out = append(out, r)
		}
	}

	if offset >= len(out) {
		return []model.ExtractionRecord{}, nil
	}

	out = out[max(offset, 0):]
	return out[:min(clampLimit(limit), len(out))], nil
}

func (s memoryExtractions) FindByID(_ context.Context, userID, id string) (*model.ExtractionRecord, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	for _, r := range s.m.extractions {
		if r.ID == id && r.UserID == userID {
			return &r, nil
		}
	}

	return nil, ErrNotFound
}
