package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"plaksha/ocr-api/internal/model"
	"plaksha/ocr-api/internal/store"
	"plaksha/ocr-api/pkg/util"

	"go.uber.org/zap"
)

// Archive keeps a copy of every uploaded document
type Archive interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Delete(ctx context.Context, key string) error
}

type SaveParams struct {
	UserID       string
	DocumentType string
	FileName     string
	ContentType  string
	Data         []byte
	Extracted    map[string]any
}

type Extractions struct {
	records store.ExtractionStore
	archive Archive
}

// NewExtractions takes a nil archive when archiving is disabled
func NewExtractions(records store.ExtractionStore, archive Archive) *Extractions {
	return &Extractions{records: records, archive: archive}
}

// Save stores one new record per call, nothing is ever merged into an
// existing one
func (e *Extractions) Save(ctx context.Context, p SaveParams) (*model.ExtractionRecord, error) {
	if p.UserID == "" {
		return nil, ErrUnauthorized
	}

	if p.DocumentType == "" || p.Extracted == nil {
		return nil, ErrBadRequest
	}

	rec := &model.ExtractionRecord{
		UserID:           p.UserID,
		DocumentType:     p.DocumentType,
		Extracted:        p.Extracted,
		OriginalFileName: p.FileName,
	}

	if e.archive != nil {
		rec.ArchiveKey = e.archiveDocument(ctx, p)
	}

	if err := e.records.Create(ctx, rec); err != nil {
		if rec.ArchiveKey != "" {
			e.discardArchived(rec.ArchiveKey)
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	return rec, nil
}

// discardArchived removes a document whose record never made it into the
// store. The request context may already be done so it runs on its own
func (e *Extractions) discardArchived(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.archive.Delete(ctx, key); err != nil {
		zap.L().Error("Failed to cleanup archived document", zap.String("key", key), zap.Error(err))
		return
	}

	zap.L().Debug("Cleaned up archived document", zap.String("key", key))
}

// archiveDocument returns an empty key when the upload failed
func (e *Extractions) archiveDocument(ctx context.Context, p SaveParams) string {
	token, err := util.GenerateToken(12)
	if err != nil {
		zap.L().Error("Failed to generate archive key", zap.Error(err))
		return ""
	}

	key := path.Join(p.UserID, token+strings.ToLower(path.Ext(p.FileName)))

	if err := e.archive.Put(ctx, key, p.ContentType, p.Data); err != nil {
		zap.L().Error("Failed to archive document", zap.Error(err), zap.String("key", key), zap.String("userID", p.UserID))
		return ""
	}

	return key
}

func (e *Extractions) List(ctx context.Context, userID string, limit, offset int) ([]model.ExtractionRecord, error) {
	recs, err := e.records.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	return recs, nil
}

// Get only returns records owned by userID
func (e *Extractions) Get(ctx context.Context, userID, id string) (*model.ExtractionRecord, error) {
	rec, err := e.records.FindByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	return rec, nil
}
