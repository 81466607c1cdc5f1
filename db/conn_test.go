package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"plaksha/ocr-api/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandle_OpenIsIdempotent(t *testing.T) {
	// Inside docker the file has to exist already
	path := filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	h := New(config.Store{Driver: "sqlite", DSN: path})
	t.Cleanup(func() { h.Close(context.Background()) })

	a1, e1, err := h.Open(context.Background())
	require.NoError(t, err)

	a2, e2, err := h.Open(context.Background())
	require.NoError(t, err)

	assert.Same(t, a1, a2)
	assert.Same(t, e1, e2)
}

func TestHandle_Memory(t *testing.T) {
	h := New(config.Store{Driver: "memory"})

	a, e, err := h.Open(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, a)
	assert.NotNil(t, e)
	assert.NoError(t, h.Close(context.Background()))
}

func TestHandle_UnknownDriverErrorIsCached(t *testing.T) {
	h := New(config.Store{Driver: "cassandra"})

	_, _, err1 := h.Open(context.Background())
	_, _, err2 := h.Open(context.Background())

	assert.Error(t, err1)
	assert.Equal(t, err1, err2)
}
