package security

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sixDigits = regexp.MustCompile(`^[0-9]{6}$`)

func TestNewVerificationCode(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	for range 200 {
		code, exp, err := NewVerificationCode(now)
		require.NoError(t, err)
		assert.Regexp(t, sixDigits, code)
		assert.Equal(t, now.Add(time.Hour), exp)
	}
}

func TestNewVerificationCode_Varies(t *testing.T) {
	t.Parallel()

	seen := map[string]struct{}{}
	for range 50 {
		code, _, err := NewVerificationCode(time.Now())
		require.NoError(t, err)
		seen[code] = struct{}{}
	}

	assert.Greater(t, len(seen), 1)
}
