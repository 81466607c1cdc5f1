package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	CodeLength = 6
	CodeTTL    = time.Hour
)

var codeSpace = big.NewInt(1_000_000)

// NewVerificationCode returns a zero padded 6 digit code drawn uniformly from
// crypto/rand and the instant it stops being valid
func NewVerificationCode(now time.Time) (code string, expiresAt time.Time, err error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to read random number, %w", err)
	}

	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), now.Add(CodeTTL), nil
}
