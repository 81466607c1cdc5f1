package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func fastArgon() *ArgonHash {
	a := New()
	a.Memory = 1024
	a.Iterations = 1
	return a
}

func TestArgonHash_RoundTrip(t *testing.T) {
	t.Parallel()

	a := fastArgon()

	encoded, err := a.GenerateFromPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=1024,t=1,p=2$"))

	ok, err := a.VerifyPasswd("correct horse", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.VerifyPasswd("battery staple", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArgonHash_SaltsDiffer(t *testing.T) {
	t.Parallel()

	a := fastArgon()

	h1, err := a.GenerateFromPassword("pw")
	require.NoError(t, err)
	h2, err := a.GenerateFromPassword("pw")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestArgonHash_RejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := fastArgon().VerifyPasswd("pw", "not-a-hash")
	assert.ErrorIs(t, err, ErrUnknownHash)
}

func TestHashers_VerifyEachOther(t *testing.T) {
	t.Parallel()

	b := &BcryptHash{Cost: bcrypt.MinCost, argon: fastArgon()}
	a := fastArgon()

	bh, err := b.GenerateFromPassword("secret-pass")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(bh, "$2a$"))

	ah, err := a.GenerateFromPassword("secret-pass")
	require.NoError(t, err)

	ok, err := a.VerifyPasswd("secret-pass", bh)
	require.NoError(t, err)
	assert.True(t, ok, "argon hasher must accept bcrypt hashes")

	ok, err = b.VerifyPasswd("secret-pass", ah)
	require.NoError(t, err)
	assert.True(t, ok, "bcrypt hasher must accept argon hashes")

	ok, err = b.VerifyPasswd("wrong", bh)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewHasher(t *testing.T) {
	t.Parallel()

	assert.IsType(t, &ArgonHash{}, NewHasher("argon2id"))
	assert.IsType(t, &BcryptHash{}, NewHasher("bcrypt"))
}
