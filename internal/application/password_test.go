package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	t.Parallel()

	hash, err := CreatePasswordHash("correct horse", testArgon2idParams)
	require.NoError(t, err)

	assert.NoError(t, VerifyPassword(hash, "correct horse"))
	assert.ErrorIs(t, VerifyPassword(hash, "battery staple"), ErrInvalidCredentials)
}

func TestPasswordHashUsesFreshSalt(t *testing.T) {
	t.Parallel()

	first, err := CreatePasswordHash("same", testArgon2idParams)
	require.NoError(t, err)
	second, err := CreatePasswordHash("same", testArgon2idParams)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestVerifyPasswordRejectsMalformedHashes(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, VerifyPassword("plaintext", "x"), ErrInvalidPasswordHash)
	assert.ErrorIs(t, VerifyPassword("$scrypt$a$b$c$d", "x"), ErrInvalidPasswordHash)
	assert.ErrorIs(t, VerifyPassword("$argon2id$v=1$m=1,t=1,p=1$c2FsdA$aGFzaA", "x"), ErrIncompatiblePasswordVersion)
	assert.ErrorIs(t, VerifyPassword("$2b$10$tooshort", "x"), ErrInvalidPasswordHash)
}
