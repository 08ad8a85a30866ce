package crypto

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("notify-token-123")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	require.True(t, CheckPassword("notify-token-123", hash))
	require.False(t, CheckPassword("wrong-token", hash))
}

func TestGenerateRandomToken(t *testing.T) {
	token, err := GenerateRandomToken(16)
	require.NoError(t, err)
	require.Len(t, token, 32) // hex encoded

	other, err := GenerateRandomToken(16)
	require.NoError(t, err)
	require.NotEqual(t, token, other)

	nonce, err := GenerateVerificationToken()
	require.NoError(t, err)
	require.Len(t, nonce, 32)
}

func TestHashAndTokenErrorBranches(t *testing.T) {
	origBcrypt := bcryptGenerateFromPassword
	origRead := randomRead
	t.Cleanup(func() {
		bcryptGenerateFromPassword = origBcrypt
		randomRead = origRead
	})

	bcryptGenerateFromPassword = func([]byte, int) ([]byte, error) {
		return nil, errors.New("bcrypt failed")
	}
	_, err := HashPassword("x")
	require.Error(t, err)

	bcryptGenerateFromPassword = origBcrypt
	randomRead = func([]byte) (int, error) {
		return 0, errors.New("rand failed")
	}
	_, err = GenerateRandomToken(16)
	require.Error(t, err)
}
