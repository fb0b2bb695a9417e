package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	t.Parallel()

	h, err := hashPassword("pw1secret")
	require.NoError(t, err)
	require.NotEmpty(t, h)

	require.True(t, checkPassword(h, "pw1secret"))
	require.False(t, checkPassword(h, "pw2secret"))
}

func TestHashPassword_SaltedHashesDiffer(t *testing.T) {
	t.Parallel()

	h1, err := hashPassword("same-password")
	require.NoError(t, err)
	h2, err := hashPassword("same-password")
	require.NoError(t, err)

	// Соль рандомизируется: хэши разные, но оба валидны.
	require.NotEqual(t, h1, h2)
	require.True(t, checkPassword(h1, "same-password"))
	require.True(t, checkPassword(h2, "same-password"))
}

func TestCheckPassword_MalformedHashFailsClosed(t *testing.T) {
	t.Parallel()

	require.False(t, checkPassword("not-a-bcrypt-hash", "whatever"))
	require.False(t, checkPassword("", "whatever"))
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, validatePassword(""), ErrInvalidArgument)
	require.ErrorIs(t, validatePassword("short"), ErrInvalidArgument)
	require.NoError(t, validatePassword("longenough"))
}
