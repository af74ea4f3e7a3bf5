package models

import (
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/Inteligencia-Artesanal-FunArqui/BC-IAM/pkg/errors"
)

func TestNewUserStartsWithoutTwoFactor(t *testing.T) {
	user := NewUser("alice", "hash")

	require.Equal(t, "alice", user.Username)
	require.Equal(t, "hash", user.PasswordHash)
	require.False(t, user.TwoFactorEnabled)
	require.False(t, user.TwoFactorConfigured())
}

func TestTwoFactorConfigured(t *testing.T) {
	user := NewUser("alice", "hash")
	require.False(t, user.TwoFactorConfigured())

	empty := ""
	user.TwoFactorSecret = &empty
	require.False(t, user.TwoFactorConfigured())

	user.SetTwoFactorSecret("JBSWY3DPEHPK3PXP")
	require.True(t, user.TwoFactorConfigured())
}

func TestEnableTwoFactorWithoutSecretFails(t *testing.T) {
	user := NewUser("alice", "hash")

	err := user.EnableTwoFactor()
	require.ErrorIs(t, err, apperrors.ErrTwoFactorNotConfigured)
	require.False(t, user.TwoFactorEnabled)
}

func TestEnableTwoFactorWithSecret(t *testing.T) {
	user := NewUser("alice", "hash").SetTwoFactorSecret("JBSWY3DPEHPK3PXP")

	require.NoError(t, user.EnableTwoFactor())
	require.True(t, user.TwoFactorEnabled)
}

func TestDisableTwoFactorRetainsSecret(t *testing.T) {
	user := NewUser("alice", "hash").SetTwoFactorSecret("JBSWY3DPEHPK3PXP")
	require.NoError(t, user.EnableTwoFactor())

	user.DisableTwoFactor()

	require.False(t, user.TwoFactorEnabled)
	require.True(t, user.TwoFactorConfigured())
}

func TestSetTwoFactorSecretLeavesEnabledUntouched(t *testing.T) {
	user := NewUser("alice", "hash").SetTwoFactorSecret("OLDSECRET")
	require.NoError(t, user.EnableTwoFactor())

	user.SetTwoFactorSecret("NEWSECRET")

	require.True(t, user.TwoFactorEnabled)
	require.Equal(t, "NEWSECRET", *user.TwoFactorSecret)
}
