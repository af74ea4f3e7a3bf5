package models

import (
	"time"

	apperrors "github.com/Inteligencia-Artesanal-FunArqui/BC-IAM/pkg/errors"
)

// User is the aggregate at the centre of the authentication flows. The
// password hash and the TOTP secret never leave the service boundary.
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`

	PasswordHash string `gorm:"not null" json:"-"`

	TwoFactorSecret    *string `json:"-"`
	TwoFactorEnabled   bool    `gorm:"default:false" json:"two_factor_enabled"`
	PasswordMustChange bool    `gorm:"default:false" json:"password_must_change"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser constructs a user with all two-factor fields empty and disabled.
func NewUser(username, passwordHash string) *User {
	return &User{
		Username:     username,
		PasswordHash: passwordHash,
	}
}

// TwoFactorConfigured reports whether a TOTP secret has been provisioned.
func (u *User) TwoFactorConfigured() bool {
	return u.TwoFactorSecret != nil && *u.TwoFactorSecret != ""
}

// UpdateUsername replaces the login identifier.
func (u *User) UpdateUsername(username string) *User {
	u.Username = username
	return u
}

// UpdatePasswordHash replaces the stored credential hash.
func (u *User) UpdatePasswordHash(passwordHash string) *User {
	u.PasswordHash = passwordHash
	return u
}

// SetTwoFactorSecret stores a freshly generated Base32 secret. The enabled
// flag is untouched: a secret is pending until verified.
func (u *User) SetTwoFactorSecret(secret string) *User {
	u.TwoFactorSecret = &secret
	return u
}

// EnableTwoFactor turns two-factor authentication on. Enabling without a
// provisioned secret is an illegal transition.
func (u *User) EnableTwoFactor() error {
	if !u.TwoFactorConfigured() {
		return apperrors.ErrTwoFactorNotConfigured
	}

	u.TwoFactorEnabled = true
	return nil
}

// DisableTwoFactor turns two-factor authentication off. The secret is
// retained so the user can re-enable without re-provisioning.
func (u *User) DisableTwoFactor() *User {
	u.TwoFactorEnabled = false
	return u
}

// SetPasswordMustChange flags whether the next login must rotate the password.
func (u *User) SetPasswordMustChange(mustChange bool) *User {
	u.PasswordMustChange = mustChange
	return u
}
