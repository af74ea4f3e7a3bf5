package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Inteligencia-Artesanal-FunArqui/BC-IAM/internal/auth"
	"github.com/Inteligencia-Artesanal-FunArqui/BC-IAM/internal/auth/mfa"
	"github.com/Inteligencia-Artesanal-FunArqui/BC-IAM/internal/iam"
	"github.com/Inteligencia-Artesanal-FunArqui/BC-IAM/internal/models"
	"github.com/Inteligencia-Artesanal-FunArqui/BC-IAM/pkg/crypto"
	apperrors "github.com/Inteligencia-Artesanal-FunArqui/BC-IAM/pkg/errors"
	"github.com/Inteligencia-Artesanal-FunArqui/BC-IAM/pkg/logger"
)

// SignInOutcome tags the result of a sign-in attempt. The 2FA state is
// derived from the persisted user record on every request; nothing is held
// in memory between requests.
type SignInOutcome string

const (
	// SignInAuthenticated means credentials passed and a token was issued.
	SignInAuthenticated SignInOutcome = "authenticated"
	// SignInSetupRequired means this was the first login: a secret was just
	// provisioned and the caller must present enrolment material.
	SignInSetupRequired SignInOutcome = "setup_required"
	// SignInVerificationRequired means 2FA is enabled and a code must be
	// verified before a token is issued.
	SignInVerificationRequired SignInOutcome = "verification_required"
)

// SignInResult carries the outcome of a sign-in attempt. Token is set only
// for SignInAuthenticated.
type SignInResult struct {
	Outcome SignInOutcome
	User    *models.User
	Token   string
}

// TwoFactorStatus reports a user's two-factor state.
type TwoFactorStatus struct {
	Username   string
	Enabled    bool
	Configured bool
}

// AuthService orchestrates credential verification, the TOTP secret
// lifecycle, and token issuance.
type AuthService struct {
	users  *iam.UserRepository
	tokens *auth.JWTService
	totp   *mfa.Engine
	log    *zap.Logger
}

// NewAuthService wires the authentication orchestrator.
func NewAuthService(users *iam.UserRepository, tokens *auth.JWTService, totp *mfa.Engine) (*AuthService, error) {
	if users == nil {
		return nil, errors.New("auth service: user repository is required")
	}
	if tokens == nil {
		return nil, errors.New("auth service: token issuer is required")
	}
	if totp == nil {
		return nil, errors.New("auth service: totp engine is required")
	}

	return &AuthService{
		users:  users,
		tokens: tokens,
		totp:   totp,
		log:    logger.WithModule("auth"),
	}, nil
}

// SignIn authenticates a username/password pair and derives the next step
// from the user's two-factor state:
//
//	no secret            -> provision one, SetupRequired
//	secret + enabled     -> VerificationRequired
//	secret + disabled    -> Authenticated (token issued, no challenge)
//
// Unknown usernames and wrong passwords produce the same failure so
// accounts cannot be enumerated.
func (s *AuthService) SignIn(ctx context.Context, username, password string) (*SignInResult, error) {
	username = strings.TrimSpace(username)

	user, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, iam.ErrNotFound) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	if !crypto.VerifyPassword(user.PasswordHash, password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	if !user.TwoFactorConfigured() {
		user, err = s.bootstrapSecret(ctx, username)
		if err != nil {
			return nil, apperrors.ErrInternalServer.WithInternal(err)
		}

		s.log.Info("two-factor secret provisioned on first login", zap.String("username", username))
		return &SignInResult{Outcome: SignInSetupRequired, User: user}, nil
	}

	if user.TwoFactorEnabled {
		return &SignInResult{Outcome: SignInVerificationRequired, User: user}, nil
	}

	// Secret present but 2FA explicitly disabled: a legitimate terminal
	// success state, token issued without a challenge.
	token, err := s.tokens.IssueToken(user)
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	return &SignInResult{Outcome: SignInAuthenticated, User: user, Token: token}, nil
}

// bootstrapSecret assigns a fresh TOTP secret inside one commit boundary.
// The row is locked and re-read so two racing first logins converge on a
// single secret: the loser observes the winner's row and keeps it.
func (s *AuthService) bootstrapSecret(ctx context.Context, username string) (*models.User, error) {
	var out *models.User

	err := s.users.Transaction(ctx, func(repo *iam.UserRepository) error {
		user, err := repo.FindByUsernameForUpdate(ctx, username)
		if err != nil {
			return err
		}

		if user.TwoFactorConfigured() {
			out = user
			return nil
		}

		setup, err := s.totp.GenerateSecret(user.Username)
		if err != nil {
			return err
		}

		user.SetTwoFactorSecret(setup.Secret)
		if err := repo.Update(ctx, user); err != nil {
			return err
		}

		out = user
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap two-factor secret: %w", err)
	}

	return out, nil
}

// SignUp registers a new user with all two-factor fields empty and disabled.
func (s *AuthService) SignUp(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return nil, apperrors.NewBadRequest("username and password cannot be empty")
	}

	hashed, err := crypto.HashPassword(password)
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	user := models.NewUser(username, hashed)

	err = s.users.Transaction(ctx, func(repo *iam.UserRepository) error {
		taken, err := repo.ExistsByUsername(ctx, username)
		if err != nil {
			return err
		}
		if taken {
			return apperrors.ErrDuplicateUsername
		}

		return repo.Add(ctx, user)
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	s.log.Info("user created", zap.String("username", username), zap.Uint("id", user.ID))
	return user, nil
}

// VerifyTwoFactor validates a submitted code. It completes first-time setup
// (flipping the enabled flag) when necessary and issues a token on success.
// A missing secret fails the validation safely rather than faulting.
func (s *AuthService) VerifyTwoFactor(ctx context.Context, username, code string) (*models.User, string, error) {
	var verified *models.User

	err := s.users.Transaction(ctx, func(repo *iam.UserRepository) error {
		user, err := repo.FindByUsernameForUpdate(ctx, strings.TrimSpace(username))
		if err != nil {
			return err
		}

		if !user.TwoFactorConfigured() || !s.totp.ValidateCode(*user.TwoFactorSecret, code) {
			return apperrors.ErrInvalidTwoFactorCode
		}

		// First-time completion: the pending secret becomes active.
		if !user.TwoFactorEnabled {
			if err := user.EnableTwoFactor(); err != nil {
				return err
			}
			if err := repo.Update(ctx, user); err != nil {
				return err
			}
		}

		verified = user
		return nil
	})
	if err != nil {
		return nil, "", s.mapUserError(err)
	}

	token, err := s.tokens.IssueToken(verified)
	if err != nil {
		return nil, "", apperrors.ErrInternalServer.WithInternal(err)
	}

	return verified, token, nil
}

// EnableTwoFactor re-enables 2FA from settings. A fresh valid code is
// required to prove the user still holds the enrolled authenticator.
func (s *AuthService) EnableTwoFactor(ctx context.Context, username, code string) error {
	err := s.users.Transaction(ctx, func(repo *iam.UserRepository) error {
		user, err := repo.FindByUsernameForUpdate(ctx, strings.TrimSpace(username))
		if err != nil {
			return err
		}

		if !user.TwoFactorConfigured() || !s.totp.ValidateCode(*user.TwoFactorSecret, code) {
			return apperrors.ErrInvalidTwoFactorCode
		}

		if err := user.EnableTwoFactor(); err != nil {
			return err
		}
		return repo.Update(ctx, user)
	})
	return s.mapUserError(err)
}

// DisableTwoFactor turns 2FA off without a code challenge; it only lowers
// protection, and the retained secret allows quick re-enabling.
func (s *AuthService) DisableTwoFactor(ctx context.Context, username string) error {
	err := s.users.Transaction(ctx, func(repo *iam.UserRepository) error {
		user, err := repo.FindByUsernameForUpdate(ctx, strings.TrimSpace(username))
		if err != nil {
			return err
		}

		user.DisableTwoFactor()
		return repo.Update(ctx, user)
	})
	return s.mapUserError(err)
}

// InitiateTwoFactor provisions a fresh secret for an existing user, e.g. when
// re-enrolling a new device. The previous secret is replaced and 2FA stays
// disabled until the new secret is verified.
func (s *AuthService) InitiateTwoFactor(ctx context.Context, username string) (*mfa.Setup, error) {
	var setup *mfa.Setup

	err := s.users.Transaction(ctx, func(repo *iam.UserRepository) error {
		user, err := repo.FindByUsernameForUpdate(ctx, strings.TrimSpace(username))
		if err != nil {
			return err
		}

		generated, err := s.totp.GenerateSecret(user.Username)
		if err != nil {
			return err
		}

		user.SetTwoFactorSecret(generated.Secret)
		user.DisableTwoFactor()
		if err := repo.Update(ctx, user); err != nil {
			return err
		}

		setup = generated
		return nil
	})
	if err != nil {
		return nil, s.mapUserError(err)
	}

	s.log.Info("two-factor secret re-provisioned", zap.String("username", username))
	return setup, nil
}

// Status returns the user's two-factor flags.
func (s *AuthService) Status(ctx context.Context, username string) (*TwoFactorStatus, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, s.mapUserError(err)
	}

	return &TwoFactorStatus{
		Username:   user.Username,
		Enabled:    user.TwoFactorEnabled,
		Configured: user.TwoFactorConfigured(),
	}, nil
}

// UserByID loads a user by primary key, for token-authenticated lookups.
func (s *AuthService) UserByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapUserError(err)
	}
	return user, nil
}

// SetupForUser rebuilds enrolment material from an already persisted secret.
func (s *AuthService) SetupForUser(user *models.User) (*mfa.Setup, error) {
	if user == nil || !user.TwoFactorConfigured() {
		return nil, apperrors.ErrTwoFactorNotConfigured
	}
	return s.totp.SetupFromSecret(*user.TwoFactorSecret, user.Username)
}

// mapUserError normalises repository and domain failures to the API taxonomy.
func (s *AuthService) mapUserError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, iam.ErrNotFound) {
		return apperrors.ErrUserNotFound
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return apperrors.ErrInternalServer.WithInternal(err)
}
