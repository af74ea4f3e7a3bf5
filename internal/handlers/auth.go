package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Inteligencia-Artesanal-FunArqui/BC-IAM/internal/clients"
	"github.com/Inteligencia-Artesanal-FunArqui/BC-IAM/internal/middleware"
	"github.com/Inteligencia-Artesanal-FunArqui/BC-IAM/internal/models"
	"github.com/Inteligencia-Artesanal-FunArqui/BC-IAM/internal/services"
	"github.com/Inteligencia-Artesanal-FunArqui/BC-IAM/pkg/errors"
	"github.com/Inteligencia-Artesanal-FunArqui/BC-IAM/pkg/metrics"
	"github.com/Inteligencia-Artesanal-FunArqui/BC-IAM/pkg/response"
)

// AuthHandler exposes the authentication flows over REST. Profile and plan
// lookups are enrichment only: their absence never fails a request.
type AuthHandler struct {
	auth          *services.AuthService
	profiles      *clients.ProfilesClient
	subscriptions *clients.SubscriptionsClient
}

// NewAuthHandler wires the authentication REST surface.
func NewAuthHandler(auth *services.AuthService, profiles *clients.ProfilesClient, subscriptions *clients.SubscriptionsClient) *AuthHandler {
	return &AuthHandler{auth: auth, profiles: profiles, subscriptions: subscriptions}
}

type signInRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type signUpRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

type verifyTwoFactorRequest struct {
	Username string `json:"username" validate:"required"`
	Code     string `json:"code" validate:"required,len=6,numeric"`
}

type usernameRequest struct {
	Username string `json:"username" validate:"required"`
}

// SignIn handles POST /api/v1/authentication/sign-in. Depending on the
// user's two-factor state the response either carries enrolment material, a
// verification prompt, or a token with profile enrichment.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req signInRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.auth.SignIn(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		metrics.SignInAttempts.WithLabelValues("failure").Inc()
		response.Error(c, err)
		return
	}

	metrics.SignInAttempts.WithLabelValues(string(result.Outcome)).Inc()

	switch result.Outcome {
	case services.SignInSetupRequired:
		setup, err := h.auth.SetupForUser(result.User)
		if err != nil {
			response.Error(c, err)
			return
		}

		response.Success(c, http.StatusOK, gin.H{
			"requiresTwoFactorSetup": true,
			"username":               result.User.Username,
			"qrCodeDataUrl":          setup.QRCodeDataURL,
			"manualEntryKey":         setup.ManualEntryKey,
			"message":                "First login detected. Scan the QR code with your authenticator app and enter the 6-digit code.",
		})

	case services.SignInVerificationRequired:
		response.Success(c, http.StatusOK, gin.H{
			"requires2FA": true,
			"username":    result.User.Username,
			"message":     "Enter the 6-digit code from your authenticator app.",
		})

	default:
		response.Success(c, http.StatusOK, h.authenticatedPayload(c, result.User, result.Token))
	}
}

// SignUp handles POST /api/v1/authentication/sign-up.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req signUpRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.auth.SignUp(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		metrics.SignUps.WithLabelValues("failure").Inc()
		response.Error(c, err)
		return
	}

	metrics.SignUps.WithLabelValues("success").Inc()
	response.Success(c, http.StatusCreated, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"message":  "User created successfully",
	})
}

// VerifyTwoFactor handles POST /api/v1/authentication/verify-2fa. It serves
// both first-time setup completion and per-login verification.
func (h *AuthHandler) VerifyTwoFactor(c *gin.Context) {
	var req verifyTwoFactorRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, token, err := h.auth.VerifyTwoFactor(c.Request.Context(), req.Username, req.Code)
	if err != nil {
		metrics.TwoFactorVerifications.WithLabelValues("failure").Inc()
		response.Error(c, err)
		return
	}

	metrics.TwoFactorVerifications.WithLabelValues("success").Inc()
	response.Success(c, http.StatusOK, h.authenticatedPayload(c, user, token))
}

// InitiateTwoFactor handles POST /api/v1/authentication/initiate-2fa: it
// provisions a fresh secret so a user can re-enrol an authenticator.
func (h *AuthHandler) InitiateTwoFactor(c *gin.Context) {
	var req usernameRequest
	if !bindAndValidate(c, &req) {
		return
	}

	setup, err := h.auth.InitiateTwoFactor(c.Request.Context(), req.Username)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"qrCodeDataUrl":  setup.QRCodeDataURL,
		"manualEntryKey": setup.ManualEntryKey,
		"message":        "Scan the QR code or enter the key manually, then verify with a code to complete setup.",
	})
}

// EnableTwoFactor handles POST /api/v1/authentication/enable-2fa.
func (h *AuthHandler) EnableTwoFactor(c *gin.Context) {
	var req verifyTwoFactorRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.auth.EnableTwoFactor(c.Request.Context(), req.Username, req.Code); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Two-factor authentication enabled successfully"})
}

// DisableTwoFactor handles POST /api/v1/authentication/disable-2fa.
func (h *AuthHandler) DisableTwoFactor(c *gin.Context) {
	var req usernameRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.auth.DisableTwoFactor(c.Request.Context(), req.Username); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Two-factor authentication disabled successfully"})
}

// TwoFactorStatus handles GET /api/v1/authentication/2fa-status?username=...
func (h *AuthHandler) TwoFactorStatus(c *gin.Context) {
	username := strings.TrimSpace(c.Query("username"))
	if username == "" {
		response.Error(c, errors.NewBadRequest("username is required"))
		return
	}

	status, err := h.auth.Status(c.Request.Context(), username)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"username":            status.Username,
		"twoFactorEnabled":    status.Enabled,
		"twoFactorConfigured": status.Configured,
	})
}

// Me handles GET /api/v1/authentication/me for a token-bearing caller.
func (h *AuthHandler) Me(c *gin.Context) {
	id := c.GetUint(middleware.CtxUserIDKey)
	if id == 0 {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	user, err := h.auth.UserByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"id":               user.ID,
		"username":         user.Username,
		"twoFactorEnabled": user.TwoFactorEnabled,
	})
}

// authenticatedPayload builds the token response, enriched with the user's
// Owner or Provider profile when one of the sibling services knows them.
func (h *AuthHandler) authenticatedPayload(c *gin.Context, user *models.User, token string) gin.H {
	ctx := c.Request.Context()

	if h.profiles != nil {
		if owner, _ := h.profiles.OwnerProfileForAuth(ctx, user.ID); owner != nil {
			payload := gin.H{
				"id":        user.ID,
				"username":  user.Username,
				"token":     token,
				"userType":  "Owner",
				"profileId": owner.OwnerID,
				"balance":   owner.Balance,
				"planId":    owner.PlanID,
				"maxUnits":  owner.MaxUnits,
			}
			h.attachPlanName(ctx, payload, owner.PlanID)
			return payload
		}

		if provider, _ := h.profiles.ProviderProfileForAuth(ctx, user.ID); provider != nil {
			payload := gin.H{
				"id":          user.ID,
				"username":    user.Username,
				"token":       token,
				"userType":    "Provider",
				"profileId":   provider.ProviderID,
				"balance":     provider.Balance,
				"planId":      provider.PlanID,
				"maxClients":  provider.MaxClients,
				"companyName": provider.CompanyName,
			}
			h.attachPlanName(ctx, payload, provider.PlanID)
			return payload
		}
	}

	// No profile yet: basic authentication payload.
	return gin.H{
		"id":       user.ID,
		"username": user.Username,
		"token":    token,
	}
}

// attachPlanName resolves the plan's display name, best effort.
func (h *AuthHandler) attachPlanName(ctx context.Context, payload gin.H, planID int) {
	if h.subscriptions == nil || planID == 0 {
		return
	}

	if plan, _ := h.subscriptions.PlanByID(ctx, planID); plan != nil && plan.PlanName != "" {
		payload["planName"] = plan.PlanName
	}
}
