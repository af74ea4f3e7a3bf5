package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	iauth "github.com/Inteligencia-Artesanal-FunArqui/BC-IAM/internal/auth"
	"github.com/Inteligencia-Artesanal-FunArqui/BC-IAM/internal/clients"
	"github.com/Inteligencia-Artesanal-FunArqui/BC-IAM/internal/handlers"
	"github.com/Inteligencia-Artesanal-FunArqui/BC-IAM/internal/middleware"
	"github.com/Inteligencia-Artesanal-FunArqui/BC-IAM/internal/services"
)

// Deps carries the constructed services the router wires into handlers.
type Deps struct {
	Auth          *services.AuthService
	JWT           *iauth.JWTService
	Profiles      *clients.ProfilesClient
	Subscriptions *clients.SubscriptionsClient
	MetricsOn     bool
}

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(deps Deps) (*gin.Engine, error) {
	if deps.Auth == nil {
		return nil, fmt.Errorf("auth service must be provided")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	r.GET("/health", handlers.Health())

	authHandler := handlers.NewAuthHandler(deps.Auth, deps.Profiles, deps.Subscriptions)

	// Sign-in and the 2FA flows run before a token exists, and the settings
	// flows identify the user by username the way the upstream service does.
	authn := r.Group("/api/v1/authentication")
	{
		authn.POST("/sign-in", authHandler.SignIn)
		authn.POST("/sign-up", authHandler.SignUp)
		authn.POST("/verify-2fa", authHandler.VerifyTwoFactor)
		authn.POST("/initiate-2fa", authHandler.InitiateTwoFactor)
		authn.POST("/enable-2fa", authHandler.EnableTwoFactor)
		authn.POST("/disable-2fa", authHandler.DisableTwoFactor)
		authn.GET("/2fa-status", authHandler.TwoFactorStatus)

		protected := authn.Group("")
		protected.Use(middleware.Auth(deps.JWT))
		protected.GET("/me", authHandler.Me)
	}

	if deps.MetricsOn {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
