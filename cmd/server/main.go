package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Inteligencia-Artesanal-FunArqui/BC-IAM/internal/api"
	"github.com/Inteligencia-Artesanal-FunArqui/BC-IAM/internal/app"
	iauth "github.com/Inteligencia-Artesanal-FunArqui/BC-IAM/internal/auth"
	"github.com/Inteligencia-Artesanal-FunArqui/BC-IAM/internal/auth/mfa"
	"github.com/Inteligencia-Artesanal-FunArqui/BC-IAM/internal/clients"
	"github.com/Inteligencia-Artesanal-FunArqui/BC-IAM/internal/database"
	"github.com/Inteligencia-Artesanal-FunArqui/BC-IAM/internal/iam"
	"github.com/Inteligencia-Artesanal-FunArqui/BC-IAM/internal/services"
	"github.com/Inteligencia-Artesanal-FunArqui/BC-IAM/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("bc-iam-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var configPath string
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("bootstrap")

	cfg.Auth.JWT.Secret = strings.TrimSpace(cfg.Auth.JWT.Secret)
	if cfg.Auth.JWT.Secret == "" {
		return errors.New("auth.jwt.secret must be configured")
	}

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	jwtService, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         cfg.Auth.JWT.Secret,
		Issuer:         cfg.Auth.JWT.Issuer,
		AccessTokenTTL: cfg.Auth.JWT.TTL,
	})
	if err != nil {
		return fmt.Errorf("initialise jwt service: %w", err)
	}

	totpEngine := mfa.NewEngine(
		mfa.WithIssuer(cfg.Auth.TOTP.Issuer),
		mfa.WithQRCodeSize(cfg.Auth.TOTP.QRCodeSize),
	)

	userRepo, err := iam.NewUserRepository(db)
	if err != nil {
		return fmt.Errorf("initialise user repository: %w", err)
	}

	authService, err := services.NewAuthService(userRepo, jwtService, totpEngine)
	if err != nil {
		return fmt.Errorf("initialise auth service: %w", err)
	}

	var profilesClient *clients.ProfilesClient
	if url := strings.TrimSpace(cfg.Services.Profiles.BaseURL); url != "" {
		profilesClient = clients.NewProfilesClient(url, cfg.Services.Profiles.Timeout)
	}

	var subscriptionsClient *clients.SubscriptionsClient
	if url := strings.TrimSpace(cfg.Services.Subscriptions.BaseURL); url != "" {
		subscriptionsClient = clients.NewSubscriptionsClient(url, cfg.Services.Subscriptions.Timeout)
	}

	router, err := api.NewRouter(api.Deps{
		Auth:          authService,
		JWT:           jwtService,
		Profiles:      profilesClient,
		Subscriptions: subscriptionsClient,
		MetricsOn:     cfg.Monitoring.Prometheus.Enabled,
	})
	if err != nil {
		return fmt.Errorf("build api router: %w", err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if err, ok := <-serverErr; ok && err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

func loadApplicationConfig(path string) (*app.Config, error) {
	switch {
	case strings.TrimSpace(path) == "":
		return app.LoadConfig()
	default:
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return app.LoadConfig(path)
			}
			return app.LoadConfig(filepath.Dir(path))
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg.DatabaseOptions())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAll(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(cfg.Database.Driver))))

	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
