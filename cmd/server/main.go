package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"familytasks/internal/config"
	"familytasks/internal/database"
	"familytasks/internal/handlers"
	"familytasks/internal/logging"
	"familytasks/internal/repository"
	"familytasks/internal/repository/mongostore"
	"familytasks/internal/security"
	"familytasks/internal/service"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	stores, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.close()

	var authOpts []service.AuthOption
	if cfg.RedisURL != "" {
		rdb, err := security.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		authOpts = append(authOpts, service.WithRevoker(security.NewRedisRevocationList(rdb)))
		logger.Info("Access token revocation enabled (redis)")
	}
	if cfg.GoogleEnabled() {
		authOpts = append(authOpts, service.WithGoogle(service.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)))
		logger.Info("Google sign-in enabled")
	}

	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, cfg.EmailDebug, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize email service: %w", err)
	}
	authOpts = append(authOpts, service.WithWelcomeMailer(emailService))

	tokens := security.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authService := service.NewAuthService(stores.users, tokens, logger, authOpts...)
	familyService := service.NewFamilyService(stores.families, stores.users, emailService, cfg.InvitationTTL, logger)
	taskService := service.NewTaskService(stores.tasks, logger)

	limiter := security.NewRateLimiter(cfg.RateLimit, cfg.RateLimitWindow)
	defer limiter.Stop()

	router := handlers.NewRouter(handlers.RouterConfig{
		Auth:           authService,
		Families:       familyService,
		Tasks:          taskService,
		RateLimiter:    limiter,
		AllowedOrigins: cfg.AllowedOrigins,
		Log:            logger,
	})

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", zap.String("addr", addr), zap.String("environment", cfg.Environment))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		logger.Info("Server shutting down...", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

type storeSet struct {
	users    service.UserStore
	families service.FamilyStore
	tasks    service.TaskStore
	close    func()
}

// openStores connects the backend selected by DATABASE_TYPE
func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storeSet, error) {
	if cfg.UsesMongo() {
		client, db, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		logger.Info("Database connection established", zap.String("type", "mongo"), zap.String("database", cfg.MongoDatabase))
		return &storeSet{
			users:    mongostore.NewUserStore(db),
			families: mongostore.NewFamilyStore(db),
			tasks:    mongostore.NewTaskStore(db),
			close: func() {
				disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := client.Disconnect(disconnectCtx); err != nil {
					logger.Warn("mongo disconnect failed", zap.Error(err))
				}
			},
		}, nil
	}

	db, err := database.InitializeWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Info("Database connection established", zap.String("type", cfg.DatabaseType))
	return &storeSet{
		users:    repository.NewUserRepository(db),
		families: repository.NewFamilyRepository(db),
		tasks:    repository.NewTaskRepository(db),
		close: func() {
			if err := db.Close(); err != nil {
				logger.Warn("database close failed", zap.Error(err))
			}
		},
	}, nil
}
