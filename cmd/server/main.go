package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/hongminglow/cabinet-be/internal/auth"
	"github.com/hongminglow/cabinet-be/internal/config"
	"github.com/hongminglow/cabinet-be/internal/mail"
	"github.com/hongminglow/cabinet-be/internal/models"
	"github.com/hongminglow/cabinet-be/internal/observability"
	"github.com/hongminglow/cabinet-be/internal/rbac"
	"github.com/hongminglow/cabinet-be/internal/server"
	"github.com/hongminglow/cabinet-be/internal/storage"
	"github.com/hongminglow/cabinet-be/internal/storage/memory"
	"github.com/hongminglow/cabinet-be/internal/storage/postgres"
	"github.com/hongminglow/cabinet-be/internal/storage/redisstore"
)

func main() {
	loadLocalEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := config.NewLogger(cfg, os.Stdout)
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	metrics := observability.NewMetrics()
	err = rbac.NewReconciler(store, logger).Run(ctx)
	metrics.RecordReconcile(err)
	if err != nil {
		return fmt.Errorf("reconcile rbac: %w", err)
	}

	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		Secret:        cfg.SecretKey,
		Issuer:        cfg.JWTIssuer,
		StandardTTL:   cfg.TokenTTL,
		RememberMeTTL: cfg.RememberMeTTL,
		ResetTTL:      cfg.ResetPasswordTTL,
	}, store.Repositories().Roles, time.Now)
	if err != nil {
		return fmt.Errorf("init token manager: %w", err)
	}

	deps := auth.Deps{
		Store:    store,
		Tokens:   tokens,
		Hasher:   auth.NewBcryptHasher(),
		Recorder: metrics,
		ResetURL: cfg.ResetPasswordURL,
		Logger:   logger,
	}
	authz := rbac.NewAuthorizer(store)
	deps.Permissions = authz

	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		deps.Ledger = redisstore.NewResetLedger(redisClient)

		queue := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer queue.Close()
		deps.Mailer = mail.NewQueueSender(queue)
		logger.Info("reset mail queued through redis", slog.String("addr", cfg.RedisAddr))
	} else {
		deps.Mailer = directSender(cfg, logger)
	}

	svc := auth.NewService(deps)
	if cfg.SeedAdminEmail != "" {
		created, err := svc.EnsurePrincipal(ctx, models.KindUser, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		if created {
			logger.Info("seed admin created", slog.String("email", cfg.SeedAdminEmail))
		}
	}

	srv := server.New(cfg, server.Deps{
		Auth:       svc,
		Tokens:     tokens,
		Authorizer: authz,
		Roles:      rbac.NewManager(store),
		Metrics:    metrics,
		Logger:     logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("cabinet backend listening", slog.String("addr", cfg.HTTPAddress()), slog.String("storage", cfg.StorageDriver))
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		logger.Info("server stopped")
		return nil
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	if cfg.StorageDriver == config.DriverMemory {
		return memory.NewStore(), nil
	}
	store, err := postgres.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	return store, nil
}

// directSender picks SMTP when a relay is configured and logs otherwise.
func directSender(cfg config.Config, logger *slog.Logger) mail.Sender {
	if cfg.SMTPEnabled() {
		return mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			From:     cfg.SMTPFrom,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		})
	}
	return mail.LogSender{Logger: logger}
}

func loadLocalEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Default().Info("no .env file found; relying on existing environment")
	}
}
