package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/hongminglow/cabinet-be/internal/config"
	"github.com/hongminglow/cabinet-be/internal/mail"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Default().Info("no .env file found; relying on existing environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWorker()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := config.NewLogger(cfg, os.Stdout)

	var sender mail.Sender = mail.LogSender{Logger: logger}
	if cfg.SMTPEnabled() {
		sender = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			From:     cfg.SMTPFrom,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		})
	} else {
		logger.Warn("SMTP_HOST not set; queued mail will only be logged")
	}

	worker := mail.NewWorker(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		mail.NewTaskHandler(sender, logger),
		cfg.WorkerConcurrency,
	)
	logger.Info("mail worker started", slog.String("redis", cfg.RedisAddr))
	if err := worker.Run(ctx); err != nil {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("mail worker stopped")
}
