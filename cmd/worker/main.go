package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/ntcogk/auth-server/internal/config"
	"github.com/ntcogk/auth-server/internal/logger"
	"github.com/ntcogk/auth-server/internal/mail"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel, cfg.LogFormat).With("component", "mail-worker")

	worker := mail.NewWorker(mail.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		Concurrency: cfg.Mail.WorkerConcurrency,
		Mailer: mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			User:     cfg.Mail.User,
			Password: cfg.Mail.Password,
			FromName: cfg.Mail.FromName,
		}),
		Logger: logger,
	})

	logger.Info("mail worker started", "redis", cfg.Redis.Addr, "concurrency", cfg.Mail.WorkerConcurrency)

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("mail worker stopped", "error", err)
	}

	logger.Info("shutdown complete")
}
