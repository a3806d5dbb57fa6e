package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/BartekTra/portfolioCreator-sub000/internal/config"
	"github.com/BartekTra/portfolioCreator-sub000/internal/database"
	"github.com/BartekTra/portfolioCreator-sub000/internal/email"
	"github.com/BartekTra/portfolioCreator-sub000/internal/metrics"
	"github.com/BartekTra/portfolioCreator-sub000/internal/tasks"
	"github.com/BartekTra/portfolioCreator-sub000/internal/worker"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	logger.Info("database connection ready for worker")

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	sender := email.NewSender(cfg.SMTP)
	if !sender.IsConfigured() {
		logger.Warn("smtp not configured, confirmation emails will fail until it is")
	}

	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.Redis.Addr()},
		asynq.Config{Concurrency: 10},
	)

	emailHandler := worker.NewConfirmationEmailHandler(db, sender, cfg.API.PublicBaseURL, logger)

	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMetricsMiddleware())
	mux.Handle(tasks.TypeConfirmationEmail, emailHandler)

	logger.Info("worker service started", slog.String("redis_addr", cfg.Redis.Addr()))
	if err := server.Run(mux); err != nil {
		logger.Error("worker server stopped", slog.Any("error", err))
	}
}
