package main

import (
	"os"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/atpstore/backend-atp/internal/config"
	"github.com/atpstore/backend-atp/internal/mail"
	"github.com/atpstore/backend-atp/internal/obs"
	"github.com/atpstore/backend-atp/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Str("component", "worker").Logger()

	obs.MustRegisterDomainMetrics(envOrDefault("OBS_METRICS_NAMESPACE", "atpstore"), nil)

	taskRedis, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url for task queue")
	}

	var sender mail.Sender
	if cfg.SMTPAddr != "" {
		sender = mail.SMTPSender{
			Addr:     cfg.SMTPAddr,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}
	} else {
		logger.Warn().Msg("SMTP_ADDR not set; outbound email disabled")
		sender = mail.Nop{}
	}

	server := asynq.NewServer(taskRedis, asynq.Config{
		Concurrency: envInt("WORKER_CONCURRENCY", 10),
		Queues: map[string]int{
			tasks.QueueEmails: 10,
			"default":         1,
		},
	})

	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeEmailDeliver, &tasks.EmailHandler{Sender: sender, Logger: logger})

	logger.Info().Msg("worker starting")
	if err := server.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker exited unexpectedly")
	}
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return fallback
		}
		var parsed int
		for _, c := range trimmed {
			if c < '0' || c > '9' {
				return fallback
			}
			parsed = parsed*10 + int(c-'0')
		}
		return parsed
	}
	return fallback
}
