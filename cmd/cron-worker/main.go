package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/quoteflow/quoteflow-backend/internal/cron"
	"github.com/quoteflow/quoteflow-backend/internal/customers"
	"github.com/quoteflow/quoteflow-backend/internal/email"
	"github.com/quoteflow/quoteflow-backend/internal/followup"
	"github.com/quoteflow/quoteflow-backend/internal/payments"
	"github.com/quoteflow/quoteflow-backend/internal/profiles"
	"github.com/quoteflow/quoteflow-backend/internal/quotes"
	"github.com/quoteflow/quoteflow-backend/pkg/config"
	"github.com/quoteflow/quoteflow-backend/pkg/db"
	"github.com/quoteflow/quoteflow-backend/pkg/logger"
	"github.com/quoteflow/quoteflow-backend/pkg/metrics"
	"github.com/quoteflow/quoteflow-backend/pkg/migrate"
	"github.com/quoteflow/quoteflow-backend/pkg/redis"
	"github.com/quoteflow/quoteflow-backend/pkg/storage/gcs"
)

const lockKeyFormat = "qf:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	mailer, err := email.New(logg, cfg.Resend.APIKey, cfg.Resend.FromAddress)
	if err != nil {
		logg.Error(context.Background(), "failed to initialize mailer", err)
		os.Exit(1)
	}

	quoteRepo := quotes.NewRepository(dbClient.DB())
	paymentRepo := payments.NewRepository(dbClient.DB())
	customerRepo := customers.NewRepository(dbClient.DB())
	profileRepo := profiles.NewRepository(dbClient.DB())

	followUpService, err := followup.NewService(followup.ServiceParams{
		Logger:      logg,
		Quotes:      quoteRepo,
		Profiles:    profileRepo,
		Customers:   customerRepo,
		Sender:      mailer,
		BaseURL:     cfg.App.BaseURL,
		DefaultDays: cfg.FollowUp.DefaultIntervalDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create follow-up service", err)
		os.Exit(1)
	}

	followUpJob, err := cron.NewFollowUpJob(cron.FollowUpJobParams{
		Logger:    logg,
		Reminders: followUpService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create follow-up job", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(followUpJob)

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Warn(context.Background(), "gcs unavailable, skipping receipt cleanup job")
	} else {
		defer func() {
			if err := gcsClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing gcs", err)
			}
		}()
		receiptJob, err := cron.NewReceiptCleanupJob(cron.ReceiptCleanupJobParams{
			Logger:   logg,
			Payments: paymentRepo,
			GCS:      gcsClient,
			Bucket:   cfg.GCS.BucketName,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to create receipt cleanup job", err)
			os.Exit(1)
		}
		registry.Register(receiptJob)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
