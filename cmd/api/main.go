package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/quoteflow/quoteflow-backend/api/routes"
	"github.com/quoteflow/quoteflow-backend/internal/checkout"
	"github.com/quoteflow/quoteflow-backend/internal/customers"
	"github.com/quoteflow/quoteflow-backend/internal/email"
	"github.com/quoteflow/quoteflow-backend/internal/followup"
	"github.com/quoteflow/quoteflow-backend/internal/payments"
	"github.com/quoteflow/quoteflow-backend/internal/profiles"
	"github.com/quoteflow/quoteflow-backend/internal/quotes"
	stripewebhook "github.com/quoteflow/quoteflow-backend/internal/webhooks/stripe"
	"github.com/quoteflow/quoteflow-backend/pkg/config"
	"github.com/quoteflow/quoteflow-backend/pkg/db"
	"github.com/quoteflow/quoteflow-backend/pkg/logger"
	"github.com/quoteflow/quoteflow-backend/pkg/migrate"
	"github.com/quoteflow/quoteflow-backend/pkg/redis"
	"github.com/quoteflow/quoteflow-backend/pkg/storage/gcs"
	pkgstripe "github.com/quoteflow/quoteflow-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to initialize stripe", err)
		os.Exit(1)
	}

	mailer, err := email.New(logg, cfg.Resend.APIKey, cfg.Resend.FromAddress)
	if err != nil {
		logg.Error(context.Background(), "failed to initialize mailer", err)
		os.Exit(1)
	}

	quoteRepo := quotes.NewRepository(dbClient.DB())
	paymentRepo := payments.NewRepository(dbClient.DB())
	customerRepo := customers.NewRepository(dbClient.DB())
	profileRepo := profiles.NewRepository(dbClient.DB())

	quoteParams := quotes.ServiceParams{
		Logger:            logg,
		Repo:              quoteRepo,
		Payments:          paymentRepo,
		Customers:         customerRepo,
		Profiles:          profileRepo,
		Mailer:            mailer,
		TransactionRunner: dbClient,
		Bucket:            cfg.GCS.BucketName,
		UploadURLExpiry:   cfg.GCS.UploadURLExpiry,
		BaseURL:           cfg.App.BaseURL,
	}

	// Storage is optional: without it receipt uploads and cleanup are skipped.
	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Warn(context.Background(), "gcs unavailable, receipt uploads and cleanup disabled")
	} else {
		defer func() {
			if err := gcsClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing gcs", err)
			}
		}()
		quoteParams.ObjectStore = gcsClient
	}

	quoteService, err := quotes.NewService(quoteParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create quote service", err)
		os.Exit(1)
	}

	paymentService, err := payments.NewService(payments.ServiceParams{
		Logger:            logg,
		PaymentRepo:       paymentRepo,
		QuoteRepo:         quoteRepo,
		TransactionRunner: dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	profileService, err := profiles.NewService(profileRepo, cfg.FollowUp.DefaultIntervalDays)
	if err != nil {
		logg.Error(context.Background(), "failed to create profile service", err)
		os.Exit(1)
	}

	customerService, err := customers.NewService(customerRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create customer service", err)
		os.Exit(1)
	}

	stripeOps := checkout.NewStripeClient(stripeClient)
	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Logger:             logg,
		Stripe:             stripeOps,
		Quotes:             quoteRepo,
		Customers:          customerRepo,
		Profiles:           profileRepo,
		BaseURL:            cfg.App.BaseURL,
		ProPriceID:         cfg.Stripe.ProPriceID,
		LifetimePriceID:    cfg.Stripe.LifetimePriceID,
		PlatformFeePercent: cfg.Stripe.PlatformFeePercent,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

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

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Logger:            logg,
		EventRepo:         stripewebhook.NewEventRepository(dbClient.DB()),
		QuoteRepo:         quoteRepo,
		PaymentRepo:       paymentRepo,
		Profiles:          profileRepo,
		Stripe:            stripeOps,
		TransactionRunner: dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Stripe.WebhookEventTTL, "stripe-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			quoteService,
			paymentService,
			profileService,
			customerService,
			checkoutService,
			followUpService,
			stripeClient,
			webhookService,
			webhookGuard,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
