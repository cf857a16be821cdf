package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quoteflow/quoteflow-backend/api/controllers"
	webhookcontrollers "github.com/quoteflow/quoteflow-backend/api/controllers/webhooks"
	"github.com/quoteflow/quoteflow-backend/api/middleware"
	checkoutsvc "github.com/quoteflow/quoteflow-backend/internal/checkout"
	"github.com/quoteflow/quoteflow-backend/internal/customers"
	"github.com/quoteflow/quoteflow-backend/internal/followup"
	"github.com/quoteflow/quoteflow-backend/internal/payments"
	"github.com/quoteflow/quoteflow-backend/internal/profiles"
	"github.com/quoteflow/quoteflow-backend/internal/quotes"
	stripewebhook "github.com/quoteflow/quoteflow-backend/internal/webhooks/stripe"
	"github.com/quoteflow/quoteflow-backend/pkg/config"
	"github.com/quoteflow/quoteflow-backend/pkg/db"
	"github.com/quoteflow/quoteflow-backend/pkg/logger"
	"github.com/quoteflow/quoteflow-backend/pkg/redis"
	"github.com/quoteflow/quoteflow-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	quoteService *quotes.Service,
	paymentService *payments.Service,
	profileService *profiles.Service,
	customerService *customers.Service,
	checkoutService *checkoutsvc.Service,
	followUpService *followup.Service,
	stripeClient *stripe.Client,
	stripeWebhookService *stripewebhook.Service,
	stripeWebhookGuard *stripewebhook.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, stripeWebhookGuard, logg))
	})

	// Invoked by an external scheduler; deployments without the in-process
	// cron worker hit this instead.
	r.Route("/api/cron", func(r chi.Router) {
		r.Use(middleware.CronAuth(cfg.Cron.Secret, logg))
		r.Get("/follow-up", controllers.CronFollowUp(followUpService, logg))
	})

	// Customer-facing surface. No auth: a quote id is an unguessable
	// capability handed out by the contractor.
	publicLimit := func(next http.Handler) http.Handler { return next }
	if redisClient != nil {
		publicLimit = middleware.PublicRateLimit("public", redisClient, cfg.RateLimit.PublicLimit, cfg.RateLimit.PublicWindow, logg)
	}
	r.Route("/api/v1/public/quotes/{quoteId}", func(r chi.Router) {
		r.Use(publicLimit)
		r.Get("/", controllers.PublicQuoteGet(quoteService, logg))
		r.Post("/viewed", controllers.PublicQuoteViewed(quoteService, logg))
		r.Post("/sign", controllers.PublicQuoteSign(quoteService, logg))
		r.Post("/receipt-upload", controllers.PublicReceiptUpload(quoteService, logg))
		r.Post("/payments", controllers.PublicPaymentClaim(paymentService, logg))
	})
	r.With(publicLimit).Post("/api/v1/checkout-session", controllers.CheckoutSession(checkoutService, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/quotes", func(r chi.Router) {
			r.Post("/", controllers.QuoteCreate(quoteService, logg))
			r.Get("/", controllers.QuoteList(quoteService, logg))
			r.Get("/{quoteId}", controllers.QuoteGet(quoteService, logg))
			r.Put("/{quoteId}", controllers.QuoteUpdate(quoteService, logg))
			r.Delete("/{quoteId}", controllers.QuoteDelete(quoteService, logg))
			r.Post("/{quoteId}/send", controllers.QuoteSend(quoteService, logg))
			r.Get("/{quoteId}/snapshots", controllers.QuoteSnapshots(quoteService, logg))
			r.Get("/{quoteId}/payments", controllers.QuoteLedger(paymentService, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/pending", controllers.PaymentsPending(paymentService, logg))
			r.Post("/{paymentId}/confirm", controllers.PaymentConfirm(paymentService, logg))
			r.Post("/{paymentId}/reject", controllers.PaymentReject(paymentService, logg))
		})

		r.Route("/customers", func(r chi.Router) {
			r.Post("/", controllers.CustomerCreate(customerService, logg))
			r.Get("/", controllers.CustomerList(customerService, logg))
			r.Get("/{customerId}", controllers.CustomerGet(customerService, logg))
			r.Put("/{customerId}", controllers.CustomerUpdate(customerService, logg))
			r.Delete("/{customerId}", controllers.CustomerDelete(customerService, logg))
		})

		r.Get("/profile", controllers.ProfileGet(profileService, logg))
		r.Put("/profile", controllers.ProfileUpdate(profileService, logg))
		r.Post("/subscribe", controllers.Subscribe(checkoutService, logg))
	})

	return r
}
