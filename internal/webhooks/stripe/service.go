package stripewebhook

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/quoteflow/quoteflow-backend/internal/checkout"
	"github.com/quoteflow/quoteflow-backend/internal/payments"
	"github.com/quoteflow/quoteflow-backend/internal/quotes"
	"github.com/quoteflow/quoteflow-backend/pkg/db/models"
	"github.com/quoteflow/quoteflow-backend/pkg/enums"
	pkgerrors "github.com/quoteflow/quoteflow-backend/pkg/errors"
	"github.com/quoteflow/quoteflow-backend/pkg/logger"
)

// statusWriteRetries bounds re-runs of the quote payment transaction when
// the quote version moved under us.
const statusWriteRetries = 3

type profileStore interface {
	FindByStripeCustomerID(ctx context.Context, customerID string) (*models.Profile, error)
	UpdateSubscription(ctx context.Context, id uuid.UUID, tier enums.SubscriptionTier, subscriptionID *string, expiresAt *time.Time) error
	SetStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error
}

type subscriptionCanceller interface {
	ListActiveSubscriptions(ctx context.Context, customerID string) ([]*stripe.Subscription, error)
	CancelSubscription(ctx context.Context, id string, params *stripe.SubscriptionCancelParams) (*stripe.Subscription, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Logger            *logger.Logger
	EventRepo         EventRepository
	QuoteRepo         quotes.Repository
	PaymentRepo       payments.Repository
	Profiles          profileStore
	Stripe            subscriptionCanceller
	TransactionRunner txRunner
	Now               func() time.Time
}

// Service applies Stripe events to the ledger and contractor profiles.
type Service struct {
	logg        *logger.Logger
	events      EventRepository
	quoteRepo   quotes.Repository
	paymentRepo payments.Repository
	profiles    profileStore
	stripe      subscriptionCanceller
	txRunner    txRunner
	now         func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	if params.EventRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "event repo required")
	}
	if params.QuoteRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "quote repo required")
	}
	if params.PaymentRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment repo required")
	}
	if params.Profiles == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "profile store required")
	}
	if params.Stripe == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		logg:        params.Logger,
		events:      params.EventRepo,
		quoteRepo:   params.QuoteRepo,
		paymentRepo: params.PaymentRepo,
		profiles:    params.Profiles,
		stripe:      params.Stripe,
		txRunner:    params.TransactionRunner,
		now:         now,
	}, nil
}

// HandleEvent routes one verified Stripe event. Unknown event types are
// ignored.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout session")
		}
		if session.Metadata[checkout.MetadataTier] != "" {
			return s.handleTierActivation(ctx, &session)
		}
		if session.Metadata[checkout.MetadataQuoteID] != "" {
			return s.handleQuotePayment(ctx, event.ID, string(event.Type), &session)
		}
		return nil
	case stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode subscription")
		}
		return s.handleSubscriptionDeleted(ctx, &sub)
	case stripe.EventTypeCustomerSubscriptionUpdated:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode subscription")
		}
		return s.handleSubscriptionUpdated(ctx, &sub)
	default:
		return nil
	}
}

// handleQuotePayment books a confirmed ledger entry for a completed card
// session and re-derives the quote status, all in one transaction with the
// quote row locked. The event row insert in the same transaction makes
// redelivery a no-op.
func (s *Service) handleQuotePayment(ctx context.Context, eventID, eventType string, session *stripe.CheckoutSession) error {
	quoteID, err := uuid.Parse(session.Metadata[checkout.MetadataQuoteID])
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid quote id in session metadata")
	}
	amount, err := sessionAmount(session)
	if err != nil {
		return err
	}
	intentID := paymentIntentID(session)

	var lastErr error
	for attempt := 0; attempt < statusWriteRetries; attempt++ {
		conflicted := false
		lastErr = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
			events := s.events.WithTx(tx)
			quoteRepo := s.quoteRepo.WithTx(tx)
			paymentRepo := s.paymentRepo.WithTx(tx)

			inserted, err := events.Insert(ctx, &models.WebhookEvent{
				ID:          eventID,
				Type:        eventType,
				ProcessedAt: s.now().UTC(),
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record webhook event")
			}
			if !inserted {
				return nil
			}

			if intentID != "" {
				existing, err := paymentRepo.FindByPaymentIntent(ctx, intentID)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check payment intent")
				}
				if existing != nil {
					return nil
				}
			}

			quote, err := quoteRepo.FindByIDForUpdate(ctx, quoteID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quote")
			}
			if quote == nil {
				return pkgerrors.New(pkgerrors.CodeNotFound, "quote not found")
			}

			payment := &models.Payment{
				QuoteID: quote.ID,
				Amount:  amount,
				Method:  enums.PaymentMethodCreditCard,
				Status:  enums.PaymentStatusConfirmed,
			}
			if intentID != "" {
				payment.StripePaymentIntentID = &intentID
			}
			if err := paymentRepo.Create(ctx, payment); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist card payment")
			}

			entries, err := paymentRepo.ListByQuote(ctx, quote.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rescan ledger")
			}
			derived := quotes.DeriveStatus(quote.Status, payments.ConfirmedTotal(entries), quote.TotalPrice, quote.DepositPercentage, quote.HasSignature())
			if derived != quote.Status {
				ok, err := quoteRepo.UpdateStatusVersioned(ctx, quote.ID, derived, quote.Version)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write quote status")
				}
				if !ok {
					conflicted = true
					return pkgerrors.New(pkgerrors.CodeConflict, "quote version moved")
				}
			}
			return nil
		})
		if lastErr == nil {
			return nil
		}
		if !conflicted {
			return lastErr
		}
	}
	return lastErr
}

func (s *Service) handleTierActivation(ctx context.Context, session *stripe.CheckoutSession) error {
	userID, err := uuid.Parse(session.Metadata[checkout.MetadataUserID])
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid user id in session metadata")
	}
	tier, err := enums.ParseSubscriptionTier(session.Metadata[checkout.MetadataTier])
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid tier in session metadata")
	}

	var customerID string
	if session.Customer != nil {
		customerID = session.Customer.ID
	}
	if customerID != "" {
		if err := s.profiles.SetStripeCustomerID(ctx, userID, customerID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist stripe customer id")
		}
	}

	switch tier {
	case enums.SubscriptionTierPro:
		var subID *string
		if session.Subscription != nil && session.Subscription.ID != "" {
			subID = &session.Subscription.ID
		}
		if err := s.profiles.UpdateSubscription(ctx, userID, enums.SubscriptionTierPro, subID, nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "activate pro tier")
		}
	case enums.SubscriptionTierLifetime:
		if err := s.profiles.UpdateSubscription(ctx, userID, enums.SubscriptionTierLifetime, nil, nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "activate lifetime tier")
		}
		// A subscription may still be running if the upgrade skipped the
		// checkout-side cancel. Cleanup failure must not fail the event.
		if customerID != "" {
			if err := s.cancelLingeringSubscriptions(ctx, customerID); err != nil {
				s.logg.Error(ctx, "lifetime subscription cleanup failed", err)
			}
		}
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "tier must be pro or lifetime")
	}
	return nil
}

func (s *Service) cancelLingeringSubscriptions(ctx context.Context, customerID string) error {
	subs, err := s.stripe.ListActiveSubscriptions(ctx, customerID)
	if err != nil {
		return err
	}
	for _, sub := range subs {
		if _, err := s.stripe.CancelSubscription(ctx, sub.ID, nil); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, sub *stripe.Subscription) error {
	profile, err := s.profileForSubscription(ctx, sub)
	if err != nil || profile == nil {
		return err
	}
	// Lifetime is not subscription-backed; a stray cancel must not demote it.
	if profile.SubscriptionTier == enums.SubscriptionTierLifetime {
		return nil
	}
	if err := s.profiles.UpdateSubscription(ctx, profile.ID, enums.SubscriptionTierFree, nil, nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "downgrade profile")
	}
	return nil
}

func (s *Service) handleSubscriptionUpdated(ctx context.Context, sub *stripe.Subscription) error {
	profile, err := s.profileForSubscription(ctx, sub)
	if err != nil || profile == nil {
		return err
	}
	if profile.SubscriptionTier == enums.SubscriptionTierLifetime {
		return nil
	}

	switch sub.Status {
	case stripe.SubscriptionStatusActive:
		subID := sub.ID
		if err := s.profiles.UpdateSubscription(ctx, profile.ID, enums.SubscriptionTierPro, &subID, nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "activate pro tier")
		}
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		// Keep access through the already-paid period; the next deleted
		// event drops the tier for real.
		var graceUntil *time.Time
		if end := subscriptionPeriodEnd(sub); end > 0 {
			t := time.Unix(end, 0).UTC()
			graceUntil = &t
		}
		subID := sub.ID
		if err := s.profiles.UpdateSubscription(ctx, profile.ID, profile.SubscriptionTier, &subID, graceUntil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record grace period")
		}
	}
	return nil
}

func (s *Service) profileForSubscription(ctx context.Context, sub *stripe.Subscription) (*models.Profile, error) {
	if sub == nil || sub.Customer == nil || sub.Customer.ID == "" {
		return nil, nil
	}
	profile, err := s.profiles.FindByStripeCustomerID(ctx, sub.Customer.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup profile by customer")
	}
	return profile, nil
}

func sessionAmount(session *stripe.CheckoutSession) (decimal.Decimal, error) {
	if raw := session.Metadata[checkout.MetadataAmount]; raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err == nil && amount.GreaterThan(decimal.Zero) {
			return amount, nil
		}
	}
	if session.AmountTotal > 0 {
		return decimal.NewFromInt(session.AmountTotal).Div(decimal.NewFromInt(100)), nil
	}
	return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "session carries no usable amount")
}

func paymentIntentID(session *stripe.CheckoutSession) string {
	if session.PaymentIntent != nil {
		return session.PaymentIntent.ID
	}
	return ""
}

func subscriptionPeriodEnd(sub *stripe.Subscription) int64 {
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return 0
	}
	return sub.Items.Data[0].CurrentPeriodEnd
}
