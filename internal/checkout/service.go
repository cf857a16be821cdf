package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/quoteflow/quoteflow-backend/internal/quotes"
	"github.com/quoteflow/quoteflow-backend/pkg/db/models"
	"github.com/quoteflow/quoteflow-backend/pkg/enums"
	pkgerrors "github.com/quoteflow/quoteflow-backend/pkg/errors"
	"github.com/quoteflow/quoteflow-backend/pkg/logger"
)

// Metadata keys stamped on checkout sessions. The webhook handler routes
// events by which set it finds.
const (
	MetadataQuoteID = "quote_id"
	MetadataAmount  = "amount"
	MetadataUserID  = "user_id"
	MetadataTier    = "tier"
)

type quoteDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Quote, error)
}

type customerDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

type profileStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	SetStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error
}

// ServiceParams configures the checkout service.
type ServiceParams struct {
	Logger             *logger.Logger
	Stripe             StripeCheckoutClient
	Quotes             quoteDirectory
	Customers          customerDirectory
	Profiles           profileStore
	BaseURL            string
	ProPriceID         string
	LifetimePriceID    string
	PlatformFeePercent int
}

// Service builds Stripe Checkout sessions for quote payments and plan
// upgrades.
type Service struct {
	logg       *logger.Logger
	stripe     StripeCheckoutClient
	quotes     quoteDirectory
	customers  customerDirectory
	profiles   profileStore
	baseURL    string
	proPrice   string
	lifePrice  string
	feePercent int
}

// NewService builds a checkout service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	if params.Stripe == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	if params.Quotes == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "quote directory required")
	}
	if params.Customers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "customer directory required")
	}
	if params.Profiles == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "profile store required")
	}
	if params.PlatformFeePercent < 0 || params.PlatformFeePercent > 100 {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "platform fee percent out of range")
	}
	return &Service{
		logg:       params.Logger,
		stripe:     params.Stripe,
		quotes:     params.Quotes,
		customers:  params.Customers,
		profiles:   params.Profiles,
		baseURL:    params.BaseURL,
		proPrice:   params.ProPriceID,
		lifePrice:  params.LifetimePriceID,
		feePercent: params.PlatformFeePercent,
	}, nil
}

// ApplicationFeeCents computes the platform cut of a charge, rounded to the
// nearest cent.
func ApplicationFeeCents(amount decimal.Decimal, feePercent int) int64 {
	fee := amount.
		Mul(decimal.NewFromInt(int64(feePercent))).
		Div(decimal.NewFromInt(100))
	return fee.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func amountCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// CreateQuoteSession builds a destination-charge checkout session for a card
// payment against a quote and returns the redirect URL. No ledger entry is
// written here; that happens when the webhook confirms the session.
func (s *Service) CreateQuoteSession(ctx context.Context, quoteID uuid.UUID, amount decimal.Decimal) (string, error) {
	if quoteID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "quote id is required")
	}
	if !amount.GreaterThan(decimal.Zero) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	quote, err := s.quotes.FindByID(ctx, quoteID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quote")
	}
	if quote == nil {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "quote not found")
	}

	profile, err := s.profiles.FindByID(ctx, quote.ContractorID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load contractor profile")
	}
	if profile == nil || !profile.HasConnectedAccount() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "contractor has no connected payment account")
	}

	quoteURL := quotes.PublicQuoteURL(s.baseURL, quote.ID)
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount: stripe.Int64(amountCents(amount)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(fmt.Sprintf("Payment for %s", quote.Name)),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			ApplicationFeeAmount: stripe.Int64(ApplicationFeeCents(amount, s.feePercent)),
			TransferData: &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
				Destination: profile.StripeAccountID,
			},
		},
		SuccessURL: stripe.String(quoteURL + "?payment=success"),
		CancelURL:  stripe.String(quoteURL + "?payment=cancelled"),
	}
	params.AddMetadata(MetadataQuoteID, quote.ID.String())
	params.AddMetadata(MetadataAmount, amount.StringFixed(2))

	if quote.CustomerID != nil {
		if customer, err := s.customers.FindByID(ctx, *quote.CustomerID); err == nil && customer != nil && customer.Email != nil {
			params.CustomerEmail = customer.Email
		}
	}

	session, err := s.stripe.CreateSession(ctx, params)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}
	return session.URL, nil
}

// CreateSubscriptionSession builds a checkout session for a plan upgrade and
// returns the redirect URL. Buying lifetime cancels any active subscriptions
// first so the contractor is not double-billed.
func (s *Service) CreateSubscriptionSession(ctx context.Context, contractorID uuid.UUID, tier enums.SubscriptionTier) (string, error) {
	if contractorID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "contractor id is required")
	}
	if tier != enums.SubscriptionTierPro && tier != enums.SubscriptionTierLifetime {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "tier must be pro or lifetime")
	}

	profile, err := s.profiles.FindByID(ctx, contractorID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	if profile == nil {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}
	if profile.SubscriptionTier.AtLeast(tier) {
		return "", pkgerrors.New(pkgerrors.CodeStateConflict, "already on this tier or higher")
	}

	customerID, err := s.ensureStripeCustomer(ctx, profile)
	if err != nil {
		return "", err
	}

	if tier == enums.SubscriptionTierLifetime {
		if err := s.cancelActiveSubscriptions(ctx, customerID); err != nil {
			return "", err
		}
	}

	params := &stripe.CheckoutSessionParams{
		Customer:   stripe.String(customerID),
		SuccessURL: stripe.String(s.baseURL + "/settings/billing?upgrade=success"),
		CancelURL:  stripe.String(s.baseURL + "/settings/billing?upgrade=cancelled"),
	}
	switch tier {
	case enums.SubscriptionTierPro:
		params.Mode = stripe.String(string(stripe.CheckoutSessionModeSubscription))
		params.LineItems = []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(s.proPrice),
			Quantity: stripe.Int64(1),
		}}
	case enums.SubscriptionTierLifetime:
		params.Mode = stripe.String(string(stripe.CheckoutSessionModePayment))
		params.LineItems = []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(s.lifePrice),
			Quantity: stripe.Int64(1),
		}}
	}
	params.AddMetadata(MetadataUserID, contractorID.String())
	params.AddMetadata(MetadataTier, tier.String())

	session, err := s.stripe.CreateSession(ctx, params)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}
	return session.URL, nil
}

func (s *Service) ensureStripeCustomer(ctx context.Context, profile *models.Profile) (string, error) {
	if profile.StripeCustomerID != nil && *profile.StripeCustomerID != "" {
		return *profile.StripeCustomerID, nil
	}

	customer, err := s.stripe.CreateCustomer(ctx, &stripe.CustomerParams{
		Email: stripe.String(profile.Email),
		Name:  stripe.String(profile.BusinessName),
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stripe customer")
	}
	if err := s.profiles.SetStripeCustomerID(ctx, profile.ID, customer.ID); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist stripe customer id")
	}
	return customer.ID, nil
}

func (s *Service) cancelActiveSubscriptions(ctx context.Context, customerID string) error {
	subs, err := s.stripe.ListActiveSubscriptions(ctx, customerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscriptions")
	}
	for _, sub := range subs {
		if _, err := s.stripe.CancelSubscription(ctx, sub.ID, nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel subscription")
		}
	}
	return nil
}
