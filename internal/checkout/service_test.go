package checkout

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/quoteflow/quoteflow-backend/pkg/db/models"
	"github.com/quoteflow/quoteflow-backend/pkg/enums"
	pkgerrors "github.com/quoteflow/quoteflow-backend/pkg/errors"
	"github.com/quoteflow/quoteflow-backend/pkg/logger"
)

type fakeStripe struct {
	sessions   []*stripe.CheckoutSessionParams
	customers  []*stripe.CustomerParams
	activeSubs []*stripe.Subscription
	cancelled  []string
}

func (f *fakeStripe) CreateSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.sessions = append(f.sessions, params)
	return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/pay/cs_test_1"}, nil
}

func (f *fakeStripe) CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error) {
	f.customers = append(f.customers, params)
	return &stripe.Customer{ID: "cus_new"}, nil
}

func (f *fakeStripe) ListActiveSubscriptions(ctx context.Context, customerID string) ([]*stripe.Subscription, error) {
	return f.activeSubs, nil
}

func (f *fakeStripe) CancelSubscription(ctx context.Context, id string, params *stripe.SubscriptionCancelParams) (*stripe.Subscription, error) {
	f.cancelled = append(f.cancelled, id)
	return &stripe.Subscription{ID: id}, nil
}

type fakeQuotes struct {
	byID map[uuid.UUID]*models.Quote
}

func (f *fakeQuotes) FindByID(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	return f.byID[id], nil
}

type fakeCustomers struct {
	byID map[uuid.UUID]*models.Customer
}

func (f *fakeCustomers) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	return f.byID[id], nil
}

type fakeProfiles struct {
	byID        map[uuid.UUID]*models.Profile
	customerIDs map[uuid.UUID]string
}

func (f *fakeProfiles) FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	return f.byID[id], nil
}

func (f *fakeProfiles) SetStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error {
	if f.customerIDs == nil {
		f.customerIDs = make(map[uuid.UUID]string)
	}
	f.customerIDs[id] = customerID
	return nil
}

type checkoutFixture struct {
	svc       *Service
	stripeAPI *fakeStripe
	quotes    *fakeQuotes
	customers *fakeCustomers
	profiles  *fakeProfiles
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	f := &checkoutFixture{
		stripeAPI: &fakeStripe{},
		quotes:    &fakeQuotes{byID: make(map[uuid.UUID]*models.Quote)},
		customers: &fakeCustomers{byID: make(map[uuid.UUID]*models.Customer)},
		profiles:  &fakeProfiles{byID: make(map[uuid.UUID]*models.Profile)},
	}
	svc, err := NewService(ServiceParams{
		Logger:             logger.New(logger.Options{ServiceName: "test"}),
		Stripe:             f.stripeAPI,
		Quotes:             f.quotes,
		Customers:          f.customers,
		Profiles:           f.profiles,
		BaseURL:            "https://quoteflow.app",
		ProPriceID:         "price_pro",
		LifetimePriceID:    "price_lifetime",
		PlatformFeePercent: 2,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc
	return f
}

func (f *checkoutFixture) seedConnectedContractor() (uuid.UUID, *models.Quote) {
	contractorID := uuid.New()
	account := "acct_123"
	f.profiles.byID[contractorID] = &models.Profile{
		ID:              contractorID,
		BusinessName:    "Acme Decks",
		Email:           "owner@acmedecks.com",
		StripeAccountID: &account,
	}
	quote := &models.Quote{
		ID:           uuid.New(),
		ContractorID: contractorID,
		Name:         "Deck build",
		TotalPrice:   decimal.RequireFromString("500.00"),
		Status:       enums.QuoteStatusSigned,
	}
	f.quotes.byID[quote.ID] = quote
	return contractorID, quote
}

func TestApplicationFeeCents(t *testing.T) {
	cases := []struct {
		amount string
		pct    int
		want   int64
	}{
		{"100.00", 2, 200},
		{"0.50", 2, 1},
		{"0.25", 2, 1},  // 0.5 cents rounds up
		{"0.10", 2, 0},  // 0.2 cents rounds down
		{"123.45", 2, 247},
	}
	for _, tc := range cases {
		got := ApplicationFeeCents(decimal.RequireFromString(tc.amount), tc.pct)
		if got != tc.want {
			t.Fatalf("fee(%s, %d%%) = %d, want %d", tc.amount, tc.pct, got, tc.want)
		}
	}
}

func TestCreateQuoteSession(t *testing.T) {
	f := newCheckoutFixture(t)
	_, quote := f.seedConnectedContractor()

	url, err := f.svc.CreateQuoteSession(context.Background(), quote.ID, decimal.RequireFromString("100.00"))
	if err != nil {
		t.Fatalf("CreateQuoteSession: %v", err)
	}
	if url == "" {
		t.Fatal("expected a redirect url")
	}
	if len(f.stripeAPI.sessions) != 1 {
		t.Fatalf("expected one session, got %d", len(f.stripeAPI.sessions))
	}

	params := f.stripeAPI.sessions[0]
	if *params.LineItems[0].PriceData.UnitAmount != 10000 {
		t.Fatalf("unexpected unit amount %d", *params.LineItems[0].PriceData.UnitAmount)
	}
	if *params.PaymentIntentData.ApplicationFeeAmount != 200 {
		t.Fatalf("unexpected application fee %d", *params.PaymentIntentData.ApplicationFeeAmount)
	}
	if *params.PaymentIntentData.TransferData.Destination != "acct_123" {
		t.Fatalf("unexpected destination %s", *params.PaymentIntentData.TransferData.Destination)
	}
	if params.Metadata[MetadataQuoteID] != quote.ID.String() || params.Metadata[MetadataAmount] != "100.00" {
		t.Fatalf("unexpected metadata %v", params.Metadata)
	}
}

func TestCreateQuoteSessionValidation(t *testing.T) {
	f := newCheckoutFixture(t)
	_, quote := f.seedConnectedContractor()

	if _, err := f.svc.CreateQuoteSession(context.Background(), uuid.Nil, decimal.NewFromInt(10)); err == nil {
		t.Fatal("expected error for missing quote id")
	}
	if _, err := f.svc.CreateQuoteSession(context.Background(), quote.ID, decimal.Zero); err == nil {
		t.Fatal("expected error for non-positive amount")
	}
	_, err := f.svc.CreateQuoteSession(context.Background(), uuid.New(), decimal.NewFromInt(10))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unknown quote, got %v", err)
	}
}

func TestCreateQuoteSessionRequiresConnectedAccount(t *testing.T) {
	f := newCheckoutFixture(t)
	contractorID, quote := f.seedConnectedContractor()
	f.profiles.byID[contractorID].StripeAccountID = nil

	_, err := f.svc.CreateQuoteSession(context.Background(), quote.ID, decimal.NewFromInt(10))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateSubscriptionSessionPro(t *testing.T) {
	f := newCheckoutFixture(t)
	contractorID := uuid.New()
	f.profiles.byID[contractorID] = &models.Profile{
		ID:           contractorID,
		BusinessName: "Acme Decks",
		Email:        "owner@acmedecks.com",
	}

	url, err := f.svc.CreateSubscriptionSession(context.Background(), contractorID, enums.SubscriptionTierPro)
	if err != nil {
		t.Fatalf("CreateSubscriptionSession: %v", err)
	}
	if url == "" {
		t.Fatal("expected a redirect url")
	}
	if f.profiles.customerIDs[contractorID] != "cus_new" {
		t.Fatal("stripe customer id must be persisted")
	}

	params := f.stripeAPI.sessions[0]
	if *params.Mode != string(stripe.CheckoutSessionModeSubscription) {
		t.Fatalf("expected subscription mode, got %s", *params.Mode)
	}
	if *params.LineItems[0].Price != "price_pro" {
		t.Fatalf("unexpected price %s", *params.LineItems[0].Price)
	}
	if params.Metadata[MetadataTier] != "pro" {
		t.Fatalf("unexpected metadata %v", params.Metadata)
	}
}

func TestCreateSubscriptionSessionRejectsSameOrHigherTier(t *testing.T) {
	f := newCheckoutFixture(t)
	contractorID := uuid.New()
	f.profiles.byID[contractorID] = &models.Profile{
		ID:               contractorID,
		Email:            "owner@acmedecks.com",
		SubscriptionTier: enums.SubscriptionTierLifetime,
	}

	_, err := f.svc.CreateSubscriptionSession(context.Background(), contractorID, enums.SubscriptionTierPro)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestLifetimePurchaseCancelsActiveSubscriptions(t *testing.T) {
	f := newCheckoutFixture(t)
	contractorID := uuid.New()
	custID := "cus_existing"
	f.profiles.byID[contractorID] = &models.Profile{
		ID:               contractorID,
		Email:            "owner@acmedecks.com",
		SubscriptionTier: enums.SubscriptionTierPro,
		StripeCustomerID: &custID,
	}
	f.stripeAPI.activeSubs = []*stripe.Subscription{{ID: "sub_1"}, {ID: "sub_2"}}

	_, err := f.svc.CreateSubscriptionSession(context.Background(), contractorID, enums.SubscriptionTierLifetime)
	if err != nil {
		t.Fatalf("CreateSubscriptionSession: %v", err)
	}
	if len(f.stripeAPI.cancelled) != 2 {
		t.Fatalf("expected both subscriptions cancelled, got %v", f.stripeAPI.cancelled)
	}
	params := f.stripeAPI.sessions[0]
	if *params.Mode != string(stripe.CheckoutSessionModePayment) {
		t.Fatalf("lifetime must use payment mode, got %s", *params.Mode)
	}
	if len(f.stripeAPI.customers) != 0 {
		t.Fatal("existing stripe customer must be reused")
	}
}

func TestCreateSubscriptionSessionRejectsFreeTier(t *testing.T) {
	f := newCheckoutFixture(t)
	_, err := f.svc.CreateSubscriptionSession(context.Background(), uuid.New(), enums.SubscriptionTierFree)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
