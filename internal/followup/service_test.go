package followup

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quoteflow/quoteflow-backend/pkg/db/models"
	"github.com/quoteflow/quoteflow-backend/pkg/enums"
	"github.com/quoteflow/quoteflow-backend/pkg/logger"
	"github.com/quoteflow/quoteflow-backend/pkg/types"
)

type fakeQuotes struct {
	viewed  []models.Quote
	updated []*models.Quote
}

func (f *fakeQuotes) ListViewed(ctx context.Context) ([]models.Quote, error) {
	return f.viewed, nil
}

func (f *fakeQuotes) Update(ctx context.Context, quote *models.Quote) error {
	f.updated = append(f.updated, quote)
	return nil
}

type fakeProfiles struct {
	byID map[uuid.UUID]*models.Profile
}

func (f *fakeProfiles) FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	return f.byID[id], nil
}

type fakeCustomers struct {
	byID map[uuid.UUID]*models.Customer
}

func (f *fakeCustomers) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	return f.byID[id], nil
}

type sentEmail struct {
	to      string
	subject string
	body    string
}

type fakeSender struct {
	sent    []sentEmail
	failFor string
}

func (f *fakeSender) Send(ctx context.Context, to, subject, html string) error {
	if f.failFor != "" && strings.Contains(html, f.failFor) {
		return errors.New("send failed")
	}
	f.sent = append(f.sent, sentEmail{to: to, subject: subject, body: html})
	return nil
}

type followUpFixture struct {
	svc       *Service
	quotes    *fakeQuotes
	profiles  *fakeProfiles
	customers *fakeCustomers
	sender    *fakeSender
	now       time.Time
}

func newFollowUpFixture(t *testing.T) *followUpFixture {
	t.Helper()
	f := &followUpFixture{
		quotes:    &fakeQuotes{},
		profiles:  &fakeProfiles{byID: make(map[uuid.UUID]*models.Profile)},
		customers: &fakeCustomers{byID: make(map[uuid.UUID]*models.Customer)},
		sender:    &fakeSender{},
		now:       time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC),
	}
	svc, err := NewService(ServiceParams{
		Logger:      logger.New(logger.Options{ServiceName: "test"}),
		Quotes:      f.quotes,
		Profiles:    f.profiles,
		Customers:   f.customers,
		Sender:      f.sender,
		BaseURL:     "https://quoteflow.app",
		DefaultDays: []int{2, 7, 15},
		Now:         func() time.Time { return f.now },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc
	return f
}

func (f *followUpFixture) seedViewedQuote(tier enums.SubscriptionTier, viewedDaysAgo int) *models.Quote {
	contractorID := uuid.New()
	customerID := uuid.New()
	customerEmail := "jane@example.com"
	f.profiles.byID[contractorID] = &models.Profile{
		ID:               contractorID,
		BusinessName:     "Acme Decks",
		Email:            "owner@acmedecks.com",
		SubscriptionTier: tier,
	}
	f.customers.byID[customerID] = &models.Customer{
		ID:    customerID,
		Name:  "Jane Doe",
		Email: &customerEmail,
	}
	viewedAt := f.now.Add(-time.Duration(viewedDaysAgo) * 24 * time.Hour)
	quote := models.Quote{
		ID:           uuid.New(),
		ContractorID: contractorID,
		CustomerID:   &customerID,
		Name:         "Deck build",
		TotalPrice:   decimal.RequireFromString("500.00"),
		Status:       enums.QuoteStatusViewed,
		ViewedAt:     &viewedAt,
		Version:      1,
	}
	f.quotes.viewed = append(f.quotes.viewed, quote)
	return &f.quotes.viewed[len(f.quotes.viewed)-1]
}

func TestRunDayEightSendsTwoIntervals(t *testing.T) {
	f := newFollowUpFixture(t)
	f.seedViewedQuote(enums.SubscriptionTierPro, 8)

	sent, err := f.svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sent != 2 {
		t.Fatalf("day 8 must send exactly the 2d and 7d reminders, got %d", sent)
	}
	if len(f.quotes.updated) != 1 {
		t.Fatalf("expected one quote update, got %d", len(f.quotes.updated))
	}
	updated := f.quotes.updated[0]
	if !updated.FollowUp2dSent || !updated.FollowUp7dSent || updated.FollowUp15dSent {
		t.Fatalf("legacy booleans out of sync: %+v", updated)
	}
	if _, ok := updated.FollowUpsSent["2d"]; !ok {
		t.Fatal("sent map must record the 2d interval")
	}
	if _, ok := updated.FollowUpsSent["15d"]; ok {
		t.Fatal("15d must not fire on day 8")
	}
}

func TestRunBuiltInCopyVariesByInterval(t *testing.T) {
	f := newFollowUpFixture(t)
	f.seedViewedQuote(enums.SubscriptionTierPro, 16)

	sent, err := f.svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sent != 3 {
		t.Fatalf("day 16 must send all three reminders, got %d", sent)
	}
	subjects := make(map[string]bool)
	for _, msg := range f.sender.sent {
		subjects[msg.subject] = true
	}
	if len(subjects) != 3 {
		t.Fatalf("each rung must use its own subject, got %v", subjects)
	}
	if !strings.Contains(f.sender.sent[2].subject, "Last reminder") {
		t.Fatalf("final rung should read as the last notice, got %q", f.sender.sent[2].subject)
	}
}

func TestRunSkipsFreeTier(t *testing.T) {
	f := newFollowUpFixture(t)
	f.seedViewedQuote(enums.SubscriptionTierFree, 8)

	sent, err := f.svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sent != 0 {
		t.Fatalf("free tier must send zero reminders, got %d", sent)
	}
	if len(f.quotes.updated) != 0 {
		t.Fatal("free-tier quotes must not be touched")
	}
}

func TestRunDoesNotResend(t *testing.T) {
	f := newFollowUpFixture(t)
	quote := f.seedViewedQuote(enums.SubscriptionTierPro, 8)
	quote.FollowUpsSent = types.FollowUpSentMap{"2d": f.now.Add(-5 * 24 * time.Hour)}
	quote.FollowUp2dSent = true

	sent, err := f.svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sent != 1 {
		t.Fatalf("only the 7d reminder is due, got %d sends", sent)
	}
}

func TestRunLegacyBooleanCountsAsSent(t *testing.T) {
	f := newFollowUpFixture(t)
	quote := f.seedViewedQuote(enums.SubscriptionTierPro, 3)
	quote.FollowUp2dSent = true // old rows carry only the boolean

	sent, err := f.svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sent != 0 {
		t.Fatalf("legacy boolean must suppress a resend, got %d", sent)
	}
}

func TestRunFailedSendDoesNotMarkOrBlockOthers(t *testing.T) {
	f := newFollowUpFixture(t)
	f.seedViewedQuote(enums.SubscriptionTierPro, 8)
	f.sender.failFor = "Deck build" // every send for this quote fails

	sent, err := f.svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run must not fail on send errors: %v", err)
	}
	if sent != 0 {
		t.Fatalf("failed sends must not count, got %d", sent)
	}
	if len(f.quotes.updated) != 0 {
		t.Fatal("sent markers must not be written on failure")
	}
}

func TestRunCustomTemplateAndIntervals(t *testing.T) {
	f := newFollowUpFixture(t)
	quote := f.seedViewedQuote(enums.SubscriptionTierLifetime, 4)
	profile := f.profiles.byID[quote.ContractorID]
	subject := "A note from {business_name}"
	body := "<p>{customer_name}, your quote {quote_name} is waiting: {quote_url}</p>"
	profile.FollowUpSubject = &subject
	profile.FollowUpMessage = &body
	profile.FollowUpIntervals = types.FollowUpIntervals{
		{ID: "iv-a", Days: 3, Enabled: true},
		{ID: "iv-b", Days: 10, Enabled: true},
		{ID: "iv-c", Days: 1, Enabled: false},
	}

	sent, err := f.svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sent != 1 {
		t.Fatalf("only the enabled 3-day interval is due, got %d", sent)
	}
	msg := f.sender.sent[0]
	if msg.subject != "A note from Acme Decks" {
		t.Fatalf("unexpected subject %q", msg.subject)
	}
	if !strings.Contains(msg.body, "Jane Doe") || !strings.Contains(msg.body, quote.ID.String()) {
		t.Fatalf("placeholders not rendered: %q", msg.body)
	}
}
