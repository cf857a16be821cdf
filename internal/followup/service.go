package followup

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/quoteflow/quoteflow-backend/internal/email"
	"github.com/quoteflow/quoteflow-backend/internal/profiles"
	"github.com/quoteflow/quoteflow-backend/internal/quotes"
	"github.com/quoteflow/quoteflow-backend/pkg/db/models"
	pkgerrors "github.com/quoteflow/quoteflow-backend/pkg/errors"
	"github.com/quoteflow/quoteflow-backend/pkg/logger"
	"github.com/quoteflow/quoteflow-backend/pkg/types"
)

type quoteStore interface {
	ListViewed(ctx context.Context) ([]models.Quote, error)
	Update(ctx context.Context, quote *models.Quote) error
}

type profileStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

type customerStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

type sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// ServiceParams configures the reminder scan.
type ServiceParams struct {
	Logger      *logger.Logger
	Quotes      quoteStore
	Profiles    profileStore
	Customers   customerStore
	Sender      sender
	BaseURL     string
	DefaultDays []int
	Now         func() time.Time
}

// Service sends reminder emails for viewed-but-unsigned quotes.
type Service struct {
	logg        *logger.Logger
	quotes      quoteStore
	profiles    profileStore
	customers   customerStore
	sender      sender
	baseURL     string
	defaultDays []int
	now         func() time.Time
}

// NewService builds a follow-up service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	if params.Quotes == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "quote store required")
	}
	if params.Profiles == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "profile store required")
	}
	if params.Customers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "customer store required")
	}
	if params.Sender == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "sender required")
	}
	if len(params.DefaultDays) == 0 {
		params.DefaultDays = []int{2, 7, 15}
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		logg:        params.Logger,
		quotes:      params.Quotes,
		profiles:    params.Profiles,
		customers:   params.Customers,
		sender:      params.Sender,
		baseURL:     params.BaseURL,
		defaultDays: params.DefaultDays,
		now:         now,
	}, nil
}

type reminderCopy struct {
	subject string
	body    string
}

// defaultReminder covers custom interval ids that have no rung of their own.
var defaultReminder = reminderCopy{
	subject: "Still thinking it over, {customer_name}?",
	body: `<p>Hi {customer_name},</p>
<p>Just checking in on the quote <strong>{quote_name}</strong> from {business_name}.</p>
<p><a href="{quote_url}">Review and sign it here</a> whenever you are ready.</p>`,
}

// defaultReminderLadder escalates across the built-in intervals. A contractor
// who sets a custom subject or message replaces every rung.
var defaultReminderLadder = map[string]reminderCopy{
	"2d": defaultReminder,
	"7d": {
		subject: "Your quote from {business_name} is waiting",
		body: `<p>Hi {customer_name},</p>
<p>The quote <strong>{quote_name}</strong> from {business_name} is still open.</p>
<p>If anything in it needs adjusting, just reply and we will sort it out. Otherwise you can
<a href="{quote_url}">review and sign it here</a>.</p>`,
	},
	"15d": {
		subject: "Last reminder about {quote_name}",
		body: `<p>Hi {customer_name},</p>
<p>This is the last reminder about the quote <strong>{quote_name}</strong> from {business_name}.</p>
<p><a href="{quote_url}">It is still available here</a> if you would like to move forward.</p>`,
	},
}

// Run scans viewed quotes and sends every due, not-yet-sent reminder.
// Returns the number of emails sent. A failed send is logged and skipped;
// the sent marker is only written after a successful send, so the next run
// retries nothing and a failed reminder is simply never resent.
func (s *Service) Run(ctx context.Context) (int, error) {
	due, err := s.quotes.ListViewed(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scan viewed quotes")
	}

	profileCache := make(map[uuid.UUID]*models.Profile)
	now := s.now().UTC()
	sent := 0

	for i := range due {
		quote := &due[i]
		qctx := s.logg.WithQuoteID(ctx, quote.ID.String())

		profile, ok := profileCache[quote.ContractorID]
		if !ok {
			profile, err = s.profiles.FindByID(ctx, quote.ContractorID)
			if err != nil {
				s.logg.Error(qctx, "load contractor profile", err)
				continue
			}
			profileCache[quote.ContractorID] = profile
		}
		if profile == nil || !profile.SubscriptionTier.IsPaid() {
			continue
		}
		if quote.CustomerID == nil || quote.ViewedAt == nil {
			continue
		}
		customer, err := s.customers.FindByID(ctx, *quote.CustomerID)
		if err != nil {
			s.logg.Error(qctx, "load customer", err)
			continue
		}
		if customer == nil || customer.Email == nil || *customer.Email == "" {
			continue
		}

		elapsedDays := int(now.Sub(quote.ViewedAt.UTC()).Hours() / 24)
		dirty := false
		for _, interval := range s.effectiveIntervals(profile) {
			if !interval.Enabled || elapsedDays < interval.Days {
				continue
			}
			if alreadySent(quote, interval.ID) {
				continue
			}

			subject, body := s.renderReminder(profile, quote, customer, interval)
			if err := s.sender.Send(ctx, *customer.Email, subject, body); err != nil {
				s.logg.Error(qctx, "send follow-up email", err)
				continue
			}
			markSent(quote, interval.ID, now)
			dirty = true
			sent++
		}

		if dirty {
			quote.Version++
			if err := s.quotes.Update(ctx, quote); err != nil {
				s.logg.Error(qctx, "persist follow-up markers", err)
			}
		}
	}
	return sent, nil
}

func (s *Service) effectiveIntervals(profile *models.Profile) types.FollowUpIntervals {
	if len(profile.FollowUpIntervals) > 0 {
		return profile.FollowUpIntervals
	}
	return profiles.DefaultIntervals(s.defaultDays)
}

func (s *Service) renderReminder(profile *models.Profile, quote *models.Quote, customer *models.Customer, interval types.FollowUpInterval) (string, string) {
	rung := defaultReminder
	if ladder, ok := defaultReminderLadder[interval.ID]; ok {
		rung = ladder
	}
	subjectTemplate := rung.subject
	if profile.FollowUpSubject != nil && *profile.FollowUpSubject != "" {
		subjectTemplate = *profile.FollowUpSubject
	}
	bodyTemplate := rung.body
	if profile.FollowUpMessage != nil && *profile.FollowUpMessage != "" {
		bodyTemplate = *profile.FollowUpMessage
	}
	vars := map[string]string{
		"customer_name": customer.Name,
		"quote_name":    quote.Name,
		"business_name": profile.BusinessName,
		"quote_url":     quotes.PublicQuoteURL(s.baseURL, quote.ID),
	}
	return email.Render(subjectTemplate, vars), email.Render(bodyTemplate, vars)
}

func alreadySent(quote *models.Quote, intervalID string) bool {
	if _, ok := quote.FollowUpsSent[intervalID]; ok {
		return true
	}
	switch intervalID {
	case "2d":
		return quote.FollowUp2dSent
	case "7d":
		return quote.FollowUp7dSent
	case "15d":
		return quote.FollowUp15dSent
	}
	return false
}

// markSent writes the sent timestamp keyed by interval id, and keeps the
// legacy boolean columns in sync for the three built-in intervals.
func markSent(quote *models.Quote, intervalID string, at time.Time) {
	if quote.FollowUpsSent == nil {
		quote.FollowUpsSent = make(types.FollowUpSentMap)
	}
	quote.FollowUpsSent[intervalID] = at
	switch intervalID {
	case "2d":
		quote.FollowUp2dSent = true
	case "7d":
		quote.FollowUp7dSent = true
	case "15d":
		quote.FollowUp15dSent = true
	}
}
