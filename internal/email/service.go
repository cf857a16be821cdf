package email

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"

	pkgerrors "github.com/quoteflow/quoteflow-backend/pkg/errors"
	"github.com/quoteflow/quoteflow-backend/pkg/logger"
)

// emailsAPI is the slice of the Resend client the service uses.
type emailsAPI interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ServiceParams configures the email service.
type ServiceParams struct {
	Logger *logger.Logger
	Emails emailsAPI
	From   string
}

// Service sends transactional email through Resend.
type Service struct {
	logg   *logger.Logger
	emails emailsAPI
	from   string
}

// NewService builds an email service around an existing Resend client slice.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	if params.Emails == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "resend emails client required")
	}
	if params.From == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "from address required")
	}
	return &Service{logg: params.Logger, emails: params.Emails, from: params.From}, nil
}

// New builds an email service from a Resend API key.
func New(logg *logger.Logger, apiKey, from string) (*Service, error) {
	client := resend.NewClient(apiKey)
	return NewService(ServiceParams{Logger: logg, Emails: client.Emails, From: from})
}

// Send delivers one HTML email.
func (s *Service) Send(ctx context.Context, to, subject, html string) error {
	if to == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient required")
	}
	_, err := s.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send email")
	}
	return nil
}

// QuoteLinkEmail notifies a customer that a quote is ready for them.
type QuoteLinkEmail struct {
	To           string
	CustomerName string
	QuoteName    string
	BusinessName string
	QuoteURL     string
}

// SendQuoteLink emails the customer a link to their quote.
func (s *Service) SendQuoteLink(ctx context.Context, msg QuoteLinkEmail) error {
	subject := fmt.Sprintf("%s sent you a quote: %s", msg.BusinessName, msg.QuoteName)
	html := Render(quoteLinkBody, map[string]string{
		"customer_name": msg.CustomerName,
		"quote_name":    msg.QuoteName,
		"business_name": msg.BusinessName,
		"quote_url":     msg.QuoteURL,
	})
	return s.Send(ctx, msg.To, subject, html)
}

// QuoteOpenedEmail notifies a contractor that their quote was viewed.
type QuoteOpenedEmail struct {
	To           string
	BusinessName string
	QuoteName    string
	CustomerName string
}

// SendQuoteOpened emails the contractor when a customer first opens a quote.
func (s *Service) SendQuoteOpened(ctx context.Context, msg QuoteOpenedEmail) error {
	subject := fmt.Sprintf("%s opened your quote", msg.CustomerName)
	html := Render(quoteOpenedBody, map[string]string{
		"customer_name": msg.CustomerName,
		"quote_name":    msg.QuoteName,
		"business_name": msg.BusinessName,
	})
	return s.Send(ctx, msg.To, subject, html)
}
