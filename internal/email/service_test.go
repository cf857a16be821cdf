package email

import (
	"context"
	"strings"
	"testing"

	"github.com/resend/resend-go/v2"

	"github.com/quoteflow/quoteflow-backend/pkg/logger"
)

type fakeEmails struct {
	sent []*resend.SendEmailRequest
	err  error
}

func (f *fakeEmails) SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, params)
	return &resend.SendEmailResponse{Id: "email_123"}, nil
}

func newEmailService(t *testing.T, emails *fakeEmails) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Emails: emails,
		From:   "QuoteFlow <no-reply@quoteflow.app>",
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestRender(t *testing.T) {
	out := Render("Hi {customer_name}, {business_name} sent {quote_name}.", map[string]string{
		"customer_name": "Jane",
		"business_name": "Acme Decks",
		"quote_name":    "Deck build",
	})
	if out != "Hi Jane, Acme Decks sent Deck build." {
		t.Fatalf("unexpected render output %q", out)
	}
}

func TestRenderLeavesUnknownTokens(t *testing.T) {
	out := Render("Hello {customer_nmae}", map[string]string{"customer_name": "Jane"})
	if out != "Hello {customer_nmae}" {
		t.Fatalf("unknown token must survive, got %q", out)
	}
}

func TestSendQuoteLink(t *testing.T) {
	emails := &fakeEmails{}
	svc := newEmailService(t, emails)

	err := svc.SendQuoteLink(context.Background(), QuoteLinkEmail{
		To:           "jane@example.com",
		CustomerName: "Jane",
		QuoteName:    "Deck build",
		BusinessName: "Acme Decks",
		QuoteURL:     "https://quoteflow.app/quotes/abc",
	})
	if err != nil {
		t.Fatalf("SendQuoteLink: %v", err)
	}
	if len(emails.sent) != 1 {
		t.Fatalf("expected one send, got %d", len(emails.sent))
	}
	req := emails.sent[0]
	if req.To[0] != "jane@example.com" {
		t.Fatalf("unexpected recipient %v", req.To)
	}
	if !strings.Contains(req.Html, "https://quoteflow.app/quotes/abc") {
		t.Fatalf("quote url missing from body: %s", req.Html)
	}
	if !strings.Contains(req.Subject, "Acme Decks") {
		t.Fatalf("business name missing from subject: %s", req.Subject)
	}
}

func TestSendRequiresRecipient(t *testing.T) {
	svc := newEmailService(t, &fakeEmails{})
	if err := svc.Send(context.Background(), "", "subject", "<p>body</p>"); err == nil {
		t.Fatal("expected error for empty recipient")
	}
}
