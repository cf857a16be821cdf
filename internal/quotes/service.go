package quotes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/quoteflow/quoteflow-backend/internal/email"
	"github.com/quoteflow/quoteflow-backend/pkg/db/models"
	"github.com/quoteflow/quoteflow-backend/pkg/enums"
	pkgerrors "github.com/quoteflow/quoteflow-backend/pkg/errors"
	"github.com/quoteflow/quoteflow-backend/pkg/logger"
	"github.com/quoteflow/quoteflow-backend/pkg/pagination"
	"github.com/quoteflow/quoteflow-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// paymentLedger is the slice of the payments package the cascade needs.
type paymentLedger interface {
	DeleteByQuote(ctx context.Context, quoteID uuid.UUID) error
}

type customerDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

type profileDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

type mailer interface {
	SendQuoteLink(ctx context.Context, msg email.QuoteLinkEmail) error
	SendQuoteOpened(ctx context.Context, msg email.QuoteOpenedEmail) error
}

// objectStore issues upload URLs for receipts and photos, and removes them
// when a quote goes away.
type objectStore interface {
	DeletePrefix(ctx context.Context, bucket, prefix string) error
	SignedURL(bucket, object, contentType string, expires time.Duration) (string, error)
}

// ServiceParams configures the quote lifecycle service.
type ServiceParams struct {
	Logger            *logger.Logger
	Repo              Repository
	Payments          paymentLedger
	Customers         customerDirectory
	Profiles          profileDirectory
	Mailer            mailer
	TransactionRunner txRunner
	ObjectStore       objectStore
	Bucket            string
	UploadURLExpiry   time.Duration
	BaseURL           string
	Now               func() time.Time
}

// Service owns the quote lifecycle from draft through signature.
type Service struct {
	logg         *logger.Logger
	repo         Repository
	payments     paymentLedger
	customers    customerDirectory
	profiles     profileDirectory
	mailer       mailer
	txRunner     txRunner
	objects      objectStore
	bucket       string
	uploadExpiry time.Duration
	baseURL      string
	now          func() time.Time
}

// NewService builds a quote service. ObjectStore is optional; without it the
// delete cascade skips storage cleanup.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "quote repo required")
	}
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment ledger required")
	}
	if params.Customers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "customer directory required")
	}
	if params.Profiles == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "profile directory required")
	}
	if params.Mailer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "mailer required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	uploadExpiry := params.UploadURLExpiry
	if uploadExpiry <= 0 {
		uploadExpiry = 15 * time.Minute
	}
	return &Service{
		logg:         params.Logger,
		repo:         params.Repo,
		payments:     params.Payments,
		customers:    params.Customers,
		profiles:     params.Profiles,
		mailer:       params.Mailer,
		txRunner:     params.TransactionRunner,
		objects:      params.ObjectStore,
		bucket:       params.Bucket,
		uploadExpiry: uploadExpiry,
		baseURL:      strings.TrimRight(params.BaseURL, "/"),
		now:          now,
	}, nil
}

// PublicQuoteURL is the customer-facing page for a quote.
func PublicQuoteURL(baseURL string, id uuid.UUID) string {
	return fmt.Sprintf("%s/quotes/%s", strings.TrimRight(baseURL, "/"), id)
}

// StoragePrefix is where a quote's uploaded objects live.
func StoragePrefix(quoteID uuid.UUID) string {
	return fmt.Sprintf("quotes/%s/", quoteID)
}

// CreateInput captures a new quote.
type CreateInput struct {
	ContractorID      uuid.UUID
	CustomerID        *uuid.UUID
	Name              string
	LineItems         types.LineItems
	Photos            types.PhotoList
	Notes             *string
	TotalPrice        decimal.Decimal
	DepositPercentage int
	SendNow           bool
}

// Create persists a quote as draft, or as sent with a best-effort customer
// email when SendNow is set.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Quote, error) {
	if input.ContractorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contractor id is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quote name is required")
	}
	if input.DepositPercentage < 0 || input.DepositPercentage > 100 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deposit percentage must be between 0 and 100")
	}

	total := input.TotalPrice
	if total.IsZero() {
		total = lineItemsTotal(input.LineItems)
	}
	if !total.GreaterThan(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total price must be positive")
	}

	status := enums.QuoteStatusDraft
	if input.SendNow {
		status = enums.QuoteStatusSent
	}
	quote := &models.Quote{
		ContractorID:      input.ContractorID,
		CustomerID:        input.CustomerID,
		Name:              strings.TrimSpace(input.Name),
		LineItems:         input.LineItems,
		Photos:            input.Photos,
		Notes:             input.Notes,
		TotalPrice:        total,
		DepositPercentage: input.DepositPercentage,
		Status:            status,
	}
	if err := s.repo.Create(ctx, quote); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist quote")
	}

	if input.SendNow {
		s.notifyCustomer(ctx, quote)
	}
	return quote, nil
}

// List pages through a contractor's quotes, newest first.
func (s *Service) List(ctx context.Context, contractorID uuid.UUID, params pagination.Params) ([]models.Quote, *pagination.Cursor, error) {
	if contractorID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "contractor id is required")
	}
	rows, next, err := s.repo.ListByContractor(ctx, contractorID, params)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list quotes")
	}
	return rows, next, nil
}

// Get returns a quote the contractor owns.
func (s *Service) Get(ctx context.Context, contractorID, quoteID uuid.UUID) (*models.Quote, error) {
	quote, err := s.load(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.ContractorID != contractorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "quote belongs to another contractor")
	}
	return quote, nil
}

// GetPublic returns a quote for its customer-facing page. Drafts stay hidden.
func (s *Service) GetPublic(ctx context.Context, quoteID uuid.UUID) (*models.Quote, error) {
	quote, err := s.load(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.Status == enums.QuoteStatusDraft {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "quote not found")
	}
	return quote, nil
}

// ReceiptUpload carries a signed PUT URL and the public URL the payment claim
// should reference once the upload completes.
type ReceiptUpload struct {
	UploadURL  string `json:"upload_url"`
	ReceiptURL string `json:"receipt_url"`
	Object     string `json:"object"`
}

var receiptContentTypes = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// ReceiptUploadURL issues a signed upload URL for a payment receipt. The
// object lands under the quote's storage prefix so deleting the quote sweeps
// it up.
func (s *Service) ReceiptUploadURL(ctx context.Context, quoteID uuid.UUID, contentType string) (*ReceiptUpload, error) {
	if s.objects == nil || s.bucket == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "receipt uploads are not configured")
	}
	ext, ok := receiptContentTypes[contentType]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported receipt content type")
	}

	quote, err := s.GetPublic(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	object := StoragePrefix(quote.ID) + "receipts/" + uuid.NewString() + ext
	uploadURL, err := s.objects.SignedURL(s.bucket, object, contentType, s.uploadExpiry)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign receipt upload url")
	}

	return &ReceiptUpload{
		UploadURL:  uploadURL,
		ReceiptURL: fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, object),
		Object:     object,
	}, nil
}

// EditInput carries the editable quote fields. Nil means unchanged.
type EditInput struct {
	Name              *string
	LineItems         *types.LineItems
	Photos            *types.PhotoList
	Notes             *string
	TotalPrice        *decimal.Decimal
	DepositPercentage *int
}

// Edit archives a before/after snapshot and applies the changes. Editing a
// signed quote clears the signature and drops the status back to sent so the
// customer re-signs the new numbers.
func (s *Service) Edit(ctx context.Context, contractorID, quoteID uuid.UUID, input EditInput) (*models.Quote, error) {
	if input.DepositPercentage != nil && (*input.DepositPercentage < 0 || *input.DepositPercentage > 100) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deposit percentage must be between 0 and 100")
	}
	if input.TotalPrice != nil && !input.TotalPrice.GreaterThan(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total price must be positive")
	}

	var edited *models.Quote
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		quote, err := repo.FindByIDForUpdate(ctx, quoteID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quote")
		}
		if quote == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "quote not found")
		}
		if quote.ContractorID != contractorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "quote belongs to another contractor")
		}
		if quote.Status == enums.QuoteStatusPaidDeposit || quote.Status == enums.QuoteStatusPaidFull {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "quote with recorded payments cannot be edited")
		}

		snapshot := &models.QuoteEditSnapshot{
			QuoteID:            quote.ID,
			EditVersion:        quote.EditVersion,
			PreviousLineItems:  quote.LineItems,
			PreviousTotalPrice: quote.TotalPrice,
			PreviousNotes:      quote.Notes,
			PreviousDepositPct: quote.DepositPercentage,
		}

		if input.Name != nil {
			if strings.TrimSpace(*input.Name) == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "quote name is required")
			}
			quote.Name = strings.TrimSpace(*input.Name)
		}
		if input.LineItems != nil {
			quote.LineItems = *input.LineItems
			if input.TotalPrice == nil {
				quote.TotalPrice = lineItemsTotal(*input.LineItems)
			}
		}
		if input.Photos != nil {
			quote.Photos = *input.Photos
		}
		if input.Notes != nil {
			quote.Notes = input.Notes
		}
		if input.TotalPrice != nil {
			quote.TotalPrice = *input.TotalPrice
		}
		if input.DepositPercentage != nil {
			quote.DepositPercentage = *input.DepositPercentage
		}

		snapshot.NewLineItems = quote.LineItems
		snapshot.NewTotalPrice = quote.TotalPrice
		snapshot.NewNotes = quote.Notes
		snapshot.NewDepositPct = quote.DepositPercentage

		if err := repo.CreateSnapshot(ctx, snapshot); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "archive edit snapshot")
		}

		quote.EditVersion++
		if quote.HasSignature() {
			quote.SignatureName = nil
			quote.SignedAt = nil
			quote.Status = enums.QuoteStatusSent
		}
		quote.Version++
		if err := repo.Update(ctx, quote); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist edit")
		}
		edited = quote
		return nil
	})
	if err != nil {
		return nil, err
	}
	return edited, nil
}

// Snapshots returns a quote's edit history for its owner.
func (s *Service) Snapshots(ctx context.Context, contractorID, quoteID uuid.UUID) ([]models.QuoteEditSnapshot, error) {
	if _, err := s.Get(ctx, contractorID, quoteID); err != nil {
		return nil, err
	}
	snapshots, err := s.repo.ListSnapshots(ctx, quoteID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list snapshots")
	}
	return snapshots, nil
}

// Send moves a draft to sent and emails the customer. The email is
// best-effort; the status change sticks either way.
func (s *Service) Send(ctx context.Context, contractorID, quoteID uuid.UUID) (*models.Quote, error) {
	quote, err := s.Get(ctx, contractorID, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.Status != enums.QuoteStatusDraft {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only draft quotes can be sent")
	}

	quote.Status = enums.QuoteStatusSent
	quote.Version++
	if err := s.repo.Update(ctx, quote); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist send")
	}

	s.notifyCustomer(ctx, quote)
	return quote, nil
}

// MarkViewed records the first customer open of a sent quote and pings the
// contractor. Later opens are no-ops.
func (s *Service) MarkViewed(ctx context.Context, quoteID uuid.UUID) (*models.Quote, error) {
	quote, err := s.load(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.Status != enums.QuoteStatusSent {
		return quote, nil
	}

	viewedAt := s.now().UTC()
	quote.Status = enums.QuoteStatusViewed
	quote.ViewedAt = &viewedAt
	quote.Version++
	if err := s.repo.Update(ctx, quote); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist view")
	}

	s.notifyContractorOpened(ctx, quote)
	return quote, nil
}

// Sign records the customer signature and moves the quote to signed. Signing
// an already-signed quote is a no-op so double submits are harmless.
func (s *Service) Sign(ctx context.Context, quoteID uuid.UUID, name string) (*models.Quote, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "signature name is required")
	}

	quote, err := s.load(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.Status.IsSigned() {
		return quote, nil
	}
	if quote.Status != enums.QuoteStatusSent && quote.Status != enums.QuoteStatusViewed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "quote is not open for signing")
	}

	signedAt := s.now().UTC()
	quote.SignatureName = &name
	quote.SignedAt = &signedAt
	quote.Status = enums.QuoteStatusSigned
	quote.Version++
	if err := s.repo.Update(ctx, quote); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist signature")
	}
	return quote, nil
}

// Delete removes a quote with its ledger and edit history. Storage objects
// under the quote prefix are removed best-effort first; a storage failure is
// logged and does not block the row deletes.
func (s *Service) Delete(ctx context.Context, contractorID, quoteID uuid.UUID) error {
	quote, err := s.Get(ctx, contractorID, quoteID)
	if err != nil {
		return err
	}

	if s.objects != nil && s.bucket != "" {
		if err := s.objects.DeletePrefix(ctx, s.bucket, StoragePrefix(quote.ID)); err != nil {
			s.logg.Error(s.logg.WithQuoteID(ctx, quote.ID.String()), "storage cleanup failed, continuing delete", err)
		}
	}

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := s.payments.DeleteByQuote(ctx, quote.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete payments")
		}
		if err := repo.DeleteSnapshotsByQuote(ctx, quote.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete snapshots")
		}
		if err := repo.Delete(ctx, quote.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete quote")
		}
		return nil
	})
}

func (s *Service) load(ctx context.Context, quoteID uuid.UUID) (*models.Quote, error) {
	if quoteID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quote id is required")
	}
	quote, err := s.repo.FindByID(ctx, quoteID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quote")
	}
	if quote == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "quote not found")
	}
	return quote, nil
}

func (s *Service) notifyCustomer(ctx context.Context, quote *models.Quote) {
	if quote.CustomerID == nil {
		return
	}
	customer, err := s.customers.FindByID(ctx, *quote.CustomerID)
	if err != nil || customer == nil || customer.Email == nil {
		return
	}
	profile, err := s.profiles.FindByID(ctx, quote.ContractorID)
	if err != nil || profile == nil {
		return
	}
	msg := email.QuoteLinkEmail{
		To:           *customer.Email,
		CustomerName: customer.Name,
		QuoteName:    quote.Name,
		BusinessName: profile.BusinessName,
		QuoteURL:     PublicQuoteURL(s.baseURL, quote.ID),
	}
	if err := s.mailer.SendQuoteLink(ctx, msg); err != nil {
		s.logg.Error(s.logg.WithQuoteID(ctx, quote.ID.String()), "quote email failed", err)
	}
}

func (s *Service) notifyContractorOpened(ctx context.Context, quote *models.Quote) {
	profile, err := s.profiles.FindByID(ctx, quote.ContractorID)
	if err != nil || profile == nil {
		return
	}
	customerName := "Your customer"
	if quote.CustomerID != nil {
		if customer, err := s.customers.FindByID(ctx, *quote.CustomerID); err == nil && customer != nil {
			customerName = customer.Name
		}
	}
	msg := email.QuoteOpenedEmail{
		To:           profile.Email,
		BusinessName: profile.BusinessName,
		QuoteName:    quote.Name,
		CustomerName: customerName,
	}
	if err := s.mailer.SendQuoteOpened(ctx, msg); err != nil {
		s.logg.Error(s.logg.WithQuoteID(ctx, quote.ID.String()), "quote opened email failed", err)
	}
}

func lineItemsTotal(items types.LineItems) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Total)
	}
	return total
}
