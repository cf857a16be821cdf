package payments

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/quoteflow/quoteflow-backend/internal/quotes"
	"github.com/quoteflow/quoteflow-backend/pkg/db/models"
	"github.com/quoteflow/quoteflow-backend/pkg/enums"
	pkgerrors "github.com/quoteflow/quoteflow-backend/pkg/errors"
	"github.com/quoteflow/quoteflow-backend/pkg/logger"
)

// statusWriteRetries bounds re-runs of a ledger transaction when the quote
// version moved under us.
const statusWriteRetries = 3

var balanceEpsilon = decimal.NewFromFloat(0.01)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams configures the payment ledger service.
type ServiceParams struct {
	Logger            *logger.Logger
	PaymentRepo       Repository
	QuoteRepo         quotes.Repository
	TransactionRunner txRunner
}

// Service owns ledger mutations and the quote status writes they trigger.
type Service struct {
	logg        *logger.Logger
	paymentRepo Repository
	quoteRepo   quotes.Repository
	txRunner    txRunner
}

// NewService builds a payment service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	if params.PaymentRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment repo required")
	}
	if params.QuoteRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "quote repo required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &Service{
		logg:        params.Logger,
		paymentRepo: params.PaymentRepo,
		quoteRepo:   params.QuoteRepo,
		txRunner:    params.TransactionRunner,
	}, nil
}

// SubmitClaimInput models a customer's claim that an offline payment was made.
type SubmitClaimInput struct {
	QuoteID    uuid.UUID
	Amount     decimal.Decimal
	Method     enums.PaymentMethod
	Notes      *string
	ReceiptURL *string
}

// SubmitClaim records a pending ledger entry after validating it against a
// freshly scanned ledger inside the transaction. Pending claims count toward
// the remaining balance so stacked claims cannot overshoot the quote total.
func (s *Service) SubmitClaim(ctx context.Context, input SubmitClaimInput) (*models.Payment, error) {
	if input.QuoteID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quote id is required")
	}
	if !input.Amount.GreaterThan(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if input.Method == "" || !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	var created *models.Payment
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		quoteRepo := s.quoteRepo.WithTx(tx)
		paymentRepo := s.paymentRepo.WithTx(tx)

		quote, err := quoteRepo.FindByIDForUpdate(ctx, input.QuoteID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quote")
		}
		if quote == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "quote not found")
		}
		if !quote.Status.IsSigned() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "quote must be signed before payments")
		}
		if quote.Status == enums.QuoteStatusPaidFull {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "quote is already paid in full")
		}

		entries, err := paymentRepo.ListByQuote(ctx, input.QuoteID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger")
		}
		remaining := quote.TotalPrice.Sub(OpenTotal(entries))
		if input.Amount.GreaterThan(remaining.Add(balanceEpsilon)) {
			return pkgerrors.New(pkgerrors.CodeValidation, "amount exceeds remaining balance").
				WithDetails(map[string]string{"remaining": remaining.StringFixed(2)})
		}

		payment := &models.Payment{
			QuoteID:    input.QuoteID,
			Amount:     input.Amount,
			Method:     input.Method,
			Status:     enums.PaymentStatusPending,
			Notes:      input.Notes,
			ReceiptURL: input.ReceiptURL,
		}
		if err := paymentRepo.Create(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist payment claim")
		}
		created = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Confirm moves a pending entry to confirmed and re-derives the quote status
// from a full ledger rescan, all under the quote row lock.
func (s *Service) Confirm(ctx context.Context, contractorID, paymentID uuid.UUID) (*models.Payment, error) {
	return s.resolve(ctx, contractorID, paymentID, enums.PaymentStatusConfirmed)
}

// Reject moves a pending entry to its terminal rejected state. The row stays
// on the ledger for audit; the status derivation runs for symmetry even
// though a pending entry never counted toward totals.
func (s *Service) Reject(ctx context.Context, contractorID, paymentID uuid.UUID) (*models.Payment, error) {
	return s.resolve(ctx, contractorID, paymentID, enums.PaymentStatusRejected)
}

func (s *Service) resolve(ctx context.Context, contractorID, paymentID uuid.UUID, target enums.PaymentStatus) (*models.Payment, error) {
	if contractorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contractor id is required")
	}
	if paymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}

	var resolved *models.Payment
	var lastErr error
	for attempt := 0; attempt < statusWriteRetries; attempt++ {
		conflicted := false
		lastErr = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
			quoteRepo := s.quoteRepo.WithTx(tx)
			paymentRepo := s.paymentRepo.WithTx(tx)

			payment, err := paymentRepo.FindByID(ctx, paymentID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
			}
			if payment == nil {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
			}
			if payment.Status != enums.PaymentStatusPending {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "payment is not pending")
			}

			quote, err := quoteRepo.FindByIDForUpdate(ctx, payment.QuoteID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quote")
			}
			if quote == nil {
				return pkgerrors.New(pkgerrors.CodeNotFound, "quote not found")
			}
			if quote.ContractorID != contractorID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "payment belongs to another contractor")
			}

			if err := paymentRepo.UpdateStatus(ctx, paymentID, target); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
			}

			entries, err := paymentRepo.ListByQuote(ctx, payment.QuoteID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rescan ledger")
			}
			derived := quotes.DeriveStatus(quote.Status, ConfirmedTotal(entries), quote.TotalPrice, quote.DepositPercentage, quote.HasSignature())
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

			payment.Status = target
			resolved = payment
			return nil
		})
		if lastErr == nil {
			return resolved, nil
		}
		if !conflicted {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

// LedgerView is the FIFO ledger plus derived totals for a quote.
type LedgerView struct {
	Entries        []models.Payment `json:"entries"`
	ConfirmedTotal decimal.Decimal  `json:"confirmed_total"`
	PendingTotal   decimal.Decimal  `json:"pending_total"`
	Remaining      decimal.Decimal  `json:"remaining"`
}

// Ledger returns the quote's ledger for its owning contractor.
func (s *Service) Ledger(ctx context.Context, contractorID, quoteID uuid.UUID) (*LedgerView, error) {
	if contractorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contractor id is required")
	}
	if quoteID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quote id is required")
	}

	quote, err := s.quoteRepo.FindByID(ctx, quoteID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quote")
	}
	if quote == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "quote not found")
	}
	if quote.ContractorID != contractorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "quote belongs to another contractor")
	}

	entries, err := s.paymentRepo.ListByQuote(ctx, quoteID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger")
	}

	confirmed := ConfirmedTotal(entries)
	pending := OpenTotal(entries).Sub(confirmed)
	return &LedgerView{
		Entries:        entries,
		ConfirmedTotal: confirmed,
		PendingTotal:   pending,
		Remaining:      quote.TotalPrice.Sub(confirmed),
	}, nil
}

// ListPending returns the contractor's confirmation queue.
func (s *Service) ListPending(ctx context.Context, contractorID uuid.UUID) ([]models.Payment, error) {
	if contractorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contractor id is required")
	}
	return s.paymentRepo.ListPendingByContractor(ctx, contractorID)
}

// NormalizeCustomMethod folds free-text method labels onto the custom enum.
func NormalizeCustomMethod(raw string) enums.PaymentMethod {
	if method, err := enums.ParsePaymentMethod(strings.TrimSpace(strings.ToLower(raw))); err == nil {
		return method
	}
	return enums.PaymentMethodCustom
}
