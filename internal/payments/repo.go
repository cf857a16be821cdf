package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quoteflow/quoteflow-backend/pkg/db/models"
	"github.com/quoteflow/quoteflow-backend/pkg/enums"
)

// Repository handles payment ledger persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Payment, error)
	ListByQuote(ctx context.Context, quoteID uuid.UUID) ([]models.Payment, error)
	ListPendingByContractor(ctx context.Context, contractorID uuid.UUID) ([]models.Payment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PaymentStatus) error
	DeleteByQuote(ctx context.Context, quoteID uuid.UUID) error
	ListReceiptKeys(ctx context.Context) ([]string, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("stripe_payment_intent_id = ?", paymentIntentID).First(&payment).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// ListByQuote returns the full ledger for a quote in FIFO order.
func (r *repository) ListByQuote(ctx context.Context, quoteID uuid.UUID) ([]models.Payment, error) {
	var rows []models.Payment
	if err := r.db.WithContext(ctx).
		Where("quote_id = ?", quoteID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListPendingByContractor returns the confirmation queue across all of a
// contractor's quotes, oldest first.
func (r *repository) ListPendingByContractor(ctx context.Context, contractorID uuid.UUID) ([]models.Payment, error) {
	var rows []models.Payment
	if err := r.db.WithContext(ctx).
		Joins("JOIN quotes ON quotes.id = payments.quote_id").
		Where("quotes.contractor_id = ? AND payments.status = ?", contractorID, enums.PaymentStatusPending).
		Order("payments.created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PaymentStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *repository) DeleteByQuote(ctx context.Context, quoteID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("quote_id = ?", quoteID).Delete(&models.Payment{}).Error
}

// ListReceiptKeys returns every non-empty receipt reference on the ledger.
func (r *repository) ListReceiptKeys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("receipt_url IS NOT NULL AND receipt_url <> ''").
		Pluck("receipt_url", &keys).Error; err != nil {
		return nil, err
	}
	return keys, nil
}
