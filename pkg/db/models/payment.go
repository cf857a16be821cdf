package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quoteflow/quoteflow-backend/pkg/enums"
)

// Payment is one ledger entry against a quote. Entries are append-only;
// rejection flips the status but never removes the row. Card payments carry
// the originating Stripe payment intent, whose uniqueness blocks double
// insertion on webhook redelivery.
type Payment struct {
	ID                    uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	QuoteID               uuid.UUID           `gorm:"column:quote_id;type:uuid;not null;index"`
	Amount                decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Method                enums.PaymentMethod `gorm:"column:method;type:payment_method;not null;default:'other'"`
	Status                enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	Notes                 *string             `gorm:"column:notes"`
	ReceiptURL            *string             `gorm:"column:receipt_url"`
	StripePaymentIntentID *string             `gorm:"column:stripe_payment_intent_id;unique"`
	CreatedAt             time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
