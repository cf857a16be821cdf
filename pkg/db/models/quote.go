package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quoteflow/quoteflow-backend/pkg/enums"
	"github.com/quoteflow/quoteflow-backend/pkg/types"
)

// Quote is a priced proposal a contractor sends to a customer. Status writes
// are guarded by Version; writers must carry the value they read and bump it
// on save.
type Quote struct {
	ID                uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ContractorID      uuid.UUID         `gorm:"column:contractor_id;type:uuid;not null;index"`
	CustomerID        *uuid.UUID        `gorm:"column:customer_id;type:uuid;index"`
	Name              string            `gorm:"column:name;not null"`
	LineItems         types.LineItems   `gorm:"column:line_items;type:jsonb;serializer:json"`
	Photos            types.PhotoList   `gorm:"column:photos;type:jsonb;serializer:json"`
	Notes             *string           `gorm:"column:notes"`
	TotalPrice        decimal.Decimal   `gorm:"column:total_price;type:numeric(12,2);not null"`
	DepositPercentage int               `gorm:"column:deposit_percentage;not null;default:0"`
	Status            enums.QuoteStatus `gorm:"column:status;type:quote_status;not null;default:'draft'"`
	SignatureName     *string           `gorm:"column:signature_name"`
	SignedAt          *time.Time        `gorm:"column:signed_at"`
	ViewedAt          *time.Time        `gorm:"column:viewed_at"`
	EditVersion       int               `gorm:"column:edit_version;not null;default:1"`
	Version           int               `gorm:"column:version;not null;default:1"`
	// FollowUp2dSent and friends mirror the sent map for the three built-in
	// intervals. Both are written on send.
	FollowUp2dSent  bool                  `gorm:"column:follow_up_2d;not null;default:false"`
	FollowUp7dSent  bool                  `gorm:"column:follow_up_7d;not null;default:false"`
	FollowUp15dSent bool                  `gorm:"column:follow_up_15d;not null;default:false"`
	FollowUpsSent   types.FollowUpSentMap `gorm:"column:follow_ups_sent;type:jsonb;serializer:json"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// DepositAmount returns the dollar amount of the configured deposit.
func (q Quote) DepositAmount() decimal.Decimal {
	if q.DepositPercentage <= 0 {
		return decimal.Zero
	}
	pct := decimal.NewFromInt(int64(q.DepositPercentage)).Div(decimal.NewFromInt(100))
	return q.TotalPrice.Mul(pct)
}

// HasSignature reports whether the quote carries a recorded signature.
func (q Quote) HasSignature() bool {
	return q.SignatureName != nil && *q.SignatureName != ""
}
