package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quoteflow/quoteflow-backend/pkg/types"
)

// QuoteEditSnapshot archives the before/after of one quote edit. Rows are
// append-only.
type QuoteEditSnapshot struct {
	ID                    uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	QuoteID               uuid.UUID       `gorm:"column:quote_id;type:uuid;not null;index"`
	EditVersion           int             `gorm:"column:edit_version;not null"`
	PreviousLineItems     types.LineItems `gorm:"column:previous_line_items;type:jsonb;serializer:json"`
	NewLineItems          types.LineItems `gorm:"column:new_line_items;type:jsonb;serializer:json"`
	PreviousTotalPrice    decimal.Decimal `gorm:"column:previous_total_price;type:numeric(12,2);not null"`
	NewTotalPrice         decimal.Decimal `gorm:"column:new_total_price;type:numeric(12,2);not null"`
	PreviousNotes         *string         `gorm:"column:previous_notes"`
	NewNotes              *string         `gorm:"column:new_notes"`
	PreviousDepositPct    int             `gorm:"column:previous_deposit_pct;not null"`
	NewDepositPct         int             `gorm:"column:new_deposit_pct;not null"`
	CreatedAt             time.Time       `gorm:"column:created_at;autoCreateTime"`
}
