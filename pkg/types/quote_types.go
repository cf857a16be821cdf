package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is one priced row on a quote.
type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

// LineItems is a slice marshaled as JSONB.
type LineItems []LineItem

// Value serializes the line items to JSON.
func (l LineItems) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan decodes JSONB into the line item slice.
func (l *LineItems) Scan(value interface{}) error {
	return scanJSON(value, l, "LineItems")
}

// PhotoList holds storage object paths attached to a quote.
type PhotoList []string

// Value serializes the photo list to JSON.
func (p PhotoList) Value() (driver.Value, error) {
	if p == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(p)
}

// Scan decodes JSONB into the photo list.
func (p *PhotoList) Scan(value interface{}) error {
	return scanJSON(value, p, "PhotoList")
}

// FollowUpInterval is one reminder rung on a contractor's ladder. The ID is
// assigned when the interval is configured and never changes afterwards, so
// already-sent markers survive edits to the day offsets.
type FollowUpInterval struct {
	ID      string `json:"id"`
	Days    int    `json:"days"`
	Enabled bool   `json:"enabled"`
}

// FollowUpIntervals is a slice marshaled as JSONB.
type FollowUpIntervals []FollowUpInterval

// Value serializes the intervals to JSON.
func (f FollowUpIntervals) Value() (driver.Value, error) {
	if f == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(f)
}

// Scan decodes JSONB into the interval slice.
func (f *FollowUpIntervals) Scan(value interface{}) error {
	return scanJSON(value, f, "FollowUpIntervals")
}

// FollowUpSentMap records which intervals already fired for a quote,
// keyed by interval ID with the send time as the value.
type FollowUpSentMap map[string]time.Time

// Value serializes the sent map to JSON.
func (f FollowUpSentMap) Value() (driver.Value, error) {
	if f == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(f)
}

// Scan decodes JSONB into the sent map.
func (f *FollowUpSentMap) Scan(value interface{}) error {
	return scanJSON(value, f, "FollowUpSentMap")
}

func scanJSON(value interface{}, dest any, label string) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("%s: unsupported Scan type %T", label, value)
	}
}
