package enums

import "fmt"

// QuoteStatus tracks the lifecycle of a quote from draft to fully paid.
type QuoteStatus string

const (
	QuoteStatusDraft       QuoteStatus = "draft"
	QuoteStatusSent        QuoteStatus = "sent"
	QuoteStatusViewed      QuoteStatus = "viewed"
	QuoteStatusSigned      QuoteStatus = "signed"
	QuoteStatusPaidDeposit QuoteStatus = "paid_deposit"
	QuoteStatusPaidFull    QuoteStatus = "paid_full"
)

var validQuoteStatuses = []QuoteStatus{
	QuoteStatusDraft,
	QuoteStatusSent,
	QuoteStatusViewed,
	QuoteStatusSigned,
	QuoteStatusPaidDeposit,
	QuoteStatusPaidFull,
}

// String implements fmt.Stringer.
func (q QuoteStatus) String() string {
	return string(q)
}

// IsValid reports whether the value is a known QuoteStatus.
func (q QuoteStatus) IsValid() bool {
	for _, candidate := range validQuoteStatuses {
		if candidate == q {
			return true
		}
	}
	return false
}

// IsSigned reports whether the quote has reached the signed stage or beyond.
func (q QuoteStatus) IsSigned() bool {
	return q == QuoteStatusSigned || q == QuoteStatusPaidDeposit || q == QuoteStatusPaidFull
}

// ParseQuoteStatus converts raw input into a QuoteStatus.
func ParseQuoteStatus(value string) (QuoteStatus, error) {
	for _, candidate := range validQuoteStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid quote status %q", value)
}
