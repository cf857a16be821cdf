package quotes

import (
	"github.com/shopspring/decimal"

	"github.com/quoteflow/quoteflow-backend/pkg/enums"
)

// paymentEpsilon absorbs sub-cent drift between the confirmed total and the
// quote price. Fixed at one cent.
var paymentEpsilon = decimal.NewFromFloat(0.01)

// DeriveStatus computes the payment-facing status of a quote from its
// confirmed ledger total. Unsigned quotes keep their current status; a full
// payment wins over the deposit threshold regardless of deposit settings.
// The function is pure and idempotent: deriving twice from the same inputs
// yields the same status.
func DeriveStatus(current enums.QuoteStatus, confirmedTotal, totalPrice decimal.Decimal, depositPct int, hasSignature bool) enums.QuoteStatus {
	if !hasSignature {
		return current
	}

	if confirmedTotal.GreaterThanOrEqual(totalPrice.Sub(paymentEpsilon)) {
		return enums.QuoteStatusPaidFull
	}

	if depositPct > 0 {
		pct := decimal.NewFromInt(int64(depositPct)).Div(decimal.NewFromInt(100))
		depositAmount := totalPrice.Mul(pct)
		if confirmedTotal.GreaterThanOrEqual(depositAmount) && confirmedTotal.GreaterThan(decimal.Zero) {
			return enums.QuoteStatusPaidDeposit
		}
	}

	return enums.QuoteStatusSigned
}
