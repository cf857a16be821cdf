package payments

import (
	"github.com/shopspring/decimal"

	"github.com/quoteflow/quoteflow-backend/pkg/db/models"
	"github.com/quoteflow/quoteflow-backend/pkg/enums"
)

// ConfirmedTotal sums the confirmed entries of a ledger. Every status
// mutation recomputes from the full ledger through this one function;
// nothing increments totals incrementally.
func ConfirmedTotal(entries []models.Payment) decimal.Decimal {
	total := decimal.Zero
	for _, entry := range entries {
		if entry.Status == enums.PaymentStatusConfirmed {
			total = total.Add(entry.Amount)
		}
	}
	return total
}

// OpenTotal sums pending plus confirmed entries. Used by the intake's
// remaining-balance check so an unreviewed claim still reserves its amount.
func OpenTotal(entries []models.Payment) decimal.Decimal {
	total := decimal.Zero
	for _, entry := range entries {
		switch entry.Status {
		case enums.PaymentStatusConfirmed, enums.PaymentStatusPending:
			total = total.Add(entry.Amount)
		}
	}
	return total
}
