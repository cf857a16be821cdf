package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/quoteflow/quoteflow-backend/api/responses"
	"github.com/quoteflow/quoteflow-backend/api/validators"
	"github.com/quoteflow/quoteflow-backend/internal/payments"
	"github.com/quoteflow/quoteflow-backend/internal/quotes"
	"github.com/quoteflow/quoteflow-backend/pkg/logger"
)

// PublicQuoteGet serves the customer-facing quote page data. Drafts 404.
func PublicQuoteGet(svc *quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quoteID, err := pathUUID(r, "quoteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.GetPublic(r.Context(), quoteID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

// PublicQuoteViewed records the first customer open and notifies the
// contractor. Repeat calls are no-ops.
func PublicQuoteViewed(svc *quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quoteID, err := pathUUID(r, "quoteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.MarkViewed(r.Context(), quoteID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

type quoteSignRequest struct {
	Name string `json:"name" validate:"required,min=1"`
}

// PublicQuoteSign records the customer's signature.
func PublicQuoteSign(svc *quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quoteID, err := pathUUID(r, "quoteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload quoteSignRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.Sign(r.Context(), quoteID, payload.Name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

type receiptUploadRequest struct {
	ContentType string `json:"content_type" validate:"required,min=1"`
}

// PublicReceiptUpload issues a signed URL so the customer can attach a
// receipt to a payment claim without the file passing through the API.
func PublicReceiptUpload(svc *quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quoteID, err := pathUUID(r, "quoteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload receiptUploadRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		upload, err := svc.ReceiptUploadURL(r.Context(), quoteID, payload.ContentType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, upload)
	}
}

type paymentClaimRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method" validate:"required,min=1"`
	Notes      *string         `json:"notes,omitempty"`
	ReceiptURL *string         `json:"receipt_url,omitempty"`
}

// PublicPaymentClaim records a customer's claim of an offline payment as a
// pending ledger entry awaiting contractor confirmation.
func PublicPaymentClaim(svc *payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quoteID, err := pathUUID(r, "quoteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload paymentClaimRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.SubmitClaim(r.Context(), payments.SubmitClaimInput{
			QuoteID:    quoteID,
			Amount:     payload.Amount,
			Method:     payments.NormalizeCustomMethod(payload.Method),
			Notes:      payload.Notes,
			ReceiptURL: payload.ReceiptURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payment)
	}
}
