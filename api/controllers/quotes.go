package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quoteflow/quoteflow-backend/api/responses"
	"github.com/quoteflow/quoteflow-backend/api/validators"
	"github.com/quoteflow/quoteflow-backend/internal/payments"
	"github.com/quoteflow/quoteflow-backend/internal/quotes"
	"github.com/quoteflow/quoteflow-backend/pkg/db/models"
	pkgerrors "github.com/quoteflow/quoteflow-backend/pkg/errors"
	"github.com/quoteflow/quoteflow-backend/pkg/logger"
	"github.com/quoteflow/quoteflow-backend/pkg/pagination"
	"github.com/quoteflow/quoteflow-backend/pkg/types"
)

type quoteCreateRequest struct {
	Name              string          `json:"name" validate:"required,min=1"`
	CustomerID        *uuid.UUID      `json:"customer_id,omitempty"`
	LineItems         types.LineItems `json:"line_items,omitempty"`
	Photos            types.PhotoList `json:"photos,omitempty"`
	Notes             *string         `json:"notes,omitempty"`
	TotalPrice        decimal.Decimal `json:"total_price"`
	DepositPercentage int             `json:"deposit_percentage" validate:"min=0,max=100"`
	SendNow           bool            `json:"send_now"`
}

// QuoteCreate persists a new quote, optionally sending it immediately.
func QuoteCreate(svc *quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := contractorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload quoteCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.Create(r.Context(), quotes.CreateInput{
			ContractorID:      owner,
			CustomerID:        payload.CustomerID,
			Name:              payload.Name,
			LineItems:         payload.LineItems,
			Photos:            payload.Photos,
			Notes:             payload.Notes,
			TotalPrice:        payload.TotalPrice,
			DepositPercentage: payload.DepositPercentage,
			SendNow:           payload.SendNow,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, quote)
	}
}

type quoteListResponse struct {
	Items      []models.Quote `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// QuoteList pages through the contractor's quotes, newest first.
func QuoteList(svc *quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := contractorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		rows, next, err := svc.List(r.Context(), owner, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := quoteListResponse{Items: rows}
		if resp.Items == nil {
			resp.Items = []models.Quote{}
		}
		if next != nil {
			resp.NextCursor = pagination.EncodeCursor(*next)
		}
		responses.WriteSuccess(w, resp)
	}
}

// QuoteGet returns one quote the contractor owns.
func QuoteGet(svc *quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := contractorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quoteID, err := pathUUID(r, "quoteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.Get(r.Context(), owner, quoteID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

type quoteUpdateRequest struct {
	Name              *string          `json:"name,omitempty" validate:"omitempty,min=1"`
	LineItems         *types.LineItems `json:"line_items,omitempty"`
	Photos            *types.PhotoList `json:"photos,omitempty"`
	Notes             *string          `json:"notes,omitempty"`
	TotalPrice        *decimal.Decimal `json:"total_price,omitempty"`
	DepositPercentage *int             `json:"deposit_percentage,omitempty" validate:"omitempty,min=0,max=100"`
}

// QuoteUpdate edits a quote, archiving a snapshot of the previous revision.
func QuoteUpdate(svc *quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := contractorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quoteID, err := pathUUID(r, "quoteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload quoteUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.Edit(r.Context(), owner, quoteID, quotes.EditInput{
			Name:              payload.Name,
			LineItems:         payload.LineItems,
			Photos:            payload.Photos,
			Notes:             payload.Notes,
			TotalPrice:        payload.TotalPrice,
			DepositPercentage: payload.DepositPercentage,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

// QuoteSend transitions a draft to sent and emails the customer.
func QuoteSend(svc *quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := contractorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quoteID, err := pathUUID(r, "quoteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.Send(r.Context(), owner, quoteID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

// QuoteDelete cascades the quote, its ledger, snapshots and stored objects.
func QuoteDelete(svc *quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := contractorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quoteID, err := pathUUID(r, "quoteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), owner, quoteID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// QuoteSnapshots lists the edit history for a quote.
func QuoteSnapshots(svc *quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := contractorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quoteID, err := pathUUID(r, "quoteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshots, err := svc.Snapshots(r.Context(), owner, quoteID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshots)
	}
}

// QuoteLedger returns the payment ledger and derived totals for a quote.
func QuoteLedger(svc *payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		owner, err := contractorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quoteID, err := pathUUID(r, "quoteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Ledger(r.Context(), owner, quoteID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
