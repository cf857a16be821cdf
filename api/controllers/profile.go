package controllers

import (
	"net/http"

	"github.com/quoteflow/quoteflow-backend/api/middleware"
	"github.com/quoteflow/quoteflow-backend/api/responses"
	"github.com/quoteflow/quoteflow-backend/api/validators"
	"github.com/quoteflow/quoteflow-backend/internal/profiles"
	"github.com/quoteflow/quoteflow-backend/pkg/logger"
	"github.com/quoteflow/quoteflow-backend/pkg/types"
)

// ProfileGet returns the contractor's profile, creating it on first contact
// from the token identity.
func ProfileGet(svc *profiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := contractorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.Ensure(r.Context(), owner, middleware.UserEmailFromContext(r.Context()), "")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

type profileUpdateRequest struct {
	BusinessName      *string                  `json:"business_name,omitempty" validate:"omitempty,min=1"`
	LogoURL           *string                  `json:"logo_url,omitempty"`
	FollowUpSubject   *string                  `json:"follow_up_subject,omitempty"`
	FollowUpMessage   *string                  `json:"follow_up_message,omitempty"`
	FollowUpIntervals *types.FollowUpIntervals `json:"follow_up_intervals,omitempty"`
}

// ProfileUpdate applies partial profile changes, including the follow-up
// reminder configuration.
func ProfileUpdate(svc *profiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := contractorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload profileUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.Update(r.Context(), owner, profiles.UpdateInput{
			BusinessName:      payload.BusinessName,
			LogoURL:           payload.LogoURL,
			FollowUpSubject:   payload.FollowUpSubject,
			FollowUpMessage:   payload.FollowUpMessage,
			FollowUpIntervals: payload.FollowUpIntervals,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}
