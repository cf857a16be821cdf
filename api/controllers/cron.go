package controllers

import (
	"context"
	"net/http"

	"github.com/quoteflow/quoteflow-backend/api/responses"
	pkgerrors "github.com/quoteflow/quoteflow-backend/pkg/errors"
	"github.com/quoteflow/quoteflow-backend/pkg/logger"
)

type followUpRunner interface {
	Run(ctx context.Context) (int, error)
}

// CronFollowUp runs the follow-up reminder scan on demand. Exposed for
// external schedulers; guarded by the cron bearer secret.
func CronFollowUp(svc followUpRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "follow-up service unavailable"))
			return
		}

		sent, err := svc.Run(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"emailsSent": sent})
	}
}
