package activity

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/inkhouse/backoffice/api/responses"
	"github.com/inkhouse/backoffice/api/validators"
	internalactivity "github.com/inkhouse/backoffice/internal/activity"
	"github.com/inkhouse/backoffice/pkg/enums"
	"github.com/inkhouse/backoffice/pkg/logger"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// List returns a subject's activity trail, newest first.
func List(svc internalactivity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subjectType, err := enums.ParseSubjectType(strings.TrimSpace(chi.URLParam(r, "subjectType")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, validators.InvalidQuery("subjectType", err))
			return
		}
		subjectID, err := validators.URLParamUUID(r, "subjectId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultLimit, 1, maxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entries, err := svc.List(r.Context(), subjectType, subjectID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"entries": entries})
	}
}
