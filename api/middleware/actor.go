package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/inkhouse/backoffice/api/responses"
	pkgerrors "github.com/inkhouse/backoffice/pkg/errors"
	"github.com/inkhouse/backoffice/pkg/logger"
)

const actorIDHeader = "X-Actor-Id"

// Actor reads X-Actor-Id. The header is trusted as-is; it is required on
// every method that can mutate state and optional on reads.
func Actor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(actorIDHeader))
			if raw == "" {
				if isMutating(r.Method) {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "X-Actor-Id header required"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}
			actorID, err := uuid.Parse(raw)
			if err != nil || actorID == uuid.Nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "X-Actor-Id must be a valid uuid"))
				return
			}
			ctx := WithActorID(r.Context(), actorID)
			if logg != nil {
				ctx = logg.WithActorID(ctx, actorID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}
