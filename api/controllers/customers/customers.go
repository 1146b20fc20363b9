package customers

import (
	"net/http"
	"strings"

	"github.com/inkhouse/backoffice/api/middleware"
	"github.com/inkhouse/backoffice/api/responses"
	"github.com/inkhouse/backoffice/api/validators"
	internalcustomers "github.com/inkhouse/backoffice/internal/customers"
	pkgerrors "github.com/inkhouse/backoffice/pkg/errors"
	"github.com/inkhouse/backoffice/pkg/logger"
	"github.com/inkhouse/backoffice/pkg/pagination"
)

type createCustomerRequest struct {
	DisplayName string  `json:"display_name" validate:"required,max=200"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=40"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	Address     *string `json:"address,omitempty" validate:"omitempty,max=500"`
}

// Create opens a new customer account.
func Create(svc internalcustomers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "customers service unavailable"))
			return
		}
		var req createCustomerRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customer, err := svc.Create(r.Context(), internalcustomers.CreateCustomerInput{
			DisplayName: validators.SanitizeString(req.DisplayName, 200),
			Phone:       validators.SanitizeOptional(req.Phone, 40),
			Email:       validators.SanitizeOptional(req.Email, 320),
			Address:     validators.SanitizeOptional(req.Address, 500),
			ActorID:     middleware.ActorIDFromContext(r.Context()),
			RequestID:   middleware.RequestIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, customer)
	}
}

// Get returns one customer.
func Get(svc internalcustomers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := validators.URLParamUUID(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customer, err := svc.Get(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customer)
	}
}

// List pages through customers with optional active/search filters.
func List(svc internalcustomers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		active, err := validators.ParseQueryBool(r, "active")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.List(r.Context(), internalcustomers.ListParams{
			Params: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
			Active: active,
			Search: validators.SanitizeString(r.URL.Query().Get("q"), 100),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Deactivate soft-deletes a customer.
func Deactivate(svc internalcustomers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := validators.URLParamUUID(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customer, err := svc.Deactivate(r.Context(), internalcustomers.DeactivateCustomerInput{
			CustomerID: customerID,
			ActorID:    middleware.ActorIDFromContext(r.Context()),
			RequestID:  middleware.RequestIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customer)
	}
}
