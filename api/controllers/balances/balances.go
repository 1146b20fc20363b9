package balances

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/inkhouse/backoffice/api/middleware"
	"github.com/inkhouse/backoffice/api/responses"
	"github.com/inkhouse/backoffice/api/validators"
	internalbalances "github.com/inkhouse/backoffice/internal/balances"
	"github.com/inkhouse/backoffice/pkg/logger"
)

type previousBalanceRequest struct {
	TotalAmount decimal.Decimal `json:"total_amount"`
	Notes       *string         `json:"notes,omitempty" validate:"omitempty,max=1000"`
	Supersede   bool            `json:"supersede,omitempty"`
}

type paymentRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method" validate:"required,payment_method"`
	PaymentDate   *string         `json:"payment_date,omitempty"`
	Notes         *string         `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// Summary returns the customer's outstanding balance breakdown.
func Summary(svc internalbalances.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := validators.URLParamUUID(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.GetBalanceSummary(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// AddPreviousBalance records carried-over debt for a customer.
func AddPreviousBalance(svc internalbalances.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := validators.URLParamUUID(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req previousBalanceRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		balance, err := svc.AddPreviousBalance(r.Context(), internalbalances.AddPreviousBalanceInput{
			CustomerID:  customerID,
			TotalAmount: req.TotalAmount,
			Notes:       validators.SanitizeOptional(req.Notes, 1000),
			Supersede:   req.Supersede,
			ActorID:     middleware.ActorIDFromContext(r.Context()),
			RequestID:   middleware.RequestIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, balance)
	}
}

// AddBalancePayment pays down the live previous balance.
func AddBalancePayment(svc internalbalances.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := validators.URLParamUUID(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req paymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		date, err := validators.ParseOptionalDate("payment_date", req.PaymentDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		balance, err := svc.AddBalancePayment(r.Context(), internalbalances.AddBalancePaymentInput{
			CustomerID:    customerID,
			Amount:        req.Amount,
			PaymentMethod: req.PaymentMethod,
			PaymentDate:   date,
			Notes:         validators.SanitizeOptional(req.Notes, 1000),
			ActorID:       middleware.ActorIDFromContext(r.Context()),
			RequestID:     middleware.RequestIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, balance)
	}
}

// Settle spreads one payment across the customer's debts, oldest first.
func Settle(svc internalbalances.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := validators.URLParamUUID(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req paymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		date, err := validators.ParseOptionalDate("payment_date", req.PaymentDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.SettleCustomer(r.Context(), internalbalances.SettleCustomerInput{
			CustomerID:    customerID,
			Amount:        req.Amount,
			PaymentMethod: req.PaymentMethod,
			PaymentDate:   date,
			Notes:         validators.SanitizeOptional(req.Notes, 1000),
			ActorID:       middleware.ActorIDFromContext(r.Context()),
			RequestID:     middleware.RequestIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
