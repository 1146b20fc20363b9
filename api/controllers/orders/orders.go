package orders

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/inkhouse/backoffice/api/middleware"
	"github.com/inkhouse/backoffice/api/responses"
	"github.com/inkhouse/backoffice/api/validators"
	internalorders "github.com/inkhouse/backoffice/internal/orders"
	"github.com/inkhouse/backoffice/pkg/enums"
	"github.com/inkhouse/backoffice/pkg/logger"
	"github.com/inkhouse/backoffice/pkg/pagination"
)

// PaymentRequest is the wire shape of a payment event. Amount accepts a JSON
// string or number.
type PaymentRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method" validate:"omitempty,payment_method"`
	PaymentDate   *string         `json:"payment_date,omitempty"`
	Notes         *string         `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

func (p PaymentRequest) toInput() (internalorders.PaymentInput, error) {
	date, err := validators.ParseOptionalDate("payment_date", p.PaymentDate)
	if err != nil {
		return internalorders.PaymentInput{}, err
	}
	return internalorders.PaymentInput{
		Amount:        p.Amount,
		PaymentMethod: p.PaymentMethod,
		PaymentDate:   date,
		Notes:         validators.SanitizeOptional(p.Notes, 1000),
	}, nil
}

type createOrderRequest struct {
	CustomerID            string          `json:"customer_id" validate:"required,uuid"`
	TotalAmount           decimal.Decimal `json:"total_amount"`
	OrderNumber           string          `json:"order_number,omitempty" validate:"omitempty,max=40"`
	EstimatedDeliveryDate *string         `json:"estimated_delivery_date,omitempty"`
	Notes                 *string         `json:"notes,omitempty" validate:"omitempty,max=1000"`
	InitialPayment        *PaymentRequest `json:"initial_payment,omitempty"`
}

type transitionRequest struct {
	Status string `json:"status" validate:"required"`
}

// Create opens an order, optionally with an initial payment.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customerID, err := validators.ParseUUID("customer_id", req.CustomerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		eta, err := validators.ParseOptionalDate("estimated_delivery_date", req.EstimatedDeliveryDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := internalorders.CreateOrderInput{
			CustomerID:            customerID,
			TotalAmount:           req.TotalAmount,
			OrderNumber:           validators.SanitizeString(req.OrderNumber, 40),
			EstimatedDeliveryDate: eta,
			Notes:                 validators.SanitizeOptional(req.Notes, 1000),
			ActorID:               middleware.ActorIDFromContext(r.Context()),
			RequestID:             middleware.RequestIDFromContext(r.Context()),
		}
		if req.InitialPayment != nil {
			payment, err := req.InitialPayment.toInput()
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.InitialPayment = &payment
		}
		order, err := svc.CreateOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// Summary returns the order with its payment history.
func Summary(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.URLParamUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.GetOrderSummary(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// AddPayment records a payment against one order.
func AddPayment(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.URLParamUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req PaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payment, err := req.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.AddPayment(r.Context(), internalorders.AddPaymentInput{
			OrderID:   orderID,
			Payment:   payment,
			ActorID:   middleware.ActorIDFromContext(r.Context()),
			RequestID: middleware.RequestIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// TransitionStatus moves the order to the requested status.
func TransitionStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.URLParamUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req transitionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.TransitionStatus(r.Context(), internalorders.TransitionStatusInput{
			OrderID:   orderID,
			Target:    enums.OrderStatus(strings.TrimSpace(req.Status)),
			ActorID:   middleware.ActorIDFromContext(r.Context()),
			RequestID: middleware.RequestIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Delete removes a pending order and its payments.
func Delete(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.URLParamUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteOrder(r.Context(), internalorders.DeleteOrderInput{
			OrderID:   orderID,
			ActorID:   middleware.ActorIDFromContext(r.Context()),
			RequestID: middleware.RequestIDFromContext(r.Context()),
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ListByCustomer pages through a customer's orders, newest first.
func ListByCustomer(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := validators.URLParamUUID(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := internalorders.ListParams{
			Params: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, validators.InvalidQuery("status", err))
				return
			}
			params.Status = &status
		}
		list, err := svc.ListOrdersByCustomer(r.Context(), customerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
