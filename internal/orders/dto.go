package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/inkhouse/backoffice/pkg/db/models"
	"github.com/inkhouse/backoffice/pkg/enums"
	"github.com/inkhouse/backoffice/pkg/pagination"
)

// PaymentInput describes one payment event against an order.
type PaymentInput struct {
	Amount        decimal.Decimal
	PaymentMethod string
	PaymentDate   *time.Time
	Notes         *string
}

// CreateOrderInput carries the fields accepted when opening an order. An
// empty OrderNumber asks the service to generate one.
type CreateOrderInput struct {
	CustomerID            uuid.UUID
	TotalAmount           decimal.Decimal
	OrderNumber           string
	EstimatedDeliveryDate *time.Time
	Notes                 *string
	InitialPayment        *PaymentInput
	ActorID               uuid.UUID
	RequestID             string
}

// AddPaymentInput appends a payment to an existing order.
type AddPaymentInput struct {
	OrderID   uuid.UUID
	Payment   PaymentInput
	ActorID   uuid.UUID
	RequestID string
}

// TransitionStatusInput moves an order one step along its lifecycle.
type TransitionStatusInput struct {
	OrderID   uuid.UUID
	Target    enums.OrderStatus
	ActorID   uuid.UUID
	RequestID string
}

// DeleteOrderInput removes a pending order.
type DeleteOrderInput struct {
	OrderID   uuid.UUID
	ActorID   uuid.UUID
	RequestID string
}

// OrderView is the read shape of an order with its derived balance.
type OrderView struct {
	ID                    uuid.UUID         `json:"id"`
	CustomerID            uuid.UUID         `json:"customer_id"`
	OrderNumber           string            `json:"order_number"`
	Status                enums.OrderStatus `json:"status"`
	TotalAmount           decimal.Decimal   `json:"total_amount"`
	AmountPaid            decimal.Decimal   `json:"amount_paid"`
	BalanceAmount         decimal.Decimal   `json:"balance_amount"`
	EstimatedDeliveryDate *time.Time        `json:"estimated_delivery_date,omitempty"`
	Notes                 *string           `json:"notes,omitempty"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
	CreatedBy             uuid.UUID         `json:"created_by"`
	UpdatedBy             uuid.UUID         `json:"updated_by"`
}

// NewOrderView projects a stored order.
func NewOrderView(order models.Order) OrderView {
	return OrderView{
		ID:                    order.ID,
		CustomerID:            order.CustomerID,
		OrderNumber:           order.OrderNumber,
		Status:                order.Status,
		TotalAmount:           order.TotalAmount,
		AmountPaid:            order.AmountPaid,
		BalanceAmount:         order.BalanceAmount(),
		EstimatedDeliveryDate: order.EstimatedDeliveryDate,
		Notes:                 order.Notes,
		CreatedAt:             order.CreatedAt,
		UpdatedAt:             order.UpdatedAt,
		CreatedBy:             order.CreatedBy,
		UpdatedBy:             order.UpdatedBy,
	}
}

// OrderSummary is an order with every payment recorded against it.
type OrderSummary struct {
	Order        OrderView             `json:"order"`
	Payments     []models.OrderPayment `json:"payments"`
	PaymentCount int                   `json:"payment_count"`
}

// ListParams filters the per-customer order listing.
type ListParams struct {
	pagination.Params
	Status *enums.OrderStatus
}

// OrderList is one page of a customer's orders, newest first.
type OrderList struct {
	Orders     []OrderView `json:"orders"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// AppliedPayment reports the outcome of ApplyPayment.
type AppliedPayment struct {
	Order         models.Order
	Payment       models.OrderPayment
	AutoDelivered bool
}
