package balances

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/inkhouse/backoffice/internal/orders"
	"github.com/inkhouse/backoffice/pkg/db/models"
)

// BalanceSummary is derived from the raw rows on every read; nothing in it
// is stored.
type BalanceSummary struct {
	CustomerID               uuid.UUID       `json:"customer_id"`
	PreviousBalanceTotal     decimal.Decimal `json:"previous_balance_total"`
	PreviousBalancePaid      decimal.Decimal `json:"previous_balance_paid"`
	PreviousBalanceRemaining decimal.Decimal `json:"previous_balance_remaining"`
	PendingOrdersAmount      decimal.Decimal `json:"pending_orders_amount"`
	PendingOrdersCount       int             `json:"pending_orders_count"`
	TotalBalance             decimal.Decimal `json:"total_balance"`
}

// AddPreviousBalanceInput opens a carried-over debt. Supersede replaces a
// live record that still has an outstanding remainder.
type AddPreviousBalanceInput struct {
	CustomerID  uuid.UUID
	TotalAmount decimal.Decimal
	Notes       *string
	Supersede   bool
	ActorID     uuid.UUID
	RequestID   string
}

// AddBalancePaymentInput pays down the live previous balance.
type AddBalancePaymentInput struct {
	CustomerID    uuid.UUID
	Amount        decimal.Decimal
	PaymentMethod string
	PaymentDate   *time.Time
	Notes         *string
	ActorID       uuid.UUID
	RequestID     string
}

// SettleCustomerInput spreads one payment across the customer's oldest
// open liabilities.
type SettleCustomerInput struct {
	CustomerID    uuid.UUID
	Amount        decimal.Decimal
	PaymentMethod string
	PaymentDate   *time.Time
	Notes         *string
	ActorID       uuid.UUID
	RequestID     string
}

// SettlementResult reports where a settlement went.
type SettlementResult struct {
	CustomerID      uuid.UUID                       `json:"customer_id"`
	Amount          decimal.Decimal                 `json:"amount"`
	Shares          []Share                         `json:"allocations"`
	PreviousBalance *models.CustomerPreviousBalance `json:"previous_balance,omitempty"`
	Orders          []orders.OrderView              `json:"orders"`
	Summary         BalanceSummary                  `json:"summary"`
}
