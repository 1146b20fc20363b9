package balances

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/inkhouse/backoffice/pkg/db/models"
	"github.com/inkhouse/backoffice/pkg/enums"
)

// TargetKind names the ledger a settlement share lands in.
type TargetKind string

const (
	TargetPreviousBalance TargetKind = "previous_balance"
	TargetOrder           TargetKind = "order"
)

// Target is one open liability, listed oldest first.
type Target struct {
	Kind        TargetKind      `json:"kind"`
	ID          uuid.UUID       `json:"id"`
	Label       string          `json:"label"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// Share is the part of a payment assigned to one target.
type Share struct {
	Target
	Amount decimal.Decimal `json:"amount"`
}

// Allocation is the outcome of Allocate. Unallocated is what remained after
// every target was cleared.
type Allocation struct {
	Shares      []Share
	Unallocated decimal.Decimal
}

// Allocate fills targets in order until amount runs out. Targets with no
// outstanding balance are skipped.
func Allocate(amount decimal.Decimal, targets []Target) Allocation {
	remaining := amount
	var shares []Share
	for _, target := range targets {
		if !remaining.IsPositive() {
			break
		}
		if !target.Outstanding.IsPositive() {
			continue
		}
		take := decimal.Min(remaining, target.Outstanding)
		shares = append(shares, Share{Target: target, Amount: take})
		remaining = remaining.Sub(take)
	}
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return Allocation{Shares: shares, Unallocated: remaining}
}

// Outstanding sums the open amount over targets.
func Outstanding(targets []Target) decimal.Decimal {
	total := decimal.Zero
	for _, target := range targets {
		if target.Outstanding.IsPositive() {
			total = total.Add(target.Outstanding)
		}
	}
	return total
}

// settlementTargets orders liabilities oldest first: the carried-over
// balance predates every order in the system.
func settlementTargets(live *models.CustomerPreviousBalance, open []models.Order) []Target {
	targets := make([]Target, 0, len(open)+1)
	if live != nil && live.Remaining().IsPositive() {
		targets = append(targets, Target{
			Kind:        TargetPreviousBalance,
			ID:          live.ID,
			Label:       "Previous balance",
			Outstanding: live.Remaining(),
		})
	}
	for _, order := range open {
		if order.Status == enums.OrderStatusDelivered || !order.BalanceAmount().IsPositive() {
			continue
		}
		targets = append(targets, Target{
			Kind:        TargetOrder,
			ID:          order.ID,
			Label:       order.OrderNumber,
			Outstanding: order.BalanceAmount(),
		})
	}
	return targets
}

// Summarize derives a BalanceSummary from the live previous balance (nil
// when none exists) and the customer's undelivered orders.
func Summarize(customerID uuid.UUID, live *models.CustomerPreviousBalance, open []models.Order) BalanceSummary {
	summary := BalanceSummary{
		CustomerID:               customerID,
		PreviousBalanceTotal:     decimal.Zero,
		PreviousBalancePaid:      decimal.Zero,
		PreviousBalanceRemaining: decimal.Zero,
		PendingOrdersAmount:      decimal.Zero,
	}
	if live != nil {
		summary.PreviousBalanceTotal = live.TotalAmount
		summary.PreviousBalancePaid = live.AmountPaid
		summary.PreviousBalanceRemaining = live.Remaining()
	}
	for _, order := range open {
		if order.Status == enums.OrderStatusDelivered {
			continue
		}
		balance := order.BalanceAmount()
		summary.PendingOrdersAmount = summary.PendingOrdersAmount.Add(balance)
		if balance.IsPositive() {
			summary.PendingOrdersCount++
		}
	}
	summary.TotalBalance = summary.PreviousBalanceRemaining.Add(summary.PendingOrdersAmount)
	return summary
}
