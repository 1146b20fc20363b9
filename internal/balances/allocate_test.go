package balances

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkhouse/backoffice/pkg/db/models"
	"github.com/inkhouse/backoffice/pkg/enums"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestAllocateFillsOldestFirst(t *testing.T) {
	targets := []Target{
		{Kind: TargetPreviousBalance, ID: uuid.New(), Outstanding: dec("500")},
		{Kind: TargetOrder, ID: uuid.New(), Outstanding: dec("0")},
		{Kind: TargetOrder, ID: uuid.New(), Outstanding: dec("300")},
		{Kind: TargetOrder, ID: uuid.New(), Outstanding: dec("400")},
	}

	got := Allocate(dec("1000"), targets)
	require.Len(t, got.Shares, 3)
	assert.True(t, got.Shares[0].Amount.Equal(dec("500")))
	assert.Equal(t, targets[0].ID, got.Shares[0].ID)
	assert.True(t, got.Shares[1].Amount.Equal(dec("300")))
	assert.Equal(t, targets[2].ID, got.Shares[1].ID)
	assert.True(t, got.Shares[2].Amount.Equal(dec("200")))
	assert.True(t, got.Unallocated.IsZero())

	sum := decimal.Zero
	for _, share := range got.Shares {
		sum = sum.Add(share.Amount)
	}
	assert.True(t, sum.Equal(dec("1000")))
}

func TestAllocateReportsRemainder(t *testing.T) {
	got := Allocate(dec("50.25"), []Target{{Kind: TargetOrder, ID: uuid.New(), Outstanding: dec("20.10")}})
	require.Len(t, got.Shares, 1)
	assert.True(t, got.Unallocated.Equal(dec("30.15")))

	empty := Allocate(dec("10"), nil)
	assert.Empty(t, empty.Shares)
	assert.True(t, empty.Unallocated.Equal(dec("10")))
	assert.True(t, Outstanding(nil).IsZero())
}

func TestSummarize(t *testing.T) {
	customerID := uuid.New()
	now := time.Now()
	live := &models.CustomerPreviousBalance{TotalAmount: dec("5000"), AmountPaid: dec("2000")}
	open := []models.Order{
		{Status: enums.OrderStatusPending, TotalAmount: dec("1000"), AmountPaid: dec("300"), CreatedAt: now},
		{Status: enums.OrderStatusCompleted, TotalAmount: dec("200"), AmountPaid: dec("200"), CreatedAt: now},
		{Status: enums.OrderStatusDelivered, TotalAmount: dec("900"), AmountPaid: dec("900"), CreatedAt: now},
	}

	summary := Summarize(customerID, live, open)
	assert.True(t, summary.PreviousBalanceTotal.Equal(dec("5000")))
	assert.True(t, summary.PreviousBalancePaid.Equal(dec("2000")))
	assert.True(t, summary.PreviousBalanceRemaining.Equal(dec("3000")))
	assert.True(t, summary.PendingOrdersAmount.Equal(dec("700")))
	assert.Equal(t, 1, summary.PendingOrdersCount)
	assert.True(t, summary.TotalBalance.Equal(dec("3700")))

	none := Summarize(customerID, nil, nil)
	assert.True(t, none.TotalBalance.IsZero())
	assert.True(t, none.PreviousBalanceTotal.IsZero())
}

func TestSettlementTargetsSkipSettledLiabilities(t *testing.T) {
	live := &models.CustomerPreviousBalance{ID: uuid.New(), TotalAmount: dec("100"), AmountPaid: dec("100")}
	open := []models.Order{
		{ID: uuid.New(), OrderNumber: "ORD-000001", Status: enums.OrderStatusInProgress, TotalAmount: dec("50"), AmountPaid: dec("50")},
		{ID: uuid.New(), OrderNumber: "ORD-000002", Status: enums.OrderStatusPending, TotalAmount: dec("80"), AmountPaid: dec("30")},
	}
	targets := settlementTargets(live, open)
	require.Len(t, targets, 1)
	assert.Equal(t, "ORD-000002", targets[0].Label)
	assert.True(t, targets[0].Outstanding.Equal(dec("50")))
}
