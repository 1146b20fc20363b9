package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/inkhouse/backoffice/internal/activity"
	"github.com/inkhouse/backoffice/pkg/db/models"
	"github.com/inkhouse/backoffice/pkg/enums"
)

const (
	LedgerOrders           = "orders"
	LedgerPreviousBalances = "previous_balances"

	defaultBatchSize = 200
)

// Drift is one row whose stored amount_paid disagrees with its payment rows.
type Drift struct {
	Ledger     string          `json:"ledger"`
	ID         uuid.UUID       `json:"id"`
	CustomerID uuid.UUID       `json:"customer_id"`
	Total      decimal.Decimal `json:"total_amount"`
	Stored     decimal.Decimal `json:"stored_amount_paid"`
	Recomputed decimal.Decimal `json:"recomputed_amount_paid"`
	Repaired   bool            `json:"repaired"`
}

// Report summarizes one pass over a ledger.
type Report struct {
	Ledger  string  `json:"ledger"`
	Scanned int     `json:"scanned"`
	Drifts  []Drift `json:"drifts"`
}

// Repaired counts the drifts fixed during the pass.
func (r *Report) Repaired() int {
	n := 0
	for _, d := range r.Drifts {
		if d.Repaired {
			n++
		}
	}
	return n
}

// Check audits one ledger. Per-row failures are aggregated into the returned
// error while the report still carries every row that was examined.
type Check interface {
	Name() string
	Run(ctx context.Context, repair bool) (*Report, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CheckParams wires the ledger checks.
type CheckParams struct {
	Repo      Repository
	Tx        txRunner
	Activity  activity.Service
	ActorID   uuid.UUID
	BatchSize int
}

func (p CheckParams) validate() error {
	if p.Repo == nil {
		return fmt.Errorf("audit repository required")
	}
	if p.Tx == nil {
		return fmt.Errorf("transaction runner required")
	}
	if p.Activity == nil {
		return fmt.Errorf("activity service required")
	}
	if p.ActorID == uuid.Nil {
		return fmt.Errorf("audit actor id required")
	}
	return nil
}

func (p CheckParams) batchSize() int {
	if p.BatchSize <= 0 {
		return defaultBatchSize
	}
	return p.BatchSize
}

type orderCheck struct {
	params CheckParams
}

// NewOrderCheck audits orders.amount_paid against order_payments.
func NewOrderCheck(params CheckParams) (Check, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &orderCheck{params: params}, nil
}

func (c *orderCheck) Name() string { return LedgerOrders }

func (c *orderCheck) Run(ctx context.Context, repair bool) (*Report, error) {
	report := &Report{Ledger: LedgerOrders}
	var errs error
	after := uuid.Nil
	for {
		batch, err := c.params.Repo.OrderBatch(ctx, after, c.params.batchSize())
		if err != nil {
			return report, multierr.Append(errs, fmt.Errorf("load orders: %w", err))
		}
		if len(batch) == 0 {
			return report, errs
		}
		ids := make([]uuid.UUID, 0, len(batch))
		for _, o := range batch {
			ids = append(ids, o.ID)
		}
		payments, err := c.params.Repo.OrderPayments(ctx, ids)
		if err != nil {
			return report, multierr.Append(errs, fmt.Errorf("load order payments: %w", err))
		}
		sums := sumOrderPayments(payments)

		for _, o := range batch {
			report.Scanned++
			recomputed := sums[o.ID]
			if o.AmountPaid.Equal(recomputed) {
				continue
			}
			drift, err := c.confirm(ctx, o.ID, repair)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("confirm order %s: %w", o.OrderNumber, err))
				drift = &Drift{
					Ledger:     LedgerOrders,
					ID:         o.ID,
					CustomerID: o.CustomerID,
					Total:      o.TotalAmount,
					Stored:     o.AmountPaid,
					Recomputed: recomputed,
				}
			}
			if drift != nil {
				report.Drifts = append(report.Drifts, *drift)
			}
		}
		after = batch[len(batch)-1].ID
	}
}

// confirm re-reads a suspected drift under a row lock, since the batch and
// its payments were read by separate queries. A drift that vanished because a
// payment landed in between yields nil. With repair the stored total is
// rewritten in the same transaction.
func (c *orderCheck) confirm(ctx context.Context, id uuid.UUID, repair bool) (*Drift, error) {
	var drift *Drift
	err := c.params.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := c.params.Repo.WithTx(tx)
		order, err := repo.LockOrder(ctx, id)
		if err != nil {
			return err
		}
		payments, err := repo.OrderPayments(ctx, []uuid.UUID{id})
		if err != nil {
			return err
		}
		recomputed := sumOrderPayments(payments)[id]
		if order.AmountPaid.Equal(recomputed) {
			return nil
		}
		drift = &Drift{
			Ledger:     LedgerOrders,
			ID:         order.ID,
			CustomerID: order.CustomerID,
			Total:      order.TotalAmount,
			Stored:     order.AmountPaid,
			Recomputed: recomputed,
		}
		if !repair {
			return nil
		}
		if recomputed.GreaterThan(order.TotalAmount) {
			return fmt.Errorf("payments %s exceed total %s", recomputed.StringFixed(2), order.TotalAmount.StringFixed(2))
		}
		rows, err := repo.SetOrderAmountPaid(ctx, id, order.AmountPaid, recomputed)
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("amount_paid changed during repair")
		}
		if _, err := c.params.Activity.Record(ctx, tx, activity.RecordInput{
			SubjectType: enums.SubjectTypeOrder,
			SubjectID:   order.ID,
			Action:      enums.ActivityLedgerRepaired,
			Details:     fmt.Sprintf("Order %s amount paid corrected from %s to %s", order.OrderNumber, order.AmountPaid.StringFixed(2), recomputed.StringFixed(2)),
			Metadata: map[string]any{
				"ledger":                 LedgerOrders,
				"stored_amount_paid":     order.AmountPaid.StringFixed(2),
				"recomputed_amount_paid": recomputed.StringFixed(2),
			},
			ActorID: c.params.ActorID,
		}); err != nil {
			return err
		}
		drift.Repaired = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return drift, nil
}

func sumOrderPayments(payments []models.OrderPayment) map[uuid.UUID]decimal.Decimal {
	sums := make(map[uuid.UUID]decimal.Decimal, len(payments))
	for _, p := range payments {
		sums[p.OrderID] = sums[p.OrderID].Add(p.Amount)
	}
	return sums
}

type previousBalanceCheck struct {
	params CheckParams
}

// NewPreviousBalanceCheck audits customer_previous_balances.amount_paid
// against customer_balance_payments. Superseded rows are included.
func NewPreviousBalanceCheck(params CheckParams) (Check, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &previousBalanceCheck{params: params}, nil
}

func (c *previousBalanceCheck) Name() string { return LedgerPreviousBalances }

func (c *previousBalanceCheck) Run(ctx context.Context, repair bool) (*Report, error) {
	report := &Report{Ledger: LedgerPreviousBalances}
	var errs error
	after := uuid.Nil
	for {
		batch, err := c.params.Repo.PreviousBalanceBatch(ctx, after, c.params.batchSize())
		if err != nil {
			return report, multierr.Append(errs, fmt.Errorf("load previous balances: %w", err))
		}
		if len(batch) == 0 {
			return report, errs
		}
		ids := make([]uuid.UUID, 0, len(batch))
		for _, b := range batch {
			ids = append(ids, b.ID)
		}
		payments, err := c.params.Repo.BalancePayments(ctx, ids)
		if err != nil {
			return report, multierr.Append(errs, fmt.Errorf("load balance payments: %w", err))
		}
		sums := sumBalancePayments(payments)

		for _, b := range batch {
			report.Scanned++
			recomputed := sums[b.ID]
			if b.AmountPaid.Equal(recomputed) {
				continue
			}
			drift, err := c.confirm(ctx, b.ID, repair)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("confirm previous balance %s: %w", b.ID, err))
				drift = &Drift{
					Ledger:     LedgerPreviousBalances,
					ID:         b.ID,
					CustomerID: b.CustomerID,
					Total:      b.TotalAmount,
					Stored:     b.AmountPaid,
					Recomputed: recomputed,
				}
			}
			if drift != nil {
				report.Drifts = append(report.Drifts, *drift)
			}
		}
		after = batch[len(batch)-1].ID
	}
}

func (c *previousBalanceCheck) confirm(ctx context.Context, id uuid.UUID, repair bool) (*Drift, error) {
	var drift *Drift
	err := c.params.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := c.params.Repo.WithTx(tx)
		balance, err := repo.LockPreviousBalance(ctx, id)
		if err != nil {
			return err
		}
		payments, err := repo.BalancePayments(ctx, []uuid.UUID{id})
		if err != nil {
			return err
		}
		recomputed := sumBalancePayments(payments)[id]
		if balance.AmountPaid.Equal(recomputed) {
			return nil
		}
		drift = &Drift{
			Ledger:     LedgerPreviousBalances,
			ID:         balance.ID,
			CustomerID: balance.CustomerID,
			Total:      balance.TotalAmount,
			Stored:     balance.AmountPaid,
			Recomputed: recomputed,
		}
		if !repair {
			return nil
		}
		if recomputed.GreaterThan(balance.TotalAmount) {
			return fmt.Errorf("payments %s exceed total %s", recomputed.StringFixed(2), balance.TotalAmount.StringFixed(2))
		}
		rows, err := repo.SetPreviousBalanceAmountPaid(ctx, id, balance.AmountPaid, recomputed)
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("amount_paid changed during repair")
		}
		if _, err := c.params.Activity.Record(ctx, tx, activity.RecordInput{
			SubjectType: enums.SubjectTypeCustomer,
			SubjectID:   balance.CustomerID,
			Action:      enums.ActivityLedgerRepaired,
			Details:     fmt.Sprintf("Previous balance amount paid corrected from %s to %s", balance.AmountPaid.StringFixed(2), recomputed.StringFixed(2)),
			Metadata: map[string]any{
				"ledger":                 LedgerPreviousBalances,
				"previous_balance_id":    balance.ID.String(),
				"stored_amount_paid":     balance.AmountPaid.StringFixed(2),
				"recomputed_amount_paid": recomputed.StringFixed(2),
			},
			ActorID: c.params.ActorID,
		}); err != nil {
			return err
		}
		drift.Repaired = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return drift, nil
}

func sumBalancePayments(payments []models.CustomerBalancePayment) map[uuid.UUID]decimal.Decimal {
	sums := make(map[uuid.UUID]decimal.Decimal, len(payments))
	for _, p := range payments {
		sums[p.PreviousBalanceID] = sums[p.PreviousBalanceID].Add(p.Amount)
	}
	return sums
}
