package balances

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/inkhouse/backoffice/internal/activity"
	"github.com/inkhouse/backoffice/internal/customers"
	"github.com/inkhouse/backoffice/internal/ledger"
	"github.com/inkhouse/backoffice/internal/orders"
	"github.com/inkhouse/backoffice/pkg/db"
	"github.com/inkhouse/backoffice/pkg/db/models"
	"github.com/inkhouse/backoffice/pkg/enums"
	pkgerrors "github.com/inkhouse/backoffice/pkg/errors"
	"github.com/inkhouse/backoffice/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// OrderLedger is the slice of the order engine this package reads from and
// routes settlement shares through. Order rows are never written here.
type OrderLedger interface {
	ListOpenOrders(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) ([]models.Order, error)
	ApplyPayment(ctx context.Context, tx *gorm.DB, input orders.AddPaymentInput) (*orders.AppliedPayment, error)
}

// Service reconciles a customer's carried-over debt with their open orders.
type Service interface {
	GetBalanceSummary(ctx context.Context, customerID uuid.UUID) (*BalanceSummary, error)
	AddPreviousBalance(ctx context.Context, input AddPreviousBalanceInput) (*models.CustomerPreviousBalance, error)
	AddBalancePayment(ctx context.Context, input AddBalancePaymentInput) (*models.CustomerPreviousBalance, error)
	SettleCustomer(ctx context.Context, input SettleCustomerInput) (*SettlementResult, error)
}

// ServiceParams wires the balance service.
type ServiceParams struct {
	Repo      Repository
	Customers customers.Repository
	Orders    OrderLedger
	Tx        txRunner
	Activity  activity.Service
	Metrics   *metrics.LedgerMetrics
	Clock     func() time.Time
}

type service struct {
	repo      Repository
	customers customers.Repository
	orders    OrderLedger
	tx        txRunner
	activity  activity.Service
	metrics   *metrics.LedgerMetrics
	now       func() time.Time
}

// NewService builds a balance service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("balances repository required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customers repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order ledger required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Activity == nil {
		return nil, fmt.Errorf("activity service required")
	}
	clock := params.Clock
	if clock == nil {
		clock = db.NowUTC
	}
	return &service{
		repo:      params.Repo,
		customers: params.Customers,
		orders:    params.Orders,
		tx:        params.Tx,
		activity:  params.Activity,
		metrics:   params.Metrics,
		now:       clock,
	}, nil
}

func (s *service) GetBalanceSummary(ctx context.Context, customerID uuid.UUID) (*BalanceSummary, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if _, err := s.loadCustomer(ctx, nil, customerID); err != nil {
		return nil, err
	}
	summary, err := s.summarize(ctx, nil, customerID)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *service) summarize(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) (BalanceSummary, error) {
	live, err := s.repo.WithTx(tx).FindLive(ctx, customerID)
	if err != nil {
		return BalanceSummary{}, db.Classify(err, "load previous balance")
	}
	open, err := s.orders.ListOpenOrders(ctx, tx, customerID)
	if err != nil {
		return BalanceSummary{}, err
	}
	return Summarize(customerID, live, open), nil
}

func (s *service) AddPreviousBalance(ctx context.Context, input AddPreviousBalanceInput) (*models.CustomerPreviousBalance, error) {
	if err := validateActor(input.CustomerID, input.ActorID); err != nil {
		return nil, s.reject("add_previous_balance", err)
	}
	if err := ledger.ValidateAmount("total_amount", input.TotalAmount); err != nil {
		return nil, s.reject("add_previous_balance", err)
	}

	var created *models.CustomerPreviousBalance
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		customer, err := s.loadCustomer(ctx, tx, input.CustomerID)
		if err != nil {
			return err
		}
		if !customer.Active {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "customer is inactive")
		}

		repo := s.repo.WithTx(tx)
		live, err := repo.FindLive(ctx, input.CustomerID)
		if err != nil {
			return db.Classify(err, "load previous balance")
		}
		if live != nil {
			if err := s.supersede(ctx, tx, live, input); err != nil {
				return err
			}
		}

		created = &models.CustomerPreviousBalance{
			ID:          uuid.New(),
			CustomerID:  input.CustomerID,
			TotalAmount: input.TotalAmount,
			AmountPaid:  decimal.Zero,
			Notes:       ledger.Trimmed(input.Notes),
			CreatedBy:   input.ActorID,
			UpdatedBy:   input.ActorID,
		}
		if err := repo.Create(ctx, created); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "a previous balance was added concurrently")
			}
			return db.Classify(err, "create previous balance")
		}
		_, err = s.activity.Record(ctx, tx, activity.RecordInput{
			SubjectType: enums.SubjectTypeCustomer,
			SubjectID:   input.CustomerID,
			Action:      enums.ActivityPreviousBalanceAdded,
			Details:     fmt.Sprintf("Previous balance of %s added", created.TotalAmount.StringFixed(2)),
			Metadata: map[string]any{
				"previous_balance_id": created.ID,
				"total_amount":        created.TotalAmount.StringFixed(2),
			},
			ActorID:   input.ActorID,
			RequestID: input.RequestID,
		})
		return err
	})
	if err != nil {
		return nil, s.reject("add_previous_balance", db.Classify(err, "add previous balance"))
	}
	return created, nil
}

// supersede retires the live record. An outstanding remainder is only
// written off when the caller asked for it explicitly.
func (s *service) supersede(ctx context.Context, tx *gorm.DB, live *models.CustomerPreviousBalance, input AddPreviousBalanceInput) error {
	remaining := live.Remaining()
	if remaining.IsPositive() && !input.Supersede {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "previous balance outstanding").
			WithDetails(map[string]string{
				"previous_balance_id":        live.ID.String(),
				"previous_balance_remaining": remaining.StringFixed(2),
			})
	}
	affected, err := s.repo.WithTx(tx).Supersede(ctx, live.ID, s.now(), input.ActorID)
	if err != nil {
		return db.Classify(err, "supersede previous balance")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "previous balance was superseded concurrently")
	}
	_, err = s.activity.Record(ctx, tx, activity.RecordInput{
		SubjectType: enums.SubjectTypeCustomer,
		SubjectID:   input.CustomerID,
		Action:      enums.ActivityPreviousBalanceSuperseded,
		Details:     fmt.Sprintf("Previous balance of %s superseded with %s written off", live.TotalAmount.StringFixed(2), remaining.StringFixed(2)),
		Metadata: map[string]any{
			"previous_balance_id": live.ID,
			"total_amount":        live.TotalAmount.StringFixed(2),
			"amount_paid":         live.AmountPaid.StringFixed(2),
			"written_off":         remaining.StringFixed(2),
		},
		ActorID:   input.ActorID,
		RequestID: input.RequestID,
	})
	return err
}

func (s *service) AddBalancePayment(ctx context.Context, input AddBalancePaymentInput) (*models.CustomerPreviousBalance, error) {
	if err := validateActor(input.CustomerID, input.ActorID); err != nil {
		return nil, s.reject("add_balance_payment", err)
	}
	if err := ledger.ValidateAmount("amount", input.Amount); err != nil {
		return nil, s.reject("add_balance_payment", err)
	}
	method, err := ledger.ParseMethod("payment_method", input.PaymentMethod)
	if err != nil {
		return nil, s.reject("add_balance_payment", err)
	}

	var updated *models.CustomerPreviousBalance
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.loadCustomer(ctx, tx, input.CustomerID); err != nil {
			return err
		}
		live, err := s.repo.WithTx(tx).FindLive(ctx, input.CustomerID)
		if err != nil {
			return db.Classify(err, "load previous balance")
		}
		if live == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "previous balance not found")
		}
		balance, payment, err := s.applyBalancePayment(ctx, tx, live.ID, input.CustomerID, input.Amount, method, input.PaymentDate, input.Notes, input.ActorID)
		if err != nil {
			return err
		}
		updated = balance
		_, err = s.activity.Record(ctx, tx, activity.RecordInput{
			SubjectType: enums.SubjectTypeCustomer,
			SubjectID:   input.CustomerID,
			Action:      enums.ActivityBalancePaymentAdded,
			Details:     fmt.Sprintf("Balance payment of %s via %s added", payment.Amount.StringFixed(2), payment.PaymentMethod),
			Metadata: map[string]any{
				"payment_id":          payment.ID,
				"previous_balance_id": balance.ID,
				"amount":              payment.Amount.StringFixed(2),
				"payment_method":      payment.PaymentMethod.String(),
				"amount_paid":         balance.AmountPaid.StringFixed(2),
			},
			ActorID:   input.ActorID,
			RequestID: input.RequestID,
		})
		return err
	})
	if err != nil {
		return nil, s.reject("add_balance_payment", db.Classify(err, "add balance payment"))
	}
	s.metrics.PaymentRecorded(string(TargetPreviousBalance), method.String(), input.Amount)
	return updated, nil
}

// applyBalancePayment runs the guarded increment and writes the payment row.
func (s *service) applyBalancePayment(ctx context.Context, tx *gorm.DB, balanceID, customerID uuid.UUID, amount decimal.Decimal, method enums.PaymentMethod, date *time.Time, notes *string, actorID uuid.UUID) (*models.CustomerPreviousBalance, *models.CustomerBalancePayment, error) {
	repo := s.repo.WithTx(tx)
	affected, err := repo.IncrementAmountPaid(ctx, balanceID, amount, actorID)
	if err != nil {
		return nil, nil, db.Classify(err, "increment previous balance")
	}
	if affected == 0 {
		current, err := repo.FindByID(ctx, balanceID)
		if err != nil {
			return nil, nil, db.Classify(err, "load previous balance")
		}
		if !current.Live() {
			return nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict, "previous balance was superseded")
		}
		return nil, nil, pkgerrors.Newf(pkgerrors.CodeOverpayment, "payment of %s exceeds remaining previous balance of %s",
			amount.StringFixed(2), current.Remaining().StringFixed(2)).
			WithDetails(map[string]string{
				"amount":                     amount.StringFixed(2),
				"previous_balance_remaining": current.Remaining().StringFixed(2),
			})
	}

	payment := &models.CustomerBalancePayment{
		ID:                uuid.New(),
		CustomerID:        customerID,
		PreviousBalanceID: balanceID,
		Amount:            amount,
		PaymentMethod:     method,
		PaymentDate:       ledger.PaymentDate(date, s.now()),
		Notes:             ledger.Trimmed(notes),
		CreatedBy:         actorID,
	}
	if err := repo.CreatePayment(ctx, payment); err != nil {
		return nil, nil, db.Classify(err, "create balance payment")
	}
	balance, err := repo.FindByID(ctx, balanceID)
	if err != nil {
		return nil, nil, db.Classify(err, "load previous balance")
	}
	return balance, payment, nil
}

// SettleCustomer applies one payment to the oldest open liabilities first.
// The whole settlement commits or rolls back as a unit; if a concurrent
// payment shrinks a target in the meantime the guarded increments reject
// the settlement and the caller retries.
func (s *service) SettleCustomer(ctx context.Context, input SettleCustomerInput) (*SettlementResult, error) {
	if err := validateActor(input.CustomerID, input.ActorID); err != nil {
		return nil, s.reject("settle_customer", err)
	}
	if err := ledger.ValidateAmount("amount", input.Amount); err != nil {
		return nil, s.reject("settle_customer", err)
	}
	method, err := ledger.ParseMethod("payment_method", input.PaymentMethod)
	if err != nil {
		return nil, s.reject("settle_customer", err)
	}

	result := &SettlementResult{CustomerID: input.CustomerID, Amount: input.Amount, Orders: []orders.OrderView{}}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.loadCustomer(ctx, tx, input.CustomerID); err != nil {
			return err
		}
		live, err := s.repo.WithTx(tx).FindLive(ctx, input.CustomerID)
		if err != nil {
			return db.Classify(err, "load previous balance")
		}
		open, err := s.orders.ListOpenOrders(ctx, tx, input.CustomerID)
		if err != nil {
			return err
		}

		targets := settlementTargets(live, open)
		outstanding := Outstanding(targets)
		if input.Amount.GreaterThan(outstanding) {
			return pkgerrors.Newf(pkgerrors.CodeOverpayment, "settlement of %s exceeds outstanding balance of %s",
				input.Amount.StringFixed(2), outstanding.StringFixed(2)).
				WithDetails(map[string]string{
					"amount":        input.Amount.StringFixed(2),
					"total_balance": outstanding.StringFixed(2),
				})
		}

		allocation := Allocate(input.Amount, targets)
		result.Shares = allocation.Shares
		for _, share := range allocation.Shares {
			switch share.Kind {
			case TargetPreviousBalance:
				balance, _, err := s.applyBalancePayment(ctx, tx, share.ID, input.CustomerID, share.Amount, method, input.PaymentDate, input.Notes, input.ActorID)
				if err != nil {
					return err
				}
				result.PreviousBalance = balance
			case TargetOrder:
				applied, err := s.orders.ApplyPayment(ctx, tx, orders.AddPaymentInput{
					OrderID: share.ID,
					Payment: orders.PaymentInput{
						Amount:        share.Amount,
						PaymentMethod: method.String(),
						PaymentDate:   input.PaymentDate,
						Notes:         input.Notes,
					},
					ActorID:   input.ActorID,
					RequestID: input.RequestID,
				})
				if err != nil {
					return err
				}
				result.Orders = append(result.Orders, orders.NewOrderView(applied.Order))
			}
		}

		_, err = s.activity.Record(ctx, tx, activity.RecordInput{
			SubjectType: enums.SubjectTypeCustomer,
			SubjectID:   input.CustomerID,
			Action:      enums.ActivityCustomerSettlementApplied,
			Details:     fmt.Sprintf("Settlement of %s via %s applied across %d liabilities", input.Amount.StringFixed(2), method, len(allocation.Shares)),
			Metadata: map[string]any{
				"amount":         input.Amount.StringFixed(2),
				"payment_method": method.String(),
				"allocations":    allocation.Shares,
			},
			ActorID:   input.ActorID,
			RequestID: input.RequestID,
		})
		if err != nil {
			return err
		}

		result.Summary, err = s.summarize(ctx, tx, input.CustomerID)
		return err
	})
	if err != nil {
		return nil, s.reject("settle_customer", db.Classify(err, "settle customer"))
	}
	for _, share := range result.Shares {
		s.metrics.PaymentRecorded(string(share.Kind), method.String(), share.Amount)
	}
	return result, nil
}

func (s *service) loadCustomer(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Customer, error) {
	customer, err := s.customers.WithTx(tx).FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, db.Classify(err, "load customer")
	}
	return customer, nil
}

func (s *service) reject(operation string, err error) error {
	s.metrics.Rejected(operation, string(pkgerrors.CodeOf(err)))
	return err
}

func validateActor(customerID, actorID uuid.UUID) error {
	if customerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if actorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}
	return nil
}
