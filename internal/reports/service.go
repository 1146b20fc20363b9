package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/inkhouse/backoffice/internal/balances"
	"github.com/inkhouse/backoffice/internal/orders"
	"github.com/inkhouse/backoffice/pkg/db"
	"github.com/inkhouse/backoffice/pkg/db/models"
	pkgerrors "github.com/inkhouse/backoffice/pkg/errors"
	"github.com/inkhouse/backoffice/pkg/pagination"
)

type customerReader interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

type orderReader interface {
	ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID, params orders.ListParams) (*orders.OrderList, error)
	ListCustomerPayments(ctx context.Context, customerID uuid.UUID) ([]models.OrderPayment, error)
}

type balanceReader interface {
	GetBalanceSummary(ctx context.Context, customerID uuid.UUID) (*balances.BalanceSummary, error)
}

type previousBalanceReader interface {
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.CustomerPreviousBalance, error)
	ListPayments(ctx context.Context, customerID uuid.UUID) ([]models.CustomerBalancePayment, error)
}

// Statement is a read-only snapshot of everything a customer owes and paid.
type Statement struct {
	Customer         models.Customer                  `json:"customer"`
	Summary          balances.BalanceSummary          `json:"summary"`
	Orders           []orders.OrderView               `json:"orders"`
	OrderPayments    []models.OrderPayment            `json:"order_payments"`
	PreviousBalances []models.CustomerPreviousBalance `json:"previous_balances"`
	BalancePayments  []models.CustomerBalancePayment  `json:"balance_payments"`
	GeneratedAt      time.Time                        `json:"generated_at"`
}

// Service assembles customer statements.
type Service interface {
	CustomerStatement(ctx context.Context, customerID uuid.UUID) (*Statement, error)
}

type service struct {
	customers customerReader
	orders    orderReader
	summaries balanceReader
	previous  previousBalanceReader
	now       func() time.Time
}

// NewService builds a statement service from the read sides of the ledgers.
func NewService(customers customerReader, orders orderReader, summaries balanceReader, previous previousBalanceReader) (Service, error) {
	if customers == nil {
		return nil, fmt.Errorf("customer reader required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order reader required")
	}
	if summaries == nil {
		return nil, fmt.Errorf("balance reader required")
	}
	if previous == nil {
		return nil, fmt.Errorf("previous balance reader required")
	}
	return &service{
		customers: customers,
		orders:    orders,
		summaries: summaries,
		previous:  previous,
		now:       db.NowUTC,
	}, nil
}

func (s *service) CustomerStatement(ctx context.Context, customerID uuid.UUID) (*Statement, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	customer, err := s.customers.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	summary, err := s.summaries.GetBalanceSummary(ctx, customerID)
	if err != nil {
		return nil, err
	}

	statement := &Statement{
		Customer:    *customer,
		Summary:     *summary,
		Orders:      []orders.OrderView{},
		GeneratedAt: s.now(),
	}

	params := orders.ListParams{Params: pagination.Params{Limit: pagination.MaxLimit}}
	for {
		page, err := s.orders.ListOrdersByCustomer(ctx, customerID, params)
		if err != nil {
			return nil, err
		}
		statement.Orders = append(statement.Orders, page.Orders...)
		if page.NextCursor == "" {
			break
		}
		params.Cursor = page.NextCursor
	}

	if statement.OrderPayments, err = s.orders.ListCustomerPayments(ctx, customerID); err != nil {
		return nil, err
	}
	if statement.PreviousBalances, err = s.previous.ListByCustomer(ctx, customerID); err != nil {
		return nil, db.Classify(err, "list previous balances")
	}
	if statement.BalancePayments, err = s.previous.ListPayments(ctx, customerID); err != nil {
		return nil, db.Classify(err, "list balance payments")
	}
	return statement, nil
}
