package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/inkhouse/backoffice/internal/activity"
	"github.com/inkhouse/backoffice/internal/customers"
	"github.com/inkhouse/backoffice/internal/ledger"
	"github.com/inkhouse/backoffice/pkg/db"
	"github.com/inkhouse/backoffice/pkg/db/models"
	"github.com/inkhouse/backoffice/pkg/enums"
	pkgerrors "github.com/inkhouse/backoffice/pkg/errors"
	"github.com/inkhouse/backoffice/pkg/metrics"
	"github.com/inkhouse/backoffice/pkg/pagination"
)

const (
	defaultMaxCreateAttempts = 5
	paymentTarget            = "order"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the order lifecycle engine. Every mutation commits together
// with exactly one activity entry per logical change.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderView, error)
	AddPayment(ctx context.Context, input AddPaymentInput) (*OrderView, error)
	ApplyPayment(ctx context.Context, tx *gorm.DB, input AddPaymentInput) (*AppliedPayment, error)
	TransitionStatus(ctx context.Context, input TransitionStatusInput) (*OrderView, error)
	DeleteOrder(ctx context.Context, input DeleteOrderInput) error
	GetOrderSummary(ctx context.Context, id uuid.UUID) (*OrderSummary, error)
	ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID, params ListParams) (*OrderList, error)
	ListOpenOrders(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) ([]models.Order, error)
	ListCustomerPayments(ctx context.Context, customerID uuid.UUID) ([]models.OrderPayment, error)
}

// ServiceParams wires the order service.
type ServiceParams struct {
	Repo              Repository
	Customers         customers.Repository
	Tx                txRunner
	Activity          activity.Service
	Numbers           NumberSource
	Metrics           *metrics.LedgerMetrics
	MaxCreateAttempts int
	Clock             func() time.Time
}

type service struct {
	repo              Repository
	customers         customers.Repository
	tx                txRunner
	activity          activity.Service
	numbers           NumberSource
	metrics           *metrics.LedgerMetrics
	maxCreateAttempts int
	now               func() time.Time
}

// NewService builds an order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customers repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Activity == nil {
		return nil, fmt.Errorf("activity service required")
	}
	if params.Numbers == nil {
		return nil, fmt.Errorf("order number source required")
	}
	attempts := params.MaxCreateAttempts
	if attempts <= 0 {
		attempts = defaultMaxCreateAttempts
	}
	clock := params.Clock
	if clock == nil {
		clock = db.NowUTC
	}
	return &service{
		repo:              params.Repo,
		customers:         params.Customers,
		tx:                params.Tx,
		activity:          params.Activity,
		numbers:           params.Numbers,
		metrics:           params.Metrics,
		maxCreateAttempts: attempts,
		now:               clock,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderView, error) {
	order, payment, err := s.buildOrder(input)
	if err != nil {
		return nil, s.reject("create_order", err)
	}
	callerNumber := strings.TrimSpace(input.OrderNumber)

	for attempt := 0; attempt < s.maxCreateAttempts; attempt++ {
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return s.insertOrder(ctx, tx, order, payment, callerNumber, attempt, input.RequestID)
		})
		if err == nil {
			s.metrics.OrderCreated()
			if payment != nil {
				s.metrics.PaymentRecorded(paymentTarget, payment.PaymentMethod.String(), payment.Amount)
			}
			view := NewOrderView(*order)
			return &view, nil
		}
		if !isOrderNumberConflict(err) {
			return nil, s.reject("create_order", db.Classify(err, "create order"))
		}
		if callerNumber != "" {
			return nil, s.reject("create_order", pkgerrors.New(pkgerrors.CodeValidation, "order number already exists").
				WithDetails(map[string]string{"order_number": callerNumber}))
		}
	}
	return nil, s.reject("create_order", pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "could not allocate a unique order number"))
}

func (s *service) buildOrder(input CreateOrderInput) (*models.Order, *models.OrderPayment, error) {
	if input.ActorID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}
	if input.CustomerID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if err := ledger.ValidateAmount("total_amount", input.TotalAmount); err != nil {
		return nil, nil, err
	}
	now := s.now()
	if input.EstimatedDeliveryDate != nil && !input.EstimatedDeliveryDate.After(now) {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "estimated delivery date must be in the future").
			WithDetails(map[string]string{"estimated_delivery_date": "must be after now"})
	}

	order := &models.Order{
		ID:                    uuid.New(),
		CustomerID:            input.CustomerID,
		Status:                enums.OrderStatusPending,
		TotalAmount:           input.TotalAmount,
		AmountPaid:            decimal.Zero,
		EstimatedDeliveryDate: input.EstimatedDeliveryDate,
		Notes:                 ledger.Trimmed(input.Notes),
		CreatedBy:             input.ActorID,
		UpdatedBy:             input.ActorID,
	}

	initial := input.InitialPayment
	if initial == nil || initial.Amount.IsZero() {
		return order, nil, nil
	}
	if initial.Amount.IsNegative() {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "initial payment amount cannot be negative").
			WithDetails(map[string]string{"initial_payment.amount": "must be >= 0"})
	}
	if err := ledger.ValidateAmount("initial_payment.amount", initial.Amount); err != nil {
		return nil, nil, err
	}
	if initial.Amount.GreaterThan(input.TotalAmount) {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "initial payment exceeds total amount").
			WithDetails(map[string]string{"initial_payment.amount": "must be <= total_amount"})
	}
	method, err := ledger.ParseMethod("initial_payment.payment_method", initial.PaymentMethod)
	if err != nil {
		return nil, nil, err
	}

	order.AmountPaid = initial.Amount
	payment := &models.OrderPayment{
		ID:            uuid.New(),
		OrderID:       order.ID,
		Amount:        initial.Amount,
		PaymentMethod: method,
		PaymentDate:   ledger.PaymentDate(initial.PaymentDate, now),
		Notes:         ledger.Trimmed(initial.Notes),
		CreatedBy:     input.ActorID,
	}
	return order, payment, nil
}

func (s *service) insertOrder(ctx context.Context, tx *gorm.DB, order *models.Order, payment *models.OrderPayment, callerNumber string, attempt int, requestID string) error {
	customer, err := s.customers.WithTx(tx).FindByID(ctx, order.CustomerID)
	if err != nil {
		return loadErr(err, "customer")
	}
	if !customer.Active {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "customer is inactive")
	}

	number := callerNumber
	if number == "" {
		number, err = s.numbers.Next(ctx, tx, attempt)
		if err != nil {
			return db.Classify(err, "allocate order number")
		}
	}
	order.OrderNumber = number

	repo := s.repo.WithTx(tx)
	if err := repo.CreateOrder(ctx, order); err != nil {
		return err
	}
	details := fmt.Sprintf("Order %s created for %s", order.OrderNumber, order.TotalAmount.StringFixed(2))
	meta := map[string]any{
		"order_number": order.OrderNumber,
		"total_amount": order.TotalAmount.StringFixed(2),
	}
	if payment != nil {
		if err := repo.CreatePayment(ctx, payment); err != nil {
			return db.Classify(err, "create initial payment")
		}
		details = fmt.Sprintf("%s with initial payment of %s via %s", details, payment.Amount.StringFixed(2), payment.PaymentMethod)
		meta["initial_payment"] = payment.Amount.StringFixed(2)
		meta["payment_method"] = payment.PaymentMethod.String()
	}
	_, err = s.activity.Record(ctx, tx, activity.RecordInput{
		SubjectType: enums.SubjectTypeOrder,
		SubjectID:   order.ID,
		Action:      enums.ActivityOrderCreated,
		Details:     details,
		Metadata:    meta,
		ActorID:     order.CreatedBy,
		RequestID:   requestID,
	})
	return err
}

func (s *service) AddPayment(ctx context.Context, input AddPaymentInput) (*OrderView, error) {
	var applied *AppliedPayment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		applied, err = s.ApplyPayment(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, s.reject("add_payment", db.Classify(err, "add payment"))
	}
	s.metrics.PaymentRecorded(paymentTarget, applied.Payment.PaymentMethod.String(), applied.Payment.Amount)
	if applied.AutoDelivered {
		s.metrics.StatusTransition(enums.OrderStatusDelivered.String())
	}
	view := NewOrderView(applied.Order)
	return &view, nil
}

// ApplyPayment records a payment inside the caller's transaction. The
// increment is a single guarded UPDATE, so concurrent payments never lose
// each other's delta and never overshoot the total.
func (s *service) ApplyPayment(ctx context.Context, tx *gorm.DB, input AddPaymentInput) (*AppliedPayment, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order payments must be applied inside a transaction")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}
	if err := ledger.ValidateAmount("amount", input.Payment.Amount); err != nil {
		return nil, err
	}
	method, err := ledger.ParseMethod("payment_method", input.Payment.PaymentMethod)
	if err != nil {
		return nil, err
	}

	repo := s.repo.WithTx(tx)
	affected, err := repo.IncrementAmountPaid(ctx, input.OrderID, input.Payment.Amount, input.ActorID)
	if err != nil {
		return nil, db.Classify(err, "increment amount paid")
	}
	if affected == 0 {
		current, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return nil, loadErr(err, "order")
		}
		return nil, pkgerrors.Newf(pkgerrors.CodeOverpayment, "payment of %s exceeds outstanding balance of %s",
			input.Payment.Amount.StringFixed(2), current.BalanceAmount().StringFixed(2)).
			WithDetails(map[string]string{
				"amount":         input.Payment.Amount.StringFixed(2),
				"balance_amount": current.BalanceAmount().StringFixed(2),
			})
	}

	payment := models.OrderPayment{
		ID:            uuid.New(),
		OrderID:       input.OrderID,
		Amount:        input.Payment.Amount,
		PaymentMethod: method,
		PaymentDate:   ledger.PaymentDate(input.Payment.PaymentDate, s.now()),
		Notes:         ledger.Trimmed(input.Payment.Notes),
		CreatedBy:     input.ActorID,
	}
	if err := repo.CreatePayment(ctx, &payment); err != nil {
		return nil, db.Classify(err, "create payment")
	}

	order, err := repo.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, loadErr(err, "order")
	}
	_, err = s.activity.Record(ctx, tx, activity.RecordInput{
		SubjectType: enums.SubjectTypeOrder,
		SubjectID:   order.ID,
		Action:      enums.ActivityPaymentAdded,
		Details:     fmt.Sprintf("Payment of %s via %s added", payment.Amount.StringFixed(2), payment.PaymentMethod),
		Metadata: map[string]any{
			"payment_id":     payment.ID,
			"amount":         payment.Amount.StringFixed(2),
			"payment_method": payment.PaymentMethod.String(),
			"amount_paid":    order.AmountPaid.StringFixed(2),
		},
		ActorID:   input.ActorID,
		RequestID: input.RequestID,
	})
	if err != nil {
		return nil, err
	}

	result := &AppliedPayment{Order: *order, Payment: payment}
	delivered, err := s.autoDeliver(ctx, tx, order, input.ActorID, input.RequestID)
	if err != nil {
		return nil, err
	}
	result.AutoDelivered = delivered
	result.Order = *order
	return result, nil
}

// autoDeliver applies AutoDeliverTarget. A concurrent manual transition that
// wins the compare-and-set leaves nothing to do.
func (s *service) autoDeliver(ctx context.Context, tx *gorm.DB, order *models.Order, actorID uuid.UUID, requestID string) (bool, error) {
	target, ok := AutoDeliverTarget(*order)
	if !ok {
		return false, nil
	}
	repo := s.repo.WithTx(tx)
	from := order.Status
	affected, err := repo.UpdateStatus(ctx, order.ID, from, target, actorID)
	if err != nil {
		return false, db.Classify(err, "auto deliver order")
	}
	if affected == 0 {
		return false, nil
	}
	order.Status = target
	order.UpdatedBy = actorID
	_, err = s.activity.Record(ctx, tx, activity.RecordInput{
		SubjectType: enums.SubjectTypeOrder,
		SubjectID:   order.ID,
		Action:      enums.ActivityOrderAutoDelivered,
		Details:     fmt.Sprintf("Order fully paid; status changed from %s to %s", from, target),
		Metadata:    map[string]string{"from": from.String(), "to": target.String()},
		ActorID:     actorID,
		RequestID:   requestID,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *service) TransitionStatus(ctx context.Context, input TransitionStatusInput) (*OrderView, error) {
	if input.OrderID == uuid.Nil {
		return nil, s.reject("transition_status", pkgerrors.New(pkgerrors.CodeValidation, "order id is required"))
	}
	if input.ActorID == uuid.Nil {
		return nil, s.reject("transition_status", pkgerrors.New(pkgerrors.CodeValidation, "actor id is required"))
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return loadErr(err, "order")
		}
		if err := ValidateTransition(*order, input.Target); err != nil {
			return err
		}
		from := order.Status
		affected, err := repo.UpdateStatus(ctx, order.ID, from, input.Target, input.ActorID)
		if err != nil {
			return db.Classify(err, "update order status")
		}
		if affected == 0 {
			return pkgerrors.Newf(pkgerrors.CodeInvalidTransition, "order status changed concurrently; cannot move from %s to %s", from, input.Target)
		}
		order.Status = input.Target
		order.UpdatedBy = input.ActorID
		updated = order
		_, err = s.activity.Record(ctx, tx, activity.RecordInput{
			SubjectType: enums.SubjectTypeOrder,
			SubjectID:   order.ID,
			Action:      enums.ActivityStatusChanged,
			Details:     fmt.Sprintf("Status changed from %s to %s", from, input.Target),
			Metadata:    map[string]string{"from": from.String(), "to": input.Target.String()},
			ActorID:     input.ActorID,
			RequestID:   input.RequestID,
		})
		return err
	})
	if err != nil {
		return nil, s.reject("transition_status", db.Classify(err, "transition order status"))
	}
	s.metrics.StatusTransition(input.Target.String())
	view := NewOrderView(*updated)
	return &view, nil
}

func (s *service) DeleteOrder(ctx context.Context, input DeleteOrderInput) error {
	if input.OrderID == uuid.Nil {
		return s.reject("delete_order", pkgerrors.New(pkgerrors.CodeValidation, "order id is required"))
	}
	if input.ActorID == uuid.Nil {
		return s.reject("delete_order", pkgerrors.New(pkgerrors.CodeValidation, "actor id is required"))
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return loadErr(err, "order")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "only pending orders can be deleted; order is %s", order.Status)
		}
		removed, err := repo.DeletePayments(ctx, order.ID)
		if err != nil {
			return db.Classify(err, "delete order payments")
		}
		if err := s.activity.PurgeSubject(ctx, tx, enums.SubjectTypeOrder, order.ID); err != nil {
			return err
		}
		affected, err := repo.DeletePending(ctx, order.ID)
		if err != nil {
			return db.Classify(err, "delete order")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer pending")
		}
		_, err = s.activity.Record(ctx, tx, activity.RecordInput{
			SubjectType: enums.SubjectTypeCustomer,
			SubjectID:   order.CustomerID,
			Action:      enums.ActivityOrderDeleted,
			Details:     fmt.Sprintf("Order %s deleted", order.OrderNumber),
			Metadata: map[string]any{
				"order_id":         order.ID,
				"order_number":     order.OrderNumber,
				"total_amount":     order.TotalAmount.StringFixed(2),
				"amount_paid":      order.AmountPaid.StringFixed(2),
				"payments_removed": removed,
			},
			ActorID:   input.ActorID,
			RequestID: input.RequestID,
		})
		return err
	})
	if err != nil {
		return s.reject("delete_order", db.Classify(err, "delete order"))
	}
	return nil
}

func (s *service) GetOrderSummary(ctx context.Context, id uuid.UUID) (*OrderSummary, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadErr(err, "order")
	}
	payments, err := s.repo.ListPayments(ctx, id)
	if err != nil {
		return nil, db.Classify(err, "list order payments")
	}
	if payments == nil {
		payments = []models.OrderPayment{}
	}
	return &OrderSummary{
		Order:        NewOrderView(*order),
		Payments:     payments,
		PaymentCount: len(payments),
	}, nil
}

func (s *service) ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID, params ListParams) (*OrderList, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid order status %q", *params.Status)
	}
	if _, err := s.customers.FindByID(ctx, customerID); err != nil {
		return nil, loadErr(err, "customer")
	}
	rows, err := s.repo.ListByCustomer(ctx, customerID, params)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		return nil, db.Classify(err, "list orders")
	}
	page, next := pagination.Trim(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	views := make([]OrderView, 0, len(page))
	for _, order := range page {
		views = append(views, NewOrderView(order))
	}
	return &OrderList{Orders: views, NextCursor: next}, nil
}

// ListOpenOrders returns the customer's undelivered orders, oldest first. A
// nil tx reads outside any transaction.
func (s *service) ListOpenOrders(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) ([]models.Order, error) {
	orders, err := s.repo.WithTx(tx).ListOpenByCustomer(ctx, customerID)
	if err != nil {
		return nil, db.Classify(err, "list open orders")
	}
	return orders, nil
}

func (s *service) ListCustomerPayments(ctx context.Context, customerID uuid.UUID) ([]models.OrderPayment, error) {
	payments, err := s.repo.ListPaymentsByCustomer(ctx, customerID)
	if err != nil {
		return nil, db.Classify(err, "list customer payments")
	}
	return payments, nil
}

func (s *service) reject(operation string, err error) error {
	s.metrics.Rejected(operation, string(pkgerrors.CodeOf(err)))
	return err
}

func loadErr(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "%s not found", entity)
	}
	return db.Classify(err, "load "+entity)
}

func isOrderNumberConflict(err error) bool {
	return db.IsUniqueViolation(err, "") && strings.Contains(err.Error(), "order_number")
}
