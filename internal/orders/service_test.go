package orders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/inkhouse/backoffice/internal/activity"
	"github.com/inkhouse/backoffice/internal/customers"
	"github.com/inkhouse/backoffice/pkg/db"
	"github.com/inkhouse/backoffice/pkg/db/dbtest"
	"github.com/inkhouse/backoffice/pkg/db/models"
	"github.com/inkhouse/backoffice/pkg/enums"
	pkgerrors "github.com/inkhouse/backoffice/pkg/errors"
	"github.com/inkhouse/backoffice/pkg/pagination"
)

type harness struct {
	conn       *gorm.DB
	svc        Service
	repo       Repository
	activity   activity.Service
	customerID uuid.UUID
	actor      uuid.UUID
}

type harnessOption func(*ServiceParams)

func withNumbers(src NumberSource) harnessOption {
	return func(p *ServiceParams) { p.Numbers = src }
}

func newHarness(t *testing.T, opts ...harnessOption) harness {
	t.Helper()
	conn := dbtest.Open(t)
	activitySvc, err := activity.NewService(activity.NewRepository(conn))
	require.NoError(t, err)

	repo := NewRepository(conn)
	params := ServiceParams{
		Repo:      repo,
		Customers: customers.NewRepository(conn),
		Tx:        db.Wrap(conn),
		Activity:  activitySvc,
		Numbers:   NewDBNumberSource(repo, "ORD-", 6),
	}
	for _, opt := range opts {
		opt(&params)
	}
	svc, err := NewService(params)
	require.NoError(t, err)

	actor := uuid.New()
	return harness{
		conn:       conn,
		svc:        svc,
		repo:       repo,
		activity:   activitySvc,
		customerID: seedCustomer(t, conn, actor, true),
		actor:      actor,
	}
}

func seedCustomer(t *testing.T, conn *gorm.DB, actor uuid.UUID, active bool) uuid.UUID {
	t.Helper()
	customer := &models.Customer{
		ID:          uuid.New(),
		DisplayName: "Sharma Stationers",
		Active:      true,
		CreatedBy:   actor,
		UpdatedBy:   actor,
	}
	require.NoError(t, conn.Create(customer).Error)
	if !active {
		require.NoError(t, conn.Model(customer).Update("active", false).Error)
	}
	return customer.ID
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func (h harness) create(t *testing.T, total string, initial *PaymentInput) *OrderView {
	t.Helper()
	order, err := h.svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID:     h.customerID,
		TotalAmount:    dec(total),
		InitialPayment: initial,
		ActorID:        h.actor,
	})
	require.NoError(t, err)
	return order
}

func (h harness) pay(amount, method string, orderID uuid.UUID) (*OrderView, error) {
	return h.svc.AddPayment(context.Background(), AddPaymentInput{
		OrderID: orderID,
		Payment: PaymentInput{Amount: dec(amount), PaymentMethod: method},
		ActorID: h.actor,
	})
}

func (h harness) transition(orderID uuid.UUID, target enums.OrderStatus) (*OrderView, error) {
	return h.svc.TransitionStatus(context.Background(), TransitionStatusInput{
		OrderID: orderID,
		Target:  target,
		ActorID: h.actor,
	})
}

func (h harness) entries(t *testing.T, subject enums.SubjectType, id uuid.UUID) []models.ActivityLogEntry {
	t.Helper()
	entries, err := h.activity.List(context.Background(), subject, id, pagination.MaxLimit)
	require.NoError(t, err)
	return entries
}

// assertLedgerConsistent checks 0 <= paid <= total, sum(payments) == paid and
// delivered => fully paid against the stored rows.
func assertLedgerConsistent(t *testing.T, h harness, orderID uuid.UUID) {
	t.Helper()
	summary, err := h.svc.GetOrderSummary(context.Background(), orderID)
	require.NoError(t, err)
	sum := decimal.Zero
	for _, p := range summary.Payments {
		sum = sum.Add(p.Amount)
	}
	order := summary.Order
	assert.True(t, sum.Equal(order.AmountPaid), "payments %s != amount_paid %s", sum, order.AmountPaid)
	assert.False(t, order.AmountPaid.IsNegative())
	assert.True(t, order.AmountPaid.LessThanOrEqual(order.TotalAmount))
	if order.Status == enums.OrderStatusDelivered {
		assert.True(t, order.AmountPaid.Equal(order.TotalAmount))
	}
}

func TestCreateOrderWithoutPayment(t *testing.T) {
	h := newHarness(t)

	order := h.create(t, "1000", nil)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, "ORD-000001", order.OrderNumber)
	assert.True(t, order.BalanceAmount.Equal(dec("1000")))
	assert.True(t, order.AmountPaid.IsZero())

	summary, err := h.svc.GetOrderSummary(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.PaymentCount)

	entries := h.entries(t, enums.SubjectTypeOrder, order.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, enums.ActivityOrderCreated, entries[0].Action)

	second := h.create(t, "50", nil)
	assert.Equal(t, "ORD-000002", second.OrderNumber)
}

func TestCreateOrderWithInitialPayment(t *testing.T) {
	h := newHarness(t)

	order := h.create(t, "1000", &PaymentInput{Amount: dec("300"), PaymentMethod: "Cash"})
	assert.True(t, order.AmountPaid.Equal(dec("300")))
	assert.True(t, order.BalanceAmount.Equal(dec("700")))

	summary, err := h.svc.GetOrderSummary(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, summary.Payments, 1)
	assert.True(t, summary.Payments[0].Amount.Equal(dec("300")))
	assert.Equal(t, enums.PaymentMethodCash, summary.Payments[0].PaymentMethod)

	entries := h.entries(t, enums.SubjectTypeOrder, order.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, enums.ActivityOrderCreated, entries[0].Action)
	assertLedgerConsistent(t, h, order.ID)
}

func TestCreateOrderValidation(t *testing.T) {
	h := newHarness(t)
	past := time.Now().Add(-time.Hour)

	cases := []struct {
		name  string
		input CreateOrderInput
	}{
		{"missing actor", CreateOrderInput{CustomerID: h.customerID, TotalAmount: dec("10")}},
		{"zero total", CreateOrderInput{CustomerID: h.customerID, TotalAmount: decimal.Zero, ActorID: h.actor}},
		{"negative total", CreateOrderInput{CustomerID: h.customerID, TotalAmount: dec("-5"), ActorID: h.actor}},
		{"three decimals", CreateOrderInput{CustomerID: h.customerID, TotalAmount: dec("10.005"), ActorID: h.actor}},
		{"past delivery", CreateOrderInput{CustomerID: h.customerID, TotalAmount: dec("10"), EstimatedDeliveryDate: &past, ActorID: h.actor}},
		{"initial exceeds total", CreateOrderInput{
			CustomerID: h.customerID, TotalAmount: dec("10"), ActorID: h.actor,
			InitialPayment: &PaymentInput{Amount: dec("11"), PaymentMethod: "Cash"},
		}},
		{"initial without method", CreateOrderInput{
			CustomerID: h.customerID, TotalAmount: dec("10"), ActorID: h.actor,
			InitialPayment: &PaymentInput{Amount: dec("5")},
		}},
		{"negative initial", CreateOrderInput{
			CustomerID: h.customerID, TotalAmount: dec("10"), ActorID: h.actor,
			InitialPayment: &PaymentInput{Amount: dec("-1"), PaymentMethod: "Cash"},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.svc.CreateOrder(context.Background(), tc.input)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}

	var count int64
	require.NoError(t, h.conn.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateOrderZeroInitialPaymentNeedsNoMethod(t *testing.T) {
	h := newHarness(t)
	order := h.create(t, "100", &PaymentInput{Amount: decimal.Zero})
	summary, err := h.svc.GetOrderSummary(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Empty(t, summary.Payments)
}

func TestCreateOrderCustomerChecks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.CreateOrder(ctx, CreateOrderInput{CustomerID: uuid.New(), TotalAmount: dec("10"), ActorID: h.actor})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	inactive := seedCustomer(t, h.conn, h.actor, false)
	_, err = h.svc.CreateOrder(ctx, CreateOrderInput{CustomerID: inactive, TotalAmount: dec("10"), ActorID: h.actor})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)
}

func TestCreateOrderDuplicateCallerNumber(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.CreateOrder(ctx, CreateOrderInput{CustomerID: h.customerID, TotalAmount: dec("10"), OrderNumber: " INV-7 ", ActorID: h.actor})
	require.NoError(t, err)

	_, err = h.svc.CreateOrder(ctx, CreateOrderInput{CustomerID: h.customerID, TotalAmount: dec("10"), OrderNumber: "INV-7", ActorID: h.actor})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}

type scriptedNumbers struct {
	mu       sync.Mutex
	values   []string
	attempts []int
}

func (s *scriptedNumbers) Next(_ context.Context, _ *gorm.DB, attempt int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, attempt)
	idx := len(s.attempts) - 1
	if idx >= len(s.values) {
		idx = len(s.values) - 1
	}
	return s.values[idx], nil
}

func TestCreateOrderRetriesGeneratedNumberCollision(t *testing.T) {
	numbers := &scriptedNumbers{values: []string{"ORD-000001", "ORD-000001", "ORD-000002"}}
	h := newHarness(t, withNumbers(numbers))

	first := h.create(t, "10", nil)
	assert.Equal(t, "ORD-000001", first.OrderNumber)

	second := h.create(t, "20", &PaymentInput{Amount: dec("5"), PaymentMethod: "UPI"})
	assert.Equal(t, "ORD-000002", second.OrderNumber)
	assert.Equal(t, []int{0, 0, 1}, numbers.attempts)

	// the failed attempt left nothing behind
	entries := h.entries(t, enums.SubjectTypeOrder, second.ID)
	assert.Len(t, entries, 1)
	assertLedgerConsistent(t, h, second.ID)
}

func TestCreateOrderGivesUpAfterMaxAttempts(t *testing.T) {
	numbers := &scriptedNumbers{values: []string{"ORD-000001"}}
	h := newHarness(t, withNumbers(numbers), func(p *ServiceParams) { p.MaxCreateAttempts = 3 })

	h.create(t, "10", nil)
	_, err := h.svc.CreateOrder(context.Background(), CreateOrderInput{CustomerID: h.customerID, TotalAmount: dec("10"), ActorID: h.actor})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)
	assert.Len(t, numbers.attempts, 4)
}

func TestDeliveryRequiresForwardPath(t *testing.T) {
	h := newHarness(t)
	order := h.create(t, "1000", &PaymentInput{Amount: dec("300"), PaymentMethod: "Cash"})

	paid, err := h.pay("700", "upi", order.ID)
	require.NoError(t, err)
	assert.True(t, paid.AmountPaid.Equal(dec("1000")))
	assert.Equal(t, enums.OrderStatusPending, paid.Status)

	_, err = h.transition(order.ID, enums.OrderStatusDelivered)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition), "got %v", err)

	for _, next := range []enums.OrderStatus{enums.OrderStatusInProgress, enums.OrderStatusCompleted, enums.OrderStatusDelivered} {
		view, err := h.transition(order.ID, next)
		require.NoError(t, err)
		assert.Equal(t, next, view.Status)
	}

	entries := h.entries(t, enums.SubjectTypeOrder, order.ID)
	require.Len(t, entries, 5)
	assert.Equal(t, enums.ActivityStatusChanged, entries[0].Action)
	assert.Equal(t, enums.ActivityOrderCreated, entries[4].Action)
	assertLedgerConsistent(t, h, order.ID)
}

func TestTransitionRejectsBackwardSkipAndRepeat(t *testing.T) {
	h := newHarness(t)
	order := h.create(t, "100", nil)

	_, err := h.transition(order.ID, enums.OrderStatusCompleted)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
	_, err = h.transition(order.ID, enums.OrderStatusPending)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))

	_, err = h.transition(order.ID, enums.OrderStatusInProgress)
	require.NoError(t, err)
	_, err = h.transition(order.ID, enums.OrderStatusInProgress)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
	_, err = h.transition(order.ID, enums.OrderStatusPending)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))

	_, err = h.transition(order.ID, enums.OrderStatusCompleted)
	require.NoError(t, err)
	_, err = h.transition(order.ID, enums.OrderStatusDelivered)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition), "unpaid order cannot be delivered")

	_, err = h.transition(order.ID, enums.OrderStatus("shipped"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = h.transition(uuid.New(), enums.OrderStatusInProgress)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestOverpaymentLeavesStateUnchanged(t *testing.T) {
	h := newHarness(t)
	order := h.create(t, "1000", &PaymentInput{Amount: dec("980"), PaymentMethod: "Cash"})

	paid, err := h.pay("20", "Card", order.ID)
	require.NoError(t, err)
	assert.True(t, paid.AmountPaid.Equal(dec("1000")))

	_, err = h.pay("1", "Cash", order.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeOverpayment), "got %v", err)

	summary, err := h.svc.GetOrderSummary(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, summary.Order.AmountPaid.Equal(dec("1000")))
	assert.Equal(t, 2, summary.PaymentCount)
	assert.Len(t, h.entries(t, enums.SubjectTypeOrder, order.ID), 2)
	assertLedgerConsistent(t, h, order.ID)
}

func TestAddPaymentValidation(t *testing.T) {
	h := newHarness(t)
	order := h.create(t, "100", nil)

	_, err := h.pay("0", "Cash", order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = h.pay("-3", "Cash", order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = h.pay("10", "Cheque", order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = h.pay("10", "Cash", uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	_, err = h.svc.AddPayment(context.Background(), AddPaymentInput{
		OrderID: order.ID,
		Payment: PaymentInput{Amount: dec("1"), PaymentMethod: "Cash"},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestAddPaymentAutoDeliversCompletedOrder(t *testing.T) {
	h := newHarness(t)
	order := h.create(t, "500", &PaymentInput{Amount: dec("100"), PaymentMethod: "Cash"})
	_, err := h.transition(order.ID, enums.OrderStatusInProgress)
	require.NoError(t, err)
	_, err = h.transition(order.ID, enums.OrderStatusCompleted)
	require.NoError(t, err)

	partial, err := h.pay("150", "Cash", order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, partial.Status)

	final, err := h.pay("250", "Bank Transfer", order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, final.Status)
	assert.True(t, final.BalanceAmount.IsZero())

	entries := h.entries(t, enums.SubjectTypeOrder, order.ID)
	actions := make([]enums.ActivityAction, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	assert.Contains(t, actions, enums.ActivityOrderAutoDelivered)
	assert.Len(t, entries, 6)
	assertLedgerConsistent(t, h, order.ID)
}

func TestAddPaymentDoesNotAutoDeliverBeforeCompletion(t *testing.T) {
	h := newHarness(t)
	order := h.create(t, "100", nil)
	_, err := h.transition(order.ID, enums.OrderStatusInProgress)
	require.NoError(t, err)

	view, err := h.pay("100", "Cash", order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusInProgress, view.Status)
}

func TestDeletePendingOrderCascades(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.create(t, "1000", &PaymentInput{Amount: dec("300"), PaymentMethod: "Cash"})
	_, err := h.pay("100", "Cash", order.ID)
	require.NoError(t, err)

	require.NoError(t, h.svc.DeleteOrder(ctx, DeleteOrderInput{OrderID: order.ID, ActorID: h.actor}))

	_, err = h.svc.GetOrderSummary(ctx, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	var payments int64
	require.NoError(t, h.conn.Model(&models.OrderPayment{}).Where("order_id = ?", order.ID).Count(&payments).Error)
	assert.Zero(t, payments)
	assert.Empty(t, h.entries(t, enums.SubjectTypeOrder, order.ID))

	customerEntries := h.entries(t, enums.SubjectTypeCustomer, h.customerID)
	require.Len(t, customerEntries, 1)
	assert.Equal(t, enums.ActivityOrderDeleted, customerEntries[0].Action)
	assert.Contains(t, string(customerEntries[0].Metadata), order.OrderNumber)
}

func TestDeleteNonPendingOrderLeavesRowsUntouched(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.create(t, "1000", &PaymentInput{Amount: dec("300"), PaymentMethod: "Cash"})
	_, err := h.transition(order.ID, enums.OrderStatusInProgress)
	require.NoError(t, err)

	err = h.svc.DeleteOrder(ctx, DeleteOrderInput{OrderID: order.ID, ActorID: h.actor})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)

	summary, err := h.svc.GetOrderSummary(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.PaymentCount)
	assert.Equal(t, enums.OrderStatusInProgress, summary.Order.Status)
	assert.Len(t, h.entries(t, enums.SubjectTypeOrder, order.ID), 2)

	err = h.svc.DeleteOrder(ctx, DeleteOrderInput{OrderID: uuid.New(), ActorID: h.actor})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestConcurrentPaymentsDoNotLoseUpdates(t *testing.T) {
	h := newHarness(t)
	order := h.create(t, "1000", nil)

	const workers = 12
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.pay("25.50", "Cash", order.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	summary, err := h.svc.GetOrderSummary(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, summary.Order.AmountPaid.Equal(dec("306")), "amount_paid=%s", summary.Order.AmountPaid)
	assert.Equal(t, workers, summary.PaymentCount)
	assertLedgerConsistent(t, h, order.ID)
}

func TestConcurrentPaymentsNeverOvershootTotal(t *testing.T) {
	h := newHarness(t)
	order := h.create(t, "100", nil)

	const workers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, overpaid := 0, 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.pay("20", "Cash", order.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case pkgerrors.IsCode(err, pkgerrors.CodeOverpayment):
				overpaid++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 5, overpaid)
	assertLedgerConsistent(t, h, order.ID)
}

func TestListOrdersByCustomer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := h.create(t, "10", nil)
	h.create(t, "20", nil)
	third := h.create(t, "30", nil)
	_, err := h.transition(first.ID, enums.OrderStatusInProgress)
	require.NoError(t, err)

	page, err := h.svc.ListOrdersByCustomer(ctx, h.customerID, ListParams{Params: pagination.Params{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	assert.Equal(t, third.ID, page.Orders[0].ID)
	require.NotEmpty(t, page.NextCursor)

	rest, err := h.svc.ListOrdersByCustomer(ctx, h.customerID, ListParams{Params: pagination.Params{Limit: 2, Cursor: page.NextCursor}})
	require.NoError(t, err)
	require.Len(t, rest.Orders, 1)
	assert.Equal(t, first.ID, rest.Orders[0].ID)
	assert.Empty(t, rest.NextCursor)

	status := enums.OrderStatusInProgress
	filtered, err := h.svc.ListOrdersByCustomer(ctx, h.customerID, ListParams{Status: &status})
	require.NoError(t, err)
	require.Len(t, filtered.Orders, 1)
	assert.Equal(t, first.ID, filtered.Orders[0].ID)

	_, err = h.svc.ListOrdersByCustomer(ctx, h.customerID, ListParams{Params: pagination.Params{Cursor: "%%%"}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = h.svc.ListOrdersByCustomer(ctx, uuid.New(), ListParams{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestApplyPaymentRequiresTransaction(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.ApplyPayment(context.Background(), nil, AddPaymentInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.Error(t, err)
}

func TestStoreConstraintFailuresClassify(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	orphan := &models.Order{
		ID:          uuid.New(),
		CustomerID:  uuid.New(),
		OrderNumber: "ORD-900001",
		Status:      enums.OrderStatusPending,
		TotalAmount: dec("10"),
		AmountPaid:  dec("0"),
		CreatedBy:   h.actor,
		UpdatedBy:   h.actor,
	}
	err := db.Classify(h.repo.CreateOrder(ctx, orphan), "create order")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	order := h.create(t, "100", nil)
	raw := h.conn.Model(&models.Order{}).Where("id = ?", order.ID).Update("amount_paid", dec("150")).Error
	err = db.Classify(raw, "apply payment")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeOverpayment), "got %v", err)
}
