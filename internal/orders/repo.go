package orders

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/inkhouse/backoffice/internal/repo"
	"github.com/inkhouse/backoffice/pkg/db/models"
	"github.com/inkhouse/backoffice/pkg/enums"
	"github.com/inkhouse/backoffice/pkg/pagination"
)

// Repository defines persistence operations for orders and order payments.
// Monetary totals only change through IncrementAmountPaid.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	CreatePayment(ctx context.Context, payment *models.OrderPayment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListPayments(ctx context.Context, orderID uuid.UUID) ([]models.OrderPayment, error)
	ListPaymentsByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.OrderPayment, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, params ListParams) ([]models.Order, error)
	ListOpenByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Order, error)
	IncrementAmountPaid(ctx context.Context, id uuid.UUID, amount decimal.Decimal, actorID uuid.UUID) (int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, actorID uuid.UUID) (int64, error)
	DeletePayments(ctx context.Context, orderID uuid.UUID) (int64, error)
	DeletePending(ctx context.Context, id uuid.UUID) (int64, error)
	LatestOrderNumber(ctx context.Context, prefix string) (string, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.DB(ctx).Create(order).Error
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.OrderPayment) error {
	return r.DB(ctx).Create(payment).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.DB(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListPayments(ctx context.Context, orderID uuid.UUID) ([]models.OrderPayment, error) {
	var payments []models.OrderPayment
	err := r.DB(ctx).
		Where("order_id = ?", orderID).
		Order("payment_date ASC").
		Order("created_at ASC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

// ListPaymentsByCustomer returns every payment on the customer's orders.
func (r *repository) ListPaymentsByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.OrderPayment, error) {
	var payments []models.OrderPayment
	err := r.DB(ctx).
		Where("order_id IN (?)", r.DB(ctx).Model(&models.Order{}).Select("id").Where("customer_id = ?", customerID)).
		Order("payment_date ASC").
		Order("created_at ASC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

// ListByCustomer returns up to LimitWithBuffer rows, newest first.
func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, params ListParams) ([]models.Order, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	q := r.DB(ctx).Model(&models.Order{}).Where("customer_id = ?", customerID)
	if params.Status != nil {
		q = q.Where("status = ?", *params.Status)
	}
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var orders []models.Order
	err = q.Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// ListOpenByCustomer returns every not-yet-delivered order, oldest first.
func (r *repository) ListOpenByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB(ctx).
		Where("customer_id = ? AND status <> ?", customerID, enums.OrderStatusDelivered).
		Order("created_at ASC").
		Order("id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// IncrementAmountPaid adds amount in a single statement. The ceiling lives in
// the WHERE clause, so zero rows affected means the order is missing or the
// payment would overshoot the total.
func (r *repository) IncrementAmountPaid(ctx context.Context, id uuid.UUID, amount decimal.Decimal, actorID uuid.UUID) (int64, error) {
	res := r.DB(ctx).
		Model(&models.Order{}).
		Where("id = ? AND amount_paid + ? <= total_amount", id, amount).
		Updates(map[string]any{
			"amount_paid": gorm.Expr("amount_paid + ?", amount),
			"updated_by":  actorID,
		})
	return res.RowsAffected, res.Error
}

// UpdateStatus is a compare-and-set on status. Delivery is additionally
// guarded on the order being fully paid.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, actorID uuid.UUID) (int64, error) {
	q := r.DB(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from)
	if to == enums.OrderStatusDelivered {
		q = q.Where("amount_paid = total_amount")
	}
	res := q.Updates(map[string]any{
		"status":     to,
		"updated_by": actorID,
	})
	return res.RowsAffected, res.Error
}

func (r *repository) DeletePayments(ctx context.Context, orderID uuid.UUID) (int64, error) {
	res := r.DB(ctx).Where("order_id = ?", orderID).Delete(&models.OrderPayment{})
	return res.RowsAffected, res.Error
}

// DeletePending removes the order only while it is still pending.
func (r *repository) DeletePending(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.DB(ctx).
		Where("id = ? AND status = ?", id, enums.OrderStatusPending).
		Delete(&models.Order{})
	return res.RowsAffected, res.Error
}

// LatestOrderNumber returns the highest order number made of prefix and a
// numeric suffix, or "" when none exists. Hand-entered numbers with any other
// suffix are ignored. Longer numbers sort first so "ORD-1000000" beats
// "ORD-999999".
func (r *repository) LatestOrderNumber(ctx context.Context, prefix string) (string, error) {
	query := r.DB(ctx).Model(&models.Order{})
	if query.Dialector.Name() == "postgres" {
		query = query.Where("order_number ~ ?", "^"+regexp.QuoteMeta(prefix)+"[0-9]+$")
	} else {
		glob := escapeGlob(prefix)
		query = query.Where("order_number GLOB ? AND order_number NOT GLOB ?", glob+"[0-9]*", glob+"*[^0-9]*")
	}
	var numbers []string
	err := query.
		Order("LENGTH(order_number) DESC").
		Order("order_number DESC").
		Limit(1).
		Pluck("order_number", &numbers).Error
	if err != nil {
		return "", err
	}
	if len(numbers) == 0 {
		return "", nil
	}
	return numbers[0], nil
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[':
			b.WriteRune('[')
			b.WriteRune(r)
			b.WriteRune(']')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
