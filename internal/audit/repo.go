package audit

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/inkhouse/backoffice/internal/repo"
	"github.com/inkhouse/backoffice/pkg/db/models"
)

// Repository reads stored totals next to the payment rows they summarize.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	OrderBatch(ctx context.Context, after uuid.UUID, limit int) ([]models.Order, error)
	OrderPayments(ctx context.Context, orderIDs []uuid.UUID) ([]models.OrderPayment, error)
	LockOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	SetOrderAmountPaid(ctx context.Context, id uuid.UUID, stored, recomputed decimal.Decimal) (int64, error)
	PreviousBalanceBatch(ctx context.Context, after uuid.UUID, limit int) ([]models.CustomerPreviousBalance, error)
	BalancePayments(ctx context.Context, balanceIDs []uuid.UUID) ([]models.CustomerBalancePayment, error)
	LockPreviousBalance(ctx context.Context, id uuid.UUID) (*models.CustomerPreviousBalance, error)
	SetPreviousBalanceAmountPaid(ctx context.Context, id uuid.UUID, stored, recomputed decimal.Decimal) (int64, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds an audit repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Bind(tx)}
}

// OrderBatch pages through orders by id.
func (r *repository) OrderBatch(ctx context.Context, after uuid.UUID, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB(ctx).
		Where("id > ?", after).
		Order("id ASC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) OrderPayments(ctx context.Context, orderIDs []uuid.UUID) ([]models.OrderPayment, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	var payments []models.OrderPayment
	if err := r.DB(ctx).Where("order_id IN ?", orderIDs).Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// LockOrder re-reads the order with a row lock so no payment lands while it
// is being repaired.
func (r *repository) LockOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// SetOrderAmountPaid overwrites the stored total only if it still holds the
// value the audit observed.
func (r *repository) SetOrderAmountPaid(ctx context.Context, id uuid.UUID, stored, recomputed decimal.Decimal) (int64, error) {
	res := r.DB(ctx).
		Model(&models.Order{}).
		Where("id = ? AND amount_paid = ?", id, stored).
		Update("amount_paid", recomputed)
	return res.RowsAffected, res.Error
}

func (r *repository) PreviousBalanceBatch(ctx context.Context, after uuid.UUID, limit int) ([]models.CustomerPreviousBalance, error) {
	var balances []models.CustomerPreviousBalance
	err := r.DB(ctx).
		Where("id > ?", after).
		Order("id ASC").
		Limit(limit).
		Find(&balances).Error
	if err != nil {
		return nil, err
	}
	return balances, nil
}

func (r *repository) BalancePayments(ctx context.Context, balanceIDs []uuid.UUID) ([]models.CustomerBalancePayment, error) {
	if len(balanceIDs) == 0 {
		return nil, nil
	}
	var payments []models.CustomerBalancePayment
	if err := r.DB(ctx).Where("previous_balance_id IN ?", balanceIDs).Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repository) LockPreviousBalance(ctx context.Context, id uuid.UUID) (*models.CustomerPreviousBalance, error) {
	var balance models.CustomerPreviousBalance
	err := r.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&balance).Error
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

func (r *repository) SetPreviousBalanceAmountPaid(ctx context.Context, id uuid.UUID, stored, recomputed decimal.Decimal) (int64, error) {
	res := r.DB(ctx).
		Model(&models.CustomerPreviousBalance{}).
		Where("id = ? AND amount_paid = ?", id, stored).
		Update("amount_paid", recomputed)
	return res.RowsAffected, res.Error
}
