package balances

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/inkhouse/backoffice/internal/repo"
	"github.com/inkhouse/backoffice/pkg/db/models"
)

// Repository persists previous balances and the payments made against them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindLive(ctx context.Context, customerID uuid.UUID) (*models.CustomerPreviousBalance, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.CustomerPreviousBalance, error)
	Create(ctx context.Context, balance *models.CustomerPreviousBalance) error
	Supersede(ctx context.Context, id uuid.UUID, at time.Time, actorID uuid.UUID) (int64, error)
	IncrementAmountPaid(ctx context.Context, id uuid.UUID, amount decimal.Decimal, actorID uuid.UUID) (int64, error)
	CreatePayment(ctx context.Context, payment *models.CustomerBalancePayment) error
	ListPayments(ctx context.Context, customerID uuid.UUID) ([]models.CustomerBalancePayment, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.CustomerPreviousBalance, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds a balances repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Bind(tx)}
}

// FindLive returns nil, nil when the customer has no live previous balance.
func (r *repository) FindLive(ctx context.Context, customerID uuid.UUID) (*models.CustomerPreviousBalance, error) {
	var balance models.CustomerPreviousBalance
	err := r.DB(ctx).
		Where("customer_id = ? AND superseded_at IS NULL", customerID).
		First(&balance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &balance, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CustomerPreviousBalance, error) {
	var balance models.CustomerPreviousBalance
	if err := r.DB(ctx).Where("id = ?", id).First(&balance).Error; err != nil {
		return nil, err
	}
	return &balance, nil
}

func (r *repository) Create(ctx context.Context, balance *models.CustomerPreviousBalance) error {
	return r.DB(ctx).Create(balance).Error
}

// Supersede stamps superseded_at once; a second call affects no rows.
func (r *repository) Supersede(ctx context.Context, id uuid.UUID, at time.Time, actorID uuid.UUID) (int64, error) {
	res := r.DB(ctx).
		Model(&models.CustomerPreviousBalance{}).
		Where("id = ? AND superseded_at IS NULL", id).
		Updates(map[string]any{
			"superseded_at": at,
			"updated_by":    actorID,
		})
	return res.RowsAffected, res.Error
}

// IncrementAmountPaid adds amount to a live balance in a single statement,
// refusing to pass total_amount.
func (r *repository) IncrementAmountPaid(ctx context.Context, id uuid.UUID, amount decimal.Decimal, actorID uuid.UUID) (int64, error) {
	res := r.DB(ctx).
		Model(&models.CustomerPreviousBalance{}).
		Where("id = ? AND superseded_at IS NULL AND amount_paid + ? <= total_amount", id, amount).
		Updates(map[string]any{
			"amount_paid": gorm.Expr("amount_paid + ?", amount),
			"updated_by":  actorID,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.CustomerBalancePayment) error {
	return r.DB(ctx).Create(payment).Error
}

func (r *repository) ListPayments(ctx context.Context, customerID uuid.UUID) ([]models.CustomerBalancePayment, error) {
	var payments []models.CustomerBalancePayment
	err := r.DB(ctx).
		Where("customer_id = ?", customerID).
		Order("payment_date ASC").
		Order("created_at ASC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

// ListByCustomer returns every previous balance, superseded ones included,
// oldest first.
func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.CustomerPreviousBalance, error) {
	var balances []models.CustomerPreviousBalance
	err := r.DB(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at ASC").
		Find(&balances).Error
	if err != nil {
		return nil, err
	}
	return balances, nil
}
