package customers

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/inkhouse/backoffice/internal/repo"
	"github.com/inkhouse/backoffice/pkg/db/models"
	"github.com/inkhouse/backoffice/pkg/pagination"
)

// Repository defines persistence operations for customers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, customer *models.Customer) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	List(ctx context.Context, params ListParams) ([]models.Customer, error)
	Deactivate(ctx context.Context, id, actorID uuid.UUID) (int64, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds a customers repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) Create(ctx context.Context, customer *models.Customer) error {
	return r.DB(ctx).Create(customer).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.DB(ctx).Where("id = ?", id).First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// List returns up to LimitWithBuffer rows so the caller can detect a next page.
func (r *repository) List(ctx context.Context, params ListParams) ([]models.Customer, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	q := r.DB(ctx).Model(&models.Customer{})
	if params.Active != nil {
		q = q.Where("active = ?", *params.Active)
	}
	if search := strings.TrimSpace(params.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(display_name) LIKE ? OR phone LIKE ?", like, like)
	}
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var customers []models.Customer
	err = q.Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}

// Deactivate flips active only while the customer is still active.
func (r *repository) Deactivate(ctx context.Context, id, actorID uuid.UUID) (int64, error) {
	res := r.DB(ctx).
		Model(&models.Customer{}).
		Where("id = ? AND active = ?", id, true).
		Updates(map[string]any{"active": false, "updated_by": actorID})
	return res.RowsAffected, res.Error
}
