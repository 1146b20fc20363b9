package activity

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/inkhouse/backoffice/internal/repo"
	"github.com/inkhouse/backoffice/pkg/db/models"
	"github.com/inkhouse/backoffice/pkg/enums"
)

// Repository manages persistence for activity log entries. There is no
// update method: entries are append-only.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.ActivityLogEntry) error
	ListBySubject(ctx context.Context, subjectType enums.SubjectType, subjectID uuid.UUID, limit int) ([]models.ActivityLogEntry, error)
	DeleteBySubject(ctx context.Context, subjectType enums.SubjectType, subjectID uuid.UUID) (int64, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns an activity repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) Create(ctx context.Context, entry *models.ActivityLogEntry) error {
	return r.DB(ctx).Create(entry).Error
}

func (r *repository) ListBySubject(ctx context.Context, subjectType enums.SubjectType, subjectID uuid.UUID, limit int) ([]models.ActivityLogEntry, error) {
	var entries []models.ActivityLogEntry
	q := r.DB(ctx).
		Where("subject_type = ? AND subject_id = ?", subjectType, subjectID).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// DeleteBySubject is only used by the pending-order delete cascade.
func (r *repository) DeleteBySubject(ctx context.Context, subjectType enums.SubjectType, subjectID uuid.UUID) (int64, error) {
	res := r.DB(ctx).
		Where("subject_type = ? AND subject_id = ?", subjectType, subjectID).
		Delete(&models.ActivityLogEntry{})
	return res.RowsAffected, res.Error
}
