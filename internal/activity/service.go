package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/inkhouse/backoffice/pkg/db"
	"github.com/inkhouse/backoffice/pkg/db/models"
	"github.com/inkhouse/backoffice/pkg/enums"
	pkgerrors "github.com/inkhouse/backoffice/pkg/errors"
	"github.com/inkhouse/backoffice/pkg/pagination"
)

// Service records and reads the activity trail. Record always runs inside the
// caller's transaction so an entry commits or rolls back with its mutation.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, input RecordInput) (*models.ActivityLogEntry, error)
	PurgeSubject(ctx context.Context, tx *gorm.DB, subjectType enums.SubjectType, subjectID uuid.UUID) error
	List(ctx context.Context, subjectType enums.SubjectType, subjectID uuid.UUID, limit int) ([]models.ActivityLogEntry, error)
}

// RecordInput captures one activity entry. Metadata is marshalled to JSON.
type RecordInput struct {
	SubjectType enums.SubjectType
	SubjectID   uuid.UUID
	Action      enums.ActivityAction
	Details     string
	Metadata    any
	ActorID     uuid.UUID
	RequestID   string
}

type service struct {
	repo Repository
}

// NewService wires an activity service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("activity repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, tx *gorm.DB, input RecordInput) (*models.ActivityLogEntry, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "activity entries must be recorded inside a transaction")
	}
	if !input.SubjectType.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid subject type %q", input.SubjectType)
	}
	if input.SubjectID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subject id is required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}
	if !input.Action.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid activity action %q", input.Action)
	}

	entry := &models.ActivityLogEntry{
		ID:          uuid.New(),
		SubjectType: input.SubjectType,
		SubjectID:   input.SubjectID,
		Action:      input.Action,
		Details:     strings.TrimSpace(input.Details),
		ActorID:     input.ActorID,
	}
	if rid := strings.TrimSpace(input.RequestID); rid != "" {
		entry.RequestID = &rid
	}
	if input.Metadata != nil {
		raw, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode activity metadata")
		}
		entry.Metadata = raw
	}

	if err := s.repo.WithTx(tx).Create(ctx, entry); err != nil {
		return nil, db.Classify(err, "record activity")
	}
	return entry, nil
}

func (s *service) PurgeSubject(ctx context.Context, tx *gorm.DB, subjectType enums.SubjectType, subjectID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "activity purge must run inside a transaction")
	}
	if _, err := s.repo.WithTx(tx).DeleteBySubject(ctx, subjectType, subjectID); err != nil {
		return db.Classify(err, "purge activity")
	}
	return nil
}

func (s *service) List(ctx context.Context, subjectType enums.SubjectType, subjectID uuid.UUID, limit int) ([]models.ActivityLogEntry, error) {
	if !subjectType.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid subject type %q", subjectType)
	}
	if subjectID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subject id is required")
	}
	entries, err := s.repo.ListBySubject(ctx, subjectType, subjectID, pagination.NormalizeLimit(limit))
	if err != nil {
		return nil, db.Classify(err, "list activity")
	}
	return entries, nil
}
