package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/inkhouse/backoffice/internal/activity"
	"github.com/inkhouse/backoffice/internal/ledger"
	"github.com/inkhouse/backoffice/pkg/db"
	"github.com/inkhouse/backoffice/pkg/db/models"
	"github.com/inkhouse/backoffice/pkg/enums"
	pkgerrors "github.com/inkhouse/backoffice/pkg/errors"
	"github.com/inkhouse/backoffice/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages the customer records that own orders and balances.
type Service interface {
	Create(ctx context.Context, input CreateCustomerInput) (*models.Customer, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	List(ctx context.Context, params ListParams) (*CustomerList, error)
	Deactivate(ctx context.Context, input DeactivateCustomerInput) (*models.Customer, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	activity activity.Service
	validate *validator.Validate
}

// NewService builds a customer service with the required dependencies.
func NewService(repo Repository, tx txRunner, activitySvc activity.Service) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customers repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if activitySvc == nil {
		return nil, fmt.Errorf("activity service required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		activity: activitySvc,
		validate: validator.New(),
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateCustomerInput) (*models.Customer, error) {
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}
	name := strings.TrimSpace(input.DisplayName)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "display name is required")
	}
	email := ledger.Trimmed(input.Email)
	if email != nil {
		if err := s.validate.Var(*email, "email"); err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is invalid").
				WithDetails(map[string]string{"email": "must be a valid email"})
		}
	}

	customer := &models.Customer{
		ID:          uuid.New(),
		DisplayName: name,
		Phone:       ledger.Trimmed(input.Phone),
		Email:       email,
		Address:     ledger.Trimmed(input.Address),
		Active:      true,
		CreatedBy:   input.ActorID,
		UpdatedBy:   input.ActorID,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, customer); err != nil {
			return db.Classify(err, "create customer")
		}
		_, err := s.activity.Record(ctx, tx, activity.RecordInput{
			SubjectType: enums.SubjectTypeCustomer,
			SubjectID:   customer.ID,
			Action:      enums.ActivityCustomerCreated,
			Details:     fmt.Sprintf("Customer %s created", customer.DisplayName),
			ActorID:     input.ActorID,
			RequestID:   input.RequestID,
		})
		return err
	})
	if err != nil {
		return nil, db.Classify(err, "create customer")
	}
	return customer, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, db.Classify(err, "load customer")
	}
	return customer, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*CustomerList, error) {
	rows, err := s.repo.List(ctx, params)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		return nil, db.Classify(err, "list customers")
	}
	page, next := pagination.Trim(rows, params.Limit, func(c models.Customer) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})
	return &CustomerList{Customers: page, NextCursor: next}, nil
}

func (s *service) Deactivate(ctx context.Context, input DeactivateCustomerInput) (*models.Customer, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}

	var customer *models.Customer
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		affected, err := repo.Deactivate(ctx, input.CustomerID, input.ActorID)
		if err != nil {
			return db.Classify(err, "deactivate customer")
		}
		current, err := repo.FindByID(ctx, input.CustomerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
			}
			return db.Classify(err, "load customer")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "customer already inactive")
		}
		customer = current
		_, err = s.activity.Record(ctx, tx, activity.RecordInput{
			SubjectType: enums.SubjectTypeCustomer,
			SubjectID:   current.ID,
			Action:      enums.ActivityCustomerDeactivated,
			Details:     fmt.Sprintf("Customer %s deactivated", current.DisplayName),
			ActorID:     input.ActorID,
			RequestID:   input.RequestID,
		})
		return err
	})
	if err != nil {
		return nil, db.Classify(err, "deactivate customer")
	}
	return customer, nil
}
