package customers

import (
	"github.com/google/uuid"

	"github.com/inkhouse/backoffice/pkg/db/models"
	"github.com/inkhouse/backoffice/pkg/pagination"
)

// CreateCustomerInput carries the fields accepted when registering a customer.
type CreateCustomerInput struct {
	DisplayName string
	Phone       *string
	Email       *string
	Address     *string
	ActorID     uuid.UUID
	RequestID   string
}

// DeactivateCustomerInput soft-deletes a customer.
type DeactivateCustomerInput struct {
	CustomerID uuid.UUID
	ActorID    uuid.UUID
	RequestID  string
}

// ListParams filters the customer listing. A nil Active lists everyone.
type ListParams struct {
	pagination.Params
	Active *bool
	Search string
}

// CustomerList is one page of customers, newest first.
type CustomerList struct {
	Customers  []models.Customer `json:"customers"`
	NextCursor string            `json:"next_cursor,omitempty"`
}
