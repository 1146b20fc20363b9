package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/inkhouse/backoffice/pkg/enums"
)

// Order is a customer's job. AmountPaid is the running total of its
// OrderPayment rows and only moves through guarded increments.
type Order struct {
	ID                    uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CustomerID            uuid.UUID         `gorm:"column:customer_id;type:uuid;not null" json:"customer_id"`
	OrderNumber           string            `gorm:"column:order_number;not null;uniqueIndex" json:"order_number"`
	Status                enums.OrderStatus `gorm:"column:status;type:order_status;not null" json:"status"`
	TotalAmount           decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null" json:"total_amount"`
	AmountPaid            decimal.Decimal   `gorm:"column:amount_paid;type:numeric(12,2);not null;default:0" json:"amount_paid"`
	EstimatedDeliveryDate *time.Time        `gorm:"column:estimated_delivery_date" json:"estimated_delivery_date,omitempty"`
	Notes                 *string           `gorm:"column:notes" json:"notes,omitempty"`
	CreatedAt             time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	CreatedBy             uuid.UUID         `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
	UpdatedBy             uuid.UUID         `gorm:"column:updated_by;type:uuid;not null" json:"updated_by"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// BalanceAmount is never stored.
func (o Order) BalanceAmount() decimal.Decimal {
	return o.TotalAmount.Sub(o.AmountPaid)
}

func (o Order) FullyPaid() bool {
	return o.AmountPaid.Equal(o.TotalAmount)
}
