package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/inkhouse/backoffice/pkg/enums"
)

// OrderPayment is an immutable payment event against one order.
type OrderPayment struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderID       uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	Amount        decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;not null" json:"payment_method"`
	PaymentDate   time.Time           `gorm:"column:payment_date;not null" json:"payment_date"`
	Notes         *string             `gorm:"column:notes" json:"notes,omitempty"`
	CreatedBy     uuid.UUID           `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (OrderPayment) TableName() string { return "order_payments" }

func (p *OrderPayment) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
