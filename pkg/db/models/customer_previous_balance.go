package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CustomerPreviousBalance is debt carried over from before the system was
// adopted. A row is live while SupersededAt is nil; at most one live row
// exists per customer.
type CustomerPreviousBalance struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CustomerID   uuid.UUID       `gorm:"column:customer_id;type:uuid;not null" json:"customer_id"`
	TotalAmount  decimal.Decimal `gorm:"column:total_amount;type:numeric(12,2);not null" json:"total_amount"`
	AmountPaid   decimal.Decimal `gorm:"column:amount_paid;type:numeric(12,2);not null;default:0" json:"amount_paid"`
	Notes        *string         `gorm:"column:notes" json:"notes,omitempty"`
	SupersededAt *time.Time      `gorm:"column:superseded_at" json:"superseded_at,omitempty"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	CreatedBy    uuid.UUID       `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
	UpdatedBy    uuid.UUID       `gorm:"column:updated_by;type:uuid;not null" json:"updated_by"`
}

func (CustomerPreviousBalance) TableName() string { return "customer_previous_balances" }

func (b *CustomerPreviousBalance) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Remaining is max(0, total - paid).
func (b CustomerPreviousBalance) Remaining() decimal.Decimal {
	remaining := b.TotalAmount.Sub(b.AmountPaid)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

func (b CustomerPreviousBalance) Live() bool {
	return b.SupersededAt == nil
}
