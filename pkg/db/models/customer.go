package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer owns orders, an optional previous balance and balance payments.
// Customers are deactivated, never hard deleted.
type Customer struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	DisplayName string    `gorm:"column:display_name;not null" json:"display_name"`
	Phone       *string   `gorm:"column:phone" json:"phone,omitempty"`
	Email       *string   `gorm:"column:email" json:"email,omitempty"`
	Address     *string   `gorm:"column:address" json:"address,omitempty"`
	Active      bool      `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	CreatedBy   uuid.UUID `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
	UpdatedBy   uuid.UUID `gorm:"column:updated_by;type:uuid;not null" json:"updated_by"`
}

func (Customer) TableName() string { return "customers" }

func (c *Customer) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
