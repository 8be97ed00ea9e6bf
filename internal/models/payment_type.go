package models

import (
	"time"
)

// PaymentType is a named payment method (cash, bank transfer, ...)
type PaymentType struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name     string `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	IsActive bool   `gorm:"default:true" json:"is_active"`
}

// DefaultPaymentTypes are seeded on first start
var DefaultPaymentTypes = []string{"Cash", "Bank Transfer", "Card"}
