package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Expense is money the practice spends (rent, supplies); payable like a session
type Expense struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	UserID      uint            `gorm:"index" json:"user_id"`
	Name        string          `gorm:"type:varchar(255)" json:"name"`
	Category    string          `gorm:"type:varchar(100)" json:"category"`
	Amount      decimal.Decimal `gorm:"type:decimal(15,2)" json:"amount"`
	ExpenseDate time.Time       `json:"expense_date"`
	Notes       string          `gorm:"type:text" json:"notes"`

	IsPaid      bool       `gorm:"default:false" json:"is_paid"`
	PaymentDate *time.Time `json:"payment_date"`
	IsActive    bool       `gorm:"default:true" json:"is_active"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (e Expense) Snapshot() SessionSnapshot {
	return SessionSnapshot{
		Ref:         ExpenseRef(e.ID),
		OwnerUserID: e.UserID,
		Price:       e.Amount,
		IsPaid:      e.IsPaid,
		PaymentDate: e.PaymentDate,
		IsActive:    e.IsActive,
	}
}
