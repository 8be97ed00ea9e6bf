package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Meeting is a scheduled session between a therapist and a client
type Meeting struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	UserID      uint            `gorm:"index" json:"user_id"`
	ClientID    uint            `gorm:"index" json:"client_id"`
	MeetingDate time.Time       `json:"meeting_date"`
	Duration    int             `json:"duration"` // minutes
	Price       decimal.Decimal `gorm:"type:decimal(15,2)" json:"price"`
	Notes       string          `gorm:"type:text" json:"notes"`

	IsPaid      bool       `gorm:"default:false" json:"is_paid"`
	PaymentDate *time.Time `json:"payment_date"`
	IsActive    bool       `gorm:"default:true" json:"is_active"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (m Meeting) Snapshot() SessionSnapshot {
	return SessionSnapshot{
		Ref:         MeetingRef(m.ID),
		OwnerUserID: m.UserID,
		Price:       m.Price,
		IsPaid:      m.IsPaid,
		PaymentDate: m.PaymentDate,
		IsActive:    m.IsActive,
	}
}
