package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PersonalMeeting is a therapist's own session (supervision, personal therapy)
type PersonalMeeting struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	UserID        uint            `gorm:"index" json:"user_id"`
	TherapistName string          `gorm:"type:varchar(255)" json:"therapist_name"`
	MeetingType   string          `gorm:"type:varchar(50)" json:"meeting_type"` // e.g. "personal_therapy", "supervision"
	MeetingDate   time.Time       `json:"meeting_date"`
	Duration      int             `json:"duration"`
	Price         decimal.Decimal `gorm:"type:decimal(15,2)" json:"price"`
	Notes         string          `gorm:"type:text" json:"notes"`
	Summary       string          `gorm:"type:text" json:"summary"`

	IsPaid      bool       `gorm:"default:false" json:"is_paid"`
	PaymentDate *time.Time `json:"payment_date"`
	IsActive    bool       `gorm:"default:true" json:"is_active"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (m PersonalMeeting) Snapshot() SessionSnapshot {
	return SessionSnapshot{
		Ref:         PersonalMeetingRef(m.ID),
		OwnerUserID: m.UserID,
		Price:       m.Price,
		IsPaid:      m.IsPaid,
		PaymentDate: m.PaymentDate,
		IsActive:    m.IsActive,
	}
}
