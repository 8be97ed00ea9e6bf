package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the ledger row state; it is the single source of truth,
// IsActive mirrors it for query speed
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
	PaymentStatusInactive  PaymentStatus = "INACTIVE"
)

// ParsePaymentStatus validates an externally supplied status name
func ParsePaymentStatus(s string) (PaymentStatus, bool) {
	switch st := PaymentStatus(s); st {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusRefunded, PaymentStatusInactive:
		return st, true
	}
	return "", false
}

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:   {PaymentStatusCompleted, PaymentStatusInactive},
	PaymentStatusCompleted: {PaymentStatusRefunded, PaymentStatusInactive},
	// a partially refunded payment can be refunded again
	PaymentStatusRefunded: {PaymentStatusRefunded, PaymentStatusInactive},
	PaymentStatusInactive: nil,
}

// CanTransition reports whether from -> to is an edge of the payment state machine
func CanTransition(from, to PaymentStatus) bool {
	for _, next := range paymentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ActiveFor returns the IsActive value implied by a status
func (s PaymentStatus) ActiveFor() bool {
	return s != PaymentStatusInactive
}

// Payment is one ledger entry tied to exactly one (session_id, session_type) pair.
// Rows are never deleted; only Status, IsActive and UpdatedAt change after insert.
type Payment struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UUID        string      `gorm:"type:varchar(36);uniqueIndex" json:"uuid"`
	UserID      uint        `gorm:"index" json:"user_id"`
	SessionID   uint        `gorm:"index:idx_payments_session,priority:2;not null" json:"session_id"`
	SessionType SessionType `gorm:"type:varchar(20);index:idx_payments_session,priority:1;not null" json:"session_type"`

	PaymentTypeID uint            `gorm:"index;not null" json:"payment_type_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	PaymentDate   time.Time       `gorm:"index" json:"payment_date"`

	ReferenceNumber string `gorm:"type:varchar(100)" json:"reference_number"`
	Notes           string `gorm:"type:text" json:"notes"`
	TransactionID   string `gorm:"type:varchar(100)" json:"transaction_id"`
	ReceiptURL      string `gorm:"type:text" json:"receipt_url"`

	Status   PaymentStatus `gorm:"type:varchar(20);not null;default:'COMPLETED'" json:"status"`
	IsActive bool          `gorm:"default:true;index" json:"is_active"`

	RefundOfID     *uint   `gorm:"index" json:"refund_of_id,omitempty"`
	IdempotencyKey *string `gorm:"type:varchar(100);uniqueIndex" json:"-"`

	PaymentType PaymentType `gorm:"foreignKey:PaymentTypeID" json:"payment_type,omitempty"`
}

// Session returns the polymorphic reference this row is booked against
func (p Payment) Session() SessionRef {
	return SessionRef{Type: p.SessionType, ID: p.SessionID}
}

// IsRefund reports whether the row reverses another payment
func (p Payment) IsRefund() bool {
	return p.RefundOfID != nil || p.Amount.IsNegative()
}

// CountsAsPaid reports whether the row keeps its session in the paid state
func (p Payment) CountsAsPaid() bool {
	return p.IsActive && p.Status != PaymentStatusInactive
}
