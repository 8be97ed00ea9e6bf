package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SessionType selects which table a payment's session id points into
type SessionType string

const (
	SessionTypeMeeting         SessionType = "MEETING"
	SessionTypePersonalMeeting SessionType = "PERSONAL_MEETING"
	SessionTypeExpense         SessionType = "EXPENSE"
)

// SessionTypes lists every billable session kind
var SessionTypes = []SessionType{SessionTypeMeeting, SessionTypePersonalMeeting, SessionTypeExpense}

// ParseSessionType accepts the canonical names case-insensitively
func ParseSessionType(s string) (SessionType, error) {
	st := SessionType(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case SessionTypeMeeting, SessionTypePersonalMeeting, SessionTypeExpense:
		return st, nil
	}
	return "", fmt.Errorf("unknown session type %q", s)
}

// SessionRef identifies one billable session: Meeting(id) | PersonalMeeting(id) | Expense(id)
type SessionRef struct {
	Type SessionType `json:"sessionType"`
	ID   uint        `json:"sessionId"`
}

func MeetingRef(id uint) SessionRef         { return SessionRef{Type: SessionTypeMeeting, ID: id} }
func PersonalMeetingRef(id uint) SessionRef { return SessionRef{Type: SessionTypePersonalMeeting, ID: id} }
func ExpenseRef(id uint) SessionRef         { return SessionRef{Type: SessionTypeExpense, ID: id} }

func (r SessionRef) String() string {
	return fmt.Sprintf("%s#%d", r.Type, r.ID)
}

// SessionSnapshot is the view of a session the payment lifecycle needs
type SessionSnapshot struct {
	Ref         SessionRef
	OwnerUserID uint
	Price       decimal.Decimal
	IsPaid      bool
	PaymentDate *time.Time
	IsActive    bool
}
