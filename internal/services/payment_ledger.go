package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"practice_app_echo/internal/models"
)

// PaymentLedger is the append-mostly store of Payment rows. It never deletes;
// the only in-place writes touch status, is_active and updated_at.
type PaymentLedger struct {
	db *gorm.DB
}

func NewPaymentLedger(db *gorm.DB) *PaymentLedger {
	return &PaymentLedger{db: db}
}

func (l *PaymentLedger) WithTx(tx *gorm.DB) *PaymentLedger {
	return &PaymentLedger{db: tx}
}

func (l *PaymentLedger) Create(ctx context.Context, p *models.Payment) error {
	return l.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error
}

func (l *PaymentLedger) FindByID(ctx context.Context, id uint, forUpdate bool) (*models.Payment, error) {
	q := l.db.WithContext(ctx)
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	} else {
		q = q.Preload("PaymentType")
	}
	var p models.Payment
	err := q.First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("payment %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (l *PaymentLedger) FindByUUID(ctx context.Context, uuid string) (*models.Payment, error) {
	var p models.Payment
	err := l.db.WithContext(ctx).Preload("PaymentType").Where("uuid = ?", uuid).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("payment %s", uuid)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (l *PaymentLedger) FindByIdempotencyKey(ctx context.Context, key string) (*models.Payment, error) {
	var p models.Payment
	err := l.db.WithContext(ctx).Preload("PaymentType").Where("idempotency_key = ?", key).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("payment with idempotency key %q", key)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListForSession returns the session's rows oldest first; activeOnly filters
// to rows that count toward current totals
func (l *PaymentLedger) ListForSession(ctx context.Context, ref models.SessionRef, activeOnly bool) ([]models.Payment, error) {
	q := l.db.WithContext(ctx).Preload("PaymentType").
		Where("session_id = ? AND session_type = ?", ref.ID, ref.Type)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var payments []models.Payment
	err := q.Order("id").Find(&payments).Error
	return payments, err
}

// ListByUserAndRange returns the user's rows with payment_date in [start, end]
func (l *PaymentLedger) ListByUserAndRange(ctx context.Context, userID uint, start, end time.Time, activeOnly bool) ([]models.Payment, error) {
	q := l.db.WithContext(ctx).Preload("PaymentType").
		Where("user_id = ? AND payment_date >= ? AND payment_date <= ?", userID, start, end)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var payments []models.Payment
	err := q.Order("payment_date, id").Find(&payments).Error
	return payments, err
}

// PaidSessionIDs returns the ids of sessions of one type that hold at least one
// row counting as paid
func (l *PaymentLedger) PaidSessionIDs(ctx context.Context, t models.SessionType) (map[uint]bool, error) {
	var ids []uint
	err := l.db.WithContext(ctx).Model(&models.Payment{}).
		Where("session_type = ? AND is_active = ? AND status <> ?", t, true, models.PaymentStatusInactive).
		Distinct().Pluck("session_id", &ids).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// DeactivateForSession flips every not-yet-inactive row of the session to
// INACTIVE and reports how many rows changed
func (l *PaymentLedger) DeactivateForSession(ctx context.Context, ref models.SessionRef, now time.Time) (int64, error) {
	res := l.db.WithContext(ctx).Model(&models.Payment{}).
		Where("session_id = ? AND session_type = ? AND status <> ?", ref.ID, ref.Type, models.PaymentStatusInactive).
		Updates(map[string]interface{}{
			"status":     models.PaymentStatusInactive,
			"is_active":  false,
			"updated_at": now,
		})
	return res.RowsAffected, res.Error
}

// CompareAndSetStatus moves a row from one status to another; false means the
// row no longer had the expected status
func (l *PaymentLedger) CompareAndSetStatus(ctx context.Context, id uint, from, to models.PaymentStatus, now time.Time) (bool, error) {
	res := l.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"is_active":  to.ActiveFor(),
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RefundedTotal is the positive sum already refunded against a payment
func (l *PaymentLedger) RefundedTotal(ctx context.Context, originalID uint) (decimal.Decimal, error) {
	var refunds []models.Payment
	if err := l.db.WithContext(ctx).Where("refund_of_id = ?", originalID).Find(&refunds).Error; err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, r := range refunds {
		total = total.Add(r.Amount.Abs())
	}
	return total, nil
}
