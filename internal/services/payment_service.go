package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"practice_app_echo/internal/models"
)

// PaymentService is the payment lifecycle manager: the only writer of Payment
// rows and of the paid/payment_date fields of sessions. Every mutation runs in
// one transaction with the session row locked, so a session's is_paid flag and
// its ledger rows change together or not at all.
type PaymentService struct {
	db           *gorm.DB
	sessions     *SessionSources
	paymentTypes *PaymentTypeRegistry
	ledger       *PaymentLedger
	guard        *IdempotencyGuard
	cache        Cache
	log          *zap.Logger
	now          func() time.Time
}

// NewPaymentService wires the lifecycle manager. cache may be nil.
func NewPaymentService(db *gorm.DB, cache Cache, log *zap.Logger) *PaymentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PaymentService{
		db:           db,
		sessions:     NewSessionSources(db),
		paymentTypes: NewPaymentTypeRegistry(db),
		ledger:       NewPaymentLedger(db),
		guard:        NewIdempotencyGuard(cache, log),
		cache:        cache,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Ledger exposes the read side of the payment ledger
func (s *PaymentService) Ledger() *PaymentLedger { return s.ledger }

// PaymentTypes exposes the payment type registry
func (s *PaymentService) PaymentTypes() *PaymentTypeRegistry { return s.paymentTypes }

// FindSession loads the session a caller wants to act on
func (s *PaymentService) FindSession(ctx context.Context, ref models.SessionRef) (models.SessionSnapshot, error) {
	return s.sessions.FindSession(ctx, ref, false)
}

// MarkPaidInput carries the caller-supplied fields of a new payment
type MarkPaidInput struct {
	PaymentTypeID   uint
	Amount          *decimal.Decimal // nil means the session price
	ReferenceNumber string
	Notes           string
	TransactionID   string
	ReceiptURL      string
	IdempotencyKey  string
}

// RefundInput carries the caller-supplied fields of a refund
type RefundInput struct {
	RefundAmount   decimal.Decimal
	Notes          string
	IdempotencyKey string
}

// MarkSessionPaid appends a COMPLETED payment for the session and flips the
// session to paid. Existing rows for the session are left alone, so several
// active payments may coexist (partial payments).
func (s *PaymentService) MarkSessionPaid(ctx context.Context, ref models.SessionRef, in MarkPaidInput) (*models.Payment, error) {
	if in.Amount != nil {
		rounded := in.Amount.Round(2)
		if !rounded.IsPositive() {
			return nil, invalid("amount must be at least 0.01")
		}
		in.Amount = &rounded
	}
	key, err := NormalizeIdempotencyKey(in.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	release, err := s.guard.Acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	defer release()

	var payment models.Payment
	replayed := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ledger := s.ledger.WithTx(tx)
		sessions := s.sessions.WithTx(tx)

		if key != "" {
			existing, err := ledger.FindByIdempotencyKey(ctx, key)
			if err == nil {
				if existing.Session() != ref || existing.IsRefund() {
					return invalid("idempotency key %q was used for another request", key)
				}
				payment = *existing
				replayed = true
				return nil
			}
			if !errors.Is(err, ErrNotFound) {
				return err
			}
		}

		session, err := sessions.FindSession(ctx, ref, true)
		if err != nil {
			return err
		}

		pt, err := s.paymentTypes.WithTx(tx).FindByID(ctx, in.PaymentTypeID)
		if err != nil {
			return err
		}
		if !pt.IsActive {
			return invalid("payment type %q is inactive", pt.Name)
		}

		amount := session.Price.Round(2)
		if in.Amount != nil {
			amount = *in.Amount
		}
		if !amount.IsPositive() {
			return invalid("session %s has no price; an amount is required", ref)
		}

		now := s.now()
		payment = models.Payment{
			UUID:            uuid.NewString(),
			UserID:          session.OwnerUserID,
			SessionID:       ref.ID,
			SessionType:     ref.Type,
			PaymentTypeID:   pt.ID,
			Amount:          amount,
			PaymentDate:     now,
			ReferenceNumber: in.ReferenceNumber,
			Notes:           in.Notes,
			TransactionID:   in.TransactionID,
			ReceiptURL:      in.ReceiptURL,
			Status:          models.PaymentStatusCompleted,
			IsActive:        true,
			IdempotencyKey:  optionalKey(key),
		}
		if err := ledger.Create(ctx, &payment); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		if err := sessions.SetSessionPaid(ctx, ref, true, &now); err != nil {
			return err
		}
		payment.PaymentType = *pt
		return nil
	})
	if err != nil {
		return nil, classifyTxError(err)
	}

	if replayed {
		s.log.Info("idempotent replay of mark paid", zap.Uint("payment_id", payment.ID), zap.String("key", key))
		return &payment, nil
	}

	s.invalidateSummaries(ctx, payment.UserID)
	s.log.Info("session marked paid",
		zap.Stringer("session", ref),
		zap.Uint("payment_id", payment.ID),
		zap.String("amount", payment.Amount.StringFixed(2)),
	)
	return &payment, nil
}

// MarkSessionUnpaid deactivates every payment of the session and flips it to
// unpaid. Rows stay in the ledger. The result reports whether any row changed;
// calling it again is a no-op returning false.
func (s *PaymentService) MarkSessionUnpaid(ctx context.Context, ref models.SessionRef) (bool, error) {
	var (
		changed int64
		ownerID uint
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sessions := s.sessions.WithTx(tx)
		session, err := sessions.FindSession(ctx, ref, true)
		if err != nil {
			return err
		}
		ownerID = session.OwnerUserID

		changed, err = s.ledger.WithTx(tx).DeactivateForSession(ctx, ref, s.now())
		if err != nil {
			return fmt.Errorf("deactivate payments: %w", err)
		}
		return sessions.SetSessionPaid(ctx, ref, false, nil)
	})
	if err != nil {
		return false, classifyTxError(err)
	}

	if changed > 0 {
		s.invalidateSummaries(ctx, ownerID)
	}
	s.log.Info("session marked unpaid", zap.Stringer("session", ref), zap.Int64("deactivated", changed))
	return changed > 0, nil
}

// RefundPayment marks the original payment REFUNDED and appends a refund row
// carrying the negated amount. The original stays active, so active totals are
// net of refunds. Cumulative refunds may not exceed the original amount.
func (s *PaymentService) RefundPayment(ctx context.Context, paymentID uint, in RefundInput) (*models.Payment, error) {
	in.RefundAmount = in.RefundAmount.Round(2)
	if !in.RefundAmount.IsPositive() {
		return nil, invalid("refund amount must be at least 0.01")
	}
	key, err := NormalizeIdempotencyKey(in.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	release, err := s.guard.Acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	defer release()

	var refund models.Payment
	replayed := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ledger := s.ledger.WithTx(tx)

		if key != "" {
			existing, err := ledger.FindByIdempotencyKey(ctx, key)
			if err == nil {
				if existing.RefundOfID == nil || *existing.RefundOfID != paymentID {
					return invalid("idempotency key %q was used for another request", key)
				}
				refund = *existing
				replayed = true
				return nil
			}
			if !errors.Is(err, ErrNotFound) {
				return err
			}
		}

		original, err := ledger.FindByID(ctx, paymentID, false)
		if err != nil {
			return err
		}
		// session row first, same lock order as mark paid/unpaid
		if _, err := s.sessions.WithTx(tx).FindSession(ctx, original.Session(), true); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		original, err = ledger.FindByID(ctx, paymentID, true)
		if err != nil {
			return err
		}

		if original.IsRefund() {
			return invalid("payment %d is itself a refund", original.ID)
		}
		if !models.CanTransition(original.Status, models.PaymentStatusRefunded) {
			return fmt.Errorf("payment %d is %s: %w", original.ID, original.Status, ErrInvalidTransition)
		}

		refunded, err := ledger.RefundedTotal(ctx, original.ID)
		if err != nil {
			return err
		}
		amount := in.RefundAmount
		if refunded.Add(amount).GreaterThan(original.Amount) {
			return invalid("refund of %s exceeds refundable %s on payment %d",
				amount.StringFixed(2), original.Amount.Sub(refunded).StringFixed(2), original.ID)
		}

		now := s.now()
		ok, err := ledger.CompareAndSetStatus(ctx, original.ID, original.Status, models.PaymentStatusRefunded, now)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("payment %d changed during refund: %w", original.ID, ErrConflictRetry)
		}

		notes := in.Notes
		if notes == "" {
			notes = fmt.Sprintf("Refund for payment #%d", original.ID)
		}
		originalID := original.ID
		refund = models.Payment{
			UUID:           uuid.NewString(),
			UserID:         original.UserID,
			SessionID:      original.SessionID,
			SessionType:    original.SessionType,
			PaymentTypeID:  original.PaymentTypeID,
			Amount:         amount.Neg(),
			PaymentDate:    now,
			Notes:          notes,
			Status:         models.PaymentStatusRefunded,
			IsActive:       true,
			RefundOfID:     &originalID,
			IdempotencyKey: optionalKey(key),
		}
		if err := ledger.Create(ctx, &refund); err != nil {
			return fmt.Errorf("create refund: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, classifyTxError(err)
	}

	if !replayed {
		s.invalidateSummaries(ctx, refund.UserID)
		s.log.Info("payment refunded",
			zap.Uint("payment_id", paymentID),
			zap.Uint("refund_id", refund.ID),
			zap.String("amount", refund.Amount.StringFixed(2)),
		)
	}
	return s.ledger.FindByID(ctx, refund.ID, false)
}

// UpdatePaymentStatus is the administrative status correction. It follows the
// state machine, keeps is_active in step with the status and never touches
// the owning session. Setting the current status again is a no-op.
func (s *PaymentService) UpdatePaymentStatus(ctx context.Context, paymentID uint, status models.PaymentStatus) (*models.Payment, error) {
	var userID uint
	changed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ledger := s.ledger.WithTx(tx)
		p, err := ledger.FindByID(ctx, paymentID, true)
		if err != nil {
			return err
		}
		userID = p.UserID
		if p.Status == status {
			return nil
		}
		if !models.CanTransition(p.Status, status) {
			return fmt.Errorf("payment %d %s -> %s: %w", p.ID, p.Status, status, ErrInvalidTransition)
		}
		ok, err := ledger.CompareAndSetStatus(ctx, p.ID, p.Status, status, s.now())
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("payment %d changed concurrently: %w", p.ID, ErrConflictRetry)
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, classifyTxError(err)
	}

	if changed {
		s.invalidateSummaries(ctx, userID)
		s.log.Info("payment status updated", zap.Uint("payment_id", paymentID), zap.String("status", string(status)))
	}
	return s.ledger.FindByID(ctx, paymentID, false)
}

// GetPaymentsForSession returns the rows currently counted for the session
func (s *PaymentService) GetPaymentsForSession(ctx context.Context, ref models.SessionRef) ([]models.Payment, error) {
	return s.ledger.ListForSession(ctx, ref, true)
}

// GetAllPaymentsForSession returns the full audit history of the session
func (s *PaymentService) GetAllPaymentsForSession(ctx context.Context, ref models.SessionRef) ([]models.Payment, error) {
	return s.ledger.ListForSession(ctx, ref, false)
}

func optionalKey(key string) *string {
	if key == "" {
		return nil
	}
	return &key
}

// classifyTxError maps storage failures onto the error taxonomy
func classifyTxError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrValidationFailed), errors.Is(err, ErrConflictRetry):
		return err
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%v: %w", err, ErrConflictRetry)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03": // serialization_failure, deadlock_detected, lock_not_available
			return fmt.Errorf("%s: %w", pgErr.Message, ErrConflictRetry)
		}
	}
	return err
}
