package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"practice_app_echo/internal/models"
)

const summaryCacheTTL = 5 * time.Minute

// PaymentSummary aggregates a user's active ledger rows over a date range.
// TotalRefunds is reported as a positive number.
type PaymentSummary struct {
	TotalPayments decimal.Decimal `json:"totalPayments"`
	TotalRefunds  decimal.Decimal `json:"totalRefunds"`
	NetAmount     decimal.Decimal `json:"netAmount"`
	PaymentCount  int             `json:"paymentCount"`
	RefundCount   int             `json:"refundCount"`
}

// Summarize folds ledger rows into a summary; inactive rows are skipped
func Summarize(payments []models.Payment) PaymentSummary {
	sum := PaymentSummary{
		TotalPayments: decimal.Zero,
		TotalRefunds:  decimal.Zero,
		NetAmount:     decimal.Zero,
	}
	for _, p := range payments {
		if !p.CountsAsPaid() {
			continue
		}
		if p.IsRefund() {
			sum.TotalRefunds = sum.TotalRefunds.Add(p.Amount.Abs())
			sum.RefundCount++
		} else {
			sum.TotalPayments = sum.TotalPayments.Add(p.Amount)
			sum.PaymentCount++
		}
	}
	sum.NetAmount = sum.TotalPayments.Sub(sum.TotalRefunds)
	return sum
}

func validateRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return invalid("start and end dates are required")
	}
	if end.Before(start) {
		return invalid("end date %s is before start date %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return nil
}

// GetPaymentsByUserAndDateRange lists the user's payments dated within [start, end]
func (s *PaymentService) GetPaymentsByUserAndDateRange(ctx context.Context, userID uint, start, end time.Time, includeInactive bool) ([]models.Payment, error) {
	if err := validateRange(start, end); err != nil {
		return nil, err
	}
	return s.ledger.ListByUserAndRange(ctx, userID, start.UTC(), end.UTC(), !includeInactive)
}

// GetTotalPaymentsByUserAndDateRange sums the amount of the user's active rows
// in range. Refund rows are negative, so the total is net of refunds.
func (s *PaymentService) GetTotalPaymentsByUserAndDateRange(ctx context.Context, userID uint, start, end time.Time) (decimal.Decimal, error) {
	payments, err := s.GetPaymentsByUserAndDateRange(ctx, userID, start, end, false)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total, nil
}

// GetPaymentSummary computes the summary, served from the cache while the
// user's ledger is unchanged
func (s *PaymentService) GetPaymentSummary(ctx context.Context, userID uint, start, end time.Time) (PaymentSummary, error) {
	if err := validateRange(start, end); err != nil {
		return PaymentSummary{}, err
	}

	compute := func() (PaymentSummary, error) {
		payments, err := s.ledger.ListByUserAndRange(ctx, userID, start.UTC(), end.UTC(), true)
		if err != nil {
			return PaymentSummary{}, err
		}
		return Summarize(payments), nil
	}

	version, err := s.summaryVersion(ctx, userID)
	if err != nil {
		s.log.Warn("summary cache unavailable", zap.Uint("user_id", userID), zap.Error(err))
		return compute()
	}
	key := fmt.Sprintf("payments:summary:%d:%d:%d:%d", userID, version, start.Unix(), end.Unix())
	return GetOrSet(s.cache, ctx, key, summaryCacheTTL, compute)
}

func summaryVersionKey(userID uint) string {
	return fmt.Sprintf("payments:summary:%d:version", userID)
}

// summaryVersion reads the user's invalidation counter; a missing key is
// version 0
func (s *PaymentService) summaryVersion(ctx context.Context, userID uint) (int64, error) {
	if s.cache == nil {
		return 0, nil
	}
	var v int64
	err := s.cache.Get(ctx, summaryVersionKey(userID), &v)
	if errors.Is(err, ErrCacheMiss) {
		return 0, nil
	}
	return v, err
}

// invalidateSummaries bumps the user's summary version so older cache entries
// are never read again
func (s *PaymentService) invalidateSummaries(ctx context.Context, userID uint) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Increment(ctx, summaryVersionKey(userID)); err != nil {
		s.log.Warn("failed to invalidate payment summaries", zap.Uint("user_id", userID), zap.Error(err))
	}
}

// SessionConsistency compares a session's is_paid flag with what its ledger implies
type SessionConsistency struct {
	Session            models.SessionRef `json:"session"`
	IsPaid             bool              `json:"isPaid"`
	LedgerPaid         bool              `json:"ledgerPaid"`
	ActivePaymentCount int               `json:"activePaymentCount"`
	NetAmount          decimal.Decimal   `json:"netAmount"`
	Consistent         bool              `json:"consistent"`
}

// ReplayLedger derives the paid state of a session from its full history
func ReplayLedger(history []models.Payment) (paid bool, active int, net decimal.Decimal, lastPaid *time.Time) {
	net = decimal.Zero
	for i := range history {
		p := history[i]
		if !p.CountsAsPaid() {
			continue
		}
		paid = true
		active++
		net = net.Add(p.Amount)
		if !p.IsRefund() && (lastPaid == nil || p.PaymentDate.After(*lastPaid)) {
			d := p.PaymentDate
			lastPaid = &d
		}
	}
	return paid, active, net, lastPaid
}

// CheckSessionConsistency replays the ledger of one session against its flag
func (s *PaymentService) CheckSessionConsistency(ctx context.Context, ref models.SessionRef) (SessionConsistency, error) {
	session, err := s.sessions.FindSession(ctx, ref, false)
	if err != nil {
		return SessionConsistency{}, err
	}
	history, err := s.ledger.ListForSession(ctx, ref, false)
	if err != nil {
		return SessionConsistency{}, err
	}
	paid, active, net, _ := ReplayLedger(history)
	return SessionConsistency{
		Session:            ref,
		IsPaid:             session.IsPaid,
		LedgerPaid:         paid,
		ActivePaymentCount: active,
		NetAmount:          net,
		Consistent:         paid == session.IsPaid,
	}, nil
}

// ReconcileReport summarises one reconciliation pass
type ReconcileReport struct {
	Checked  int                 `json:"checked"`
	Drifted  int                 `json:"drifted"`
	Repaired int                 `json:"repaired"`
	Drifts   []models.SessionRef `json:"drifts"`
}

// ReconcileSessions checks every session against the ledger. With repair set,
// drifted sessions get their is_paid flag rewritten from the ledger.
func (s *PaymentService) ReconcileSessions(ctx context.Context, repair bool) (ReconcileReport, error) {
	report := ReconcileReport{Drifts: []models.SessionRef{}}

	for _, t := range models.SessionTypes {
		sessions, err := s.sessions.ListSessions(ctx, t)
		if err != nil {
			return report, fmt.Errorf("list %s sessions: %w", t, err)
		}
		paidIDs, err := s.ledger.PaidSessionIDs(ctx, t)
		if err != nil {
			return report, fmt.Errorf("load paid %s sessions: %w", t, err)
		}

		for _, session := range sessions {
			report.Checked++
			if session.IsPaid == paidIDs[session.Ref.ID] {
				continue
			}
			report.Drifted++
			report.Drifts = append(report.Drifts, session.Ref)
			s.log.Warn("session paid flag drifted from ledger",
				zap.Stringer("session", session.Ref),
				zap.Bool("is_paid", session.IsPaid),
			)

			if !repair {
				continue
			}
			if err := s.repairSession(ctx, session.Ref); err != nil {
				return report, err
			}
			report.Repaired++
		}
	}
	return report, nil
}

func (s *PaymentService) repairSession(ctx context.Context, ref models.SessionRef) error {
	return classifyTxError(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sessions := s.sessions.WithTx(tx)
		if _, err := sessions.FindSession(ctx, ref, true); err != nil {
			return err
		}
		history, err := s.ledger.WithTx(tx).ListForSession(ctx, ref, false)
		if err != nil {
			return err
		}
		paid, _, _, lastPaid := ReplayLedger(history)
		if !paid {
			lastPaid = nil
		}
		return sessions.SetSessionPaid(ctx, ref, paid, lastPaid)
	}))
}
