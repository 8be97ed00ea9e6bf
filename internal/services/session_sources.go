package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"practice_app_echo/internal/models"
)

// sessionSource is the per-table half of the session dispatch table
type sessionSource interface {
	find(ctx context.Context, db *gorm.DB, id uint, forUpdate bool) (models.SessionSnapshot, error)
	setPaid(ctx context.Context, db *gorm.DB, id uint, paid bool, paymentDate *time.Time) error
	list(ctx context.Context, db *gorm.DB) ([]models.SessionSnapshot, error)
}

type gormSessionSource[T any] struct {
	snapshot func(T) models.SessionSnapshot
}

func (s gormSessionSource[T]) find(ctx context.Context, db *gorm.DB, id uint, forUpdate bool) (models.SessionSnapshot, error) {
	var row T
	q := db.WithContext(ctx)
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.First(&row, id).Error; err != nil {
		return models.SessionSnapshot{}, err
	}
	return s.snapshot(row), nil
}

func (s gormSessionSource[T]) setPaid(ctx context.Context, db *gorm.DB, id uint, paid bool, paymentDate *time.Time) error {
	res := db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Updates(map[string]interface{}{
		"is_paid":      paid,
		"payment_date": paymentDate,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s gormSessionSource[T]) list(ctx context.Context, db *gorm.DB) ([]models.SessionSnapshot, error) {
	var rows []T
	if err := db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.SessionSnapshot, 0, len(rows))
	for _, r := range rows {
		out = append(out, s.snapshot(r))
	}
	return out, nil
}

// SessionSources resolves a SessionRef to the Meeting, PersonalMeeting or
// Expense table. It only ever writes the paid/payment_date columns.
type SessionSources struct {
	db      *gorm.DB
	sources map[models.SessionType]sessionSource
}

func NewSessionSources(db *gorm.DB) *SessionSources {
	return &SessionSources{
		db: db,
		sources: map[models.SessionType]sessionSource{
			models.SessionTypeMeeting:         gormSessionSource[models.Meeting]{snapshot: models.Meeting.Snapshot},
			models.SessionTypePersonalMeeting: gormSessionSource[models.PersonalMeeting]{snapshot: models.PersonalMeeting.Snapshot},
			models.SessionTypeExpense:         gormSessionSource[models.Expense]{snapshot: models.Expense.Snapshot},
		},
	}
}

// WithTx binds the sources to a transaction
func (s *SessionSources) WithTx(tx *gorm.DB) *SessionSources {
	return &SessionSources{db: tx, sources: s.sources}
}

func (s *SessionSources) source(t models.SessionType) (sessionSource, error) {
	src, ok := s.sources[t]
	if !ok {
		return nil, invalid("unknown session type %q", t)
	}
	return src, nil
}

// FindSession loads a session, optionally locking its row for the rest of the transaction
func (s *SessionSources) FindSession(ctx context.Context, ref models.SessionRef, forUpdate bool) (models.SessionSnapshot, error) {
	src, err := s.source(ref.Type)
	if err != nil {
		return models.SessionSnapshot{}, err
	}
	snap, err := src.find(ctx, s.db, ref.ID, forUpdate)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.SessionSnapshot{}, notFound("session %s", ref)
	}
	if err != nil {
		return models.SessionSnapshot{}, fmt.Errorf("load session %s: %w", ref, err)
	}
	return snap, nil
}

// SetSessionPaid is an idempotent setter for the session payment fields
func (s *SessionSources) SetSessionPaid(ctx context.Context, ref models.SessionRef, paid bool, paymentDate *time.Time) error {
	src, err := s.source(ref.Type)
	if err != nil {
		return err
	}
	err = src.setPaid(ctx, s.db, ref.ID, paid, paymentDate)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound("session %s", ref)
	}
	if err != nil {
		return fmt.Errorf("update session %s: %w", ref, err)
	}
	return nil
}

// ListSessions returns every live session of one type
func (s *SessionSources) ListSessions(ctx context.Context, t models.SessionType) ([]models.SessionSnapshot, error) {
	src, err := s.source(t)
	if err != nil {
		return nil, err
	}
	return src.list(ctx, s.db)
}
