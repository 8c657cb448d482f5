// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer. Every operation that reads
// and then changes a session's occupancy runs inside the session's lock.
package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/training-registration/internal/capacity"
	"github.com/Shivanand-hulikatti/training-registration/internal/engine"
	"github.com/Shivanand-hulikatti/training-registration/internal/model"
	"github.com/Shivanand-hulikatti/training-registration/internal/repository"
	"github.com/Shivanand-hulikatti/training-registration/internal/token"
)

var (
	// ErrInvalidInput wraps request validation failures.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSessionCancelled is returned when registering for a cancelled session.
	ErrSessionCancelled = errors.New("session is cancelled")
	// ErrSessionClosed is returned when registering for a completed session.
	ErrSessionClosed = errors.New("session is closed for registration")
	// ErrCancellationClosed is returned when the cancellation deadline passed.
	ErrCancellationClosed = errors.New("cancellation deadline has passed")
	// ErrNotActive is returned when cancelling a registration that is not
	// confirmed or waitlisted.
	ErrNotActive = errors.New("registration is not active")
)

// maxHeadroom caps the occupancy headroom count; reaching it means the
// constraints set no ceiling.
const maxHeadroom = 1000

// PriorityProvider supplies a waitlist score for players who register
// without one, e.g. from their attendance record.
type PriorityProvider interface {
	DefaultPriority(ctx context.Context, playerID string) (*float64, error)
}

// StaticPriority gives every player the same score. A nil Score leaves
// players unscored.
type StaticPriority struct {
	Score *float64
}

// DefaultPriority implements PriorityProvider.
func (p StaticPriority) DefaultPriority(context.Context, string) (*float64, error) {
	return p.Score, nil
}

// SessionService orchestrates session and registration operations.
type SessionService struct {
	store    repository.Store
	tokens   *token.Generator
	priority PriorityProvider
	now      func() time.Time
	newID    func() string
}

// NewSessionService constructs a SessionService with its dependencies.
// priority may be nil.
func NewSessionService(store repository.Store, tokens *token.Generator, priority PriorityProvider) *SessionService {
	return &SessionService{
		store:    store,
		tokens:   tokens,
		priority: priority,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.New().String() },
	}
}

// CreateSession validates the request and stores a scheduled session.
func (s *SessionService) CreateSession(ctx context.Context, req model.CreateSessionRequest) (*model.Session, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}
	if req.FieldsAvailable < 0 {
		return nil, fmt.Errorf("%w: fields_available must not be negative", ErrInvalidInput)
	}
	if req.CancellationDeadlineHours < 0 {
		return nil, fmt.Errorf("%w: cancellation_deadline_hours must not be negative", ErrInvalidInput)
	}
	if _, err := capacity.Decode(req.CapacityConstraints); err != nil {
		return nil, err
	}

	session := model.Session{
		ID:                        s.newID(),
		Title:                     req.Title,
		Date:                      date,
		StartTime:                 req.StartTime,
		EndTime:                   req.EndTime,
		FieldsAvailable:           req.FieldsAvailable,
		CapacityConstraints:       req.CapacityConstraints,
		CancellationDeadlineHours: req.CancellationDeadlineHours,
		Status:                    model.SessionScheduled,
		CreatedAt:                 s.now(),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	slog.Info("session created", "session_id", session.ID, "constraints", session.CapacityConstraints)
	return &session, nil
}

// GetSession returns a single session by ID.
func (s *SessionService) GetSession(ctx context.Context, id string) (*model.Session, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidInput)
	}
	session, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// ListSessions returns all sessions.
func (s *SessionService) ListSessions(ctx context.Context) ([]model.Session, error) {
	return s.store.ListSessions(ctx)
}

// ListRegistrations returns a session's registrations grouped by status,
// each group in position order.
func (s *SessionService) ListRegistrations(ctx context.Context, sessionID string) ([]model.Registration, error) {
	regs, err := s.store.ListRegistrations(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	rank := map[model.Status]int{
		model.StatusConfirmed:  0,
		model.StatusWaitlisted: 1,
		model.StatusAttended:   2,
		model.StatusNoShow:     3,
		model.StatusCancelled:  4,
	}
	slices.SortStableFunc(regs, func(a, b model.Registration) int {
		if c := cmp.Compare(rank[a.Status], rank[b.Status]); c != 0 {
			return c
		}
		return cmp.Compare(deref(a.Position), deref(b.Position))
	})
	return regs, nil
}

// Occupancy reports the session's current counts and how its constraints
// evaluate against them.
func (s *SessionService) Occupancy(ctx context.Context, sessionID string) (*model.Occupancy, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	regs, err := s.store.ListRegistrations(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	spec, err := capacity.Decode(session.CapacityConstraints)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}

	snap := engine.SnapshotOf(regs, session.FieldsAvailable)
	var headroom *int
	if n := capacity.Headroom(spec, snap, maxHeadroom); n < maxHeadroom {
		headroom = model.IntPtr(n)
	}
	return &model.Occupancy{
		SessionID:     sessionID,
		Confirmed:     snap.Confirmed,
		Waitlisted:    snap.Waitlisted,
		Fields:        snap.Fields,
		Constraints:   session.CapacityConstraints,
		Description:   capacity.Describe(spec),
		Satisfied:     capacity.IsSatisfied(spec, snap),
		AdmitsOneMore: capacity.AdmitsOneMore(spec, snap),
		Headroom:      headroom,
	}, nil
}

// UpdateConstraints replaces the session's constraint text after checking it
// decodes. Tightening or reshaping constraints never promotes anyone.
func (s *SessionService) UpdateConstraints(ctx context.Context, sessionID, text string) (*model.Session, error) {
	if _, err := capacity.Decode(text); err != nil {
		return nil, err
	}

	var updated model.Session
	err := s.store.WithSession(ctx, sessionID, func(tx repository.SessionTx) error {
		updated = tx.Session()
		updated.CapacityConstraints = text
		return tx.UpdateSession(updated)
	})
	if err != nil {
		return nil, err
	}
	slog.Info("session constraints updated", "session_id", sessionID, "constraints", text)
	return &updated, nil
}

// UpdateFields changes the number of fields. An increase re-evaluates the
// waitlist; the promoted registrations are returned.
func (s *SessionService) UpdateFields(ctx context.Context, sessionID string, fields int) ([]model.Registration, error) {
	if fields < 0 {
		return nil, fmt.Errorf("%w: fields_available must not be negative", ErrInvalidInput)
	}

	var promoted []model.Registration
	err := s.store.WithSession(ctx, sessionID, func(tx repository.SessionTx) error {
		session := tx.Session()
		previous := session.FieldsAvailable
		session.FieldsAvailable = fields
		if err := tx.UpdateSession(session); err != nil {
			return err
		}
		if fields <= previous || session.Status != model.SessionScheduled {
			return nil
		}
		var err error
		promoted, err = promoteLocked(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	slog.Info("session fields updated", "session_id", sessionID, "fields", fields, "promoted", len(promoted))
	return promoted, nil
}

// CancelSession marks the session cancelled. Registrations are left as they
// are; new registrations are refused.
func (s *SessionService) CancelSession(ctx context.Context, sessionID string) (*model.Session, error) {
	var updated model.Session
	err := s.store.WithSession(ctx, sessionID, func(tx repository.SessionTx) error {
		updated = tx.Session()
		updated.Status = model.SessionCancelled
		return tx.UpdateSession(updated)
	})
	if err != nil {
		return nil, err
	}
	slog.Info("session cancelled", "session_id", sessionID)
	return &updated, nil
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
