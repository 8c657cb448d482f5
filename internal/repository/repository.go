// Package repository persists sessions and registrations. Every change to a
// session's registrations happens inside WithSession, which holds that
// session's exclusive lock for the duration of the callback and applies its
// writes atomically.
package repository

import (
	"context"
	"errors"

	"github.com/Shivanand-hulikatti/training-registration/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyRegistered is returned when a player already holds an active
// registration for the session.
var ErrAlreadyRegistered = errors.New("player already registered for this session")

// ErrDuplicateToken is returned when a cancellation token is already in use.
var ErrDuplicateToken = errors.New("cancellation token already in use")

// ErrLockTimeout is returned when the session lock could not be acquired in
// time. Nothing has been written; the whole operation is safe to retry.
var ErrLockTimeout = errors.New("timed out waiting for session lock")

// SessionTx is one session as seen from inside its lock.
type SessionTx interface {
	Session() model.Session
	// Registrations returns every registration of the session, including
	// writes made earlier in the same callback.
	Registrations() []model.Registration
	UpdateSession(s model.Session) error
	Insert(r model.Registration) error
	Update(regs ...model.Registration) error
}

// Store is the persistence boundary used by the service layer.
type Store interface {
	CreateSession(ctx context.Context, s model.Session) error
	GetSession(ctx context.Context, id string) (model.Session, error)
	ListSessions(ctx context.Context) ([]model.Session, error)
	ListRegistrations(ctx context.Context, sessionID string) ([]model.Registration, error)
	FindByToken(ctx context.Context, token string) (model.Registration, error)
	FindRegistration(ctx context.Context, id string) (model.Registration, error)

	// WithSession runs fn while holding the session's exclusive lock. If fn
	// returns an error nothing it wrote is kept.
	WithSession(ctx context.Context, sessionID string, fn func(tx SessionTx) error) error
}

// regSet tracks a session's registrations across writes in one callback.
type regSet []model.Registration

func (s *regSet) insert(r model.Registration) {
	*s = append(*s, r)
}

func (s *regSet) update(r model.Registration) bool {
	for i := range *s {
		if (*s)[i].ID == r.ID {
			(*s)[i] = r
			return true
		}
	}
	return false
}

func (s regSet) hasActive(playerID string) bool {
	for _, r := range s {
		if r.PlayerID == playerID && r.Status.Active() {
			return true
		}
	}
	return false
}
