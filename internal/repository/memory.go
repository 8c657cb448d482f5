package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Shivanand-hulikatti/training-registration/internal/model"
)

// MemoryStore keeps sessions in process memory. It serialises work per
// session with a weighted semaphore so different sessions never contend.
type MemoryStore struct {
	lockTimeout time.Duration

	mu       sync.RWMutex
	sessions map[string]model.Session
	regs     map[string][]model.Registration // by session ID
	tokens   map[string]string               // token -> registration ID
	byID     map[string]string               // registration ID -> session ID
	locks    map[string]*semaphore.Weighted
}

// NewMemoryStore constructs a MemoryStore. A positive lockTimeout bounds how
// long WithSession waits for a busy session.
func NewMemoryStore(lockTimeout time.Duration) *MemoryStore {
	return &MemoryStore{
		lockTimeout: lockTimeout,
		sessions:    make(map[string]model.Session),
		regs:        make(map[string][]model.Registration),
		tokens:      make(map[string]string),
		byID:        make(map[string]string),
		locks:       make(map[string]*semaphore.Weighted),
	}
}

func (s *MemoryStore) CreateSession(_ context.Context, session model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; ok {
		return fmt.Errorf("session %s already exists", session.ID)
	}
	s.sessions[session.ID] = session
	s.locks[session.ID] = semaphore.NewWeighted(1)
	return nil
}

func (s *MemoryStore) GetSession(_ context.Context, id string) (model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return model.Session{}, ErrNotFound
	}
	return session, nil
}

func (s *MemoryStore) ListSessions(_ context.Context) ([]model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	slices.SortFunc(out, func(a, b model.Session) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) ListRegistrations(_ context.Context, sessionID string) ([]model.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(s.regs[sessionID]), nil
}

func (s *MemoryStore) FindByToken(ctx context.Context, token string) (model.Registration, error) {
	s.mu.RLock()
	id, ok := s.tokens[token]
	s.mu.RUnlock()
	if !ok {
		return model.Registration{}, ErrNotFound
	}
	return s.FindRegistration(ctx, id)
}

func (s *MemoryStore) FindRegistration(_ context.Context, id string) (model.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessionID, ok := s.byID[id]
	if !ok {
		return model.Registration{}, ErrNotFound
	}
	for _, r := range s.regs[sessionID] {
		if r.ID == id {
			return r, nil
		}
	}
	return model.Registration{}, ErrNotFound
}

// WithSession acquires the session's semaphore, runs fn against a private
// copy of the session and commits the copy only if fn succeeds.
func (s *MemoryStore) WithSession(ctx context.Context, sessionID string, fn func(tx SessionTx) error) error {
	s.mu.RLock()
	lock, ok := s.locks[sessionID]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	if err := s.acquire(ctx, lock); err != nil {
		return err
	}
	defer lock.Release(1)

	s.mu.RLock()
	tx := &memoryTx{
		session: s.sessions[sessionID],
		regs:    regSet(slices.Clone(s.regs[sessionID])),
	}
	s.mu.RUnlock()

	if err := fn(tx); err != nil {
		return err
	}
	return s.commit(tx)
}

func (s *MemoryStore) acquire(ctx context.Context, lock *semaphore.Weighted) error {
	acquireCtx := ctx
	if s.lockTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, s.lockTimeout)
		defer cancel()
	}
	if err := lock.Acquire(acquireCtx, 1); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", ErrLockTimeout, err)
		}
		return fmt.Errorf("acquire session lock: %w", err)
	}
	return nil
}

func (s *MemoryStore) commit(tx *memoryTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range tx.inserted {
		if owner, ok := s.tokens[r.CancellationToken]; ok && owner != r.ID {
			return ErrDuplicateToken
		}
	}

	id := tx.session.ID
	s.sessions[id] = tx.session
	s.regs[id] = []model.Registration(tx.regs)
	for _, r := range tx.inserted {
		s.byID[r.ID] = id
		if r.CancellationToken != "" {
			s.tokens[r.CancellationToken] = r.ID
		}
	}
	return nil
}

type memoryTx struct {
	session  model.Session
	regs     regSet
	inserted []model.Registration
}

func (t *memoryTx) Session() model.Session { return t.session }

func (t *memoryTx) Registrations() []model.Registration {
	return slices.Clone([]model.Registration(t.regs))
}

func (t *memoryTx) UpdateSession(s model.Session) error {
	if s.ID != t.session.ID {
		return fmt.Errorf("update session: id %s does not match locked session %s", s.ID, t.session.ID)
	}
	t.session = s
	return nil
}

func (t *memoryTx) Insert(r model.Registration) error {
	if r.Status.Active() && t.regs.hasActive(r.PlayerID) {
		return ErrAlreadyRegistered
	}
	t.regs.insert(r)
	t.inserted = append(t.inserted, r)
	return nil
}

func (t *memoryTx) Update(regs ...model.Registration) error {
	for _, r := range regs {
		if !t.regs.update(r) {
			return fmt.Errorf("update registration %s: %w", r.ID, ErrNotFound)
		}
	}
	return nil
}
