package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/training-registration/internal/model"
)

const (
	pgUniqueViolation  = "23505"
	pgLockNotAvailable = "55P03"

	activeRegistrationIndex = "registrations_active_player_idx"
	tokenIndex              = "registrations_cancellation_token_key"
)

const sessionColumns = `id, title, session_date, start_time, end_time, fields_available,
	capacity_constraints, cancellation_deadline_hours, status, created_at`

const registrationColumns = `id, session_id, player_id, status, priority_score, position,
	waitlist_position, registered_at, cancelled_at, cancellation_reason, cancellation_token, is_trainer`

// PostgresStore persists sessions and registrations in PostgreSQL.
type PostgresStore struct {
	db          *pgxpool.Pool
	lockTimeout time.Duration
}

// NewPostgresStore constructs a PostgresStore. A positive lockTimeout is
// applied as the transaction's lock_timeout inside WithSession.
func NewPostgresStore(db *pgxpool.Pool, lockTimeout time.Duration) *PostgresStore {
	return &PostgresStore{db: db, lockTimeout: lockTimeout}
}

// CreateSession inserts a new session.
func (s *PostgresStore) CreateSession(ctx context.Context, session model.Session) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO sessions (`+sessionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		session.ID, session.Title, session.Date, session.StartTime, session.EndTime,
		session.FieldsAvailable, session.CapacityConstraints, session.CancellationDeadlineHours,
		session.Status, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession returns a single session or ErrNotFound.
func (s *PostgresStore) GetSession(ctx context.Context, id string) (model.Session, error) {
	row := s.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Session{}, ErrNotFound
		}
		return model.Session{}, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// ListSessions returns all sessions ordered by date.
func (s *PostgresStore) ListSessions(ctx context.Context) ([]model.Session, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions ORDER BY session_date ASC, created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// ListRegistrations returns all registrations for a session, or ErrNotFound
// when the session does not exist.
func (s *PostgresStore) ListRegistrations(ctx context.Context, sessionID string) ([]model.Registration, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return queryRegistrations(ctx, s.db, sessionID)
}

// FindByToken returns the registration holding token.
func (s *PostgresStore) FindByToken(ctx context.Context, token string) (model.Registration, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE cancellation_token = $1`, token)
	return scanOneRegistration(row)
}

// FindRegistration returns a registration by ID.
func (s *PostgresStore) FindRegistration(ctx context.Context, id string) (model.Registration, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id)
	return scanOneRegistration(row)
}

// WithSession runs fn inside a transaction holding the session row lock.
//
// SELECT … FOR UPDATE on the session row blocks every other WithSession for
// the same session until this transaction commits or rolls back, so
// read-then-write admission decisions cannot interleave. lock_timeout turns
// a long wait into ErrLockTimeout instead of blocking the request.
func (s *PostgresStore) WithSession(ctx context.Context, sessionID string, fn func(tx SessionTx) error) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if s.lockTimeout > 0 {
		if _, err = tx.Exec(ctx, setLockTimeoutSQL(s.lockTimeout)); err != nil {
			return fmt.Errorf("set lock timeout: %w", err)
		}
	}

	row := tx.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1 FOR UPDATE`, sessionID)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock session row: %w", mapPgError(err))
	}

	regs, err := queryRegistrations(ctx, tx, sessionID)
	if err != nil {
		return err
	}

	if err = fn(&pgSessionTx{ctx: ctx, tx: tx, session: session, regs: regSet(regs)}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", mapPgError(err))
	}
	return nil
}

// setLockTimeoutSQL rounds d up to whole milliseconds. Postgres reads a
// lock_timeout of 0 as "wait forever".
func setLockTimeoutSQL(d time.Duration) string {
	ms := int64((d + time.Millisecond - 1) / time.Millisecond)
	return fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", max(ms, int64(1)))
}

type pgSessionTx struct {
	ctx     context.Context
	tx      pgx.Tx
	session model.Session
	regs    regSet
}

func (t *pgSessionTx) Session() model.Session { return t.session }

func (t *pgSessionTx) Registrations() []model.Registration {
	out := make([]model.Registration, len(t.regs))
	copy(out, t.regs)
	return out
}

func (t *pgSessionTx) UpdateSession(s model.Session) error {
	_, err := t.tx.Exec(t.ctx,
		`UPDATE sessions
		 SET title = $2, session_date = $3, start_time = $4, end_time = $5, fields_available = $6,
		     capacity_constraints = $7, cancellation_deadline_hours = $8, status = $9
		 WHERE id = $1`,
		s.ID, s.Title, s.Date, s.StartTime, s.EndTime, s.FieldsAvailable,
		s.CapacityConstraints, s.CancellationDeadlineHours, s.Status,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	t.session = s
	return nil
}

func (t *pgSessionTx) Insert(r model.Registration) error {
	_, err := t.tx.Exec(t.ctx,
		`INSERT INTO registrations (`+registrationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		r.ID, r.SessionID, r.PlayerID, r.Status, r.PriorityScore, r.Position,
		r.WaitlistPosition, r.RegisteredAt, r.CancelledAt, r.CancellationReason,
		r.CancellationToken, r.IsTrainer,
	)
	if err != nil {
		return fmt.Errorf("insert registration: %w", mapPgError(err))
	}
	t.regs.insert(r)
	return nil
}

func (t *pgSessionTx) Update(regs ...model.Registration) error {
	for _, r := range regs {
		_, err := t.tx.Exec(t.ctx,
			`UPDATE registrations
			 SET status = $2, priority_score = $3, position = $4, waitlist_position = $5,
			     cancelled_at = $6, cancellation_reason = $7
			 WHERE id = $1`,
			r.ID, r.Status, r.PriorityScore, r.Position, r.WaitlistPosition,
			r.CancelledAt, r.CancellationReason,
		)
		if err != nil {
			return fmt.Errorf("update registration %s: %w", r.ID, mapPgError(err))
		}
		t.regs.update(r)
	}
	return nil
}

// mapPgError translates constraint and lock errors to repository sentinels.
func mapPgError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrLockTimeout, err)
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch {
	case pgErr.Code == pgLockNotAvailable:
		return fmt.Errorf("%w: %s", ErrLockTimeout, pgErr.Message)
	case pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == activeRegistrationIndex:
		return ErrAlreadyRegistered
	case pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == tokenIndex:
		return ErrDuplicateToken
	}
	return err
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryRegistrations(ctx context.Context, q querier, sessionID string) ([]model.Registration, error) {
	rows, err := q.Query(ctx,
		`SELECT `+registrationColumns+`
		 FROM registrations
		 WHERE session_id = $1
		 ORDER BY registered_at ASC, id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		r, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, r)
	}
	return regs, rows.Err()
}

func scanSession(row pgx.Row) (model.Session, error) {
	var s model.Session
	err := row.Scan(&s.ID, &s.Title, &s.Date, &s.StartTime, &s.EndTime, &s.FieldsAvailable,
		&s.CapacityConstraints, &s.CancellationDeadlineHours, &s.Status, &s.CreatedAt)
	return s, err
}

func scanRegistration(row pgx.Row) (model.Registration, error) {
	var r model.Registration
	err := row.Scan(&r.ID, &r.SessionID, &r.PlayerID, &r.Status, &r.PriorityScore, &r.Position,
		&r.WaitlistPosition, &r.RegisteredAt, &r.CancelledAt, &r.CancellationReason,
		&r.CancellationToken, &r.IsTrainer)
	return r, err
}

func scanOneRegistration(row pgx.Row) (model.Registration, error) {
	r, err := scanRegistration(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Registration{}, ErrNotFound
		}
		return model.Registration{}, fmt.Errorf("get registration: %w", err)
	}
	return r, nil
}
