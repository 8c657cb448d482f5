package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/training-registration/internal/database"
	"github.com/Shivanand-hulikatti/training-registration/internal/model"
)

// newPostgresStore connects to DB_URL and applies the schema. Tests using it
// are skipped when DB_URL is unset.
func newPostgresStore(t *testing.T, lockTimeout time.Duration) (*PostgresStore, *pgxpool.Pool) {
	t.Helper()
	url := os.Getenv("DB_URL")
	if url == "" {
		t.Skip("DB_URL not set; skipping Postgres integration test")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, database.ApplySchema(ctx, pool))
	return NewPostgresStore(pool, lockTimeout), pool
}

func createPgSession(t *testing.T, store *PostgresStore, pool *pgxpool.Pool) model.Session {
	t.Helper()
	s := model.Session{
		ID:                        uuid.NewString(),
		Title:                     "Integration session",
		Date:                      time.Date(2099, 6, 6, 0, 0, 0, 0, time.UTC),
		StartTime:                 "18:30",
		EndTime:                   "20:00",
		FieldsAvailable:           2,
		CapacityConstraints:       "max_18,even",
		CancellationDeadlineHours: 24,
		Status:                    model.SessionScheduled,
		CreatedAt:                 time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, store.CreateSession(context.Background(), s))
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM sessions WHERE id = $1`, s.ID)
	})
	return s
}

func pgReg(sessionID, player string, status model.Status) model.Registration {
	return model.Registration{
		ID:                uuid.NewString(),
		SessionID:         sessionID,
		PlayerID:          player,
		Status:            status,
		Position:          model.IntPtr(1),
		RegisteredAt:      time.Now().UTC().Truncate(time.Microsecond),
		CancellationToken: uuid.NewString(),
	}
}

func TestPostgresStore_RoundTrip(t *testing.T) {
	store, pool := newPostgresStore(t, time.Second)
	ctx := context.Background()
	session := createPgSession(t, store, pool)

	got, err := store.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.Title, got.Title)
	assert.True(t, session.Date.Equal(got.Date), "date %v", got.Date)
	assert.Equal(t, model.SessionScheduled, got.Status)
	assert.Equal(t, "max_18,even", got.CapacityConstraints)

	priority := 87.5
	scored := pgReg(session.ID, "scored", model.StatusWaitlisted)
	scored.PriorityScore = &priority
	unscored := pgReg(session.ID, "unscored", model.StatusConfirmed)

	err = store.WithSession(ctx, session.ID, func(tx SessionTx) error {
		if err := tx.Insert(scored); err != nil {
			return err
		}
		return tx.Insert(unscored)
	})
	require.NoError(t, err)

	r, err := store.FindByToken(ctx, scored.CancellationToken)
	require.NoError(t, err)
	assert.Equal(t, model.StatusWaitlisted, r.Status)
	require.NotNil(t, r.PriorityScore)
	assert.InDelta(t, 87.5, *r.PriorityScore, 1e-9)
	assert.Equal(t, 1, *r.Position)
	assert.Nil(t, r.WaitlistPosition)
	assert.Nil(t, r.CancelledAt)

	r, err = store.FindRegistration(ctx, unscored.ID)
	require.NoError(t, err)
	assert.Nil(t, r.PriorityScore)
	assert.Equal(t, model.StatusConfirmed, r.Status)

	now := time.Now().UTC().Truncate(time.Microsecond)
	err = store.WithSession(ctx, session.ID, func(tx SessionTx) error {
		r.Status = model.StatusCancelled
		r.Position = nil
		r.CancelledAt = &now
		r.CancellationReason = "injured"
		return tx.Update(r)
	})
	require.NoError(t, err)

	regs, err := store.ListRegistrations(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, regs, 2)
	for _, reg := range regs {
		if reg.ID == unscored.ID {
			assert.Equal(t, model.StatusCancelled, reg.Status)
			assert.Nil(t, reg.Position)
			require.NotNil(t, reg.CancelledAt)
			assert.True(t, now.Equal(*reg.CancelledAt))
			assert.Equal(t, "injured", reg.CancellationReason)
		}
	}

	_, err = store.FindByToken(ctx, "missing-token")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetSession(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_ActivePlayerIndex(t *testing.T) {
	store, pool := newPostgresStore(t, time.Second)
	ctx := context.Background()
	session := createPgSession(t, store, pool)

	first := pgReg(session.ID, "p1", model.StatusConfirmed)
	require.NoError(t, store.WithSession(ctx, session.ID, func(tx SessionTx) error {
		return tx.Insert(first)
	}))

	err := store.WithSession(ctx, session.ID, func(tx SessionTx) error {
		return tx.Insert(pgReg(session.ID, "p1", model.StatusWaitlisted))
	})
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	// The index only covers active rows.
	require.NoError(t, store.WithSession(ctx, session.ID, func(tx SessionTx) error {
		first.Status = model.StatusCancelled
		first.Position = nil
		if err := tx.Update(first); err != nil {
			return err
		}
		return tx.Insert(pgReg(session.ID, "p1", model.StatusConfirmed))
	}))
}

func TestPostgresStore_DuplicateToken(t *testing.T) {
	store, pool := newPostgresStore(t, time.Second)
	ctx := context.Background()
	a := createPgSession(t, store, pool)
	b := createPgSession(t, store, pool)

	reg := pgReg(a.ID, "p1", model.StatusConfirmed)
	require.NoError(t, store.WithSession(ctx, a.ID, func(tx SessionTx) error {
		return tx.Insert(reg)
	}))

	clash := pgReg(b.ID, "p2", model.StatusConfirmed)
	clash.CancellationToken = reg.CancellationToken
	err := store.WithSession(ctx, b.ID, func(tx SessionTx) error {
		return tx.Insert(clash)
	})
	assert.ErrorIs(t, err, ErrDuplicateToken)
}

func TestPostgresStore_LockTimeout(t *testing.T) {
	store, pool := newPostgresStore(t, 100*time.Millisecond)
	ctx := context.Background()
	session := createPgSession(t, store, pool)
	other := createPgSession(t, store, pool)

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- store.WithSession(ctx, session.ID, func(tx SessionTx) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	err := store.WithSession(ctx, session.ID, func(tx SessionTx) error { return nil })
	assert.ErrorIs(t, err, ErrLockTimeout)

	// Other sessions do not contend.
	assert.NoError(t, store.WithSession(ctx, other.ID, func(tx SessionTx) error { return nil }))

	close(release)
	require.NoError(t, <-done)
	assert.NoError(t, store.WithSession(ctx, session.ID, func(tx SessionTx) error { return nil }))
}
