package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Shivanand-hulikatti/training-registration/internal/capacity"
	"github.com/Shivanand-hulikatti/training-registration/internal/engine"
	"github.com/Shivanand-hulikatti/training-registration/internal/model"
	"github.com/Shivanand-hulikatti/training-registration/internal/repository"
)

// Register admits a player to a session, confirming the seat if the
// session's constraints allow one more player and waitlisting otherwise.
//
// The occupancy read, the decision and the insert all happen inside the
// session lock, so two concurrent attempts cannot both take the last seat.
// The returned registration carries its cancellation token.
func (s *SessionService) Register(ctx context.Context, sessionID string, req model.RegisterRequest) (*model.Registration, error) {
	req.PlayerID = strings.TrimSpace(req.PlayerID)
	if req.PlayerID == "" {
		return nil, fmt.Errorf("%w: player_id is required", ErrInvalidInput)
	}
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidInput)
	}

	tok, err := s.tokens.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate cancellation token: %w", err)
	}

	fallback := req.PriorityScore
	if fallback == nil && s.priority != nil {
		if fallback, err = s.priority.DefaultPriority(ctx, req.PlayerID); err != nil {
			return nil, fmt.Errorf("default priority: %w", err)
		}
	}

	var reg model.Registration
	err = s.store.WithSession(ctx, sessionID, func(tx repository.SessionTx) error {
		session := tx.Session()
		switch session.Status {
		case model.SessionCancelled:
			return ErrSessionCancelled
		case model.SessionCompleted:
			return ErrSessionClosed
		}

		regs := tx.Registrations()
		if _, ok := engine.FindActive(regs, req.PlayerID); ok {
			return repository.ErrAlreadyRegistered
		}

		spec, err := capacity.Decode(session.CapacityConstraints)
		if err != nil {
			return fmt.Errorf("session %s: %w", sessionID, err)
		}
		snap := engine.SnapshotOf(regs, session.FieldsAvailable)

		priority := req.PriorityScore
		if priority == nil && engine.Decide(spec, snap, req.IsTrainer) == model.StatusWaitlisted {
			priority = fallback
		}

		reg = engine.Admit(spec, snap, regs, engine.Admission{
			ID:        s.newID(),
			SessionID: sessionID,
			PlayerID:  req.PlayerID,
			Priority:  priority,
			IsTrainer: req.IsTrainer,
			Token:     tok,
			Now:       s.now(),
		})
		return tx.Insert(reg)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("registration admitted",
		"session_id", sessionID,
		"player_id", reg.PlayerID,
		"status", reg.Status,
		"position", deref(reg.Position),
	)
	return &reg, nil
}
