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
	"github.com/Shivanand-hulikatti/training-registration/internal/token"
)

// Cancel cancels the registration holding tok on behalf of the player. It
// is refused once the session's cancellation deadline has passed.
func (s *SessionService) Cancel(ctx context.Context, tok, reason string) (*model.CancelResponse, error) {
	tok = strings.TrimSpace(tok)
	if err := token.VerifyFormat(tok); err != nil {
		return nil, err
	}
	reg, err := s.store.FindByToken(ctx, tok)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, reg.SessionID, reg.ID, reason, true)
}

// CancelRegistration cancels a registration on a trainer's behalf. The
// cancellation deadline does not apply.
func (s *SessionService) CancelRegistration(ctx context.Context, sessionID, registrationID, reason string) (*model.CancelResponse, error) {
	reg, err := s.store.FindRegistration(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if reg.SessionID != sessionID {
		return nil, repository.ErrNotFound
	}
	return s.cancel(ctx, sessionID, registrationID, reason, false)
}

// Promote re-evaluates the session's waitlist and promotes whoever now fits.
func (s *SessionService) Promote(ctx context.Context, sessionID string) ([]model.Registration, error) {
	var promoted []model.Registration
	err := s.store.WithSession(ctx, sessionID, func(tx repository.SessionTx) error {
		if tx.Session().Status != model.SessionScheduled {
			return nil
		}
		var err error
		promoted, err = promoteLocked(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return promoted, nil
}

func (s *SessionService) cancel(ctx context.Context, sessionID, registrationID, reason string, selfService bool) (*model.CancelResponse, error) {
	var out model.CancelResponse
	err := s.store.WithSession(ctx, sessionID, func(tx repository.SessionTx) error {
		session := tx.Session()

		var reg model.Registration
		var found bool
		for _, r := range tx.Registrations() {
			if r.ID == registrationID {
				reg, found = r, true
				break
			}
		}
		if !found {
			return repository.ErrNotFound
		}
		if !reg.Status.Active() {
			return ErrNotActive
		}
		now := s.now()
		if selfService && token.IsCancellationExpired(session, now) {
			return ErrCancellationClosed
		}

		left := reg.Status
		reg.Status = model.StatusCancelled
		// Positions order live groups only.
		reg.Position = nil
		reg.CancelledAt = &now
		reg.CancellationReason = strings.TrimSpace(reason)
		if err := tx.Update(reg); err != nil {
			return err
		}
		if err := tx.Update(engine.Renumber(tx.Registrations(), left)...); err != nil {
			return err
		}
		out.Cancelled = reg

		if left != model.StatusConfirmed || reg.IsTrainer || session.Status != model.SessionScheduled {
			return nil
		}
		promoted, err := promoteLocked(tx)
		out.Promoted = promoted
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("registration cancelled",
		"session_id", sessionID,
		"registration_id", registrationID,
		"self_service", selfService,
		"promoted", len(out.Promoted),
	)
	return &out, nil
}

// promoteLocked runs waitlist promotion for the session held by tx and
// writes the result. Callers must be inside WithSession.
func promoteLocked(tx repository.SessionTx) ([]model.Registration, error) {
	session := tx.Session()
	spec, err := capacity.Decode(session.CapacityConstraints)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", session.ID, err)
	}

	regs := tx.Registrations()
	p := engine.PromoteWaitlist(spec, engine.SnapshotOf(regs, session.FieldsAvailable), regs)
	if err := tx.Update(p.Changed()...); err != nil {
		return nil, err
	}

	for _, r := range p.Promoted {
		slog.Info("waitlist promotion",
			"session_id", session.ID,
			"registration_id", r.ID,
			"player_id", r.PlayerID,
			"position", deref(r.Position),
		)
	}
	return p.Promoted, nil
}
