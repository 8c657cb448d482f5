package engine

import (
	"time"

	"github.com/Shivanand-hulikatti/training-registration/internal/capacity"
	"github.com/Shivanand-hulikatti/training-registration/internal/model"
)

// Admission is one registration attempt.
type Admission struct {
	ID        string
	SessionID string
	PlayerID  string
	// Priority is stored on the registration and orders the waitlist.
	Priority  *float64
	IsTrainer bool
	Token     string
	Now       time.Time
}

// Decide returns the status a new registration gets against snap.
// Trainers are always confirmed.
func Decide(spec capacity.Spec, snap capacity.Snapshot, isTrainer bool) model.Status {
	if isTrainer || capacity.AdmitsOneMore(spec, snap) {
		return model.StatusConfirmed
	}
	return model.StatusWaitlisted
}

// Admit builds the registration for a. regs are the session's existing
// registrations and snap the occupancy derived from them. The result is
// confirmed at the end of the confirmed sequence when spec admits one more
// player, and otherwise waitlisted at the end of the waitlist.
func Admit(spec capacity.Spec, snap capacity.Snapshot, regs []model.Registration, a Admission) model.Registration {
	status := Decide(spec, snap, a.IsTrainer)
	return model.Registration{
		ID:                a.ID,
		SessionID:         a.SessionID,
		PlayerID:          a.PlayerID,
		Status:            status,
		PriorityScore:     a.Priority,
		Position:          model.IntPtr(NextPosition(regs, status)),
		RegisteredAt:      a.Now,
		CancellationToken: a.Token,
		IsTrainer:         a.IsTrainer,
	}
}
