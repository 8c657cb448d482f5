// Package engine decides admission and waitlist promotion for a single
// session. It is pure: callers load the session's registrations, run a
// decision and persist the returned records under the session's lock.
package engine

import (
	"cmp"
	"slices"

	"github.com/Shivanand-hulikatti/training-registration/internal/capacity"
	"github.com/Shivanand-hulikatti/training-registration/internal/model"
)

// SnapshotOf derives the occupancy snapshot from a session's registrations.
// Trainer registrations hold a confirmed position but are not counted.
func SnapshotOf(regs []model.Registration, fields int) capacity.Snapshot {
	snap := capacity.Snapshot{Fields: fields}
	for _, r := range regs {
		if r.IsTrainer {
			continue
		}
		switch r.Status {
		case model.StatusConfirmed:
			snap.Confirmed++
		case model.StatusWaitlisted:
			snap.Waitlisted++
		}
	}
	return snap
}

// NextPosition returns the position the next registration entering status
// should take.
func NextPosition(regs []model.Registration, status model.Status) int {
	last := 0
	for _, r := range regs {
		if r.Status == status && r.Position != nil && *r.Position > last {
			last = *r.Position
		}
	}
	return last + 1
}

// FindActive returns the player's confirmed or waitlisted registration.
func FindActive(regs []model.Registration, playerID string) (model.Registration, bool) {
	for _, r := range regs {
		if r.PlayerID == playerID && r.Status.Active() {
			return r, true
		}
	}
	return model.Registration{}, false
}

// Renumber closes gaps in the positions of the registrations in status,
// keeping their relative order. It returns only the records that changed.
func Renumber(regs []model.Registration, status model.Status) []model.Registration {
	var group []model.Registration
	for _, r := range regs {
		if r.Status == status {
			group = append(group, r)
		}
	}
	slices.SortStableFunc(group, func(a, b model.Registration) int {
		return comparePosition(a.Position, b.Position)
	})

	var changed []model.Registration
	for i, r := range group {
		want := i + 1
		if r.Position != nil && *r.Position == want {
			continue
		}
		r.Position = model.IntPtr(want)
		changed = append(changed, r)
	}
	return changed
}

// comparePosition orders by position with unset positions last.
func comparePosition(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return cmp.Compare(*a, *b)
}
