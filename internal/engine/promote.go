package engine

import (
	"cmp"
	"slices"

	"github.com/Shivanand-hulikatti/training-registration/internal/capacity"
	"github.com/Shivanand-hulikatti/training-registration/internal/model"
)

// Promotion is the outcome of re-evaluating a session's waitlist.
type Promotion struct {
	// Promoted are the registrations moved to confirmed, in promotion order.
	Promoted []model.Registration
	// Renumbered are the waitlisted registrations whose position changed.
	Renumbered []model.Registration
	// Snapshot is the occupancy after promotion.
	Snapshot capacity.Snapshot
}

// Changed returns every record the promotion modified.
func (p Promotion) Changed() []model.Registration {
	return append(slices.Clone(p.Promoted), p.Renumbered...)
}

// WaitlistOrder sorts waitlisted registrations for promotion: priority
// descending with unscored entries last, then earliest registration, then
// lowest waitlist position.
func WaitlistOrder(a, b model.Registration) int {
	switch {
	case a.PriorityScore != nil && b.PriorityScore == nil:
		return -1
	case a.PriorityScore == nil && b.PriorityScore != nil:
		return 1
	case a.PriorityScore != nil && b.PriorityScore != nil:
		if c := cmp.Compare(*b.PriorityScore, *a.PriorityScore); c != 0 {
			return c
		}
	}
	if c := a.RegisteredAt.Compare(b.RegisteredAt); c != 0 {
		return c
	}
	return comparePosition(a.Position, b.Position)
}

// PromoteWaitlist fills freed capacity from the waitlist. Candidates are
// taken in WaitlistOrder and the full spec is re-tested after each
// promotion; the first candidate the constraints refuse ends the pass. The
// remaining waitlist is renumbered without gaps.
func PromoteWaitlist(spec capacity.Spec, snap capacity.Snapshot, regs []model.Registration) Promotion {
	var waitlist []model.Registration
	for _, r := range regs {
		if r.Status == model.StatusWaitlisted {
			waitlist = append(waitlist, r)
		}
	}
	slices.SortStableFunc(waitlist, WaitlistOrder)

	nextConfirmed := NextPosition(regs, model.StatusConfirmed)
	out := Promotion{Snapshot: snap}

	promotedIDs := make(map[string]bool)
	for _, r := range waitlist {
		if !capacity.AdmitsOneMore(spec, out.Snapshot) {
			break
		}
		r.WaitlistPosition = r.Position
		r.Position = model.IntPtr(nextConfirmed)
		r.Status = model.StatusConfirmed
		nextConfirmed++

		out.Snapshot = out.Snapshot.WithOneMore()
		out.Snapshot.Waitlisted = max(out.Snapshot.Waitlisted-1, 0)
		out.Promoted = append(out.Promoted, r)
		promotedIDs[r.ID] = true
	}

	var remaining []model.Registration
	for _, r := range regs {
		if r.Status == model.StatusWaitlisted && !promotedIDs[r.ID] {
			remaining = append(remaining, r)
		}
	}
	out.Renumbered = Renumber(remaining, model.StatusWaitlisted)
	return out
}
