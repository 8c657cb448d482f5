package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/training-registration/internal/capacity"
	"github.com/Shivanand-hulikatti/training-registration/internal/model"
)

var t0 = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

func score(v float64) *float64 { return &v }

func reg(id string, status model.Status, pos int) model.Registration {
	return model.Registration{
		ID:           id,
		SessionID:    "s1",
		PlayerID:     "p-" + id,
		Status:       status,
		Position:     model.IntPtr(pos),
		RegisteredAt: t0.Add(time.Duration(pos) * time.Minute),
	}
}

func confirmed(n int) []model.Registration {
	regs := make([]model.Registration, 0, n)
	for i := 1; i <= n; i++ {
		regs = append(regs, reg(fmt.Sprintf("c%d", i), model.StatusConfirmed, i))
	}
	return regs
}

func positions(regs []model.Registration) map[string]int {
	out := map[string]int{}
	for _, r := range regs {
		out[r.ID] = *r.Position
	}
	return out
}

func TestSnapshotOf_SkipsTrainersAndInactive(t *testing.T) {
	regs := confirmed(3)
	regs = append(regs,
		reg("w1", model.StatusWaitlisted, 1),
		reg("x1", model.StatusCancelled, 4),
		reg("a1", model.StatusAttended, 5),
	)
	trainer := reg("t1", model.StatusConfirmed, 4)
	trainer.IsTrainer = true
	regs = append(regs, trainer)

	snap := SnapshotOf(regs, 2)
	assert.Equal(t, capacity.Snapshot{Confirmed: 3, Waitlisted: 1, Fields: 2}, snap)
}

func TestAdmit_ConfirmsWhileCeilingHasRoom(t *testing.T) {
	regs := confirmed(17)
	spec := capacity.AllOf(capacity.Max{Limit: 18}, capacity.Min{Limit: 12}, capacity.Even{})

	got := Admit(spec, SnapshotOf(regs, 2), regs, Admission{ID: "new", SessionID: "s1", PlayerID: "p", Token: "tok", Now: t0})

	assert.Equal(t, model.StatusConfirmed, got.Status)
	assert.Equal(t, 18, *got.Position)
	assert.Equal(t, "tok", got.CancellationToken)
	assert.Equal(t, t0, got.RegisteredAt)
}

func TestAdmit_WaitlistsAtCeiling(t *testing.T) {
	regs := append(confirmed(18), reg("w1", model.StatusWaitlisted, 1), reg("w2", model.StatusWaitlisted, 2))
	spec := capacity.Max{Limit: 18}

	got := Admit(spec, SnapshotOf(regs, 2), regs, Admission{ID: "new", PlayerID: "p", Priority: score(70)})

	assert.Equal(t, model.StatusWaitlisted, got.Status)
	assert.Equal(t, 3, *got.Position)
	require.NotNil(t, got.PriorityScore)
	assert.Equal(t, 70.0, *got.PriorityScore)
}

func TestAdmit_TrainerAlwaysConfirmed(t *testing.T) {
	regs := confirmed(2)
	got := Admit(capacity.Max{Limit: 2}, SnapshotOf(regs, 1), regs, Admission{ID: "t", PlayerID: "coach", IsTrainer: true})

	assert.Equal(t, model.StatusConfirmed, got.Status)
	assert.Equal(t, 3, *got.Position)
	assert.True(t, got.IsTrainer)
}

func TestAdmit_ShapeConstraintDoesNotBlock(t *testing.T) {
	regs := confirmed(11)
	got := Admit(capacity.DivisibleBy{Divisor: 6}, SnapshotOf(regs, 1), regs, Admission{ID: "n"})
	assert.Equal(t, model.StatusConfirmed, got.Status)
}

func TestPromoteWaitlist_HighestPriorityFirst(t *testing.T) {
	regs := confirmed(0)
	a := reg("a", model.StatusWaitlisted, 1)
	a.PriorityScore = score(80)
	b := reg("b", model.StatusWaitlisted, 2)
	b.PriorityScore = score(95)
	c := reg("c", model.StatusWaitlisted, 3)
	c.PriorityScore = score(60)
	regs = append(regs, a, b, c)

	p := PromoteWaitlist(capacity.Max{Limit: 1}, SnapshotOf(regs, 1), regs)

	require.Len(t, p.Promoted, 1)
	assert.Equal(t, "b", p.Promoted[0].ID)
	assert.Equal(t, model.StatusConfirmed, p.Promoted[0].Status)
	assert.Equal(t, 1, *p.Promoted[0].Position)
	assert.Equal(t, 2, *p.Promoted[0].WaitlistPosition)

	assert.Equal(t, map[string]int{"c": 2}, positions(p.Renumbered), "a keeps 1, c closes the gap")
	assert.Equal(t, capacity.Snapshot{Confirmed: 1, Waitlisted: 2, Fields: 1}, p.Snapshot)
}

func TestWaitlistOrder_TieBreaks(t *testing.T) {
	late := reg("late", model.StatusWaitlisted, 1)
	late.RegisteredAt = t0.Add(time.Hour)
	early := reg("early", model.StatusWaitlisted, 2)
	early.RegisteredAt = t0
	unscored := reg("unscored", model.StatusWaitlisted, 0)
	unscored.RegisteredAt = t0.Add(-time.Hour)
	unscored.PriorityScore = nil
	samePosLow := reg("pos3", model.StatusWaitlisted, 3)
	samePosLow.RegisteredAt = t0
	samePosHigh := reg("pos4", model.StatusWaitlisted, 4)
	samePosHigh.RegisteredAt = t0

	for _, r := range []*model.Registration{&late, &early, &samePosLow, &samePosHigh} {
		r.PriorityScore = score(50)
	}

	regs := []model.Registration{unscored, samePosHigh, late, samePosLow, early}
	p := PromoteWaitlist(nil, capacity.Snapshot{Fields: 1}, regs)

	var order []string
	for _, r := range p.Promoted {
		order = append(order, r.ID)
	}
	assert.Equal(t, []string{"early", "pos3", "pos4", "late", "unscored"}, order)
}

func TestPromoteWaitlist_StopsAtFirstRefusal(t *testing.T) {
	regs := confirmed(14)
	for i := 1; i <= 5; i++ {
		regs = append(regs, reg(fmt.Sprintf("w%d", i), model.StatusWaitlisted, i))
	}
	// Fields went from 2 to 3: per-field ceiling is 24, but Max(16) binds first.
	spec := capacity.AllOf(capacity.PerField{PerField: 8}, capacity.Max{Limit: 16})

	p := PromoteWaitlist(spec, SnapshotOf(regs, 3), regs)

	require.Len(t, p.Promoted, 2)
	assert.Equal(t, "w1", p.Promoted[0].ID)
	assert.Equal(t, 15, *p.Promoted[0].Position)
	assert.Equal(t, "w2", p.Promoted[1].ID)
	assert.Equal(t, 16, *p.Promoted[1].Position)
	assert.Equal(t, map[string]int{"w3": 1, "w4": 2, "w5": 3}, positions(p.Renumbered))
	assert.Equal(t, 16, p.Snapshot.Confirmed)
	assert.Equal(t, 3, p.Snapshot.Waitlisted)
	assert.Len(t, p.Changed(), 5)
}

func TestPromoteWaitlist_NoRoom(t *testing.T) {
	regs := append(confirmed(2), reg("w1", model.StatusWaitlisted, 1))

	p := PromoteWaitlist(capacity.Max{Limit: 2}, SnapshotOf(regs, 1), regs)

	assert.Empty(t, p.Promoted)
	assert.Empty(t, p.Renumbered)
}

func TestPromoteWaitlist_ClosesExistingGaps(t *testing.T) {
	regs := append(confirmed(2), reg("w1", model.StatusWaitlisted, 2), reg("w2", model.StatusWaitlisted, 5))

	p := PromoteWaitlist(capacity.Max{Limit: 2}, SnapshotOf(regs, 1), regs)

	assert.Empty(t, p.Promoted)
	assert.Equal(t, map[string]int{"w1": 1, "w2": 2}, positions(p.Renumbered))
}

func TestRenumber(t *testing.T) {
	regs := []model.Registration{
		reg("a", model.StatusConfirmed, 1),
		reg("b", model.StatusConfirmed, 3),
		reg("c", model.StatusConfirmed, 4),
		reg("x", model.StatusCancelled, 2),
	}

	changed := Renumber(regs, model.StatusConfirmed)
	assert.Equal(t, map[string]int{"b": 2, "c": 3}, positions(changed))
}

func TestNextPosition(t *testing.T) {
	regs := append(confirmed(3), reg("w", model.StatusWaitlisted, 7))

	assert.Equal(t, 4, NextPosition(regs, model.StatusConfirmed))
	assert.Equal(t, 8, NextPosition(regs, model.StatusWaitlisted))
	assert.Equal(t, 1, NextPosition(nil, model.StatusWaitlisted))
}

func TestFindActive(t *testing.T) {
	regs := []model.Registration{reg("x", model.StatusCancelled, 1), reg("w", model.StatusWaitlisted, 1)}
	regs[0].PlayerID = "p"
	regs[1].PlayerID = "p"

	got, ok := FindActive(regs, "p")
	require.True(t, ok)
	assert.Equal(t, "w", got.ID)

	_, ok = FindActive(regs, "other")
	assert.False(t, ok)
}
