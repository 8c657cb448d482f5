// Package capacity models the rules a trainer attaches to a session and
// evaluates them against the session's occupancy.
//
// A Spec is an immutable tree. Leaves describe a single rule about the number
// of confirmed players (a ceiling, a floor, or a shape such as parity);
// composite nodes combine them with boolean operators. The set of node kinds is
// closed: Spec is sealed and the evaluator switches over every kind.
package capacity

import (
	"fmt"
	"strconv"
)

// Spec is a capacity rule. Implementations are the value types in this file.
type Spec interface {
	// Name is a stable machine identifier for the node kind.
	Name() string
	// Description renders the rule as a parenthesized boolean expression.
	Description() string

	sealed()
}

// Snapshot is the occupancy a Spec is evaluated against.
type Snapshot struct {
	Confirmed  int `json:"confirmed"`
	Waitlisted int `json:"waitlisted"`
	Fields     int `json:"fields_available"`
}

// WithOneMore returns the snapshot after admitting one more confirmed player.
func (s Snapshot) WithOneMore() Snapshot {
	s.Confirmed++
	return s
}

// ─── Leaves ─────────────────────────────────────────────────────────────────

// Max caps the confirmed count at Limit.
type Max struct{ Limit int }

// Min requires at least Limit confirmed players.
type Min struct{ Limit int }

// Exact requires exactly Limit confirmed players. For admission it behaves
// as a ceiling so a session can fill up to the exact size.
type Exact struct{ Limit int }

// Even requires an even confirmed count.
type Even struct{}

// DivisibleBy requires the confirmed count to be a multiple of Divisor.
type DivisibleBy struct{ Divisor int }

// PerField caps the confirmed count at PerField players per available field.
type PerField struct{ PerField int }

func (Max) Name() string         { return "max_capacity" }
func (Min) Name() string         { return "min_capacity" }
func (Exact) Name() string       { return "exact_capacity" }
func (Even) Name() string        { return "even_count" }
func (DivisibleBy) Name() string { return "divisible_by" }
func (PerField) Name() string    { return "per_field" }

func (s Max) Description() string   { return "at most " + players(s.Limit) }
func (s Min) Description() string   { return "at least " + players(s.Limit) }
func (s Exact) Description() string { return "exactly " + players(s.Limit) }
func (Even) Description() string    { return "an even number of players" }

func (s DivisibleBy) Description() string {
	return fmt.Sprintf("a number of players divisible by %d", s.Divisor)
}

func (s PerField) Description() string {
	return fmt.Sprintf("at most %s per field", players(s.PerField))
}

func (Max) sealed()         {}
func (Min) sealed()         {}
func (Exact) sealed()       {}
func (Even) sealed()        {}
func (DivisibleBy) sealed() {}
func (PerField) sealed()    {}

func players(n int) string {
	if n == 1 {
		return "1 player"
	}
	return strconv.Itoa(n) + " players"
}

// ─── Composites ─────────────────────────────────────────────────────────────

// And holds when both sides hold.
type And struct{ Left, Right Spec }

// Or holds when either side holds.
type Or struct{ Left, Right Spec }

// Not inverts Inner.
type Not struct{ Inner Spec }

// AndNot holds when Left holds and Right does not.
type AndNot struct{ Left, Right Spec }

// OrNot holds when Left holds or Right does not.
type OrNot struct{ Left, Right Spec }

func (And) Name() string    { return "and" }
func (Or) Name() string     { return "or" }
func (Not) Name() string    { return "not" }
func (AndNot) Name() string { return "and_not" }
func (OrNot) Name() string  { return "or_not" }

func (s And) Description() string {
	return "(" + describe(s.Left) + " AND " + describe(s.Right) + ")"
}

func (s Or) Description() string {
	return "(" + describe(s.Left) + " OR " + describe(s.Right) + ")"
}

func (s Not) Description() string {
	return "NOT " + describe(s.Inner)
}

func (s AndNot) Description() string {
	return "(" + describe(s.Left) + " AND NOT " + describe(s.Right) + ")"
}

func (s OrNot) Description() string {
	return "(" + describe(s.Left) + " OR NOT " + describe(s.Right) + ")"
}

func (And) sealed()    {}
func (Or) sealed()     {}
func (Not) sealed()    {}
func (AndNot) sealed() {}
func (OrNot) sealed()  {}

// Describe renders spec for display. A nil spec means the session has no
// capacity rules.
func Describe(spec Spec) string {
	return describe(spec)
}

func describe(spec Spec) string {
	if spec == nil {
		return "no limit"
	}
	return spec.Description()
}

// ─── Builders ───────────────────────────────────────────────────────────────

// AllOf folds specs into a left-leaning And chain. Nil entries are skipped;
// AllOf of nothing is nil.
func AllOf(specs ...Spec) Spec {
	var out Spec
	for _, s := range specs {
		switch {
		case s == nil:
		case out == nil:
			out = s
		default:
			out = And{Left: out, Right: s}
		}
	}
	return out
}

// AnyOf folds specs into a left-leaning Or chain. Nil entries are skipped;
// AnyOf of nothing is nil.
func AnyOf(specs ...Spec) Spec {
	var out Spec
	for _, s := range specs {
		switch {
		case s == nil:
		case out == nil:
			out = s
		default:
			out = Or{Left: out, Right: s}
		}
	}
	return out
}
