package capacity

import "fmt"

// IsSatisfied reports whether snap meets spec exactly as it stands.
// A nil spec is always satisfied.
func IsSatisfied(spec Spec, snap Snapshot) bool {
	c := snap.Confirmed
	switch s := spec.(type) {
	case nil:
		return true
	case Max:
		return c <= s.Limit
	case Min:
		return c >= s.Limit
	case Exact:
		return c == s.Limit
	case Even:
		return c%2 == 0
	case DivisibleBy:
		return s.Divisor > 0 && c%s.Divisor == 0
	case PerField:
		return c <= fieldCeiling(s, snap)
	case And:
		return IsSatisfied(s.Left, snap) && IsSatisfied(s.Right, snap)
	case Or:
		return IsSatisfied(s.Left, snap) || IsSatisfied(s.Right, snap)
	case Not:
		return !IsSatisfied(s.Inner, snap)
	case AndNot:
		return IsSatisfied(And{Left: s.Left, Right: Not{Inner: s.Right}}, snap)
	case OrNot:
		return IsSatisfied(Or{Left: s.Left, Right: Not{Inner: s.Right}}, snap)
	default:
		panic(fmt.Sprintf("capacity: unknown spec %T", spec))
	}
}

// AdmitsOneMore reports whether one more confirmed player can be admitted.
//
// Ceilings (Max, Exact, PerField) block as soon as the next count would pass
// them. Floors and shape rules (Min, Even, DivisibleBy) describe the final
// roster and never block filling up. Not turns a ceiling into a floor, so it
// never blocks either.
func AdmitsOneMore(spec Spec, snap Snapshot) bool {
	next := snap.Confirmed + 1
	switch s := spec.(type) {
	case nil:
		return true
	case Max:
		return next <= s.Limit
	case Exact:
		return next <= s.Limit
	case PerField:
		return next <= fieldCeiling(s, snap)
	case Min, Even, DivisibleBy:
		return true
	case And:
		return AdmitsOneMore(s.Left, snap) && AdmitsOneMore(s.Right, snap)
	case Or:
		return AdmitsOneMore(s.Left, snap) || AdmitsOneMore(s.Right, snap)
	case Not:
		return true
	case AndNot:
		return AdmitsOneMore(And{Left: s.Left, Right: Not{Inner: s.Right}}, snap)
	case OrNot:
		return AdmitsOneMore(Or{Left: s.Left, Right: Not{Inner: s.Right}}, snap)
	default:
		panic(fmt.Sprintf("capacity: unknown spec %T", spec))
	}
}

// Headroom returns how many more players could be admitted one at a time
// starting from snap, bounded by limit. A result equal to limit means the
// spec sets no ceiling below it.
func Headroom(spec Spec, snap Snapshot, limit int) int {
	n := 0
	for n < limit && AdmitsOneMore(spec, snap) {
		snap = snap.WithOneMore()
		n++
	}
	return n
}

func fieldCeiling(s PerField, snap Snapshot) int {
	if snap.Fields <= 0 {
		return 0
	}
	return s.PerField * snap.Fields
}
