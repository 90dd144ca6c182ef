package engine

// Effect describes what an executed move did beyond shifting a checker.
type Effect struct {
	// Hit is set when the destination held a lone opposing blot, which was
	// sent to its owner's bar.
	Hit bool
	// BorneOff is set when the checker left the board; the caller owns the
	// off counters and must increment the mover's.
	BorneOff bool
}

// Validate decides whether moving a checker from -> to is legal for the
// acting player. It checks index ranges, source ownership, destination
// blocking and bear-off eligibility.
//
// Die-distance consistency, bar re-entry precedence and direction of travel
// are deliberately not checked here; the coordinator accepts any
// otherwise-legal slide while dice are live.
func Validate(b *Board, from, to int, p Player) bool {
	if from < 0 || from >= NumPoints {
		return false
	}
	src := b.Points[from]
	if p == PlayerA && src <= 0 {
		return false
	}
	if p == PlayerB && src >= 0 {
		return false
	}
	if to == OffSlot {
		return CanBearOff(b, p)
	}
	if to < 0 || to >= NumPoints {
		return false
	}
	// Blocked: two or more opposing checkers on the destination.
	dst := b.Points[to]
	if p == PlayerA && dst <= -2 {
		return false
	}
	if p == PlayerB && dst >= 2 {
		return false
	}
	return true
}

// Execute applies a move that Validate has already accepted. It performs no
// re-validation; calling it with an illegal move corrupts the board.
func Execute(b *Board, from, to int, p Player) Effect {
	var eff Effect
	if p == PlayerA {
		b.Points[from]--
	} else {
		b.Points[from]++
	}
	if to == OffSlot {
		eff.BorneOff = true
		return eff
	}
	dst := b.Points[to]
	switch {
	case p == PlayerA && dst == -1:
		// Lone blot hit: mover occupies the point, the blot goes to B's bar.
		b.Points[to] = 1
		b.BarB++
		eff.Hit = true
	case p == PlayerB && dst == 1:
		b.Points[to] = -1
		b.BarA++
		eff.Hit = true
	case p == PlayerA:
		b.Points[to]++
	default:
		b.Points[to]--
	}
	return eff
}
