package engine

// Player selects the sign convention used on the board: checkers of the
// first seat are stored as positive counts, the second seat as negative.
type Player int8

const (
	PlayerA Player = 1
	PlayerB Player = -1
)

const (
	// NumPoints is the count of playable points.
	NumPoints = 24

	// OffSlot is the pseudo destination index for bearing a checker off
	// the board. It is never a valid source.
	OffSlot = 24

	// CheckersPerSide is the number of checkers each seat starts with.
	CheckersPerSide = 15
)

// Board holds the point occupancy plus each player's bar. A point stores a
// signed count (positive = player A, negative = player B, magnitude = number
// of checkers). Bars are non-negative counters of captured checkers waiting
// to re-enter; a hit increments the owner's bar, it never decrements
// anything.
type Board struct {
	Points [NumPoints]int8 `json:"points"`
	BarA   uint8           `json:"bar_a"`
	BarB   uint8           `json:"bar_b"`
}

// NewBoard returns a board in the standard backgammon opening layout.
func NewBoard() Board {
	var b Board
	// Player A (positive counts).
	b.Points[0] = 2
	b.Points[11] = 5
	b.Points[16] = 3
	b.Points[18] = 5
	// Player B (negative counts).
	b.Points[23] = -2
	b.Points[12] = -5
	b.Points[7] = -3
	b.Points[5] = -5
	return b
}

// TotalCheckers sums every checker visible to the board plus the given
// off counts. A legal position always totals 2 * CheckersPerSide.
func (b *Board) TotalCheckers(offA, offB uint8) int {
	n := int(b.BarA) + int(b.BarB) + int(offA) + int(offB)
	for _, p := range b.Points {
		if p < 0 {
			n -= int(p)
		} else {
			n += int(p)
		}
	}
	return n
}

// homeRange bounds the home quadrant per player as [lo, hi). A travels
// toward the high indices, B toward the low ones.
func homeRange(p Player) (int, int) {
	if p == PlayerA {
		return 18, NumPoints
	}
	return 0, 6
}

// CanBearOff reports whether the player may start moving checkers off the
// board: nothing captured on the bar and every remaining checker inside the
// home quadrant.
func CanBearOff(b *Board, p Player) bool {
	lo, hi := homeRange(p)
	if p == PlayerA && b.BarA != 0 {
		return false
	}
	if p == PlayerB && b.BarB != 0 {
		return false
	}
	for i := 0; i < NumPoints; i++ {
		if i >= lo && i < hi {
			continue
		}
		v := b.Points[i]
		if p == PlayerA && v > 0 {
			return false
		}
		if p == PlayerB && v < 0 {
			return false
		}
	}
	return true
}
