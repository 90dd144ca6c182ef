package engine

import "testing"

func TestNewBoardStandardOpening(t *testing.T) {
	b := NewBoard()
	want := map[int]int8{0: 2, 11: 5, 16: 3, 18: 5, 23: -2, 12: -5, 7: -3, 5: -5}
	for i, v := range b.Points {
		if v != want[i] {
			t.Fatalf("point %d = %d, want %d", i, v, want[i])
		}
	}
	if b.BarA != 0 || b.BarB != 0 {
		t.Fatalf("bars not empty: barA=%d barB=%d", b.BarA, b.BarB)
	}
	if got := b.TotalCheckers(0, 0); got != 2*CheckersPerSide {
		t.Fatalf("opening board holds %d checkers, want %d", got, 2*CheckersPerSide)
	}
}

func TestCanBearOff(t *testing.T) {
	var b Board
	// All of A's checkers in the home quadrant.
	b.Points[18] = 10
	b.Points[23] = 5
	if !CanBearOff(&b, PlayerA) {
		t.Fatalf("expected A to be allowed to bear off")
	}

	// One straggler outside home blocks bear-off.
	b.Points[18] = 9
	b.Points[4] = 1
	if CanBearOff(&b, PlayerA) {
		t.Fatalf("straggler on point 4 should block bear-off")
	}
	b.Points[4] = 0
	b.Points[18] = 10

	// A captured checker blocks bear-off even with all points home.
	b.BarA = 1
	if CanBearOff(&b, PlayerA) {
		t.Fatalf("checker on the bar should block bear-off")
	}
	b.BarA = 0

	// B's home is the low quadrant.
	b.Points[0] = -15
	if !CanBearOff(&b, PlayerB) {
		t.Fatalf("expected B to be allowed to bear off")
	}
	b.Points[10] = -1
	if CanBearOff(&b, PlayerB) {
		t.Fatalf("B checker on point 10 should block bear-off")
	}
}
