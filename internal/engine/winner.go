package engine

// CheckWinner returns the identity of the player who has borne off all 15
// checkers, or the empty string while the game is still live.
func CheckWinner(offA, offB uint8, playerA, playerB string) string {
	if offA == CheckersPerSide {
		return playerA
	}
	if offB == CheckersPerSide {
		return playerB
	}
	return ""
}
