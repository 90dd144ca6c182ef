package tabladto

import "time"

// GameView is the public snapshot of a match returned by the API and
// pushed to spectators.
type GameView struct {
	ID          string    `json:"id"`
	PlayerA     string    `json:"player_a"`
	PlayerB     string    `json:"player_b"`
	CurrentTurn string    `json:"current_turn"`
	Status      string    `json:"status"`
	Phase       string    `json:"phase"`
	Points      [24]int8  `json:"points"`
	BarA        uint8     `json:"bar_a"`
	BarB        uint8     `json:"bar_b"`
	OffA        uint8     `json:"off_a"`
	OffB        uint8     `json:"off_b"`
	Die1        uint8     `json:"die_1"`
	Die2        uint8     `json:"die_2"`
	DiceRolled  bool      `json:"dice_rolled"`
	Winner      string    `json:"winner,omitempty"`
	Stake       int64     `json:"stake"`
	Claimed     bool      `json:"claimed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	EndedAt     time.Time `json:"ended_at,omitempty"`
}

// SettlementView reports the payout split after a claim.
type SettlementView struct {
	GameID    string    `json:"game_id"`
	Winner    string    `json:"winner"`
	Pot       int64     `json:"pot"`
	Payout    int64     `json:"payout"`
	Fee       int64     `json:"fee"`
	ClaimedAt time.Time `json:"claimed_at"`
	Message   string    `json:"message,omitempty"`
}
