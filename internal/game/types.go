package game

import (
	"time"

	"github.com/tabla-live/tabla-server/internal/engine"
)

// Status represents a staked match lifecycle state.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusFinished Status = "FINISHED"
	StatusSettled  Status = "SETTLED"
)

// Phase is the turn-machine state derived from the stored fields.
type Phase string

const (
	PhaseAwaitingRoll Phase = "AWAITING_ROLL"
	PhaseAwaitingMove Phase = "AWAITING_MOVE"
	PhaseFinished     Phase = "FINISHED"
)

// Game is the persisted state of a staked match. All mutation goes through
// the Manager's transition methods; nothing else writes these fields.
type Game struct {
	ID          string       `json:"id"`
	PlayerA     string       `json:"player_a"`
	PlayerB     string       `json:"player_b"`
	CurrentTurn string       `json:"current_turn"`
	Board       engine.Board `json:"board"`
	Die1        uint8        `json:"die1"`
	Die2        uint8        `json:"die2"`
	DiceRolled  bool         `json:"dice_rolled"`
	OffA        uint8        `json:"off_a"`
	OffB        uint8        `json:"off_b"`
	Winner      string       `json:"winner,omitempty"`
	Status      Status       `json:"status"`
	Stake       int64        `json:"stake"`
	Claimed     bool         `json:"claimed"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	EndedAt     time.Time    `json:"ended_at,omitempty"`
}

// Phase reports where the turn machine stands. A set winner is terminal
// regardless of the dice flag.
func (g *Game) Phase() Phase {
	if g.Winner != "" {
		return PhaseFinished
	}
	if g.DiceRolled {
		return PhaseAwaitingMove
	}
	return PhaseAwaitingRoll
}

// seat maps a player identity onto the board sign convention.
func (g *Game) seat(id string) (engine.Player, bool) {
	switch id {
	case g.PlayerA:
		return engine.PlayerA, true
	case g.PlayerB:
		return engine.PlayerB, true
	default:
		return 0, false
	}
}

func (g *Game) opponent(id string) string {
	if id == g.PlayerA {
		return g.PlayerB
	}
	return g.PlayerA
}

// CheckerTotal counts every checker the game knows about. Always 30 for a
// consistent position.
func (g *Game) CheckerTotal() int {
	return g.Board.TotalCheckers(g.OffA, g.OffB)
}

// Escrow is the pooled stake held until settlement.
type Escrow struct {
	Balance int64 `json:"balance"`
}

// Settlement records how a claimed pot was split.
type Settlement struct {
	GameID    string    `json:"game_id"`
	Winner    string    `json:"winner"`
	Pot       int64     `json:"pot"`
	Payout    int64     `json:"payout"`
	Fee       int64     `json:"fee"`
	ClaimedAt time.Time `json:"claimed_at"`
}

// PlayerRating is a persisted per-player record. Nothing consumes it yet;
// it accumulates history for a future matchmaking pass.
type PlayerRating struct {
	Player        string `json:"player"`
	Elo           int    `json:"elo"`
	GamesPlayed   int    `json:"games_played"`
	GamesWon      int    `json:"games_won"`
	TotalWinnings int64  `json:"total_winnings"`
}

// InitialElo seeds a fresh rating row.
const InitialElo = 1200
