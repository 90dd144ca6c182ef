package tabladto

// CreateGameRequest starts a staked match between two accounts.
type CreateGameRequest struct {
	PlayerA string `json:"player_a"`
	PlayerB string `json:"player_b"`
	Stake   int64  `json:"stake"`
}

// RollRequest asks for a dice roll on behalf of a player.
type RollRequest struct {
	Player string `json:"player"`
}

// RollResponse carries the rolled dice alongside the updated game.
type RollResponse struct {
	Die1 uint8     `json:"die_1"`
	Die2 uint8     `json:"die_2"`
	Game *GameView `json:"game"`
}

// MoveRequest applies a single checker move. A To of 24 bears the
// checker off.
type MoveRequest struct {
	Player string `json:"player"`
	From   int    `json:"from"`
	To     int    `json:"to"`
}

// MoveResponse carries the updated game after a move. Message is set when
// the move ends the match.
type MoveResponse struct {
	Game    *GameView `json:"game"`
	Message string    `json:"message,omitempty"`
}

// ClaimRequest settles the pot for the winner.
type ClaimRequest struct {
	Player string `json:"player"`
}

// CreateTournamentRequest opens registration for a bracket.
type CreateTournamentRequest struct {
	Organizer string `json:"organizer"`
	EntryFee  int64  `json:"entry_fee"`
	MaxSeats  int    `json:"max_seats"`
}

// RegisterRequest enrolls a player in a tournament.
type RegisterRequest struct {
	Player string `json:"player"`
}

// TournamentView is the public snapshot of a tournament.
type TournamentView struct {
	ID        string   `json:"id"`
	Organizer string   `json:"organizer"`
	EntryFee  int64    `json:"entry_fee"`
	MaxSeats  int      `json:"max_seats"`
	Players   []string `json:"players"`
	PrizePool int64    `json:"prize_pool"`
	Started   bool     `json:"started"`
	CanStart  bool     `json:"can_start"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
