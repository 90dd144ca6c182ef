package game

import "errors"

// Transition errors. Each one is terminal for the attempted call: the game
// record is left untouched and the caller may retry with corrected input.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrGameNotFound      = errors.New("game not found")
	ErrNotYourTurn       = errors.New("not your turn to play")
	ErrDiceNotRolled     = errors.New("dice must be rolled before moving")
	ErrDiceAlreadyRolled = errors.New("dice already rolled this turn")
	ErrInvalidMove       = errors.New("invalid move")
	ErrGameEnded         = errors.New("game has already ended")
	ErrGameNotEnded      = errors.New("game has not ended")
	ErrNotWinner         = errors.New("only the winner can claim")
	ErrAlreadyClaimed    = errors.New("winnings already claimed")
	ErrInsufficientFunds = errors.New("escrow balance too low")
	ErrConcurrentUpdate  = errors.New("concurrent update, retry")
)

// IsCallerError reports whether err is caller misuse rather than an
// infrastructure failure.
func IsCallerError(err error) bool {
	for _, e := range []error{
		ErrInvalidArgument, ErrGameNotFound, ErrNotYourTurn, ErrDiceNotRolled, ErrDiceAlreadyRolled,
		ErrInvalidMove, ErrGameEnded, ErrGameNotEnded, ErrNotWinner,
		ErrAlreadyClaimed, ErrInsufficientFunds,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
