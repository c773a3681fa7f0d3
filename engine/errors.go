package engine

import "errors"

// Rejection reasons. Every rejected action returns one of these (possibly
// wrapped with detail) and leaves the GameState untouched.
var (
	ErrGameOver          = errors.New("game is already over")
	ErrNotPlayerTurn     = errors.New("it is not the player's turn")
	ErrNotComputerTurn   = errors.New("it is not the computer's turn")
	ErrDrawInProgress    = errors.New("a draw is in progress")
	ErrAwaitingSuit      = errors.New("a suit must be chosen first")
	ErrNoPendingSuit     = errors.New("no suit choice is pending")
	ErrIndexOutOfRange   = errors.New("card index out of range")
	ErrIllegalPlay       = errors.New("card does not match the current suit or rank")
	ErrInvalidSuit       = errors.New("invalid suit")
	ErrSuitAlreadyChosen = errors.New("suit was already chosen this game")
	ErrGameInProgress    = errors.New("game is still in progress")
)

// phaseError maps a phase that blocks player actions to its rejection.
func phaseError(p Phase) error {
	switch p {
	case PhaseGameOver:
		return ErrGameOver
	case PhaseDrawing:
		return ErrDrawInProgress
	case PhaseAwaitingSuit:
		return ErrAwaitingSuit
	case PhaseComputerTurn:
		return ErrNotPlayerTurn
	default:
		return nil
	}
}
