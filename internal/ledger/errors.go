package ledger

import "errors"

var (
	ErrInvalidSelection      = errors.New("invalid selection")
	ErrInvalidAmount         = errors.New("invalid bet amount")
	ErrInvalidSide           = errors.New("invalid value for back_or_lay, choose BACK or LAY")
	ErrInvalidBet            = errors.New("invalid bet")
	ErrNoPriceAvailable      = errors.New("no price available")
	ErrDataUnavailable       = errors.New("odds data unavailable")
	ErrMissingOddsForOutcome = errors.New("missing odds for outcome")
	ErrMissingScore          = errors.New("missing final score")
	ErrBetSettled            = errors.New("bet already settled")
	ErrSettlementInProgress  = errors.New("settlement in progress")
	ErrLockHeld              = errors.New("lock already held") // devolvido pelo Locker quando outro processo tem a trava
	ErrFixtureNotFound       = errors.New("fixture not found")
)

// ErrNotOwner é o mesmo erro de ErrInvalidBet: o livro não distingue
// "aposta inexistente" de "aposta de outro apostador"
var ErrNotOwner = ErrInvalidBet
