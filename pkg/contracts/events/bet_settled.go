package events

import "time"

// Evento emitido pelo settlement-worker para cada aposta liquidada.
type BetSettled struct {
	BetID          int64     `json:"bet_id"`
	BettorID       int64     `json:"bettor_id"`
	MatchID        int64     `json:"match_id"`
	SelectionID    int64     `json:"selection_id"`
	BackOrLay      string    `json:"back_or_lay"`
	RunnerOutcome  string    `json:"runner_outcome"`
	BetWon         bool      `json:"bet_won"`
	ReturnedAmount string    `json:"returned_amount"`
	Ts             time.Time `json:"ts"`
}
