package events

import "time"

// Evento emitido pelo bet-service quando o apostador cancela uma aposta PLACED
type BetCancelled struct {
	BetID    int64     `json:"bet_id"`
	BettorID int64     `json:"bettor_id"`
	Ts       time.Time `json:"ts"`
}
