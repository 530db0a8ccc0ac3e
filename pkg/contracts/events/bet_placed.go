package events

type BetPlaced struct {
	BetID         int64  `json:"bet_id"`
	BettorID      int64  `json:"bettor_id"`
	MatchID       int64  `json:"match_id"`
	SelectionID   int64  `json:"selection_id"`
	RunnerName    string `json:"runner_name"`
	BackOrLay     string `json:"back_or_lay"`
	BetAmount     string `json:"bet_amount"`     // decimal em string
	SelectionOdds string `json:"selection_odds"` // odd congelada no momento da aposta
	TsUnixMs      int64  `json:"ts_unix_ms"`
}
