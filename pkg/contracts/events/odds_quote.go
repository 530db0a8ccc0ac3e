package events

import "time"

// Runner representa uma seleção do mercado MATCH_ODDS numa coleta
// Preços ficam nil quando não há profundidade de mercado
type Runner struct {
	SelectionID     int64    `json:"selection_id"`
	RunnerName      string   `json:"runner_name"`
	RunnerType      string   `json:"runner_type"` // "Home win" | "Away win" | "Draw"
	BestBackPrice   *float64 `json:"best_back_price,omitempty"`
	BestBackSize    *float64 `json:"best_back_size,omitempty"`
	BestLayPrice    *float64 `json:"best_lay_price,omitempty"`
	BestLaySize     *float64 `json:"best_lay_size,omitempty"`
	LastPriceTraded *float64 `json:"last_price_traded,omitempty"`
	TotalMatched    *float64 `json:"total_matched,omitempty"`
	Status          string   `json:"status"`
}

// Evento publicado no tópico "odds_quotes": um snapshot do mercado de uma partida
type OddsQuote struct {
	EventID     string    `json:"event_id"`  // id do evento no feed (Betfair)
	MarketID    string    `json:"market_id"` // mercado MATCH_ODDS
	HomeTeam    string    `json:"home_team"`
	AwayTeam    string    `json:"away_team"`
	MatchDate   time.Time `json:"match_date"`
	Runners     []Runner  `json:"runners"`
	RequestTime time.Time `json:"request_time"` // mesmo valor para toda a coleta
	Source      string    `json:"source"`       // "betfair" | "feed-simulator"
}
