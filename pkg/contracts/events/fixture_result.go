package events

import "time"

// Evento publicado no tópico "fixture_results" quando uma partida passa a FINISHED
type FixtureResult struct {
	MatchID   int64     `json:"match_id"`
	HomeTeam  string    `json:"home_team"`
	AwayTeam  string    `json:"away_team"`
	HomeScore *int      `json:"home_score,omitempty"`
	AwayScore *int      `json:"away_score,omitempty"`
	Status    string    `json:"status"`
	Ts        time.Time `json:"ts"`
}
