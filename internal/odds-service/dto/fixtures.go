package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/epl-bet-ledger/internal/ledger"
)

type Fixture struct {
	MatchID    int64      `json:"match_id"`
	Matchday   *int       `json:"matchday"`
	Kickoff    *time.Time `json:"kickoff"`
	HomeTeam   string     `json:"home_team"`
	AwayTeam   string     `json:"away_team"`
	HomeTeamID *int64     `json:"home_team_id"`
	AwayTeamID *int64     `json:"away_team_id"`
	Venue      string     `json:"venue"`
	HomeScore  *int       `json:"home_score"`
	AwayScore  *int       `json:"away_score"`
	Status     string     `json:"status"`
	Season     string     `json:"season"`
}

func FromFixture(f ledger.Fixture) Fixture {
	return Fixture{
		MatchID:    f.MatchID,
		Matchday:   f.Matchday,
		Kickoff:    f.Kickoff,
		HomeTeam:   f.HomeTeam,
		AwayTeam:   f.AwayTeam,
		HomeTeamID: f.HomeTeamID,
		AwayTeamID: f.AwayTeamID,
		Venue:      f.Venue,
		HomeScore:  f.HomeScore,
		AwayScore:  f.AwayScore,
		Status:     string(f.Status),
		Season:     f.Season,
	}
}

func FromFixtures(fs []ledger.Fixture) []Fixture {
	out := make([]Fixture, 0, len(fs))
	for _, f := range fs {
		out = append(out, FromFixture(f))
	}
	return out
}

type Team struct {
	TeamID    int64  `json:"team_id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
	TLA       string `json:"tla"`
	Crest     string `json:"crest"`
	Founded   *int   `json:"founded"`
	Venue     string `json:"venue"`
}

// Quote é a cotação exposta na API; preços como string decimal, null sem profundidade
type Quote struct {
	ID              int64     `json:"id"`
	SelectionID     int64     `json:"selection_id"`
	RunnerName      string    `json:"runner_name"`
	RunnerType      string    `json:"runner_type"`
	BestBackPrice   *string   `json:"best_back_price"`
	BestBackSize    *string   `json:"best_back_size"`
	BestLayPrice    *string   `json:"best_lay_price"`
	BestLaySize     *string   `json:"best_lay_size"`
	LastPriceTraded *string   `json:"last_price_traded"`
	TotalMatched    *string   `json:"total_matched"`
	Status          string    `json:"status"`
	RequestTime     time.Time `json:"request_time"`
}

func FromQuotes(qs []ledger.OddsQuote) []Quote {
	out := make([]Quote, 0, len(qs))
	for _, q := range qs {
		out = append(out, Quote{
			ID:              q.ID,
			SelectionID:     q.SelectionID,
			RunnerName:      q.RunnerName,
			RunnerType:      string(q.RunnerType),
			BestBackPrice:   str(q.BestBackPrice),
			BestBackSize:    str(q.BestBackSize),
			BestLayPrice:    str(q.BestLayPrice),
			BestLaySize:     str(q.BestLaySize),
			LastPriceTraded: str(q.LastPriceTraded),
			TotalMatched:    str(q.TotalMatched),
			Status:          q.Status,
			RequestTime:     q.RequestTime,
		})
	}
	return out
}

func str(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}

type MatchdaysResponse struct {
	Matchdays []int `json:"matchdays"`
}

type FixturesResponse struct {
	Matchday *int      `json:"matchday,omitempty"`
	TeamID   *int64    `json:"team_id,omitempty"`
	Fixtures []Fixture `json:"fixtures"`
}

type TeamsResponse struct {
	Teams []Team `json:"teams"`
}

type OddsResponse struct {
	MatchID int64   `json:"match_id"`
	Source  string  `json:"source"` // "cache" | "db"
	Quotes  []Quote `json:"quotes"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
