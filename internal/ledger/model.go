// Package ledger contém o livro de apostas simulado: colocação e cancelamento
// de apostas contra as odds mais recentes e a liquidação (settlement) das
// apostas de uma partida encerrada.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side é o lado da aposta: BACK ganha se a seleção ocorre, LAY se não ocorre
type Side string

const (
	SideBack Side = "BACK"
	SideLay  Side = "LAY"
)

func (s Side) Valid() bool { return s == SideBack || s == SideLay }

type BetStatus string

const (
	StatusPlaced    BetStatus = "PLACED"
	StatusCancelled BetStatus = "CANCELLED"
	StatusSettled   BetStatus = "SETTLED"
)

// BetStatuses lista os estados na ordem do ciclo de vida
var BetStatuses = []BetStatus{StatusPlaced, StatusCancelled, StatusSettled}

func (s BetStatus) Valid() bool {
	switch s {
	case StatusPlaced, StatusCancelled, StatusSettled:
		return true
	}
	return false
}

// RunnerType é o rótulo categórico da seleção no mercado 1x2
type RunnerType string

const (
	RunnerHomeWin RunnerType = "Home win"
	RunnerAwayWin RunnerType = "Away win"
	RunnerDraw    RunnerType = "Draw"
)

type FixtureStatus string

const (
	FixtureScheduled FixtureStatus = "SCHEDULED"
	FixtureTimed     FixtureStatus = "TIMED"
	FixtureInPlay    FixtureStatus = "IN_PLAY"
	FixturePaused    FixtureStatus = "PAUSED"
	FixtureFinished  FixtureStatus = "FINISHED"
	FixturePostponed FixtureStatus = "POSTPONED"
	FixtureSuspended FixtureStatus = "SUSPENDED"
	FixtureCancelled FixtureStatus = "CANCELLED"
)

// QuoteKey identifica uma seleção dentro de uma partida
type QuoteKey struct {
	MatchID     int64
	SelectionID int64
}

// OddsQuote é uma cotação gravada; várias se acumulam por chave ao longo do tempo.
// ID é o id da linha e reflete a ordem de inserção.
type OddsQuote struct {
	ID              int64               `json:"id"`
	MatchID         int64               `json:"match_id"`
	SelectionID     int64               `json:"selection_id"`
	RunnerName      string              `json:"runner_name"`
	RunnerType      RunnerType          `json:"runner_type"`
	BestBackPrice   decimal.NullDecimal `json:"best_back_price"`
	BestBackSize    decimal.NullDecimal `json:"best_back_size"`
	BestLayPrice    decimal.NullDecimal `json:"best_lay_price"`
	BestLaySize     decimal.NullDecimal `json:"best_lay_size"`
	LastPriceTraded decimal.NullDecimal `json:"last_price_traded"`
	TotalMatched    decimal.NullDecimal `json:"total_matched"`
	Status          string              `json:"status"`
	RequestTime     time.Time           `json:"request_time"`
}

func (q OddsQuote) Key() QuoteKey { return QuoteKey{MatchID: q.MatchID, SelectionID: q.SelectionID} }

// PriceFor devolve o melhor preço de back (BACK) ou de lay (LAY); false quando não há profundidade
func (q OddsQuote) PriceFor(side Side) (decimal.Decimal, bool) {
	var p decimal.NullDecimal
	switch side {
	case SideBack:
		p = q.BestBackPrice
	case SideLay:
		p = q.BestLayPrice
	default:
		return decimal.Decimal{}, false
	}
	if !p.Valid {
		return decimal.Decimal{}, false
	}
	return p.Decimal, true
}

// Fixture é uma partida do calendário com placar e status
type Fixture struct {
	MatchID    int64
	Matchday   *int
	Kickoff    *time.Time
	HomeTeam   string
	AwayTeam   string
	HomeTeamID *int64
	AwayTeamID *int64
	Venue      string
	HomeScore  *int
	AwayScore  *int
	Status     FixtureStatus
	Season     string
	UpdatedAt  time.Time
}

// Bet é o registro do livro. SelectionOdds é congelada na colocação;
// RunnerOutcome, BetWon e ReturnedAmount só são preenchidos na liquidação.
type Bet struct {
	ID             int64
	BettorID       int64
	MatchID        int64
	SelectionID    int64
	RunnerName     string
	RunnerType     RunnerType
	BackOrLay      Side
	BetAmount      decimal.Decimal
	SelectionOdds  decimal.Decimal
	CreatedAt      time.Time
	Status         BetStatus
	RunnerOutcome  *string
	BetWon         *bool
	ReturnedAmount decimal.NullDecimal
}
