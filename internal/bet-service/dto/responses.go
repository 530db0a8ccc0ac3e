package dto

import (
	"time"

	"github.com/radieske/epl-bet-ledger/internal/ledger"
)

type BetResponse struct {
	BetID          int64     `json:"bet_id"`
	BettorID       int64     `json:"bettor_id"`
	MatchID        int64     `json:"match_id"`
	SelectionID    int64     `json:"selection_id"`
	RunnerName     string    `json:"runner_name"`
	RunnerType     string    `json:"runner_type"`
	BackOrLay      string    `json:"back_or_lay"`
	BetAmount      string    `json:"bet_amount"`
	SelectionOdds  string    `json:"selection_odds"`
	CreatedAt      time.Time `json:"created_at"`
	Status         string    `json:"status"`
	RunnerOutcome  *string   `json:"runner_outcome"`
	BetWon         *bool     `json:"bet_won"`
	ReturnedAmount *string   `json:"returned_amount"`
}

func FromBet(b ledger.Bet) BetResponse {
	out := BetResponse{
		BetID:         b.ID,
		BettorID:      b.BettorID,
		MatchID:       b.MatchID,
		SelectionID:   b.SelectionID,
		RunnerName:    b.RunnerName,
		RunnerType:    string(b.RunnerType),
		BackOrLay:     string(b.BackOrLay),
		BetAmount:     b.BetAmount.StringFixed(2),
		SelectionOdds: b.SelectionOdds.String(),
		CreatedAt:     b.CreatedAt,
		Status:        string(b.Status),
		RunnerOutcome: b.RunnerOutcome,
		BetWon:        b.BetWon,
	}
	if b.ReturnedAmount.Valid {
		s := b.ReturnedAmount.Decimal.String()
		out.ReturnedAmount = &s
	}
	return out
}

type BetsResponse struct {
	BettorID int64         `json:"bettor_id"`
	Status   string        `json:"status"`
	Bets     []BetResponse `json:"bets"`
}

type BettorsResponse struct {
	Bettors []int64 `json:"bettors"`
}

type StatusesResponse struct {
	Statuses []string `json:"statuses"`
}

type MatchReportResponse struct {
	MatchID            int64          `json:"match_id"`
	WinningSelectionID int64          `json:"winning_selection_id"`
	RunnerOutcome      string         `json:"runner_outcome"`
	Placed             int            `json:"placed"`
	Settled            int            `json:"settled"`
	ByClass            map[string]int `json:"by_class"`
}

func FromMatchReport(r ledger.MatchReport) MatchReportResponse {
	byClass := make(map[string]int, len(r.ByClass))
	for c, n := range r.ByClass {
		byClass[c.String()] = n
	}
	return MatchReportResponse{
		MatchID:            r.MatchID,
		WinningSelectionID: r.WinningSelectionID,
		RunnerOutcome:      string(r.RunnerOutcome),
		Placed:             r.Placed,
		Settled:            r.Settled,
		ByClass:            byClass,
	}
}

type BatchReportResponse struct {
	Resolved []MatchReportResponse `json:"resolved"`
	Skipped  map[int64]string      `json:"skipped"`
	Failed   map[int64]string      `json:"failed"`
}

func FromBatchReport(r ledger.BatchReport) BatchReportResponse {
	out := BatchReportResponse{
		Resolved: make([]MatchReportResponse, 0, len(r.Resolved)),
		Skipped:  make(map[int64]string, len(r.Skipped)),
		Failed:   make(map[int64]string, len(r.Failed)),
	}
	for _, m := range r.Resolved {
		out.Resolved = append(out.Resolved, FromMatchReport(m))
	}
	for id, err := range r.Skipped {
		out.Skipped[id] = err.Error()
	}
	for id, err := range r.Failed {
		out.Failed[id] = err.Error()
	}
	return out
}

type ErrorResponse struct {
	Error string `json:"error"`
}
