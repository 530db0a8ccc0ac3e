package dto

import "github.com/shopspring/decimal"

type PlaceBetRequest struct {
	BettorID    *int64          `json:"bettorId" validate:"required,gte=0"`
	MatchID     int64           `json:"matchId" validate:"required,gt=0"`
	SelectionID int64           `json:"selectionId" validate:"required,gt=0"`
	BackOrLay   string          `json:"backOrLay" validate:"required"` // "BACK" | "LAY"; valor validado pelo livro
	BetAmount   decimal.Decimal `json:"betAmount"`                     // aceita número ou string
}

type CancelBetRequest struct {
	BettorID *int64 `json:"bettorId" validate:"required,gte=0"`
}

// ResolveMatchRequest é usado pelo endpoint administrativo de liquidação manual
type ResolveMatchRequest struct {
	WinningSelectionID int64 `json:"winningSelectionId" validate:"required,gt=0"`
}
