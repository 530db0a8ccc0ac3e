package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MaxBetAmount é o teto exclusivo da stake
var MaxBetAmount = decimal.NewFromInt(1000)

type PlaceBetInput struct {
	BettorID    int64
	MatchID     int64
	SelectionID int64
	Side        Side
	Amount      decimal.Decimal
}

// Book coloca e cancela apostas no livro
type Book struct {
	log  *zap.Logger
	odds OddsStore
	bets BetStore
	now  func() time.Time
}

func NewBook(log *zap.Logger, odds OddsStore, bets BetStore) *Book {
	return &Book{log: log, odds: odds, bets: bets, now: time.Now}
}

// PlaceBet valida a aposta contra as odds atuais da partida e grava uma aposta PLACED.
// A odd e o rótulo do runner são copiados para a aposta e não mudam mais.
func (b *Book) PlaceBet(ctx context.Context, in PlaceBetInput) (Bet, error) {
	latest, err := LoadLatestOddsForMatch(ctx, b.odds, in.MatchID)
	if err != nil {
		return Bet{}, err
	}

	quote, ok := latest.Get(in.MatchID, in.SelectionID)
	if !ok {
		return Bet{}, fmt.Errorf("%w: selection %d for match %d", ErrInvalidSelection, in.SelectionID, in.MatchID)
	}

	if !in.Amount.IsPositive() || !in.Amount.LessThan(MaxBetAmount) {
		return Bet{}, fmt.Errorf("%w: %s, valid range (0, %s)", ErrInvalidAmount, in.Amount, MaxBetAmount)
	}

	if !in.Side.Valid() {
		return Bet{}, fmt.Errorf("%w: got %q", ErrInvalidSide, in.Side)
	}

	price, ok := quote.PriceFor(in.Side)
	if !ok {
		return Bet{}, fmt.Errorf("%w: %s on selection %d", ErrNoPriceAvailable, in.Side, in.SelectionID)
	}

	bet := Bet{
		BettorID:      in.BettorID,
		MatchID:       in.MatchID,
		SelectionID:   in.SelectionID,
		RunnerName:    quote.RunnerName,
		RunnerType:    quote.RunnerType,
		BackOrLay:     in.Side,
		BetAmount:     in.Amount,
		SelectionOdds: price,
		CreatedAt:     b.now().UTC(),
		Status:        StatusPlaced,
	}

	id, err := b.bets.InsertBet(ctx, bet)
	if err != nil {
		return Bet{}, fmt.Errorf("insert bet: %w", err)
	}
	bet.ID = id

	b.log.Info("bet placed",
		zap.Int64("bet_id", id),
		zap.Int64("bettor_id", in.BettorID),
		zap.String("side", string(in.Side)),
		zap.String("amount", in.Amount.String()),
		zap.String("runner", quote.RunnerName),
		zap.String("odds", price.String()),
	)
	return bet, nil
}

// CancelBet cancela uma aposta PLACED do apostador e devolve true quando esta
// chamada fez a transição. Cancelar de novo não faz nada (false, nil); aposta
// já liquidada devolve ErrBetSettled.
func (b *Book) CancelBet(ctx context.Context, bettorID, betID int64) (bool, error) {
	bet, err := b.bets.GetBet(ctx, bettorID, betID)
	if err != nil {
		if errors.Is(err, ErrInvalidBet) {
			return false, fmt.Errorf("%w: bet %d for bettor %d", ErrInvalidBet, betID, bettorID)
		}
		return false, err
	}

	switch bet.Status {
	case StatusCancelled:
		return false, nil
	case StatusSettled:
		return false, fmt.Errorf("%w: bet %d", ErrBetSettled, betID)
	}

	changed, err := b.bets.CancelBet(ctx, bettorID, betID)
	if err != nil {
		return false, fmt.Errorf("cancel bet: %w", err)
	}
	if !changed {
		// a liquidação (ou outro cancelamento) pode ter vencido a corrida entre a leitura e o update
		cur, err := b.bets.GetBet(ctx, bettorID, betID)
		if err != nil {
			return false, err
		}
		if cur.Status == StatusSettled {
			return false, fmt.Errorf("%w: bet %d", ErrBetSettled, betID)
		}
		return false, nil
	}

	b.log.Info("bet cancelled", zap.Int64("bet_id", betID), zap.Int64("bettor_id", bettorID))
	return true, nil
}
