package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestBook(quotes []OddsQuote) (*Book, *memBets) {
	bets := newMemBets()
	return NewBook(zap.NewNop(), &memOdds{quotes: quotes}, bets), bets
}

func TestPlaceBet(t *testing.T) {
	quotes := matchQuotes(1, 1, t0)
	// seleção 14 sem profundidade de lay
	quotes = append(quotes, quote(4, 1, 14, RunnerDraw, "9", "", t0))

	tests := []struct {
		name    string
		in      PlaceBetInput
		wantErr error
		odds    string
	}{
		{"back takes best back", PlaceBetInput{BettorID: 1, MatchID: 1, SelectionID: 11, Side: SideBack, Amount: dec("10")}, nil, "2.5"},
		{"lay takes best lay", PlaceBetInput{BettorID: 1, MatchID: 1, SelectionID: 12, Side: SideLay, Amount: dec("10")}, nil, "3.05"},
		{"just below max", PlaceBetInput{BettorID: 1, MatchID: 1, SelectionID: 11, Side: SideBack, Amount: dec("999.99")}, nil, "2.5"},
		{"max is exclusive", PlaceBetInput{BettorID: 1, MatchID: 1, SelectionID: 11, Side: SideBack, Amount: dec("1000")}, ErrInvalidAmount, ""},
		{"zero", PlaceBetInput{BettorID: 1, MatchID: 1, SelectionID: 11, Side: SideBack, Amount: dec("0")}, ErrInvalidAmount, ""},
		{"negative", PlaceBetInput{BettorID: 1, MatchID: 1, SelectionID: 11, Side: SideBack, Amount: dec("-5")}, ErrInvalidAmount, ""},
		{"unknown selection", PlaceBetInput{BettorID: 1, MatchID: 1, SelectionID: 99, Side: SideBack, Amount: dec("10")}, ErrInvalidSelection, ""},
		{"unknown match", PlaceBetInput{BettorID: 1, MatchID: 7, SelectionID: 11, Side: SideBack, Amount: dec("10")}, ErrInvalidSelection, ""},
		{"bad side", PlaceBetInput{BettorID: 1, MatchID: 1, SelectionID: 11, Side: "BOTH", Amount: dec("10")}, ErrInvalidSide, ""},
		{"no lay price", PlaceBetInput{BettorID: 1, MatchID: 1, SelectionID: 14, Side: SideLay, Amount: dec("10")}, ErrNoPriceAvailable, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			book, bets := newTestBook(quotes)

			got, err := book.PlaceBet(context.Background(), tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if bets.writes != 0 {
					t.Fatalf("validation failure must not write, got %d writes", bets.writes)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.ID == 0 || got.Status != StatusPlaced {
				t.Fatalf("expected stored PLACED bet, got %+v", got)
			}
			if !got.SelectionOdds.Equal(dec(tt.odds)) {
				t.Fatalf("expected odds %s, got %s", tt.odds, got.SelectionOdds)
			}
			stored := bets.snapshot()[got.ID]
			if stored.RunnerType == "" || stored.RunnerName == "" {
				t.Fatalf("runner label not copied: %+v", stored)
			}
		})
	}
}

func TestPlaceBet_OddsFrozenAfterPlacement(t *testing.T) {
	odds := &memOdds{quotes: matchQuotes(1, 1, t0)}
	bets := newMemBets()
	book := NewBook(zap.NewNop(), odds, bets)

	b, err := book.PlaceBet(context.Background(), PlaceBetInput{BettorID: 1, MatchID: 1, SelectionID: 11, Side: SideBack, Amount: dec("10")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// preço novo chega depois da aposta
	odds.quotes = append(odds.quotes, quote(50, 1, 11, RunnerHomeWin, "4", "4.1", t0.Add(time.Hour)))

	if got := bets.snapshot()[b.ID].SelectionOdds; !got.Equal(dec("2.5")) {
		t.Fatalf("expected frozen odds 2.5, got %s", got)
	}
}

func TestPlaceBet_DataUnavailable(t *testing.T) {
	book := NewBook(zap.NewNop(), &memOdds{err: errors.New("timeout")}, newMemBets())
	_, err := book.PlaceBet(context.Background(), PlaceBetInput{BettorID: 1, MatchID: 1, SelectionID: 11, Side: SideBack, Amount: dec("10")})
	if !errors.Is(err, ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
}

func TestCancelBet(t *testing.T) {
	ctx := context.Background()
	book, bets := newTestBook(matchQuotes(1, 1, t0))

	b, err := book.PlaceBet(ctx, PlaceBetInput{BettorID: 1, MatchID: 1, SelectionID: 11, Side: SideBack, Amount: dec("10")})
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	if _, err := book.CancelBet(ctx, 2, b.ID); !errors.Is(err, ErrInvalidBet) {
		t.Fatalf("other bettor: expected ErrInvalidBet, got %v", err)
	}
	if _, err := book.CancelBet(ctx, 1, 999); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("unknown bet: expected ErrNotOwner, got %v", err)
	}

	if changed, err := book.CancelBet(ctx, 1, b.ID); err != nil || !changed {
		t.Fatalf("cancel: changed=%v err=%v", changed, err)
	}
	if st := bets.snapshot()[b.ID].Status; st != StatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", st)
	}

	// idempotente: nenhuma transição nova
	if changed, err := book.CancelBet(ctx, 1, b.ID); err != nil || changed {
		t.Fatalf("second cancel: changed=%v err=%v", changed, err)
	}
}

func TestCancelBet_SettledIsRejected(t *testing.T) {
	ctx := context.Background()
	odds := &memOdds{quotes: matchQuotes(1, 1, t0)}
	bets := newMemBets()
	book := NewBook(zap.NewNop(), odds, bets)
	eng := NewEngine(zap.NewNop(), odds, &memFixtures{}, bets)

	b, err := book.PlaceBet(ctx, PlaceBetInput{BettorID: 1, MatchID: 1, SelectionID: 11, Side: SideBack, Amount: dec("10")})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if _, err := eng.ResolveMatch(ctx, 1, 11); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	before := bets.snapshot()[b.ID]
	if _, err := book.CancelBet(ctx, 1, b.ID); !errors.Is(err, ErrBetSettled) {
		t.Fatalf("expected ErrBetSettled, got %v", err)
	}
	after := bets.snapshot()[b.ID]
	if after.Status != StatusSettled || !after.ReturnedAmount.Decimal.Equal(before.ReturnedAmount.Decimal) {
		t.Fatalf("settled bet was modified: %+v", after)
	}
}
