package ledger

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		side   Side
		sel    int64
		winner int64
		want   Class
	}{
		{"back on winner", SideBack, 11, 11, ClassWinningBack},
		{"back on loser", SideBack, 12, 11, ClassLosingBack},
		{"lay on loser", SideLay, 12, 11, ClassWinningLay},
		{"lay on winner", SideLay, 11, 11, ClassLosingLay},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.side, tt.sel, tt.winner)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}

	if _, err := Classify("BOTH", 1, 1); !errors.Is(err, ErrInvalidSide) {
		t.Fatalf("expected ErrInvalidSide, got %v", err)
	}
}

func TestPayout(t *testing.T) {
	tests := []struct {
		class  Class
		amount string
		odds   string
		want   string
	}{
		{ClassWinningBack, "10", "2.5", "25"},
		{ClassLosingBack, "10", "2.5", "0"},
		{ClassWinningLay, "10", "3", "10"},
		{ClassLosingLay, "10", "3", "-20"},
		{ClassWinningBack, "999.99", "1.01", "1009.9899"},
		{ClassLosingLay, "0.5", "1.5", "-0.25"},
	}
	for _, tt := range tests {
		t.Run(tt.class.String()+"_"+tt.amount+"@"+tt.odds, func(t *testing.T) {
			got := Payout(tt.class, dec(tt.amount), dec(tt.odds))
			if !got.Equal(dec(tt.want)) {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestSettle_UsesFrozenOdds(t *testing.T) {
	b := Bet{ID: 3, BettorID: 1, MatchID: 1, SelectionID: 11, BackOrLay: SideBack, BetAmount: dec("10"), SelectionOdds: dec("2.5"), Status: StatusPlaced}

	s, err := Settle(b, 11, RunnerHomeWin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.BetWon || s.Class != ClassWinningBack || !s.ReturnedAmount.Equal(dec("25")) || s.RunnerOutcome != RunnerHomeWin {
		t.Fatalf("unexpected settlement: %+v", s)
	}
}
