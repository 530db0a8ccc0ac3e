package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"pgregory.net/rapid"
)

var sideGen = rapid.SampledFrom([]Side{SideBack, SideLay})

func betInputGen(matchID int64) *rapid.Generator[PlaceBetInput] {
	return rapid.Custom(func(t *rapid.T) PlaceBetInput {
		cents := rapid.IntRange(1, 99999).Draw(t, "cents")
		return PlaceBetInput{
			BettorID:    rapid.Int64Range(1, 5).Draw(t, "bettor"),
			MatchID:     matchID,
			SelectionID: rapid.Int64Range(11, 13).Draw(t, "selection"),
			Side:        sideGen.Draw(t, "side"),
			Amount:      decimal.New(int64(cents), -2),
		}
	})
}

func TestSettlementPartitionProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		env := newFixtureEnv(matchQuotes(1, 1, t0))

		inputs := rapid.SliceOfN(betInputGen(1), 0, 30).Draw(t, "bets")
		for _, in := range inputs {
			if _, err := env.book.PlaceBet(ctx, in); err != nil {
				t.Fatalf("place: %v", err)
			}
		}
		winner := rapid.Int64Range(11, 13).Draw(t, "winner")

		rep, err := env.engine.ResolveMatch(ctx, 1, winner)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}

		total := 0
		for _, c := range Classes {
			total += rep.ByClass[c]
		}
		if total != len(inputs) || rep.Settled != len(inputs) {
			t.Fatalf("classes cover %d bets, settled %d, placed %d", total, rep.Settled, len(inputs))
		}

		for _, b := range env.bets.snapshot() {
			if b.Status != StatusSettled {
				t.Fatalf("bet %d left in %s", b.ID, b.Status)
			}
			c, _ := Classify(b.BackOrLay, b.SelectionID, winner)
			if *b.BetWon != c.Won() {
				t.Fatalf("bet %d: bet_won %v does not match class %s", b.ID, *b.BetWon, c)
			}
			r := b.ReturnedAmount.Decimal
			switch c {
			case ClassWinningBack:
				if !r.Equal(b.BetAmount.Mul(b.SelectionOdds)) {
					t.Fatalf("winning back %d: got %s", b.ID, r)
				}
			case ClassLosingBack:
				if !r.IsZero() {
					t.Fatalf("losing back %d: got %s", b.ID, r)
				}
			case ClassWinningLay:
				if !r.Equal(b.BetAmount) {
					t.Fatalf("winning lay %d: got %s", b.ID, r)
				}
			case ClassLosingLay:
				if !r.Equal(b.BetAmount.Mul(b.SelectionOdds.Sub(decimal.NewFromInt(1))).Neg()) {
					t.Fatalf("losing lay %d: got %s", b.ID, r)
				}
			}
		}
	})
}

func TestSettlementIdempotenceProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		env := newFixtureEnv(matchQuotes(1, 1, t0))

		for _, in := range rapid.SliceOfN(betInputGen(1), 1, 20).Draw(t, "bets") {
			if _, err := env.book.PlaceBet(ctx, in); err != nil {
				t.Fatalf("place: %v", err)
			}
		}
		winner := rapid.Int64Range(11, 13).Draw(t, "winner")

		if _, err := env.engine.ResolveMatch(ctx, 1, winner); err != nil {
			t.Fatalf("resolve: %v", err)
		}
		first := env.bets.snapshot()

		runs := rapid.IntRange(1, 3).Draw(t, "reruns")
		for i := 0; i < runs; i++ {
			rep, err := env.engine.ResolveMatch(ctx, 1, winner)
			if err != nil {
				t.Fatalf("rerun: %v", err)
			}
			if rep.Settled != 0 {
				t.Fatalf("rerun settled %d bets", rep.Settled)
			}
		}

		for id, b := range env.bets.snapshot() {
			f := first[id]
			if b.Status != f.Status || *b.BetWon != *f.BetWon || !b.ReturnedAmount.Decimal.Equal(f.ReturnedAmount.Decimal) {
				t.Fatalf("bet %d changed on rerun", id)
			}
		}
	})
}

func TestLatestOddsOrderIndependenceProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 40).Draw(t, "n")
		quotes := make([]OddsQuote, 0, n)
		for i := 0; i < n; i++ {
			quotes = append(quotes, quote(
				int64(i+1),
				rapid.Int64Range(1, 3).Draw(t, "match"),
				rapid.Int64Range(11, 13).Draw(t, "sel"),
				RunnerDraw, "2", "2.1",
				t0.Add(time.Duration(rapid.IntRange(0, 4).Draw(t, "minute"))*time.Minute),
			))
		}
		shuffled := rapid.Permutation(quotes).Draw(t, "order")

		a, b := BuildLatestOdds(quotes), BuildLatestOdds(shuffled)
		if a.Len() != b.Len() {
			t.Fatalf("len mismatch %d != %d", a.Len(), b.Len())
		}
		for _, q := range quotes {
			x, _ := a.Get(q.MatchID, q.SelectionID)
			y, _ := b.Get(q.MatchID, q.SelectionID)
			if x.ID != y.ID {
				t.Fatalf("key %v: %d vs %d", q.Key(), x.ID, y.ID)
			}
			if x.RequestTime.Before(q.RequestTime) {
				t.Fatalf("key %v: latest is older than a candidate", q.Key())
			}
		}
	})
}

func TestPlaceBetRejectsWithoutWritesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		book := NewBook(zap.NewNop(), &memOdds{quotes: matchQuotes(1, 1, t0)}, newMemBets())
		bets := book.bets.(*memBets)

		in := PlaceBetInput{
			BettorID:    1,
			MatchID:     1,
			SelectionID: rapid.Int64Range(10, 14).Draw(t, "selection"),
			Side:        rapid.SampledFrom([]Side{SideBack, SideLay, "", "back"}).Draw(t, "side"),
			Amount:      decimal.New(int64(rapid.IntRange(-1000, 200000).Draw(t, "cents")), -2),
		}
		_, err := book.PlaceBet(context.Background(), in)

		valid := in.SelectionID >= 11 && in.SelectionID <= 13 &&
			in.Amount.IsPositive() && in.Amount.LessThan(MaxBetAmount) && in.Side.Valid()
		if valid != (err == nil) {
			t.Fatalf("input %+v: valid=%v err=%v", in, valid, err)
		}
		if err != nil && bets.writes != 0 {
			t.Fatalf("rejected bet wrote to the ledger")
		}
	})
}
