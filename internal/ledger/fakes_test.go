package ledger

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var t0 = time.Date(2025, 8, 16, 14, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func nd(s string) decimal.NullDecimal {
	if s == "" {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(dec(s))
}

func intp(i int) *int { return &i }

// quote monta uma cotação com back/lay; "" deixa o preço nulo
func quote(id, match, sel int64, rt RunnerType, back, lay string, at time.Time) OddsQuote {
	return OddsQuote{
		ID:            id,
		MatchID:       match,
		SelectionID:   sel,
		RunnerName:    string(rt),
		RunnerType:    rt,
		BestBackPrice: nd(back),
		BestLayPrice:  nd(lay),
		Status:        "ACTIVE",
		RequestTime:   at,
	}
}

// 1x2 padrão: 11 casa, 12 fora, 13 empate
func matchQuotes(match int64, firstID int64, at time.Time) []OddsQuote {
	return []OddsQuote{
		quote(firstID, match, 11, RunnerHomeWin, "2.5", "2.52", at),
		quote(firstID+1, match, 12, RunnerAwayWin, "3", "3.05", at),
		quote(firstID+2, match, 13, RunnerDraw, "3.4", "3.5", at),
	}
}

type memOdds struct {
	quotes []OddsQuote
	err    error
}

func (m *memOdds) LatestQuotes(context.Context) ([]OddsQuote, error) {
	if m.err != nil {
		return nil, m.err
	}
	return append([]OddsQuote(nil), m.quotes...), nil
}

func (m *memOdds) LatestQuotesForMatch(_ context.Context, matchID int64) ([]OddsQuote, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []OddsQuote
	for _, q := range m.quotes {
		if q.MatchID == matchID {
			out = append(out, q)
		}
	}
	return out, nil
}

type memFixtures struct {
	fixtures []Fixture
	err      error
}

func (m *memFixtures) FinishedFixtures(context.Context) ([]Fixture, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []Fixture
	for _, f := range m.fixtures {
		if f.Status == FixtureFinished {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *memFixtures) GetFixture(_ context.Context, matchID int64) (Fixture, error) {
	for _, f := range m.fixtures {
		if f.MatchID == matchID {
			return f, nil
		}
	}
	return Fixture{}, ErrFixtureNotFound
}

// memBets é um livro em memória com as mesmas guardas de status do repo Postgres
type memBets struct {
	mu     sync.Mutex
	bets   map[int64]Bet
	nextID int64
	writes int

	settleErr error
}

func newMemBets() *memBets { return &memBets{bets: map[int64]Bet{}} }

func (m *memBets) InsertBet(_ context.Context, b Bet) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	b.ID = m.nextID
	m.bets[b.ID] = b
	m.writes++
	return b.ID, nil
}

func (m *memBets) GetBet(_ context.Context, bettorID, betID int64) (Bet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bets[betID]
	if !ok || b.BettorID != bettorID {
		return Bet{}, ErrInvalidBet
	}
	return b, nil
}

func (m *memBets) CancelBet(_ context.Context, bettorID, betID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bets[betID]
	if !ok || b.BettorID != bettorID || b.Status != StatusPlaced {
		return false, nil
	}
	b.Status = StatusCancelled
	m.bets[betID] = b
	m.writes++
	return true, nil
}

func (m *memBets) PlacedBets(_ context.Context, matchID int64) ([]Bet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Bet
	for _, b := range m.bets {
		if b.MatchID == matchID && b.Status == StatusPlaced {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memBets) SettleBets(_ context.Context, matchID int64, ss []Settlement) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settleErr != nil {
		return nil, m.settleErr
	}
	var ids []int64
	for _, s := range ss {
		b, ok := m.bets[s.BetID]
		if !ok || b.MatchID != matchID || b.Status != StatusPlaced {
			continue
		}
		outcome := string(s.RunnerOutcome)
		won := s.BetWon
		b.Status = StatusSettled
		b.RunnerOutcome = &outcome
		b.BetWon = &won
		b.ReturnedAmount = decimal.NewNullDecimal(s.ReturnedAmount)
		m.bets[b.ID] = b
		ids = append(ids, b.ID)
	}
	if len(ids) > 0 {
		m.writes++
	}
	return ids, nil
}

func (m *memBets) snapshot() map[int64]Bet {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]Bet, len(m.bets))
	for k, v := range m.bets {
		out[k] = v
	}
	return out
}

type heldLocker struct{}

func (heldLocker) Acquire(context.Context, string, time.Duration) (func(), error) {
	return nil, ErrLockHeld
}

type brokenLocker struct{}

func (brokenLocker) Acquire(context.Context, string, time.Duration) (func(), error) {
	return nil, errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
}

type countingLocker struct {
	mu    sync.Mutex
	keys  []string
	freed int
}

func (c *countingLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	c.mu.Lock()
	c.keys = append(c.keys, key)
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.freed++
		c.mu.Unlock()
	}, nil
}
