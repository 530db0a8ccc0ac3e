package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/epl-bet-ledger/internal/odds-ingest/betfair"
	"github.com/radieske/epl-bet-ledger/pkg/contracts/events"
)

const (
	RunnerHome = "Home win"
	RunnerAway = "Away win"
	RunnerDraw = "Draw"

	SourceBetfair = "betfair"
)

var ErrCompetitionNotFound = errors.New("competition not found")

// Feed é o subconjunto da Betting API usado na coleta
type Feed interface {
	ListCompetitions(ctx context.Context) ([]betfair.CompetitionResult, error)
	ListEvents(ctx context.Context, competitionID string) ([]betfair.EventResult, error)
	MatchOddsCatalogue(ctx context.Context, eventID string) (betfair.MarketCatalogue, bool, error)
	MarketBook(ctx context.Context, marketID string) (betfair.MarketBook, bool, error)
}

type QuotePublisher interface {
	Publish(ctx context.Context, q events.OddsQuote) error
}

type CollectReport struct {
	Events    int
	Published int
	Skipped   int
	Failed    int
}

// Collector consulta o mercado MATCH_ODDS de cada partida da competição
// e publica um snapshot por partida; todos os snapshots de uma coleta têm o mesmo RequestTime
type Collector struct {
	Log         *zap.Logger
	Feed        Feed
	Publisher   QuotePublisher
	Competition string
	Now         func() time.Time

	OnCollected func(CollectReport) // métricas
	OnError     func(string)        // métricas por fase

	competitionID string
}

func (c *Collector) CollectOnce(ctx context.Context) (CollectReport, error) {
	var rep CollectReport

	compID, err := c.competitionIDFor(ctx)
	if err != nil {
		c.fail("competitions")
		return rep, err
	}

	evs, err := c.Feed.ListEvents(ctx, compID)
	if err != nil {
		c.fail("events")
		return rep, err
	}

	requestTime := c.now().UTC()
	for _, ev := range evs {
		home, away, ok := ParseMatchName(ev.Event.Name)
		if !ok {
			continue // mercados especiais ("Premier League 2025/26" etc.)
		}
		rep.Events++

		q, found, err := c.quoteFor(ctx, ev.Event, home, away, requestTime)
		if err != nil {
			c.Log.Warn("collect odds failed", zap.String("event_id", ev.Event.ID), zap.String("event", ev.Event.Name), zap.Error(err))
			c.fail("market")
			rep.Failed++
			continue
		}
		if !found {
			rep.Skipped++
			continue
		}
		if err := c.Publisher.Publish(ctx, q); err != nil {
			c.fail("publish")
			rep.Failed++
			continue
		}
		rep.Published++
	}

	c.Log.Info("odds collected",
		zap.Int("events", rep.Events),
		zap.Int("published", rep.Published),
		zap.Int("skipped", rep.Skipped),
		zap.Int("failed", rep.Failed),
		zap.Time("request_time", requestTime),
	)
	if c.OnCollected != nil {
		c.OnCollected(rep)
	}
	return rep, nil
}

// Run coleta na hora e depois a cada intervalo, até o ctx ser cancelado
func (c *Collector) Run(ctx context.Context, every time.Duration) error {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		if _, err := c.CollectOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.Log.Warn("odds collection failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (c *Collector) competitionIDFor(ctx context.Context) (string, error) {
	if c.competitionID != "" {
		return c.competitionID, nil
	}
	comps, err := c.Feed.ListCompetitions(ctx)
	if err != nil {
		return "", err
	}
	for _, cr := range comps {
		if strings.EqualFold(cr.Competition.Name, c.Competition) {
			c.competitionID = cr.Competition.ID
			c.Log.Info("competition resolved", zap.String("name", cr.Competition.Name), zap.String("id", cr.Competition.ID))
			return c.competitionID, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrCompetitionNotFound, c.Competition)
}

func (c *Collector) quoteFor(ctx context.Context, ev betfair.Event, home, away string, requestTime time.Time) (events.OddsQuote, bool, error) {
	cat, ok, err := c.Feed.MatchOddsCatalogue(ctx, ev.ID)
	if err != nil || !ok {
		return events.OddsQuote{}, false, err
	}
	book, ok, err := c.Feed.MarketBook(ctx, cat.MarketID)
	if err != nil || !ok {
		return events.OddsQuote{}, false, err
	}

	names := make(map[int64]string, len(cat.Runners))
	for _, r := range cat.Runners {
		names[r.SelectionID] = r.RunnerName
	}

	matchDate := ev.OpenDate
	if matchDate.IsZero() {
		matchDate = cat.Event.OpenDate
	}

	q := events.OddsQuote{
		EventID:     ev.ID,
		MarketID:    cat.MarketID,
		HomeTeam:    home,
		AwayTeam:    away,
		MatchDate:   matchDate.UTC(),
		RequestTime: requestTime,
		Source:      SourceBetfair,
		Runners:     make([]events.Runner, 0, len(book.Runners)),
	}
	for _, r := range book.Runners {
		name := names[r.SelectionID]
		out := events.Runner{
			SelectionID:     r.SelectionID,
			RunnerName:      name,
			RunnerType:      RunnerType(name, home, away),
			LastPriceTraded: r.LastPriceTraded,
			TotalMatched:    r.TotalMatched,
			Status:          r.Status,
		}
		if b := r.BestBack(); b != nil {
			out.BestBackPrice, out.BestBackSize = ptr(b.Price), ptr(b.Size)
		}
		if l := r.BestLay(); l != nil {
			out.BestLayPrice, out.BestLaySize = ptr(l.Price), ptr(l.Size)
		}
		q.Runners = append(q.Runners, out)
	}
	return q, true, nil
}

// ParseMatchName separa "Casa v Fora"; false quando o nome não é de uma partida
func ParseMatchName(name string) (home, away string, ok bool) {
	home, away, ok = strings.Cut(name, " v ")
	if !ok {
		return "", "", false
	}
	home, away = strings.TrimSpace(home), strings.TrimSpace(away)
	if home == "" || away == "" {
		return "", "", false
	}
	return home, away, true
}

// RunnerType classifica a seleção pelo nome; o que não é mandante nem visitante é empate
func RunnerType(runnerName, home, away string) string {
	switch runnerName {
	case home:
		return RunnerHome
	case away:
		return RunnerAway
	default:
		return RunnerDraw
	}
}

func (c *Collector) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Collector) fail(stage string) {
	if c.OnError != nil {
		c.OnError(stage)
	}
}

func ptr(v float64) *float64 { return &v }
