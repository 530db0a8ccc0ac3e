package service

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/epl-bet-ledger/internal/fixtures-ingest/footballdata"
	"github.com/radieske/epl-bet-ledger/internal/fixtures-ingest/repo"
	"github.com/radieske/epl-bet-ledger/internal/ledger"
	"github.com/radieske/epl-bet-ledger/internal/shared/kafka"
	"github.com/radieske/epl-bet-ledger/pkg/contracts/events"
)

type Source interface {
	Matches(ctx context.Context, competition string) ([]footballdata.Match, error)
	Teams(ctx context.Context, competition string) ([]footballdata.Team, error)
}

type Store interface {
	UpsertTeams(ctx context.Context, teams []repo.Team) error
	UpsertFixture(ctx context.Context, f ledger.Fixture) (bool, error)
}

type ResultPublisher interface {
	PublishResult(ctx context.Context, e events.FixtureResult) error
}

type SyncReport struct {
	Teams       int
	Fixtures    int
	NewFinished int
}

// Syncer copia calendário, times e placares do football-data para o Postgres
// e avisa o settlement quando uma partida termina
type Syncer struct {
	Log         *zap.Logger
	Source      Source
	Store       Store
	Publisher   ResultPublisher
	Competition string
	Season      string

	OnSynced func(SyncReport) // métricas
	OnError  func(string)     // métricas por fase
}

func (s *Syncer) SyncOnce(ctx context.Context) (SyncReport, error) {
	var (
		matches []footballdata.Match
		teams   []footballdata.Team
	)

	// as duas chamadas são independentes
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		matches, err = s.Source.Matches(gctx, s.Competition)
		return err
	})
	g.Go(func() error {
		var err error
		teams, err = s.Source.Teams(gctx, s.Competition)
		return err
	})
	if err := g.Wait(); err != nil {
		s.fail("fetch")
		return SyncReport{}, err
	}

	var rep SyncReport
	rows := make([]repo.Team, 0, len(teams))
	for _, t := range teams {
		rows = append(rows, repo.Team{ID: t.ID, Name: t.Name, ShortName: t.ShortName, TLA: t.TLA, Crest: t.Crest, Founded: t.Founded, Venue: t.Venue})
	}
	if err := s.Store.UpsertTeams(ctx, rows); err != nil {
		s.fail("db_teams")
		return rep, err
	}
	rep.Teams = len(rows)

	for _, m := range matches {
		f := ToFixture(m, s.Season)
		finished, err := s.Store.UpsertFixture(ctx, f)
		if err != nil {
			s.Log.Warn("fixture upsert failed", zap.Int64("match_id", m.ID), zap.Error(err))
			s.fail("db_fixture")
			continue
		}
		rep.Fixtures++
		if !finished {
			continue
		}
		rep.NewFinished++

		if s.Publisher == nil {
			continue
		}
		if err := s.Publisher.PublishResult(ctx, events.FixtureResult{
			MatchID:   f.MatchID,
			HomeTeam:  f.HomeTeam,
			AwayTeam:  f.AwayTeam,
			HomeScore: f.HomeScore,
			AwayScore: f.AwayScore,
			Status:    string(f.Status),
			Ts:        time.Now().UTC(),
		}); err != nil {
			// a varredura do settlement cobre resultados não publicados
			s.Log.Warn("publish fixture_result failed", zap.Int64("match_id", f.MatchID), zap.Error(err))
			s.fail("publish")
		}
	}

	s.Log.Info("fixtures synced",
		zap.Int("teams", rep.Teams),
		zap.Int("fixtures", rep.Fixtures),
		zap.Int("new_finished", rep.NewFinished),
	)
	if s.OnSynced != nil {
		s.OnSynced(rep)
	}
	return rep, nil
}

// Run sincroniza na hora e depois a cada intervalo, até o ctx ser cancelado
func (s *Syncer) Run(ctx context.Context, every time.Duration) error {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		if _, err := s.SyncOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.Log.Warn("fixtures sync failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// ToFixture converte a partida da API no registro do calendário (placar de tempo integral)
func ToFixture(m footballdata.Match, season string) ledger.Fixture {
	f := ledger.Fixture{
		MatchID:   m.ID,
		Matchday:  m.Matchday,
		HomeTeam:  m.HomeTeam.Name,
		AwayTeam:  m.AwayTeam.Name,
		Venue:     m.Venue,
		HomeScore: m.Score.FullTime.Home,
		AwayScore: m.Score.FullTime.Away,
		Status:    ledger.FixtureStatus(m.Status),
		Season:    season,
	}
	if !m.UTCDate.IsZero() {
		k := m.UTCDate.UTC()
		f.Kickoff = &k
	}
	if m.HomeTeam.ID != 0 {
		id := m.HomeTeam.ID
		f.HomeTeamID = &id
	}
	if m.AwayTeam.ID != 0 {
		id := m.AwayTeam.ID
		f.AwayTeamID = &id
	}
	return f
}

func (s *Syncer) fail(stage string) {
	if s.OnError != nil {
		s.OnError(stage)
	}
}

// KafkaPublisher publica fixture_results com o match_id como chave
type KafkaPublisher struct {
	Writer *kafka.Writer
}

func (p *KafkaPublisher) PublishResult(ctx context.Context, e events.FixtureResult) error {
	return kafka.WriteJSON(ctx, p.Writer, strconv.FormatInt(e.MatchID, 10), e)
}
