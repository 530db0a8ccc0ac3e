package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/epl-bet-ledger/internal/fixtures-ingest/footballdata"
	"github.com/radieske/epl-bet-ledger/internal/fixtures-ingest/repo"
	"github.com/radieske/epl-bet-ledger/internal/ledger"
	"github.com/radieske/epl-bet-ledger/pkg/contracts/events"
)

func intp(i int) *int { return &i }

type fakeSource struct {
	matches []footballdata.Match
	err     error
}

func (f fakeSource) Matches(context.Context, string) ([]footballdata.Match, error) {
	return f.matches, f.err
}

func (f fakeSource) Teams(context.Context, string) ([]footballdata.Team, error) {
	return []footballdata.Team{{ID: 57, Name: "Arsenal FC"}, {ID: 61, Name: "Chelsea FC"}}, nil
}

// memStore imita a regra de status monotônico do Postgres
type memStore struct {
	teams    int
	fixtures map[int64]ledger.Fixture
}

func (m *memStore) UpsertTeams(_ context.Context, teams []repo.Team) error {
	m.teams = len(teams)
	return nil
}

func (m *memStore) UpsertFixture(_ context.Context, f ledger.Fixture) (bool, error) {
	prev, ok := m.fixtures[f.MatchID]
	if ok && prev.Status == ledger.FixtureFinished {
		return false, nil
	}
	m.fixtures[f.MatchID] = f
	return f.Status == ledger.FixtureFinished, nil
}

type memPublisher struct{ got []events.FixtureResult }

func (p *memPublisher) PublishResult(_ context.Context, e events.FixtureResult) error {
	p.got = append(p.got, e)
	return nil
}

func match(id int64, status string, home, away *int) footballdata.Match {
	return footballdata.Match{
		ID: id, Status: status, Matchday: intp(1), UTCDate: time.Date(2025, 8, 16, 14, 0, 0, 0, time.UTC),
		HomeTeam: footballdata.TeamRef{ID: 57, Name: "Arsenal FC"},
		AwayTeam: footballdata.TeamRef{ID: 61, Name: "Chelsea FC"},
		Score:    footballdata.Score{FullTime: footballdata.ScorePair{Home: home, Away: away}},
	}
}

func TestSyncOnce_PublishesOnlyNewlyFinished(t *testing.T) {
	store := &memStore{fixtures: map[int64]ledger.Fixture{}}
	pub := &memPublisher{}
	src := fakeSource{matches: []footballdata.Match{
		match(1, "FINISHED", intp(2), intp(1)),
		match(2, "TIMED", nil, nil),
	}}
	s := &Syncer{Log: zap.NewNop(), Source: src, Store: store, Publisher: pub, Competition: "PL", Season: "2025-26"}

	rep, err := s.SyncOnce(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if rep.Teams != 2 || rep.Fixtures != 2 || rep.NewFinished != 1 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if len(pub.got) != 1 || pub.got[0].MatchID != 1 || *pub.got[0].HomeScore != 2 {
		t.Fatalf("unexpected events: %+v", pub.got)
	}
	if store.fixtures[1].Season != "2025-26" || *store.fixtures[1].HomeTeamID != 57 {
		t.Fatalf("fixture not mapped: %+v", store.fixtures[1])
	}

	// segunda passada: nada novo para publicar
	if _, err := s.SyncOnce(context.Background()); err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if len(pub.got) != 1 {
		t.Fatalf("finished fixture published twice")
	}
}

func TestSyncOnce_FetchError(t *testing.T) {
	stages := []string{}
	s := &Syncer{
		Log:     zap.NewNop(),
		Source:  fakeSource{err: footballdata.ErrUnauthorized},
		Store:   &memStore{fixtures: map[int64]ledger.Fixture{}},
		OnError: func(st string) { stages = append(stages, st) },
	}
	if _, err := s.SyncOnce(context.Background()); !errors.Is(err, footballdata.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if len(stages) != 1 || stages[0] != "fetch" {
		t.Fatalf("expected fetch error stage, got %v", stages)
	}
}

func TestToFixture(t *testing.T) {
	f := ToFixture(match(9, "IN_PLAY", intp(0), intp(0)), "2025-26")
	if f.Status != ledger.FixtureInPlay || f.Kickoff == nil || f.Kickoff.Hour() != 14 || *f.AwayTeamID != 61 {
		t.Fatalf("unexpected fixture: %+v", f)
	}

	empty := ToFixture(footballdata.Match{ID: 1, Status: "SCHEDULED"}, "")
	if empty.Kickoff != nil || empty.HomeTeamID != nil {
		t.Fatalf("missing fields must stay nil: %+v", empty)
	}
}
