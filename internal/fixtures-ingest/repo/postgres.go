package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/radieske/epl-bet-ledger/internal/ledger"
)

type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

type Team struct {
	ID        int64
	Name      string
	ShortName string
	TLA       string
	Crest     string
	Founded   *int
	Venue     string
}

func (p *Postgres) UpsertTeams(ctx context.Context, teams []Team) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO teams (team_id, name, short_name, tla, crest, founded, venue)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (team_id) DO UPDATE SET
		  name = EXCLUDED.name, short_name = EXCLUDED.short_name, tla = EXCLUDED.tla,
		  crest = EXCLUDED.crest, founded = EXCLUDED.founded, venue = EXCLUDED.venue`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range teams {
		if _, err := stmt.ExecContext(ctx, t.ID, t.Name, t.ShortName, t.TLA, t.Crest, t.Founded, t.Venue); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpsertFixture grava a fixture. Uma fixture FINISHED nunca volta para outro status
// nem tem o placar apagado. Devolve true quando a linha passou a FINISHED agora.
func (p *Postgres) UpsertFixture(ctx context.Context, f ledger.Fixture) (bool, error) {
	var prev sql.NullString
	var status string
	err := p.db.QueryRowContext(ctx, `
		WITH old AS (SELECT status FROM fixtures WHERE match_id = $1)
		INSERT INTO fixtures (match_id, matchday, kickoff, home_team, away_team, home_team_id, away_team_id,
		                      status, venue, home_score, away_score, season, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (match_id) DO UPDATE SET
		  matchday     = EXCLUDED.matchday,
		  kickoff      = EXCLUDED.kickoff,
		  home_team    = EXCLUDED.home_team,
		  away_team    = EXCLUDED.away_team,
		  home_team_id = EXCLUDED.home_team_id,
		  away_team_id = EXCLUDED.away_team_id,
		  venue        = EXCLUDED.venue,
		  season       = EXCLUDED.season,
		  status       = CASE WHEN fixtures.status = 'FINISHED' THEN fixtures.status ELSE EXCLUDED.status END,
		  home_score   = CASE WHEN fixtures.status = 'FINISHED' THEN COALESCE(EXCLUDED.home_score, fixtures.home_score) ELSE EXCLUDED.home_score END,
		  away_score   = CASE WHEN fixtures.status = 'FINISHED' THEN COALESCE(EXCLUDED.away_score, fixtures.away_score) ELSE EXCLUDED.away_score END,
		  updated_at   = EXCLUDED.updated_at
		RETURNING (SELECT status FROM old), fixtures.status`,
		f.MatchID, f.Matchday, f.Kickoff, f.HomeTeam, f.AwayTeam, f.HomeTeamID, f.AwayTeamID,
		string(f.Status), f.Venue, f.HomeScore, f.AwayScore, f.Season, time.Now().UTC(),
	).Scan(&prev, &status)
	if err != nil {
		return false, err
	}
	return status == string(ledger.FixtureFinished) && prev.String != string(ledger.FixtureFinished), nil
}
