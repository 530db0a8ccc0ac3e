package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/radieske/epl-bet-ledger/internal/ledger"
	ledgerrepo "github.com/radieske/epl-bet-ledger/internal/ledger/repo"
	"github.com/radieske/epl-bet-ledger/internal/odds-service/dto"
)

// ReadRepo atende as consultas de calendário e times da API de leitura
type ReadRepo struct {
	DB *sql.DB
}

func (r *ReadRepo) Matchdays(ctx context.Context) ([]int, error) {
	const q = `
		SELECT DISTINCT matchday
		FROM fixtures
		WHERE matchday IS NOT NULL
		ORDER BY matchday;
	`
	rows, err := r.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []int{}
	for rows.Next() {
		var md int
		if err := rows.Scan(&md); err != nil {
			return nil, err
		}
		out = append(out, md)
	}
	return out, rows.Err()
}

func (r *ReadRepo) FixturesByMatchday(ctx context.Context, matchday int) ([]ledger.Fixture, error) {
	return r.fixtures(ctx, `WHERE matchday = $1`, matchday)
}

func (r *ReadRepo) FixturesByTeam(ctx context.Context, teamID int64) ([]ledger.Fixture, error) {
	return r.fixtures(ctx, `WHERE home_team_id = $1 OR away_team_id = $1`, teamID)
}

func (r *ReadRepo) Fixture(ctx context.Context, matchID int64) (ledger.Fixture, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+ledgerrepo.FixtureColumns()+` FROM fixtures WHERE match_id = $1`, matchID)
	f, err := ledgerrepo.ScanFixture(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Fixture{}, fmt.Errorf("%w: %d", ledger.ErrFixtureNotFound, matchID)
	}
	return f, err
}

func (r *ReadRepo) Teams(ctx context.Context) ([]dto.Team, error) {
	const q = `
		SELECT team_id, name, COALESCE(short_name, ''), COALESCE(tla, ''),
		       COALESCE(crest, ''), founded, COALESCE(venue, '')
		FROM teams
		ORDER BY name;
	`
	rows, err := r.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []dto.Team{}
	for rows.Next() {
		var (
			t       dto.Team
			founded sql.NullInt32
		)
		if err := rows.Scan(&t.TeamID, &t.Name, &t.ShortName, &t.TLA, &t.Crest, &founded, &t.Venue); err != nil {
			return nil, err
		}
		if founded.Valid {
			y := int(founded.Int32)
			t.Founded = &y
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *ReadRepo) fixtures(ctx context.Context, where string, arg any) ([]ledger.Fixture, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+ledgerrepo.FixtureColumns()+` FROM fixtures `+where+` ORDER BY kickoff, match_id`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ledger.Fixture{}
	for rows.Next() {
		f, err := ledgerrepo.ScanFixture(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
