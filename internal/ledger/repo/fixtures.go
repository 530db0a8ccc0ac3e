package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/radieske/epl-bet-ledger/internal/ledger"
)

const fixtureColumns = `match_id, matchday, kickoff, home_team, away_team,
	home_team_id, away_team_id, COALESCE(venue, ''), home_score, away_score,
	status, COALESCE(season, ''), updated_at`

type FixtureRepo struct{ db *sql.DB }

func NewFixtureRepo(db *sql.DB) *FixtureRepo { return &FixtureRepo{db: db} }

func (r *FixtureRepo) FinishedFixtures(ctx context.Context) ([]ledger.Fixture, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+fixtureColumns+`
		FROM fixtures
		WHERE status = 'FINISHED'
		ORDER BY kickoff, match_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Fixture
	for rows.Next() {
		f, err := ScanFixture(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *FixtureRepo) GetFixture(ctx context.Context, matchID int64) (ledger.Fixture, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+fixtureColumns+` FROM fixtures WHERE match_id = $1`, matchID)
	f, err := ScanFixture(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Fixture{}, fmt.Errorf("%w: %d", ledger.ErrFixtureNotFound, matchID)
	}
	return f, err
}

type scanner interface {
	Scan(dest ...any) error
}

// ScanFixture lê uma linha com as colunas de fixtureColumns
func ScanFixture(s scanner) (ledger.Fixture, error) {
	var (
		f                    ledger.Fixture
		matchday             sql.NullInt32
		kickoff              sql.NullTime
		homeID, awayID       sql.NullInt64
		homeScore, awayScore sql.NullInt32
		status               string
	)
	if err := s.Scan(
		&f.MatchID, &matchday, &kickoff, &f.HomeTeam, &f.AwayTeam,
		&homeID, &awayID, &f.Venue, &homeScore, &awayScore,
		&status, &f.Season, &f.UpdatedAt,
	); err != nil {
		return ledger.Fixture{}, err
	}
	f.Status = ledger.FixtureStatus(status)
	if matchday.Valid {
		md := int(matchday.Int32)
		f.Matchday = &md
	}
	if kickoff.Valid {
		k := kickoff.Time.UTC()
		f.Kickoff = &k
	}
	if homeID.Valid {
		f.HomeTeamID = &homeID.Int64
	}
	if awayID.Valid {
		f.AwayTeamID = &awayID.Int64
	}
	if homeScore.Valid {
		h := int(homeScore.Int32)
		f.HomeScore = &h
	}
	if awayScore.Valid {
		a := int(awayScore.Int32)
		f.AwayScore = &a
	}
	f.UpdatedAt = f.UpdatedAt.UTC()
	return f, nil
}

// FixtureColumns é a lista de colunas aceita por ScanFixture
func FixtureColumns() string { return fixtureColumns }
