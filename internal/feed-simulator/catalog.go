package feedsim

import (
	"context"
	"database/sql"
	"strconv"

	ledgerrepo "github.com/radieske/epl-bet-ledger/internal/ledger/repo"
)

// ShortNames traduz o nome do calendário para o nome usado no feed
type ShortNames interface {
	ShortName(fullName string) string
}

// LoadCatalog monta o catálogo com as próximas partidas ainda não encerradas,
// de modo que o odds-processor consiga ligá-las às fixtures
func LoadCatalog(ctx context.Context, db *sql.DB, names ShortNames, limit int) ([]Match, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+ledgerrepo.FixtureColumns()+`
		FROM fixtures
		WHERE status IN ('SCHEDULED', 'TIMED') AND kickoff IS NOT NULL
		ORDER BY kickoff, match_id
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		f, err := ledgerrepo.ScanFixture(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, Match{
			EventID:   "SIM-" + strconv.FormatInt(f.MatchID, 10),
			HomeTeam:  names.ShortName(f.HomeTeam),
			AwayTeam:  names.ShortName(f.AwayTeam),
			MatchDate: *f.Kickoff,
		})
	}
	return out, rows.Err()
}
