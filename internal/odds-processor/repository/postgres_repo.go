package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/epl-bet-ledger/internal/ledger"
	"github.com/radieske/epl-bet-ledger/pkg/contracts/events"
)

// PostgresRepo grava os eventos do feed (matches) e o histórico de cotações (odds)
type PostgresRepo struct {
	DB *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{DB: db}
}

// FindFixture procura a fixture com os mesmos times no dia (UTC) do kickoff
func (r *PostgresRepo) FindFixture(ctx context.Context, home, away string, kickoff time.Time) (int64, bool, error) {
	day := kickoff.UTC().Truncate(24 * time.Hour)
	const q = `
		SELECT match_id
		FROM fixtures
		WHERE home_team = $1 AND away_team = $2
		  AND kickoff >= $3 AND kickoff < $4
		ORDER BY kickoff
		LIMIT 1
	`
	var id int64
	err := r.DB.QueryRowContext(ctx, q, home, away, day, day.Add(24*time.Hour)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// UpsertMatch registra o evento do feed; fixtureID nil mantém o vínculo anterior
func (r *PostgresRepo) UpsertMatch(ctx context.Context, e events.OddsQuote, fixtureID *int64) error {
	const q = `
		INSERT INTO matches
		  (event_id, market_id, fixture_id, home_team, away_team, match_date)
		VALUES
		  ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (event_id) DO UPDATE SET
		  market_id  = EXCLUDED.market_id,
		  fixture_id = COALESCE(EXCLUDED.fixture_id, matches.fixture_id),
		  home_team  = EXCLUDED.home_team,
		  away_team  = EXCLUDED.away_team,
		  match_date = EXCLUDED.match_date
	`
	_, err := r.DB.ExecContext(ctx, q,
		e.EventID, e.MarketID, fixtureID, e.HomeTeam, e.AwayTeam, e.MatchDate,
	)
	return err
}

// InsertQuotes acrescenta uma linha por seleção ao histórico, numa transação,
// e devolve as cotações com os ids gerados
func (r *PostgresRepo) InsertQuotes(ctx context.Context, matchID int64, e events.OddsQuote) ([]ledger.OddsQuote, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO odds
		  (match_id, selection_id, runner_name, runner_type,
		   best_back_price, best_back_size, best_lay_price, best_lay_size,
		   last_price_traded, total_matched, status, request_time)
		VALUES
		  ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING id
	`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	out := make([]ledger.OddsQuote, 0, len(e.Runners))
	for _, run := range e.Runners {
		q := ToQuote(matchID, e.RequestTime, run)
		if err := stmt.QueryRowContext(ctx,
			q.MatchID, q.SelectionID, q.RunnerName, string(q.RunnerType),
			q.BestBackPrice, q.BestBackSize, q.BestLayPrice, q.BestLaySize,
			q.LastPriceTraded, q.TotalMatched, q.Status, q.RequestTime,
		).Scan(&q.ID); err != nil {
			return nil, fmt.Errorf("insert odds selection %d: %w", run.SelectionID, err)
		}
		out = append(out, q)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

// ToQuote converte o runner do evento na cotação do livro (sem id)
func ToQuote(matchID int64, requestTime time.Time, r events.Runner) ledger.OddsQuote {
	return ledger.OddsQuote{
		MatchID:         matchID,
		SelectionID:     r.SelectionID,
		RunnerName:      r.RunnerName,
		RunnerType:      ledger.RunnerType(r.RunnerType),
		BestBackPrice:   nullDecimal(r.BestBackPrice),
		BestBackSize:    nullDecimal(r.BestBackSize),
		BestLayPrice:    nullDecimal(r.BestLayPrice),
		BestLaySize:     nullDecimal(r.BestLaySize),
		LastPriceTraded: nullDecimal(r.LastPriceTraded),
		TotalMatched:    nullDecimal(r.TotalMatched),
		Status:          r.Status,
		RequestTime:     requestTime.UTC(),
	}
}

func nullDecimal(v *float64) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(*v))
}
