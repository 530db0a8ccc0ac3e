// Package repo implementa os stores do livro de apostas sobre Postgres (lib/pq).
package repo

import (
	"context"
	"database/sql"

	"github.com/radieske/epl-bet-ledger/internal/ledger"
)

const oddsColumns = `id, match_id, selection_id, runner_name, runner_type,
	best_back_price, best_back_size, best_lay_price, best_lay_size,
	last_price_traded, total_matched, status, request_time`

// OddsRepo lê o histórico de cotações (tabela odds)
type OddsRepo struct{ db *sql.DB }

func NewOddsRepo(db *sql.DB) *OddsRepo { return &OddsRepo{db: db} }

// LatestQuotes devolve uma linha por (match_id, selection_id): maior request_time, depois maior id
func (r *OddsRepo) LatestQuotes(ctx context.Context) ([]ledger.OddsQuote, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT ON (match_id, selection_id) `+oddsColumns+`
		FROM odds
		ORDER BY match_id, selection_id, request_time DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	return scanQuotes(rows)
}

func (r *OddsRepo) LatestQuotesForMatch(ctx context.Context, matchID int64) ([]ledger.OddsQuote, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT ON (selection_id) `+oddsColumns+`
		FROM odds
		WHERE match_id = $1
		ORDER BY selection_id, request_time DESC, id DESC`, matchID)
	if err != nil {
		return nil, err
	}
	return scanQuotes(rows)
}

func scanQuotes(rows *sql.Rows) ([]ledger.OddsQuote, error) {
	defer rows.Close()

	var out []ledger.OddsQuote
	for rows.Next() {
		var q ledger.OddsQuote
		var rt string
		if err := rows.Scan(
			&q.ID, &q.MatchID, &q.SelectionID, &q.RunnerName, &rt,
			&q.BestBackPrice, &q.BestBackSize, &q.BestLayPrice, &q.BestLaySize,
			&q.LastPriceTraded, &q.TotalMatched, &q.Status, &q.RequestTime,
		); err != nil {
			return nil, err
		}
		q.RunnerType = ledger.RunnerType(rt)
		out = append(out, q)
	}
	return out, rows.Err()
}

// QuoteHistory devolve todas as cotações da partida em ordem cronológica
func (r *OddsRepo) QuoteHistory(ctx context.Context, matchID int64) ([]ledger.OddsQuote, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+oddsColumns+`
		FROM odds
		WHERE match_id = $1
		ORDER BY request_time, selection_id, id`, matchID)
	if err != nil {
		return nil, err
	}
	return scanQuotes(rows)
}
