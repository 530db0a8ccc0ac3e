package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/radieske/epl-bet-ledger/internal/ledger"
)

const betColumns = `id, bettor_id, match_id, selection_id, runner_name, runner_type,
	back_or_lay, bet_amount, selection_odds, created_at, status,
	runner_outcome, bet_won, returned_amount`

// BetRepo é o livro de apostas em Postgres
type BetRepo struct{ db *sql.DB }

func NewBetRepo(db *sql.DB) *BetRepo { return &BetRepo{db: db} }

// InsertBet grava uma aposta PLACED e devolve o id gerado
func (r *BetRepo) InsertBet(ctx context.Context, b ledger.Bet) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO bets (bettor_id, match_id, selection_id, runner_name, runner_type,
		                  back_or_lay, bet_amount, selection_odds, created_at, updated_at, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9,'PLACED')
		RETURNING id`,
		b.BettorID, b.MatchID, b.SelectionID, b.RunnerName, string(b.RunnerType),
		string(b.BackOrLay), b.BetAmount, b.SelectionOdds, b.CreatedAt,
	).Scan(&id)
	return id, err
}

func (r *BetRepo) GetBet(ctx context.Context, bettorID, betID int64) (ledger.Bet, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+betColumns+` FROM bets WHERE id = $1 AND bettor_id = $2`, betID, bettorID)
	b, err := scanBet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Bet{}, ledger.ErrInvalidBet
	}
	return b, err
}

// CancelBet só altera apostas PLACED; devolve false se nada mudou
func (r *BetRepo) CancelBet(ctx context.Context, bettorID, betID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bets SET status = 'CANCELLED', updated_at = NOW()
		WHERE id = $1 AND bettor_id = $2 AND status = 'PLACED'`, betID, bettorID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *BetRepo) PlacedBets(ctx context.Context, matchID int64) ([]ledger.Bet, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+betColumns+` FROM bets WHERE match_id = $1 AND status = 'PLACED' ORDER BY id`, matchID)
	if err != nil {
		return nil, err
	}
	return scanBets(rows)
}

// SettleBets aplica todas as liquidações da partida num único UPDATE dentro de
// uma transação. O advisory lock por match_id serializa execuções concorrentes
// e o filtro status = 'PLACED' torna a operação idempotente.
func (r *BetRepo) SettleBets(ctx context.Context, matchID int64, settlements []ledger.Settlement) ([]int64, error) {
	if len(settlements) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(settlements))
	outcomes := make([]string, len(settlements))
	won := make([]bool, len(settlements))
	returned := make([]string, len(settlements))
	for i, s := range settlements {
		ids[i] = s.BetID
		outcomes[i] = string(s.RunnerOutcome)
		won[i] = s.BetWon
		returned[i] = s.ReturnedAmount.String()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, matchID); err != nil {
		return nil, fmt.Errorf("advisory lock: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `
		UPDATE bets AS b
		SET status = 'SETTLED',
		    runner_outcome = s.outcome,
		    bet_won = s.won,
		    returned_amount = s.returned::numeric,
		    updated_at = NOW()
		FROM unnest($2::bigint[], $3::text[], $4::boolean[], $5::text[]) AS s(id, outcome, won, returned)
		WHERE b.id = s.id AND b.match_id = $1 AND b.status = 'PLACED'
		RETURNING b.id`,
		matchID, pq.Array(ids), pq.Array(outcomes), pq.Array(won), pq.Array(returned),
	)
	if err != nil {
		return nil, err
	}

	var updated []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		updated = append(updated, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return updated, nil
}

// ListBets devolve as apostas do apostador; status vazio traz todas
func (r *BetRepo) ListBets(ctx context.Context, bettorID int64, status ledger.BetStatus) ([]ledger.Bet, error) {
	q := `SELECT ` + betColumns + ` FROM bets WHERE bettor_id = $1`
	args := []any{bettorID}
	if status != "" {
		q += ` AND status = $2`
		args = append(args, string(status))
	}
	q += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanBets(rows)
}

// Bettors lista os apostadores que têm alguma aposta
func (r *BetRepo) Bettors(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT bettor_id FROM bets ORDER BY bettor_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func scanBets(rows *sql.Rows) ([]ledger.Bet, error) {
	defer rows.Close()

	var out []ledger.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBet(s scanner) (ledger.Bet, error) {
	var (
		b            ledger.Bet
		rt, side, st string
		outcome      sql.NullString
		won          sql.NullBool
	)
	if err := s.Scan(
		&b.ID, &b.BettorID, &b.MatchID, &b.SelectionID, &b.RunnerName, &rt,
		&side, &b.BetAmount, &b.SelectionOdds, &b.CreatedAt, &st,
		&outcome, &won, &b.ReturnedAmount,
	); err != nil {
		return ledger.Bet{}, err
	}
	b.RunnerType = ledger.RunnerType(rt)
	b.BackOrLay = ledger.Side(side)
	b.Status = ledger.BetStatus(st)
	if outcome.Valid {
		b.RunnerOutcome = &outcome.String
	}
	if won.Valid {
		b.BetWon = &won.Bool
	}
	b.CreatedAt = b.CreatedAt.UTC()
	return b, nil
}
