package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/radieske/epl-bet-ledger/internal/bet-audit/consumer"
)

// PostgresRepo grava o histórico de transições das apostas em bet_transactions
type PostgresRepo struct {
	DB *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{DB: db} }

// Record insere a transição; (bet_id, new_status) é único, então reentregas
// do Kafka viram no-op e o retorno indica se a linha foi criada
func (r *PostgresRepo) Record(ctx context.Context, t consumer.Transition) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO bet_transactions (bet_id, old_status, new_status, reason, created_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5)
		ON CONFLICT (bet_id, new_status) DO NOTHING`,
		t.BetID, t.OldStatus, t.NewStatus, t.Reason, t.At,
	)
	if err != nil {
		return false, fmt.Errorf("insert bet transaction %d: %w", t.BetID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
