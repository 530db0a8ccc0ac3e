package ledger

import (
	"context"
	"time"
)

// OddsStore entrega as linhas candidatas a "odds atuais". Pode devolver mais de
// uma linha por chave; BuildLatestOdds resolve qual vence.
type OddsStore interface {
	LatestQuotes(ctx context.Context) ([]OddsQuote, error)
	LatestQuotesForMatch(ctx context.Context, matchID int64) ([]OddsQuote, error)
}

type FixtureStore interface {
	FinishedFixtures(ctx context.Context) ([]Fixture, error)
	GetFixture(ctx context.Context, matchID int64) (Fixture, error)
}

// BetStore é o livro de apostas.
// CancelBet e SettleBets só alteram linhas com status PLACED.
type BetStore interface {
	InsertBet(ctx context.Context, b Bet) (int64, error)
	// GetBet devolve ErrInvalidBet se a aposta não existe para o apostador
	GetBet(ctx context.Context, bettorID, betID int64) (Bet, error)
	// CancelBet devolve true quando a linha passou de PLACED para CANCELLED
	CancelBet(ctx context.Context, bettorID, betID int64) (bool, error)
	PlacedBets(ctx context.Context, matchID int64) ([]Bet, error)
	// SettleBets grava todas as liquidações da partida numa única transação e
	// devolve os ids efetivamente alterados
	SettleBets(ctx context.Context, matchID int64, settlements []Settlement) ([]int64, error)
}

// Locker serializa a liquidação de uma partida entre processos.
// Acquire devolve ErrLockHeld quando a trava está com outro dono; qualquer
// outro erro é falha de infraestrutura.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}
