package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/epl-bet-ledger/internal/ledger"
	"github.com/radieske/epl-bet-ledger/pkg/contracts/events"
)

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Resolver interface {
	ResolveFixture(ctx context.Context, f ledger.Fixture) (ledger.MatchReport, error)
}

// Consumer lê fixture_results e liquida a partida assim que ela termina.
// O commit só acontece depois da liquidação; reentregas são seguras porque
// a liquidação é idempotente.
type Consumer struct {
	Log      *zap.Logger
	Reader   MessageReader
	Fixtures ledger.FixtureStore
	Engine   Resolver
	DLQ      MessageWriter // mensagens que não decodificam

	OnConsumed func()       // métricas
	OnError    func(string) // métricas por fase
}

// Run inicia o loop principal de consumo
func (c *Consumer) Run(ctx context.Context) error {
	for {
		m, err := c.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.Log.Warn("kafka fetch failed", zap.Error(err))
			c.fail("read")
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if c.OnConsumed != nil {
			c.OnConsumed()
		}

		if err := c.handle(ctx, m); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// sem commit: a mensagem volta na próxima leitura do grupo
			c.Log.Error("fixture result not settled", zap.Int64("offset", m.Offset), zap.Error(err))
			c.fail("settle")
			time.Sleep(time.Second)
			continue
		}

		if err := c.Reader.CommitMessages(ctx, m); err != nil {
			c.Log.Warn("kafka commit failed", zap.Error(err))
			c.fail("commit")
		}
	}
}

// handle devolve erro apenas quando vale a pena tentar de novo
func (c *Consumer) handle(ctx context.Context, m kafka.Message) error {
	var ev events.FixtureResult
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		c.Log.Warn("invalid fixture_result message", zap.Error(err))
		c.fail("decode")
		c.deadLetter(ctx, m, err)
		return nil
	}
	if ev.Status != string(ledger.FixtureFinished) {
		return nil
	}

	// o banco é a fonte do placar; o evento só avisa que a partida acabou
	f, err := c.Fixtures.GetFixture(ctx, ev.MatchID)
	if errors.Is(err, ledger.ErrFixtureNotFound) {
		c.Log.Warn("fixture_result for unknown fixture", zap.Int64("match_id", ev.MatchID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load fixture %d: %w", ev.MatchID, err)
	}

	rep, err := c.Engine.ResolveFixture(ctx, f)
	switch {
	case err == nil:
		c.Log.Info("fixture settled",
			zap.Int64("match_id", rep.MatchID),
			zap.String("runner_outcome", string(rep.RunnerOutcome)),
			zap.Int("settled", rep.Settled),
		)
		return nil
	case errors.Is(err, ledger.ErrDataUnavailable),
		errors.Is(err, ledger.ErrMissingOddsForOutcome),
		errors.Is(err, ledger.ErrMissingScore):
		// a varredura periódica tenta de novo quando os dados chegarem
		c.Log.Info("fixture skipped", zap.Int64("match_id", ev.MatchID), zap.Error(err))
		return nil
	case errors.Is(err, ledger.ErrSettlementInProgress):
		c.Log.Info("fixture being settled elsewhere", zap.Int64("match_id", ev.MatchID))
		return nil
	}
	return err
}

func (c *Consumer) deadLetter(ctx context.Context, m kafka.Message, cause error) {
	if c.DLQ == nil {
		return
	}
	dl := kafka.Message{
		Key:     m.Key,
		Value:   m.Value,
		Headers: append(m.Headers, kafka.Header{Key: "error", Value: []byte(cause.Error())}),
	}
	if err := c.DLQ.WriteMessages(ctx, dl); err != nil {
		c.Log.Warn("dlq write failed", zap.Error(err))
		c.fail("dlq")
	}
}

func (c *Consumer) fail(stage string) {
	if c.OnError != nil {
		c.OnError(stage)
	}
}
