package consumer

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

// Kind identifica qual evento do ciclo de vida o tópico carrega
type Kind string

const (
	KindPlaced    Kind = "bet_placed"
	KindCancelled Kind = "bet_cancelled"
	KindSettled   Kind = "bet_settled"
)

var ErrIncompleteEvent = errors.New("bet event without bet_id")

// Transition é uma linha de bet_transactions
type Transition struct {
	BetID     int64
	OldStatus string // vazio na criação da aposta
	NewStatus string
	Reason    string
	At        time.Time
}

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Recorder interface {
	Record(ctx context.Context, t Transition) (bool, error)
}

// Consumer transforma um tópico de eventos de aposta em transições de status
type Consumer struct {
	Log    *zap.Logger
	Kind   Kind
	Reader MessageReader
	Store  Recorder

	OnRecorded  func(Kind)         // métricas
	OnDuplicate func(Kind)         // reentrega já gravada
	OnError     func(Kind, string) // métricas por fase
}

// Run consome até o contexto ser cancelado; commit só depois da gravação
func (c *Consumer) Run(ctx context.Context) error {
	for {
		m, err := c.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.Log.Warn("kafka fetch failed", zap.String("kind", string(c.Kind)), zap.Error(err))
			c.fail("read")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		if err := c.Handle(ctx, m); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.Log.Error("bet transaction not recorded", zap.String("kind", string(c.Kind)), zap.Int64("offset", m.Offset), zap.Error(err))
			c.fail("persist")
			time.Sleep(time.Second)
			continue
		}

		if err := c.Reader.CommitMessages(ctx, m); err != nil {
			c.Log.Warn("kafka commit failed", zap.Error(err))
			c.fail("commit")
		}
	}
}

// Handle devolve erro apenas quando vale a pena tentar de novo; mensagens
// inválidas são registradas e descartadas
func (c *Consumer) Handle(ctx context.Context, m kafka.Message) error {
	t, err := Decode(c.Kind, m.Value, m.Time)
	if err != nil {
		c.Log.Warn("invalid bet event", zap.String("kind", string(c.Kind)), zap.Error(err))
		c.fail("decode")
		return nil
	}

	created, err := c.Store.Record(ctx, t)
	if err != nil {
		return err
	}
	if !created {
		if c.OnDuplicate != nil {
			c.OnDuplicate(c.Kind)
		}
		return nil
	}
	if c.OnRecorded != nil {
		c.OnRecorded(c.Kind)
	}
	c.Log.Debug("bet transaction recorded",
		zap.Int64("bet_id", t.BetID),
		zap.String("from", t.OldStatus),
		zap.String("to", t.NewStatus),
	)
	return nil
}

// Decode converte o payload do evento na transição correspondente.
// fallback é usado quando o evento não traz horário próprio.
func Decode(kind Kind, value []byte, fallback time.Time) (Transition, error) {
	switch kind {
	case KindPlaced:
		var e events.BetPlaced
		if err := json.Unmarshal(value, &e); err != nil {
			return Transition{}, err
		}
		at := fallback
		if e.TsUnixMs > 0 {
			at = time.UnixMilli(e.TsUnixMs)
		}
		return check(Transition{
			BetID:     e.BetID,
			NewStatus: string(ledger.StatusPlaced),
			Reason:    fmt.Sprintf("%s %s @ %s stake %s", e.BackOrLay, e.RunnerName, e.SelectionOdds, e.BetAmount),
			At:        at,
		})

	case KindCancelled:
		var e events.BetCancelled
		if err := json.Unmarshal(value, &e); err != nil {
			return Transition{}, err
		}
		return check(Transition{
			BetID:     e.BetID,
			OldStatus: string(ledger.StatusPlaced),
			NewStatus: string(ledger.StatusCancelled),
			Reason:    fmt.Sprintf("cancelled by bettor %d", e.BettorID),
			At:        orFallback(e.Ts, fallback),
		})

	case KindSettled:
		var e events.BetSettled
		if err := json.Unmarshal(value, &e); err != nil {
			return Transition{}, err
		}
		result := "lost"
		if e.BetWon {
			result = "won"
		}
		return check(Transition{
			BetID:     e.BetID,
			OldStatus: string(ledger.StatusPlaced),
			NewStatus: string(ledger.StatusSettled),
			Reason:    fmt.Sprintf("%s (%s) returned %s", result, e.RunnerOutcome, e.ReturnedAmount),
			At:        orFallback(e.Ts, fallback),
		})
	}
	return Transition{}, fmt.Errorf("unknown bet event kind %q", kind)
}

func check(t Transition) (Transition, error) {
	if t.BetID == 0 {
		return Transition{}, ErrIncompleteEvent
	}
	if t.At.IsZero() {
		t.At = time.Now()
	}
	t.At = t.At.UTC()
	return t, nil
}

func orFallback(ts, fallback time.Time) time.Time {
	if ts.IsZero() {
		return fallback
	}
	return ts
}

func (c *Consumer) fail(stage string) {
	if c.OnError != nil {
		c.OnError(c.Kind, stage)
	}
}
