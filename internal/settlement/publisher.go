// Package settlement liga o motor de liquidação ao resto do sistema: consome
// resultados de partidas, roda a varredura periódica e publica bet_settled.
package settlement

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/radieske/epl-bet-ledger/internal/ledger"
	"github.com/radieske/epl-bet-ledger/pkg/contracts/events"
)

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Publisher envia um bet_settled por aposta liquidada
type Publisher struct {
	W   MessageWriter
	now func() time.Time
}

func NewPublisher(w MessageWriter) *Publisher { return &Publisher{W: w, now: time.Now} }

// Event converte a liquidação no contrato publicado
func Event(s ledger.Settlement, ts time.Time) events.BetSettled {
	return events.BetSettled{
		BetID:          s.BetID,
		BettorID:       s.BettorID,
		MatchID:        s.MatchID,
		SelectionID:    s.SelectionID,
		BackOrLay:      string(s.Side),
		RunnerOutcome:  string(s.RunnerOutcome),
		BetWon:         s.BetWon,
		ReturnedAmount: s.ReturnedAmount.String(),
		Ts:             ts.UTC(),
	}
}

// PublishSettlements envia todas as liquidações de uma partida num único lote
func (p *Publisher) PublishSettlements(ctx context.Context, ss []ledger.Settlement) error {
	if len(ss) == 0 {
		return nil
	}
	ts := p.now()
	msgs := make([]kafka.Message, 0, len(ss))
	for _, s := range ss {
		b, err := json.Marshal(Event(s, ts))
		if err != nil {
			return fmt.Errorf("marshal bet_settled: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(strconv.FormatInt(s.MatchID, 10)),
			Value: b,
			Time:  ts,
		})
	}
	return p.W.WriteMessages(ctx, msgs...)
}
