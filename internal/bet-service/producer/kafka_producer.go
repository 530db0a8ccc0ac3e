package producer

import (
	"context"
	"strconv"
	"time"

	"github.com/radieske/epl-bet-ledger/internal/shared/kafka"
	"github.com/radieske/epl-bet-ledger/pkg/contracts/events"
)

type KafkaPublisher struct {
	Writer          *kafka.Writer
	CancelledWriter *kafka.Writer
}

func NewKafkaPublisher(placed, cancelled *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{Writer: placed, CancelledWriter: cancelled}
}

// PublishBetPlaced usa o match_id como chave: eventos da mesma partida ficam na mesma partição
func (p *KafkaPublisher) PublishBetPlaced(ctx context.Context, e events.BetPlaced) error {
	e.TsUnixMs = time.Now().UnixMilli()
	return kafka.WriteJSON(ctx, p.Writer, strconv.FormatInt(e.MatchID, 10), e)
}

// PublishBetCancelled usa o bet_id como chave
func (p *KafkaPublisher) PublishBetCancelled(ctx context.Context, e events.BetCancelled) error {
	if e.Ts.IsZero() {
		e.Ts = time.Now().UTC()
	}
	return kafka.WriteJSON(ctx, p.CancelledWriter, strconv.FormatInt(e.BetID, 10), e)
}
