package pubsub

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/epl-bet-ledger/internal/ledger"
)

type RedisBroadcaster struct {
	r       *redis.Client
	channel string
}

func NewRedisBroadcaster(r *redis.Client, channel string) *RedisBroadcaster {
	return &RedisBroadcaster{r: r, channel: channel}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, payload []byte) error {
	return b.r.Publish(ctx, b.channel, payload).Err()
}

// BroadcastQuotes avisa o hub do odds-service sobre as novas cotações da partida
func (b *RedisBroadcaster) BroadcastQuotes(ctx context.Context, matchID int64, quotes []ledger.OddsQuote) error {
	msg, err := json.Marshal(WSUpdate{MatchID: matchID, Payload: quotes})
	if err != nil {
		return err
	}
	return b.Publish(ctx, msg)
}

// Payload padrão para o WS do odds-service
type WSUpdate struct {
	MatchID int64 `json:"match_id"`
	Payload any   `json:"payload"`
}
