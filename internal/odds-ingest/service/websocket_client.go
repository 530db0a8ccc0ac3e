package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/epl-bet-ledger/pkg/contracts/events"
)

// WSClient consome snapshots do feed-simulator e republica no Kafka
type WSClient struct {
	URL       string
	Log       *zap.Logger
	Publisher QuotePublisher
	Backoff   time.Duration // espera entre reconexões; zero usa 3s

	OnReceived func()       // métricas
	OnError    func(string) // métricas por fase
}

// Start mantém a conexão aberta e reconecta após quedas, até o ctx ser cancelado
func (c *WSClient) Start(ctx context.Context) {
	backoff := c.Backoff
	if backoff <= 0 {
		backoff = 3 * time.Second
	}
	for {
		if err := c.connectAndListen(ctx); err != nil {
			c.Log.Warn("feed connection closed", zap.Error(err))
			c.fail("connect")
		}
		select {
		case <-ctx.Done():
			c.Log.Info("context canceled, stopping WS client")
			return
		case <-time.After(backoff):
		}
	}
}

func (c *WSClient) connectAndListen(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	c.Log.Info("connected to feed simulator", zap.String("url", c.URL))

	// ReadMessage não observa o ctx; fechar a conexão destrava a leitura
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		var q events.OddsQuote
		if err := json.Unmarshal(message, &q); err != nil {
			c.Log.Warn("invalid feed message", zap.Error(err))
			c.fail("decode")
			continue
		}
		if q.EventID == "" || len(q.Runners) == 0 {
			c.Log.Warn("incomplete feed message", zap.String("event_id", q.EventID))
			c.fail("decode")
			continue
		}
		if c.OnReceived != nil {
			c.OnReceived()
		}

		if err := c.Publisher.Publish(ctx, q); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			c.fail("publish")
		}
	}
}

func (c *WSClient) fail(stage string) {
	if c.OnError != nil {
		c.OnError(stage)
	}
}
