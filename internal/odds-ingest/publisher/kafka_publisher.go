package publisher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	skafka "github.com/radieske/epl-bet-ledger/internal/shared/kafka"
	"github.com/radieske/epl-bet-ledger/pkg/contracts/events"
)

// MessageWriter é o subconjunto do kafka.Writer usado pelo publisher
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publica snapshots de odds no tópico de cotações
type KafkaPublisher struct {
	writer MessageWriter
	log    *zap.Logger
}

// NewKafkaPublisher cria o publisher; em local/dev garante o tópico antes de escrever
func NewKafkaPublisher(log *zap.Logger, brokers, topic, env string) *KafkaPublisher {
	if env == "local" || env == "dev" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := EnsureTopic(ctx, brokers, topic); err != nil {
			log.Warn("failed to create kafka topic", zap.String("topic", topic), zap.Error(err))
		}
	}
	return &KafkaPublisher{writer: skafka.NewWriter(brokers, topic), log: log}
}

// NewWithWriter permite injetar o writer (testes)
func NewWithWriter(log *zap.Logger, w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w, log: log}
}

// EnsureTopic cria o tópico via controller do cluster; "already exists" não é erro
func EnsureTopic(ctx context.Context, brokers, topic string) error {
	first := strings.TrimSpace(strings.Split(brokers, ",")[0])
	conn, err := kafka.DialContext(ctx, "tcp", first)
	if err != nil {
		return fmt.Errorf("dial kafka: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("kafka controller: %w", err)
	}
	cconn, err := kafka.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	if err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}
	defer cconn.Close()

	err = cconn.CreateTopics(kafka.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1})
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return err
	}
	return nil
}

// Publish envia o snapshot com chave EventID (mesmo evento -> mesma partição)
func (p *KafkaPublisher) Publish(ctx context.Context, q events.OddsQuote) error {
	if err := writeJSON(ctx, p.writer, q.EventID, q); err != nil {
		p.log.Error("failed to publish odds quote", zap.String("event_id", q.EventID), zap.Error(err))
		return err
	}
	p.log.Debug("published odds quote",
		zap.String("event_id", q.EventID),
		zap.String("market_id", q.MarketID),
		zap.Int("runners", len(q.Runners)))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
