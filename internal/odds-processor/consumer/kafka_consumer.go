package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/epl-bet-ledger/internal/ledger"
	"github.com/radieske/epl-bet-ledger/pkg/contracts/events"
)

var errIncompleteQuote = errors.New("odds quote without event_id or runners")

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Store é a persistência de eventos e histórico de cotações
type Store interface {
	FindFixture(ctx context.Context, home, away string, kickoff time.Time) (int64, bool, error)
	UpsertMatch(ctx context.Context, e events.OddsQuote, fixtureID *int64) error
	InsertQuotes(ctx context.Context, matchID int64, e events.OddsQuote) ([]ledger.OddsQuote, error)
}

type QuoteCache interface {
	SetLatest(ctx context.Context, quotes []ledger.OddsQuote) error
}

// TeamNames traduz nomes do feed para os nomes do calendário
type TeamNames interface {
	FullName(feedName string) string
}

// Processor consome odds_quotes, liga o evento à fixture, persiste o histórico
// e atualiza o cache das cotações atuais
type Processor struct {
	Log    *zap.Logger
	Reader MessageReader
	Repo   Store
	Cache  QuoteCache
	Teams  TeamNames
	DLQ    MessageWriter // mensagens que não decodificam

	OnConsumed     func()                                    // métricas (counter++)
	OnCached       func()                                    // métricas
	OnPersist      func(n int)                               // métricas (linhas gravadas)
	OnUnlinked     func()                                    // evento sem fixture correspondente
	OnError        func(string)                              // métricas por fase
	OnAfterPersist func(matchID int64, q []ledger.OddsQuote) // broadcast para o WS
}

// Run inicia o loop principal de consumo e processamento das mensagens Kafka
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if p.OnConsumed != nil {
			p.OnConsumed()
		}
		p.Handle(ctx, m)
	}
}

// Handle processa uma mensagem; falhas são registradas e a mensagem segue
func (p *Processor) Handle(ctx context.Context, m kafka.Message) {
	var ev events.OddsQuote
	err := json.Unmarshal(m.Value, &ev)
	if err == nil && (ev.EventID == "" || len(ev.Runners) == 0) {
		err = errIncompleteQuote
	}
	if err != nil {
		p.Log.Warn("invalid odds_quotes message", zap.Error(err))
		p.fail("decode")
		p.deadLetter(ctx, m, err)
		return
	}

	log := p.Log.With(zap.String("event_id", ev.EventID), zap.String("market_id", ev.MarketID))

	home, away := p.Teams.FullName(ev.HomeTeam), p.Teams.FullName(ev.AwayTeam)
	matchID, linked, err := p.Repo.FindFixture(ctx, home, away, ev.MatchDate)
	if err != nil {
		log.Warn("fixture lookup failed", zap.Error(err))
		p.fail("db_link")
		return
	}

	var fixtureID *int64
	if linked {
		fixtureID = &matchID
	}
	if err := p.Repo.UpsertMatch(ctx, ev, fixtureID); err != nil {
		log.Warn("db upsert match failed", zap.Error(err))
		p.fail("db_upsert")
		return
	}
	if !linked {
		// sem fixture não há match_id; a próxima coleta tenta de novo
		log.Warn("odds without fixture",
			zap.String("home", home),
			zap.String("away", away),
			zap.Time("match_date", ev.MatchDate),
		)
		if p.OnUnlinked != nil {
			p.OnUnlinked()
		}
		return
	}

	quotes, err := p.Repo.InsertQuotes(ctx, matchID, ev)
	if err != nil {
		log.Warn("db insert odds failed", zap.Int64("match_id", matchID), zap.Error(err))
		p.fail("db_history")
		return
	}
	if p.OnPersist != nil {
		p.OnPersist(len(quotes))
	}

	// falha de cache não desfaz a persistência; o bet-service cai para o banco
	if err := p.Cache.SetLatest(ctx, quotes); err != nil {
		log.Warn("redis set failed", zap.Int64("match_id", matchID), zap.Error(err))
		p.fail("cache")
	} else if p.OnCached != nil {
		p.OnCached()
	}

	if p.OnAfterPersist != nil {
		p.OnAfterPersist(matchID, quotes)
	}
	log.Debug("odds processed", zap.Int64("match_id", matchID), zap.Int("selections", len(quotes)))
}

func (p *Processor) deadLetter(ctx context.Context, m kafka.Message, cause error) {
	if p.DLQ == nil {
		return
	}
	dl := kafka.Message{
		Key:     m.Key,
		Value:   m.Value,
		Headers: append(m.Headers, kafka.Header{Key: "error", Value: []byte(cause.Error())}),
	}
	if err := p.DLQ.WriteMessages(ctx, dl); err != nil {
		p.Log.Warn("dlq write failed", zap.Error(err))
		p.fail("dlq")
	}
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}
