package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/epl-bet-ledger/internal/ledger"
	"github.com/radieske/epl-bet-ledger/internal/odds-processor/consumer"
	"github.com/radieske/epl-bet-ledger/internal/odds-processor/pubsub"
	"github.com/radieske/epl-bet-ledger/internal/odds-processor/repository"
	sharedcache "github.com/radieske/epl-bet-ledger/internal/shared/cache"
	"github.com/radieske/epl-bet-ledger/internal/shared/config"
	"github.com/radieske/epl-bet-ledger/internal/shared/db"
	"github.com/radieske/epl-bet-ledger/internal/shared/kafka"
	"github.com/radieske/epl-bet-ledger/internal/shared/logger"
	"github.com/radieske/epl-bet-ledger/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log := logger.Must(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	// Inicializa dependências: Postgres e Redis
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()
	if err := db.Migrate(context.Background(), pg); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	teams, err := config.LoadTeamMapping(cfg.TeamMappingFile)
	if err != nil {
		log.Fatal("team mapping", zap.Error(err))
	}

	// TTL cobre alguns ciclos de coleta; depois disso o bet-service lê do banco
	oddsCache := sharedcache.NewOddsCache(redisClient, 3*cfg.OddsPollInterval)
	repo := repository.NewPostgresRepo(pg)

	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicOddsQuotes, "odds-processor")
	defer reader.Close()
	dlq := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicOddsQuotesDLQ)
	defer dlq.Close()

	// Métricas Prometheus para monitoramento do processamento
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "odds_proc_messages_consumed_total", Help: "mensagens consumidas"})
	cached := prometheus.NewCounter(prometheus.CounterOpts{Name: "odds_proc_cache_sets_total", Help: "sets no cache"})
	persist := prometheus.NewCounter(prometheus.CounterOpts{Name: "odds_proc_db_writes_total", Help: "linhas gravadas em odds"})
	unlinked := prometheus.NewCounter(prometheus.CounterOpts{Name: "odds_proc_unlinked_events_total", Help: "eventos sem fixture correspondente"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "odds_proc_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, cached, persist, unlinked, errorsBy)

	// Broadcaster para o WebSocket do odds-service via Redis Pub/Sub
	broadcaster := pubsub.NewRedisBroadcaster(redisClient, cfg.RedisPubSubChannel)

	proc := &consumer.Processor{
		Log:        log,
		Reader:     reader,
		Repo:       repo,
		Cache:      oddsCache,
		Teams:      teams,
		DLQ:        dlq,
		OnConsumed: func() { consumed.Inc() },
		OnCached:   func() { cached.Inc() },
		OnPersist:  func(n int) { persist.Add(float64(n)) },
		OnUnlinked: func() { unlinked.Inc() },
		OnError:    func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
		OnAfterPersist: func(matchID int64, quotes []ledger.OddsQuote) {
			ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			defer cancel()
			if err := broadcaster.BroadcastQuotes(ctx, matchID, quotes); err != nil {
				log.Warn("ws broadcast publish failed", zap.Int64("match_id", matchID), zap.Error(err))
				errorsBy.WithLabelValues("broadcast").Inc()
			}
		},
	}

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort,
		metrics.HealthCheck{Name: "postgres", Check: pg.PingContext},
		metrics.HealthCheck{Name: "redis", Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("odds-processor started", zap.String("topic", cfg.TopicOddsQuotes))
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("processor stopped with error", zap.Error(err))
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("odds-processor stopped")
}
