package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/epl-bet-ledger/internal/ledger"
	"github.com/radieske/epl-bet-ledger/internal/ledger/repo"
	"github.com/radieske/epl-bet-ledger/internal/settlement"
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

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()
	if err := db.Migrate(context.Background(), pg); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	rdb, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	// Kafka: consome fixture_results, publica bet_settled
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicFixtureResults, "settlement-worker")
	defer reader.Close()
	settledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettled)
	defer settledWriter.Close()
	dlqWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicFixtureResultsDLQ)
	defer dlqWriter.Close()

	// Métricas Prometheus
	resolved := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_matches_resolved_total", Help: "partidas liquidadas"})
	settledBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_bets_settled_total", Help: "apostas liquidadas por classe"}, []string{"class"})
	skippedBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_matches_skipped_total", Help: "partidas puladas por motivo"}, []string{"reason"})
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_messages_consumed_total", Help: "mensagens fixture_results consumidas"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_errors_total", Help: "erros por estágio"}, []string{"stage"})
	sweeps := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_sweeps_total", Help: "execuções da varredura"}, []string{"result"})
	prometheus.MustRegister(resolved, settledBy, skippedBy, consumed, errorsBy, sweeps)

	publisher := settlement.NewPublisher(settledWriter)

	fixtures := repo.NewFixtureRepo(pg)
	engine := ledger.NewEngine(log, repo.NewOddsRepo(pg), fixtures, repo.NewBetRepo(pg))
	engine.Locker = sharedcache.NewRedisLocker(rdb)
	engine.LockTTL = cfg.SettlementLockTTL
	engine.OnSettled = func(rep ledger.MatchReport, ss []ledger.Settlement) {
		resolved.Inc()
		for c, n := range rep.ByClass {
			settledBy.WithLabelValues(c.String()).Add(float64(n))
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := publisher.PublishSettlements(ctx, ss); err != nil {
			log.Warn("publish bet_settled failed", zap.Int64("match_id", rep.MatchID), zap.Error(err))
			errorsBy.WithLabelValues("publish").Inc()
		}
	}
	engine.OnSkipped = func(_ int64, err error) { skippedBy.WithLabelValues(skipReason(err)).Inc() }

	consumer := &settlement.Consumer{
		Log:        log,
		Reader:     reader,
		Fixtures:   fixtures,
		Engine:     engine,
		DLQ:        dlqWriter,
		OnConsumed: func() { consumed.Inc() },
		OnError:    func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	sweeper := settlement.NewSweeper(log, engine, 5*time.Minute)
	sweeper.OnRun = func(_ ledger.BatchReport, err error) {
		if err != nil {
			sweeps.WithLabelValues("error").Inc()
			return
		}
		sweeps.WithLabelValues("ok").Inc()
	}
	if err := sweeper.Schedule(cfg.SettlementSchedule); err != nil {
		log.Fatal("invalid settlement schedule", zap.String("schedule", cfg.SettlementSchedule), zap.Error(err))
	}

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort,
		metrics.HealthCheck{Name: "postgres", Check: pg.PingContext},
		metrics.HealthCheck{Name: "redis", Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	)

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sweeper.Start()
	log.Info("settlement-worker started", zap.String("schedule", cfg.SettlementSchedule))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return consumer.Run(gctx) })
	g.Go(func() error {
		// varredura inicial para pegar o que acabou enquanto o worker estava fora
		sweeper.RunOnce(gctx)
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("settlement-worker stopped with error", zap.Error(err))
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	sweeper.Stop(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("settlement-worker stopped")
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, ledger.ErrDataUnavailable):
		return "no_odds"
	case errors.Is(err, ledger.ErrMissingOddsForOutcome):
		return "missing_outcome_odds"
	case errors.Is(err, ledger.ErrMissingScore):
		return "missing_score"
	case errors.Is(err, ledger.ErrSettlementInProgress):
		return "in_progress"
	}
	return "other"
}
