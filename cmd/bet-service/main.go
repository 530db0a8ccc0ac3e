package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	bhttp "github.com/radieske/epl-bet-ledger/internal/bet-service/http"
	"github.com/radieske/epl-bet-ledger/internal/bet-service/odds"
	kpub "github.com/radieske/epl-bet-ledger/internal/bet-service/producer"
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

	// Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg", zap.Error(err))
	}
	defer pg.Close()
	if err := db.Migrate(context.Background(), pg); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	// Redis (odds atuais + trava de liquidação)
	rdb, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// Kafka writers (bet_placed, bet_cancelled, bet_settled)
	placedWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetPlaced)
	defer placedWriter.Close()
	cancelledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetCancelled)
	defer cancelledWriter.Close()
	settledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettled)
	defer settledWriter.Close()

	placed := prometheus.NewCounter(prometheus.CounterOpts{Name: "bets_placed_total", Help: "apostas colocadas"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bets_rejected_total", Help: "apostas rejeitadas por motivo"}, []string{"reason"})
	oddsCache := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bet_odds_cache_total", Help: "leituras de odds por resultado do cache"}, []string{"result"})
	resolved := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_matches_resolved_total", Help: "partidas liquidadas"})
	prometheus.MustRegister(placed, rejected, oddsCache, resolved)

	// deps
	bets := repo.NewBetRepo(pg)
	dbOdds := repo.NewOddsRepo(pg)
	cachedOdds := odds.NewCachedStore(log, sharedcache.NewOddsCache(rdb, 0), dbOdds)
	cachedOdds.OnHit = func() { oddsCache.WithLabelValues("hit").Inc() }
	cachedOdds.OnMiss = func() { oddsCache.WithLabelValues("miss").Inc() }

	book := ledger.NewBook(log, cachedOdds, bets)

	// liquidação manual sempre contra o banco
	engine := ledger.NewEngine(log, dbOdds, repo.NewFixtureRepo(pg), bets)
	engine.Locker = sharedcache.NewRedisLocker(rdb)
	engine.LockTTL = cfg.SettlementLockTTL
	settledPub := settlement.NewPublisher(settledWriter)
	engine.OnSettled = func(rep ledger.MatchReport, ss []ledger.Settlement) {
		resolved.Inc()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := settledPub.PublishSettlements(ctx, ss); err != nil {
			log.Warn("publish bet_settled failed", zap.Int64("match_id", rep.MatchID), zap.Error(err))
		}
	}

	api := bhttp.NewServer(log, book, engine, bets, kpub.NewKafkaPublisher(placedWriter, cancelledWriter))
	api.OnPlaced = func() { placed.Inc() }
	api.OnRejected = func(reason string) { rejected.WithLabelValues(reason).Inc() }

	apiSrv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort,
		metrics.HealthCheck{Name: "pg", Check: pg.PingContext},
		metrics.HealthCheck{Name: "redis", Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		log.Info("bet-service listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("bet-service stopped")
}
