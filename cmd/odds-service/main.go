package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	ledgerrepo "github.com/radieske/epl-bet-ledger/internal/ledger/repo"
	"github.com/radieske/epl-bet-ledger/internal/odds-service/cache"
	httpapi "github.com/radieske/epl-bet-ledger/internal/odds-service/http"
	"github.com/radieske/epl-bet-ledger/internal/odds-service/repo"
	"github.com/radieske/epl-bet-ledger/internal/odds-service/ws"
	sharedcache "github.com/radieske/epl-bet-ledger/internal/shared/cache"
	"github.com/radieske/epl-bet-ledger/internal/shared/config"
	"github.com/radieske/epl-bet-ledger/internal/shared/db"
	"github.com/radieske/epl-bet-ledger/internal/shared/logger"
	"github.com/radieske/epl-bet-ledger/internal/shared/metrics"
)

func main() {
	// carrega config
	cfg := config.Load()

	// inicia logger
	log := logger.Must(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	log.Info("starting service", zap.String("service", cfg.ServiceName), zap.String("env", cfg.Env))

	// conecta com db Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	log.Info("postgres connected")

	// conecta com cache Redis
	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("redis connected")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// hub do /ws alimentado pelo pub/sub do odds-processor
	hub := ws.NewHub(log, func(r *http.Request) bool { return true })
	if err := ws.StartRedisSubscriber(ctx, log, redisClient, cfg.RedisPubSubChannel, hub); err != nil {
		log.Fatal("redis subscribe", zap.Error(err))
	}

	api := &httpapi.API{
		Log:   log,
		Read:  &repo.ReadRepo{DB: pg},
		Odds:  ledgerrepo.NewOddsRepo(pg),
		Live:  sharedcache.NewOddsCache(redisClient, 0),
		Cache: cache.New(redisClient),
		WS:    hub.HandleWS,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort,
		metrics.HealthCheck{Name: "postgres", Check: pg.PingContext},
		metrics.HealthCheck{Name: "redis", Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
	)

	go func() {
		log.Info("odds-service listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = srv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("odds-service stopped")
}
