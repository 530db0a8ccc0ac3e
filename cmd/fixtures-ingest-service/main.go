package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/epl-bet-ledger/internal/fixtures-ingest/footballdata"
	"github.com/radieske/epl-bet-ledger/internal/fixtures-ingest/repo"
	"github.com/radieske/epl-bet-ledger/internal/fixtures-ingest/service"
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

	if cfg.FootballData.APIKey == "" {
		log.Warn("FOOTBALL_DATA_API_KEY not set, requests will be rejected")
	}

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()
	if err := db.Migrate(context.Background(), pg); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicFixtureResults)
	defer writer.Close()

	synced := prometheus.NewCounter(prometheus.CounterOpts{Name: "fixtures_synced_total", Help: "fixtures gravadas"})
	finished := prometheus.NewCounter(prometheus.CounterOpts{Name: "fixtures_finished_total", Help: "fixtures que passaram a FINISHED"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "fixtures_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(synced, finished, errorsBy)

	syncer := &service.Syncer{
		Log: log,
		Source: footballdata.New(footballdata.Config{
			BaseURL: cfg.FootballData.BaseURL,
			APIKey:  cfg.FootballData.APIKey,
			Timeout: cfg.FootballData.Timeout,
		}),
		Store:       repo.NewPostgres(pg),
		Publisher:   &service.KafkaPublisher{Writer: writer},
		Competition: cfg.FootballData.Competition,
		Season:      cfg.FootballData.Season,
		OnSynced: func(r service.SyncReport) {
			synced.Add(float64(r.Fixtures))
			finished.Add(float64(r.NewFinished))
		},
		OnError: func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort,
		metrics.HealthCheck{Name: "postgres", Check: pg.PingContext},
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("fixtures-ingest started",
		zap.String("competition", cfg.FootballData.Competition),
		zap.Duration("interval", cfg.FixturesPollInterval),
	)
	if err := syncer.Run(ctx, cfg.FixturesPollInterval); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("fixtures-ingest stopped with error", zap.Error(err))
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("fixtures-ingest stopped")
}
