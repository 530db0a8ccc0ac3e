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

	"github.com/radieske/epl-bet-ledger/internal/bet-audit/consumer"
	auditrepo "github.com/radieske/epl-bet-ledger/internal/bet-audit/repo"
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

	// Postgres guarda o histórico de status em bet_transactions
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()
	if err := db.Migrate(context.Background(), pg); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}
	store := auditrepo.NewPostgresRepo(pg)

	// Métricas Prometheus
	recorded := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bet_audit_transitions_recorded_total", Help: "transições gravadas por evento"}, []string{"kind"})
	duplicates := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bet_audit_duplicates_total", Help: "reentregas já gravadas"}, []string{"kind"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bet_audit_errors_total", Help: "erros por evento e estágio"}, []string{"kind", "stage"})
	prometheus.MustRegister(recorded, duplicates, errorsBy)

	// Um reader por tópico do ciclo de vida, mesmo consumer group
	topics := map[consumer.Kind]string{
		consumer.KindPlaced:    cfg.TopicBetPlaced,
		consumer.KindCancelled: cfg.TopicBetCancelled,
		consumer.KindSettled:   cfg.TopicBetSettled,
	}
	var consumers []*consumer.Consumer
	for kind, topic := range topics {
		reader := kafka.NewReader(cfg.KafkaBrokers, topic, "bet-audit")
		defer reader.Close()
		consumers = append(consumers, &consumer.Consumer{
			Log:         log,
			Kind:        kind,
			Reader:      reader,
			Store:       store,
			OnRecorded:  func(k consumer.Kind) { recorded.WithLabelValues(string(k)).Inc() },
			OnDuplicate: func(k consumer.Kind) { duplicates.WithLabelValues(string(k)).Inc() },
			OnError:     func(k consumer.Kind, stage string) { errorsBy.WithLabelValues(string(k), stage).Inc() },
		})
	}

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort,
		metrics.HealthCheck{Name: "postgres", Check: pg.PingContext},
	)

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("bet-audit-worker started",
		zap.String("placed", cfg.TopicBetPlaced),
		zap.String("cancelled", cfg.TopicBetCancelled),
		zap.String("settled", cfg.TopicBetSettled),
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range consumers {
		c := c
		g.Go(func() error { return c.Run(gctx) })
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("bet-audit-worker stopped with error", zap.Error(err))
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("bet-audit-worker stopped")
}
