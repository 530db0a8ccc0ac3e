package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/epl-bet-ledger/internal/odds-ingest/betfair"
	"github.com/radieske/epl-bet-ledger/internal/odds-ingest/publisher"
	"github.com/radieske/epl-bet-ledger/internal/odds-ingest/service"
	"github.com/radieske/epl-bet-ledger/internal/shared/config"
	"github.com/radieske/epl-bet-ledger/internal/shared/logger"
	"github.com/radieske/epl-bet-ledger/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log := logger.Must(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	log.Info("Kafka brokers", zap.String("brokers", cfg.KafkaBrokers))

	pub := publisher.NewKafkaPublisher(log, cfg.KafkaBrokers, cfg.TopicOddsQuotes, cfg.Env)
	defer pub.Close()

	published := prometheus.NewCounter(prometheus.CounterOpts{Name: "odds_ingest_quotes_published_total", Help: "snapshots publicados no Kafka"})
	received := prometheus.NewCounter(prometheus.CounterOpts{Name: "odds_ingest_quotes_received_total", Help: "snapshots recebidos do feed"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "odds_ingest_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(published, received, errorsBy)
	onError := func(stage string) { errorsBy.WithLabelValues(stage).Inc() }

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch cfg.OddsSource {
	case "simulator":
		ws := &service.WSClient{
			URL:        cfg.FeedSimulatorWSURL,
			Log:        log,
			Publisher:  pub,
			OnReceived: func() { received.Inc(); published.Inc() },
			OnError:    onError,
		}
		log.Info("odds-ingest started", zap.String("source", "simulator"), zap.String("url", cfg.FeedSimulatorWSURL))
		ws.Start(ctx)

	default:
		if cfg.Betfair.AppKey == "" || cfg.Betfair.CertFile == "" {
			log.Fatal("betfair credentials missing (BETFAIR_API_KEY, CERT_FILE_PATH, KEY_FILE_PATH)")
		}
		client, err := betfair.New(betfair.Config{
			AppKey:   cfg.Betfair.AppKey,
			Username: cfg.Betfair.Username,
			Password: cfg.Betfair.Password,
			CertFile: cfg.Betfair.CertFile,
			KeyFile:  cfg.Betfair.KeyFile,
			APIURL:   cfg.Betfair.APIURL,
			LoginURL: cfg.Betfair.LoginURL,
			Timeout:  cfg.Betfair.Timeout,
		})
		if err != nil {
			log.Fatal("betfair client", zap.Error(err))
		}

		collector := &service.Collector{
			Log:         log,
			Feed:        client,
			Publisher:   pub,
			Competition: cfg.Betfair.Competition,
			OnCollected: func(r service.CollectReport) {
				received.Add(float64(r.Events))
				published.Add(float64(r.Published))
			},
			OnError: onError,
		}
		log.Info("odds-ingest started",
			zap.String("source", "betfair"),
			zap.String("competition", cfg.Betfair.Competition),
			zap.Duration("interval", cfg.OddsPollInterval),
		)
		if err := collector.Run(ctx, cfg.OddsPollInterval); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("odds-ingest stopped with error", zap.Error(err))
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("odds-ingest stopped")
}
