package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	feedsim "github.com/radieske/epl-bet-ledger/internal/feed-simulator"
	"github.com/radieske/epl-bet-ledger/internal/shared/config"
	"github.com/radieske/epl-bet-ledger/internal/shared/db"
	"github.com/radieske/epl-bet-ledger/internal/shared/logger"
	"github.com/radieske/epl-bet-ledger/internal/shared/metrics"
)

const (
	tickEvery      = 3 * time.Second
	catalogSize    = 10
	catalogRefresh = 10 * time.Minute
)

func main() {
	cfg := config.Load()
	log := logger.Must(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	// Métricas Prometheus para monitoramento de conexões e mensagens
	wsConnections := prometheus.NewGauge(prometheus.GaugeOpts{Name: "feedsim_ws_connections", Help: "Clientes WebSocket conectados"})
	wsMessagesSent := prometheus.NewCounter(prometheus.CounterOpts{Name: "feedsim_ws_messages_sent_total", Help: "Total de mensagens WS enviadas"})
	prometheus.MustRegister(wsConnections, wsMessagesSent)

	hub := feedsim.NewHub(log)
	hub.OnConnect = wsConnections.Inc
	hub.OnDisconnect = wsConnections.Dec
	hub.OnSent = wsMessagesSent.Inc

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	gen := feedsim.NewGenerator(catalog(ctx, log, cfg), time.Now().UnixNano())

	// Gera e envia snapshots a cada tick; o catálogo é recarregado de tempos em tempos
	go func() {
		ticker := time.NewTicker(tickEvery)
		defer ticker.Stop()
		refresh := time.NewTicker(catalogRefresh)
		defer refresh.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-refresh.C:
				gen = feedsim.NewGenerator(catalog(ctx, log, cfg), time.Now().UnixNano())
			case <-ticker.C:
				for _, q := range gen.Next() {
					hub.Broadcast(q)
				}
			}
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWS)
	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort)

	go func() {
		log.Info("feed simulator running", zap.String("addr", srv.Addr), zap.String("paths", "/ws"))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("public server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = srv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("feed simulator stopped")
}

// catalog usa as próximas fixtures do banco; sem banco (ou sem fixtures) cai no catálogo fixo
func catalog(ctx context.Context, log *zap.Logger, cfg config.Config) []feedsim.Match {
	fallback := feedsim.DefaultCatalog(time.Now())

	teams, err := config.LoadTeamMapping(cfg.TeamMappingFile)
	if err != nil {
		log.Warn("team mapping unavailable, using default catalog", zap.Error(err))
		return fallback
	}
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Warn("postgres unavailable, using default catalog", zap.Error(err))
		return fallback
	}
	defer pg.Close()

	qctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	matches, err := feedsim.LoadCatalog(qctx, pg, teams, catalogSize)
	if err != nil || len(matches) == 0 {
		log.Warn("no upcoming fixtures, using default catalog", zap.Error(err))
		return fallback
	}
	log.Info("catalog loaded from fixtures", zap.Int("matches", len(matches)))
	return matches
}
