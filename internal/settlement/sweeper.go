package settlement

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/radieske/epl-bet-ledger/internal/ledger"
)

type BatchResolver interface {
	ResolveAll(ctx context.Context) (ledger.BatchReport, error)
}

// Sweeper roda ResolveAll no agendamento configurado e pega partidas que o
// consumer perdeu ou que ficaram sem odds/placar na primeira tentativa
type Sweeper struct {
	log     *zap.Logger
	engine  BatchResolver
	timeout time.Duration
	cron    *cron.Cron

	OnRun func(ledger.BatchReport, error) // métricas
}

func NewSweeper(log *zap.Logger, engine BatchResolver, timeout time.Duration) *Sweeper {
	cl := cronLogger{log.Sugar()}
	return &Sweeper{
		log:     log,
		engine:  engine,
		timeout: timeout,
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
	}
}

// Schedule registra a varredura; spec no formato do robfig/cron ("@every 5m", "*/10 * * * *")
func (s *Sweeper) Schedule(spec string) error {
	_, err := s.cron.AddFunc(spec, func() { s.RunOnce(context.Background()) })
	return err
}

func (s *Sweeper) Start() { s.cron.Start() }

// Stop espera a execução em andamento terminar ou o ctx vencer
func (s *Sweeper) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (s *Sweeper) RunOnce(ctx context.Context) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	rep, err := s.engine.ResolveAll(ctx)
	if err != nil {
		s.log.Warn("settlement sweep failed", zap.Error(err))
	}
	if s.OnRun != nil {
		s.OnRun(rep, err)
	}
}

// cronLogger adapta o zap para a interface de log do cron
type cronLogger struct{ s *zap.SugaredLogger }

func (l cronLogger) Info(msg string, kv ...any) { l.s.Debugw(msg, kv...) }

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.s.Errorw(msg, append(kv, "error", err)...)
}
