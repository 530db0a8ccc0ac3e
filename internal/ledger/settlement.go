package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MatchReport resume a liquidação de uma partida
type MatchReport struct {
	MatchID            int64
	WinningSelectionID int64
	RunnerOutcome      RunnerType
	Placed             int // apostas PLACED encontradas
	Settled            int // linhas efetivamente alteradas
	ByClass            map[Class]int
}

// BatchReport é o resultado de ResolveAll. Skipped guarda partidas sem dados
// suficientes (odds ou placar); Failed guarda erros inesperados por partida.
type BatchReport struct {
	Resolved []MatchReport
	Skipped  map[int64]error
	Failed   map[int64]error
}

// Engine liquida as apostas de partidas encerradas
type Engine struct {
	Log      *zap.Logger
	Odds     OddsStore
	Fixtures FixtureStore
	Bets     BetStore

	// Locker é opcional; serializa a mesma partida entre processos
	Locker  Locker
	LockTTL time.Duration

	OnSettled func(MatchReport, []Settlement) // métricas / publicação de eventos
	OnSkipped func(matchID int64, err error)  // métricas

	mu      sync.Mutex
	matchMu map[int64]*matchLock
}

// matchLock é a trava local de uma partida; refs conta donos e quem espera,
// a entrada sai do mapa quando chega a zero
type matchLock struct {
	mu   sync.Mutex
	refs int
}

func NewEngine(log *zap.Logger, odds OddsStore, fixtures FixtureStore, bets BetStore) *Engine {
	return &Engine{
		Log:      log,
		Odds:     odds,
		Fixtures: fixtures,
		Bets:     bets,
		LockTTL:  30 * time.Second,
		matchMu:  make(map[int64]*matchLock),
	}
}

// ResolveMatch liquida todas as apostas PLACED da partida contra a seleção vencedora.
// Rodar de novo para a mesma partida não altera nada.
func (e *Engine) ResolveMatch(ctx context.Context, matchID, winningSelectionID int64) (MatchReport, error) {
	latest, err := LoadLatestOddsForMatch(ctx, e.Odds, matchID)
	if err != nil {
		return MatchReport{}, err
	}
	return e.resolve(ctx, latest, matchID, winningSelectionID)
}

// WinningOutcome deriva o rótulo vencedor do placar final
func WinningOutcome(f Fixture) (RunnerType, error) {
	if f.HomeScore == nil || f.AwayScore == nil {
		return "", fmt.Errorf("%w: match %d", ErrMissingScore, f.MatchID)
	}
	switch {
	case *f.HomeScore > *f.AwayScore:
		return RunnerHomeWin, nil
	case *f.AwayScore > *f.HomeScore:
		return RunnerAwayWin, nil
	}
	return RunnerDraw, nil
}

// ResolveFixture liquida uma fixture encerrada a partir do placar
func (e *Engine) ResolveFixture(ctx context.Context, f Fixture) (MatchReport, error) {
	if f.Status != FixtureFinished {
		return MatchReport{}, fmt.Errorf("match %d is %s, not finished", f.MatchID, f.Status)
	}
	latest, err := LoadLatestOddsForMatch(ctx, e.Odds, f.MatchID)
	if err != nil {
		return MatchReport{}, err
	}
	return e.resolveFixture(ctx, latest, f)
}

// ResolveAll percorre as fixtures FINISHED e liquida cada uma. Problemas de uma
// partida ficam no relatório e não interrompem o lote; só falha se não houver
// odds nenhuma ou se as fixtures não puderem ser lidas.
func (e *Engine) ResolveAll(ctx context.Context) (BatchReport, error) {
	latest, err := LoadLatestOdds(ctx, e.Odds)
	if err != nil {
		return BatchReport{}, err
	}
	fixtures, err := e.Fixtures.FinishedFixtures(ctx)
	if err != nil {
		return BatchReport{}, fmt.Errorf("load finished fixtures: %w", err)
	}

	rep := BatchReport{Skipped: map[int64]error{}, Failed: map[int64]error{}}
	for _, f := range fixtures {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		mr, err := e.resolveFixture(ctx, latest, f)
		switch {
		case err == nil:
			rep.Resolved = append(rep.Resolved, mr)
		case isSkip(err):
			e.Log.Info("skipping match", zap.Int64("match_id", f.MatchID), zap.Error(err))
			rep.Skipped[f.MatchID] = err
			if e.OnSkipped != nil {
				e.OnSkipped(f.MatchID, err)
			}
		default:
			e.Log.Error("match settlement failed", zap.Int64("match_id", f.MatchID), zap.Error(err))
			rep.Failed[f.MatchID] = err
		}
	}

	e.Log.Info("resolve-all finished",
		zap.Int("fixtures", len(fixtures)),
		zap.Int("resolved", len(rep.Resolved)),
		zap.Int("skipped", len(rep.Skipped)),
		zap.Int("failed", len(rep.Failed)),
	)
	return rep, nil
}

func isSkip(err error) bool {
	return errors.Is(err, ErrDataUnavailable) ||
		errors.Is(err, ErrMissingOddsForOutcome) ||
		errors.Is(err, ErrMissingScore) ||
		errors.Is(err, ErrSettlementInProgress)
}

func (e *Engine) resolveFixture(ctx context.Context, latest *LatestOdds, f Fixture) (MatchReport, error) {
	outcome, err := WinningOutcome(f)
	if err != nil {
		return MatchReport{}, err
	}
	if !latest.HasMatch(f.MatchID) {
		return MatchReport{}, fmt.Errorf("%w: no odds for match %d", ErrDataUnavailable, f.MatchID)
	}
	sel, ok := latest.SelectionFor(f.MatchID, outcome)
	if !ok {
		return MatchReport{}, fmt.Errorf("%w: %q in match %d", ErrMissingOddsForOutcome, outcome, f.MatchID)
	}
	return e.resolve(ctx, latest, f.MatchID, sel.SelectionID)
}

func (e *Engine) resolve(ctx context.Context, latest *LatestOdds, matchID, winner int64) (MatchReport, error) {
	sel, ok := latest.Get(matchID, winner)
	if !ok {
		return MatchReport{}, fmt.Errorf("%w: selection %d for match %d", ErrInvalidSelection, winner, matchID)
	}

	unlock, err := e.lock(ctx, matchID)
	if err != nil {
		return MatchReport{}, err
	}
	defer unlock()

	placed, err := e.Bets.PlacedBets(ctx, matchID)
	if err != nil {
		return MatchReport{}, fmt.Errorf("load placed bets: %w", err)
	}

	rep := MatchReport{
		MatchID:            matchID,
		WinningSelectionID: winner,
		RunnerOutcome:      sel.RunnerType,
		Placed:             len(placed),
		ByClass:            make(map[Class]int, len(Classes)),
	}
	if len(placed) == 0 {
		return rep, nil
	}

	settlements := make([]Settlement, 0, len(placed))
	for _, b := range placed {
		s, err := Settle(b, winner, sel.RunnerType)
		if err != nil {
			return MatchReport{}, err
		}
		settlements = append(settlements, s)
	}

	ids, err := e.Bets.SettleBets(ctx, matchID, settlements)
	if err != nil {
		return MatchReport{}, fmt.Errorf("settle bets of match %d: %w", matchID, err)
	}

	// só o que o banco efetivamente alterou conta (uma execução concorrente pode ter levado parte)
	updated := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		updated[id] = struct{}{}
	}
	applied := settlements[:0]
	for _, s := range settlements {
		if _, ok := updated[s.BetID]; ok {
			applied = append(applied, s)
			rep.ByClass[s.Class]++
		}
	}
	rep.Settled = len(applied)

	e.Log.Info("match settled",
		zap.Int64("match_id", matchID),
		zap.Int64("winning_selection_id", winner),
		zap.String("runner_outcome", string(sel.RunnerType)),
		zap.Int("placed", rep.Placed),
		zap.Int("settled", rep.Settled),
	)
	if e.OnSettled != nil {
		e.OnSettled(rep, applied)
	}
	return rep, nil
}

func (e *Engine) lock(ctx context.Context, matchID int64) (func(), error) {
	unlock := e.lockMatch(matchID)
	if e.Locker == nil {
		return unlock, nil
	}

	release, err := e.Locker.Acquire(ctx, "settlement:match:"+strconv.FormatInt(matchID, 10), e.LockTTL)
	if err != nil {
		unlock()
		if errors.Is(err, ErrLockHeld) {
			return nil, fmt.Errorf("%w: match %d", ErrSettlementInProgress, matchID)
		}
		return nil, fmt.Errorf("acquire settlement lock for match %d: %w", matchID, err)
	}
	return func() {
		release()
		unlock()
	}, nil
}

func (e *Engine) lockMatch(matchID int64) func() {
	e.mu.Lock()
	if e.matchMu == nil {
		e.matchMu = make(map[int64]*matchLock)
	}
	l, ok := e.matchMu[matchID]
	if !ok {
		l = &matchLock{}
		e.matchMu[matchID] = l
	}
	l.refs++
	e.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		e.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(e.matchMu, matchID)
		}
		e.mu.Unlock()
	}
}
