package odds

import (
	"context"

	"go.uber.org/zap"

	"github.com/radieske/epl-bet-ledger/internal/ledger"
)

// MatchCache é a leitura do cache de odds atuais alimentado pelo odds-processor
type MatchCache interface {
	Match(ctx context.Context, matchID int64) ([]ledger.OddsQuote, bool, error)
}

// CachedStore responde as odds de uma partida pelo Redis e cai para o Postgres
// quando o cache está vazio ou indisponível. A visão completa vem sempre do banco.
type CachedStore struct {
	Log   *zap.Logger
	Cache MatchCache
	Base  ledger.OddsStore

	OnHit  func() // métricas
	OnMiss func()
}

func NewCachedStore(log *zap.Logger, c MatchCache, base ledger.OddsStore) *CachedStore {
	return &CachedStore{Log: log, Cache: c, Base: base}
}

func (s *CachedStore) LatestQuotes(ctx context.Context) ([]ledger.OddsQuote, error) {
	return s.Base.LatestQuotes(ctx)
}

func (s *CachedStore) LatestQuotesForMatch(ctx context.Context, matchID int64) ([]ledger.OddsQuote, error) {
	quotes, ok, err := s.Cache.Match(ctx, matchID)
	if err != nil {
		s.Log.Warn("odds cache read failed", zap.Int64("match_id", matchID), zap.Error(err))
	}
	if err == nil && ok {
		if s.OnHit != nil {
			s.OnHit()
		}
		return quotes, nil
	}
	if s.OnMiss != nil {
		s.OnMiss()
	}
	return s.Base.LatestQuotesForMatch(ctx, matchID)
}
