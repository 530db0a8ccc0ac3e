package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/radieske/epl-bet-ledger/internal/ledger"
	"github.com/radieske/epl-bet-ledger/internal/odds-service/dto"
)

const listTTL = 30 * time.Second

// ReadStore é o calendário e os times
type ReadStore interface {
	Matchdays(ctx context.Context) ([]int, error)
	FixturesByMatchday(ctx context.Context, matchday int) ([]ledger.Fixture, error)
	FixturesByTeam(ctx context.Context, teamID int64) ([]ledger.Fixture, error)
	Fixture(ctx context.Context, matchID int64) (ledger.Fixture, error)
	Teams(ctx context.Context) ([]dto.Team, error)
}

// OddsReader é o histórico de cotações no banco
type OddsReader interface {
	LatestQuotesForMatch(ctx context.Context, matchID int64) ([]ledger.OddsQuote, error)
	QuoteHistory(ctx context.Context, matchID int64) ([]ledger.OddsQuote, error)
}

// LiveOdds é o cache das cotações atuais alimentado pelo odds-processor
type LiveOdds interface {
	Match(ctx context.Context, matchID int64) ([]ledger.OddsQuote, bool, error)
}

// ResponseCache guarda listas pouco voláteis (rodadas, times)
type ResponseCache interface {
	Get(ctx context.Context, name string, dst any) (bool, error)
	Set(ctx context.Context, name string, v any, ttl time.Duration) error
}

// API expõe os endpoints REST de calendário e odds
type API struct {
	Log   *zap.Logger
	Read  ReadStore
	Odds  OddsReader
	Live  LiveOdds      // opcional
	Cache ResponseCache // opcional
	WS    http.HandlerFunc
}

// Router retorna o roteador HTTP com os endpoints REST e o /ws
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/matchdays", a.listMatchdays)
	r.Get("/fixtures/matchday/{matchday}", a.fixturesByMatchday)
	r.Get("/fixtures/team/{teamId}", a.fixturesByTeam)
	r.Get("/fixtures/{matchId}", a.getFixture)
	r.Get("/fixtures/{matchId}/odds", a.latestOdds)
	r.Get("/fixtures/{matchId}/odds-history", a.oddsHistory)
	r.Get("/teams", a.listTeams)
	if a.WS != nil {
		r.Get("/ws", a.WS)
	}
	return r
}

func (a *API) listMatchdays(w http.ResponseWriter, r *http.Request) {
	var resp dto.MatchdaysResponse
	if a.cached(r.Context(), "matchdays", &resp) {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	mds, err := a.Read.Matchdays(r.Context())
	if err != nil {
		a.internal(w, "matchdays", err)
		return
	}
	resp = dto.MatchdaysResponse{Matchdays: mds}
	a.store(r.Context(), "matchdays", resp)
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) fixturesByMatchday(w http.ResponseWriter, r *http.Request) {
	md, err := strconv.Atoi(chi.URLParam(r, "matchday"))
	if err != nil || md < 1 {
		writeError(w, http.StatusBadRequest, "matchday must be a positive integer")
		return
	}
	fs, err := a.Read.FixturesByMatchday(r.Context(), md)
	if err != nil {
		a.internal(w, "fixtures by matchday", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FixturesResponse{Matchday: &md, Fixtures: dto.FromFixtures(fs)})
}

func (a *API) fixturesByTeam(w http.ResponseWriter, r *http.Request) {
	teamID, ok := pathInt(w, r, "teamId")
	if !ok {
		return
	}
	fs, err := a.Read.FixturesByTeam(r.Context(), teamID)
	if err != nil {
		a.internal(w, "fixtures by team", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FixturesResponse{TeamID: &teamID, Fixtures: dto.FromFixtures(fs)})
}

func (a *API) getFixture(w http.ResponseWriter, r *http.Request) {
	matchID, ok := pathInt(w, r, "matchId")
	if !ok {
		return
	}
	f, err := a.Read.Fixture(r.Context(), matchID)
	if errors.Is(err, ledger.ErrFixtureNotFound) {
		writeError(w, http.StatusNotFound, "fixture not found")
		return
	}
	if err != nil {
		a.internal(w, "fixture", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromFixture(f))
}

// latestOdds responde pelo cache quando possível e cai para o banco
func (a *API) latestOdds(w http.ResponseWriter, r *http.Request) {
	matchID, ok := pathInt(w, r, "matchId")
	if !ok {
		return
	}

	if a.Live != nil {
		quotes, hit, err := a.Live.Match(r.Context(), matchID)
		if err != nil {
			a.Log.Warn("odds cache read failed", zap.Int64("match_id", matchID), zap.Error(err))
		}
		if err == nil && hit {
			latest := ledger.BuildLatestOdds(quotes).Match(matchID)
			writeJSON(w, http.StatusOK, dto.OddsResponse{MatchID: matchID, Source: "cache", Quotes: dto.FromQuotes(latest)})
			return
		}
	}

	quotes, err := a.Odds.LatestQuotesForMatch(r.Context(), matchID)
	if err != nil {
		a.internal(w, "latest odds", err)
		return
	}
	if len(quotes) == 0 {
		writeError(w, http.StatusNotFound, "no odds for fixture")
		return
	}
	writeJSON(w, http.StatusOK, dto.OddsResponse{MatchID: matchID, Source: "db", Quotes: dto.FromQuotes(quotes)})
}

func (a *API) oddsHistory(w http.ResponseWriter, r *http.Request) {
	matchID, ok := pathInt(w, r, "matchId")
	if !ok {
		return
	}
	quotes, err := a.Odds.QuoteHistory(r.Context(), matchID)
	if err != nil {
		a.internal(w, "odds history", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.OddsResponse{MatchID: matchID, Source: "db", Quotes: dto.FromQuotes(quotes)})
}

func (a *API) listTeams(w http.ResponseWriter, r *http.Request) {
	var resp dto.TeamsResponse
	if a.cached(r.Context(), "teams", &resp) {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	teams, err := a.Read.Teams(r.Context())
	if err != nil {
		a.internal(w, "teams", err)
		return
	}
	resp = dto.TeamsResponse{Teams: teams}
	a.store(r.Context(), "teams", resp)
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) cached(ctx context.Context, name string, dst any) bool {
	if a.Cache == nil {
		return false
	}
	ok, err := a.Cache.Get(ctx, name, dst)
	if err != nil {
		a.Log.Debug("response cache read failed", zap.String("key", name), zap.Error(err))
		return false
	}
	return ok
}

func (a *API) store(ctx context.Context, name string, v any) {
	if a.Cache == nil {
		return
	}
	if err := a.Cache.Set(ctx, name, v, listTTL); err != nil {
		a.Log.Debug("response cache write failed", zap.String("key", name), zap.Error(err))
	}
}

func (a *API) internal(w http.ResponseWriter, what string, err error) {
	a.Log.Error(what+" query failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, name+" must be an integer")
		return 0, false
	}
	return v, true
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, dto.ErrorResponse{Error: msg})
}
