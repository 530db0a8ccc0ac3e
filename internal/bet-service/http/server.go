package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/radieske/epl-bet-ledger/internal/bet-service/dto"
	"github.com/radieske/epl-bet-ledger/internal/ledger"
	"github.com/radieske/epl-bet-ledger/pkg/contracts/events"
)

// Book é a parte do livro usada pela API
type Book interface {
	PlaceBet(ctx context.Context, in ledger.PlaceBetInput) (ledger.Bet, error)
	CancelBet(ctx context.Context, bettorID, betID int64) (bool, error)
}

type Resolver interface {
	ResolveMatch(ctx context.Context, matchID, winningSelectionID int64) (ledger.MatchReport, error)
	ResolveAll(ctx context.Context) (ledger.BatchReport, error)
}

type BetLister interface {
	ListBets(ctx context.Context, bettorID int64, status ledger.BetStatus) ([]ledger.Bet, error)
	Bettors(ctx context.Context) ([]int64, error)
}

type Publisher interface {
	PublishBetPlaced(ctx context.Context, e events.BetPlaced) error
	PublishBetCancelled(ctx context.Context, e events.BetCancelled) error
}

type Server struct {
	log      *zap.Logger
	book     Book
	resolver Resolver
	bets     BetLister
	publ     Publisher
	validate *validator.Validate

	OnPlaced   func()              // métricas
	OnRejected func(reason string) // métricas por motivo
}

func NewServer(log *zap.Logger, book Book, resolver Resolver, bets BetLister, publ Publisher) *Server {
	return &Server{
		log:      log,
		book:     book,
		resolver: resolver,
		bets:     bets,
		publ:     publ,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/bets", s.placeBet)
	r.Post("/bets/{betId}/cancel", s.cancelBet)
	r.Get("/bets/{bettorId}", s.listBets) // ?status=ALL|PLACED|CANCELLED|SETTLED
	r.Get("/bettors", s.listBettors)
	r.Get("/bet-statuses", s.listStatuses)

	// liquidação manual
	r.Post("/admin/matches/{matchId}/resolve", s.resolveMatch)
	r.Post("/admin/resolve-all", s.resolveAll)
	return r
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.reject(w, "bad_json", http.StatusBadRequest, "bad json")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.reject(w, "invalid_payload", http.StatusBadRequest, err.Error())
		return
	}

	bet, err := s.book.PlaceBet(r.Context(), ledger.PlaceBetInput{
		BettorID:    *req.BettorID,
		MatchID:     req.MatchID,
		SelectionID: req.SelectionID,
		Side:        ledger.Side(strings.ToUpper(req.BackOrLay)),
		Amount:      req.BetAmount,
	})
	if err != nil {
		status, reason := errorStatus(err)
		s.reject(w, reason, status, err.Error())
		return
	}
	if s.OnPlaced != nil {
		s.OnPlaced()
	}

	// evento é best effort: a aposta já está no livro
	if s.publ != nil {
		if err := s.publ.PublishBetPlaced(r.Context(), events.BetPlaced{
			BetID:         bet.ID,
			BettorID:      bet.BettorID,
			MatchID:       bet.MatchID,
			SelectionID:   bet.SelectionID,
			RunnerName:    bet.RunnerName,
			BackOrLay:     string(bet.BackOrLay),
			BetAmount:     bet.BetAmount.String(),
			SelectionOdds: bet.SelectionOdds.String(),
		}); err != nil {
			s.log.Warn("publish bet_placed failed", zap.Int64("bet_id", bet.ID), zap.Error(err))
		}
	}

	writeJSON(w, http.StatusCreated, dto.FromBet(bet))
}

func (s *Server) cancelBet(w http.ResponseWriter, r *http.Request) {
	betID, ok := pathInt(w, r, "betId")
	if !ok {
		return
	}
	var req dto.CancelBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	changed, err := s.book.CancelBet(r.Context(), *req.BettorID, betID)
	if err != nil {
		status, _ := errorStatus(err)
		writeError(w, status, err.Error())
		return
	}
	// só a chamada que fez PLACED -> CANCELLED publica o evento
	if changed && s.publ != nil {
		if err := s.publ.PublishBetCancelled(r.Context(), events.BetCancelled{BetID: betID, BettorID: *req.BettorID}); err != nil {
			s.log.Warn("publish bet_cancelled failed", zap.Int64("bet_id", betID), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bet_id": betID, "status": ledger.StatusCancelled})
}

func (s *Server) listBets(w http.ResponseWriter, r *http.Request) {
	bettorID, ok := pathInt(w, r, "bettorId")
	if !ok {
		return
	}

	label := strings.ToUpper(r.URL.Query().Get("status"))
	if label == "" {
		label = "ALL"
	}
	var status ledger.BetStatus
	if label != "ALL" {
		status = ledger.BetStatus(label)
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, "invalid status "+label)
			return
		}
	}

	bets, err := s.bets.ListBets(r.Context(), bettorID, status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := dto.BetsResponse{BettorID: bettorID, Status: label, Bets: make([]dto.BetResponse, 0, len(bets))}
	for _, b := range bets {
		out.Bets = append(out.Bets, dto.FromBet(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listBettors(w http.ResponseWriter, r *http.Request) {
	ids, err := s.bets.Bettors(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	writeJSON(w, http.StatusOK, dto.BettorsResponse{Bettors: ids})
}

func (s *Server) listStatuses(w http.ResponseWriter, _ *http.Request) {
	out := dto.StatusesResponse{Statuses: []string{"ALL"}}
	for _, st := range ledger.BetStatuses {
		out.Statuses = append(out.Statuses, string(st))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) resolveMatch(w http.ResponseWriter, r *http.Request) {
	matchID, ok := pathInt(w, r, "matchId")
	if !ok {
		return
	}
	var req dto.ResolveMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := s.resolver.ResolveMatch(r.Context(), matchID, req.WinningSelectionID)
	if err != nil {
		status, _ := errorStatus(err)
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, dto.FromMatchReport(rep))
}

func (s *Server) resolveAll(w http.ResponseWriter, r *http.Request) {
	rep, err := s.resolver.ResolveAll(r.Context())
	if err != nil {
		status, _ := errorStatus(err)
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, dto.FromBatchReport(rep))
}

func (s *Server) reject(w http.ResponseWriter, reason string, status int, msg string) {
	if s.OnRejected != nil {
		s.OnRejected(reason)
	}
	writeError(w, status, msg)
}

// errorStatus traduz os erros do livro para status HTTP e um rótulo de métrica
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrInvalidSelection):
		return http.StatusBadRequest, "invalid_selection"
	case errors.Is(err, ledger.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid_amount"
	case errors.Is(err, ledger.ErrInvalidSide):
		return http.StatusBadRequest, "invalid_side"
	case errors.Is(err, ledger.ErrInvalidBet):
		return http.StatusNotFound, "invalid_bet"
	case errors.Is(err, ledger.ErrFixtureNotFound):
		return http.StatusNotFound, "fixture_not_found"
	case errors.Is(err, ledger.ErrNoPriceAvailable):
		return http.StatusConflict, "no_price"
	case errors.Is(err, ledger.ErrBetSettled):
		return http.StatusConflict, "bet_settled"
	case errors.Is(err, ledger.ErrSettlementInProgress):
		return http.StatusConflict, "settlement_in_progress"
	case errors.Is(err, ledger.ErrDataUnavailable):
		return http.StatusServiceUnavailable, "data_unavailable"
	}
	return http.StatusInternalServerError, "internal"
}

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, name+" must be an integer")
		return 0, false
	}
	return v, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, dto.ErrorResponse{Error: msg})
}
