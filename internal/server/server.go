package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chaosball/internal/broadcast"
	"chaosball/pkg/entities"
	playlogRepo "chaosball/pkg/repositories/playlog"
	ledgerService "chaosball/pkg/services/ledger"
	matchService "chaosball/pkg/services/match"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The demo serves any origin
		return true
	},
}

// Server exposes the orchestration intents and state snapshots over HTTP
type Server struct {
	match   *matchService.Service
	ledger  *ledgerService.Service
	playLog playlogRepo.Repository
	hub     *broadcast.Hub
	ctx     context.Context
}

// New creates a server around the orchestrator, ledger, play log, and hub
func New(ctx context.Context, match *matchService.Service, ledger *ledgerService.Service, playLog playlogRepo.Repository, hub *broadcast.Hub) *Server {
	return &Server{
		match:   match,
		ledger:  ledger,
		playLog: playLog,
		hub:     hub,
		ctx:     ctx,
	}
}

// Router builds the chi router with all routes mounted
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Post("/match/initialize", s.handleInitialize)
		r.Post("/match/play", s.handleAdvancePlay)
		r.Post("/match/replay", s.handleRequestReplay)
		r.Get("/bets", s.handleGetBets)
		r.Post("/bets", s.handlePlaceBet)
		r.Get("/wallet", s.handleGetWallet)
		r.Get("/transactions", s.handleGetTransactions)
		r.Get("/plays", s.handleGetPlays)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.match.Snapshot())
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	if err := s.match.Initialize(r.Context()); err != nil {
		writeMatchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.match.Snapshot())
}

func (s *Server) handleAdvancePlay(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.match.AdvancePlay(r.Context())
	if err != nil {
		writeMatchError(w, err)
		return
	}

	resp := map[string]interface{}{
		"snapshot": s.match.Snapshot(),
	}
	// Media failures after the commit are reported independently; the
	// turn itself still advanced
	if outcome.VisualErr != nil {
		resp["visualError"] = outcome.VisualErr.Error()
	}
	if outcome.AudioErr != nil {
		resp["audioError"] = outcome.AudioErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRequestReplay(w http.ResponseWriter, r *http.Request) {
	// The poll loop outlives this request, so it runs on the server
	// context rather than the request context
	if err := s.match.RequestReplay(s.ctx); err != nil {
		writeMatchError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "replay started"})
}

type placeBetRequest struct {
	Type   entities.BetType `json:"type"`
	Amount int64            `json:"amount"`
}

func (s *Server) handlePlaceBet(w http.ResponseWriter, r *http.Request) {
	var req placeBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// The slip captures the odds in effect right now
	odds := oddsForBetType(s.match.Snapshot().State.Odds, req.Type)

	bet, err := s.ledger.PlaceBet(r.Context(), req.Type, req.Amount, odds)
	if err != nil {
		switch {
		case errors.Is(err, ledgerService.ErrInsufficientFunds):
			writeError(w, http.StatusPaymentRequired, err.Error())
		case errors.Is(err, ledgerService.ErrInvalidAmount),
			errors.Is(err, ledgerService.ErrInvalidBetType),
			errors.Is(err, ledgerService.ErrInvalidOdds):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusCreated, bet)
}

func (s *Server) handleGetBets(w http.ResponseWriter, r *http.Request) {
	bets, err := s.ledger.GetBets(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, bets)
}

func (s *Server) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := s.ledger.GetWallet(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

func (s *Server) handleGetTransactions(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 20)
	transactions, err := s.ledger.GetRecentTransactions(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, transactions)
}

func (s *Server) handleGetPlays(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 20)
	matchID := s.match.Snapshot().State.ID
	plays, err := s.playLog.GetPlays(r.Context(), matchID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, plays)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[SERVER] WebSocket upgrade error: %v", err)
		return
	}

	c := broadcast.NewClient(uuid.New().String(), conn, s.hub)

	// Seed the new viewer with the current snapshot before the hub or
	// the pumps know about the client, so the channel cannot have been
	// closed yet
	c.Send <- s.match.Snapshot()
	s.hub.Register(c)

	// Use the server context, not the request context, so the pumps
	// survive the upgrade request
	go c.WritePump(s.ctx)
	go c.ReadPump(s.ctx)
}

func oddsForBetType(odds entities.Odds, betType entities.BetType) float64 {
	switch betType {
	case entities.BetHomeWin:
		return odds.HomeWin
	case entities.BetAwayWin:
		return odds.AwayWin
	case entities.BetOver, entities.BetUnder:
		return odds.OverUnder
	}
	return 0
}

func writeMatchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, matchService.ErrMatchBusy),
		errors.Is(err, matchService.ErrReplayInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, matchService.ErrMatchNotIdle),
		errors.Is(err, matchService.ErrMatchNotStarted),
		errors.Is(err, matchService.ErrMatchFinished),
		errors.Is(err, matchService.ErrNoVisual):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		// Generation failures are upstream problems; the match remains
		// resumable and the caller may retry
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[SERVER] Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryLimit(r *http.Request, def int) int {
	value := r.URL.Query().Get("limit")
	if value == "" {
		return def
	}
	limit, err := strconv.Atoi(value)
	if err != nil || limit <= 0 {
		return def
	}
	return limit
}
