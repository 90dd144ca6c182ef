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

	"github.com/tabla-live/tabla-server/internal/game"
	"github.com/tabla-live/tabla-server/internal/msgcat"
	"github.com/tabla-live/tabla-server/internal/obslog"
	"github.com/tabla-live/tabla-server/internal/render"
	"github.com/tabla-live/tabla-server/internal/tournament"
	"github.com/tabla-live/tabla-server/internal/ws"
	"github.com/tabla-live/tabla-server/pkg/tabladto"
)

// Handler exposes the match and tournament managers over HTTP.
type Handler struct {
	games       *game.Manager
	tournaments *tournament.Manager
	hub         *ws.Hub
	cat         *msgcat.Catalog
	ready       func(ctx context.Context) error
}

func NewHandler(games *game.Manager, tournaments *tournament.Manager, hub *ws.Hub, cat *msgcat.Catalog, ready func(ctx context.Context) error) *Handler {
	return &Handler{
		games:       games,
		tournaments: tournaments,
		hub:         hub,
		cat:         cat,
		ready:       ready,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)
	r.Get("/ready", h.readyCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/games", func(r chi.Router) {
			r.Post("/", h.createGame)
			r.Route("/{gameID}", func(r chi.Router) {
				r.Get("/", h.getGame)
				r.Post("/roll", h.rollDice)
				r.Post("/moves", h.makeMove)
				r.Post("/claim", h.claimWinnings)
				r.Get("/board.png", h.boardPNG)
				r.Get("/ws", h.spectate)
			})
		})
		r.Get("/players/{playerID}/active-game", h.activeGame)
		r.Get("/accounts/{account}/balance", h.ledgerBalance)
		r.Route("/tournaments", func(r chi.Router) {
			r.Post("/", h.createTournament)
			r.Route("/{tournamentID}", func(r chi.Router) {
				r.Get("/", h.getTournament)
				r.Post("/register", h.register)
			})
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) readyCheck(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ready(ctx); err != nil {
			h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) createGame(w http.ResponseWriter, r *http.Request) {
	var req tabladto.CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w)
		return
	}
	g, err := h.games.CreateGame(r.Context(), req.PlayerA, req.PlayerB, req.Stake)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, g.View())
}

func (h *Handler) getGame(w http.ResponseWriter, r *http.Request) {
	g, err := h.games.GetGame(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, g.View())
}

func (h *Handler) rollDice(w http.ResponseWriter, r *http.Request) {
	var req tabladto.RollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w)
		return
	}
	g, err := h.games.RollDice(r.Context(), chi.URLParam(r, "gameID"), req.Player)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tabladto.RollResponse{Die1: g.Die1, Die2: g.Die2, Game: g.View()})
}

func (h *Handler) makeMove(w http.ResponseWriter, r *http.Request) {
	var req tabladto.MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w)
		return
	}
	g, err := h.games.MakeMove(r.Context(), chi.URLParam(r, "gameID"), req.Player, req.From, req.To)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := tabladto.MoveResponse{Game: g.View()}
	if g.Winner != "" {
		out.Message = h.cat.Render("game.finished", map[string]any{"Winner": g.Winner})
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) claimWinnings(w http.ResponseWriter, r *http.Request) {
	var req tabladto.ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w)
		return
	}
	s, err := h.games.ClaimWinnings(r.Context(), chi.URLParam(r, "gameID"), req.Player)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tabladto.SettlementView{
		GameID:    s.GameID,
		Winner:    s.Winner,
		Pot:       s.Pot,
		Payout:    s.Payout,
		Fee:       s.Fee,
		ClaimedAt: s.ClaimedAt,
		Message: h.cat.Render("game.claimed", map[string]any{
			"Pot": s.Pot, "Payout": s.Payout, "Fee": s.Fee,
		}),
	})
}

func (h *Handler) boardPNG(w http.ResponseWriter, r *http.Request) {
	g, err := h.games.GetGame(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	opts := render.Options{}
	if g.DiceRolled {
		opts.Die1, opts.Die2 = g.Die1, g.Die2
	}
	if v := r.URL.Query().Get("width"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 64 && n <= 4096 {
			opts.Width = n
		}
	}
	data, err := render.BoardPNG(r.Context(), &g.Board, g.OffA, g.OffB, opts)
	if err != nil {
		obslog.L().Error("board render failed", zap.String("game_id", g.ID), zap.Error(err))
		h.writeErrorCode(w, http.StatusInternalServerError, "internal")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) spectate(w http.ResponseWriter, r *http.Request) {
	g, err := h.games.GetGame(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.hub.Serve(w, r, g.ID, g.View())
}

func (h *Handler) activeGame(w http.ResponseWriter, r *http.Request) {
	g, err := h.games.GetActiveGameByUser(r.Context(), chi.URLParam(r, "playerID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if g == nil {
		h.writeErrorCode(w, http.StatusNotFound, "game_not_found")
		return
	}
	h.writeJSON(w, http.StatusOK, g.View())
}

func (h *Handler) ledgerBalance(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	bal, err := h.games.LedgerBalance(r.Context(), account)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"account": account, "balance": bal})
}

func (h *Handler) createTournament(w http.ResponseWriter, r *http.Request) {
	var req tabladto.CreateTournamentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w)
		return
	}
	t, err := h.tournaments.Create(r.Context(), req.Organizer, req.EntryFee, req.MaxSeats)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, tournamentView(t))
}

func (h *Handler) getTournament(w http.ResponseWriter, r *http.Request) {
	t, err := h.tournaments.Get(r.Context(), chi.URLParam(r, "tournamentID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tournamentView(t))
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req tabladto.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w)
		return
	}
	t, err := h.tournaments.Register(r.Context(), chi.URLParam(r, "tournamentID"), req.Player)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tournamentView(t))
}

func tournamentView(t *tournament.Tournament) tabladto.TournamentView {
	return tabladto.TournamentView{
		ID:        t.ID,
		Organizer: t.Organizer,
		EntryFee:  t.EntryFee,
		MaxSeats:  t.MaxParticipants,
		Players:   t.Participants,
		PrizePool: t.PrizePool,
		Started:   t.Started,
		CanStart:  t.CanStart(),
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (h *Handler) badRequest(w http.ResponseWriter) {
	h.writeErrorCode(w, http.StatusBadRequest, "bad_request")
}

// writeError maps domain sentinels onto HTTP statuses with a catalog
// message for each.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, game.ErrGameNotFound):
		status, code = http.StatusNotFound, "game_not_found"
	case errors.Is(err, game.ErrNotYourTurn):
		status, code = http.StatusForbidden, "not_your_turn"
	case errors.Is(err, game.ErrNotWinner):
		status, code = http.StatusForbidden, "not_winner"
	case errors.Is(err, game.ErrDiceNotRolled):
		status, code = http.StatusConflict, "dice_not_rolled"
	case errors.Is(err, game.ErrDiceAlreadyRolled):
		status, code = http.StatusConflict, "dice_already_rolled"
	case errors.Is(err, game.ErrInvalidMove):
		status, code = http.StatusUnprocessableEntity, "invalid_move"
	case errors.Is(err, game.ErrGameEnded):
		status, code = http.StatusConflict, "game_ended"
	case errors.Is(err, game.ErrGameNotEnded):
		status, code = http.StatusConflict, "game_not_ended"
	case errors.Is(err, game.ErrAlreadyClaimed):
		status, code = http.StatusConflict, "already_claimed"
	case errors.Is(err, game.ErrInsufficientFunds):
		status, code = http.StatusPaymentRequired, "insufficient_funds"
	case errors.Is(err, game.ErrConcurrentUpdate):
		status, code = http.StatusConflict, "concurrent_update"
	case errors.Is(err, tournament.ErrNotFound):
		status, code = http.StatusNotFound, "tournament_not_found"
	case errors.Is(err, tournament.ErrFull):
		status, code = http.StatusConflict, "tournament_full"
	case errors.Is(err, tournament.ErrStarted):
		status, code = http.StatusConflict, "tournament_started"
	case errors.Is(err, tournament.ErrAlreadyRegistered):
		status, code = http.StatusConflict, "already_registered"
	case errors.Is(err, tournament.ErrConcurrentUpdate):
		status, code = http.StatusConflict, "concurrent_update"
	case errors.Is(err, tournament.ErrInvalidArgument):
		status, code = http.StatusBadRequest, "bad_request"
	default:
		// Validation errors from the managers surface as plain errors;
		// anything the caller caused maps to 400.
		if game.IsCallerError(err) {
			status, code = http.StatusBadRequest, "bad_request"
		} else {
			obslog.L().Error("request failed", zap.Error(err))
		}
	}
	h.writeErrorCode(w, status, code)
}

func (h *Handler) writeErrorCode(w http.ResponseWriter, status int, code string) {
	h.writeJSON(w, status, tabladto.ErrorResponse{
		Code:    code,
		Message: h.cat.Render("error."+code, nil),
	})
}
