package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/app"
	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/domain"
	"go.uber.org/zap"
)

// Handler exposes the arena use cases over JSON.
type Handler struct {
	arena   *app.ArenaService
	hub     *app.StandingsHub
	auth    *Authenticator
	metrics http.Handler
	obs     RequestObserver
	log     *zap.Logger
	ws      *WSHandler
}

type Option func(*Handler)

// WithMetrics mounts /metrics and counts requests per route.
func WithMetrics(obs RequestObserver, exposition http.Handler) Option {
	return func(h *Handler) {
		h.obs = obs
		h.metrics = exposition
	}
}

func WithLogger(log *zap.Logger) Option { return func(h *Handler) { h.log = log } }

func NewHandler(arena *app.ArenaService, hub *app.StandingsHub, auth *Authenticator, opts ...Option) *Handler {
	h := &Handler{arena: arena, hub: hub, auth: auth, log: zap.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	h.ws = NewWSHandler(hub, h.log)
	return h
}

// Routes builds the HTTP router.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, fn http.HandlerFunc, authenticated bool) {
		var next http.Handler = fn
		if authenticated {
			next = h.auth.Require(next)
		}
		mux.Handle(pattern, observe(h.obs, pattern, next))
	}

	handle("POST /api/v1/selected-problems", h.buyProblem, true)
	handle("GET /api/v1/selected-problems", h.listSelectedProblems, true)
	handle("GET /api/v1/selected-problems/{id}/reward", h.possibleReward, true)
	handle("POST /api/v1/submissions", h.checkSubmission, true)
	handle("GET /api/v1/contestant", h.contestantInfo, true)
	handle("GET /api/v1/contestant/logs", h.contestantLogs, true)
	handle("GET /api/v1/quiz-field", h.quizField, true)
	handle("GET /api/v1/contests/{id}/submissions", h.contestSubmissions, true)
	handle("POST /api/v1/contests/{id}/contestants", h.registerContestant, true)
	handle("GET /api/v1/contests/{id}/standings", h.standings, false)
	handle("GET /ws/standings", h.ws.ServeStandings, false)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}
	return withRequestContext(h.log, mux)
}

type buyRequest struct {
	ProblemCardID int64 `json:"problemCardId"`
}

type buyResponse struct {
	SelectedProblemID int64 `json:"selectedProblemId"`
}

type submitRequest struct {
	SelectedProblemID int64  `json:"selectedProblemId"`
	Answer            string `json:"answer"`
}

type rewardResponse struct {
	SelectedProblemID int64 `json:"selectedProblemId"`
	PossibleReward    int   `json:"possibleReward"`
}

type registerRequest struct {
	UserID int64  `json:"userId"`
	Name   string `json:"name"`
}

type registerResponse struct {
	ContestantID int64 `json:"contestantId"`
	Points       int   `json:"points"`
}

// contestant resolves the authenticated user to their contestant id.
func (h *Handler) contestant(r *http.Request) (int64, error) {
	userID, ok := userFrom(r.Context())
	if !ok {
		return 0, errNoUser
	}
	c, err := h.arena.ResolveContestant(r.Context(), userID)
	if err != nil {
		return 0, err
	}
	return c.ID, nil
}

func (h *Handler) buyProblem(w http.ResponseWriter, r *http.Request) {
	var req buyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	contestantID, err := h.contestant(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := h.arena.BuyProblem(r.Context(), contestantID, req.ProblemCardID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, buyResponse{SelectedProblemID: id})
}

func (h *Handler) listSelectedProblems(w http.ResponseWriter, r *http.Request) {
	contestantID, err := h.contestant(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.arena.GetContestantSelectedProblems(r.Context(), contestantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) possibleReward(w http.ResponseWriter, r *http.Request) {
	spID, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	contestantID, err := h.contestant(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	reward, err := h.arena.PossibleRewardFor(r.Context(), contestantID, spID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rewardResponse{SelectedProblemID: spID, PossibleReward: reward})
}

func (h *Handler) checkSubmission(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	contestantID, err := h.contestant(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.arena.CheckSubmission(r.Context(), contestantID, req.SelectedProblemID, req.Answer)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) contestantInfo(w http.ResponseWriter, r *http.Request) {
	contestantID, err := h.contestant(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	info, err := h.arena.GetContestantInfo(r.Context(), contestantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *Handler) contestantLogs(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	contestantID, err := h.contestant(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := h.arena.GetContestantLogs(r.Context(), contestantID, offset, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) quizField(w http.ResponseWriter, r *http.Request) {
	contestantID, err := h.contestant(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.arena.GetQuizFieldForContestant(r.Context(), contestantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) contestSubmissions(w http.ResponseWriter, r *http.Request) {
	contestID, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	mine, err := queryBool(r, "mine")
	if err != nil {
		writeError(w, r, err)
		return
	}
	userID, ok := userFrom(r.Context())
	if !ok {
		writeError(w, r, errNoUser)
		return
	}
	feed, err := h.arena.GetContestSubmissions(r.Context(), userID, contestID, mine, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feed)
}

func (h *Handler) registerContestant(w http.ResponseWriter, r *http.Request) {
	contestID, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req registerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	userID, ok := userFrom(r.Context())
	if !ok {
		writeError(w, r, errNoUser)
		return
	}
	c, err := h.arena.RegisterContestant(r.Context(), userID, contestID, req.UserID, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, registerResponse{ContestantID: c.ID, Points: c.Points})
}

func (h *Handler) standings(w http.ResponseWriter, r *http.Request) {
	contestID, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	st, hit, err := h.hub.Standings(r.Context(), contestID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if hit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	writeJSON(w, http.StatusOK, st)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed body: %v", domain.ErrInvalidArgument, err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad id %q", domain.ErrInvalidArgument, r.PathValue("id"))
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: bad %s %q", domain.ErrInvalidArgument, name, raw)
	}
	return v, nil
}

func queryBool(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: bad %s %q", domain.ErrInvalidArgument, name, raw)
	}
	return v, nil
}
