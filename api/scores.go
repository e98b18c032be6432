package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"labyrinth-server/leaderboard"
)

// ScoreHandler serves the leaderboard.
type ScoreHandler struct {
	board *leaderboard.Board
}

func NewScoreHandler(board *leaderboard.Board) *ScoreHandler {
	return &ScoreHandler{board: board}
}

// Routes registers score routes.
func (h *ScoreHandler) Routes(r chi.Router) {
	r.Get("/scores", h.List)
	r.Post("/scores", h.Submit)
	r.Get("/scores/qualifies", h.Qualifies)
}

// List returns the board, fastest first. ?limit=n trims it.
func (h *ScoreHandler) List(w http.ResponseWriter, r *http.Request) {
	top := h.board.Top()
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			errorJSON(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		if n < len(top) {
			top = top[:n]
		}
	}
	writeJSON(w, http.StatusOK, apiListResponse[leaderboard.Entry]{Items: top, TotalItems: len(top)})
}

type submitScoreRequest struct {
	Name string   `json:"name"`
	Time *float64 `json:"time"`
}

type submitScoreResponse struct {
	Rank  int               `json:"rank"`
	Entry leaderboard.Entry `json:"entry"`
}

// Submit records a completed run. The response rank is 0 when the run missed the board.
func (h *ScoreHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Time == nil {
		errorJSON(w, http.StatusBadRequest, "time is required")
		return
	}
	entry := leaderboard.Entry{Name: req.Name, Time: *req.Time}
	rank, err := h.board.Insert(entry)
	if errors.Is(err, leaderboard.ErrInvalidEntry) {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "could not save score")
		return
	}
	status := http.StatusOK
	if rank > 0 {
		status = http.StatusCreated
		entry = h.board.Top()[rank-1]
	}
	writeJSON(w, status, submitScoreResponse{Rank: rank, Entry: entry})
}

// Qualifies reports whether ?time=seconds would make the board.
func (h *ScoreHandler) Qualifies(w http.ResponseWriter, r *http.Request) {
	t, err := strconv.ParseFloat(r.URL.Query().Get("time"), 64)
	if err != nil || t < 0 {
		errorJSON(w, http.StatusBadRequest, "time must be a non-negative number")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"qualifies": h.board.Qualifies(t)})
}
