package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"labyrinth-server/maze"
)

// MazeHandler serves the current level set.
type MazeHandler struct {
	registry func() *maze.Registry
}

func NewMazeHandler(registry func() *maze.Registry) *MazeHandler {
	return &MazeHandler{registry: registry}
}

func (h *MazeHandler) Routes(r chi.Router) {
	r.Get("/mazes", h.List)
	r.Get("/mazes/{index}", h.Get)
}

type mazeSummary struct {
	Index    int      `json:"index"`
	Name     string   `json:"name"`
	Width    int      `json:"width"`
	Height   int      `json:"height"`
	CellSize float64  `json:"cell_size"`
	Roster   []string `json:"roster"`
}

// List returns every level without its cell rows.
func (h *MazeHandler) List(w http.ResponseWriter, r *http.Request) {
	infos := h.registry().Infos()
	items := make([]mazeSummary, len(infos))
	for i, info := range infos {
		items[i] = mazeSummary{
			Index:    info.Index,
			Name:     info.Name,
			Width:    info.Width,
			Height:   info.Height,
			CellSize: info.CellSize,
			Roster:   info.Roster,
		}
	}
	writeJSON(w, http.StatusOK, apiListResponse[mazeSummary]{Items: items, TotalItems: len(items)})
}

// Get returns one level including its rows.
func (h *MazeHandler) Get(w http.ResponseWriter, r *http.Request) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "index must be an integer")
		return
	}
	info, ok := h.registry().Info(i)
	if !ok {
		errorJSON(w, http.StatusNotFound, "maze not found")
		return
	}
	writeJSON(w, http.StatusOK, info)
}
