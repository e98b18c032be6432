package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"labyrinth-server/leaderboard"
	"labyrinth-server/server"
)

// NewAPIRouter builds the /api router with middlewares and routes.
func NewAPIRouter(gameServer *server.GameServer, board *leaderboard.Board, metrics *MetricsHandler, allowedOrigins []string) chi.Router {
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	sh := NewScoreHandler(board)
	mz := NewMazeHandler(gameServer.Sessions().Registry)
	if metrics == nil {
		metrics = NewMetricsHandler(gameServer, 0)
	}
	r.Route("/v1", func(sub chi.Router) {
		sub.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		sh.Routes(sub)
		mz.Routes(sub)
		metrics.Routes(sub)
	})

	return r
}
