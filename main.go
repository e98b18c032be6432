package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"labyrinth-server/api"
	"labyrinth-server/config"
	"labyrinth-server/leaderboard"
	"labyrinth-server/maze"
	"labyrinth-server/rpc"
	"labyrinth-server/server"
)

func main() {
	cfg := config.LoadServerConfig()

	registry, err := maze.BuildRegistry(cfg.MazeDir)
	if err != nil {
		log.Fatalf("maze load error: %v", err)
	}
	log.Printf("Loaded %d levels.", registry.Len())

	board, err := leaderboard.Open(leaderboard.NewFileStore(cfg.ScoresFile), config.LeaderboardSize)
	if err != nil {
		log.Fatalf("leaderboard load error: %v", err)
	}

	sessions := server.NewSessionManager(registry, board, server.SessionConfig{
		TickInterval:  cfg.TickInterval,
		LevelDuration: cfg.LevelDuration,
		PathCache:     cfg.PathCache,
	})
	gameServer := server.NewGameServer(sessions, cfg.AllowedOrigins)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MazeDir != "" {
		go watchMazes(ctx, cfg.MazeDir, sessions)
	}

	metrics := api.NewMetricsHandler(gameServer, 0)
	r := chi.NewRouter()
	r.Mount("/api", api.NewAPIRouter(gameServer, board, metrics, cfg.AllowedOrigins))
	r.HandleFunc("/ws", gameServer.HandleConnections)
	if static := api.StaticFileServer(cfg.StaticDir, "/index.html"); static != nil {
		r.Handle("/*", static)
	}

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	grpcServer, grpcHealth := rpc.NewServer(board)
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", cfg.GRPCAddr, err)
	}
	go func() {
		log.Printf("gRPC server listening on %s", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Printf("gRPC server stopped: %v", err)
		}
	}()

	go func() {
		log.Printf("Server started on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metrics.RecordWebSocketError(err.Error())
			log.Fatal("ListenAndServe:", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	metrics.SetWebSocketStatus(api.WebSocketStopping)
	grpcHealth.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	gameServer.Shutdown()
	grpcServer.GracefulStop()
	log.Println("Server stopped.")
}

// watchMazes rebuilds the level set whenever a maze file changes. Sessions pick it up on restart.
func watchMazes(ctx context.Context, dir string, sessions *server.SessionManager) {
	w, err := maze.NewWatcher(dir)
	if err != nil {
		log.Printf("WARNING: maze directory %s not watched: %v", dir, err)
		return
	}
	defer w.Close()

	for {
		select {
		case path, ok := <-w.Events:
			if !ok {
				return
			}
			registry, err := maze.BuildRegistry(dir)
			if err != nil {
				log.Printf("ERROR: reload after change to %s failed, keeping current levels: %v", path, err)
				continue
			}
			if err := sessions.SetRegistry(registry); err != nil {
				log.Printf("ERROR: levels after change to %s rejected, keeping current levels: %v", path, err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Printf("WARNING: maze watcher: %v", err)
		case <-ctx.Done():
			return
		}
	}
}
