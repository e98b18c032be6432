package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ServerConfig holds server configuration loaded from environment variables.
type ServerConfig struct {
	HTTPAddr       string
	GRPCAddr       string
	StaticDir      string
	ScoresFile     string
	MazeDir        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
	PathCache      bool
	LevelDuration  time.Duration
	TickInterval   time.Duration
}

// LoadServerConfig reads an optional .env file and then the process environment.
// Variables already present in the environment take precedence over the file.
func LoadServerConfig(envFiles ...string) ServerConfig {
	if err := godotenv.Load(envFiles...); err != nil && !os.IsNotExist(err) {
		log.Printf("[WARN] Could not load env file: %v", err)
	}

	cfg := ServerConfig{
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		GRPCAddr:       getEnv("GRPC_ADDR", ":9090"),
		StaticDir:      getEnv("STATIC_DIR", "./public"),
		ScoresFile:     getEnv("SCORES_FILE", "labyrinth_scores.json"),
		MazeDir:        getEnv("MAZE_DIR", ""),
		ReadTimeout:    parseDuration(getEnv("API_READ_TIMEOUT", "15s"), 15*time.Second),
		WriteTimeout:   parseDuration(getEnv("API_WRITE_TIMEOUT", "15s"), 15*time.Second),
		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		PathCache:      getEnv("PATH_CACHE", "false") == "true",
		LevelDuration:  parseDuration(getEnv("LEVEL_DURATION", ""), LevelDuration),
		TickInterval:   parseDuration(getEnv("TICK_INTERVAL", ""), TICK_INTERVAL),
	}
	if cfg.TickInterval <= 0 {
		log.Printf("[WARN] TICK_INTERVAL must be positive, using %s", TICK_INTERVAL)
		cfg.TickInterval = TICK_INTERVAL
	}
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
