// Package config reads server settings from flags, falling back to CHESS_*
// environment variables.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/benbeisheim/greedychess-backend/internal/model"
	"github.com/gofiber/fiber/v2/log"
)

type Config struct {
	Addr           string
	AllowedOrigins []string
	// EngineColor is the side the engine plays in engine-mode games.
	EngineColor model.Color
	// EngineDelay is how long the engine waits before answering a websocket move.
	EngineDelay         time.Duration
	MatchmakingInterval time.Duration
	LogLevel            log.Level
}

func Default() Config {
	return Config{
		Addr:                ":3000",
		AllowedOrigins:      []string{"http://localhost:5173"},
		EngineColor:         model.Black,
		EngineDelay:         500 * time.Millisecond,
		MatchmakingInterval: time.Second,
		LogLevel:            log.LevelInfo,
	}
}

// Load parses args (without the program name). Unset flags take their value from
// the environment, then from Default.
func Load(args []string) (Config, error) {
	def := Default()
	fs := flag.NewFlagSet("server", flag.ContinueOnError)

	addr := fs.String("addr", getenv("CHESS_ADDR", def.Addr), "listen address")
	origins := fs.String("allowed-origins", getenv("CHESS_ALLOWED_ORIGINS", strings.Join(def.AllowedOrigins, ",")), "comma-separated CORS and websocket origins")
	engineColor := fs.String("engine-color", getenv("CHESS_ENGINE_COLOR", def.EngineColor.String()), "side played by the engine (white|black)")
	engineDelay := fs.String("engine-delay", getenv("CHESS_ENGINE_DELAY", def.EngineDelay.String()), "pause before the engine replies")
	matchmaking := fs.String("matchmaking-interval", getenv("CHESS_MATCHMAKING_INTERVAL", def.MatchmakingInterval.String()), "how often the matchmaking queue is polled")
	logLevel := fs.String("log-level", getenv("CHESS_LOG_LEVEL", "info"), "trace|debug|info|warn|error")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Config{Addr: *addr, AllowedOrigins: splitCSV(*origins)}

	var err error
	if cfg.EngineColor, err = model.ParseColor(*engineColor); err != nil {
		return Config{}, fmt.Errorf("engine-color: %w", err)
	}
	if cfg.EngineDelay, err = time.ParseDuration(*engineDelay); err != nil {
		return Config{}, fmt.Errorf("engine-delay: %w", err)
	}
	if cfg.EngineDelay < 0 {
		return Config{}, fmt.Errorf("engine-delay: must not be negative, got %s", cfg.EngineDelay)
	}
	if cfg.MatchmakingInterval, err = time.ParseDuration(*matchmaking); err != nil {
		return Config{}, fmt.Errorf("matchmaking-interval: %w", err)
	}
	if cfg.MatchmakingInterval <= 0 {
		return Config{}, fmt.Errorf("matchmaking-interval: must be positive, got %s", cfg.MatchmakingInterval)
	}
	if cfg.LogLevel, err = parseLevel(*logLevel); err != nil {
		return Config{}, fmt.Errorf("log-level: %w", err)
	}
	return cfg, nil
}

func parseLevel(s string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return log.LevelTrace, nil
	case "debug":
		return log.LevelDebug, nil
	case "info":
		return log.LevelInfo, nil
	case "warn":
		return log.LevelWarn, nil
	case "error":
		return log.LevelError, nil
	}
	return log.LevelInfo, fmt.Errorf("unknown level %q", s)
}

func splitCSV(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
