// GoalConvo server — generates goal-oriented synthetic dialogues, serves the
// dataset and evaluation API, and streams pipeline progress over WebSockets.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/goalconvo/goalconvo/pkg/api"
	"github.com/goalconvo/goalconvo/pkg/config"
	"github.com/goalconvo/goalconvo/pkg/evaluator"
	"github.com/goalconvo/goalconvo/pkg/events"
	"github.com/goalconvo/goalconvo/pkg/humaneval"
	"github.com/goalconvo/goalconvo/pkg/llm"
	"github.com/goalconvo/goalconvo/pkg/pipeline"
	"github.com/goalconvo/goalconvo/pkg/store"
	"github.com/goalconvo/goalconvo/pkg/versioning"
)

const (
	wsWriteTimeout  = 10 * time.Second
	shutdownTimeout = 5 * time.Second
	eventBufferSize = 256
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// buildEmbedder picks the embedding backend for semantic evaluation. Gemini
// is preferred when configured; otherwise any OpenAI-compatible provider with
// credentials serves. A nil embedder is fine — evaluation degrades to
// lexical similarity.
func buildEmbedder(ctx context.Context, cfg *config.Config) llm.Embedder {
	if cfg.Providers.Gemini.APIKey != "" {
		embedder, err := llm.NewGeminiEmbedder(ctx, cfg.Providers.Gemini.APIKey)
		if err != nil {
			slog.Warn("Could not create Gemini embedder", "error", err)
		} else {
			return embedder
		}
	}
	timeout := cfg.Generation.Timeout()
	if p := cfg.Providers.OpenAI; p.APIKey != "" {
		return llm.NewOpenAICompatibleEmbedder("openai", p.BaseURL, p.APIKey, timeout)
	}
	if p := cfg.Providers.Local; p.BaseURL != "" {
		return llm.NewOpenAICompatibleEmbedder("local", p.BaseURL, "", timeout)
	}
	slog.Warn("No embedding provider configured, semantic similarity will use lexical fallback")
	return nil
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", envPath, "error", err)
	} else {
		slog.Info("Loaded environment", "path", envPath)
	}

	slog.Info("Starting GoalConvo", "config_dir", *configDir)

	ctx := context.Background()

	// 1. Initialize configuration
	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	// 2. Open the data store
	st, err := store.New(cfg.Data.Dir)
	if err != nil {
		slog.Error("Failed to open data store", "error", err)
		os.Exit(1)
	}
	slog.Info("Data store ready", "dir", st.Dir())

	// 3. Build the LLM provider chain and embedder
	chain, err := llm.BuildChain(ctx, cfg)
	if err != nil {
		slog.Error("Failed to build LLM provider chain", "error", err)
		os.Exit(1)
	}
	slog.Info("LLM providers configured", "providers", chain.Providers())

	embedder := buildEmbedder(ctx, cfg)

	// 4. Event bus and WebSocket connection manager
	bus := events.NewBus(eventBufferSize)
	connManager := events.NewConnectionManager(bus, wsWriteTimeout)

	// 5. Domain services
	versions := versioning.NewManager(st)
	humanEval := humaneval.NewService(st)
	eval := evaluator.New(st, chain, embedder, cfg)
	runner := pipeline.NewRunner(chain, st, bus, versions, eval, cfg)
	slog.Info("Services initialized")

	// 6. HTTP API server
	server := api.NewServer(cfg, runner, versions, humanEval, connManager, st)
	server.SetProviders(chain.Providers())

	addr := ":" + cfg.Server.Port
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// 7. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Received shutdown signal", "signal", sig)
	case err := <-errCh:
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", "error", err)
	}
	slog.Info("GoalConvo stopped")
}
