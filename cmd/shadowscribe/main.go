// Command shadowscribe is the main entry point for the tabletop-RPG query
// engine: it routes a player's natural-language question across character
// sheet, session-history, and rulebook sources and streams a grounded answer.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/calvin-seamons/shadowscribe/internal/classifier"
	"github.com/calvin-seamons/shadowscribe/internal/config"
	"github.com/calvin-seamons/shadowscribe/internal/entitysearch"
	"github.com/calvin-seamons/shadowscribe/internal/feedback"
	"github.com/calvin-seamons/shadowscribe/internal/health"
	"github.com/calvin-seamons/shadowscribe/internal/observe"
	"github.com/calvin-seamons/shadowscribe/internal/orchestrator"
	"github.com/calvin-seamons/shadowscribe/internal/promptmgr"
	"github.com/calvin-seamons/shadowscribe/internal/registry"
	"github.com/calvin-seamons/shadowscribe/internal/resilience"
	"github.com/calvin-seamons/shadowscribe/internal/retrieval/character"
	"github.com/calvin-seamons/shadowscribe/internal/retrieval/rulebook"
	"github.com/calvin-seamons/shadowscribe/internal/retrieval/session"
	"github.com/calvin-seamons/shadowscribe/internal/tokenbudget"
	"github.com/calvin-seamons/shadowscribe/pkg/domain"
	"github.com/calvin-seamons/shadowscribe/pkg/provider/embeddings"
	embopenai "github.com/calvin-seamons/shadowscribe/pkg/provider/embeddings/openai"
	embollama "github.com/calvin-seamons/shadowscribe/pkg/provider/embeddings/ollama"
	"github.com/calvin-seamons/shadowscribe/pkg/provider/llm"
	"github.com/calvin-seamons/shadowscribe/pkg/provider/llm/anyllm"
	llmopenai "github.com/calvin-seamons/shadowscribe/pkg/provider/llm/openai"
	"github.com/calvin-seamons/shadowscribe/pkg/store"
	"github.com/calvin-seamons/shadowscribe/pkg/store/memstore"
	"github.com/calvin-seamons/shadowscribe/pkg/store/postgres"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	feedbackPath := flag.String("feedback", "feedback.jsonl", "path to the telemetry/feedback JSON-lines file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			defaults := config.Defaults()
			cfg = &defaults
			fmt.Fprintf(os.Stderr, "shadowscribe: config file %q not found — using built-in defaults\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "shadowscribe: %v\n", err)
			return 1
		}
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("shadowscribe starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Observability ─────────────────────────────────────────────────────────
	shutdownObserve, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "shadowscribe"})
	if err != nil {
		slog.Error("failed to init observability providers", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownObserve(shutdownCtx); err != nil {
			slog.Warn("observability shutdown error", "err", err)
		}
	}()

	// ── Providers ──────────────────────────────────────────────────────────────
	llmProvider, err := buildLLMProvider(cfg.Providers.LLM)
	if err != nil {
		slog.Error("failed to build llm provider", "err", err)
		return 1
	}
	llmProvider = wrapWithFallback(llmProvider, cfg.Providers.LLM.Name)

	embedder, err := buildEmbeddingsProvider(cfg.Providers.Embeddings)
	if err != nil {
		slog.Error("failed to build embeddings provider", "err", err)
		return 1
	}

	// ── Registry ───────────────────────────────────────────────────────────────
	reg := registry.New()
	if err := reg.Validate(); err != nil {
		slog.Error("registry failed self-check", "err", fmt.Errorf("%w: %v", domain.ErrRegistryInconsistent, err))
		return 1
	}

	// ── Corpora ────────────────────────────────────────────────────────────────
	characters, sessions, rulebookSections, closeStores, err := buildStores(ctx, *cfg)
	if err != nil {
		slog.Error("failed to open corpus stores", "err", fmt.Errorf("%w: %v", domain.ErrFatalStorage, err))
		return 1
	}
	defer closeStores()

	tokens, err := tokenbudget.Default()
	if err != nil {
		slog.Error("failed to build token counter", "err", err)
		return 1
	}

	characterRetriever := character.New(characters, reg)
	sessionRetriever := session.New(sessions, embedder, reg)
	rulebookRetriever := rulebook.New(rulebookSections, embedder, reg, tokens)

	sessionSource, err := session.NewSource(ctx, sessions)
	if err != nil {
		slog.Error("failed to build session entity source", "err", err)
		return 1
	}
	rulebookSource, err := rulebook.NewSource(ctx, rulebookSections)
	if err != nil {
		slog.Error("failed to build rulebook entity source", "err", err)
		return 1
	}

	// ── Routing, entity resolution, prompts, telemetry ────────────────────────
	var backend classifier.L1Backend = classifier.NewZeroShotBackend(llmProvider, 0)
	classifierEngine := classifier.NewEngine(backend, embedder, cfg.Routing)

	entityEngine := entitysearch.New(entitysearch.WithFuzzyThreshold(cfg.Entity.FuzzyThreshold))

	prompts := promptmgr.New(reg)

	feedbackStore := feedback.NewFileStore(*feedbackPath)

	orch := orchestrator.New(
		classifierEngine,
		entityEngine,
		characterRetriever,
		sessionRetriever,
		rulebookRetriever,
		prompts,
		reg,
		llmProvider,
		characters,
		feedbackStore,
		sessionSource,
		rulebookSource,
		cfg.Limits,
	)

	// ── Health endpoints ───────────────────────────────────────────────────────
	healthHandler := health.New()
	if cfg.Server.ListenAddr != "" {
		go serveHealth(cfg.Server.ListenAddr, healthHandler)
	}

	slog.Info("ready — type a question and press enter; Ctrl+C to quit")

	runREPL(ctx, orch)
	return 0
}

// runREPL drives the orchestrator from stdin for local/interactive use. The
// query engine itself is not HTTP-bound — [orchestrator.Orchestrator.Run]
// streams answers over a Go channel — so this loop is the reference driver
// until a richer transport (Discord, HTTP/SSE) is wired on top of it.
func runREPL(ctx context.Context, orch *orchestrator.Orchestrator) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		qid := fmt.Sprintf("q-%d", time.Now().UnixNano())
		events := orch.Run(ctx, qid, domain.Query{Text: text})
		for ev := range events {
			switch {
			case ev.Err != nil:
				fmt.Fprintf(os.Stderr, "\nerror: %v\n", ev.Err)
			case ev.Chunk != "":
				fmt.Print(ev.Chunk)
			case ev.Done:
				fmt.Println()
			}
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func serveHealth(addr string, h *health.Handler) {
	mux := http.NewServeMux()
	h.Register(mux)
	slog.Info("health endpoints listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Warn("health server stopped", "err", err)
	}
}

// ── Provider wiring ────────────────────────────────────────────────────────────

// buildLLMProvider constructs the configured LLM backend. "openai" uses the
// direct OpenAI SDK wrapper; any other name is passed through to any-llm-go,
// which covers anthropic, gemini, ollama, deepseek, mistral, groq, and the
// local llama.cpp/llamafile backends under one interface.
func buildLLMProvider(entry config.ProviderEntry) (llm.Provider, error) {
	switch entry.Name {
	case "", "openai":
		opts := []llmopenai.Option{}
		if entry.BaseURL != "" {
			opts = append(opts, llmopenai.WithBaseURL(entry.BaseURL))
		}
		return llmopenai.New(entry.APIKey, entry.Model, opts...)
	default:
		return anyllm.New(entry.Name, entry.Model)
	}
}

// buildEmbeddingsProvider constructs the configured embeddings backend.
func buildEmbeddingsProvider(entry config.ProviderEntry) (embeddings.Provider, error) {
	switch entry.Name {
	case "", "openai":
		opts := []embopenai.Option{}
		if entry.BaseURL != "" {
			opts = append(opts, embopenai.WithBaseURL(entry.BaseURL))
		}
		return embopenai.New(entry.APIKey, entry.Model, opts...)
	case "ollama":
		baseURL := entry.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return embollama.New(baseURL, entry.Model)
	default:
		return nil, fmt.Errorf("unsupported embeddings provider %q", entry.Name)
	}
}

// wrapWithFallback wraps the primary LLM provider in a circuit breaker so a
// struggling backend degrades (opens) rather than stalling every routing and
// final-answer call behind it. No secondary backend is configured by
// default; operators add one with [resilience.LLMFallback.AddFallback].
func wrapWithFallback(primary llm.Provider, name string) llm.Provider {
	return resilience.NewLLMFallback(primary, name, resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{Name: name},
	})
}

// buildStores opens the corpus stores. A configured Postgres DSN selects the
// pgvector-backed store for all three corpora; otherwise empty in-memory
// stores back a local/offline run with no persisted characters, sessions,
// or rulebook.
func buildStores(ctx context.Context, cfg config.Config) (store.CharacterStore, store.SessionStore, store.RulebookStore, func(), error) {
	if cfg.Memory.PostgresDSN != "" {
		pg, err := postgres.Open(ctx, cfg.Memory.PostgresDSN, cfg.Memory.EmbeddingDimensions)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		return pg, pg, pg, pg.Close, nil
	}

	slog.Warn("no postgres_dsn configured — running against empty in-memory stores")
	characters := memstore.NewCharacterStore(map[string]domain.Character{})
	sessions := memstore.NewSessionStore(nil)
	sections := memstore.NewRulebookStore(nil)
	return characters, sessions, sections, func() {}, nil
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
