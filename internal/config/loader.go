package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":        {"openai", "anyllm", "anthropic", "gemini", "mistral", "groq"},
	"embeddings": {"openai", "ollama"},
}

var validLogLevels = []string{"debug", "info", "warn", "error"}
var validClassifierModes = []string{"zero_shot", "few_shot"}

// Load reads the YAML configuration file at path, layers it over [Defaults],
// and returns a validated [Config].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, layered over [Defaults], and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Defaults()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !slices.Contains(validLogLevels, cfg.Server.LogLevel) {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("embeddings", cfg.Providers.Embeddings.Name)

	if cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm.name is required"))
	}
	if cfg.Providers.Embeddings.Name == "" {
		errs = append(errs, errors.New("providers.embeddings.name is required"))
	}

	if cfg.Routing.ClassifierMode != "" && !slices.Contains(validClassifierModes, cfg.Routing.ClassifierMode) {
		errs = append(errs, fmt.Errorf("routing.classifier_mode %q is invalid; valid values: zero_shot, few_shot", cfg.Routing.ClassifierMode))
	}

	if cfg.Routing.AbstainRiskTau < 0 || cfg.Routing.AbstainRiskTau > 1 {
		errs = append(errs, fmt.Errorf("routing.abstain_risk_tau %.2f is out of range [0, 1]", cfg.Routing.AbstainRiskTau))
	}
	if cfg.Routing.ContextSimTau < 0 || cfg.Routing.ContextSimTau > 1 {
		errs = append(errs, fmt.Errorf("routing.context_sim_tau %.2f is out of range [0, 1]", cfg.Routing.ContextSimTau))
	}
	for name, v := range map[string]float64{
		"routing.thresholds.character":     cfg.Routing.Thresholds.Character,
		"routing.thresholds.rulebook":      cfg.Routing.Thresholds.Rulebook,
		"routing.thresholds.session_notes": cfg.Routing.Thresholds.SessionNotes,
		"routing.thresholds.needs_context": cfg.Routing.Thresholds.NeedsContext,
		"entity.fuzzy_threshold":           cfg.Entity.FuzzyThreshold,
	} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s %.2f is out of range [0, 1]", name, v))
		}
	}

	if cfg.Routing.SimilarityWindow <= 0 {
		errs = append(errs, errors.New("routing.similarity_window must be positive"))
	}
	if cfg.Routing.TopKContext < 0 {
		errs = append(errs, errors.New("routing.topk_context must not be negative"))
	}
	if cfg.Retrieval.Rulebook.K <= 0 {
		errs = append(errs, errors.New("retrieval.rulebook.k must be positive"))
	}
	if cfg.Retrieval.Session.TopK <= 0 {
		errs = append(errs, errors.New("retrieval.session.top_k must be positive"))
	}
	if cfg.Limits.MaxIntentionsPerTool <= 0 {
		errs = append(errs, errors.New("limits.max_intentions_per_tool must be positive"))
	}
	for name, v := range map[string]int{
		"limits.routing_llm_timeout_ms": cfg.Limits.RoutingLLMTimeoutMS,
		"limits.retrieval_timeout_ms":   cfg.Limits.RetrievalTimeoutMS,
		"limits.final_llm_timeout_ms":   cfg.Limits.FinalLLMTimeoutMS,
	} {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}

	if cfg.Providers.Embeddings.Name != "" && cfg.Memory.EmbeddingDimensions <= 0 {
		slog.Warn("providers.embeddings is configured but memory.embedding_dimensions is not set; defaulting to 1536")
	}
	if cfg.Memory.PostgresDSN == "" {
		slog.Warn("memory.postgres_dsn is empty; rulebook and session-notes corpora will not load")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
