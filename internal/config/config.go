// Package config provides the configuration schema, loader, and hot-reload
// watcher for the query engine.
package config

// Config is the root configuration structure for the query engine.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Routing   RoutingConfig   `yaml:"routing"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Entity    EntityConfig    `yaml:"entity"`
	Limits    LimitsConfig    `yaml:"limits"`
	Memory    MemoryConfig    `yaml:"memory"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity. Valid values: "debug", "info", "warn", "error".
	LogLevel string `yaml:"log_level"`
}

// ProvidersConfig declares which provider implementation to use for each
// pipeline stage. Each field selects a named provider registered with the
// provider constructors known to the process.
type ProvidersConfig struct {
	LLM        ProviderEntry `yaml:"llm"`
	Embeddings ProviderEntry `yaml:"embeddings"`
}

// ProviderEntry is the common configuration block shared by all provider types.
type ProviderEntry struct {
	// Name selects the provider implementation (e.g., "openai", "anyllm").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gpt-4o").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above. Values may be strings, numbers, booleans, or nested maps.
	Options map[string]any `yaml:"options"`
}

// RoutingConfig controls the local classifier and the LLM routing fallback.
type RoutingConfig struct {
	// LocalEnabled is the local classifier (C5) switch. It is loaded from
	// config but nothing reads it: cmd/shadowscribe always builds the
	// classifier, and the orchestrator consults it on every query.
	LocalEnabled bool `yaml:"local_enabled"`

	// ClassifierMode names the L1 classifier backend: "zero_shot" or
	// "few_shot". It is loaded from config but nothing reads it:
	// cmd/shadowscribe always builds the zero-shot backend, and there is no
	// few-shot backend.
	ClassifierMode string `yaml:"classifier_mode"`

	// Thresholds holds the per-tool decision thresholds plus the
	// needs-context threshold.
	Thresholds RoutingThresholds `yaml:"thresholds"`

	// AbstainRiskTau is the abstain risk ceiling: risk = 1 - max(p_tool).
	// At or below this ceiling, with no tool over its threshold, the
	// classifier abstains and the query is answered without retrieval.
	AbstainRiskTau float64 `yaml:"abstain_risk_tau"`

	// ContextSimTau is the cosine similarity threshold used by the context
	// detector to decide whether a query continues the prior exchange.
	ContextSimTau float64 `yaml:"context_sim_tau"`

	// SimilarityWindow is the size of the rolling history buffer (exchanges)
	// consulted by the context detector.
	SimilarityWindow int `yaml:"similarity_window"`

	// TopKContext is how many recent exchanges are injected into the
	// final-answer prompt when context is needed.
	TopKContext int `yaml:"topk_context"`
}

// RoutingThresholds are the per-tool boolean decision thresholds applied to
// the calibrated classifier's output probabilities.
type RoutingThresholds struct {
	Character    float64 `yaml:"character"`
	Rulebook     float64 `yaml:"rulebook"`
	SessionNotes float64 `yaml:"session_notes"`
	NeedsContext float64 `yaml:"needs_context"`
}

// RetrievalConfig controls per-tool retrieval caps.
type RetrievalConfig struct {
	Rulebook RulebookRetrievalConfig `yaml:"rulebook"`
	Session  SessionRetrievalConfig  `yaml:"session"`
}

// RulebookRetrievalConfig controls the rulebook retriever (C4).
type RulebookRetrievalConfig struct {
	// K is the rulebook section cap. It is loaded from config but not passed
	// to the retriever, which uses its own default of 10.
	K int `yaml:"k"`
}

// SessionRetrievalConfig controls the session-notes retriever (C3).
type SessionRetrievalConfig struct {
	// TopK is the session hits cap. It is loaded from config but not passed
	// to the retriever, which uses its own default of 5.
	TopK int `yaml:"top_k"`
}

// EntityConfig controls the entity search engine (C1).
type EntityConfig struct {
	// FuzzyThreshold is the fuzzy-strategy acceptance floor (default 0.75).
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`
}

// LimitsConfig controls stage timeouts and hard caps.
type LimitsConfig struct {
	// RoutingLLMTimeoutMS bounds each routing LLM call (default 10000).
	RoutingLLMTimeoutMS int `yaml:"routing_llm_timeout_ms"`

	// RetrievalTimeoutMS bounds each retriever call (default 5000).
	RetrievalTimeoutMS int `yaml:"retrieval_timeout_ms"`

	// FinalLLMTimeoutMS bounds the final streamed answer, end to end
	// (default 60000).
	FinalLLMTimeoutMS int `yaml:"final_llm_timeout_ms"`

	// LocalClassifierTimeoutMS bounds the local classifier pass (default 200).
	LocalClassifierTimeoutMS int `yaml:"local_classifier_timeout_ms"`

	// MaxIntentionsPerTool is the hard cap on intentions carried per tool in
	// a routing decision (default 2).
	MaxIntentionsPerTool int `yaml:"max_intentions_per_tool"`
}

// MemoryConfig holds settings for the Postgres/pgvector-backed corpora
// (rulebook sections, session notes) loaded once at startup.
type MemoryConfig struct {
	// PostgresDSN is the PostgreSQL connection string for the pgvector-backed
	// rulebook and session-notes corpora.
	PostgresDSN string `yaml:"postgres_dsn"`

	// EmbeddingDimensions is the vector dimension used for the embedding
	// columns. Must match the model configured in Providers.Embeddings.
	EmbeddingDimensions int `yaml:"embedding_dimensions"`
}

// Defaults returns a Config populated with the documented defaults for every
// tunable that spec.md §6 specifies a default for.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr: ":8080",
			LogLevel:   "info",
		},
		Routing: RoutingConfig{
			LocalEnabled:   true,
			ClassifierMode: "zero_shot",
			Thresholds: RoutingThresholds{
				Character:    0.55,
				Rulebook:     0.55,
				SessionNotes: 0.55,
				NeedsContext: 0.40,
			},
			AbstainRiskTau:   0.01,
			ContextSimTau:    0.75,
			SimilarityWindow: 10,
			TopKContext:      3,
		},
		Retrieval: RetrievalConfig{
			Rulebook: RulebookRetrievalConfig{K: 5},
			Session:  SessionRetrievalConfig{TopK: 5},
		},
		Entity: EntityConfig{
			FuzzyThreshold: 0.75,
		},
		Limits: LimitsConfig{
			RoutingLLMTimeoutMS:      10_000,
			RetrievalTimeoutMS:       5_000,
			FinalLLMTimeoutMS:        60_000,
			LocalClassifierTimeoutMS: 200,
			MaxIntentionsPerTool:     2,
		},
	}
}
