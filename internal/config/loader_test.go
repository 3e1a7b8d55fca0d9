package config_test

import (
	"strings"
	"testing"

	"github.com/calvin-seamons/shadowscribe/internal/config"
)

func TestValidate_SimilarityWindowMustBePositive(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  llm:
    name: openai
  embeddings:
    name: openai
routing:
  similarity_window: 0
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for zero similarity_window, got nil")
	}
	if !strings.Contains(err.Error(), "similarity_window") {
		t.Errorf("error should mention similarity_window, got: %v", err)
	}
}

func TestValidate_RulebookKMustBePositive(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  llm:
    name: openai
  embeddings:
    name: openai
retrieval:
  rulebook:
    k: 0
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for zero rulebook.k, got nil")
	}
	if !strings.Contains(err.Error(), "retrieval.rulebook.k") {
		t.Errorf("error should mention retrieval.rulebook.k, got: %v", err)
	}
}

func TestValidate_MaxIntentionsPerToolMustBePositive(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  llm:
    name: openai
  embeddings:
    name: openai
limits:
  max_intentions_per_tool: 0
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for zero max_intentions_per_tool, got nil")
	}
}

func TestValidate_AbstainRiskTauOutOfRange(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  llm:
    name: openai
  embeddings:
    name: openai
routing:
  abstain_risk_tau: 1.2
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for out-of-range abstain_risk_tau, got nil")
	}
	if !strings.Contains(err.Error(), "abstain_risk_tau") {
		t.Errorf("error should mention abstain_risk_tau, got: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	t.Parallel()
	yaml := `
routing:
  similarity_window: -1
  context_sim_tau: 5
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "similarity_window") {
		t.Errorf("error should mention similarity_window, got: %v", err)
	}
	if !strings.Contains(errStr, "context_sim_tau") {
		t.Errorf("error should mention context_sim_tau, got: %v", err)
	}
}

func TestValidProviderNames(t *testing.T) {
	t.Parallel()
	// Sanity-check that the map is populated.
	if len(config.ValidProviderNames) == 0 {
		t.Fatal("ValidProviderNames should not be empty")
	}
	llmNames := config.ValidProviderNames["llm"]
	if len(llmNames) == 0 {
		t.Fatal("ValidProviderNames[\"llm\"] should not be empty")
	}
	found := false
	for _, n := range llmNames {
		if n == "openai" {
			found = true
			break
		}
	}
	if !found {
		t.Error("ValidProviderNames[\"llm\"] should contain \"openai\"")
	}
}

func TestDefaults_AreValid(t *testing.T) {
	t.Parallel()
	cfg := config.Defaults()
	cfg.Providers.LLM.Name = "openai"
	cfg.Providers.Embeddings.Name = "openai"
	if err := config.Validate(&cfg); err != nil {
		t.Fatalf("Defaults() with providers set should validate cleanly, got: %v", err)
	}
}
