package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/calvin-seamons/shadowscribe/pkg/provider/llm"
	"github.com/calvin-seamons/shadowscribe/pkg/types"
)

// labelDescriptions grounds the zero-shot entailment prompt: a short natural
// language description per label, read verbatim by the model as the
// "hypothesis" it is entailing against the query.
var labelDescriptions = map[Label]string{
	LabelCharacter:    "the query asks about the player's own character sheet: stats, inventory, spells, features, or background",
	LabelSessionNotes: "the query asks about what happened in a past game session: NPCs, locations, items, or decisions made at the table",
	LabelRulebook:     "the query asks about a game rule: how a mechanic works, what an action or condition does",
	LabelNeedsContext: "the query only makes sense combined with what was just discussed, e.g. it uses a pronoun or continues a prior answer",
}

// zeroShotOrder fixes the order in which labels are listed in the prompt
// and read back from the response. The response is read by JSON key only;
// a label missing from it reads as logit 0.
var zeroShotOrder = []Label{LabelCharacter, LabelSessionNotes, LabelRulebook, LabelNeedsContext}

// ZeroShotBackend implements [L1Backend] via entailment scoring from a
// general-purpose LLM: no training data, per spec §4.5's first back-end
// option. The model returns a raw logit per label, which this backend then
// calibrates with temperature scaling before handing back probabilities —
// training the temperature itself is out of scope, so Temperature is a
// configured constant fit offline.
type ZeroShotBackend struct {
	client      llm.Provider
	temperature float64
}

// NewZeroShotBackend returns a ZeroShotBackend. temperature is the offline
// fit constant from spec §4.5's calibration step; pass 1.0 for no scaling.
func NewZeroShotBackend(client llm.Provider, temperature float64) *ZeroShotBackend {
	if temperature <= 0 {
		temperature = 1.0
	}
	return &ZeroShotBackend{client: client, temperature: temperature}
}

type zeroShotLogits struct {
	Character    float64 `json:"character_data"`
	SessionNotes float64 `json:"session_notes"`
	Rulebook     float64 `json:"rulebook"`
	NeedsContext float64 `json:"needs_context"`
}

// Probabilities asks the model to entail each label description against the
// query as an independent binary judgment, then applies temperature-scaled
// sigmoid calibration per label (multi-label, so no cross-label softmax).
func (b *ZeroShotBackend) Probabilities(ctx context.Context, query string) (map[Label]float64, error) {
	resp, err := b.client.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: entailmentSystemPrompt(),
		Messages: []types.Message{
			{Role: "user", Content: query},
		},
		Temperature: 0,
		MaxTokens:   128,
	})
	if err != nil {
		return nil, fmt.Errorf("classifier: zero-shot completion: %w", err)
	}

	var logits zeroShotLogits
	if err := json.Unmarshal([]byte(extractJSON(resp.Content)), &logits); err != nil {
		return nil, fmt.Errorf("classifier: zero-shot response parse: %w", err)
	}

	raw := map[Label]float64{
		LabelCharacter:    logits.Character,
		LabelSessionNotes: logits.SessionNotes,
		LabelRulebook:     logits.Rulebook,
		LabelNeedsContext: logits.NeedsContext,
	}

	out := make(map[Label]float64, len(zeroShotOrder))
	for _, l := range zeroShotOrder {
		out[l] = sigmoid(raw[l] / b.temperature)
	}
	return out, nil
}

func entailmentSystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a routing classifier for a tabletop RPG assistant. ")
	b.WriteString("For the user's query, judge how strongly it entails each of the following statements, ")
	b.WriteString("as a raw real-valued logit (not a probability; any real number, typically between -4 and 4):\n")
	for _, l := range zeroShotOrder {
		fmt.Fprintf(&b, "- %s: %s\n", l, labelDescriptions[l])
	}
	b.WriteString("Respond with ONLY a JSON object: {\"character_data\": <logit>, \"session_notes\": <logit>, \"rulebook\": <logit>, \"needs_context\": <logit>}")
	return b.String()
}

// extractJSON trims leading/trailing prose some models add around the JSON
// object despite instructions, returning the first {...} span found.
func extractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
