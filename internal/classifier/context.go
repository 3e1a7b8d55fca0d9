package classifier

import (
	"context"
	"math"
	"regexp"
	"strings"
	"sync"

	"github.com/calvin-seamons/shadowscribe/pkg/domain"
	"github.com/calvin-seamons/shadowscribe/pkg/provider/embeddings"
)

// pronounEllipsisPattern heuristically flags queries that only make sense in
// light of the prior exchange: a leading pronoun/ellipsis ("it", "that",
// "and then?", "what about...").
var pronounEllipsisPattern = regexp.MustCompile(`(?i)^\s*(it|that|they|what about|and\s|also\s|then\??\s*$)`)

// exchangeEmbedding pairs one (query, answer) exchange with its embedding,
// used for the rolling-buffer similarity check.
type exchangeEmbedding struct {
	exchange domain.Exchange
	vector   []float32
}

// ContextDetector maintains a rolling buffer of the last N (query, answer)
// embeddings and decides whether the current query needs_context per spec
// §4.5. Safe for concurrent use.
type ContextDetector struct {
	embedder embeddings.Provider
	window   int
	simTau   float64
	topK     int

	mu     sync.Mutex
	buffer []exchangeEmbedding
}

// NewContextDetector returns a ContextDetector with a rolling buffer capped
// at window exchanges, flagging needs_context at cosine similarity ≥ simTau,
// and surfacing up to topK recent exchanges when it fires.
func NewContextDetector(embedder embeddings.Provider, window int, simTau float64, topK int) *ContextDetector {
	return &ContextDetector{embedder: embedder, window: window, simTau: simTau, topK: topK}
}

// Record appends a completed exchange to the rolling buffer, embedding its
// query text. The buffer is trimmed to the configured window size.
func (d *ContextDetector) Record(ctx context.Context, ex domain.Exchange) error {
	vec, err := d.embedder.Embed(ctx, ex.Query)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buffer = append(d.buffer, exchangeEmbedding{exchange: ex, vector: vec})
	if len(d.buffer) > d.window {
		d.buffer = d.buffer[len(d.buffer)-d.window:]
	}
	return nil
}

// ContextResult is the outcome of a [ContextDetector.Detect] call.
type ContextResult struct {
	NeedsContext bool
	Snippets     []domain.Exchange
}

// Detect decides whether query needs the rolling context buffer: either the
// heuristic pronoun/ellipsis pattern fires, or the max cosine similarity to
// a buffered exchange's query embedding reaches simTau.
func (d *ContextDetector) Detect(ctx context.Context, query string) (ContextResult, error) {
	if pronounEllipsisPattern.MatchString(query) {
		return ContextResult{NeedsContext: true, Snippets: d.recentSnippets()}, nil
	}

	d.mu.Lock()
	buf := append([]exchangeEmbedding(nil), d.buffer...)
	d.mu.Unlock()
	if len(buf) == 0 {
		return ContextResult{}, nil
	}

	qv, err := d.embedder.Embed(ctx, query)
	if err != nil {
		return ContextResult{}, err
	}

	maxSim := -1.0
	for _, e := range buf {
		if sim := cosineSimilarity(qv, e.vector); sim > maxSim {
			maxSim = sim
		}
	}
	if maxSim >= d.simTau {
		return ContextResult{NeedsContext: true, Snippets: d.recentSnippets()}, nil
	}
	return ContextResult{}, nil
}

// recentSnippets returns up to topK of the most recent buffered exchanges,
// oldest first.
func (d *ContextDetector) recentSnippets() []domain.Exchange {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := d.topK
	if n > len(d.buffer) {
		n = len(d.buffer)
	}
	out := make([]domain.Exchange, n)
	start := len(d.buffer) - n
	for i := 0; i < n; i++ {
		out[i] = d.buffer[start+i].exchange
	}
	return out
}

// Reset clears the rolling buffer, e.g. at the start of a new session.
func (d *ContextDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buffer = nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, magA, magB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// looksLikeEllipsis reports whether s is empty or whitespace only. Nothing
// in the package calls it.
func looksLikeEllipsis(s string) bool {
	return strings.TrimSpace(s) == ""
}
