// Package session implements the session-notes retriever (C3): a hybrid of
// structured table lookups and semantic embedding search, fused per the
// intention's declared strategy and trimmed to top_k.
package session

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/calvin-seamons/shadowscribe/internal/registry"
	"github.com/calvin-seamons/shadowscribe/pkg/domain"
	"github.com/calvin-seamons/shadowscribe/pkg/provider/embeddings"
	"github.com/calvin-seamons/shadowscribe/pkg/store"
)

const defaultTopK = 5

// Retriever answers session_notes queries against a [store.SessionStore].
type Retriever struct {
	sessions   store.SessionStore
	embedder   embeddings.Provider
	intentions *registry.Registry
}

// New returns a Retriever backed by sessions for note data, embedder for the
// semantic lookup primitive, and reg for intention-to-strategy mapping.
func New(sessions store.SessionStore, embedder embeddings.Provider, reg *registry.Registry) *Retriever {
	return &Retriever{sessions: sessions, embedder: embedder, intentions: reg}
}

// Query implements C3's contract: query(user_query, intention, entities,
// top_k, auto_include?) → [SessionSearchResult].
func (r *Retriever) Query(ctx context.Context, userQuery string, intentionName string, entities []string, topK int, autoInclude []string) ([]domain.SessionSearchResult, error) {
	if topK <= 0 {
		topK = defaultTopK
	}

	intention, err := r.intentions.Session(intentionName)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	notes, err := r.sessions.Notes(ctx)
	if err != nil {
		return nil, fmt.Errorf("session: load notes: %w", err)
	}
	if intention.TemporalPolicy == "recent_n" && intention.RecentN > 0 {
		notes = lastNSessions(notes, intention.RecentN)
	}

	var structuredHits, semanticHits []domain.SessionSearchResult
	switch intention.Strategy {
	case registry.StrategyStructured:
		structuredHits = structuredLookup(notes, entities)
	case registry.StrategySemantic:
		semanticHits, err = r.semanticLookup(ctx, notes, userQuery, topK)
		if err != nil {
			return nil, err
		}
	case registry.StrategyFused:
		structuredHits = structuredLookup(notes, entities)
		semanticHits, err = r.semanticLookup(ctx, notes, userQuery, topK)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("session: intention %q has no usable strategy", intentionName)
	}

	for _, id := range autoInclude {
		structuredHits = append(structuredHits, autoIncludeHit(notes, id)...)
	}

	return fuse(structuredHits, semanticHits, topK), nil
}

// structuredLookup scans every session for entity-name membership in its
// NPC/location/item/decision tables, returning hits ordered by descending
// session number per spec §4.3.
func structuredLookup(notes []domain.SessionNote, entities []string) []domain.SessionSearchResult {
	if len(entities) == 0 {
		return nil
	}
	var hits []domain.SessionSearchResult
	for _, n := range notes {
		for _, e := range entities {
			if matchesStructuredTables(n, e) {
				hits = append(hits, domain.SessionSearchResult{
					SessionNumber: n.SessionNumber,
					SnippetID:     fmt.Sprintf("%d:summary", n.SessionNumber),
					Snippet:       n.Summary,
					Score:         1.0,
					FromStructured: true,
				})
				break
			}
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].SessionNumber > hits[j].SessionNumber })
	return hits
}

func matchesStructuredTables(n domain.SessionNote, entity string) bool {
	needle := strings.ToLower(entity)
	for name := range n.NPCs {
		if strings.Contains(strings.ToLower(name), needle) {
			return true
		}
	}
	for _, loc := range n.Locations {
		if strings.Contains(strings.ToLower(loc), needle) {
			return true
		}
	}
	for _, item := range n.Items {
		if strings.Contains(strings.ToLower(item), needle) {
			return true
		}
	}
	for who, decisions := range n.Decisions {
		if strings.Contains(strings.ToLower(who), needle) {
			return true
		}
		for _, d := range decisions {
			if strings.Contains(strings.ToLower(d), needle) {
				return true
			}
		}
	}
	return false
}

// semanticLookup embeds userQuery and scores it against every session's
// summary embedding and per-event embeddings by dot-product, returning the
// top-k hits.
func (r *Retriever) semanticLookup(ctx context.Context, notes []domain.SessionNote, userQuery string, topK int) ([]domain.SessionSearchResult, error) {
	qv, err := r.embedder.Embed(ctx, userQuery)
	if err != nil {
		return nil, fmt.Errorf("session: embed query: %w", err)
	}

	var scored []domain.SessionSearchResult
	for _, n := range notes {
		if len(n.SummaryEmbedding) > 0 {
			scored = append(scored, domain.SessionSearchResult{
				SessionNumber: n.SessionNumber,
				SnippetID:     fmt.Sprintf("%d:summary", n.SessionNumber),
				Snippet:       n.Summary,
				Score:         dot(qv, n.SummaryEmbedding),
			})
		}
		for i, ev := range n.EventEmbeddings {
			scored = append(scored, domain.SessionSearchResult{
				SessionNumber: n.SessionNumber,
				SnippetID:     fmt.Sprintf("%d:event:%d", n.SessionNumber, i),
				Snippet:       ev.Text,
				Score:         dot(qv, ev.Vector),
			})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func autoIncludeHit(notes []domain.SessionNote, snippetID string) []domain.SessionSearchResult {
	for _, n := range notes {
		if snippetID == fmt.Sprintf("%d:summary", n.SessionNumber) {
			return []domain.SessionSearchResult{{
				SessionNumber: n.SessionNumber, SnippetID: snippetID, Snippet: n.Summary,
				Score: 1.0, FromStructured: true,
			}}
		}
	}
	return nil
}

// fuse merges structured hits first, then semantic hits, dedups by
// (session_number, snippet_id), and trims to top_k per spec §4.3's fusion rule.
func fuse(structured, semantic []domain.SessionSearchResult, topK int) []domain.SessionSearchResult {
	seen := make(map[string]struct{})
	var out []domain.SessionSearchResult
	for _, h := range append(append([]domain.SessionSearchResult{}, structured...), semantic...) {
		key := fmt.Sprintf("%d|%s", h.SessionNumber, h.SnippetID)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, h)
		if len(out) == topK {
			break
		}
	}
	return out
}

func lastNSessions(notes []domain.SessionNote, n int) []domain.SessionNote {
	if len(notes) <= n {
		return notes
	}
	return notes[len(notes)-n:]
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
