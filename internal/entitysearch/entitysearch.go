// Package entitysearch implements the unified three-strategy entity
// resolver (C1): exact, substring, and fuzzy matching against whichever
// sources were selected by routing, with per-query caching of rulebook
// hits.
package entitysearch

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/antzucaro/matchr"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/calvin-seamons/shadowscribe/pkg/domain"
)

const (
	defaultFuzzyThreshold = 0.75
	minSubstringLen       = 3
	rulebookCacheCap      = 100
)

// CharacterSource exposes the character-sheet fields searched for entity
// mentions. Only a small set of text fields participate in matching; the
// full character shape lives in C2.
type CharacterSource interface {
	// Fields returns every searchable (sectionPath, text) pair, e.g.
	// ("inventory", "Longsword of Flame"), ("allies", "Brother Aldric").
	Fields() []SourceField
}

// SessionSource exposes searchable text drawn from session notes: NPC
// names, locations, items, and decision-table keys.
type SessionSource interface {
	Fields() []SourceField
}

// RulebookSource exposes searchable section titles and leaf/non-leaf
// content from the rulebook corpus.
type RulebookSource interface {
	Fields() []SourceField
}

// SourceField is one unit a strategy can match an entity name against.
type SourceField struct {
	SectionPath string
	Text        string
}

// Sources bundles the three optional source handles. A nil source means
// that tool was not selected for this query; Engine.Resolve never touches
// a nil source — requesting a selected tool with a nil source is a
// programmer error (fail fast), per spec §4.1.
type Sources struct {
	Character CharacterSource
	Session   SessionSource
	Rulebook  RulebookSource
}

// Option configures an [Engine].
type Option func(*Engine)

// WithFuzzyThreshold overrides the fuzzy-strategy acceptance floor.
// Default: 0.75.
func WithFuzzyThreshold(threshold float64) Option {
	return func(e *Engine) { e.fuzzyThreshold = threshold }
}

// Engine resolves extracted entities against selected sources using the
// exact < substring < fuzzy strategy priority. Safe for concurrent use
// across queries; the rulebook hit cache is internally synchronized.
type Engine struct {
	fuzzyThreshold float64

	mu    sync.Mutex
	cache *lru.Cache[string, []domain.EntityMatch]
}

// New returns an [Engine] with a bounded (cap 100) per-process rulebook hit
// cache, keyed by normalized entity name.
func New(opts ...Option) *Engine {
	cache, _ := lru.New[string, []domain.EntityMatch](rulebookCacheCap)
	e := &Engine{
		fuzzyThreshold: defaultFuzzyThreshold,
		cache:          cache,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Resolve searches src for every entity in entities, restricted to
// selectedTools; a selected tool whose source in src is nil is an error.
// Returns a map keyed by entity name, each value holding one
// [domain.EntitySearchResult]. An entity with zero matches is still
// present with an empty Matches slice.
func (e *Engine) Resolve(ctx context.Context, entities []domain.Entity, selectedTools []domain.Tool, src Sources) (map[string][]domain.EntitySearchResult, error) {
	results := make(map[string][]domain.EntitySearchResult, len(entities))

	for _, ent := range entities {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		normalized := normalize(ent.Name)
		var matches []domain.EntityMatch

		for _, tool := range selectedTools {
			switch tool {
			case domain.ToolCharacterData:
				if src.Character == nil {
					return nil, fmt.Errorf("entitysearch: character tool selected but no character source provided")
				}
				matches = append(matches, searchFields(tool, normalized, src.Character.Fields(), e.fuzzyThreshold)...)
			case domain.ToolSessionNotes:
				if src.Session == nil {
					return nil, fmt.Errorf("entitysearch: session_notes tool selected but no session source provided")
				}
				matches = append(matches, searchFields(tool, normalized, src.Session.Fields(), e.fuzzyThreshold)...)
			case domain.ToolRulebook:
				if src.Rulebook == nil {
					return nil, fmt.Errorf("entitysearch: rulebook tool selected but no rulebook source provided")
				}
				matches = append(matches, e.searchRulebookCached(normalized, src.Rulebook)...)
			}
		}

		results[ent.Name] = []domain.EntitySearchResult{{
			EntityName: ent.Name,
			Matches:    matches,
		}}
	}
	return results, nil
}

// searchRulebookCached wraps searchFields with the per-query rulebook LRU
// cache keyed by normalized entity name.
func (e *Engine) searchRulebookCached(normalized string, src RulebookSource) []domain.EntityMatch {
	e.mu.Lock()
	if hit, ok := e.cache.Get(normalized); ok {
		e.mu.Unlock()
		return hit
	}
	e.mu.Unlock()

	matches := searchFields(domain.ToolRulebook, normalized, src.Fields(), e.fuzzyThreshold)

	e.mu.Lock()
	e.cache.Add(normalized, matches)
	e.mu.Unlock()

	return matches
}

// searchFields evaluates the three strategies against every field, keeping
// the single best-scoring match per field (exact beats substring beats
// fuzzy, in declared priority order).
func searchFields(tool domain.Tool, normalizedEntity string, fields []SourceField, fuzzyThreshold float64) []domain.EntityMatch {
	var out []domain.EntityMatch
	for _, f := range fields {
		normalizedField := normalize(f.Text)

		if m, ok := matchExact(normalizedEntity, normalizedField); ok {
			out = append(out, domain.EntityMatch{
				SourceTool: tool, SectionPath: f.SectionPath,
				MatchedText: m, Strategy: domain.StrategyExact, Confidence: 1.0,
			})
			continue
		}
		if len(normalizedEntity) >= minSubstringLen {
			if m, ok := matchSubstring(normalizedEntity, normalizedField); ok {
				out = append(out, domain.EntityMatch{
					SourceTool: tool, SectionPath: f.SectionPath,
					MatchedText: m, Strategy: domain.StrategySubstring, Confidence: 0.9,
				})
				continue
			}
		}
		if score := matchr.JaroWinkler(normalizedEntity, normalizedField, false); score >= fuzzyThreshold {
			out = append(out, domain.EntityMatch{
				SourceTool: tool, SectionPath: f.SectionPath,
				MatchedText: f.Text, Strategy: domain.StrategyFuzzy, Confidence: score,
			})
		}
	}
	return out
}

func matchExact(entity, field string) (string, bool) {
	if entity == field {
		return field, true
	}
	return "", false
}

func matchSubstring(entity, field string) (string, bool) {
	if strings.Contains(field, entity) || strings.Contains(entity, field) {
		return field, true
	}
	return "", false
}

// normalize lowercases, trims, strips leading articles, and strips a
// trailing possessive ('s or s').
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, article := range []string{"the ", "a ", "an "} {
		if strings.HasPrefix(s, article) {
			s = strings.TrimPrefix(s, article)
			break
		}
	}
	s = strings.TrimSuffix(s, "'s")
	s = strings.TrimSuffix(s, "s'")
	return strings.TrimSpace(s)
}

// SectionToTool maps a section path prefix to the tool that owns it, used
// by the orchestrator to distribute auto-include sections after entity
// resolution.
func SectionToTool(sectionPath string) domain.Tool {
	switch {
	case strings.HasPrefix(sectionPath, "rulebook:"):
		return domain.ToolRulebook
	case strings.HasPrefix(sectionPath, "session:"):
		return domain.ToolSessionNotes
	default:
		return domain.ToolCharacterData
	}
}
