// Package rulebook implements the rulebook retriever (C4): category-filtered
// candidate selection, multi-factor scoring, HNSW-backed approximate nearest
// neighbor search, and token-budgeted content selection over the
// recursively-concatenated top sections.
package rulebook

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/coder/hnsw"

	"github.com/calvin-seamons/shadowscribe/internal/registry"
	"github.com/calvin-seamons/shadowscribe/internal/tokenbudget"
	"github.com/calvin-seamons/shadowscribe/pkg/domain"
	"github.com/calvin-seamons/shadowscribe/pkg/provider/embeddings"
	"github.com/calvin-seamons/shadowscribe/pkg/store"
)

const (
	defaultK = 10

	entityTitleWeight    = 0.20
	entityLeafWeight     = 0.15
	entityNonLeafWeight  = 0.10
	entityBoostCap       = 0.4
	contextBoostPerHit   = 0.05
	contextBoostCap      = 0.2
	levelAdjustChapter   = -0.15
	levelAdjustSection   = -0.05
	levelAdjustLeafText  = 0.10
	categoryBonus        = 0.2
)

// Retriever answers rulebook queries against a [store.RulebookStore].
type Retriever struct {
	sections   store.RulebookStore
	embedder   embeddings.Provider
	intentions *registry.Registry
	tokens     *tokenbudget.Counter

	index   *hnsw.Graph[string]
	indexed bool
}

// New returns a Retriever. The HNSW index over section vectors is built
// lazily on first Query, since sections are loaded once at startup and
// rarely change mid-process.
func New(sections store.RulebookStore, embedder embeddings.Provider, reg *registry.Registry, tokens *tokenbudget.Counter) *Retriever {
	graph := hnsw.NewGraph[string]()
	graph.Distance = hnsw.CosineDistance
	return &Retriever{sections: sections, embedder: embedder, intentions: reg, tokens: tokens, index: graph}
}

// Query implements C4's contract: query(intention, entities, context_hints,
// k, auto_include?) → [RulebookHit].
func (r *Retriever) Query(ctx context.Context, userQuery string, intentionName string, entities []domain.EntityMatch, contextHints []string, k int, autoInclude []string) ([]domain.RulebookHit, error) {
	if k <= 0 {
		k = defaultK
	}

	intention, err := r.intentions.Rulebook(intentionName)
	if err != nil {
		return nil, fmt.Errorf("rulebook: %w", err)
	}

	if err := r.ensureIndexed(ctx); err != nil {
		return nil, err
	}

	allSections, err := r.sections.Sections(ctx)
	if err != nil {
		return nil, fmt.Errorf("rulebook: load sections: %w", err)
	}
	byID := make(map[string]domain.Section, len(allSections))
	for _, s := range allSections {
		byID[s.ID] = s
	}

	categorySet := make(map[int]struct{}, len(intention.Categories))
	for _, c := range intention.Categories {
		categorySet[c] = struct{}{}
	}

	categoryFiltered := make(map[string]domain.Section)
	for _, s := range allSections {
		if intersects(s.Categories, categorySet) {
			categoryFiltered[s.ID] = s
		}
	}

	qv, err := r.embedder.Embed(ctx, userQuery)
	if err != nil {
		return nil, fmt.Errorf("rulebook: embed query: %w", err)
	}

	// Narrow via the approximate index first (spec §4.4's "approximate index
	// (HNSW)"), then intersect with the category filter — an in-memory
	// reconstruction of the filtered candidate set, as the spec permits.
	candidates := make(map[string]domain.Section)
	for _, node := range r.index.Search(qv, k*4) {
		if s, ok := categoryFiltered[node.Key]; ok {
			candidates[node.Key] = s
		}
	}
	// The ANN search can miss true candidates for small/sparse corpora;
	// fall back to the full category-filtered set rather than return short.
	if len(candidates) == 0 {
		candidates = categoryFiltered
	}
	for _, id := range autoInclude {
		if s, ok := byID[id]; ok {
			candidates[id] = s
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	entityHitsBySection := entityHitCounts(entities)

	var hits []domain.RulebookHit
	for id, s := range candidates {
		score := score(qv, s, categorySet, entityHitsBySection[id], contextHints)
		hits = append(hits, domain.RulebookHit{SectionID: id, Score: score})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// ContentSlice performs C4's final content-selection pass: the top-scored
// section is expanded with its descendants (recursive leaf-content concat)
// under the token budget, then further top sections are added without
// descendants until the budget or the list is exhausted.
func (r *Retriever) ContentSlice(ctx context.Context, hits []domain.RulebookHit, budgetTokens int) (string, error) {
	if budgetTokens <= 0 {
		budgetTokens = tokenbudget.DefaultRulebookBudget
	}
	if len(hits) == 0 {
		return "", nil
	}

	allSections, err := r.sections.Sections(ctx)
	if err != nil {
		return "", fmt.Errorf("rulebook: load sections: %w", err)
	}
	byID := make(map[string]domain.Section, len(allSections))
	for _, s := range allSections {
		byID[s.ID] = s
	}

	var b strings.Builder
	used := 0
	included := make(map[string]struct{})

	top := byID[hits[0].SectionID]
	appendWithDescendants(&b, top, byID, included, &used, budgetTokens, r.tokens)

	for _, h := range hits[1:] {
		if used >= budgetTokens {
			break
		}
		if _, already := included[h.SectionID]; already {
			continue
		}
		s, ok := byID[h.SectionID]
		if !ok {
			continue
		}
		n := r.tokens.Count(s.Content)
		if used+n > budgetTokens {
			continue
		}
		b.WriteString(s.Content)
		b.WriteString("\n")
		used += n
		included[h.SectionID] = struct{}{}
	}

	return b.String(), nil
}

func appendWithDescendants(b *strings.Builder, s domain.Section, byID map[string]domain.Section, included map[string]struct{}, used *int, budget int, tokens *tokenbudget.Counter) {
	if _, ok := included[s.ID]; ok {
		return
	}
	if *used >= budget {
		return
	}
	if s.IsLeaf() {
		n := tokens.Count(s.Content)
		if *used+n > budget {
			return
		}
		b.WriteString(s.Content)
		b.WriteString("\n")
		*used += n
		included[s.ID] = struct{}{}
		return
	}
	included[s.ID] = struct{}{}
	for _, childID := range s.ChildrenIDs {
		child, ok := byID[childID]
		if !ok {
			continue
		}
		appendWithDescendants(b, child, byID, included, used, budget, tokens)
	}
}

func (r *Retriever) ensureIndexed(ctx context.Context) error {
	if r.indexed {
		return nil
	}
	sections, err := r.sections.Sections(ctx)
	if err != nil {
		return fmt.Errorf("rulebook: index: %w", err)
	}
	for _, s := range sections {
		if len(s.Vector) == 0 {
			continue
		}
		r.index.Add(hnsw.MakeNode(s.ID, s.Vector))
	}
	r.indexed = true
	return nil
}

func intersects(categories []int, set map[int]struct{}) bool {
	for _, c := range categories {
		if _, ok := set[c]; ok {
			return true
		}
	}
	return false
}

// entityHitCounts buckets entity matches by section, split into title,
// leaf-content, and non-leaf-content hit counts per spec §4.4's weighting.
type sectionEntityHits struct {
	title, leaf, nonLeaf int
}

func entityHitCounts(matches []domain.EntityMatch) map[string]sectionEntityHits {
	out := make(map[string]sectionEntityHits)
	for _, m := range matches {
		sectionID := m.SectionPath
		var kind string
		if idx := strings.LastIndex(sectionID, ":"); idx >= 0 {
			kind, sectionID = sectionID[idx+1:], sectionID[:idx]
		}
		h := out[sectionID]
		switch kind {
		case "title":
			h.title++
		case "leaf":
			h.leaf++
		default:
			h.nonLeaf++
		}
		out[sectionID] = h
	}
	return out
}

func score(queryVec []float32, s domain.Section, categorySet map[int]struct{}, entityHits sectionEntityHits, contextHints []string) float64 {
	semantic := cosine(queryVec, s.Vector)

	entityBoost := float64(entityHits.title)*entityTitleWeight +
		float64(entityHits.leaf)*entityLeafWeight +
		float64(entityHits.nonLeaf)*entityNonLeafWeight
	if entityBoost > entityBoostCap {
		entityBoost = entityBoostCap
	}

	contextBoost := 0.0
	for _, hint := range contextHints {
		if hint == "" {
			continue
		}
		if strings.Contains(strings.ToLower(s.Content), strings.ToLower(hint)) {
			contextBoost += contextBoostPerHit
		}
	}
	if contextBoost > contextBoostCap {
		contextBoost = contextBoostCap
	}

	levelAdjust := 0.0
	switch {
	case s.Level == 1:
		levelAdjust = levelAdjustChapter
	case s.Level == 2:
		levelAdjust = levelAdjustSection
	case s.IsLeaf() && s.Content != "":
		levelAdjust = levelAdjustLeafText
	}

	catBonus := 0.0
	if intersects(s.Categories, categorySet) {
		catBonus = categoryBonus
	}

	total := semantic + entityBoost + contextBoost + levelAdjust + catBonus
	return clamp(total, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func cosine(a, b []float32) float64 {
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
