package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/calvin-seamons/shadowscribe/internal/entitysearch"
	"github.com/calvin-seamons/shadowscribe/internal/retrieval/character"
	"github.com/calvin-seamons/shadowscribe/pkg/domain"
	"github.com/calvin-seamons/shadowscribe/pkg/store"
)

// resolveEntities implements RESOLVE_ENTITIES: C1 is invoked once with every
// extracted entity and the set of tools selected by routing, restricted to
// exactly those tools' sources.
func (o *Orchestrator) resolveEntities(ctx context.Context, st *runState) error {
	stageStart := time.Now()

	selectedTools := uniqueTools(st.decision.ToolsNeeded)

	var src entitysearch.Sources
	for _, t := range selectedTools {
		switch t {
		case domain.ToolSessionNotes:
			src.Session = o.sessionSource
		case domain.ToolRulebook:
			src.Rulebook = o.rulebookSource
		case domain.ToolCharacterData:
			ch, err := o.characters.LoadCharacter(ctx, st.query.CharacterName)
			if errors.Is(err, store.ErrCharacterNotFound) {
				return fmt.Errorf("orchestrator: resolve_entities: %q: %w", st.query.CharacterName, domain.ErrUnknownCharacter)
			} else if err != nil {
				return fmt.Errorf("orchestrator: resolve_entities: load character %q: %w", st.query.CharacterName, err)
			}
			charSrc := character.NewSource(ch)
			src.Character = charSrc
		}
	}

	if len(st.decision.Entities) == 0 {
		st.entityResults = map[string][]domain.EntitySearchResult{}
		st.stage["entity_resolution"] = elapsedMS(stageStart)
		return nil
	}

	results, err := o.entities.Resolve(ctx, st.decision.Entities, selectedTools, src)
	if err != nil {
		return fmt.Errorf("orchestrator: resolve_entities: %w", err)
	}
	st.entityResults = results
	st.stage["entity_resolution"] = elapsedMS(stageStart)
	return nil
}

// dispatchRetrievers implements DISPATCH_RETRIEVERS: every selected tool is
// queried concurrently, each with its own intention(s), entity matches, and
// derived auto-include sections. Per spec §4.7, one tool's timeout or error
// never aborts another's: the orchestrator proceeds with whatever slices
// completed and the omission shows up as that tool's absence from the
// context_sources metadata event. Only a total wipeout (every selected tool
// failed) is treated as a hard error.
func (o *Orchestrator) dispatchRetrievers(ctx context.Context, st *runState) error {
	stageStart := time.Now()
	rctx, cancel := withTimeout(ctx, o.limits.RetrievalTimeoutMS)
	defer cancel()

	byTool := groupByTool(st.decision.ToolsNeeded)
	matches := flattenMatches(st.entityResults)

	var (
		mu             sync.Mutex
		wg             sync.WaitGroup
		characterSlice domain.CharacterSlice
		sessionHits    []domain.SessionSearchResult
		rulebookHits   []domain.RulebookHit
		attempted      int
		failed         int
	)

	recordStage := func(key string, d time.Duration) {
		mu.Lock()
		st.stage[key] = d.Milliseconds()
		mu.Unlock()
	}

	if intentions, ok := byTool[domain.ToolCharacterData]; ok {
		attempted++
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			slice, err := o.character.Query(rctx, st.query.CharacterName, intentions, matches[domain.ToolCharacterData], autoIncludeFor(domain.ToolCharacterData, matches))
			recordStage("retrieval.character_data", time.Since(start))
			if err != nil {
				slog.Warn("retriever failed", "tool", domain.ToolCharacterData, "qid", st.qid, "err", err)
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}
			mu.Lock()
			characterSlice = slice
			mu.Unlock()
		}()
	}

	if intentions, ok := byTool[domain.ToolSessionNotes]; ok && len(intentions) > 0 {
		attempted++
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			hits, err := o.session.Query(rctx, st.query.Text, intentions[0], entityNames(st.decision.Entities), 0, nil)
			recordStage("retrieval.session_notes", time.Since(start))
			if err != nil {
				slog.Warn("retriever failed", "tool", domain.ToolSessionNotes, "qid", st.qid, "err", err)
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}
			mu.Lock()
			sessionHits = hits
			mu.Unlock()
		}()
	}

	if intentions, ok := byTool[domain.ToolRulebook]; ok && len(intentions) > 0 {
		attempted++
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			hits, err := o.rulebook.Query(rctx, st.query.Text, intentions[0], matches[domain.ToolRulebook], contextHintsFrom(st.ctxSnippets), 0, autoIncludeFor(domain.ToolRulebook, matches))
			recordStage("retrieval.rulebook", time.Since(start))
			if err != nil {
				slog.Warn("retriever failed", "tool", domain.ToolRulebook, "qid", st.qid, "err", err)
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}
			mu.Lock()
			rulebookHits = hits
			mu.Unlock()
		}()
	}

	wg.Wait()

	if attempted > 0 && failed == attempted {
		return fmt.Errorf("orchestrator: dispatch_retrievers: %w (%d/%d selected tools)", domain.ErrAllRetrieversFailed, failed, attempted)
	}

	var sources []string
	assembled := domain.AssembledContext{}
	if len(characterSlice.Sections) > 0 {
		assembled.CharacterSlice = formatCharacterSlice(characterSlice)
		sources = append(sources, string(domain.ToolCharacterData))
	}
	if len(sessionHits) > 0 {
		assembled.SessionSlice = formatSessionHits(sessionHits)
		sources = append(sources, string(domain.ToolSessionNotes))
	}
	if len(rulebookHits) > 0 {
		content, err := o.rulebook.ContentSlice(rctx, rulebookHits, 0)
		if err != nil {
			slog.Warn("rulebook content slice failed", "qid", st.qid, "err", err)
		} else {
			assembled.RulesSlice = content
			sources = append(sources, string(domain.ToolRulebook))
		}
	}

	st.assembled = assembled
	st.sources = sources
	st.stage["retrieval"] = elapsedMS(stageStart)
	return nil
}

// groupByTool groups a decision's tool/intention pairs by tool, preserving the
// 2-intention-per-tool cap already enforced by the routing stage.
func groupByTool(pairs []domain.ToolIntention) map[domain.Tool][]string {
	out := make(map[domain.Tool][]string)
	for _, p := range pairs {
		out[p.Tool] = append(out[p.Tool], p.Intention)
	}
	return out
}

func uniqueTools(pairs []domain.ToolIntention) []domain.Tool {
	seen := make(map[domain.Tool]struct{})
	var out []domain.Tool
	for _, p := range pairs {
		if _, ok := seen[p.Tool]; ok {
			continue
		}
		seen[p.Tool] = struct{}{}
		out = append(out, p.Tool)
	}
	return out
}

// flattenMatches collects every EntityMatch across all resolved entities,
// grouped by the tool/source that produced it.
func flattenMatches(results map[string][]domain.EntitySearchResult) map[domain.Tool][]domain.EntityMatch {
	out := make(map[domain.Tool][]domain.EntityMatch)
	for _, perEntity := range results {
		for _, r := range perEntity {
			for _, m := range r.Matches {
				out[m.SourceTool] = append(out[m.SourceTool], m)
			}
		}
	}
	return out
}

func entityNames(entities []domain.Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.Name
	}
	return out
}

// autoIncludeFor derives a tool's auto-include section list from its entity
// matches, per C1.section_to_tool. Rulebook section paths are tagged
// "<id>:title|leaf|nonleaf" (see internal/retrieval/rulebook.Source); the
// bare section ID is recovered here. Character section paths are already
// bare section names. Session auto-include is intentionally left empty:
// session entity matches only indicate table membership (NPCs/locations/
// items/decisions), not a specific snippet ID, so they flow into C3 via
// its entities parameter instead of auto_include.
func autoIncludeFor(tool domain.Tool, matches map[domain.Tool][]domain.EntityMatch) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range matches[tool] {
		id := m.SectionPath
		if tool == domain.ToolRulebook {
			if idx := strings.LastIndex(id, ":"); idx >= 0 {
				id = id[:idx]
			}
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func contextHintsFrom(snippets []domain.Exchange) []string {
	out := make([]string, 0, len(snippets)*2)
	for _, s := range snippets {
		out = append(out, s.Query, s.Answer)
	}
	return out
}
