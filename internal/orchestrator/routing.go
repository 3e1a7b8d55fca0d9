package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/calvin-seamons/shadowscribe/pkg/domain"
	"github.com/calvin-seamons/shadowscribe/pkg/provider/llm"
	"github.com/calvin-seamons/shadowscribe/pkg/types"
)

// maxIntentionsPerTool is the default hard cap from spec §4.7, used when
// LimitsConfig.MaxIntentionsPerTool is unset: a routing decision naming
// more than the cap's intentions for one tool is rejected at parse time
// rather than silently truncated.
const maxIntentionsPerTool = 2

type selectorEntry struct {
	Tool       string  `json:"tool"`
	Intention  string  `json:"intention"`
	Confidence float64 `json:"confidence"`
}

type selectorResponse struct {
	ToolsNeeded []selectorEntry `json:"tools_needed"`
}

type entityEntry struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

type entityResponse struct {
	Entities []entityEntry `json:"entities"`
}

// llmRoute implements the LLM_ROUTE state: concurrent tool-selector and
// entity-extractor calls, merged into a RoutingDecision. Either call
// failing (including a JSON-repair retry failing) aborts the query.
func (o *Orchestrator) llmRoute(ctx context.Context, st *runState) error {
	stageStart := time.Now()
	rctx, cancel := withTimeout(ctx, o.limits.RoutingLLMTimeoutMS)
	defer cancel()

	var selector selectorResponse
	var entities entityResponse

	eg, egCtx := errgroup.WithContext(rctx)
	eg.Go(func() error {
		resp, err := completeWithRepair(egCtx, o.llm, o.prompts.SelectorPrompt(st.query.Text, false), parseSelectorJSON)
		if err != nil {
			return fmt.Errorf("tool selector: %w", err)
		}
		selector = resp
		return nil
	})
	eg.Go(func() error {
		resp, err := completeWithRepair(egCtx, o.llm, o.prompts.EntityExtractorPrompt(st.query.Text), parseEntityJSON)
		if err != nil {
			return fmt.Errorf("entity extractor: %w", err)
		}
		entities = resp
		return nil
	})

	if err := eg.Wait(); err != nil {
		return fmt.Errorf("orchestrator: llm_route: %w: %v", domain.ErrRoutingFailed, err)
	}
	st.stage["routing_llm"] = elapsedMS(stageStart)

	perTool := make(map[string]int)
	var tools []domain.ToolIntention
	for _, e := range selector.ToolsNeeded {
		perTool[e.Tool]++
		limit := maxIntentionsPerTool
		if o.limits.MaxIntentionsPerTool > 0 {
			limit = o.limits.MaxIntentionsPerTool
		}
		if e.Tool == string(domain.ToolSessionNotes) || e.Tool == string(domain.ToolRulebook) {
			// C3/C4 only accept a single intention per query; see
			// dispatchRetrievers, which queries them with intentions[0].
			limit = 1
		}
		if perTool[e.Tool] > limit {
			return fmt.Errorf("orchestrator: llm_route: tool %q exceeds the %d-intention cap", e.Tool, limit)
		}
		tools = append(tools, domain.ToolIntention{Tool: domain.Tool(e.Tool), Intention: e.Intention, Confidence: e.Confidence})
	}

	var ents []domain.Entity
	for _, e := range entities.Entities {
		ents = append(ents, domain.Entity{Name: e.Name, Confidence: e.Confidence})
	}

	st.decision = domain.RoutingDecision{ToolsNeeded: tools, Entities: ents, Source: domain.RoutingSourceLLM}
	return nil
}

// completeWithRepair calls client once and parses its response with parse.
// On a parse failure it makes one additional "repair" call asking the model
// to fix its own malformed JSON, per spec §4.7's single repair attempt.
func completeWithRepair[T any](ctx context.Context, client llm.Provider, prompt string, parse func(string) (T, error)) (T, error) {
	var zero T

	resp, err := client.Complete(ctx, llm.CompletionRequest{Messages: []types.Message{{Role: "user", Content: prompt}}, Temperature: 0})
	if err != nil {
		return zero, err
	}
	if parsed, perr := parse(resp.Content); perr == nil {
		return parsed, nil
	}

	repairPrompt := fmt.Sprintf(
		"The following response was supposed to be valid JSON but failed to parse. "+
			"Return ONLY the corrected JSON, with the same shape and meaning:\n\n%s", resp.Content,
	)
	repaired, err := client.Complete(ctx, llm.CompletionRequest{Messages: []types.Message{{Role: "user", Content: repairPrompt}}, Temperature: 0})
	if err != nil {
		return zero, fmt.Errorf("json repair call: %w", err)
	}
	parsed, perr := parse(repaired.Content)
	if perr != nil {
		return zero, fmt.Errorf("json repair failed: %w", perr)
	}
	return parsed, nil
}

func parseSelectorJSON(raw string) (selectorResponse, error) {
	var resp selectorResponse
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &resp); err != nil {
		return selectorResponse{}, err
	}
	return resp, nil
}

func parseEntityJSON(raw string) (entityResponse, error) {
	var resp entityResponse
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &resp); err != nil {
		return entityResponse{}, err
	}
	return resp, nil
}

// fillIntentions implements spec §4.5's "intentions derived by argmax
// within each selected tool's intention head if available; else left to
// LLM": the local classifier (C5) has no trained intention head in scope
// (training is a non-goal), so any tool it selected still needs an
// intention before a retriever can be queried. This issues one selector
// LLM call with the same full selector prompt LLM_ROUTE uses, takes from
// its answer the first intention named for each already-decided tool
// (other tools in the answer are ignored), and falls back to each tool's
// first registered intention if the model omits one.
func (o *Orchestrator) fillIntentions(ctx context.Context, st *runState) error {
	if len(st.decision.ToolsNeeded) == 0 {
		return nil
	}
	needsFill := false
	for _, ti := range st.decision.ToolsNeeded {
		if ti.Intention == "" {
			needsFill = true
			break
		}
	}
	if !needsFill {
		return nil
	}

	resp, err := completeWithRepair(ctx, o.llm, o.prompts.SelectorPrompt(st.query.Text, false), parseSelectorJSON)
	if err != nil {
		return fmt.Errorf("orchestrator: fill_intentions: %w", err)
	}
	byTool := make(map[string]string, len(resp.ToolsNeeded))
	for _, e := range resp.ToolsNeeded {
		if _, ok := byTool[e.Tool]; !ok {
			byTool[e.Tool] = e.Intention
		}
	}

	for i, ti := range st.decision.ToolsNeeded {
		if ti.Intention != "" {
			continue
		}
		if name, ok := byTool[string(ti.Tool)]; ok && name != "" {
			st.decision.ToolsNeeded[i].Intention = name
			continue
		}
		st.decision.ToolsNeeded[i].Intention = o.defaultIntention(ti.Tool)
	}
	return nil
}

// defaultIntention returns the first registered intention for tool, used
// only as a last-resort fallback when neither C5 nor the fill-intentions
// LLM call produced one.
func (o *Orchestrator) defaultIntention(tool domain.Tool) string {
	switch tool {
	case domain.ToolCharacterData:
		if ci := o.registry.CharacterIntentions(); len(ci) > 0 {
			return ci[0].Name
		}
	case domain.ToolSessionNotes:
		if si := o.registry.SessionIntentions(); len(si) > 0 {
			return si[0].Name
		}
	case domain.ToolRulebook:
		if ri := o.registry.RulebookIntentions(); len(ri) > 0 {
			return ri[0].Name
		}
	}
	return ""
}

func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < 0 || end < start {
		return s
	}
	return s[start : end+1]
}
