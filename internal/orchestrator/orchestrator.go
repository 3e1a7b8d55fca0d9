// Package orchestrator implements the central state machine (C7): it takes
// a single query from START through local or LLM-based routing, entity
// resolution, concurrent per-tool retrieval, context assembly, and a
// streamed final answer, emitting metadata events in the fixed order the
// spec requires and recording telemetry on every terminal path.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/calvin-seamons/shadowscribe/internal/classifier"
	"github.com/calvin-seamons/shadowscribe/internal/config"
	"github.com/calvin-seamons/shadowscribe/internal/entitysearch"
	"github.com/calvin-seamons/shadowscribe/internal/feedback"
	"github.com/calvin-seamons/shadowscribe/internal/promptmgr"
	"github.com/calvin-seamons/shadowscribe/internal/registry"
	"github.com/calvin-seamons/shadowscribe/internal/retrieval/character"
	"github.com/calvin-seamons/shadowscribe/internal/retrieval/rulebook"
	"github.com/calvin-seamons/shadowscribe/internal/retrieval/session"
	"github.com/calvin-seamons/shadowscribe/pkg/domain"
	"github.com/calvin-seamons/shadowscribe/pkg/provider/llm"
	"github.com/calvin-seamons/shadowscribe/pkg/store"
)

// Orchestrator wires every component (C1-C6, C8) into the query state
// machine described in spec §4.7. One instance is shared across queries;
// per-query state lives entirely on the stack of [Orchestrator.Run].
type Orchestrator struct {
	classifier *classifier.Engine
	entities   *entitysearch.Engine
	character  *character.Retriever
	session    *session.Retriever
	rulebook   *rulebook.Retriever
	prompts    *promptmgr.Manager
	registry   *registry.Registry
	llm        llm.Provider
	characters store.CharacterStore
	feedback   feedback.Store

	sessionSource  entitysearch.SessionSource
	rulebookSource entitysearch.RulebookSource

	limits config.LimitsConfig
}

// New wires an Orchestrator from its components. sessionSource and
// rulebookSource are built once from the immutable corpora at startup;
// character sources are built per-query since they depend on which
// character is loaded.
func New(
	classifierEngine *classifier.Engine,
	entityEngine *entitysearch.Engine,
	characterRetriever *character.Retriever,
	sessionRetriever *session.Retriever,
	rulebookRetriever *rulebook.Retriever,
	prompts *promptmgr.Manager,
	reg *registry.Registry,
	llmProvider llm.Provider,
	characters store.CharacterStore,
	feedbackStore feedback.Store,
	sessionSource entitysearch.SessionSource,
	rulebookSource entitysearch.RulebookSource,
	limits config.LimitsConfig,
) *Orchestrator {
	return &Orchestrator{
		classifier:     classifierEngine,
		entities:       entityEngine,
		character:      characterRetriever,
		session:        sessionRetriever,
		rulebook:       rulebookRetriever,
		prompts:        prompts,
		registry:       reg,
		llm:            llmProvider,
		characters:     characters,
		feedback:       feedbackStore,
		sessionSource:  sessionSource,
		rulebookSource: rulebookSource,
		limits:         limits,
	}
}

// runState carries per-query working state across the state machine's
// stages, avoiding a long parameter list threaded through every method.
type runState struct {
	qid   string
	query domain.Query

	start time.Time
	stage map[string]int64

	fastpathHit bool
	cannedAnswer string

	decision    domain.RoutingDecision
	classifierProbs map[string]float64
	risk        float64
	abstain     bool
	withContext bool
	ctxSnippets []domain.Exchange

	entityResults map[string][]domain.EntitySearchResult

	assembled domain.AssembledContext
	sources   []string
}

// Run executes the full state machine for q and returns a channel of
// [Event] values in a fixed order: routing, entities, context_sources, the
// response chunks, then performance, terminated by a Done event (the
// fastpath canned-answer and abstain paths skip entities and
// context_sources). A failure sends a single Err event and ends the
// stream. The channel is always closed by Run's goroutine, on every path
// including cancellation.
func (o *Orchestrator) Run(ctx context.Context, qid string, q domain.Query) <-chan Event {
	out := make(chan Event, 8)
	go func() {
		defer close(out)
		o.run(ctx, qid, q, out)
	}()
	return out
}

func (o *Orchestrator) run(ctx context.Context, qid string, q domain.Query, out chan<- Event) {
	st := &runState{qid: qid, query: q, start: time.Now(), stage: make(map[string]int64)}

	if strings.TrimSpace(q.Text) == "" {
		o.fail(st, out, fmt.Errorf("orchestrator: %w: empty query text", domain.ErrMalformedQuery))
		return
	}

	if err := o.examineLocal(ctx, st); err != nil {
		o.fail(st, out, err)
		return
	}

	// Fastpath canned answer: no tool, no retrieval, answer directly.
	if st.fastpathHit && st.cannedAnswer != "" {
		o.emitRouting(st, out, domain.RoutingSourceLocal)
		out <- Event{Chunk: st.cannedAnswer}
		o.emitPerformance(st, out)
		out <- Event{Done: true}
		o.recordTelemetry(st, nil)
		return
	}

	// Abstention: safe to answer without retrieval (ABSTAINED_REPLY).
	if st.abstain {
		o.emitRouting(st, out, domain.RoutingSourceLocal)
		if err := o.finalStreamLightweight(ctx, st, out); err != nil {
			o.fail(st, out, err)
			return
		}
		o.emitPerformance(st, out)
		out <- Event{Done: true}
		o.recordTelemetry(st, nil)
		return
	}

	// Fastpath single-tool plan (SHORTCUT_PLAN) and local-confident plans
	// both arrive here with decisionReady() true; anything else declines
	// to the LLM router.
	if !st.decisionReady() {
		if err := o.llmRoute(ctx, st); err != nil {
			o.fail(st, out, err)
			return
		}
	} else if err := o.fillIntentions(ctx, st); err != nil {
		o.fail(st, out, err)
		return
	}

	o.emitRouting(st, out, st.decision.Source)

	if err := o.resolveEntities(ctx, st); err != nil {
		o.fail(st, out, err)
		return
	}
	o.emitEntities(st, out)

	if err := o.dispatchRetrievers(ctx, st); err != nil {
		o.fail(st, out, err)
		return
	}
	o.emitContextSources(st, out)

	if err := o.finalStream(ctx, st, out); err != nil {
		o.fail(st, out, err)
		return
	}

	o.emitPerformance(st, out)
	out <- Event{Done: true}
	o.recordTelemetry(st, nil)
}

// decisionReady reports whether the local classifier produced a usable
// plan (EXAMINE_LOCAL's "confident" branch) rather than declining.
func (s *runState) decisionReady() bool {
	return len(s.decision.ToolsNeeded) > 0 && s.decision.Source == domain.RoutingSourceLocal
}

func (o *Orchestrator) fail(st *runState, out chan<- Event, err error) {
	out <- Event{Err: err}
	o.recordTelemetry(st, err)
}

func withTimeout(ctx context.Context, ms int) (context.Context, context.CancelFunc) {
	if ms <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(ms)*time.Millisecond)
}

func elapsedMS(since time.Time) int64 {
	return time.Since(since).Milliseconds()
}

// examineLocal runs C5 under the local-classifier timeout and folds its
// outcome into st: a fastpath hit, an abstention, a confident plan, or
// neither (decline, handled by the caller falling through to LLM_ROUTE).
func (o *Orchestrator) examineLocal(ctx context.Context, st *runState) error {
	stageStart := time.Now()
	lctx, cancel := withTimeout(ctx, o.limits.LocalClassifierTimeoutMS)
	defer cancel()

	outcome, err := o.classifier.Classify(lctx, st.query.Text)
	st.stage["fastpath"] = elapsedMS(stageStart)
	if err != nil {
		return fmt.Errorf("orchestrator: examine_local: %w", err)
	}

	if outcome.Fastpath.Matched {
		st.fastpathHit = true
		st.cannedAnswer = outcome.Fastpath.CannedAnswer
		if outcome.Fastpath.Tool != "" {
			st.decision = domain.RoutingDecision{
				ToolsNeeded: []domain.ToolIntention{{
					Tool:       domain.Tool(outcome.Fastpath.Tool),
					Intention:  outcome.Fastpath.Intention,
					Confidence: 1.0,
				}},
				Source: domain.RoutingSourceLocal,
			}
		}
		return nil
	}

	st.risk = outcome.Risk
	st.abstain = outcome.Abstain
	st.withContext = outcome.WithContext
	st.ctxSnippets = outcome.CtxSnippets
	if len(outcome.Probs) > 0 {
		st.classifierProbs = make(map[string]float64, len(outcome.Probs))
		for label, p := range outcome.Probs {
			st.classifierProbs[string(label)] = p
		}
	}

	if outcome.Abstain {
		st.decision = domain.RoutingDecision{Source: domain.RoutingSourceLocal, Abstained: true}
		return nil
	}

	if !outcome.Confident {
		return nil // decline: caller falls back to LLM_ROUTE
	}

	var tools []domain.ToolIntention
	for label, selected := range outcome.Tools {
		if !selected {
			continue
		}
		tools = append(tools, domain.ToolIntention{Tool: domain.Tool(label), Confidence: 1.0})
	}
	st.decision = domain.RoutingDecision{ToolsNeeded: tools, Source: domain.RoutingSourceLocal}
	return nil
}
