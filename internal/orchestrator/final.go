package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/calvin-seamons/shadowscribe/pkg/domain"
	"github.com/calvin-seamons/shadowscribe/pkg/provider/llm"
	"github.com/calvin-seamons/shadowscribe/pkg/types"
)

// finalStream implements ASSEMBLE_CONTEXT + FINAL_STREAM: the assembled
// context and the running conversation history feed C6's final-answer
// prompt, whose streamed response is forwarded chunk by chunk.
func (o *Orchestrator) finalStream(ctx context.Context, st *runState, out chan<- Event) error {
	stageStart := time.Now()
	fctx, cancel := withTimeout(ctx, o.limits.FinalLLMTimeoutMS)
	defer cancel()

	var history []domain.Exchange
	if st.withContext {
		history = append(st.ctxSnippets, st.query.SessionHistory...)
	}
	prompt := o.prompts.FinalAnswerPrompt(st.assembled, st.query.Text, history)
	if err := o.streamPrompt(fctx, prompt, out); err != nil {
		return fmt.Errorf("orchestrator: final_stream: %w", err)
	}
	st.stage["final_llm"] = elapsedMS(stageStart)
	return nil
}

// finalStreamLightweight implements the ABSTAINED_REPLY path: no retrieval
// has run, so the final-answer prompt carries an empty context plus the
// query and the session history, under the prompt's own instruction to use
// only the information given and to say so plainly when it falls short.
func (o *Orchestrator) finalStreamLightweight(ctx context.Context, st *runState, out chan<- Event) error {
	stageStart := time.Now()
	fctx, cancel := withTimeout(ctx, o.limits.FinalLLMTimeoutMS)
	defer cancel()

	prompt := o.prompts.FinalAnswerPrompt(domain.AssembledContext{}, st.query.Text, st.query.SessionHistory)
	if err := o.streamPrompt(fctx, prompt, out); err != nil {
		return fmt.Errorf("orchestrator: final_stream_lightweight: %w", err)
	}
	st.stage["final_llm"] = elapsedMS(stageStart)
	return nil
}

func (o *Orchestrator) streamPrompt(ctx context.Context, prompt string, out chan<- Event) error {
	chunks, err := o.llm.StreamCompletion(ctx, llm.CompletionRequest{
		Messages: []types.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return err
	}
	for c := range chunks {
		if c.FinishReason == "error" {
			return fmt.Errorf("stream: %s", c.Text)
		}
		if c.Text != "" {
			out <- Event{Chunk: c.Text}
		}
	}
	return nil
}

// formatCharacterSlice renders a CharacterSlice's sections as plain text,
// one "## name" heading per section, sorted for deterministic prompts.
func formatCharacterSlice(cs domain.CharacterSlice) string {
	keys := make([]string, 0, len(cs.Sections))
	for k := range cs.Sections {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "## %s\n%v\n\n", k, cs.Sections[k])
	}
	return strings.TrimSpace(b.String())
}

// formatSessionHits renders scored session snippets, most relevant first.
func formatSessionHits(hits []domain.SessionSearchResult) string {
	var b strings.Builder
	for _, h := range hits {
		fmt.Fprintf(&b, "[session %d] %s\n\n", h.SessionNumber, h.Snippet)
	}
	return strings.TrimSpace(b.String())
}
