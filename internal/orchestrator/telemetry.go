package orchestrator

import (
	"time"

	"github.com/calvin-seamons/shadowscribe/internal/feedback"
)

// recordTelemetry implements spec §4.9/§6: a feedback record is appended at
// query completion regardless of outcome, including the error path. Append
// errors are swallowed rather than surfaced to the caller — telemetry must
// never turn a successful answer into a failed query.
func (o *Orchestrator) recordTelemetry(st *runState, runErr error) {
	if o.feedback == nil {
		return
	}

	var entries []feedback.PlanEntry
	for _, ti := range st.decision.ToolsNeeded {
		entries = append(entries, feedback.PlanEntry{
			Tool:       string(ti.Tool),
			Intention:  ti.Intention,
			Confidence: ti.Confidence,
		})
	}

	rec := feedback.Record{
		QID:             st.qid,
		Timestamp:       st.start.UTC(),
		FastpathHit:     st.fastpathHit,
		ClassifierProbs: st.classifierProbs,
		Risk:            st.risk,
		Abstain:         st.abstain,
		Plan:            feedback.Plan{ToolsNeeded: entries},
		WithContext:     st.withContext,
		LatencyMS: feedback.LatencyBreakdown{
			FastpathMS:         st.stage["fastpath"],
			RoutingLLMMS:       st.stage["routing_llm"],
			EntityResolutionMS: st.stage["entity_resolution"],
			RetrievalMS:        perToolRetrievalMS(st.stage),
			FinalLLMMS:         st.stage["final_llm"],
			TotalMS:            elapsedMS(st.start),
		},
	}
	if runErr != nil {
		rec.LatencyMS.TotalMS = time.Since(st.start).Milliseconds()
	}

	// Append errors are not surfaced: telemetry loss must never fail a query
	// that otherwise completed (or failed) on its own terms.
	_ = o.feedback.Append(rec)
}

func perToolRetrievalMS(stage map[string]int64) map[string]int64 {
	const prefix = "retrieval."
	out := make(map[string]int64)
	for k, v := range stage {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			out[k[len(prefix):]] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
