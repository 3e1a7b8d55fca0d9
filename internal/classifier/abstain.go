package classifier

import "github.com/calvin-seamons/shadowscribe/internal/config"

// marginFloor is the minimum gap a confident tool probability must clear
// above its threshold before the decision is trusted outright, per spec
// §4.5's margin rule.
const marginFloor = 0.1

// Decision is the abstention gate's verdict for one L1 probability vector.
type Decision struct {
	// Risk is 1 - max(p_tool) across the three retrieval-tool labels.
	Risk float64

	// Abstain is true when risk is at or below the abstain ceiling and
	// every tool decision came back false; the orchestrator then answers
	// without retrieval (ABSTAINED_REPLY) and makes no LLM routing call.
	Abstain bool

	// Confident is true when every true tool decision cleared its
	// threshold with at least [marginFloor] of margin — the local
	// classifier's plan can be trusted without an LLM routing call.
	Confident bool

	// Tools holds the boolean tool-selection decision per label, after
	// thresholding.
	Tools map[Label]bool
}

// toolLabels are the three labels that gate a retriever call; needs_context
// is evaluated separately by the [ContextDetector].
var toolLabels = []Label{LabelCharacter, LabelSessionNotes, LabelRulebook}

// Gate applies spec §4.5's abstention and margin rules to a calibrated
// probability vector: risk = 1 - max(p_tool); abstain if risk <= riskTau and
// every tool decision is false; otherwise the plan is only trusted
// (Confident) if every true decision clears its threshold by marginFloor.
func Gate(probs map[Label]float64, thresholds config.RoutingThresholds, riskTau float64) Decision {
	maxP := 0.0
	for _, l := range toolLabels {
		if p := probs[l]; p > maxP {
			maxP = p
		}
	}
	risk := 1 - maxP

	tools := make(map[Label]bool, len(toolLabels))
	anyTrue := false
	for _, l := range toolLabels {
		decided := probs[l] >= toolThreshold(l, thresholds)
		tools[l] = decided
		anyTrue = anyTrue || decided
	}

	if risk <= riskTau && !anyTrue {
		return Decision{Risk: risk, Abstain: true, Tools: tools}
	}

	confident := true
	for _, l := range toolLabels {
		if !tools[l] {
			continue
		}
		if probs[l]-toolThreshold(l, thresholds) < marginFloor {
			confident = false
			break
		}
	}

	return Decision{Risk: risk, Tools: tools, Confident: confident}
}

func toolThreshold(l Label, t config.RoutingThresholds) float64 {
	switch l {
	case LabelCharacter:
		return t.Character
	case LabelSessionNotes:
		return t.SessionNotes
	case LabelRulebook:
		return t.Rulebook
	default:
		return t.NeedsContext
	}
}
