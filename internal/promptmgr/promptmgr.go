// Package promptmgr builds the three prompts C7 sends to the LLM (tool-and-
// intention selector, entity extractor, final answer) entirely from the
// shared [registry.Registry], so changes to intention definitions propagate
// without touching this package.
package promptmgr

import (
	"fmt"
	"strings"

	"github.com/calvin-seamons/shadowscribe/internal/registry"
	"github.com/calvin-seamons/shadowscribe/pkg/domain"
)

// maxToolsPerQuery is the selector prompt's declared cap, relaxed only when
// the caller marks the query as compound.
const maxToolsPerQuery = 2

// Manager builds prompts from the registry. It is stateless beyond the
// registry reference and safe for concurrent use.
type Manager struct {
	intentions *registry.Registry
}

// New returns a Manager reading intention definitions from reg.
func New(reg *registry.Registry) *Manager {
	return &Manager{intentions: reg}
}

// SelectorPrompt builds the tool-and-intention selector prompt: every tool's
// intentions with descriptions, and the required JSON output shape.
func (m *Manager) SelectorPrompt(userQuery string, compound bool) string {
	var b strings.Builder
	b.WriteString("You are the routing layer for a tabletop RPG assistant. ")
	b.WriteString("Decide which tools are needed to answer the user's query, and which single intention ")
	b.WriteString("best matches the query for each tool you select.\n\n")

	b.WriteString("## Tools and intentions\n\n")
	b.WriteString("### character_data\n")
	for _, ci := range m.intentions.CharacterIntentions() {
		fmt.Fprintf(&b, "- %s: %s\n", ci.Name, ci.Description)
	}
	b.WriteString("\n### session_notes\n")
	for _, si := range m.intentions.SessionIntentions() {
		fmt.Fprintf(&b, "- %s: %s\n", si.Name, si.Description)
	}
	b.WriteString("\n### rulebook\n")
	for _, ri := range m.intentions.RulebookIntentions() {
		fmt.Fprintf(&b, "- %s: %s\n", ri.Name, ri.Description)
	}

	if compound {
		b.WriteString("\nThe query appears compound (it asks about more than one thing); you may exceed the usual tool cap if genuinely needed.\n")
	} else {
		fmt.Fprintf(&b, "\nSelect at most %d tools for this query, and at most one intention per tool.\n", maxToolsPerQuery)
	}

	b.WriteString("\nRespond with ONLY JSON: {\"tools_needed\": [{\"tool\": <tool>, \"intention\": <intention>, \"confidence\": <0..1>}]}\n\n")
	fmt.Fprintf(&b, "Query: %s\n", userQuery)
	return b.String()
}

// EntityExtractorPrompt builds the entity extractor prompt: the fixed entity
// categories and the required JSON output shape. No scoping fields are
// included — entity resolution against sources happens downstream in C1.
func (m *Manager) EntityExtractorPrompt(userQuery string) string {
	var b strings.Builder
	b.WriteString("Extract every named entity mentioned in the user's query: character names, NPCs, ")
	b.WriteString("locations, items, spells, monsters, or rules terms. Do not resolve or categorize them; ")
	b.WriteString("just list what is named.\n\n")
	b.WriteString("Respond with ONLY JSON: {\"entities\": [{\"name\": <string>, \"confidence\": <0..1>}]}\n\n")
	fmt.Fprintf(&b, "Query: %s\n", userQuery)
	return b.String()
}

// FinalAnswerPrompt builds the final answer prompt from the assembled
// per-tool slices, the user's query, and recent history (when C5/C7 decided
// with_context=true). Sections with no content are omitted entirely.
func (m *Manager) FinalAnswerPrompt(ctx domain.AssembledContext, userQuery string, history []domain.Exchange) string {
	var b strings.Builder
	b.WriteString("You are a tabletop RPG assistant answering the player's question. ")
	b.WriteString("Use only the information below; reference sources when relevant, and say so plainly ")
	b.WriteString("if the answer isn't in the provided context.\n")

	if len(history) > 0 {
		b.WriteString("\n## Recent Conversation\n")
		for _, ex := range history {
			fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", ex.Query, ex.Answer)
		}
	}

	if ctx.CharacterSlice != "" {
		b.WriteString("\n## Character Data\n")
		b.WriteString(ctx.CharacterSlice)
		b.WriteString("\n")
	}
	if ctx.SessionSlice != "" {
		b.WriteString("\n## Session History\n")
		b.WriteString(ctx.SessionSlice)
		b.WriteString("\n")
	}
	if ctx.RulesSlice != "" {
		b.WriteString("\n## Rulebook\n")
		b.WriteString(ctx.RulesSlice)
		b.WriteString("\n")
	}
	if ctx.Primary != "" {
		b.WriteString("\n## Primary Context\n")
		b.WriteString(ctx.Primary)
		b.WriteString("\n")
	}
	if ctx.Supporting != "" {
		b.WriteString("\n## Supporting Context\n")
		b.WriteString(ctx.Supporting)
		b.WriteString("\n")
	}
	if len(ctx.CrossRefs) > 0 {
		b.WriteString("\n## Cross-References\n")
		for _, ref := range ctx.CrossRefs {
			fmt.Fprintf(&b, "- %s\n", ref)
		}
	}

	fmt.Fprintf(&b, "\nQuestion: %s\n", userQuery)
	return b.String()
}
