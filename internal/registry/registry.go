// Package registry is the single source of truth mapping each tool's
// enumerated intentions to required sections, optional sections, retrieval
// strategy, and category/temporal hints. The prompt manager (C6) and the
// per-tool retrievers (C2/C3/C4) all read from this registry so that adding
// or removing an intention propagates without touching their code.
package registry

import (
	"errors"
	"fmt"
)

// Strategy names the retrieval approach an intention declares.
type Strategy string

const (
	StrategyStructured Strategy = "structured"
	StrategySemantic   Strategy = "semantic"
	StrategyFused      Strategy = "fused"
	StrategyDirect     Strategy = "direct" // rulebook: direct section grab
)

// CharacterIntention describes one character_data intention.
type CharacterIntention struct {
	Name             string
	Description      string
	RequiredSections []string
	OptionalSections []string
}

// SessionIntention describes one session_notes intention.
type SessionIntention struct {
	Name           string
	Description    string
	Strategy       Strategy
	TemporalPolicy string // e.g. "recent_n", "" for no temporal filter
	RecentN        int
}

// RulebookIntention describes one rulebook intention.
type RulebookIntention struct {
	Name        string
	Description string
	Categories  []int // subset of 1..10
	Strategy    Strategy
}

// Registry holds the three fixed intention enumerations plus lookups by name.
type Registry struct {
	character map[string]CharacterIntention
	session   map[string]SessionIntention
	rulebook  map[string]RulebookIntention

	characterOrder []string
	sessionOrder   []string
	rulebookOrder  []string
}

// ErrUnknownIntention is returned when a tool/intention pair is not found.
var ErrUnknownIntention = errors.New("registry: unknown intention")

// New builds the registry populated with the fixed intention sets described
// in spec §4.6 (10 character, 20 session-notes, 30 rulebook intentions).
func New() *Registry {
	r := &Registry{
		character: make(map[string]CharacterIntention),
		session:   make(map[string]SessionIntention),
		rulebook:  make(map[string]RulebookIntention),
	}
	for _, ci := range defaultCharacterIntentions() {
		r.character[ci.Name] = ci
		r.characterOrder = append(r.characterOrder, ci.Name)
	}
	for _, si := range defaultSessionIntentions() {
		r.session[si.Name] = si
		r.sessionOrder = append(r.sessionOrder, si.Name)
	}
	for _, ri := range defaultRulebookIntentions() {
		r.rulebook[ri.Name] = ri
		r.rulebookOrder = append(r.rulebookOrder, ri.Name)
	}
	return r
}

// Character looks up a character_data intention by name.
func (r *Registry) Character(name string) (CharacterIntention, error) {
	ci, ok := r.character[name]
	if !ok {
		return CharacterIntention{}, fmt.Errorf("%w: character_data/%s", ErrUnknownIntention, name)
	}
	return ci, nil
}

// Session looks up a session_notes intention by name.
func (r *Registry) Session(name string) (SessionIntention, error) {
	si, ok := r.session[name]
	if !ok {
		return SessionIntention{}, fmt.Errorf("%w: session_notes/%s", ErrUnknownIntention, name)
	}
	return si, nil
}

// Rulebook looks up a rulebook intention by name.
func (r *Registry) Rulebook(name string) (RulebookIntention, error) {
	ri, ok := r.rulebook[name]
	if !ok {
		return RulebookIntention{}, fmt.Errorf("%w: rulebook/%s", ErrUnknownIntention, name)
	}
	return ri, nil
}

// CharacterIntentions returns every character_data intention in declaration order.
func (r *Registry) CharacterIntentions() []CharacterIntention {
	out := make([]CharacterIntention, len(r.characterOrder))
	for i, name := range r.characterOrder {
		out[i] = r.character[name]
	}
	return out
}

// SessionIntentions returns every session_notes intention in declaration order.
func (r *Registry) SessionIntentions() []SessionIntention {
	out := make([]SessionIntention, len(r.sessionOrder))
	for i, name := range r.sessionOrder {
		out[i] = r.session[name]
	}
	return out
}

// RulebookIntentions returns every rulebook intention in declaration order.
func (r *Registry) RulebookIntentions() []RulebookIntention {
	out := make([]RulebookIntention, len(r.rulebookOrder))
	for i, name := range r.rulebookOrder {
		out[i] = r.rulebook[name]
	}
	return out
}

// Validate asserts the registry invariant from spec §4.6: every enumerated
// intention carries required sections (character only), a descriptive text,
// and — for session/rulebook — a declared strategy. Called once at startup;
// failing fast surfaces a registry-inconsistency error before any query runs.
func (r *Registry) Validate() error {
	var errs []error
	for _, ci := range r.character {
		if ci.Description == "" {
			errs = append(errs, fmt.Errorf("character_data/%s: missing description", ci.Name))
		}
		if len(ci.RequiredSections) == 0 {
			errs = append(errs, fmt.Errorf("character_data/%s: no required sections", ci.Name))
		}
	}
	for _, si := range r.session {
		if si.Description == "" {
			errs = append(errs, fmt.Errorf("session_notes/%s: missing description", si.Name))
		}
		if si.Strategy == "" {
			errs = append(errs, fmt.Errorf("session_notes/%s: no strategy declared", si.Name))
		}
	}
	for _, ri := range r.rulebook {
		if ri.Description == "" {
			errs = append(errs, fmt.Errorf("rulebook/%s: missing description", ri.Name))
		}
		if len(ri.Categories) == 0 {
			errs = append(errs, fmt.Errorf("rulebook/%s: no categories declared", ri.Name))
		}
		if ri.Strategy == "" {
			errs = append(errs, fmt.Errorf("rulebook/%s: no strategy declared", ri.Name))
		}
	}
	return errors.Join(errs...)
}
