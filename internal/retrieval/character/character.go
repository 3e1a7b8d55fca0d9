// Package character implements the character-sheet retriever (C2): given a
// set of intentions, it returns the union of required sections, plus any
// optional sections an entity match refers to, shaped into a
// [domain.CharacterSlice].
package character

import (
	"context"
	"fmt"

	"github.com/calvin-seamons/shadowscribe/internal/registry"
	"github.com/calvin-seamons/shadowscribe/pkg/domain"
	"github.com/calvin-seamons/shadowscribe/pkg/store"
)

const maxIntentions = 2

// Retriever answers character_data queries against a [store.CharacterStore].
type Retriever struct {
	characters store.CharacterStore
	intentions *registry.Registry
}

// New returns a Retriever backed by chars for character data and reg for
// intention-to-section mapping.
func New(chars store.CharacterStore, reg *registry.Registry) *Retriever {
	return &Retriever{characters: chars, intentions: reg}
}

// Query implements C2's contract: query(intentions, entities, auto_include) →
// CharacterSlice. intentions must number 1 or 2; more is a hard error per
// spec §4.2.
func (r *Retriever) Query(ctx context.Context, characterName string, intentions []string, entities []domain.EntityMatch, autoInclude []string) (domain.CharacterSlice, error) {
	if len(intentions) == 0 {
		return domain.CharacterSlice{}, fmt.Errorf("character: at least one intention required")
	}
	if len(intentions) > maxIntentions {
		return domain.CharacterSlice{}, fmt.Errorf("character: at most %d intentions allowed, got %d", maxIntentions, len(intentions))
	}

	ch, err := r.characters.LoadCharacter(ctx, characterName)
	if err != nil {
		return domain.CharacterSlice{}, fmt.Errorf("character: load %q: %w", characterName, err)
	}

	required := make(map[string]struct{})
	optionalCandidates := make(map[string]struct{})
	for _, name := range intentions {
		ro, err := r.intentions.Character(name)
		if err != nil {
			return domain.CharacterSlice{}, fmt.Errorf("character: %w", err)
		}
		for _, s := range ro.RequiredSections {
			required[s] = struct{}{}
		}
		for _, s := range ro.OptionalSections {
			optionalCandidates[s] = struct{}{}
		}
	}

	included := make(map[string]struct{}, len(required)+len(autoInclude))
	for s := range required {
		included[s] = struct{}{}
	}
	for _, s := range autoInclude {
		included[s] = struct{}{}
	}
	// Optional sections only surface when an entity match references them —
	// per spec §4.2, they are never included purely because the intention lists them.
	for _, m := range entities {
		if _, wanted := optionalCandidates[m.SectionPath]; wanted {
			included[m.SectionPath] = struct{}{}
		}
	}

	sections := make(map[string]any, len(included))
	for name := range included {
		if v, ok := sectionValue(ch, name); ok {
			sections[name] = v
		}
	}

	return domain.CharacterSlice{Sections: sections}, nil
}

// sectionValue maps a section name to its value on ch, omitting nil pointers
// and empty slices/maps per spec §4.2's "omit None/empty lists" shaping rule.
func sectionValue(ch domain.Character, name string) (any, bool) {
	switch name {
	case "character_base":
		return ch.Base, true
	case "ability_scores":
		return ch.Abilities, true
	case "combat_stats":
		return ch.Combat, true
	case "inventory":
		return nonEmptySlice(ch.Inventory)
	case "spell_list":
		return nonEmptySlice(ch.SpellList)
	case "spellcasting_info":
		return nonNilPtr(ch.SpellcastingInfo)
	case "action_economy":
		return nonNilPtr(ch.ActionEconomy)
	case "features_and_traits":
		return nonEmptySlice(ch.FeaturesAndTraits)
	case "background_info":
		return nonNilPtr(ch.BackgroundInfo)
	case "personality_traits":
		return nonNilPtr(ch.PersonalityTraits)
	case "proficiencies_and_modifiers":
		return nonNilPtr(ch.ProficienciesAndModifiers)
	case "passive_scores_and_senses":
		return nonNilPtr(ch.PassiveScoresAndSenses)
	case "backstory":
		return nonNilPtr(ch.Backstory)
	case "organizations":
		return nonEmptySlice(ch.Organizations)
	case "allies":
		return nonEmptySlice(ch.Allies)
	case "enemies":
		return nonEmptySlice(ch.Enemies)
	case "objectives":
		return nonEmptySlice(ch.Objectives)
	default:
		return nil, false
	}
}

func nonNilPtr[T any](p *T) (any, bool) {
	if p == nil {
		return nil, false
	}
	return *p, true
}

func nonEmptySlice[T any](s []T) (any, bool) {
	if len(s) == 0 {
		return nil, false
	}
	return s, true
}
