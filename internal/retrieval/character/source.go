package character

import (
	"github.com/calvin-seamons/shadowscribe/internal/entitysearch"
	"github.com/calvin-seamons/shadowscribe/pkg/domain"
)

// Source adapts a loaded [domain.Character] into an
// [entitysearch.CharacterSource], exposing the text fields entity resolution
// searches: inventory items, spells, allies, enemies, NPCs mentioned in
// features, organizations, and skill/save proficiencies.
type Source struct {
	character domain.Character
}

// NewSource wraps ch for entity search.
func NewSource(ch domain.Character) Source {
	return Source{character: ch}
}

var _ entitysearch.CharacterSource = Source{}

// Fields implements [entitysearch.CharacterSource].
func (s Source) Fields() []entitysearch.SourceField {
	var out []entitysearch.SourceField
	for _, item := range s.character.Inventory {
		out = append(out, entitysearch.SourceField{SectionPath: "inventory", Text: item.Name})
	}
	for _, spell := range s.character.SpellList {
		out = append(out, entitysearch.SourceField{SectionPath: "spell_list", Text: spell.Name})
	}
	for _, feat := range s.character.FeaturesAndTraits {
		out = append(out, entitysearch.SourceField{SectionPath: "features_and_traits", Text: feat.Name})
	}
	for _, ally := range s.character.Allies {
		out = append(out, entitysearch.SourceField{SectionPath: "allies", Text: ally})
	}
	for _, enemy := range s.character.Enemies {
		out = append(out, entitysearch.SourceField{SectionPath: "enemies", Text: enemy})
	}
	for _, org := range s.character.Organizations {
		out = append(out, entitysearch.SourceField{SectionPath: "organizations", Text: org})
	}
	if pm := s.character.ProficienciesAndModifiers; pm != nil {
		for skill := range pm.SkillProficiencies {
			out = append(out, entitysearch.SourceField{SectionPath: "proficiencies_and_modifiers", Text: skill})
		}
		for save := range pm.SaveProficiencies {
			out = append(out, entitysearch.SourceField{SectionPath: "proficiencies_and_modifiers", Text: save})
		}
	}
	return out
}
