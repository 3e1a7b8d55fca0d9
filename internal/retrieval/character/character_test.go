package character_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvin-seamons/shadowscribe/internal/registry"
	"github.com/calvin-seamons/shadowscribe/internal/retrieval/character"
	"github.com/calvin-seamons/shadowscribe/pkg/domain"
	"github.com/calvin-seamons/shadowscribe/pkg/store/memstore"
)

func testCharacter() domain.Character {
	backstory := "Raised in the ashes of a burned temple."
	return domain.Character{
		Base:      domain.CharacterBase{Name: "Kael", Race: "Human", Class: "Paladin", TotalLevel: 5},
		Abilities: domain.AbilityScores{STR: 16, DEX: 12, CON: 14, INT: 10, WIS: 13, CHA: 15},
		Combat:    domain.CombatStats{MaxHP: 44, ArmorClass: 18, InitiativeBonus: 1, Speed: 30, HitDice: "5d10"},
		Inventory: []domain.InventoryItem{{Name: "Longsword of Flame", Quantity: 1}},
		Backstory: &backstory,
		Allies:    []string{"Brother Aldric"},
	}
}

func newTestRetriever(t *testing.T) *character.Retriever {
	t.Helper()
	chars := memstore.NewCharacterStore(map[string]domain.Character{"Kael": testCharacter()})
	return character.New(chars, registry.New())
}

func TestQuery_SingleIntentionRequiredSectionsOnly(t *testing.T) {
	r := newTestRetriever(t)

	slice, err := r.Query(context.Background(), "Kael", []string{"character_basics"}, nil, nil)
	require.NoError(t, err)

	assert.Contains(t, slice.Sections, "character_base")
	assert.NotContains(t, slice.Sections, "ability_scores")
}

func TestQuery_UnionAcrossTwoIntentions(t *testing.T) {
	r := newTestRetriever(t)

	slice, err := r.Query(context.Background(), "Kael", []string{"character_basics", "abilities_info"}, nil, nil)
	require.NoError(t, err)

	assert.Contains(t, slice.Sections, "character_base")
	assert.Contains(t, slice.Sections, "ability_scores")
}

func TestQuery_MoreThanTwoIntentionsIsHardError(t *testing.T) {
	r := newTestRetriever(t)

	_, err := r.Query(context.Background(), "Kael", []string{"character_basics", "abilities_info", "combat_info"}, nil, nil)
	require.Error(t, err)
}

func TestQuery_OptionalSectionOnlyIncludedOnEntityMatch(t *testing.T) {
	r := newTestRetriever(t)

	slice, err := r.Query(context.Background(), "Kael", []string{"abilities_info"}, nil, nil)
	require.NoError(t, err)
	assert.NotContains(t, slice.Sections, "proficiencies_and_modifiers")

	slice, err = r.Query(context.Background(), "Kael", []string{"abilities_info"},
		[]domain.EntityMatch{{SectionPath: "proficiencies_and_modifiers", Strategy: domain.StrategyExact, Confidence: 1}}, nil)
	require.NoError(t, err)
	assert.Contains(t, slice.Sections, "proficiencies_and_modifiers")
}

func TestQuery_AutoIncludeBypassesIntentionMapping(t *testing.T) {
	r := newTestRetriever(t)

	slice, err := r.Query(context.Background(), "Kael", []string{"character_basics"}, nil, []string{"inventory"})
	require.NoError(t, err)
	assert.Contains(t, slice.Sections, "inventory")
}

func TestQuery_OmitsEmptyOptionalSections(t *testing.T) {
	r := newTestRetriever(t)

	// spell_list/spellcasting_info are required by magic_info but Kael has none set.
	slice, err := r.Query(context.Background(), "Kael", []string{"magic_info"}, nil, nil)
	require.NoError(t, err)
	assert.NotContains(t, slice.Sections, "spell_list")
	assert.NotContains(t, slice.Sections, "spellcasting_info")
}

func TestQuery_UnknownCharacterFails(t *testing.T) {
	r := newTestRetriever(t)

	_, err := r.Query(context.Background(), "Nobody", []string{"character_basics"}, nil, nil)
	require.Error(t, err)
}

func TestQuery_ZeroIntentionsFails(t *testing.T) {
	r := newTestRetriever(t)

	_, err := r.Query(context.Background(), "Kael", nil, nil, nil)
	require.Error(t, err)
}
