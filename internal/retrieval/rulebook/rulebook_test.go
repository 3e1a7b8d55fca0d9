package rulebook_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvin-seamons/shadowscribe/internal/registry"
	"github.com/calvin-seamons/shadowscribe/internal/retrieval/rulebook"
	"github.com/calvin-seamons/shadowscribe/internal/tokenbudget"
	"github.com/calvin-seamons/shadowscribe/pkg/domain"
	embmock "github.com/calvin-seamons/shadowscribe/pkg/provider/embeddings/mock"
	"github.com/calvin-seamons/shadowscribe/pkg/store/memstore"
)

func ptr(s string) *string { return &s }

func testSections() []domain.Section {
	return []domain.Section{
		{ID: "combat-root", Title: "Combat", Level: 1, Categories: []int{2}, ChildrenIDs: []string{"combat-actions"}, Vector: []float32{1, 0, 0}},
		{ID: "combat-actions", Title: "Actions in Combat", Level: 4, Content: "You can take one action and one bonus action on your turn.", ParentID: ptr("combat-root"), Categories: []int{2}, Vector: []float32{0.9, 0.1, 0}},
		{ID: "spell-root", Title: "Spellcasting", Level: 1, Categories: []int{3}, ChildrenIDs: []string{"spell-concentration"}, Vector: []float32{0, 1, 0}},
		{ID: "spell-concentration", Title: "Concentration", Level: 4, Content: "Some spells require you to maintain concentration.", ParentID: ptr("spell-root"), Categories: []int{3}, Vector: []float32{0, 0.9, 0.1}},
	}
}

func newTestRetriever(t *testing.T) *rulebook.Retriever {
	t.Helper()
	counter, err := tokenbudget.New()
	require.NoError(t, err)
	store := memstore.NewRulebookStore(testSections())
	embedder := &embmock.Provider{EmbedResult: []float32{1, 0, 0}}
	return rulebook.New(store, embedder, registry.New(), counter)
}

func TestQuery_CategoryFilterRestrictsCandidates(t *testing.T) {
	r := newTestRetriever(t)

	hits, err := r.Query(context.Background(), "what actions can I take", "combat_actions", nil, nil, 10, nil)
	require.NoError(t, err)
	for _, h := range hits {
		assert.Contains(t, []string{"combat-root", "combat-actions"}, h.SectionID)
	}
}

func TestQuery_ScoresAreClampedToUnitInterval(t *testing.T) {
	r := newTestRetriever(t)

	hits, err := r.Query(context.Background(), "what actions can I take", "combat_actions", nil, nil, 10, nil)
	require.NoError(t, err)
	for _, h := range hits {
		assert.GreaterOrEqual(t, h.Score, 0.0)
		assert.LessOrEqual(t, h.Score, 1.0)
	}
}

func TestQuery_AutoIncludeBypassesCategoryFilter(t *testing.T) {
	r := newTestRetriever(t)

	hits, err := r.Query(context.Background(), "concentration question", "combat_actions", nil, nil, 10, []string{"spell-concentration"})
	require.NoError(t, err)

	var found bool
	for _, h := range hits {
		if h.SectionID == "spell-concentration" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestQuery_NoCandidatesReturnsEmpty(t *testing.T) {
	counter, err := tokenbudget.New()
	require.NoError(t, err)
	store := memstore.NewRulebookStore(nil)
	embedder := &embmock.Provider{EmbedResult: []float32{1, 0, 0}}
	r := rulebook.New(store, embedder, registry.New(), counter)

	hits, err := r.Query(context.Background(), "anything", "combat_actions", nil, nil, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestContentSlice_ExpandsTopSectionDescendants(t *testing.T) {
	r := newTestRetriever(t)

	content, err := r.ContentSlice(context.Background(), []domain.RulebookHit{{SectionID: "combat-root", Score: 0.9}}, 8000)
	require.NoError(t, err)
	assert.Contains(t, content, "bonus action")
}

func TestQuery_UnknownIntentionFails(t *testing.T) {
	r := newTestRetriever(t)

	_, err := r.Query(context.Background(), "x", "not_a_real_intention", nil, nil, 10, nil)
	require.Error(t, err)
}
