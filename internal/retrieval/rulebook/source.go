package rulebook

import (
	"context"
	"fmt"

	"github.com/calvin-seamons/shadowscribe/internal/entitysearch"
	"github.com/calvin-seamons/shadowscribe/pkg/domain"
	"github.com/calvin-seamons/shadowscribe/pkg/store"
)

// Source adapts the rulebook corpus into an [entitysearch.RulebookSource].
// Section paths are tagged with ":title", ":leaf", or ":nonleaf" so
// [entityHitCounts] can apply spec §4.4's per-kind entity-boost weights.
type Source struct {
	sections []domain.Section
}

// NewSource loads every section from sections for entity search.
func NewSource(ctx context.Context, sections store.RulebookStore) (Source, error) {
	secs, err := sections.Sections(ctx)
	if err != nil {
		return Source{}, err
	}
	return Source{sections: secs}, nil
}

var _ entitysearch.RulebookSource = Source{}

// Fields implements [entitysearch.RulebookSource].
func (s Source) Fields() []entitysearch.SourceField {
	var out []entitysearch.SourceField
	for _, sec := range s.sections {
		out = append(out, entitysearch.SourceField{
			SectionPath: fmt.Sprintf("%s:title", sec.ID), Text: sec.Title,
		})
		if sec.IsLeaf() {
			out = append(out, entitysearch.SourceField{
				SectionPath: fmt.Sprintf("%s:leaf", sec.ID), Text: sec.Content,
			})
		} else if sec.Content != "" {
			out = append(out, entitysearch.SourceField{
				SectionPath: fmt.Sprintf("%s:nonleaf", sec.ID), Text: sec.Content,
			})
		}
	}
	return out
}
