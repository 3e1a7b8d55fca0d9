package session

import (
	"context"

	"github.com/calvin-seamons/shadowscribe/internal/entitysearch"
	"github.com/calvin-seamons/shadowscribe/pkg/domain"
)

// Source adapts the full session-notes corpus into an
// [entitysearch.SessionSource], exposing NPC names, locations, items, and
// decision-table keys as searchable fields.
type Source struct {
	notes []domain.SessionNote
}

// NewSource loads every session note from sessions for entity search.
func NewSource(ctx context.Context, sessions interface {
	Notes(ctx context.Context) ([]domain.SessionNote, error)
}) (Source, error) {
	notes, err := sessions.Notes(ctx)
	if err != nil {
		return Source{}, err
	}
	return Source{notes: notes}, nil
}

var _ entitysearch.SessionSource = Source{}

// Fields implements [entitysearch.SessionSource].
func (s Source) Fields() []entitysearch.SourceField {
	var out []entitysearch.SourceField
	for _, n := range s.notes {
		for name := range n.NPCs {
			out = append(out, entitysearch.SourceField{SectionPath: "session:npcs", Text: name})
		}
		for _, loc := range n.Locations {
			out = append(out, entitysearch.SourceField{SectionPath: "session:locations", Text: loc})
		}
		for _, item := range n.Items {
			out = append(out, entitysearch.SourceField{SectionPath: "session:items", Text: item})
		}
		for who := range n.Decisions {
			out = append(out, entitysearch.SourceField{SectionPath: "session:decisions", Text: who})
		}
	}
	return out
}
