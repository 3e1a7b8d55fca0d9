// Package store defines the external storage contracts the query engine
// loads its three corpora from: the character store, the session-notes
// store, and the rulebook store. All three are external collaborators per
// spec — this package only declares the interfaces the orchestrator and
// retrievers consume; concrete backends live in subpackages (memstore for
// tests and local corpora, postgres for the pgvector-backed production
// store).
package store

import (
	"context"
	"errors"

	"github.com/calvin-seamons/shadowscribe/pkg/domain"
)

// ErrCharacterNotFound is returned by [CharacterStore.LoadCharacter] when no
// character with the given name exists.
var ErrCharacterNotFound = errors.New("store: character not found")

// CharacterStore loads a single named character. The character-ingestion
// pipeline and the relational character store that populates it are out of
// scope; this interface is the one seam the query engine consumes.
type CharacterStore interface {
	// LoadCharacter returns the named character, or [ErrCharacterNotFound]
	// if none exists.
	LoadCharacter(ctx context.Context, name string) (domain.Character, error)
}

// SessionStore holds the full session-notes corpus, loaded once at startup
// into the in-memory shape of spec §3. There are no live per-query writes;
// the store is read-only for the lifetime of a process between reloads.
type SessionStore interface {
	// Notes returns every session note, ordered by ascending SessionNumber.
	Notes(ctx context.Context) ([]domain.SessionNote, error)
}

// RulebookStore holds the full rulebook corpus: sections with precomputed
// vectors and a derived category index, loaded once at startup.
type RulebookStore interface {
	// Sections returns every rulebook section. Order is not guaranteed to
	// be hierarchical; callers use ParentID/ChildrenIDs to traverse.
	Sections(ctx context.Context) ([]domain.Section, error)

	// Section looks up a single section by ID.
	Section(ctx context.Context, id string) (domain.Section, bool)

	// CategoryIndex returns section IDs for a category (1..10). The
	// invariant from spec §3 holds: a section's ID appears here for every
	// category in its Categories field, and no other.
	CategoryIndex(ctx context.Context, category int) ([]string, error)
}
