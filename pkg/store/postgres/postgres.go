// Package postgres provides a PostgreSQL/pgvector-backed implementation of
// the three store contracts in [github.com/calvin-seamons/shadowscribe/pkg/store]:
// characters, session notes, and rulebook sections. Rulebook section vectors
// and session summary embeddings are stored as pgvector columns; the rest of
// a session note, including its event embeddings, lives in the JSONB data
// column.
//
// The session-notes and rulebook corpora are loaded once at startup and held
// in memory until an explicit [Store.Reload]; characters are queried from
// Postgres on every [Store.LoadCharacter] call.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/calvin-seamons/shadowscribe/pkg/domain"
	"github.com/calvin-seamons/shadowscribe/pkg/store"
)

const ddl = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS characters (
    name TEXT PRIMARY KEY,
    data JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS session_notes (
    session_number    INTEGER PRIMARY KEY,
    data              JSONB NOT NULL,
    summary_embedding VECTOR(%d)
);

CREATE TABLE IF NOT EXISTS rulebook_sections (
    id          TEXT PRIMARY KEY,
    title       TEXT NOT NULL,
    level       INTEGER NOT NULL,
    content     TEXT NOT NULL,
    parent_id   TEXT,
    children_ids TEXT[] NOT NULL DEFAULT '{}',
    categories  INTEGER[] NOT NULL DEFAULT '{}',
    embedding   VECTOR(%d)
);

CREATE INDEX IF NOT EXISTS idx_rulebook_sections_embedding
    ON rulebook_sections USING hnsw (embedding vector_cosine_ops);
`

// Store is the central Postgres-backed corpus store. It loads characters on
// demand (small, per-query lookups) and session notes / rulebook sections
// once at startup, held as immutable snapshots per spec §5's shared-resource
// policy.
type Store struct {
	pool *pgxpool.Pool

	sessions []domain.SessionNote
	sections []domain.Section
	byCat    map[int][]string
	byID     map[string]domain.Section
}

var (
	_ store.CharacterStore = (*Store)(nil)
	_ store.SessionStore   = (*Store)(nil)
	_ store.RulebookStore  = (*Store)(nil)
)

// Open connects to dsn, ensures the schema exists, and loads the
// session-notes and rulebook corpora into memory. embeddingDimensions must
// match the configured embedding provider's output length.
func Open(ctx context.Context, dsn string, embeddingDimensions int) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store/postgres: connect: %w", err)
	}
	if _, err := pool.Exec(ctx, fmt.Sprintf(ddl, embeddingDimensions, embeddingDimensions)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store/postgres: migrate: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.Reload(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Reload re-reads the session-notes and rulebook corpora from Postgres and
// replaces the in-memory snapshot field by field, without locking, so it
// is not safe to call while queries are running. Characters are not cached (LoadCharacter
// always queries live) since the character store is an external collaborator
// expected to mutate independently of this process's corpus lifecycle.
func (s *Store) Reload(ctx context.Context) error {
	sessions, err := s.loadSessions(ctx)
	if err != nil {
		return err
	}
	sections, byID, byCat, err := s.loadSections(ctx)
	if err != nil {
		return err
	}

	s.sessions = sessions
	s.sections = sections
	s.byID = byID
	s.byCat = byCat
	return nil
}

// LoadCharacter implements [store.CharacterStore].
func (s *Store) LoadCharacter(ctx context.Context, name string) (domain.Character, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM characters WHERE name = $1`, name).Scan(&raw)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Character{}, fmt.Errorf("%w: %q", store.ErrCharacterNotFound, name)
		}
		return domain.Character{}, fmt.Errorf("store/postgres: load character: %w", err)
	}
	var c domain.Character
	if err := json.Unmarshal(raw, &c); err != nil {
		return domain.Character{}, fmt.Errorf("store/postgres: decode character %q: %w", name, err)
	}
	return c, nil
}

// Notes implements [store.SessionStore] from the in-memory snapshot taken at
// the last [Store.Reload].
func (s *Store) Notes(_ context.Context) ([]domain.SessionNote, error) {
	return s.sessions, nil
}

// Sections implements [store.RulebookStore] from the in-memory snapshot.
func (s *Store) Sections(_ context.Context) ([]domain.Section, error) {
	return s.sections, nil
}

// Section implements [store.RulebookStore].
func (s *Store) Section(_ context.Context, id string) (domain.Section, bool) {
	sec, ok := s.byID[id]
	return sec, ok
}

// CategoryIndex implements [store.RulebookStore].
func (s *Store) CategoryIndex(_ context.Context, category int) ([]string, error) {
	return s.byCat[category], nil
}

func (s *Store) loadSessions(ctx context.Context) ([]domain.SessionNote, error) {
	rows, err := s.pool.Query(ctx, `SELECT data, summary_embedding FROM session_notes ORDER BY session_number ASC`)
	if err != nil {
		return nil, fmt.Errorf("store/postgres: load sessions: %w", err)
	}
	defer rows.Close()

	var notes []domain.SessionNote
	for rows.Next() {
		var raw []byte
		var vec pgvector.Vector
		if err := rows.Scan(&raw, &vec); err != nil {
			return nil, fmt.Errorf("store/postgres: scan session row: %w", err)
		}
		var n domain.SessionNote
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("store/postgres: decode session row: %w", err)
		}
		n.SummaryEmbedding = vec.Slice()
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func (s *Store) loadSections(ctx context.Context) ([]domain.Section, map[string]domain.Section, map[int][]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, level, content, parent_id, children_ids, categories, embedding
		FROM rulebook_sections`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("store/postgres: load sections: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]domain.Section)
	byCat := make(map[int][]string)
	var sections []domain.Section
	for rows.Next() {
		var sec domain.Section
		var parentID *string
		var vec pgvector.Vector
		if err := rows.Scan(&sec.ID, &sec.Title, &sec.Level, &sec.Content, &parentID,
			&sec.ChildrenIDs, &sec.Categories, &vec); err != nil {
			return nil, nil, nil, fmt.Errorf("store/postgres: scan section row: %w", err)
		}
		sec.ParentID = parentID
		sec.Vector = vec.Slice()
		sections = append(sections, sec)
		byID[sec.ID] = sec
		for _, cat := range sec.Categories {
			byCat[cat] = append(byCat[cat], sec.ID)
		}
	}
	return sections, byID, byCat, rows.Err()
}
