package orchestrator

import "github.com/calvin-seamons/shadowscribe/pkg/domain"

// Event is one item on the stream [Orchestrator.Run] returns: either a
// metadata event, a response chunk, or the terminal signal. Exactly one of
// Metadata/Chunk is set on a non-terminal event; Err is set only on the
// terminal error path.
type Event struct {
	Metadata *domain.MetadataEvent
	Chunk    string
	Done     bool
	Err      error
}
