package domain

import "errors"

// Sentinel errors for the orchestrator's sum-type error kinds (spec §7).
// Callers distinguish them with errors.Is rather than a type switch.
var (
	// ErrUnknownCharacter is returned when a query names a character not
	// present in the character store.
	ErrUnknownCharacter = errors.New("domain: unknown character")

	// ErrMalformedQuery is returned when a Query fails basic shape
	// validation (empty or whitespace-only text) before EXAMINE_LOCAL ever
	// runs.
	ErrMalformedQuery = errors.New("domain: malformed query")

	// ErrRoutingFailed is returned when LLM_ROUTE's selector/entity calls,
	// including their single repair attempt, fail to produce a usable plan.
	ErrRoutingFailed = errors.New("domain: routing failed")

	// ErrAllRetrieversFailed is returned when every tool selected for a
	// query fails or times out during DISPATCH_RETRIEVERS, leaving nothing
	// to assemble a final answer from.
	ErrAllRetrieversFailed = errors.New("domain: all retrievers failed")

	// ErrRegistryInconsistent wraps the registry validation error at startup
	// when an enumerated intention is missing its description, required
	// sections, categories or strategy.
	ErrRegistryInconsistent = errors.New("domain: registry inconsistent")

	// ErrFatalStorage is returned when a store-layer failure is severe
	// enough that the caller should abort rather than degrade.
	ErrFatalStorage = errors.New("domain: fatal storage error")
)
