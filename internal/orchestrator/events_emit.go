package orchestrator

import "github.com/calvin-seamons/shadowscribe/pkg/domain"

// emitRouting sends the "routing" metadata event, the first event on every
// path that gets past routing (an earlier failure sends only Err). source is threaded through explicitly because st.decision.Source
// may not yet be set on the fastpath/abstain paths, which never populate a
// full RoutingDecision.
func (o *Orchestrator) emitRouting(st *runState, out chan<- Event, source domain.RoutingSource) {
	decision := st.decision
	decision.Source = source
	out <- Event{Metadata: &domain.MetadataEvent{Kind: domain.MetadataRouting, Routing: &decision}}
}

// emitEntities sends the "entities" metadata event once RESOLVE_ENTITIES
// completes.
func (o *Orchestrator) emitEntities(st *runState, out chan<- Event) {
	out <- Event{Metadata: &domain.MetadataEvent{Kind: domain.MetadataEntities, Entities: st.entityResults}}
}

// emitContextSources sends the "context_sources" metadata event naming every
// tool that actually contributed a non-empty slice to the assembled context.
func (o *Orchestrator) emitContextSources(st *runState, out chan<- Event) {
	out <- Event{Metadata: &domain.MetadataEvent{Kind: domain.MetadataContextSources, Sources: st.sources}}
}

// emitPerformance sends the terminal "performance" metadata event, the last
// metadata event on every successful path (failure paths end with Err and
// send none), carrying the full per-stage latency
// breakdown plus the end-to-end total.
func (o *Orchestrator) emitPerformance(st *runState, out chan<- Event) {
	stage := make(map[string]int64, len(st.stage)+1)
	for k, v := range st.stage {
		stage[k] = v
	}
	stage["total"] = elapsedMS(st.start)
	out <- Event{Metadata: &domain.MetadataEvent{Kind: domain.MetadataPerformance, StageMS: stage}}
}
