package nodemedic

// CompiledGraph is an immutable, executable turn pipeline.
// It is created by calling Compile() on a Graph builder.
//
// CompiledGraph is thread-safe and can be used concurrently for multiple
// Run() calls. The graph structure cannot be modified after compilation.
//
// Use the introspection methods (StepIDs, Routes, etc.) to examine
// the graph structure for debugging or visualization.
type CompiledGraph[S any] struct {
	steps      map[string]StepFunc[S]
	edges      map[string]string
	routers    map[string]RouterFunc[S]
	routes     map[string]map[string]string
	entryPoint string
}

// EntryPoint returns the entry step ID.
func (cg *CompiledGraph[S]) EntryPoint() string {
	return cg.entryPoint
}

// StepIDs returns all step identifiers in the graph.
// The order is not guaranteed.
func (cg *CompiledGraph[S]) StepIDs() []string {
	ids := make([]string, 0, len(cg.steps))
	for id := range cg.steps {
		ids = append(ids, id)
	}
	return ids
}

// HasStep checks if a step exists in the graph.
func (cg *CompiledGraph[S]) HasStep(id string) bool {
	_, exists := cg.steps[id]
	return exists
}

// Successor returns the unconditional edge target for the given step,
// or "" if the step has none.
func (cg *CompiledGraph[S]) Successor(id string) string {
	return cg.edges[id]
}

// Routes returns a copy of the route table for the given step,
// or nil if the step has no conditional edge.
func (cg *CompiledGraph[S]) Routes(id string) map[string]string {
	table, ok := cg.routes[id]
	if !ok {
		return nil
	}
	copied := make(map[string]string, len(table))
	for key, to := range table {
		copied[key] = to
	}
	return copied
}

// IsConditional returns true if the step has a conditional edge.
func (cg *CompiledGraph[S]) IsConditional(id string) bool {
	_, exists := cg.routers[id]
	return exists
}

// getStep returns the step function for the given ID.
// Used internally by the driver.
func (cg *CompiledGraph[S]) getStep(id string) (StepFunc[S], bool) {
	fn, exists := cg.steps[id]
	return fn, exists
}

// getRouter returns the router and route table for the given step.
// Used internally by the driver.
func (cg *CompiledGraph[S]) getRouter(id string) (RouterFunc[S], map[string]string, bool) {
	router, exists := cg.routers[id]
	if !exists {
		return nil, nil, false
	}
	return router, cg.routes[id], true
}
