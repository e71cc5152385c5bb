package nodemedic

import (
	"errors"
	"fmt"
	"log/slog"
)

// Compile validates the graph and creates an executable CompiledGraph.
// Returns an error if validation fails. Multiple errors are joined together.
//
// Validation checks (in order):
//  1. Entry point must be set
//  2. Entry point must reference an existing step
//  3. All edge sources must reference existing steps
//  4. All edge targets (including route table targets) must reference
//     existing steps or END
//  5. All steps must have a path to END
//
// Unreachable steps (not reachable from entry) are logged as warnings
// but do not cause compilation to fail.
func (g *Graph[S]) Compile() (*CompiledGraph[S], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error

	if g.entryPoint == "" {
		errs = append(errs, ErrNoEntryPoint)
	} else if _, exists := g.steps[g.entryPoint]; !exists {
		errs = append(errs, fmt.Errorf("%w: %s", ErrEntryNotFound, g.entryPoint))
	}

	for from, to := range g.edges {
		if _, exists := g.steps[from]; !exists {
			if _, hasConditional := g.routers[from]; !hasConditional {
				errs = append(errs, fmt.Errorf("%w: edge source '%s' does not exist", ErrStepNotFound, from))
			}
		}
		if to != END {
			if _, exists := g.steps[to]; !exists {
				errs = append(errs, fmt.Errorf("%w: edge target '%s' does not exist", ErrStepNotFound, to))
			}
		}
	}

	// Conditional edge sources and route table targets.
	for from, table := range g.routes {
		if _, exists := g.steps[from]; !exists {
			errs = append(errs, fmt.Errorf("%w: conditional edge source '%s' does not exist", ErrStepNotFound, from))
		}
		for key, to := range table {
			if to != END {
				if _, exists := g.steps[to]; !exists {
					errs = append(errs, fmt.Errorf("%w: route '%s' from '%s' targets '%s'", ErrStepNotFound, key, from, to))
				}
			}
		}
	}

	if g.entryPoint != "" {
		if _, exists := g.steps[g.entryPoint]; exists {
			if !g.hasPathToEnd() {
				errs = append(errs, ErrNoPathToEnd)
			}
		}
	}

	g.warnUnreachableSteps()

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return g.buildCompiledGraph(), nil
}

// hasPathToEnd checks if there's a path from entry to END using reverse
// reachability. Route tables make conditional successors known at
// compile time, so no special-casing is needed.
func (g *Graph[S]) hasPathToEnd() bool {
	canReachEnd := make(map[string]bool)
	canReachEnd[END] = true

	changed := true
	for changed {
		changed = false

		for from, to := range g.edges {
			if !canReachEnd[from] && canReachEnd[to] {
				canReachEnd[from] = true
				changed = true
			}
		}

		for from, table := range g.routes {
			if canReachEnd[from] {
				continue
			}
			for _, to := range table {
				if canReachEnd[to] {
					canReachEnd[from] = true
					changed = true
					break
				}
			}
		}
	}

	return canReachEnd[g.entryPoint]
}

// warnUnreachableSteps logs warnings for steps not reachable from entry.
func (g *Graph[S]) warnUnreachableSteps() {
	if g.entryPoint == "" {
		return
	}

	reachable := g.findReachableSteps()

	for stepID := range g.steps {
		if !reachable[stepID] {
			slog.Warn("step is unreachable from entry", "step", stepID)
		}
	}
}

// findReachableSteps returns the set of steps reachable from the entry
// point, following both simple edges and route table targets.
func (g *Graph[S]) findReachableSteps() map[string]bool {
	reachable := make(map[string]bool)

	if g.entryPoint == "" {
		return reachable
	}

	queue := []string{g.entryPoint}
	reachable[g.entryPoint] = true

	visit := func(queue []string, target string) []string {
		if target != END && !reachable[target] {
			reachable[target] = true
			queue = append(queue, target)
		}
		return queue
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if to, ok := g.edges[current]; ok {
			queue = visit(queue, to)
		}
		for _, to := range g.routes[current] {
			queue = visit(queue, to)
		}
	}

	return reachable
}

// buildCompiledGraph creates the immutable CompiledGraph from the builder state.
func (g *Graph[S]) buildCompiledGraph() *CompiledGraph[S] {
	steps := make(map[string]StepFunc[S], len(g.steps))
	for id, fn := range g.steps {
		steps[id] = fn
	}

	edges := make(map[string]string, len(g.edges))
	for from, to := range g.edges {
		edges[from] = to
	}

	routers := make(map[string]RouterFunc[S], len(g.routers))
	for from, router := range g.routers {
		routers[from] = router
	}

	routes := make(map[string]map[string]string, len(g.routes))
	for from, table := range g.routes {
		copied := make(map[string]string, len(table))
		for key, to := range table {
			copied[key] = to
		}
		routes[from] = copied
	}

	return &CompiledGraph[S]{
		steps:      steps,
		edges:      edges,
		routers:    routers,
		routes:     routes,
		entryPoint: g.entryPoint,
	}
}
