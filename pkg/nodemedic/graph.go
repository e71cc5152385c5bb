package nodemedic

import (
	"fmt"
	"strings"
	"sync"
)

// Graph is a mutable builder for creating turn pipelines.
// Use NewGraph to create a new graph, then chain AddStep, AddEdge,
// AddConditionalEdge, and SetEntry calls to define the flow.
//
// Graph is NOT thread-safe during building. Use a single goroutine
// to construct the graph, then call Compile() to create an immutable
// CompiledGraph that can be safely shared.
//
// Example:
//
//	graph := nodemedic.NewGraph[TurnState]().
//	    AddStep("classify", classifyStep).
//	    AddStep("respond", respondStep).
//	    AddConditionalEdge("classify", classifyRouter, map[string]string{
//	        "respond": "respond",
//	    }).
//	    AddEdge("respond", nodemedic.END).
//	    SetEntry("classify")
//
//	compiled, err := graph.Compile()
type Graph[S any] struct {
	mu         sync.RWMutex
	steps      map[string]StepFunc[S]
	edges      map[string]string
	routers    map[string]RouterFunc[S]
	routes     map[string]map[string]string
	entryPoint string
}

// NewGraph creates a new graph builder for state type S.
func NewGraph[S any]() *Graph[S] {
	return &Graph[S]{
		steps:   make(map[string]StepFunc[S]),
		edges:   make(map[string]string),
		routers: make(map[string]RouterFunc[S]),
		routes:  make(map[string]map[string]string),
	}
}

// AddStep adds a named step to the graph.
// Returns the graph for method chaining.
//
// Panics if:
//   - id is empty
//   - id is the reserved word "END" or "__end__" (case-insensitive)
//   - id contains whitespace
//   - fn is nil
//   - id already exists in the graph
func (g *Graph[S]) AddStep(id string, fn StepFunc[S]) *Graph[S] {
	if id == "" {
		panic("nodemedic: step ID cannot be empty")
	}

	idLower := strings.ToLower(id)
	if idLower == "end" || idLower == "__end__" {
		panic("nodemedic: step ID cannot be reserved word 'END'")
	}

	if strings.ContainsAny(id, " \t\n\r") {
		panic("nodemedic: step ID cannot contain whitespace")
	}

	if fn == nil {
		panic("nodemedic: step function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.steps[id]; exists {
		panic(fmt.Sprintf("nodemedic: duplicate step ID: %s", id))
	}

	g.steps[id] = fn
	return g
}

// AddEdge adds an unconditional edge from one step to another.
// The target can be a step ID or nodemedic.END.
// Returns the graph for method chaining.
//
// Each step has at most one unconditional edge. Adding a second
// edge from the same step panics.
//
// Edge target validation happens at Compile() time, not here.
// This allows edges to be added in any order.
func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.edges[from]; exists {
		panic(fmt.Sprintf("nodemedic: duplicate edge from step: %s", from))
	}

	g.edges[from] = to
	return g
}

// AddConditionalEdge adds a conditional edge where a RouterFunc selects
// a route key at runtime and the route table maps keys to next steps.
// Returns the graph for method chaining.
//
// Making routing a static table keeps the possible transitions
// inspectable at compile time; only the key choice is dynamic.
//
// A step can have either a simple edge or a conditional edge, not both.
// If both are present, the conditional edge takes precedence.
func (g *Graph[S]) AddConditionalEdge(from string, router RouterFunc[S], routes map[string]string) *Graph[S] {
	if router == nil {
		panic("nodemedic: router function cannot be nil")
	}
	if len(routes) == 0 {
		panic("nodemedic: route table cannot be empty")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	table := make(map[string]string, len(routes))
	for key, to := range routes {
		table[key] = to
	}
	g.routers[from] = router
	g.routes[from] = table
	return g
}

// SetEntry designates the entry point step.
// This must be called before Compile().
// Returns the graph for method chaining.
//
// Entry point validation happens at Compile() time.
func (g *Graph[S]) SetEntry(id string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entryPoint = id
	return g
}
