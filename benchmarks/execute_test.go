package benchmarks

import (
	"context"
	"testing"

	"github.com/randalmurphal/nodemedic/pkg/nodemedic"
)

// BenchmarkRun_Linear_5 runs a 5-step linear graph.
func BenchmarkRun_Linear_5(b *testing.B) {
	compiled := mustCompile(buildLinearGraph(5))
	ctx := nodemedic.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, State{})
	}
}

// BenchmarkRun_Linear_10 runs a 10-step linear graph.
func BenchmarkRun_Linear_10(b *testing.B) {
	compiled := mustCompile(buildLinearGraph(10))
	ctx := nodemedic.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, State{})
	}
}

// BenchmarkRun_Linear_50 runs a 50-step linear graph.
func BenchmarkRun_Linear_50(b *testing.B) {
	compiled := mustCompile(buildLinearGraph(50))
	ctx := nodemedic.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, State{})
	}
}

// BenchmarkRun_Linear_100 runs a 100-step linear graph.
func BenchmarkRun_Linear_100(b *testing.B) {
	compiled := mustCompile(buildLinearGraph(100))
	ctx := nodemedic.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, State{})
	}
}

// BenchmarkRun_Branching runs a graph with conditional edges.
func BenchmarkRun_Branching(b *testing.B) {
	compiled := mustCompile(buildBranchingGraph())
	ctx := nodemedic.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, State{Severity: i})
	}
}

// BenchmarkRun_Loop runs a looping graph (3 iterations).
func BenchmarkRun_Loop(b *testing.B) {
	compiled := mustCompile(buildLoopGraph(3))
	ctx := nodemedic.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, State{})
	}
}

// BenchmarkRun_Loop_10 runs a looping graph (10 iterations).
func BenchmarkRun_Loop_10(b *testing.B) {
	compiled := mustCompile(buildLoopGraph(10))
	ctx := nodemedic.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, State{})
	}
}

// BenchmarkContextCreation measures context creation overhead.
func BenchmarkContextCreation(b *testing.B) {
	bg := context.Background()
	for i := 0; i < b.N; i++ {
		nodemedic.NewContext(bg)
	}
}

// Helper functions

func mustCompile(g *nodemedic.Graph[State]) *nodemedic.CompiledGraph[State] {
	compiled, err := g.Compile()
	if err != nil {
		panic(err)
	}
	return compiled
}

func buildLoopGraph(iterations int) *nodemedic.Graph[State] {
	retryStep := func(ctx nodemedic.Context, s State) (State, error) {
		s.Severity++
		return s, nil
	}

	router := func(ctx nodemedic.Context, s State) string {
		if s.Severity >= iterations {
			return "done"
		}
		return "retry"
	}

	return nodemedic.NewGraph[State]().
		AddStep("retry", retryStep).
		AddStep("done", noopStep).
		AddConditionalEdge("retry", router, map[string]string{
			"retry": "retry",
			"done":  "done",
		}).
		AddEdge("done", nodemedic.END).
		SetEntry("retry")
}
