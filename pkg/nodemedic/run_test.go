package nodemedic

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/randalmurphal/nodemedic/pkg/nodemedic/checkpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearGraph(t *testing.T) *CompiledGraph[testState] {
	t.Helper()
	compiled, err := NewGraph[testState]().
		AddStep("a", appendStep("a")).
		AddStep("b", appendStep("b")).
		AddEdge("a", "b").
		AddEdge("b", END).
		SetEntry("a").
		Compile()
	require.NoError(t, err)
	return compiled
}

func TestRun_Linear(t *testing.T) {
	compiled := linearGraph(t)

	result, err := compiled.Run(NewContext(context.Background()), testState{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, result.Path)
}

func TestRun_NilContext(t *testing.T) {
	compiled := linearGraph(t)

	_, err := compiled.Run(nil, testState{})
	assert.ErrorIs(t, err, ErrNilContext)
}

func TestRun_ConditionalRouting(t *testing.T) {
	compiled, err := NewGraph[testState]().
		AddStep("classify", appendStep("classify")).
		AddStep("search", appendStep("search")).
		AddStep("respond", appendStep("respond")).
		AddConditionalEdge("classify",
			func(ctx Context, s testState) string { return s.Route },
			map[string]string{
				"search":  "search",
				"respond": "respond",
			}).
		AddEdge("search", "respond").
		AddEdge("respond", END).
		SetEntry("classify").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(NewContext(context.Background()), testState{Route: "search"})
	require.NoError(t, err)
	assert.Equal(t, []string{"classify", "search", "respond"}, result.Path)

	result, err = compiled.Run(NewContext(context.Background()), testState{Route: "respond"})
	require.NoError(t, err)
	assert.Equal(t, []string{"classify", "respond"}, result.Path)
}

func TestRun_UnknownRouteKey(t *testing.T) {
	compiled, err := NewGraph[testState]().
		AddStep("classify", appendStep("classify")).
		AddStep("respond", appendStep("respond")).
		AddConditionalEdge("classify",
			func(ctx Context, s testState) string { return "bogus" },
			map[string]string{"respond": "respond"}).
		AddEdge("respond", END).
		SetEntry("classify").
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(NewContext(context.Background()), testState{})
	require.Error(t, err)

	var routerErr *RouterError
	require.ErrorAs(t, err, &routerErr)
	assert.Equal(t, "classify", routerErr.FromStep)
	assert.Equal(t, "bogus", routerErr.Returned)
	assert.ErrorIs(t, err, ErrUnknownRoute)
}

func TestRun_StepError(t *testing.T) {
	boom := errors.New("boom")
	compiled, err := NewGraph[testState]().
		AddStep("a", appendStep("a")).
		AddStep("b", func(ctx Context, s testState) (testState, error) {
			return s, boom
		}).
		AddEdge("a", "b").
		AddEdge("b", END).
		SetEntry("a").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(NewContext(context.Background()), testState{})
	require.Error(t, err)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "b", stepErr.Step)
	assert.ErrorIs(t, err, boom)

	// State at point of failure is returned.
	assert.Equal(t, []string{"a"}, result.Path)
}

func TestRun_PanicRecovery(t *testing.T) {
	compiled, err := NewGraph[testState]().
		AddStep("a", func(ctx Context, s testState) (testState, error) {
			panic("unexpected")
		}).
		AddEdge("a", END).
		SetEntry("a").
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(NewContext(context.Background()), testState{})
	require.Error(t, err)

	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "a", panicErr.Step)
	assert.Equal(t, "unexpected", panicErr.Value)
	assert.NotEmpty(t, panicErr.Stack)
}

func TestRun_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	compiled := linearGraph(t)
	_, err := compiled.Run(NewContext(ctx), testState{})
	require.Error(t, err)

	var cancelErr *CancellationError
	require.ErrorAs(t, err, &cancelErr)
	assert.Equal(t, "a", cancelErr.Step)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_MaxIterations(t *testing.T) {
	compiled, err := NewGraph[testState]().
		AddStep("loop", appendStep("loop")).
		AddConditionalEdge("loop",
			func(Context, testState) string { return "again" },
			map[string]string{"again": "loop", "done": END}).
		SetEntry("loop").
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(NewContext(context.Background()), testState{}, WithMaxIterations(5))
	require.Error(t, err)

	var maxErr *MaxIterationsError
	require.ErrorAs(t, err, &maxErr)
	assert.Equal(t, 5, maxErr.Max)
	assert.Equal(t, "loop", maxErr.LastStep)
	assert.ErrorIs(t, err, ErrMaxIterations)
}

func TestRun_Checkpointing(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	defer store.Close()

	compiled := linearGraph(t)
	_, err := compiled.Run(NewContext(context.Background()), testState{},
		WithCheckpointStore(store, "sess-1"))
	require.NoError(t, err)

	data, err := store.Load("sess-1")
	require.NoError(t, err)

	cp, err := checkpoint.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", cp.SessionID)
	assert.Equal(t, "b", cp.Step)
	assert.Equal(t, "a", cp.PrevStep)
	assert.Equal(t, END, cp.NextStep)
	assert.Equal(t, 2, cp.Sequence)

	var state testState
	require.NoError(t, json.Unmarshal(cp.State, &state))
	assert.Equal(t, []string{"a", "b"}, state.Path)
}

func TestRun_CheckpointSequenceSpansRuns(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	defer store.Close()

	compiled := linearGraph(t)
	ctx := NewContext(context.Background())

	_, err := compiled.Run(ctx, testState{}, WithCheckpointStore(store, "sess-1"))
	require.NoError(t, err)

	_, err = compiled.Run(ctx, testState{}, WithCheckpointStore(store, "sess-1"))
	require.NoError(t, err)

	data, err := store.Load("sess-1")
	require.NoError(t, err)
	cp, err := checkpoint.Unmarshal(data)
	require.NoError(t, err)

	// Two steps per run; numbering continues from the first run.
	assert.Equal(t, 4, cp.Sequence)
}

func TestRun_CheckpointRequiresSessionID(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	defer store.Close()

	compiled := linearGraph(t)
	_, err := compiled.Run(NewContext(context.Background()), testState{},
		WithCheckpointStore(store, ""))
	assert.ErrorIs(t, err, ErrSessionIDRequired)
}

func TestRun_CheckpointFailureNonFatalByDefault(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	require.NoError(t, store.Close())

	compiled := linearGraph(t)
	result, err := compiled.Run(NewContext(context.Background()), testState{},
		WithCheckpointStore(store, "sess-1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, result.Path)
}

func TestRun_CheckpointFailureFatal(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	require.NoError(t, store.Close())

	compiled := linearGraph(t)
	_, err := compiled.Run(NewContext(context.Background()), testState{},
		WithCheckpointStore(store, "sess-1"),
		WithCheckpointFailureFatal())
	require.Error(t, err)

	var cpErr *CheckpointError
	require.ErrorAs(t, err, &cpErr)
	assert.Equal(t, "save", cpErr.Op)
	assert.ErrorIs(t, err, checkpoint.ErrStoreClosed)
}

func TestRun_Observer(t *testing.T) {
	var events []string
	observer := ObserverFuncs{
		StartFunc: func(step string) {
			events = append(events, "start:"+step)
		},
		EndFunc: func(step string, err error) {
			suffix := "ok"
			if err != nil {
				suffix = "err"
			}
			events = append(events, "end:"+step+":"+suffix)
		},
	}

	compiled := linearGraph(t)
	_, err := compiled.Run(NewContext(context.Background()), testState{},
		WithObserver(observer))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"start:a", "end:a:ok",
		"start:b", "end:b:ok",
	}, events)
}

func TestRun_ObserverSeesStepError(t *testing.T) {
	var failed []string
	observer := ObserverFuncs{
		EndFunc: func(step string, err error) {
			if err != nil {
				failed = append(failed, step)
			}
		},
	}

	compiled, err := NewGraph[testState]().
		AddStep("a", func(ctx Context, s testState) (testState, error) {
			return s, errors.New("boom")
		}).
		AddEdge("a", END).
		SetEntry("a").
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(NewContext(context.Background()), testState{},
		WithObserver(observer))
	require.Error(t, err)
	assert.Equal(t, []string{"a"}, failed)
}

func TestContext_StepEnrichment(t *testing.T) {
	var seenStep, seenSession string
	compiled, err := NewGraph[testState]().
		AddStep("a", func(ctx Context, s testState) (testState, error) {
			seenStep = ctx.StepID()
			seenSession = ctx.SessionID()
			require.NotNil(t, ctx.Logger())
			return s, nil
		}).
		AddEdge("a", END).
		SetEntry("a").
		Compile()
	require.NoError(t, err)

	ctx := NewContext(context.Background(),
		WithSessionID("sess-42"),
		WithTurnID("turn-1"))
	_, err = compiled.Run(ctx, testState{})
	require.NoError(t, err)

	assert.Equal(t, "a", seenStep)
	assert.Equal(t, "sess-42", seenSession)
	assert.Equal(t, "turn-1", ctx.TurnID())
}

func TestNewContext_GeneratesTurnID(t *testing.T) {
	ctx := NewContext(context.Background())
	assert.NotEmpty(t, ctx.TurnID())
	assert.Empty(t, ctx.StepID())
}
