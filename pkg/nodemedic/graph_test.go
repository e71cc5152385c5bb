package nodemedic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testState struct {
	Path  []string `json:"path"`
	Route string   `json:"route"`
}

func appendStep(name string) StepFunc[testState] {
	return func(ctx Context, s testState) (testState, error) {
		s.Path = append(s.Path, name)
		return s, nil
	}
}

func TestAddStep_Validation(t *testing.T) {
	tests := []struct {
		name  string
		build func()
	}{
		{
			name: "empty ID",
			build: func() {
				NewGraph[testState]().AddStep("", appendStep("x"))
			},
		},
		{
			name: "reserved END",
			build: func() {
				NewGraph[testState]().AddStep("END", appendStep("x"))
			},
		},
		{
			name: "reserved __end__",
			build: func() {
				NewGraph[testState]().AddStep("__end__", appendStep("x"))
			},
		},
		{
			name: "whitespace in ID",
			build: func() {
				NewGraph[testState]().AddStep("has space", appendStep("x"))
			},
		},
		{
			name: "nil function",
			build: func() {
				NewGraph[testState]().AddStep("ok", nil)
			},
		},
		{
			name: "duplicate ID",
			build: func() {
				NewGraph[testState]().
					AddStep("a", appendStep("a")).
					AddStep("a", appendStep("a"))
			},
		},
		{
			name: "duplicate edge",
			build: func() {
				NewGraph[testState]().
					AddStep("a", appendStep("a")).
					AddEdge("a", END).
					AddEdge("a", END)
			},
		},
		{
			name: "nil router",
			build: func() {
				NewGraph[testState]().
					AddStep("a", appendStep("a")).
					AddConditionalEdge("a", nil, map[string]string{"k": END})
			},
		},
		{
			name: "empty route table",
			build: func() {
				NewGraph[testState]().
					AddStep("a", appendStep("a")).
					AddConditionalEdge("a", func(Context, testState) string { return "k" }, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Panics(t, tt.build)
		})
	}
}

func TestCompile_Validation(t *testing.T) {
	t.Run("no entry point", func(t *testing.T) {
		_, err := NewGraph[testState]().
			AddStep("a", appendStep("a")).
			AddEdge("a", END).
			Compile()
		assert.ErrorIs(t, err, ErrNoEntryPoint)
	})

	t.Run("entry not found", func(t *testing.T) {
		_, err := NewGraph[testState]().
			AddStep("a", appendStep("a")).
			AddEdge("a", END).
			SetEntry("missing").
			Compile()
		assert.ErrorIs(t, err, ErrEntryNotFound)
	})

	t.Run("edge target not found", func(t *testing.T) {
		_, err := NewGraph[testState]().
			AddStep("a", appendStep("a")).
			AddEdge("a", "ghost").
			SetEntry("a").
			Compile()
		assert.ErrorIs(t, err, ErrStepNotFound)
	})

	t.Run("route target not found", func(t *testing.T) {
		_, err := NewGraph[testState]().
			AddStep("a", appendStep("a")).
			AddConditionalEdge("a",
				func(Context, testState) string { return "k" },
				map[string]string{"k": "ghost"}).
			SetEntry("a").
			Compile()
		assert.ErrorIs(t, err, ErrStepNotFound)
	})

	t.Run("no path to END", func(t *testing.T) {
		_, err := NewGraph[testState]().
			AddStep("a", appendStep("a")).
			AddStep("b", appendStep("b")).
			AddEdge("a", "b").
			AddEdge("b", "a").
			SetEntry("a").
			Compile()
		assert.ErrorIs(t, err, ErrNoPathToEnd)
	})

	t.Run("multiple errors joined", func(t *testing.T) {
		_, err := NewGraph[testState]().
			AddStep("a", appendStep("a")).
			AddEdge("a", "ghost").
			Compile()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNoEntryPoint)
		assert.ErrorIs(t, err, ErrStepNotFound)
	})

	t.Run("valid graph", func(t *testing.T) {
		compiled, err := NewGraph[testState]().
			AddStep("a", appendStep("a")).
			AddStep("b", appendStep("b")).
			AddEdge("a", "b").
			AddEdge("b", END).
			SetEntry("a").
			Compile()
		require.NoError(t, err)
		assert.Equal(t, "a", compiled.EntryPoint())
		assert.True(t, compiled.HasStep("b"))
		assert.ElementsMatch(t, []string{"a", "b"}, compiled.StepIDs())
		assert.Equal(t, "b", compiled.Successor("a"))
	})

	t.Run("route table makes transitions inspectable", func(t *testing.T) {
		compiled, err := NewGraph[testState]().
			AddStep("classify", appendStep("classify")).
			AddStep("respond", appendStep("respond")).
			AddConditionalEdge("classify",
				func(ctx Context, s testState) string { return s.Route },
				map[string]string{
					"respond": "respond",
					"done":    END,
				}).
			AddEdge("respond", END).
			SetEntry("classify").
			Compile()
		require.NoError(t, err)

		assert.True(t, compiled.IsConditional("classify"))
		routes := compiled.Routes("classify")
		assert.Equal(t, "respond", routes["respond"])
		assert.Equal(t, END, routes["done"])
		assert.Nil(t, compiled.Routes("respond"))
	})
}
