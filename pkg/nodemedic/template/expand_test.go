package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand_DollarStyle(t *testing.T) {
	vars := map[string]any{
		"apiKey": "sk-test",
		"model":  "gpt-4o",
	}

	result := Expand(`{"Authorization": "Bearer $apiKey", "X-Model": "$model"}`, vars)
	assert.Equal(t, `{"Authorization": "Bearer sk-test", "X-Model": "gpt-4o"}`, result)
}

func TestExpand_BraceStyle(t *testing.T) {
	result := Expand("host=${host} port=${port}", map[string]any{
		"host": "localhost",
		"port": 8080,
	})
	assert.Equal(t, "host=localhost port=8080", result)
}

func TestExpand_EveryOccurrenceReplaced(t *testing.T) {
	result := Expand("$a $a $a", map[string]any{"a": "x"})
	assert.Equal(t, "x x x", result)
}

func TestExpand_NoPartialPrefixMatch(t *testing.T) {
	// $model must not match inside $modelName.
	result := Expand("$model vs $modelName", map[string]any{
		"model":     "short",
		"modelName": "long",
	})
	assert.Equal(t, "short vs long", result)
}

func TestExpand_MissingKeptByDefault(t *testing.T) {
	result := Expand("value: $unknown", map[string]any{})
	assert.Equal(t, "value: $unknown", result)
}

func TestExpand_MissingEmpty(t *testing.T) {
	e := NewExpander(WithMissingAction(MissingEmpty))
	result, err := e.Expand("[$gone]", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "[]", result)
}

func TestExpand_MissingError(t *testing.T) {
	e := NewExpander(WithMissingAction(MissingError))
	_, err := e.Expand("$a and $b", map[string]any{"a": 1})
	require.Error(t, err)

	var undefErr *UndefinedVariableError
	require.ErrorAs(t, err, &undefErr)
	assert.Equal(t, []string{"b"}, undefErr.Names)
}

func TestExpand_DollarStyleOnly(t *testing.T) {
	e := NewExpander(WithBraceStyle(false))
	result, err := e.Expand("$a ${a}", map[string]any{"a": "v"})
	require.NoError(t, err)
	assert.Equal(t, "v ${a}", result)
}

func TestExpand_NonStringValues(t *testing.T) {
	result := Expand("retries=$n enabled=$flag", map[string]any{
		"n":    3,
		"flag": true,
	})
	assert.Equal(t, "retries=3 enabled=true", result)
}

func TestExpand_EmptyInput(t *testing.T) {
	assert.Equal(t, "", Expand("", map[string]any{"a": 1}))
}
