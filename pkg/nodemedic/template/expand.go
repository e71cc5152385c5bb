// Package template provides variable substitution for request templates
// and helpers for digging structured JSON out of free-form model output.
package template

import (
	"fmt"
	"regexp"
	"strings"
)

// Regular expressions for variable patterns.
var (
	// bracePattern matches ${varname}.
	bracePattern = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

	// dollarPattern matches $varname. The boundary check prevents $model
	// from matching inside $modelName.
	dollarPattern = regexp.MustCompile(`\$([a-zA-Z_][a-zA-Z0-9_]*)(?:\b|$)`)
)

// MissingAction controls what happens when a variable is not found.
type MissingAction int

const (
	// MissingKeep leaves unknown placeholders in place (default).
	MissingKeep MissingAction = iota

	// MissingEmpty replaces unknown placeholders with the empty string.
	MissingEmpty

	// MissingError reports unknown placeholders as an error.
	MissingError
)

// Option configures an Expander.
type Option func(*Expander)

// WithMissingAction sets the behavior for unknown variables.
func WithMissingAction(a MissingAction) Option {
	return func(e *Expander) { e.missingAction = a }
}

// WithBraceStyle enables or disables ${var} expansion.
func WithBraceStyle(enabled bool) Option {
	return func(e *Expander) { e.braceStyle = enabled }
}

// WithDollarStyle enables or disables $var expansion.
func WithDollarStyle(enabled bool) Option {
	return func(e *Expander) { e.dollarStyle = enabled }
}

// Expander expands variable patterns in strings.
// Safe for concurrent use after construction.
type Expander struct {
	missingAction MissingAction
	braceStyle    bool
	dollarStyle   bool
}

// NewExpander creates an Expander. By default both $var and ${var}
// styles are recognized and unknown variables are kept as-is.
func NewExpander(opts ...Option) *Expander {
	e := &Expander{
		missingAction: MissingKeep,
		braceStyle:    true,
		dollarStyle:   true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand replaces every occurrence of each known variable in s.
// Substitution is literal: values are formatted with %v and inserted
// verbatim, with no partial application across occurrences.
func (e *Expander) Expand(s string, vars map[string]any) (string, error) {
	if s == "" {
		return "", nil
	}

	result := s
	var missing []string

	replace := func(varName, match string) string {
		if val, ok := vars[varName]; ok {
			return fmt.Sprintf("%v", val)
		}
		switch e.missingAction {
		case MissingEmpty:
			return ""
		case MissingError:
			missing = append(missing, varName)
			return match
		default:
			return match
		}
	}

	// ${var} first (more specific), then $var.
	if e.braceStyle {
		result = bracePattern.ReplaceAllStringFunc(result, func(match string) string {
			return replace(match[2:len(match)-1], match)
		})
	}
	if e.dollarStyle {
		result = dollarPattern.ReplaceAllStringFunc(result, func(match string) string {
			return replace(match[1:], match)
		})
	}

	if len(missing) > 0 {
		return result, &UndefinedVariableError{Names: missing}
	}
	return result, nil
}

// UndefinedVariableError is returned under MissingError when one or more
// variables are not found.
type UndefinedVariableError struct {
	Names []string
}

// Error implements the error interface.
func (e *UndefinedVariableError) Error() string {
	if len(e.Names) == 1 {
		return fmt.Sprintf("undefined variable: %s", e.Names[0])
	}
	return fmt.Sprintf("undefined variables: %s", strings.Join(e.Names, ", "))
}

var defaultExpander = NewExpander()

// Expand expands variable patterns in s using the default expander.
// Missing variables are kept as-is.
func Expand(s string, vars map[string]any) string {
	result, _ := defaultExpander.Expand(s, vars)
	return result
}
