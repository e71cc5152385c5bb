package errors

import "fmt"

// HTTPError represents an HTTP error response from a backend.
type HTTPError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("HTTP %d at %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// TemplateError indicates a request template produced invalid output
// after variable substitution. This is a configuration problem and is
// never retried.
type TemplateError struct {
	// Part identifies which template failed ("headers", "body", "endpoint").
	Part string
	// Rendered is the substituted template text that failed to parse.
	Rendered string
	// Err is the underlying parse error.
	Err error
}

// Error implements the error interface.
func (e *TemplateError) Error() string {
	return fmt.Sprintf("invalid %s template: %v", e.Part, e.Err)
}

// Unwrap returns the underlying error.
func (e *TemplateError) Unwrap() error {
	return e.Err
}

// JSONParseError indicates failure to parse JSON from model output.
type JSONParseError struct {
	Input   string
	Message string
}

// Error implements the error interface.
func (e *JSONParseError) Error() string {
	return fmt.Sprintf("JSON parse error: %s", e.Message)
}
