package nodemedic

// END is the terminal step identifier.
// Use this as an edge target to indicate the turn should terminate.
const END = "__end__"

// StepFunc is the signature for all step functions.
// Steps receive the execution context and current state,
// and return the updated state (or the same state) and any error.
//
// The state parameter is passed by value. Steps should modify and return
// a new state value, not rely on pointer mutation.
type StepFunc[S any] func(ctx Context, state S) (S, error)

// RouterFunc inspects state after a step and returns a route key.
// The key is looked up in the route table registered with
// AddConditionalEdge to find the next step.
//
// Returning a key absent from the route table causes a runtime error,
// so routers should normalize unexpected state to a known key.
type RouterFunc[S any] func(ctx Context, state S) string

// Observer receives step lifecycle notifications during a run.
// Implementations must not block; they are called synchronously
// from the driver loop.
type Observer interface {
	// OnStepStart is called before a step executes.
	OnStepStart(step string)

	// OnStepEnd is called after a step finishes, with its error if any.
	OnStepEnd(step string, err error)
}

// ObserverFuncs adapts plain functions to the Observer interface.
// Nil fields are skipped.
type ObserverFuncs struct {
	StartFunc func(step string)
	EndFunc   func(step string, err error)
}

// OnStepStart implements Observer.
func (o ObserverFuncs) OnStepStart(step string) {
	if o.StartFunc != nil {
		o.StartFunc(step)
	}
}

// OnStepEnd implements Observer.
func (o ObserverFuncs) OnStepEnd(step string, err error) {
	if o.EndFunc != nil {
		o.EndFunc(step, err)
	}
}
