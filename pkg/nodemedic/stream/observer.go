package stream

import (
	"github.com/randalmurphal/nodemedic/pkg/nodemedic"
)

// Observer adapts the emitter to the engine's step lifecycle hook,
// announcing each step start in the given language. Steps skipped by
// routing never start, so they produce no event.
func (e *Emitter) Observer(language string) nodemedic.Observer {
	return nodemedic.ObserverFuncs{
		StartFunc: func(step string) {
			e.StatusUpdate(step, language)
		},
	}
}
