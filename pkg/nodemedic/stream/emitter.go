package stream

import (
	"context"
	"sync"
)

// defaultBuffer bounds the event channel. The emitter blocks once the
// buffer fills, so events flow only as fast as the consumer reads.
const defaultBuffer = 16

// Emitter produces the ordered event sequence for one turn. Emission
// is pull-based over a bounded channel; a cancelled context stops
// emission without blocking the producer. After the terminal event
// the channel is closed and further emissions are dropped.
type Emitter struct {
	ctx context.Context
	ch  chan Event

	mu   sync.Mutex
	done bool
}

// NewEmitter creates an emitter for one turn. The context should be
// the turn's context; cancelling it unblocks any pending emission.
func NewEmitter(ctx context.Context) *Emitter {
	return &Emitter{ctx: ctx, ch: make(chan Event, defaultBuffer)}
}

// Events returns the consumer side of the event sequence. The channel
// is closed after the terminal event.
func (e *Emitter) Events() <-chan Event {
	return e.ch
}

// emit delivers one event in order. Returns false if the turn already
// terminated or the context was cancelled.
func (e *Emitter) emit(event Event) bool {
	e.mu.Lock()
	if e.done {
		e.mu.Unlock()
		return false
	}
	if event.Terminal() {
		e.done = true
	}
	e.mu.Unlock()

	select {
	case e.ch <- event:
		if event.Terminal() {
			close(e.ch)
		}
		return true
	case <-e.ctx.Done():
		if event.Terminal() {
			close(e.ch)
		}
		return false
	}
}

// StatusUpdate announces that a step started.
func (e *Emitter) StatusUpdate(step, language string) {
	e.emit(statusEvent(step, language))
}

// ContentChunk delivers one fragment of the model's reply.
func (e *Emitter) ContentChunk(text string) {
	if text == "" {
		return
	}
	e.emit(Event{Kind: KindContentChunk, Chunk: text})
}

// MetaUpdate delivers search result previews, capped at three titles.
func (e *Emitter) MetaUpdate(step string, titles []string) {
	e.emit(metaEvent(step, titles))
}

// End emits the successful terminal event.
func (e *Emitter) End() {
	e.emit(Event{Kind: KindEnd})
}

// Error emits the failure terminal event.
func (e *Emitter) Error(message string) {
	e.emit(Event{
		Kind:     KindError,
		Chunk:    "Error: " + message,
		Metadata: map[string]any{"error": true},
	})
}
