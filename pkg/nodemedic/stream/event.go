// Package stream bridges engine step transitions and model token
// output into an ordered, client-consumable event sequence.
package stream

// Kind discriminates stream events.
type Kind string

// Event kinds. Every turn produces exactly one terminal event,
// KindEnd or KindError.
const (
	KindContentChunk Kind = "content"
	KindStatusUpdate Kind = "status_update"
	KindMetaUpdate   Kind = "meta_update"
	KindEnd          Kind = "end"
	KindError        Kind = "error"
)

// Event is one entry in a turn's event sequence.
type Event struct {
	Kind     Kind
	Chunk    string
	Metadata map[string]any
}

// Terminal reports whether the event closes the turn.
func (e Event) Terminal() bool {
	return e.Kind == KindEnd || e.Kind == KindError
}

// statusEvent builds a step-start announcement with its display label.
func statusEvent(step, language string) Event {
	return Event{
		Kind: KindStatusUpdate,
		Metadata: map[string]any{
			"node":         step,
			"display_text": StepLabel(step, language),
			"status":       "processing",
		},
	}
}

// metaEvent builds a search-preview update carrying up to three titles.
func metaEvent(step string, titles []string) Event {
	if len(titles) > 3 {
		titles = titles[:3]
	}
	return Event{
		Kind: KindMetaUpdate,
		Metadata: map[string]any{
			"node": step,
			"step_data": map[string]any{
				"search_previews": titles,
			},
		},
	}
}
