package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// ChatChunk is the wire form of a stream event, one JSON object per
// SSE data line.
type ChatChunk struct {
	Chunk      string         `json:"chunk"`
	Type       string         `json:"type,omitempty"`
	IsComplete bool           `json:"is_complete,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// toChunk converts an event to its wire form.
func toChunk(event Event) ChatChunk {
	chunk := ChatChunk{
		Chunk:    event.Chunk,
		Metadata: event.Metadata,
	}
	switch event.Kind {
	case KindEnd:
		chunk.IsComplete = true
		chunk.Type = string(KindEnd)
	case KindError:
		chunk.IsComplete = true
	default:
		chunk.Type = string(event.Kind)
	}
	return chunk
}

// SSEWriter writes stream events as server-sent events.
type SSEWriter struct {
	w       io.Writer
	flusher http.Flusher
}

// NewSSEWriter prepares w for event-stream output. If w supports
// flushing, each event is flushed immediately.
func NewSSEWriter(w http.ResponseWriter) *SSEWriter {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, _ := w.(http.Flusher)
	return &SSEWriter{w: w, flusher: flusher}
}

// WriteEvent writes one event as a data line.
func (s *SSEWriter) WriteEvent(event Event) error {
	payload, err := json.Marshal(toChunk(event))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

// WriteAll drains events to the client until the channel closes,
// stopping early on the first write failure (client gone).
func (s *SSEWriter) WriteAll(events <-chan Event) error {
	for event := range events {
		if err := s.WriteEvent(event); err != nil {
			return err
		}
	}
	return nil
}
