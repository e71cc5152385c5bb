// Package action executes named repair operations and keeps an
// append-only history with enough captured state to reverse them.
package action

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is one immutable entry in the undo history.
type Record struct {
	ActionID      string         `json:"action_id"`
	SessionID     string         `json:"session_id"`
	Type          Type           `json:"action_type"`
	Data          map[string]any `json:"action_data"`
	PreviousState map[string]any `json:"previous_state,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

// History is a concurrent append-only log of executed actions.
// Records are retained for the process lifetime; undo reads them but
// never removes them.
type History struct {
	mu      sync.RWMutex
	byID    map[string]Record
	ordered []string
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{byID: make(map[string]Record)}
}

// Add appends a record and returns its generated id.
func (h *History) Add(sessionID string, actionType Type, data, previousState map[string]any) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := uuid.New().String()
	h.byID[id] = Record{
		ActionID:      id,
		SessionID:     sessionID,
		Type:          actionType,
		Data:          data,
		PreviousState: previousState,
		Timestamp:     time.Now().UTC(),
	}
	h.ordered = append(h.ordered, id)
	return id
}

// Get returns the record with the given id.
func (h *History) Get(actionID string) (Record, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	record, ok := h.byID[actionID]
	return record, ok
}

// SessionRecords returns all records for a session in execution order.
func (h *History) SessionRecords(sessionID string) []Record {
	h.mu.RLock()
	defer h.mu.RUnlock()

	records := make([]Record, 0)
	for _, id := range h.ordered {
		if record := h.byID[id]; record.SessionID == sessionID {
			records = append(records, record)
		}
	}
	return records
}

// Len returns the total number of records.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.ordered)
}
