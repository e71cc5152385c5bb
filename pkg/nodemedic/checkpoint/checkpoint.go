package checkpoint

import (
	"encoding/json"
	"time"
)

// Version is the current checkpoint format version.
// Increment when making breaking changes to checkpoint structure.
const Version = 1

// Checkpoint is the persisted snapshot of session state.
// It contains all information needed to continue the conversation.
type Checkpoint struct {
	// Metadata
	Version   int       `json:"version"`
	SessionID string    `json:"session_id"`
	Step      string    `json:"step"`
	Sequence  int       `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`

	// Execution state
	State    json.RawMessage `json:"state"`
	NextStep string          `json:"next_step"`

	// PrevStep is the step executed before Step, kept for debugging.
	PrevStep string `json:"prev_step,omitempty"`
}

// Marshal serializes a checkpoint to JSON.
func (c *Checkpoint) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// Unmarshal deserializes a checkpoint from JSON.
func Unmarshal(data []byte) (*Checkpoint, error) {
	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// New creates a new checkpoint with the given parameters.
// State must already be JSON-serialized.
func New(sessionID, step string, sequence int, state []byte, nextStep string) *Checkpoint {
	return &Checkpoint{
		Version:   Version,
		SessionID: sessionID,
		Step:      step,
		Sequence:  sequence,
		Timestamp: time.Now().UTC(),
		State:     state,
		NextStep:  nextStep,
	}
}

// WithPrevStep sets the previous step for debugging.
func (c *Checkpoint) WithPrevStep(prevStep string) *Checkpoint {
	c.PrevStep = prevStep
	return c
}
