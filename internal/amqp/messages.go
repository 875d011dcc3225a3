package amqp

import (
	"encoding/json"
	"time"

	"dmo/internal/core"
)

// CompletionEvent is the lightweight message published whenever a completion
// record is written. It carries only the key; the worker re-reads the full
// record from the database.
type CompletionEvent struct {
	DmoID     int64     `json:"dmo_id"`
	Date      core.Date `json:"date"`
	Completed bool      `json:"completed"`
	Timestamp time.Time `json:"timestamp"`
}

func NewCompletionEvent(dmoID int64, day core.Date, completed bool) *CompletionEvent {
	return &CompletionEvent{
		DmoID:     dmoID,
		Date:      day,
		Completed: completed,
		Timestamp: time.Now().UTC(),
	}
}

func (e *CompletionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func CompletionEventFromJSON(data []byte) (*CompletionEvent, error) {
	var ev CompletionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
