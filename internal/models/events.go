package models

import "time"

// Event types
const (
	EventTypeRunStarted   = "RUN_STARTED"
	EventTypeRunCompleted = "RUN_COMPLETED"
	EventTypeRunFailed    = "RUN_FAILED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// RunStartedEvent published when a trigger wins the guard and a run begins
type RunStartedEvent struct {
	BaseEvent
	RunID   string `json:"run_id"`
	Trigger string `json:"trigger"`
}

// RunCompletedEvent published when every stage finished and the landing
// area was cleared
type RunCompletedEvent struct {
	BaseEvent
	RunID           string         `json:"run_id"`
	DurationSeconds float64        `json:"duration_seconds"`
	RowsStaged      map[string]int `json:"rows_staged"`
}

// RunFailedEvent published when a stage aborted the run
type RunFailedEvent struct {
	BaseEvent
	RunID           string  `json:"run_id"`
	Stage           string  `json:"stage"`
	Error           string  `json:"error"`
	DurationSeconds float64 `json:"duration_seconds"`
}
