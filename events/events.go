// Package events publishes task lifecycle events to Kafka and consumes
// them into analytics aggregates. Publishing is fire-and-forget: a
// broker outage degrades to dropped events, never to a failed request.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Event types emitted on the task topic.
const (
	TypeTaskCreated     = "task.created"
	TypeTaskUpdated     = "task.updated"
	TypeTaskCompleted   = "task.completed"
	TypeTaskUncompleted = "task.uncompleted"
	TypeTaskDeleted     = "task.deleted"
)

// Event is the wire format of a task lifecycle event. Payload always
// carries task_id plus event-specific fields.
type Event struct {
	EventID   string                 `json:"event_id"`
	EventType string                 `json:"event_type"`
	Timestamp string                 `json:"timestamp"`
	UserID    string                 `json:"user_id"`
	Payload   map[string]interface{} `json:"payload"`
}

// NewEvent stamps an event with a fresh ID and the current UTC time.
func NewEvent(eventType, userID string, taskID int64, extra map[string]interface{}) Event {
	payload := map[string]interface{}{"task_id": taskID}
	for k, v := range extra {
		payload[k] = v
	}
	return Event{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		UserID:    userID,
		Payload:   payload,
	}
}

// Emitter is the publishing side seen by the rest of the application.
type Emitter interface {
	TaskCreated(userID string, taskID int64, title, description string)
	TaskUpdated(userID string, taskID int64, title, description *string)
	TaskToggled(userID string, taskID int64, completed bool)
	TaskDeleted(userID string, taskID int64)
}

// NopEmitter discards every event. Used when Kafka is disabled and in
// tests that do not care about events.
type NopEmitter struct{}

func (NopEmitter) TaskCreated(string, int64, string, string) {}
func (NopEmitter) TaskUpdated(string, int64, *string, *string) {}
func (NopEmitter) TaskToggled(string, int64, bool)           {}
func (NopEmitter) TaskDeleted(string, int64)                 {}
