package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const recentEventLimit = 100

// RecentEvent is the trimmed view of an event kept in the analytics
// ring.
type RecentEvent struct {
	EventID   string      `json:"event_id"`
	EventType string      `json:"event_type"`
	Timestamp string      `json:"timestamp"`
	UserID    string      `json:"user_id"`
	TaskID    interface{} `json:"task_id"`
}

// Snapshot is a point-in-time copy of the analytics aggregates.
type Snapshot struct {
	Status       string         `json:"status"`
	StartedAt    string         `json:"started_at,omitempty"`
	TotalEvents  int            `json:"total_events"`
	EventsByType map[string]int `json:"events_by_type"`
	UniqueUsers  int            `json:"unique_users"`
	RecentCount  int            `json:"recent_events_count"`
	RecentEvents []RecentEvent  `json:"recent_events"`
}

// Consumer reads task events from Kafka and maintains in-memory
// analytics aggregates.
type Consumer struct {
	reader *kafka.Reader
	logger *zap.Logger

	mu           sync.RWMutex
	running      bool
	startedAt    string
	totalEvents  int
	eventsByType map[string]int
	eventsByUser map[string]int
	recent       []RecentEvent
}

// NewConsumer creates a consumer bound to the given brokers, topic and
// consumer group. Reading starts with Run.
func NewConsumer(brokers []string, topic, groupID string, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     brokers,
			Topic:       topic,
			GroupID:     groupID,
			StartOffset: kafka.FirstOffset,
			MinBytes:    1,
			MaxBytes:    1 << 20,
		}),
		logger:       logger,
		eventsByType: make(map[string]int),
		eventsByUser: make(map[string]int),
	}
}

// Run consumes events until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.mu.Lock()
	c.running = true
	c.startedAt = time.Now().UTC().Format(time.RFC3339Nano)
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	c.logger.Info("event consumer started", zap.String("topic", c.reader.Config().Topic))

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		var ev Event
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			c.logger.Warn("skipping malformed event", zap.Error(err))
			continue
		}
		c.Process(ev)
	}
}

// Process folds a single event into the aggregates.
func (c *Consumer) Process(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalEvents++

	eventType := ev.EventType
	if eventType == "" {
		eventType = "unknown"
	}
	userID := ev.UserID
	if userID == "" {
		userID = "unknown"
	}
	c.eventsByType[eventType]++
	c.eventsByUser[userID]++

	c.recent = append(c.recent, RecentEvent{
		EventID:   ev.EventID,
		EventType: eventType,
		Timestamp: ev.Timestamp,
		UserID:    userID,
		TaskID:    ev.Payload["task_id"],
	})
	if len(c.recent) > recentEventLimit {
		c.recent = c.recent[len(c.recent)-recentEventLimit:]
	}
}

// Snapshot returns a copy of the current aggregates. The recent list is
// capped to the last ten entries, matching what the analytics endpoint
// serves.
func (c *Consumer) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := "stopped"
	if c.running {
		status = "running"
	}

	byType := make(map[string]int, len(c.eventsByType))
	for k, v := range c.eventsByType {
		byType[k] = v
	}

	recent := c.recent
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}
	recentCopy := make([]RecentEvent, len(recent))
	copy(recentCopy, recent)

	return Snapshot{
		Status:       status,
		StartedAt:    c.startedAt,
		TotalEvents:  c.totalEvents,
		EventsByType: byType,
		UniqueUsers:  len(c.eventsByUser),
		RecentCount:  len(c.recent),
		RecentEvents: recentCopy,
	}
}

// Close releases the underlying Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
