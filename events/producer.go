package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const publishQueueSize = 256

// Producer publishes events to a Kafka topic through a bounded queue
// drained by a single background goroutine. Enqueueing never blocks:
// when the queue is full the event is dropped and logged.
type Producer struct {
	writer *kafka.Writer
	logger *zap.Logger
	queue  chan Event
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewProducer creates a producer for the given brokers and topic. The
// background goroutine starts immediately.
func NewProducer(brokers []string, topic string, logger *zap.Logger) *Producer {
	p := &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			MaxAttempts:  3,
		},
		logger: logger,
		queue:  make(chan Event, publishQueueSize),
		done:   make(chan struct{}),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

func (p *Producer) run() {
	defer p.wg.Done()
	for {
		select {
		case ev := <-p.queue:
			p.write(ev)
		case <-p.done:
			// Drain what is already queued before exiting.
			for {
				select {
				case ev := <-p.queue:
					p.write(ev)
				default:
					return
				}
			}
		}
	}
}

func (p *Producer) write(ev Event) {
	value, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error("encoding event", zap.String("event_type", ev.EventType), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.UserID),
		Value: value,
	})
	if err != nil {
		p.logger.Error("publishing event",
			zap.String("event_type", ev.EventType),
			zap.String("event_id", ev.EventID),
			zap.Error(err))
		return
	}
	p.logger.Debug("published event",
		zap.String("event_type", ev.EventType),
		zap.String("event_id", ev.EventID))
}

func (p *Producer) enqueue(ev Event) {
	select {
	case p.queue <- ev:
	default:
		p.logger.Warn("event queue full, dropping event",
			zap.String("event_type", ev.EventType),
			zap.String("user_id", ev.UserID))
	}
}

// TaskCreated publishes a task.created event.
func (p *Producer) TaskCreated(userID string, taskID int64, title, description string) {
	p.enqueue(NewEvent(TypeTaskCreated, userID, taskID, map[string]interface{}{
		"title":       title,
		"description": description,
		"completed":   false,
	}))
}

// TaskUpdated publishes a task.updated event carrying only the fields
// that changed.
func (p *Producer) TaskUpdated(userID string, taskID int64, title, description *string) {
	extra := map[string]interface{}{}
	if title != nil {
		extra["title"] = *title
	}
	if description != nil {
		extra["description"] = *description
	}
	p.enqueue(NewEvent(TypeTaskUpdated, userID, taskID, extra))
}

// TaskToggled publishes task.completed or task.uncompleted depending on
// the new state.
func (p *Producer) TaskToggled(userID string, taskID int64, completed bool) {
	eventType := TypeTaskUncompleted
	if completed {
		eventType = TypeTaskCompleted
	}
	p.enqueue(NewEvent(eventType, userID, taskID, map[string]interface{}{
		"completed": completed,
	}))
}

// TaskDeleted publishes a task.deleted event.
func (p *Producer) TaskDeleted(userID string, taskID int64) {
	p.enqueue(NewEvent(TypeTaskDeleted, userID, taskID, nil))
}

// Close stops the background goroutine, flushes the queue and closes
// the underlying writer.
func (p *Producer) Close() error {
	close(p.done)
	p.wg.Wait()
	return p.writer.Close()
}
