package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ProgressMessage is the wire form of a progress event. Fields that do not
// apply to the event type are zero.
type ProgressMessage struct {
	ID             uuid.UUID `json:"id"`
	Type           string    `json:"type"`
	ScenarioID     string    `json:"scenario_id"`
	RecordedAt     time.Time `json:"recorded_at"`
	Score          int       `json:"score,omitempty"`
	MaxScore       int       `json:"max_score,omitempty"`
	Completed      bool      `json:"completed,omitempty"`
	TotalPoints    int       `json:"total_points,omitempty"`
	CompletedCount int       `json:"completed_count,omitempty"`
	Attempts       int       `json:"attempts,omitempty"`
	Points         int       `json:"points,omitempty"`
}

// DecodeProgress parses a progress message body
func DecodeProgress(body []byte) (*ProgressMessage, error) {
	var msg ProgressMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("decode progress message: %w", err)
	}
	if msg.Type == "" || msg.ScenarioID == "" {
		return nil, fmt.Errorf("decode progress message: missing type or scenario_id")
	}
	return &msg, nil
}

// ProgressHandler processes one progress message
type ProgressHandler func(ctx context.Context, msg *ProgressMessage) error

// Consumer reads progress messages from the queue
type Consumer struct {
	conn       *Connection
	handler    ProgressHandler
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewConsumer creates a new queue consumer
func NewConsumer(conn *Connection, handler ProgressHandler, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		conn:    conn,
		handler: handler,
		logger:  logger,
	}
}

// Start begins consuming messages
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancelFunc = context.WithCancel(ctx)

	ch := c.conn.Channel()
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		c.conn.Queue(),
		"",    // consumer tag (auto-generated)
		false, // auto-ack (manual ack for reliability)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("consuming progress events", "queue", c.conn.Queue())

	c.wg.Add(1)
	go c.consume(ctx, msgs)
	return nil
}

func (c *Consumer) consume(ctx context.Context, msgs <-chan amqp.Delivery) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-msgs:
			if !ok {
				c.logger.Info("message channel closed")
				return
			}
			c.process(ctx, d)
		}
	}
}

// acker is the subset of amqp.Delivery used to settle a message
type acker interface {
	Ack(multiple bool) error
	Reject(requeue bool) error
}

func (c *Consumer) process(ctx context.Context, d amqp.Delivery) {
	c.handle(ctx, d.Body, &d)
}

func (c *Consumer) handle(ctx context.Context, body []byte, a acker) {
	msg, err := DecodeProgress(body)
	if err != nil {
		c.logger.Error("dropping malformed progress message", "error", err)
		_ = a.Reject(false)
		return
	}

	if err := c.handler(ctx, msg); err != nil {
		c.logger.Error("progress handler failed",
			"event_id", msg.ID,
			"scenario_id", msg.ScenarioID,
			"error", err,
		)
		_ = a.Reject(true)
		return
	}

	if err := a.Ack(false); err != nil {
		c.logger.Error("failed to ack message", "event_id", msg.ID, "error", err)
	}
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.wg.Wait()
	c.logger.Info("consumer stopped")
}
