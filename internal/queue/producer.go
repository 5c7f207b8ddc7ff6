package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/oaspractice/internal/domain"
)

// DefaultPublishTimeout bounds a single publish triggered by an event
const DefaultPublishTimeout = 5 * time.Second

// Publisher sends JSON payloads to a named queue
type Publisher interface {
	PublishJSON(ctx context.Context, queue string, data any) error
}

// Producer publishes progress events to the queue
type Producer struct {
	pub     Publisher
	queue   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewProducer creates a producer that publishes to queueName
func NewProducer(pub Publisher, queueName string, logger *slog.Logger) *Producer {
	if queueName == "" {
		queueName = ProgressQueueName
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{
		pub:     pub,
		queue:   queueName,
		timeout: DefaultPublishTimeout,
		logger:  logger,
	}
}

// Publish sends a domain event as a JSON message
func (p *Producer) Publish(ctx context.Context, event domain.Event) error {
	if err := p.pub.PublishJSON(ctx, p.queue, event); err != nil {
		return fmt.Errorf("publish %s: %w", event.EventType(), err)
	}

	p.logger.Debug("published progress event",
		"event_id", event.EventID(),
		"type", event.EventType(),
		"scenario_id", event.ScenarioID(),
	)
	return nil
}

// Attach forwards every practice event raised on d to the queue. Publish
// failures are logged and otherwise ignored.
func (p *Producer) Attach(d *domain.EventDispatcher) {
	forward := func(event domain.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		if err := p.Publish(ctx, event); err != nil {
			p.logger.Warn("failed to publish progress event",
				"type", event.EventType(),
				"scenario_id", event.ScenarioID(),
				"error", err,
			)
		}
	}
	d.Subscribe(domain.EventSubmissionRecorded, forward)
	d.Subscribe(domain.EventScenarioCompleted, forward)
}
