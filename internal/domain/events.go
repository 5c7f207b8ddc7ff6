package domain

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Event Interface and Base Event
// -----------------------------------------------------------------------------

// Event represents a domain event
type Event interface {
	// EventID returns the unique identifier for this event
	EventID() uuid.UUID
	// EventType returns the type name of this event
	EventType() string
	// OccurredAt returns when this event occurred
	OccurredAt() time.Time
	// ScenarioID returns the scenario the event concerns
	ScenarioID() string
}

// BaseEvent provides common event fields
type BaseEvent struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"recorded_at"`
	Scenario  string    `json:"scenario_id"`
}

// NewBaseEvent creates a new BaseEvent
func NewBaseEvent(eventType, scenarioID string, at time.Time) BaseEvent {
	return BaseEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: at,
		Scenario:  scenarioID,
	}
}

func (e BaseEvent) EventID() uuid.UUID    { return e.ID }
func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) ScenarioID() string    { return e.Scenario }

// -----------------------------------------------------------------------------
// Event Handler and Dispatcher
// -----------------------------------------------------------------------------

// EventHandler processes domain events
type EventHandler func(event Event)

// EventDispatcher manages event subscriptions and publishing
type EventDispatcher struct {
	mu          sync.RWMutex
	handlers    map[string][]EventHandler
	allHandlers []EventHandler // handlers for all events
}

// NewEventDispatcher creates a new event dispatcher
func NewEventDispatcher() *EventDispatcher {
	return &EventDispatcher{
		handlers: make(map[string][]EventHandler),
	}
}

// Subscribe registers a handler for a specific event type
func (d *EventDispatcher) Subscribe(eventType string, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

// SubscribeAll registers a handler for all event types
func (d *EventDispatcher) SubscribeAll(handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.allHandlers = append(d.allHandlers, handler)
}

// Publish dispatches an event to all registered handlers
func (d *EventDispatcher) Publish(event Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if handlers, ok := d.handlers[event.EventType()]; ok {
		for _, h := range handlers {
			h(event)
		}
	}

	for _, h := range d.allHandlers {
		h(event)
	}
}

// -----------------------------------------------------------------------------
// Practice Events
// -----------------------------------------------------------------------------

const (
	EventSubmissionRecorded = "submission.recorded"
	EventScenarioCompleted  = "scenario.completed"
)

// SubmissionRecordedEvent is published after a checked submission is merged
// into the progress ledger
type SubmissionRecordedEvent struct {
	BaseEvent
	Score          int  `json:"score"`
	MaxScore       int  `json:"max_score"`
	Completed      bool `json:"completed"`
	TotalPoints    int  `json:"total_points"`
	CompletedCount int  `json:"completed_count"`
	Attempts       int  `json:"attempts"`
}

// NewSubmissionRecordedEvent creates a new submission recorded event
func NewSubmissionRecordedEvent(scenarioID string, score, maxScore int, completed bool, totalPoints, completedCount, attempts int, at time.Time) SubmissionRecordedEvent {
	return SubmissionRecordedEvent{
		BaseEvent:      NewBaseEvent(EventSubmissionRecorded, scenarioID, at),
		Score:          score,
		MaxScore:       maxScore,
		Completed:      completed,
		TotalPoints:    totalPoints,
		CompletedCount: completedCount,
		Attempts:       attempts,
	}
}

// ScenarioCompletedEvent is published the first time a scenario reaches
// full score
type ScenarioCompletedEvent struct {
	BaseEvent
	Points   int `json:"points"`
	Attempts int `json:"attempts"`
}

// NewScenarioCompletedEvent creates a new scenario completed event
func NewScenarioCompletedEvent(scenarioID string, points, attempts int, at time.Time) ScenarioCompletedEvent {
	return ScenarioCompletedEvent{
		BaseEvent: NewBaseEvent(EventScenarioCompleted, scenarioID, at),
		Points:    points,
		Attempts:  attempts,
	}
}
