// Package events defines the event types exchanged between the dispatcher,
// the worker and the sweeper.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/jobdeck/automata/pkg/models"
)

type EventType string

// Kafka topics.
const TriggerTopic = "automata.triggers"     // Trigger dispatch and test run requests
const ExecutionTopic = "automata.executions" // Execution lifecycle notifications

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Dispatch events consumed by workers.
	TriggerFiredEvent     EventType = "automation.trigger.fired"
	TestRunRequestedEvent EventType = "automation.test.requested"

	// Execution lifecycle notifications emitted by the engine.
	ExecutionStartedEvent   EventType = "automation.execution.started"
	ExecutionCompletedEvent EventType = "automation.execution.completed"
	ExecutionFailedEvent    EventType = "automation.execution.failed"
	ExecutionDelayedEvent   EventType = "automation.execution.delayed"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	WorkerID  string         `json:"worker_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// TriggerFired is the dispatcher boundary: a domain event happened and every
// active workflow bound to the trigger type must be evaluated.
type TriggerFired struct {
	BaseEvent

	TriggerType models.TriggerType `json:"trigger_type"`
	TriggerData map[string]any     `json:"trigger_data,omitempty"`
}

func (t TriggerFired) GetType() EventType {
	return TriggerFiredEvent
}

// TestRunRequested asks a worker to run one workflow with sample data,
// bypassing its condition groups.
type TestRunRequested struct {
	BaseEvent

	WorkflowID  string         `json:"workflow_id"`
	TriggerData map[string]any `json:"trigger_data,omitempty"`
	RequestedBy string         `json:"requested_by,omitempty"`
}

func (t TestRunRequested) GetType() EventType {
	return TestRunRequestedEvent
}

type ExecutionStarted struct {
	BaseEvent

	ExecutionID  string             `json:"execution_id"`
	WorkflowID   string             `json:"workflow_id"`
	WorkflowName string             `json:"workflow_name"`
	TriggerType  models.TriggerType `json:"trigger_type"`
	IsTest       bool               `json:"is_test"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	ExecutionID     string `json:"execution_id"`
	WorkflowID      string `json:"workflow_id"`
	Skipped         bool   `json:"skipped"`
	ActionsExecuted int    `json:"actions_executed"`
	DurationMs      int64  `json:"duration_ms"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	ExecutionID     string `json:"execution_id"`
	WorkflowID      string `json:"workflow_id"`
	FailedStepID    string `json:"failed_step_id"`
	Error           string `json:"error"`
	ActionsExecuted int    `json:"actions_executed"`
	DurationMs      int64  `json:"duration_ms"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

// ExecutionDelayed is emitted when a delay step parks an execution; the
// sweeper picks it back up once ResumeAt passes.
type ExecutionDelayed struct {
	BaseEvent

	ExecutionID string    `json:"execution_id"`
	WorkflowID  string    `json:"workflow_id"`
	ResumeAt    time.Time `json:"resume_at"`
}

func (e ExecutionDelayed) GetType() EventType {
	return ExecutionDelayedEvent
}

func NewBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Metadata:  make(map[string]any),
	}
}
