package models

import "time"

// ExecutionStatus is the state machine of one workflow run:
// pending -> running -> completed | failed.
// A pending execution may be requeued by the sweeper; completed and failed
// are terminal.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// ActionRecordStatus is the outcome of one executed step.
type ActionRecordStatus string

const (
	ActionRecordSuccess ActionRecordStatus = "success"
	ActionRecordFailed  ActionRecordStatus = "failed"
)

// ActionRecord is one append-only entry in an execution's audit trail.
// Prior entries are never mutated.
type ActionRecord struct {
	StepID     string             `json:"step_id"`
	ActionType string             `json:"action_type"`
	Status     ActionRecordStatus `json:"status"`
	Output     string             `json:"output,omitempty"`
	Error      string             `json:"error,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
}

// ExecutionLog is the persisted record of one workflow run. TriggerData is
// the context snapshot taken at trigger time and is immutable once written;
// everything else is mutated only by the engine as the run progresses.
// Logs are never deleted automatically.
type ExecutionLog struct {
	ID           string          `json:"id"`
	WorkflowID   string          `json:"workflow_id"`
	WorkflowName string          `json:"workflow_name"`
	TriggerType  TriggerType     `json:"trigger_type"`
	TriggerData  map[string]any  `json:"trigger_data"`
	Status       ExecutionStatus `json:"status"`

	// IsTest marks manual test/replay runs so they can be filtered out of
	// analytics.
	IsTest bool `json:"is_test"`

	// Skipped distinguishes "matched but condition tree was false" from
	// "ran all steps": both end completed, only the latter has records.
	Skipped bool `json:"skipped"`

	ActionsExecuted []ActionRecord `json:"actions_executed"`

	// ResumePosition and ResumeAt carry a suspended execution across a
	// delay step: the run is parked back in pending and re-claimed once
	// ResumeAt is due.
	ResumePosition int        `json:"resume_position"`
	ResumeAt       *time.Time `json:"resume_at,omitempty"`

	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Terminal reports whether the execution has reached a final state.
func (e *ExecutionLog) Terminal() bool {
	return e.Status == ExecutionStatusCompleted || e.Status == ExecutionStatusFailed
}

// Suspended reports whether the execution is parked on a delay step.
func (e *ExecutionLog) Suspended() bool {
	return e.Status == ExecutionStatusPending && e.ResumeAt != nil
}
