package models

import "time"

// StepType distinguishes action steps from delay steps.
type StepType string

const (
	StepTypeAction StepType = "action"
	StepTypeDelay  StepType = "delay"
)

// Built-in action types. The registry may add more via plugins.
const (
	ActionTypeEmail        = "email"
	ActionTypeSMS          = "sms"
	ActionTypeTask         = "task"
	ActionTypeUpdateRecord = "update_record"
)

// DelayUnit is the unit of a delay step's duration.
type DelayUnit string

const (
	DelayUnitMinutes DelayUnit = "minutes"
	DelayUnitHours   DelayUnit = "hours"
	DelayUnitDays    DelayUnit = "days"
)

// Step is one unit of work in a workflow. Steps execute strictly in
// Position order; a failed action step halts the remaining steps of that
// execution.
type Step struct {
	ID       string   `json:"id"       validate:"required"`
	Type     StepType `json:"type"     validate:"required,oneof=action delay"`
	Position int      `json:"position"`

	// Action steps only.
	ActionType string         `json:"action_type,omitempty"`
	Config     map[string]any `json:"config,omitempty"`

	// Delay steps only.
	DelayValue int       `json:"delay_value,omitempty"`
	DelayUnit  DelayUnit `json:"delay_unit,omitempty"`
}

// DelayDuration converts a delay step's value/unit pair to a duration.
// Returns zero for action steps and unknown units.
func (s *Step) DelayDuration() time.Duration {
	if s.Type != StepTypeDelay || s.DelayValue <= 0 {
		return 0
	}

	switch s.DelayUnit {
	case DelayUnitMinutes:
		return time.Duration(s.DelayValue) * time.Minute
	case DelayUnitHours:
		return time.Duration(s.DelayValue) * time.Hour
	case DelayUnitDays:
		return time.Duration(s.DelayValue) * 24 * time.Hour
	default:
		return 0
	}
}
