// Package models defines the core domain models for field-service automation workflows.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusActive   WorkflowStatus = "active"   // Loaded by the engine on trigger match
	WorkflowStatusInactive WorkflowStatus = "inactive" // Never loaded, kept for editing/history
)

// TriggerType identifies the business event that fires a workflow.
type TriggerType string

const (
	TriggerJobCreated       TriggerType = "job_created"
	TriggerJobScheduled     TriggerType = "job_scheduled"
	TriggerJobCompleted     TriggerType = "job_completed"
	TriggerJobCancelled     TriggerType = "job_cancelled"
	TriggerInvoiceCreated   TriggerType = "invoice_created"
	TriggerInvoiceSent      TriggerType = "invoice_sent"
	TriggerInvoiceOverdue   TriggerType = "invoice_overdue"
	TriggerInvoicePaid      TriggerType = "invoice_paid"
	TriggerEstimateCreated  TriggerType = "estimate_created"
	TriggerEstimateAccepted TriggerType = "estimate_accepted"
	TriggerEstimateDeclined TriggerType = "estimate_declined"
	TriggerPaymentReceived  TriggerType = "payment_received"
	TriggerClientCreated    TriggerType = "client_created"
	TriggerCustom           TriggerType = "custom"
)

// KnownTriggerTypes lists every trigger type the engine accepts.
var KnownTriggerTypes = []TriggerType{
	TriggerJobCreated,
	TriggerJobScheduled,
	TriggerJobCompleted,
	TriggerJobCancelled,
	TriggerInvoiceCreated,
	TriggerInvoiceSent,
	TriggerInvoiceOverdue,
	TriggerInvoicePaid,
	TriggerEstimateCreated,
	TriggerEstimateAccepted,
	TriggerEstimateDeclined,
	TriggerPaymentReceived,
	TriggerClientCreated,
	TriggerCustom,
}

// Valid reports whether t is one of the known trigger types.
func (t TriggerType) Valid() bool {
	for _, known := range KnownTriggerTypes {
		if t == known {
			return true
		}
	}

	return false
}

// Workflow is a named automation rule: a trigger, a condition tree and an
// ordered list of steps. Workflows are authored elsewhere (builder UI) and
// are read-only to the engine.
type Workflow struct {
	ID              string           `json:"id"               validate:"required"`
	Name            string           `json:"name"             validate:"required,min=3"`
	Description     string           `json:"description"`
	Status          WorkflowStatus   `json:"status"           validate:"required,oneof=active inactive"`
	TriggerType     TriggerType      `json:"trigger_type"     validate:"required"`
	ConditionGroups []ConditionGroup `json:"condition_groups"`
	Steps           []Step           `json:"steps"            validate:"dive"`
	Owner           string           `json:"owner"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// IsActive reports whether the engine may execute this workflow.
func (w *Workflow) IsActive() bool {
	return w.Status == WorkflowStatusActive
}

// OrderedSteps returns the workflow's steps sorted by ordinal position.
// The stored order is usually already correct; authoring tools are not
// trusted to keep it that way.
func (w *Workflow) OrderedSteps() []Step {
	steps := make([]Step, len(w.Steps))
	copy(steps, w.Steps)

	for i := 1; i < len(steps); i++ {
		for j := i; j > 0 && steps[j].Position < steps[j-1].Position; j-- {
			steps[j], steps[j-1] = steps[j-1], steps[j]
		}
	}

	return steps
}
