package task

import (
	"github.com/jobdeck/automata/pkg/protocol"
)

// ActionFactory creates task actions bound to the data-layer collaborator.
type ActionFactory struct {
	creator protocol.TaskCreator
}

// NewActionFactory creates a new task action factory.
func NewActionFactory(creator protocol.TaskCreator) *ActionFactory {
	return &ActionFactory{creator: creator}
}

// Create creates a new task action from the given configuration.
func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.creator)
}

// ID returns the unique identifier for the action.
func (f *ActionFactory) ID() string {
	return "task"
}

// Name returns the name of the action.
func (f *ActionFactory) Name() string {
	return "Create Task"
}

// Description returns a brief description of the action.
func (f *ActionFactory) Description() string {
	return "Writes a task record associated with the triggering job and client."
}

// Schema returns the JSON schema for configuring this action.
func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "string",
				"description": "Task title template.",
				"examples":    []string{"Call {{client.firstName}} about {{job.title}}"},
			},
			"description": map[string]any{
				"type":        "string",
				"description": "Task description template.",
			},
			"assignee": map[string]any{
				"type":        "string",
				"description": "Assignee template, usually the job's technician id.",
				"examples":    []string{"{{job.technicianId}}"},
			},
		},
		"required":             []string{"title"},
		"additionalProperties": false,
	}
}
