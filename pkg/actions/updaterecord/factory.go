package updaterecord

import (
	"github.com/jobdeck/automata/pkg/protocol"
)

// ActionFactory creates update-record actions bound to the data-layer
// collaborator.
type ActionFactory struct {
	updater protocol.RecordUpdater
}

// NewActionFactory creates a new update-record action factory.
func NewActionFactory(updater protocol.RecordUpdater) *ActionFactory {
	return &ActionFactory{updater: updater}
}

// Create creates a new update-record action from the given configuration.
func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.updater)
}

// ID returns the unique identifier for the action.
func (f *ActionFactory) ID() string {
	return "update_record"
}

// Name returns the name of the action.
func (f *ActionFactory) Name() string {
	return "Update Record"
}

// Description returns a brief description of the action.
func (f *ActionFactory) Description() string {
	return "Applies rendered field updates to the triggering business entity."
}

// Schema returns the JSON schema for configuring this action.
func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"entity_type": map[string]any{
				"type":        "string",
				"description": "Entity to update.",
				"default":     "job",
				"enum":        []string{"job", "client", "invoice", "estimate"},
			},
			"entity_id": map[string]any{
				"type":        "string",
				"description": "Entity id template. Defaults to the triggering entity's id.",
				"examples":    []string{"{{job.id}}", "{{invoice.id}}"},
			},
			"fields": map[string]any{
				"type":        "object",
				"description": "Field updates. Values are templates.",
				"additionalProperties": map[string]any{
					"type": "string",
				},
				"examples": []map[string]string{
					{"status": "Invoiced"},
					{"technicianId": "{{company.defaultTechnicianId}}"},
				},
			},
		},
		"required":             []string{"fields"},
		"additionalProperties": false,
	}
}
