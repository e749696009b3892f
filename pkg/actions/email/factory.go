package email

import (
	"github.com/jobdeck/automata/pkg/protocol"
)

// ActionFactory creates email actions bound to a messaging collaborator.
type ActionFactory struct {
	mailer protocol.Mailer
}

// NewActionFactory creates a new email action factory.
func NewActionFactory(mailer protocol.Mailer) *ActionFactory {
	return &ActionFactory{mailer: mailer}
}

// Create creates a new email action from the given configuration.
func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.mailer)
}

// ID returns the unique identifier for the action.
func (f *ActionFactory) ID() string {
	return "email"
}

// Name returns the name of the action.
func (f *ActionFactory) Name() string {
	return "Send Email"
}

// Description returns a brief description of the action.
func (f *ActionFactory) Description() string {
	return "Renders subject and body templates and emails the resolved recipient."
}

// Schema returns the JSON schema for configuring this action.
func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"to": map[string]any{
				"type":        "string",
				"description": "Recipient template. Defaults to the client's email field.",
				"default":     defaultRecipient,
				"examples": []string{
					"{{client.email}}",
					"{{company.dispatchEmail}}",
				},
			},
			"subject": map[string]any{
				"type":        "string",
				"description": "Subject template.",
				"examples": []string{
					"Thanks {{client.firstName}}",
					"Invoice {{invoice.number}} is overdue",
				},
			},
			"body": map[string]any{
				"type":        "string",
				"format":      "code",
				"description": "Body template, plain text or HTML.",
			},
		},
		"additionalProperties": false,
	}
}
