package sms

import (
	"github.com/jobdeck/automata/pkg/protocol"
)

// ActionFactory creates sms actions bound to a messaging collaborator.
type ActionFactory struct {
	texter protocol.Texter
}

// NewActionFactory creates a new sms action factory.
func NewActionFactory(texter protocol.Texter) *ActionFactory {
	return &ActionFactory{texter: texter}
}

// Create creates a new sms action from the given configuration.
func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.texter)
}

// ID returns the unique identifier for the action.
func (f *ActionFactory) ID() string {
	return "sms"
}

// Name returns the name of the action.
func (f *ActionFactory) Name() string {
	return "Send SMS"
}

// Description returns a brief description of the action.
func (f *ActionFactory) Description() string {
	return "Renders a body template and texts the resolved E.164 recipient."
}

// Schema returns the JSON schema for configuring this action.
func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"to": map[string]any{
				"type":        "string",
				"description": "Recipient template. Defaults to the client's phone field.",
				"default":     defaultRecipient,
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Body template. Truncated to the provider limit before send.",
				"examples": []string{
					"Hi {{client.firstName}}, your technician is on the way.",
				},
			},
		},
		"required":             []string{"body"},
		"additionalProperties": false,
	}
}
