// Package protocol defines the interfaces and contracts between the
// workflow engine, pluggable actions and the external collaborators they
// call into.
package protocol

import (
	"context"
	"log/slog"
)

// Action is one executable workflow step. Execute renders its templated
// configuration against the trigger context and calls whatever collaborator
// the action type needs. Collaborator failures come back as errors; they
// are recorded on the execution log by the engine and never propagate past
// it.
type Action interface {
	Execute(ctx context.Context, triggerData map[string]any, logger *slog.Logger) (string, error)
}

// ActionFactory creates action instances from step configuration and
// describes the configuration it accepts.
type ActionFactory interface {
	// Create builds a new action instance from the given configuration.
	Create(config map[string]any) (Action, error)

	// ID returns the action type this factory produces (e.g. "email").
	ID() string

	// Name returns the human-readable name for this action type.
	Name() string

	// Description returns a short description of what the action does.
	Description() string

	// Schema returns the JSON schema for configuring this action.
	Schema() map[string]any
}
