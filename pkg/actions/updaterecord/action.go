// Package updaterecord provides the update-record workflow action.
package updaterecord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jobdeck/automata/pkg/protocol"
	"github.com/jobdeck/automata/pkg/template"
)

// Action applies rendered field updates to the triggering entity (for
// example setting the job status) through the data-layer collaborator.
type Action struct {
	EntityType string
	EntityID   string
	Fields     map[string]string

	updater protocol.RecordUpdater
}

// NewAction creates an update-record action from step configuration.
func NewAction(config map[string]any, updater protocol.RecordUpdater) (*Action, error) {
	entityType, _ := config["entity_type"].(string)
	if entityType == "" {
		entityType = "job"
	}

	entityID, _ := config["entity_id"].(string)
	if entityID == "" {
		// Default to the triggering entity's id in the context.
		entityID = "{{" + entityType + ".id}}"
	}

	fieldsConfig, _ := config["fields"].(map[string]any)
	if len(fieldsConfig) == 0 {
		return nil, errors.New("update_record action requires at least one field")
	}

	fields := make(map[string]string, len(fieldsConfig))

	for name, value := range fieldsConfig {
		str, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("field %q: update values must be templated strings", name)
		}

		fields[name] = str
	}

	return &Action{
		EntityType: entityType,
		EntityID:   entityID,
		Fields:     fields,
		updater:    updater,
	}, nil
}

// Execute renders the field templates and applies the update.
func (a *Action) Execute(ctx context.Context, triggerData map[string]any, logger *slog.Logger) (string, error) {
	logger = logger.With("action_type", "update_record")

	entityID := template.Render(a.EntityID, triggerData)
	if entityID == "" {
		return "", fmt.Errorf("entity id for %s resolved to empty string", a.EntityType)
	}

	update := protocol.RecordUpdate{
		EntityType: a.EntityType,
		EntityID:   entityID,
		Fields:     make(map[string]any, len(a.Fields)),
	}

	for name, tmpl := range a.Fields {
		update.Fields[name] = template.Render(tmpl, triggerData)
	}

	logger.InfoContext(ctx, "Updating record",
		"entity_type", a.EntityType, "entity_id", entityID, "fields", len(update.Fields))

	err := a.updater.UpdateRecord(ctx, update)
	if err != nil {
		return "", fmt.Errorf("update %s %s: %w", a.EntityType, entityID, err)
	}

	return fmt.Sprintf("%s %s updated", a.EntityType, entityID), nil
}
