// Package task provides the create-task workflow action.
package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jobdeck/automata/pkg/protocol"
	"github.com/jobdeck/automata/pkg/template"
)

// Action writes a task record through the data-layer collaborator, with
// title and description rendered against the trigger context. The task is
// associated with the triggering job and client when their ids are present
// in the context.
type Action struct {
	Title       string
	Description string
	Assignee    string

	creator protocol.TaskCreator
}

// NewAction creates a create-task action from step configuration.
func NewAction(config map[string]any, creator protocol.TaskCreator) (*Action, error) {
	title, _ := config["title"].(string)
	if title == "" {
		return nil, errors.New("task action requires a title")
	}

	description, _ := config["description"].(string)
	assignee, _ := config["assignee"].(string)

	return &Action{
		Title:       title,
		Description: description,
		Assignee:    assignee,
		creator:     creator,
	}, nil
}

// Execute creates the task and returns the created record id.
func (a *Action) Execute(ctx context.Context, triggerData map[string]any, logger *slog.Logger) (string, error) {
	logger = logger.With("action_type", "task")

	req := protocol.TaskRequest{
		Title:       template.Render(a.Title, triggerData),
		Description: template.Render(a.Description, triggerData),
		AssigneeID:  template.Render(a.Assignee, triggerData),
		JobID:       contextID(triggerData, "job"),
		ClientID:    contextID(triggerData, "client"),
	}

	logger.InfoContext(ctx, "Creating task", "title", req.Title, "job_id", req.JobID)

	id, err := a.creator.CreateTask(ctx, req)
	if err != nil {
		return "", fmt.Errorf("create task %q: %w", req.Title, err)
	}

	return fmt.Sprintf("task %s created", id), nil
}

func contextID(data map[string]any, entity string) string {
	value, found := template.Lookup(data, []string{entity, "id"})
	if !found {
		return ""
	}

	return template.Stringify(value)
}
