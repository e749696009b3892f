package task

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobdeck/automata/pkg/protocol"
)

type fakeCreator struct {
	created []protocol.TaskRequest
	err     error
}

func (c *fakeCreator) CreateTask(_ context.Context, req protocol.TaskRequest) (string, error) {
	if c.err != nil {
		return "", c.err
	}

	c.created = append(c.created, req)

	return "task-1", nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewActionRequiresTitle(t *testing.T) {
	_, err := NewAction(map[string]any{"description": "no title"}, &fakeCreator{})
	assert.Error(t, err)
}

func TestExecuteCreatesTaskWithRenderedFields(t *testing.T) {
	creator := &fakeCreator{}

	action, err := NewAction(map[string]any{
		"title":       "Follow up with {{client.first_name}}",
		"description": "Job {{job.id}} was completed",
	}, creator)
	require.NoError(t, err)

	data := map[string]any{
		"job":    map[string]any{"id": "job-7", "status": "done"},
		"client": map[string]any{"id": "client-3", "first_name": "Ana"},
	}

	output, err := action.Execute(context.Background(), data, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "task task-1 created", output)

	require.Len(t, creator.created, 1)
	created := creator.created[0]
	assert.Equal(t, "Follow up with Ana", created.Title)
	assert.Equal(t, "Job job-7 was completed", created.Description)
	assert.Equal(t, "job-7", created.JobID)
	assert.Equal(t, "client-3", created.ClientID)
}

func TestExecuteWithoutEntitiesLeavesAssociationsEmpty(t *testing.T) {
	creator := &fakeCreator{}

	action, err := NewAction(map[string]any{"title": "Manual review"}, creator)
	require.NoError(t, err)

	_, err = action.Execute(context.Background(), map[string]any{}, discardLogger())
	require.NoError(t, err)

	require.Len(t, creator.created, 1)
	assert.Empty(t, creator.created[0].JobID)
	assert.Empty(t, creator.created[0].ClientID)
}

func TestExecutePropagatesCollaboratorError(t *testing.T) {
	action, err := NewAction(map[string]any{"title": "Call back"}, &fakeCreator{err: errors.New("edge down")})
	require.NoError(t, err)

	_, err = action.Execute(context.Background(), map[string]any{}, discardLogger())
	assert.ErrorContains(t, err, "edge down")
}
