package updaterecord

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/jobdeck/automata/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUpdater struct {
	updates []protocol.RecordUpdate
	err     error
}

func (f *fakeUpdater) UpdateRecord(_ context.Context, update protocol.RecordUpdate) error {
	if f.err != nil {
		return f.err
	}

	f.updates = append(f.updates, update)

	return nil
}

func TestExecute_UpdatesTriggeringEntity(t *testing.T) {
	updater := &fakeUpdater{}

	action, err := NewAction(map[string]any{
		"fields": map[string]any{"status": "Invoiced"},
	}, updater)
	require.NoError(t, err)

	data := map[string]any{"job": map[string]any{"id": "job-42"}}

	output, err := action.Execute(context.Background(), data, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, "job job-42 updated", output)

	require.Len(t, updater.updates, 1)
	assert.Equal(t, "job", updater.updates[0].EntityType)
	assert.Equal(t, "job-42", updater.updates[0].EntityID)
	assert.Equal(t, "Invoiced", updater.updates[0].Fields["status"])
}

func TestExecute_TemplatedFieldValues(t *testing.T) {
	updater := &fakeUpdater{}

	action, err := NewAction(map[string]any{
		"entity_type": "invoice",
		"fields":      map[string]any{"note": "Paid by {{client.firstName}}"},
	}, updater)
	require.NoError(t, err)

	data := map[string]any{
		"invoice": map[string]any{"id": "inv-7"},
		"client":  map[string]any{"firstName": "Sam"},
	}

	_, err = action.Execute(context.Background(), data, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, "Paid by Sam", updater.updates[0].Fields["note"])
}

func TestExecute_MissingEntityIDFails(t *testing.T) {
	action, err := NewAction(map[string]any{
		"fields": map[string]any{"status": "x"},
	}, &fakeUpdater{})
	require.NoError(t, err)

	_, err = action.Execute(context.Background(), map[string]any{}, slog.Default())
	require.Error(t, err)
}

func TestExecute_CollaboratorError(t *testing.T) {
	action, err := NewAction(map[string]any{
		"fields": map[string]any{"status": "x"},
	}, &fakeUpdater{err: errors.New("row not found")})
	require.NoError(t, err)

	data := map[string]any{"job": map[string]any{"id": "job-1"}}

	_, err = action.Execute(context.Background(), data, slog.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row not found")
}

func TestNewAction_RequiresFields(t *testing.T) {
	_, err := NewAction(map[string]any{}, &fakeUpdater{})
	require.Error(t, err)

	_, err = NewAction(map[string]any{
		"fields": map[string]any{"status": 5},
	}, &fakeUpdater{})
	require.Error(t, err)
}
