package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobdeck/automata/pkg/channels/gochannel"
	"github.com/jobdeck/automata/pkg/events"
	"github.com/jobdeck/automata/pkg/models"
)

func TestPublishSubscribeTriggerFired(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := NewWatermillEventBus(pub, sub)
	defer bus.Close()

	received := make(chan *events.TriggerFired, 1)

	err = bus.Handle(events.TriggerFiredEvent, func(_ context.Context, event any) error {
		fired, ok := event.(*events.TriggerFired)
		require.True(t, ok)

		received <- fired

		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	fired := events.TriggerFired{
		BaseEvent:   events.NewBaseEvent(events.TriggerFiredEvent),
		TriggerType: models.TriggerJobCompleted,
		TriggerData: map[string]any{"job": map[string]any{"id": "job-1", "status": "done"}},
	}

	require.NoError(t, bus.Publish(ctx, "job-1", fired))

	select {
	case got := <-received:
		assert.Equal(t, fired.ID, got.ID)
		assert.Equal(t, models.TriggerJobCompleted, got.TriggerType)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for trigger event")
	}
}

func TestUnhandledEventIsAcked(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := NewWatermillEventBus(pub, sub)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	// No handler registered for completion events; publish must not error
	// and the message is dropped.
	completed := events.ExecutionCompleted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionCompletedEvent),
		ExecutionID: "exec-1",
	}

	assert.NoError(t, bus.Publish(ctx, "exec-1", completed))
}
