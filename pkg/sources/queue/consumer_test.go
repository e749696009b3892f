package queue

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobdeck/automata/pkg/eventbus"
	"github.com/jobdeck/automata/pkg/events"
	"github.com/jobdeck/automata/pkg/models"
)

type capturingPublisher struct {
	published []eventbus.Event
}

func (p *capturingPublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.published = append(p.published, event)

	return nil
}

func newTestConsumer(publisher eventbus.EventPublisher) *Consumer {
	return NewConsumer(nil, "", publisher, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestDispatchPublishesTriggerFired(t *testing.T) {
	publisher := &capturingPublisher{}
	consumer := newTestConsumer(publisher)

	payload := []byte(`{"trigger_type":"job_completed","data":{"job":{"id":"job-1","status":"done"}}}`)

	require.NoError(t, consumer.dispatch(context.Background(), payload))
	require.Len(t, publisher.published, 1)

	fired, ok := publisher.published[0].(events.TriggerFired)
	require.True(t, ok)
	assert.Equal(t, models.TriggerJobCompleted, fired.TriggerType)
	assert.Equal(t, "job-1", fired.TriggerData["job"].(map[string]any)["id"])
}

func TestDispatchDropsMalformedEnvelope(t *testing.T) {
	publisher := &capturingPublisher{}
	consumer := newTestConsumer(publisher)

	require.NoError(t, consumer.dispatch(context.Background(), []byte("not json")))
	assert.Empty(t, publisher.published)
}

func TestDispatchDropsUnknownTriggerType(t *testing.T) {
	publisher := &capturingPublisher{}
	consumer := newTestConsumer(publisher)

	payload := []byte(`{"trigger_type":"job_exploded","data":{}}`)

	require.NoError(t, consumer.dispatch(context.Background(), payload))
	assert.Empty(t, publisher.published)
}

func TestDefaultQueueName(t *testing.T) {
	consumer := newTestConsumer(&capturingPublisher{})
	assert.Equal(t, DefaultQueue, consumer.queue)
}
