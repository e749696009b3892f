package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jobdeck/automata/pkg/events"
	"github.com/jobdeck/automata/pkg/mocks"
	"github.com/jobdeck/automata/pkg/models"
)

func TestWorkerStartRegistersHandlers(t *testing.T) {
	bus := &mocks.MockEventBus{}
	bus.On("Handle", events.TriggerFiredEvent, mock.Anything).Return(nil)
	bus.On("Handle", events.TestRunRequestedEvent, mock.Anything).Return(nil)
	bus.On("Subscribe", mock.Anything).Return(nil)

	f := newEngineFixture(t)
	worker := NewWorker(bus, f.engine, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, worker.Start(context.Background()))
	bus.AssertExpectations(t)
}

func TestWorkerStartFailsWhenHandlerRegistrationFails(t *testing.T) {
	bus := &mocks.MockEventBus{}
	bus.On("Handle", events.TriggerFiredEvent, mock.Anything).Return(errors.New("bus down"))

	f := newEngineFixture(t)
	worker := NewWorker(bus, f.engine, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.Error(t, worker.Start(context.Background()))
}

func TestWorkerHandleTriggerFired(t *testing.T) {
	f := newEngineFixture(t)
	f.saveWorkflow(t, thankYouWorkflow())

	worker := NewWorker(&mocks.MockEventBus{}, f.engine, slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := worker.handleTriggerFired(context.Background(), &events.TriggerFired{
		BaseEvent:   events.NewBaseEvent(events.TriggerFiredEvent),
		TriggerType: models.TriggerJobCompleted,
		TriggerData: completedJobData(),
	})
	require.NoError(t, err)
	assert.Len(t, f.mailer.sent, 1)
}

func TestWorkerHandleRejectsWrongPayload(t *testing.T) {
	f := newEngineFixture(t)
	worker := NewWorker(&mocks.MockEventBus{}, f.engine, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.Error(t, worker.handleTriggerFired(context.Background(), "not an event"))
	assert.Error(t, worker.handleTestRunRequested(context.Background(), 42))
}

func TestSweepPropagatesListError(t *testing.T) {
	persist := &mocks.MockPersistence{}
	persist.On("PendingExecutions", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("db down"))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sweeper := NewSweeper(persist, nil, logger, 0)

	assert.Error(t, sweeper.Sweep(context.Background()))
	persist.AssertExpectations(t)
}
