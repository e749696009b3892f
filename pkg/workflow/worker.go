package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jobdeck/automata/pkg/eventbus"
	"github.com/jobdeck/automata/pkg/events"
)

// Worker binds an engine to the event bus: trigger dispatches and test run
// requests come in as events, executions run in-process.
type Worker struct {
	bus    eventbus.EventBus
	engine *Engine
	logger *slog.Logger
}

func NewWorker(bus eventbus.EventBus, engine *Engine, logger *slog.Logger) *Worker {
	return &Worker{
		bus:    bus,
		engine: engine,
		logger: logger.With("module", "worker"),
	}
}

// Start registers the handlers and begins consuming. It returns once the
// subscription is established; consumption continues until ctx is done.
func (w *Worker) Start(ctx context.Context) error {
	err := w.bus.Handle(events.TriggerFiredEvent, w.handleTriggerFired)
	if err != nil {
		return fmt.Errorf("failed to register trigger handler: %w", err)
	}

	err = w.bus.Handle(events.TestRunRequestedEvent, w.handleTestRunRequested)
	if err != nil {
		return fmt.Errorf("failed to register test run handler: %w", err)
	}

	return w.bus.Subscribe(ctx)
}

func (w *Worker) handleTriggerFired(ctx context.Context, event any) error {
	fired, ok := event.(*events.TriggerFired)
	if !ok {
		return fmt.Errorf("unexpected event payload %T for trigger dispatch", event)
	}

	_, err := w.engine.OnTrigger(ctx, fired.TriggerType, fired.TriggerData)

	return err
}

func (w *Worker) handleTestRunRequested(ctx context.Context, event any) error {
	request, ok := event.(*events.TestRunRequested)
	if !ok {
		return fmt.Errorf("unexpected event payload %T for test run request", event)
	}

	log, err := w.engine.RunTest(ctx, request.WorkflowID, request.TriggerData)
	if err != nil {
		w.logger.Error("Test run failed", "workflow_id", request.WorkflowID, "error", err)

		return err
	}

	w.logger.Info("Test run finished",
		"workflow_id", request.WorkflowID, "execution_id", log.ID, "status", log.Status)

	return nil
}
