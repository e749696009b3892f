// Package workflow contains the execution engine: it turns fired triggers
// into execution logs and drives each log through its steps.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jobdeck/automata/pkg/conditions"
	"github.com/jobdeck/automata/pkg/eventbus"
	"github.com/jobdeck/automata/pkg/events"
	"github.com/jobdeck/automata/pkg/models"
	"github.com/jobdeck/automata/pkg/otelhelper"
	"github.com/jobdeck/automata/pkg/persistence"
	"github.com/jobdeck/automata/pkg/registry"
)

// Engine executes workflows. It is safe for concurrent use; claim
// atomicity in the persistence layer guarantees each execution log runs at
// most once even when several engines race for it.
type Engine struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
	workerID    string
	tracer      trace.Tracer
	now         func() time.Time
}

func NewEngine(
	persist persistence.Persistence,
	reg *registry.Registry,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
	workerID string,
) *Engine {
	return &Engine{
		persistence: persist,
		registry:    reg,
		publisher:   publisher,
		logger:      logger.With("module", "workflow_engine", "worker_id", workerID),
		workerID:    workerID,
		now:         time.Now,
	}
}

// WithTracer enables span emission around execution runs.
func (e *Engine) WithTracer(tracer trace.Tracer) *Engine {
	e.tracer = tracer

	return e
}

// OnTrigger handles one fired trigger: every active workflow bound to the
// trigger type gets its own pending execution log, then each log is run.
// One workflow failing never affects its siblings.
func (e *Engine) OnTrigger(ctx context.Context, trigger models.TriggerType, triggerData map[string]any) ([]*models.ExecutionLog, error) {
	logger := e.logger.With("trigger_type", trigger)

	if !trigger.Valid() {
		return nil, fmt.Errorf("unknown trigger type %q", trigger)
	}

	workflows, err := e.persistence.WorkflowsByTrigger(ctx, trigger)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflows for trigger %s: %w", trigger, err)
	}

	logger.Info("Trigger fired", "matched_workflows", len(workflows))

	logs := make([]*models.ExecutionLog, 0, len(workflows))

	for _, workflow := range workflows {
		log, err := e.createExecution(ctx, workflow, trigger, triggerData, false)
		if err != nil {
			logger.Error("Failed to create execution log", "workflow_id", workflow.ID, "error", err)

			continue
		}

		logs = append(logs, log)
	}

	// Creation and execution are separate phases: once the pending log
	// exists the run survives a crash here, the sweeper picks it up.
	for _, log := range logs {
		if err := e.RunExecution(ctx, log.ID); err != nil {
			logger.Error("Execution run failed", "execution_id", log.ID, "error", err)
		}
	}

	return logs, nil
}

// RunTest executes one workflow with caller-supplied sample data. The
// condition tree is bypassed and the log is marked as a test run.
func (e *Engine) RunTest(ctx context.Context, workflowID string, triggerData map[string]any) (*models.ExecutionLog, error) {
	workflow, err := e.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	log, err := e.createExecution(ctx, workflow, workflow.TriggerType, triggerData, true)
	if err != nil {
		return nil, err
	}

	if err := e.RunExecution(ctx, log.ID); err != nil {
		return nil, err
	}

	return e.persistence.ExecutionByID(ctx, log.ID)
}

func (e *Engine) createExecution(
	ctx context.Context,
	workflow *models.Workflow,
	trigger models.TriggerType,
	triggerData map[string]any,
	isTest bool,
) (*models.ExecutionLog, error) {
	if triggerData == nil {
		triggerData = make(map[string]any)
	}

	log := &models.ExecutionLog{
		ID:              "exec-" + uuid.New().String(),
		WorkflowID:      workflow.ID,
		WorkflowName:    workflow.Name,
		TriggerType:     trigger,
		TriggerData:     triggerData,
		Status:          models.ExecutionStatusPending,
		IsTest:          isTest,
		ActionsExecuted: []models.ActionRecord{},
		CreatedAt:       e.now().UTC(),
	}

	if err := e.persistence.CreateExecution(ctx, log); err != nil {
		return nil, fmt.Errorf("failed to create execution log: %w", err)
	}

	return log, nil
}

// RunExecution claims a pending execution and drives it forward until it
// completes, fails, or parks on a delay step. Losing the claim is not an
// error: another worker owns the run.
func (e *Engine) RunExecution(ctx context.Context, executionID string) error {
	claimed, err := e.persistence.ClaimExecution(ctx, executionID, e.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to claim execution %s: %w", executionID, err)
	}

	if !claimed {
		e.logger.Debug("Execution already claimed", "execution_id", executionID)

		return nil
	}

	log, err := e.persistence.ExecutionByID(ctx, executionID)
	if err != nil {
		return err
	}

	if e.tracer != nil {
		var span trace.Span

		ctx, span = e.tracer.Start(ctx, "workflow.execution", trace.WithAttributes(
			attribute.String(otelhelper.ExecutionIDKey, log.ID),
			attribute.String(otelhelper.WorkflowIDKey, log.WorkflowID),
			attribute.String(otelhelper.TriggerTypeKey, string(log.TriggerType)),
			attribute.String(otelhelper.WorkerIDKey, e.workerID),
		))
		defer span.End()
	}

	logger := e.logger.With("execution_id", log.ID, "workflow_id", log.WorkflowID)

	workflow, err := e.persistence.WorkflowByID(ctx, log.WorkflowID)
	if err != nil {
		return e.fail(ctx, log, "", fmt.Errorf("failed to load workflow: %w", err))
	}

	e.publishStarted(ctx, log)
	logger.Info("Execution started", "is_test", log.IsTest, "resume_position", log.ResumePosition)

	// The condition gate applies once, at the start of a fresh run. Resumed
	// runs already passed it and test runs bypass it.
	if log.ResumePosition == 0 && !log.IsTest {
		if !conditions.Evaluate(workflow.ConditionGroups, log.TriggerData) {
			log.Skipped = true

			logger.Info("Conditions not met, skipping steps")

			return e.complete(ctx, log)
		}
	}

	return e.runSteps(ctx, logger, workflow, log)
}

func (e *Engine) runSteps(ctx context.Context, logger *slog.Logger, workflow *models.Workflow, log *models.ExecutionLog) error {
	steps := workflow.OrderedSteps()

	for position := log.ResumePosition; position < len(steps); position++ {
		step := steps[position]

		switch step.Type {
		case models.StepTypeDelay:
			return e.suspend(ctx, logger, log, step, position)
		case models.StepTypeAction:
			record := e.executeStep(ctx, logger, step, log.TriggerData)
			log.ActionsExecuted = append(log.ActionsExecuted, record)

			if record.Status == models.ActionRecordFailed {
				return e.fail(ctx, log, step.ID, fmt.Errorf("step %s (%s): %s", step.ID, step.ActionType, record.Error))
			}

			// Progress is persisted per step so a crash never loses
			// completed side effects from the audit trail.
			log.ResumePosition = position + 1
			if err := e.persistence.SaveExecution(ctx, log); err != nil {
				return fmt.Errorf("failed to save execution progress: %w", err)
			}
		default:
			return e.fail(ctx, log, step.ID, fmt.Errorf("unknown step type %q", step.Type))
		}
	}

	return e.complete(ctx, log)
}

func (e *Engine) executeStep(ctx context.Context, logger *slog.Logger, step models.Step, triggerData map[string]any) models.ActionRecord {
	record := models.ActionRecord{
		StepID:     step.ID,
		ActionType: step.ActionType,
		Timestamp:  e.now().UTC(),
	}

	action, err := e.registry.CreateAction(step.ActionType, step.Config)
	if err != nil {
		record.Status = models.ActionRecordFailed
		record.Error = err.Error()

		return record
	}

	output, err := action.Execute(ctx, triggerData, logger.With("step_id", step.ID, "action_type", step.ActionType))
	if err != nil {
		record.Status = models.ActionRecordFailed
		record.Error = err.Error()

		return record
	}

	record.Status = models.ActionRecordSuccess
	record.Output = output

	return record
}

// suspend parks the execution on a delay step: the log goes back to
// pending with a resume point, and the sweeper re-claims it once ResumeAt
// passes. No worker sleeps through a delay.
func (e *Engine) suspend(ctx context.Context, logger *slog.Logger, log *models.ExecutionLog, step models.Step, position int) error {
	resumeAt := e.now().UTC().Add(step.DelayDuration())

	log.ActionsExecuted = append(log.ActionsExecuted, models.ActionRecord{
		StepID:     step.ID,
		ActionType: "delay",
		Status:     models.ActionRecordSuccess,
		Output:     fmt.Sprintf("delayed until %s", resumeAt.Format(time.RFC3339)),
		Timestamp:  e.now().UTC(),
	})
	log.Status = models.ExecutionStatusPending
	log.ResumePosition = position + 1
	log.ResumeAt = &resumeAt

	if err := e.persistence.SaveExecution(ctx, log); err != nil {
		return fmt.Errorf("failed to park delayed execution: %w", err)
	}

	logger.Info("Execution delayed", "resume_at", resumeAt, "resume_position", log.ResumePosition)
	e.publishDelayed(ctx, log, resumeAt)

	return nil
}

func (e *Engine) complete(ctx context.Context, log *models.ExecutionLog) error {
	completedAt := e.now().UTC()

	log.Status = models.ExecutionStatusCompleted
	log.CompletedAt = &completedAt
	log.ResumeAt = nil

	if err := e.persistence.SaveExecution(ctx, log); err != nil {
		return fmt.Errorf("failed to save completed execution: %w", err)
	}

	e.publishCompleted(ctx, log)

	return nil
}

func (e *Engine) fail(ctx context.Context, log *models.ExecutionLog, failedStepID string, cause error) error {
	completedAt := e.now().UTC()

	log.Status = models.ExecutionStatusFailed
	log.ErrorMessage = cause.Error()
	log.CompletedAt = &completedAt
	log.ResumeAt = nil

	if err := e.persistence.SaveExecution(ctx, log); err != nil {
		return fmt.Errorf("failed to save failed execution: %w", err)
	}

	otelhelper.SetError(trace.SpanFromContext(ctx), cause,
		attribute.String(otelhelper.StepIDKey, failedStepID))
	e.logger.Error("Execution failed",
		"execution_id", log.ID, "workflow_id", log.WorkflowID, "step_id", failedStepID, "error", cause)
	e.publishFailed(ctx, log, failedStepID, cause)

	return nil
}

func (e *Engine) publishStarted(ctx context.Context, log *models.ExecutionLog) {
	e.publish(ctx, log.ID, events.ExecutionStarted{
		BaseEvent:    e.baseEvent(events.ExecutionStartedEvent),
		ExecutionID:  log.ID,
		WorkflowID:   log.WorkflowID,
		WorkflowName: log.WorkflowName,
		TriggerType:  log.TriggerType,
		IsTest:       log.IsTest,
	})
}

func (e *Engine) publishCompleted(ctx context.Context, log *models.ExecutionLog) {
	e.publish(ctx, log.ID, events.ExecutionCompleted{
		BaseEvent:       e.baseEvent(events.ExecutionCompletedEvent),
		ExecutionID:     log.ID,
		WorkflowID:      log.WorkflowID,
		Skipped:         log.Skipped,
		ActionsExecuted: len(log.ActionsExecuted),
		DurationMs:      e.durationMs(log),
	})
}

func (e *Engine) publishFailed(ctx context.Context, log *models.ExecutionLog, failedStepID string, cause error) {
	e.publish(ctx, log.ID, events.ExecutionFailed{
		BaseEvent:       e.baseEvent(events.ExecutionFailedEvent),
		ExecutionID:     log.ID,
		WorkflowID:      log.WorkflowID,
		FailedStepID:    failedStepID,
		Error:           cause.Error(),
		ActionsExecuted: len(log.ActionsExecuted),
		DurationMs:      e.durationMs(log),
	})
}

func (e *Engine) publishDelayed(ctx context.Context, log *models.ExecutionLog, resumeAt time.Time) {
	e.publish(ctx, log.ID, events.ExecutionDelayed{
		BaseEvent:   e.baseEvent(events.ExecutionDelayedEvent),
		ExecutionID: log.ID,
		WorkflowID:  log.WorkflowID,
		ResumeAt:    resumeAt,
	})
}

func (e *Engine) baseEvent(eventType events.EventType) events.BaseEvent {
	base := events.NewBaseEvent(eventType)
	base.WorkerID = e.workerID

	return base
}

func (e *Engine) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, key, event); err != nil {
		e.logger.Error("Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

func (e *Engine) durationMs(log *models.ExecutionLog) int64 {
	if log.StartedAt == nil || log.CompletedAt == nil {
		return 0
	}

	return log.CompletedAt.Sub(*log.StartedAt).Milliseconds()
}
