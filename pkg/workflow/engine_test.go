package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobdeck/automata/pkg/actions/email"
	"github.com/jobdeck/automata/pkg/models"
	"github.com/jobdeck/automata/pkg/persistence"
	"github.com/jobdeck/automata/pkg/persistence/file"
	"github.com/jobdeck/automata/pkg/protocol"
	"github.com/jobdeck/automata/pkg/registry"
)

type recordingMailer struct {
	sent []protocol.EmailMessage
}

func (m *recordingMailer) SendEmail(_ context.Context, msg protocol.EmailMessage) (protocol.MessageReceipt, error) {
	m.sent = append(m.sent, msg)

	return protocol.MessageReceipt{ProviderMessageID: "msg-1"}, nil
}

// stubFactory registers a controllable action under an arbitrary type id.
type stubFactory struct {
	id    string
	err   error
	calls *atomic.Int32
}

func (f *stubFactory) Create(_ map[string]any) (protocol.Action, error) {
	return &stubAction{err: f.err, calls: f.calls}, nil
}

func (f *stubFactory) ID() string          { return f.id }
func (f *stubFactory) Name() string        { return f.id }
func (f *stubFactory) Description() string { return "test action" }

func (f *stubFactory) Schema() map[string]any {
	return map[string]any{"type": "object"}
}

type stubAction struct {
	err   error
	calls *atomic.Int32
}

func (a *stubAction) Execute(_ context.Context, _ map[string]any, _ *slog.Logger) (string, error) {
	a.calls.Add(1)

	if a.err != nil {
		return "", a.err
	}

	return "ok", nil
}

type engineFixture struct {
	engine      *Engine
	persistence *file.Persistence
	mailer      *recordingMailer
	registry    *registry.Registry
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	persist := file.NewPersistence(t.TempDir())
	mailer := &recordingMailer{}

	reg := registry.NewRegistry(logger)
	reg.RegisterAction(email.NewActionFactory(mailer))

	return &engineFixture{
		engine:      NewEngine(persist, reg, nil, logger, "worker-test"),
		persistence: persist,
		mailer:      mailer,
		registry:    reg,
	}
}

func (f *engineFixture) saveWorkflow(t *testing.T, workflow *models.Workflow) {
	t.Helper()
	require.NoError(t, f.persistence.SaveWorkflow(context.Background(), workflow))
}

func thankYouWorkflow() *models.Workflow {
	return &models.Workflow{
		ID:          "wf-thanks",
		Name:        "Job completed thank you",
		Status:      models.WorkflowStatusActive,
		TriggerType: models.TriggerJobCompleted,
		ConditionGroups: []models.ConditionGroup{{
			Logic: models.GroupLogicAnd,
			Conditions: []models.Condition{{
				Property:     "job.status",
				PropertyType: models.PropertyTypeText,
				Operator:     models.OperatorEquals,
				Value:        "done",
			}},
		}},
		Steps: []models.Step{{
			ID:         "step-email",
			Type:       models.StepTypeAction,
			Position:   0,
			ActionType: models.ActionTypeEmail,
			Config: map[string]any{
				"to":      "{{client.email}}",
				"subject": "Thanks {{client.first_name}}",
				"body":    "Thanks {{client.first_name}}, the job is done.",
			},
		}},
	}
}

func completedJobData() map[string]any {
	return map[string]any{
		"job": map[string]any{"id": "job-1", "status": "done"},
		"client": map[string]any{
			"id":         "client-1",
			"first_name": "Sam",
			"email":      "sam@example.com",
		},
	}
}

func TestOnTriggerRunsMatchingWorkflow(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	f.saveWorkflow(t, thankYouWorkflow())

	logs, err := f.engine.OnTrigger(ctx, models.TriggerJobCompleted, completedJobData())
	require.NoError(t, err)
	require.Len(t, logs, 1)

	log, err := f.persistence.ExecutionByID(ctx, logs[0].ID)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCompleted, log.Status)
	assert.False(t, log.Skipped)
	require.Len(t, log.ActionsExecuted, 1)
	assert.Equal(t, models.ActionRecordSuccess, log.ActionsExecuted[0].Status)
	assert.NotNil(t, log.CompletedAt)

	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "sam@example.com", f.mailer.sent[0].To)
	assert.Equal(t, "Thanks Sam", f.mailer.sent[0].Subject)
	assert.Equal(t, "Thanks Sam, the job is done.", f.mailer.sent[0].Body)
}

func TestOnTriggerConditionsNotMetMarksSkipped(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	f.saveWorkflow(t, thankYouWorkflow())

	data := completedJobData()
	data["job"].(map[string]any)["status"] = "cancelled"

	logs, err := f.engine.OnTrigger(ctx, models.TriggerJobCompleted, data)
	require.NoError(t, err)
	require.Len(t, logs, 1)

	log, err := f.persistence.ExecutionByID(ctx, logs[0].ID)
	require.NoError(t, err)

	// A skipped run is completed with zero records but distinguishable
	// from one that actually executed steps.
	assert.Equal(t, models.ExecutionStatusCompleted, log.Status)
	assert.True(t, log.Skipped)
	assert.Empty(t, log.ActionsExecuted)
	assert.Empty(t, f.mailer.sent)
}

func TestOnTriggerIgnoresInactiveWorkflows(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	workflow := thankYouWorkflow()
	workflow.Status = models.WorkflowStatusInactive
	f.saveWorkflow(t, workflow)

	logs, err := f.engine.OnTrigger(ctx, models.TriggerJobCompleted, completedJobData())
	require.NoError(t, err)
	assert.Empty(t, logs)

	stored, err := f.persistence.Executions(ctx, persistence.ExecutionFilter{IncludeTests: true})
	require.NoError(t, err)
	assert.Empty(t, stored, "inactive workflows must leave no execution logs")
}

func TestOnTriggerRejectsUnknownTriggerType(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.OnTrigger(context.Background(), models.TriggerType("job_exploded"), nil)
	assert.Error(t, err)
}

func TestRunStepsHaltsOnFirstFailure(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	var okCalls, failCalls, neverCalls atomic.Int32

	f.registry.RegisterAction(&stubFactory{id: "ok", calls: &okCalls})
	f.registry.RegisterAction(&stubFactory{id: "boom", err: errors.New("provider unavailable"), calls: &failCalls})
	f.registry.RegisterAction(&stubFactory{id: "never", calls: &neverCalls})

	workflow := &models.Workflow{
		ID:          "wf-halt",
		Name:        "Halting workflow",
		Status:      models.WorkflowStatusActive,
		TriggerType: models.TriggerInvoiceOverdue,
		Steps: []models.Step{
			{ID: "s1", Type: models.StepTypeAction, Position: 0, ActionType: "ok"},
			{ID: "s2", Type: models.StepTypeAction, Position: 1, ActionType: "boom"},
			{ID: "s3", Type: models.StepTypeAction, Position: 2, ActionType: "never"},
		},
	}
	f.saveWorkflow(t, workflow)

	logs, err := f.engine.OnTrigger(ctx, models.TriggerInvoiceOverdue, map[string]any{"invoice": map[string]any{"id": "inv-1"}})
	require.NoError(t, err)
	require.Len(t, logs, 1)

	log, err := f.persistence.ExecutionByID(ctx, logs[0].ID)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusFailed, log.Status)
	assert.NotEmpty(t, log.ErrorMessage)
	require.Len(t, log.ActionsExecuted, 2)
	assert.Equal(t, models.ActionRecordSuccess, log.ActionsExecuted[0].Status)
	assert.Equal(t, models.ActionRecordFailed, log.ActionsExecuted[1].Status)
	assert.Equal(t, "provider unavailable", log.ActionsExecuted[1].Error)

	assert.Equal(t, int32(1), okCalls.Load())
	assert.Equal(t, int32(1), failCalls.Load())
	assert.Equal(t, int32(0), neverCalls.Load(), "steps after a failure must not run")
}

func TestOnTriggerIsolatesSiblingWorkflows(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	var okCalls, failCalls atomic.Int32

	f.registry.RegisterAction(&stubFactory{id: "ok", calls: &okCalls})
	f.registry.RegisterAction(&stubFactory{id: "boom", err: errors.New("down"), calls: &failCalls})

	f.saveWorkflow(t, &models.Workflow{
		ID: "wf-bad", Name: "Failing sibling", Status: models.WorkflowStatusActive,
		TriggerType: models.TriggerClientCreated,
		Steps:       []models.Step{{ID: "s1", Type: models.StepTypeAction, ActionType: "boom"}},
	})
	f.saveWorkflow(t, &models.Workflow{
		ID: "wf-good", Name: "Healthy sibling", Status: models.WorkflowStatusActive,
		TriggerType: models.TriggerClientCreated,
		Steps:       []models.Step{{ID: "s1", Type: models.StepTypeAction, ActionType: "ok"}},
	})

	logs, err := f.engine.OnTrigger(ctx, models.TriggerClientCreated, map[string]any{"client": map[string]any{"id": "c-1"}})
	require.NoError(t, err)
	require.Len(t, logs, 2)

	statuses := map[string]models.ExecutionStatus{}

	for _, created := range logs {
		log, err := f.persistence.ExecutionByID(ctx, created.ID)
		require.NoError(t, err)

		statuses[log.WorkflowID] = log.Status
	}

	assert.Equal(t, models.ExecutionStatusFailed, statuses["wf-bad"])
	assert.Equal(t, models.ExecutionStatusCompleted, statuses["wf-good"])
}

func TestRunTestBypassesConditions(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	f.saveWorkflow(t, thankYouWorkflow())

	data := completedJobData()
	data["job"].(map[string]any)["status"] = "cancelled"

	log, err := f.engine.RunTest(ctx, "wf-thanks", data)
	require.NoError(t, err)

	assert.True(t, log.IsTest)
	assert.False(t, log.Skipped)
	assert.Equal(t, models.ExecutionStatusCompleted, log.Status)
	require.Len(t, log.ActionsExecuted, 1)
	assert.Len(t, f.mailer.sent, 1, "test runs execute real actions")
}

func TestDelayParksExecutionAndSweeperResumes(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	var beforeCalls, afterCalls atomic.Int32

	f.registry.RegisterAction(&stubFactory{id: "before", calls: &beforeCalls})
	f.registry.RegisterAction(&stubFactory{id: "after", calls: &afterCalls})

	f.saveWorkflow(t, &models.Workflow{
		ID: "wf-delay", Name: "Delayed follow up", Status: models.WorkflowStatusActive,
		TriggerType: models.TriggerJobCompleted,
		Steps: []models.Step{
			{ID: "s1", Type: models.StepTypeAction, Position: 0, ActionType: "before"},
			{ID: "s2", Type: models.StepTypeDelay, Position: 1, DelayValue: 30, DelayUnit: models.DelayUnitMinutes},
			{ID: "s3", Type: models.StepTypeAction, Position: 2, ActionType: "after"},
		},
	})

	start := time.Now().UTC()

	logs, err := f.engine.OnTrigger(ctx, models.TriggerJobCompleted, map[string]any{"job": map[string]any{"id": "job-1"}})
	require.NoError(t, err)
	require.Len(t, logs, 1)

	log, err := f.persistence.ExecutionByID(ctx, logs[0].ID)
	require.NoError(t, err)

	// Parked: back to pending with a resume point, not sleeping anywhere.
	assert.Equal(t, models.ExecutionStatusPending, log.Status)
	assert.True(t, log.Suspended())
	assert.Equal(t, 2, log.ResumePosition)
	require.NotNil(t, log.ResumeAt)
	assert.WithinDuration(t, start.Add(30*time.Minute), *log.ResumeAt, 5*time.Second)
	assert.Equal(t, int32(1), beforeCalls.Load())
	assert.Equal(t, int32(0), afterCalls.Load())

	// Advance the clock past the resume point and sweep.
	future := start.Add(time.Hour)
	f.engine.now = func() time.Time { return future }

	sweeper := NewSweeper(f.persistence, f.engine, slog.New(slog.NewTextHandler(io.Discard, nil)), 0)
	sweeper.now = f.engine.now

	require.NoError(t, sweeper.Sweep(ctx))

	log, err = f.persistence.ExecutionByID(ctx, logs[0].ID)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCompleted, log.Status)
	assert.Nil(t, log.ResumeAt)
	assert.Equal(t, int32(1), beforeCalls.Load(), "steps before the delay must not rerun")
	assert.Equal(t, int32(1), afterCalls.Load())
	require.Len(t, log.ActionsExecuted, 3)
	assert.Equal(t, "delay", log.ActionsExecuted[1].ActionType)
}

func TestSweepSkipsFutureResumes(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	var calls atomic.Int32

	f.registry.RegisterAction(&stubFactory{id: "after", calls: &calls})

	f.saveWorkflow(t, &models.Workflow{
		ID: "wf-delay", Name: "Delayed follow up", Status: models.WorkflowStatusActive,
		TriggerType: models.TriggerJobCompleted,
		Steps: []models.Step{
			{ID: "s1", Type: models.StepTypeDelay, Position: 0, DelayValue: 1, DelayUnit: models.DelayUnitDays},
			{ID: "s2", Type: models.StepTypeAction, Position: 1, ActionType: "after"},
		},
	})

	logs, err := f.engine.OnTrigger(ctx, models.TriggerJobCompleted, map[string]any{"job": map[string]any{"id": "job-1"}})
	require.NoError(t, err)
	require.Len(t, logs, 1)

	sweeper := NewSweeper(f.persistence, f.engine, slog.New(slog.NewTextHandler(io.Discard, nil)), 0)
	require.NoError(t, sweeper.Sweep(ctx))

	log, err := f.persistence.ExecutionByID(ctx, logs[0].ID)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusPending, log.Status, "resume point in the future must stay parked")
	assert.Equal(t, int32(0), calls.Load())
}

func TestRunExecutionLosesClaimQuietly(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	f.saveWorkflow(t, thankYouWorkflow())

	log := &models.ExecutionLog{
		ID:          "exec-claimed",
		WorkflowID:  "wf-thanks",
		TriggerType: models.TriggerJobCompleted,
		TriggerData: completedJobData(),
		Status:      models.ExecutionStatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, f.persistence.CreateExecution(ctx, log))

	claimed, err := f.persistence.ClaimExecution(ctx, log.ID, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, claimed)

	// Someone else holds the claim; the engine must not run or error.
	require.NoError(t, f.engine.RunExecution(ctx, log.ID))
	assert.Empty(t, f.mailer.sent)
}
