// Package persistence provides the data storage abstraction for workflows
// and execution logs.
package persistence

import (
	"context"
	"time"

	"github.com/jobdeck/automata/pkg/models"
)

// ExecutionFilter narrows execution log queries.
type ExecutionFilter struct {
	WorkflowID   string
	Status       models.ExecutionStatus
	IncludeTests bool
	Limit        int
}

// Persistence is the storage contract the engine, API and sweeper share.
//
// ClaimExecution is the serialization point of the whole system: the
// pending->running transition must be atomic so a duplicate dispatch or an
// overlapping sweep can never double-execute one log's side effects.
type Persistence interface {
	Workflows(ctx context.Context) ([]*models.Workflow, error)
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	// WorkflowsByTrigger returns only active workflows for the trigger type.
	WorkflowsByTrigger(ctx context.Context, trigger models.TriggerType) ([]*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error

	CreateExecution(ctx context.Context, log *models.ExecutionLog) error
	ExecutionByID(ctx context.Context, id string) (*models.ExecutionLog, error)
	SaveExecution(ctx context.Context, log *models.ExecutionLog) error
	// ClaimExecution atomically moves a pending execution to running.
	// Exactly one concurrent claimant wins; the rest get claimed=false.
	ClaimExecution(ctx context.Context, id string, at time.Time) (claimed bool, err error)
	// PendingExecutions returns pending logs whose delay resume is due, plus
	// pending logs without a resume point created before staleBefore
	// (dropped triggers the sweeper should requeue).
	PendingExecutions(ctx context.Context, resumeDue, staleBefore time.Time) ([]*models.ExecutionLog, error)
	Executions(ctx context.Context, filter ExecutionFilter) ([]*models.ExecutionLog, error)

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
