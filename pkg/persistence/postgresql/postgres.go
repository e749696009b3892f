// Package postgresql provides PostgreSQL persistence for workflows and
// execution logs.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq" // postgres driver

	"github.com/jobdeck/automata/pkg/models"
	"github.com/jobdeck/automata/pkg/persistence"
	"github.com/jobdeck/automata/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db            *sql.DB
	logger        *slog.Logger
	workflowRepo  *WorkflowRepository
	executionRepo *ExecutionRepository
}

// NewPersistence connects, migrates and returns a PostgreSQL persistence
// layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:            database,
		logger:        logger,
		workflowRepo:  NewWorkflowRepository(database, logger),
		executionRepo: NewExecutionRepository(database, logger),
	}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	return p.workflowRepo.GetAll(ctx)
}

func (p *Persistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	return p.workflowRepo.GetByID(ctx, id)
}

func (p *Persistence) WorkflowsByTrigger(ctx context.Context, trigger models.TriggerType) ([]*models.Workflow, error) {
	return p.workflowRepo.GetActiveByTrigger(ctx, trigger)
}

func (p *Persistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	return p.workflowRepo.Save(ctx, workflow)
}

func (p *Persistence) CreateExecution(ctx context.Context, log *models.ExecutionLog) error {
	return p.executionRepo.Create(ctx, log)
}

func (p *Persistence) ExecutionByID(ctx context.Context, id string) (*models.ExecutionLog, error) {
	return p.executionRepo.GetByID(ctx, id)
}

func (p *Persistence) SaveExecution(ctx context.Context, log *models.ExecutionLog) error {
	return p.executionRepo.Save(ctx, log)
}

func (p *Persistence) ClaimExecution(ctx context.Context, id string, at time.Time) (bool, error) {
	return p.executionRepo.Claim(ctx, id, at)
}

func (p *Persistence) PendingExecutions(ctx context.Context, resumeDue, staleBefore time.Time) ([]*models.ExecutionLog, error) {
	return p.executionRepo.Pending(ctx, resumeDue, staleBefore)
}

func (p *Persistence) Executions(ctx context.Context, filter persistence.ExecutionFilter) ([]*models.ExecutionLog, error) {
	return p.executionRepo.List(ctx, filter)
}
