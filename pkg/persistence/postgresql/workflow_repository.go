package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jobdeck/automata/pkg/models"
	"github.com/jobdeck/automata/pkg/persistence"
)

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

const workflowColumns = `
	id, name, description, status, trigger_type,
	condition_groups, steps, owner, created_at, updated_at
`

// Save upserts a workflow.
func (wr *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	groupsJSON, err := json.Marshal(workflow.ConditionGroups)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID,
			fmt.Errorf("failed to marshal condition groups: %w", err))
	}

	stepsJSON, err := json.Marshal(workflow.Steps)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID,
			fmt.Errorf("failed to marshal steps: %w", err))
	}

	query := `
		INSERT INTO workflows (` + workflowColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			trigger_type = EXCLUDED.trigger_type,
			condition_groups = EXCLUDED.condition_groups,
			steps = EXCLUDED.steps,
			owner = EXCLUDED.owner,
			updated_at = EXCLUDED.updated_at
	`

	_, err = wr.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.Name,
		workflow.Description,
		workflow.Status,
		workflow.TriggerType,
		groupsJSON,
		stepsJSON,
		workflow.Owner,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

// GetByID returns a workflow by its id.
func (wr *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1`

	workflow, err := wr.scanWorkflow(wr.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	return workflow, nil
}

// GetAll returns every workflow.
func (wr *WorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows ORDER BY created_at`

	return wr.queryWorkflows(ctx, query)
}

// GetActiveByTrigger returns active workflows whose trigger type matches.
// Inactive workflows are filtered in SQL so the engine never sees them.
func (wr *WorkflowRepository) GetActiveByTrigger(ctx context.Context, trigger models.TriggerType) ([]*models.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE status = 'active' AND trigger_type = $1
		ORDER BY created_at
	`

	return wr.queryWorkflows(ctx, query, trigger)
}

func (wr *WorkflowRepository) queryWorkflows(ctx context.Context, query string, args ...any) ([]*models.Workflow, error) {
	rows, err := wr.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			wr.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	var workflows []*models.Workflow

	for rows.Next() {
		workflow, err := wr.scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

func (wr *WorkflowRepository) scanWorkflow(scanner interface {
	Scan(dest ...any) error
}) (*models.Workflow, error) {
	var (
		workflow             models.Workflow
		groupsJSON, stepsJSON []byte
	)

	err := scanner.Scan(
		&workflow.ID,
		&workflow.Name,
		&workflow.Description,
		&workflow.Status,
		&workflow.TriggerType,
		&groupsJSON,
		&stepsJSON,
		&workflow.Owner,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if groupsJSON != nil {
		err = json.Unmarshal(groupsJSON, &workflow.ConditionGroups)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal condition groups: %w", err)
		}
	}

	if stepsJSON != nil {
		err = json.Unmarshal(stepsJSON, &workflow.Steps)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
		}
	}

	return &workflow, nil
}
