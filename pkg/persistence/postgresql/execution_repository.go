package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jobdeck/automata/pkg/models"
	"github.com/jobdeck/automata/pkg/persistence"
)

// ExecutionRepository handles execution-log database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

const executionColumns = `
	id, workflow_id, workflow_name, trigger_type, trigger_data, status,
	is_test, skipped, actions_executed, resume_position, resume_at,
	error_message, created_at, started_at, completed_at
`

// Create inserts a new execution log.
func (er *ExecutionRepository) Create(ctx context.Context, log *models.ExecutionLog) error {
	triggerDataJSON, actionsJSON, err := marshalExecution(log)
	if err != nil {
		return persistence.NewExecutionError("Create", log.ID, err)
	}

	query := `
		INSERT INTO execution_logs (` + executionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err = er.db.ExecContext(ctx, query,
		log.ID,
		log.WorkflowID,
		log.WorkflowName,
		log.TriggerType,
		triggerDataJSON,
		log.Status,
		log.IsTest,
		log.Skipped,
		actionsJSON,
		log.ResumePosition,
		log.ResumeAt,
		log.ErrorMessage,
		log.CreatedAt,
		log.StartedAt,
		log.CompletedAt,
	)
	if err != nil {
		return persistence.NewExecutionError("Create", log.ID, err)
	}

	return nil
}

// Save updates an existing execution log. TriggerData is immutable once
// written and is deliberately not part of the update set.
func (er *ExecutionRepository) Save(ctx context.Context, log *models.ExecutionLog) error {
	_, actionsJSON, err := marshalExecution(log)
	if err != nil {
		return persistence.NewExecutionError("Save", log.ID, err)
	}

	query := `
		UPDATE execution_logs SET
			status = $2,
			skipped = $3,
			actions_executed = $4,
			resume_position = $5,
			resume_at = $6,
			error_message = $7,
			started_at = $8,
			completed_at = $9
		WHERE id = $1
	`

	result, err := er.db.ExecContext(ctx, query,
		log.ID,
		log.Status,
		log.Skipped,
		actionsJSON,
		log.ResumePosition,
		log.ResumeAt,
		log.ErrorMessage,
		log.StartedAt,
		log.CompletedAt,
	)
	if err != nil {
		return persistence.NewExecutionError("Save", log.ID, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return persistence.NewExecutionError("Save", log.ID, persistence.ErrExecutionNotFound)
	}

	return nil
}

// Claim atomically transitions a pending execution to running. The
// conditional UPDATE is the claim: exactly one of any number of concurrent
// claimants sees an affected row.
func (er *ExecutionRepository) Claim(ctx context.Context, id string, at time.Time) (bool, error) {
	query := `
		UPDATE execution_logs
		SET status = $2, started_at = $3
		WHERE id = $1 AND status = $4
	`

	result, err := er.db.ExecContext(ctx, query,
		id, models.ExecutionStatusRunning, at, models.ExecutionStatusPending)
	if err != nil {
		return false, persistence.NewExecutionError("Claim", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, persistence.NewExecutionError("Claim", id, err)
	}

	return affected == 1, nil
}

// GetByID returns an execution log by its id.
func (er *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.ExecutionLog, error) {
	query := `SELECT ` + executionColumns + ` FROM execution_logs WHERE id = $1`

	log, err := er.scanExecution(er.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	return log, nil
}

// Pending returns pending executions the sweeper should pick up: suspended
// runs whose resume time is due, and unstarted runs created before
// staleBefore.
func (er *ExecutionRepository) Pending(ctx context.Context, resumeDue, staleBefore time.Time) ([]*models.ExecutionLog, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM execution_logs
		WHERE status = 'pending'
		  AND (
			(resume_at IS NOT NULL AND resume_at <= $1)
			OR (resume_at IS NULL AND created_at <= $2)
		  )
		ORDER BY created_at
	`

	return er.queryExecutions(ctx, query, resumeDue, staleBefore)
}

// List returns execution logs matching the filter, newest first.
func (er *ExecutionRepository) List(ctx context.Context, filter persistence.ExecutionFilter) ([]*models.ExecutionLog, error) {
	query := `SELECT ` + executionColumns + ` FROM execution_logs WHERE 1=1`

	var args []any

	if filter.WorkflowID != "" {
		args = append(args, filter.WorkflowID)
		query += fmt.Sprintf(" AND workflow_id = $%d", len(args))
	}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	if !filter.IncludeTests {
		query += " AND is_test = FALSE"
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	return er.queryExecutions(ctx, query, args...)
}

func (er *ExecutionRepository) queryExecutions(ctx context.Context, query string, args ...any) ([]*models.ExecutionLog, error) {
	rows, err := er.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query execution logs: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			er.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	var logs []*models.ExecutionLog

	for rows.Next() {
		log, err := er.scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution log: %w", err)
		}

		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating execution logs: %w", err)
	}

	return logs, nil
}

func (er *ExecutionRepository) scanExecution(scanner interface {
	Scan(dest ...any) error
}) (*models.ExecutionLog, error) {
	var (
		log                         models.ExecutionLog
		triggerDataJSON, actionsJSON []byte
	)

	err := scanner.Scan(
		&log.ID,
		&log.WorkflowID,
		&log.WorkflowName,
		&log.TriggerType,
		&triggerDataJSON,
		&log.Status,
		&log.IsTest,
		&log.Skipped,
		&actionsJSON,
		&log.ResumePosition,
		&log.ResumeAt,
		&log.ErrorMessage,
		&log.CreatedAt,
		&log.StartedAt,
		&log.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	log.TriggerData = make(map[string]any)

	if triggerDataJSON != nil {
		err = json.Unmarshal(triggerDataJSON, &log.TriggerData)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal trigger data: %w", err)
		}
	}

	if actionsJSON != nil {
		err = json.Unmarshal(actionsJSON, &log.ActionsExecuted)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal actions executed: %w", err)
		}
	}

	return &log, nil
}

func marshalExecution(log *models.ExecutionLog) (triggerDataJSON, actionsJSON []byte, err error) {
	triggerDataJSON, err = json.Marshal(log.TriggerData)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal trigger data: %w", err)
	}

	if log.ActionsExecuted == nil {
		actionsJSON = []byte("[]")
	} else {
		actionsJSON, err = json.Marshal(log.ActionsExecuted)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal actions executed: %w", err)
		}
	}

	return triggerDataJSON, actionsJSON, nil
}
