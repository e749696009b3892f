// Package file provides file-based persistence for workflows and execution
// logs. It backs local development and tests; claim atomicity is provided
// by an in-process mutex instead of a conditional UPDATE.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jobdeck/automata/pkg/models"
	"github.com/jobdeck/automata/pkg/persistence"
)

const dirPerm = 0o755

// Persistence implements persistence.Persistence on the file system.
type Persistence struct {
	root string
	mu   sync.Mutex
}

// NewPersistence creates a file persistence layer rooted at root. A
// "file://" prefix is stripped so database URLs can be passed unchanged.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{root: cleanRoot}
}

// Close performs any necessary cleanup; nothing to do for files.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) workflowPath(id string) string {
	return filepath.Join(fp.root, "workflows", id+".json")
}

func (fp *Persistence) executionPath(id string) string {
	return filepath.Join(fp.root, "executions", id+".json")
}

func (fp *Persistence) SaveWorkflow(_ context.Context, workflow *models.Workflow) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	return writeJSON(fp.workflowPath(workflow.ID), workflow)
}

func (fp *Persistence) WorkflowByID(_ context.Context, id string) (*models.Workflow, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	workflow := &models.Workflow{}

	err := readJSON(fp.workflowPath(id), workflow)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	return workflow, nil
}

func (fp *Persistence) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	return fp.loadWorkflows()
}

func (fp *Persistence) WorkflowsByTrigger(_ context.Context, trigger models.TriggerType) ([]*models.Workflow, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	all, err := fp.loadWorkflows()
	if err != nil {
		return nil, err
	}

	var matched []*models.Workflow

	for _, workflow := range all {
		if workflow.IsActive() && workflow.TriggerType == trigger {
			matched = append(matched, workflow)
		}
	}

	return matched, nil
}

func (fp *Persistence) loadWorkflows() ([]*models.Workflow, error) {
	entries, err := listJSON(filepath.Join(fp.root, "workflows"))
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(entries))

	for _, path := range entries {
		workflow := &models.Workflow{}

		err = readJSON(path, workflow)
		if err != nil {
			return nil, fmt.Errorf("failed to read workflow %s: %w", path, err)
		}

		workflows = append(workflows, workflow)
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
	})

	return workflows, nil
}

func (fp *Persistence) CreateExecution(_ context.Context, log *models.ExecutionLog) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	if _, err := os.Stat(fp.executionPath(log.ID)); err == nil {
		return persistence.NewExecutionError("Create", log.ID, persistence.ErrExecutionExists)
	}

	return writeJSON(fp.executionPath(log.ID), log)
}

func (fp *Persistence) SaveExecution(_ context.Context, log *models.ExecutionLog) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	if _, err := os.Stat(fp.executionPath(log.ID)); err != nil {
		return persistence.NewExecutionError("Save", log.ID, persistence.ErrExecutionNotFound)
	}

	return writeJSON(fp.executionPath(log.ID), log)
}

func (fp *Persistence) ExecutionByID(_ context.Context, id string) (*models.ExecutionLog, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	return fp.readExecution(id)
}

func (fp *Persistence) readExecution(id string) (*models.ExecutionLog, error) {
	log := &models.ExecutionLog{}

	err := readJSON(fp.executionPath(id), log)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	return log, nil
}

// ClaimExecution performs the pending->running transition under the
// package mutex: read, check, write is atomic relative to other claimants
// in this process.
func (fp *Persistence) ClaimExecution(_ context.Context, id string, at time.Time) (bool, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	log, err := fp.readExecution(id)
	if err != nil {
		return false, err
	}

	if log.Status != models.ExecutionStatusPending {
		return false, nil
	}

	log.Status = models.ExecutionStatusRunning
	log.StartedAt = &at

	err = writeJSON(fp.executionPath(id), log)
	if err != nil {
		return false, persistence.NewExecutionError("Claim", id, err)
	}

	return true, nil
}

func (fp *Persistence) PendingExecutions(_ context.Context, resumeDue, staleBefore time.Time) ([]*models.ExecutionLog, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	all, err := fp.loadExecutions()
	if err != nil {
		return nil, err
	}

	var due []*models.ExecutionLog

	for _, log := range all {
		if log.Status != models.ExecutionStatusPending {
			continue
		}

		if log.ResumeAt != nil {
			if !log.ResumeAt.After(resumeDue) {
				due = append(due, log)
			}
		} else if !log.CreatedAt.After(staleBefore) {
			due = append(due, log)
		}
	}

	return due, nil
}

func (fp *Persistence) Executions(_ context.Context, filter persistence.ExecutionFilter) ([]*models.ExecutionLog, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	all, err := fp.loadExecutions()
	if err != nil {
		return nil, err
	}

	var matched []*models.ExecutionLog

	for _, log := range all {
		if filter.WorkflowID != "" && log.WorkflowID != filter.WorkflowID {
			continue
		}

		if filter.Status != "" && log.Status != filter.Status {
			continue
		}

		if !filter.IncludeTests && log.IsTest {
			continue
		}

		matched = append(matched, log)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	return matched, nil
}

func (fp *Persistence) loadExecutions() ([]*models.ExecutionLog, error) {
	entries, err := listJSON(filepath.Join(fp.root, "executions"))
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	logs := make([]*models.ExecutionLog, 0, len(entries))

	for _, path := range entries {
		log := &models.ExecutionLog{}

		err = readJSON(path, log)
		if err != nil {
			return nil, fmt.Errorf("failed to read execution %s: %w", path, err)
		}

		logs = append(logs, log)
	}

	return logs, nil
}

func listJSON(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, err
	}

	var paths []string

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}

	return paths, nil
}

func readJSON(path string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return json.Unmarshal(raw, out)
}

func writeJSON(path string, value any) error {
	err := os.MkdirAll(filepath.Dir(path), dirPerm)
	if err != nil {
		return err
	}

	raw, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, raw, 0o644)
}
