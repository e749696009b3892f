// Package mocks provides testify mocks of the core interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/jobdeck/automata/pkg/models"
	"github.com/jobdeck/automata/pkg/persistence"
)

// MockPersistence is a mock implementation of persistence.Persistence.
type MockPersistence struct {
	mock.Mock
}

func (m *MockPersistence) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockPersistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockPersistence) WorkflowsByTrigger(ctx context.Context, trigger models.TriggerType) ([]*models.Workflow, error) {
	args := m.Called(ctx, trigger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockPersistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockPersistence) CreateExecution(ctx context.Context, log *models.ExecutionLog) error {
	args := m.Called(ctx, log)

	return args.Error(0)
}

func (m *MockPersistence) ExecutionByID(ctx context.Context, id string) (*models.ExecutionLog, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.ExecutionLog), args.Error(1)
}

func (m *MockPersistence) SaveExecution(ctx context.Context, log *models.ExecutionLog) error {
	args := m.Called(ctx, log)

	return args.Error(0)
}

func (m *MockPersistence) ClaimExecution(ctx context.Context, id string, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)

	return args.Bool(0), args.Error(1)
}

func (m *MockPersistence) PendingExecutions(ctx context.Context, resumeDue, staleBefore time.Time) ([]*models.ExecutionLog, error) {
	args := m.Called(ctx, resumeDue, staleBefore)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.ExecutionLog), args.Error(1)
}

func (m *MockPersistence) Executions(ctx context.Context, filter persistence.ExecutionFilter) ([]*models.ExecutionLog, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.ExecutionLog), args.Error(1)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

var _ persistence.Persistence = (*MockPersistence)(nil)
