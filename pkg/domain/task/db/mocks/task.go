package mocks

import (
	"context"
	"errors"

	"github.com/analytical-platform/controlpanel/pkg/domain"
	ktask "github.com/analytical-platform/controlpanel/pkg/domain/task/db"
)

type TaskDBMock struct {
	Impl struct {
		Get         func(ctx context.Context, id string) (domain.Task, error)
		Find        func(ctx context.Context, query ktask.Query) ([]domain.Task, error)
		Register    func(ctx context.Context, task domain.Task) error
		Complete    func(ctx context.Context, id string) error
		Cancel      func(ctx context.Context, id string) error
		MarkRetried func(ctx context.Context, id string) error
	}
	Calls struct {
		Get         []string
		Find        []ktask.Query
		Register    []domain.Task
		Complete    []string
		Cancel      []string
		MarkRetried []string
	}
}

func NewTaskDBMock() *TaskDBMock {
	return &TaskDBMock{}
}

func (m *TaskDBMock) Get(ctx context.Context, id string) (domain.Task, error) {
	m.Calls.Get = append(m.Calls.Get, id)
	if m.Impl.Get == nil {
		return domain.Task{}, errors.New("[MOCK] Get not implemented")
	}
	return m.Impl.Get(ctx, id)
}

func (m *TaskDBMock) Find(ctx context.Context, query ktask.Query) ([]domain.Task, error) {
	m.Calls.Find = append(m.Calls.Find, query)
	if m.Impl.Find == nil {
		return nil, errors.New("[MOCK] Find not implemented")
	}
	return m.Impl.Find(ctx, query)
}

func (m *TaskDBMock) Register(ctx context.Context, task domain.Task) error {
	m.Calls.Register = append(m.Calls.Register, task)
	if m.Impl.Register == nil {
		return errors.New("[MOCK] Register not implemented")
	}
	return m.Impl.Register(ctx, task)
}

func (m *TaskDBMock) Complete(ctx context.Context, id string) error {
	m.Calls.Complete = append(m.Calls.Complete, id)
	if m.Impl.Complete == nil {
		return errors.New("[MOCK] Complete not implemented")
	}
	return m.Impl.Complete(ctx, id)
}

func (m *TaskDBMock) Cancel(ctx context.Context, id string) error {
	m.Calls.Cancel = append(m.Calls.Cancel, id)
	if m.Impl.Cancel == nil {
		return errors.New("[MOCK] Cancel not implemented")
	}
	return m.Impl.Cancel(ctx, id)
}

func (m *TaskDBMock) MarkRetried(ctx context.Context, id string) error {
	m.Calls.MarkRetried = append(m.Calls.MarkRetried, id)
	if m.Impl.MarkRetried == nil {
		return errors.New("[MOCK] MarkRetried not implemented")
	}
	return m.Impl.MarkRetried(ctx, id)
}
