package mocks

import (
	"context"
	"errors"

	"github.com/analytical-platform/controlpanel/pkg/domain"
)

type AppDBMock struct {
	Impl struct {
		Get           func(ctx context.Context, id int) (domain.App, error)
		GetBySlug     func(ctx context.Context, slug string) (domain.App, error)
		Find          func(ctx context.Context) ([]domain.App, error)
		Register      func(ctx context.Context, app domain.App) (domain.App, error)
		Delete        func(ctx context.Context, id int) error
		Allowlists    func(ctx context.Context, appID int) ([]domain.AppIPAllowlist, error)
		SetAllowlists func(ctx context.Context, appID int, allowlists []domain.AppIPAllowlist) error
	}
	Calls struct {
		Get       []int
		GetBySlug []string
		Register  []domain.App
		Delete    []int
	}
}

func NewAppDBMock() *AppDBMock {
	return &AppDBMock{}
}

func (m *AppDBMock) Get(ctx context.Context, id int) (domain.App, error) {
	m.Calls.Get = append(m.Calls.Get, id)
	if m.Impl.Get == nil {
		return domain.App{}, errors.New("[MOCK] Get not implemented")
	}
	return m.Impl.Get(ctx, id)
}

func (m *AppDBMock) GetBySlug(ctx context.Context, slug string) (domain.App, error) {
	m.Calls.GetBySlug = append(m.Calls.GetBySlug, slug)
	if m.Impl.GetBySlug == nil {
		return domain.App{}, errors.New("[MOCK] GetBySlug not implemented")
	}
	return m.Impl.GetBySlug(ctx, slug)
}

func (m *AppDBMock) Find(ctx context.Context) ([]domain.App, error) {
	if m.Impl.Find == nil {
		return nil, errors.New("[MOCK] Find not implemented")
	}
	return m.Impl.Find(ctx)
}

func (m *AppDBMock) Register(ctx context.Context, app domain.App) (domain.App, error) {
	m.Calls.Register = append(m.Calls.Register, app)
	if m.Impl.Register == nil {
		return domain.App{}, errors.New("[MOCK] Register not implemented")
	}
	return m.Impl.Register(ctx, app)
}

func (m *AppDBMock) Delete(ctx context.Context, id int) error {
	m.Calls.Delete = append(m.Calls.Delete, id)
	if m.Impl.Delete == nil {
		return errors.New("[MOCK] Delete not implemented")
	}
	return m.Impl.Delete(ctx, id)
}

func (m *AppDBMock) Allowlists(ctx context.Context, appID int) ([]domain.AppIPAllowlist, error) {
	if m.Impl.Allowlists == nil {
		return nil, errors.New("[MOCK] Allowlists not implemented")
	}
	return m.Impl.Allowlists(ctx, appID)
}

func (m *AppDBMock) SetAllowlists(ctx context.Context, appID int, allowlists []domain.AppIPAllowlist) error {
	if m.Impl.SetAllowlists == nil {
		return errors.New("[MOCK] SetAllowlists not implemented")
	}
	return m.Impl.SetAllowlists(ctx, appID, allowlists)
}
