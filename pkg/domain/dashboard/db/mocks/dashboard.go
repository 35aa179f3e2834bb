package mocks

import (
	"context"
	"errors"

	"github.com/analytical-platform/controlpanel/pkg/domain"
)

type DashboardDBMock struct {
	Impl struct {
		Get             func(ctx context.Context, id int) (domain.Dashboard, error)
		GetByExternalID func(ctx context.Context, externalID string) (domain.Dashboard, error)
		FindVisibleTo   func(ctx context.Context, email string) ([]domain.Dashboard, error)
		Register        func(ctx context.Context, dashboard domain.Dashboard) (domain.Dashboard, error)
		Delete          func(ctx context.Context, id int) error
		AddViewer       func(ctx context.Context, id int, email string) error
		RemoveViewer    func(ctx context.Context, id int, email string) error
	}
	Calls struct {
		AddViewer    []string
		RemoveViewer []string
	}
}

func NewDashboardDBMock() *DashboardDBMock {
	return &DashboardDBMock{}
}

func (m *DashboardDBMock) Get(ctx context.Context, id int) (domain.Dashboard, error) {
	if m.Impl.Get == nil {
		return domain.Dashboard{}, errors.New("[MOCK] Get not implemented")
	}
	return m.Impl.Get(ctx, id)
}

func (m *DashboardDBMock) GetByExternalID(ctx context.Context, externalID string) (domain.Dashboard, error) {
	if m.Impl.GetByExternalID == nil {
		return domain.Dashboard{}, errors.New("[MOCK] GetByExternalID not implemented")
	}
	return m.Impl.GetByExternalID(ctx, externalID)
}

func (m *DashboardDBMock) FindVisibleTo(ctx context.Context, email string) ([]domain.Dashboard, error) {
	if m.Impl.FindVisibleTo == nil {
		return nil, errors.New("[MOCK] FindVisibleTo not implemented")
	}
	return m.Impl.FindVisibleTo(ctx, email)
}

func (m *DashboardDBMock) Register(ctx context.Context, dashboard domain.Dashboard) (domain.Dashboard, error) {
	if m.Impl.Register == nil {
		return domain.Dashboard{}, errors.New("[MOCK] Register not implemented")
	}
	return m.Impl.Register(ctx, dashboard)
}

func (m *DashboardDBMock) Delete(ctx context.Context, id int) error {
	if m.Impl.Delete == nil {
		return errors.New("[MOCK] Delete not implemented")
	}
	return m.Impl.Delete(ctx, id)
}

func (m *DashboardDBMock) AddViewer(ctx context.Context, id int, email string) error {
	m.Calls.AddViewer = append(m.Calls.AddViewer, email)
	if m.Impl.AddViewer == nil {
		return errors.New("[MOCK] AddViewer not implemented")
	}
	return m.Impl.AddViewer(ctx, id, email)
}

func (m *DashboardDBMock) RemoveViewer(ctx context.Context, id int, email string) error {
	m.Calls.RemoveViewer = append(m.Calls.RemoveViewer, email)
	if m.Impl.RemoveViewer == nil {
		return errors.New("[MOCK] RemoveViewer not implemented")
	}
	return m.Impl.RemoveViewer(ctx, id, email)
}
