package mocks

import (
	"context"
	"errors"

	"github.com/analytical-platform/controlpanel/pkg/domain"
)

type ToolDBMock struct {
	Impl struct {
		GetRelease            func(ctx context.Context, id int) (domain.ToolRelease, error)
		GetReleaseByChart     func(ctx context.Context, chart string, version string) (domain.ToolRelease, error)
		FindReleases          func(ctx context.Context) ([]domain.ToolRelease, error)
		RegisterRelease       func(ctx context.Context, release domain.ToolRelease) (domain.ToolRelease, error)
		DeleteRelease         func(ctx context.Context, id int) error
		RegisterDeployment    func(ctx context.Context, deployment domain.ToolDeployment) (domain.ToolDeployment, error)
		LatestDeployment      func(ctx context.Context, userSub string, chart string) (domain.ToolDeployment, error)
		FindDeploymentsByUser func(ctx context.Context, userSub string) ([]domain.ToolDeployment, error)
		DeleteDeployment      func(ctx context.Context, id int) error
	}
	Calls struct {
		RegisterDeployment []domain.ToolDeployment
		DeleteDeployment   []int
	}
}

func NewToolDBMock() *ToolDBMock {
	return &ToolDBMock{}
}

func (m *ToolDBMock) GetRelease(ctx context.Context, id int) (domain.ToolRelease, error) {
	if m.Impl.GetRelease == nil {
		return domain.ToolRelease{}, errors.New("[MOCK] GetRelease not implemented")
	}
	return m.Impl.GetRelease(ctx, id)
}

func (m *ToolDBMock) GetReleaseByChart(ctx context.Context, chart string, version string) (domain.ToolRelease, error) {
	if m.Impl.GetReleaseByChart == nil {
		return domain.ToolRelease{}, errors.New("[MOCK] GetReleaseByChart not implemented")
	}
	return m.Impl.GetReleaseByChart(ctx, chart, version)
}

func (m *ToolDBMock) FindReleases(ctx context.Context) ([]domain.ToolRelease, error) {
	if m.Impl.FindReleases == nil {
		return nil, errors.New("[MOCK] FindReleases not implemented")
	}
	return m.Impl.FindReleases(ctx)
}

func (m *ToolDBMock) RegisterRelease(ctx context.Context, release domain.ToolRelease) (domain.ToolRelease, error) {
	if m.Impl.RegisterRelease == nil {
		return domain.ToolRelease{}, errors.New("[MOCK] RegisterRelease not implemented")
	}
	return m.Impl.RegisterRelease(ctx, release)
}

func (m *ToolDBMock) DeleteRelease(ctx context.Context, id int) error {
	if m.Impl.DeleteRelease == nil {
		return errors.New("[MOCK] DeleteRelease not implemented")
	}
	return m.Impl.DeleteRelease(ctx, id)
}

func (m *ToolDBMock) RegisterDeployment(ctx context.Context, deployment domain.ToolDeployment) (domain.ToolDeployment, error) {
	m.Calls.RegisterDeployment = append(m.Calls.RegisterDeployment, deployment)
	if m.Impl.RegisterDeployment == nil {
		return domain.ToolDeployment{}, errors.New("[MOCK] RegisterDeployment not implemented")
	}
	return m.Impl.RegisterDeployment(ctx, deployment)
}

func (m *ToolDBMock) LatestDeployment(ctx context.Context, userSub string, chart string) (domain.ToolDeployment, error) {
	if m.Impl.LatestDeployment == nil {
		return domain.ToolDeployment{}, errors.New("[MOCK] LatestDeployment not implemented")
	}
	return m.Impl.LatestDeployment(ctx, userSub, chart)
}

func (m *ToolDBMock) FindDeploymentsByUser(ctx context.Context, userSub string) ([]domain.ToolDeployment, error) {
	if m.Impl.FindDeploymentsByUser == nil {
		return nil, errors.New("[MOCK] FindDeploymentsByUser not implemented")
	}
	return m.Impl.FindDeploymentsByUser(ctx, userSub)
}

func (m *ToolDBMock) DeleteDeployment(ctx context.Context, id int) error {
	m.Calls.DeleteDeployment = append(m.Calls.DeleteDeployment, id)
	if m.Impl.DeleteDeployment == nil {
		return errors.New("[MOCK] DeleteDeployment not implemented")
	}
	return m.Impl.DeleteDeployment(ctx, id)
}
