package mocks

import (
	"context"
	"errors"

	"github.com/analytical-platform/controlpanel/pkg/domain"
)

type PolicyDBMock struct {
	Impl struct {
		Get          func(ctx context.Context, id int) (domain.ManagedPolicy, error)
		GetByName    func(ctx context.Context, name string) (domain.ManagedPolicy, error)
		Find         func(ctx context.Context) ([]domain.ManagedPolicy, error)
		Register     func(ctx context.Context, policy domain.ManagedPolicy) (domain.ManagedPolicy, error)
		Delete       func(ctx context.Context, id int) error
		Members      func(ctx context.Context, policyID int) ([]domain.User, error)
		AddMember    func(ctx context.Context, policyID int, userSub string) error
		RemoveMember func(ctx context.Context, policyID int, userSub string) error
	}
	Calls struct {
		AddMember    []string
		RemoveMember []string
	}
}

func NewPolicyDBMock() *PolicyDBMock {
	return &PolicyDBMock{}
}

func (m *PolicyDBMock) Get(ctx context.Context, id int) (domain.ManagedPolicy, error) {
	if m.Impl.Get == nil {
		return domain.ManagedPolicy{}, errors.New("[MOCK] Get not implemented")
	}
	return m.Impl.Get(ctx, id)
}

func (m *PolicyDBMock) GetByName(ctx context.Context, name string) (domain.ManagedPolicy, error) {
	if m.Impl.GetByName == nil {
		return domain.ManagedPolicy{}, errors.New("[MOCK] GetByName not implemented")
	}
	return m.Impl.GetByName(ctx, name)
}

func (m *PolicyDBMock) Find(ctx context.Context) ([]domain.ManagedPolicy, error) {
	if m.Impl.Find == nil {
		return nil, errors.New("[MOCK] Find not implemented")
	}
	return m.Impl.Find(ctx)
}

func (m *PolicyDBMock) Register(ctx context.Context, policy domain.ManagedPolicy) (domain.ManagedPolicy, error) {
	if m.Impl.Register == nil {
		return domain.ManagedPolicy{}, errors.New("[MOCK] Register not implemented")
	}
	return m.Impl.Register(ctx, policy)
}

func (m *PolicyDBMock) Delete(ctx context.Context, id int) error {
	if m.Impl.Delete == nil {
		return errors.New("[MOCK] Delete not implemented")
	}
	return m.Impl.Delete(ctx, id)
}

func (m *PolicyDBMock) Members(ctx context.Context, policyID int) ([]domain.User, error) {
	if m.Impl.Members == nil {
		return nil, errors.New("[MOCK] Members not implemented")
	}
	return m.Impl.Members(ctx, policyID)
}

func (m *PolicyDBMock) AddMember(ctx context.Context, policyID int, userSub string) error {
	m.Calls.AddMember = append(m.Calls.AddMember, userSub)
	if m.Impl.AddMember == nil {
		return errors.New("[MOCK] AddMember not implemented")
	}
	return m.Impl.AddMember(ctx, policyID, userSub)
}

func (m *PolicyDBMock) RemoveMember(ctx context.Context, policyID int, userSub string) error {
	m.Calls.RemoveMember = append(m.Calls.RemoveMember, userSub)
	if m.Impl.RemoveMember == nil {
		return errors.New("[MOCK] RemoveMember not implemented")
	}
	return m.Impl.RemoveMember(ctx, policyID, userSub)
}
