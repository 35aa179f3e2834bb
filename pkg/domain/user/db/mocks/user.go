// Package mocks provides a hand-written mock of the user repository
// for testing.
package mocks

import (
	"context"
	"errors"

	"github.com/analytical-platform/controlpanel/pkg/domain"
)

type UserDBMock struct {
	Impl struct {
		Get      func(ctx context.Context, sub string) (domain.User, error)
		Find     func(ctx context.Context) ([]domain.User, error)
		Register func(ctx context.Context, user domain.User) error
		Update   func(ctx context.Context, user domain.User) error
		Delete   func(ctx context.Context, sub string) error
	}
	Calls struct {
		Get      []string
		Find     int
		Register []domain.User
		Update   []domain.User
		Delete   []string
	}
}

func NewUserDBMock() *UserDBMock {
	return &UserDBMock{}
}

func (m *UserDBMock) Get(ctx context.Context, sub string) (domain.User, error) {
	m.Calls.Get = append(m.Calls.Get, sub)
	if m.Impl.Get == nil {
		return domain.User{}, errors.New("[MOCK] Get not implemented")
	}
	return m.Impl.Get(ctx, sub)
}

func (m *UserDBMock) Find(ctx context.Context) ([]domain.User, error) {
	m.Calls.Find++
	if m.Impl.Find == nil {
		return nil, errors.New("[MOCK] Find not implemented")
	}
	return m.Impl.Find(ctx)
}

func (m *UserDBMock) Register(ctx context.Context, user domain.User) error {
	m.Calls.Register = append(m.Calls.Register, user)
	if m.Impl.Register == nil {
		return errors.New("[MOCK] Register not implemented")
	}
	return m.Impl.Register(ctx, user)
}

func (m *UserDBMock) Update(ctx context.Context, user domain.User) error {
	m.Calls.Update = append(m.Calls.Update, user)
	if m.Impl.Update == nil {
		return errors.New("[MOCK] Update not implemented")
	}
	return m.Impl.Update(ctx, user)
}

func (m *UserDBMock) Delete(ctx context.Context, sub string) error {
	m.Calls.Delete = append(m.Calls.Delete, sub)
	if m.Impl.Delete == nil {
		return errors.New("[MOCK] Delete not implemented")
	}
	return m.Impl.Delete(ctx, sub)
}
