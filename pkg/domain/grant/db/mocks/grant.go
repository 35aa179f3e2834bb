package mocks

import (
	"context"
	"errors"

	"github.com/analytical-platform/controlpanel/pkg/domain"
)

type GrantDBMock struct {
	Impl struct {
		GetUserGrant           func(ctx context.Context, id int) (domain.UserBucketGrant, error)
		FindUserGrantsByBucket func(ctx context.Context, bucket string) ([]domain.UserBucketGrant, error)
		FindUserGrantsByUser   func(ctx context.Context, sub string) ([]domain.UserBucketGrant, error)
		RegisterUserGrant      func(ctx context.Context, grant domain.UserBucketGrant) (domain.UserBucketGrant, error)
		UpdateUserGrant        func(ctx context.Context, id int, level domain.AccessLevel, paths []string) (domain.UserBucketGrant, error)
		DeleteUserGrant        func(ctx context.Context, id int) error

		GetAppGrant           func(ctx context.Context, id int) (domain.AppBucketGrant, error)
		FindAppGrantsByBucket func(ctx context.Context, bucket string) ([]domain.AppBucketGrant, error)
		FindAppGrantsByApp    func(ctx context.Context, appID int) ([]domain.AppBucketGrant, error)
		RegisterAppGrant      func(ctx context.Context, grant domain.AppBucketGrant) (domain.AppBucketGrant, error)
		UpdateAppGrant        func(ctx context.Context, id int, level domain.AccessLevel, paths []string) (domain.AppBucketGrant, error)
		DeleteAppGrant        func(ctx context.Context, id int) error

		FindPolicyGrantsByBucket func(ctx context.Context, bucket string) ([]domain.PolicyBucketGrant, error)
		RegisterPolicyGrant      func(ctx context.Context, grant domain.PolicyBucketGrant) (domain.PolicyBucketGrant, error)
		DeletePolicyGrant        func(ctx context.Context, id int) error

		FindGrantsByBucket func(ctx context.Context, bucket string) ([]domain.Grant, error)
	}
	Calls struct {
		RegisterUserGrant []domain.UserBucketGrant
		UpdateUserGrant   []int
		DeleteUserGrant   []int
		RegisterAppGrant  []domain.AppBucketGrant
		DeleteAppGrant    []int
	}
}

func NewGrantDBMock() *GrantDBMock {
	return &GrantDBMock{}
}

func (m *GrantDBMock) GetUserGrant(ctx context.Context, id int) (domain.UserBucketGrant, error) {
	if m.Impl.GetUserGrant == nil {
		return domain.UserBucketGrant{}, errors.New("[MOCK] GetUserGrant not implemented")
	}
	return m.Impl.GetUserGrant(ctx, id)
}

func (m *GrantDBMock) FindUserGrantsByBucket(ctx context.Context, bucket string) ([]domain.UserBucketGrant, error) {
	if m.Impl.FindUserGrantsByBucket == nil {
		return nil, errors.New("[MOCK] FindUserGrantsByBucket not implemented")
	}
	return m.Impl.FindUserGrantsByBucket(ctx, bucket)
}

func (m *GrantDBMock) FindUserGrantsByUser(ctx context.Context, sub string) ([]domain.UserBucketGrant, error) {
	if m.Impl.FindUserGrantsByUser == nil {
		return nil, errors.New("[MOCK] FindUserGrantsByUser not implemented")
	}
	return m.Impl.FindUserGrantsByUser(ctx, sub)
}

func (m *GrantDBMock) RegisterUserGrant(ctx context.Context, grant domain.UserBucketGrant) (domain.UserBucketGrant, error) {
	m.Calls.RegisterUserGrant = append(m.Calls.RegisterUserGrant, grant)
	if m.Impl.RegisterUserGrant == nil {
		return domain.UserBucketGrant{}, errors.New("[MOCK] RegisterUserGrant not implemented")
	}
	return m.Impl.RegisterUserGrant(ctx, grant)
}

func (m *GrantDBMock) UpdateUserGrant(ctx context.Context, id int, level domain.AccessLevel, paths []string) (domain.UserBucketGrant, error) {
	m.Calls.UpdateUserGrant = append(m.Calls.UpdateUserGrant, id)
	if m.Impl.UpdateUserGrant == nil {
		return domain.UserBucketGrant{}, errors.New("[MOCK] UpdateUserGrant not implemented")
	}
	return m.Impl.UpdateUserGrant(ctx, id, level, paths)
}

func (m *GrantDBMock) DeleteUserGrant(ctx context.Context, id int) error {
	m.Calls.DeleteUserGrant = append(m.Calls.DeleteUserGrant, id)
	if m.Impl.DeleteUserGrant == nil {
		return errors.New("[MOCK] DeleteUserGrant not implemented")
	}
	return m.Impl.DeleteUserGrant(ctx, id)
}

func (m *GrantDBMock) GetAppGrant(ctx context.Context, id int) (domain.AppBucketGrant, error) {
	if m.Impl.GetAppGrant == nil {
		return domain.AppBucketGrant{}, errors.New("[MOCK] GetAppGrant not implemented")
	}
	return m.Impl.GetAppGrant(ctx, id)
}

func (m *GrantDBMock) FindAppGrantsByBucket(ctx context.Context, bucket string) ([]domain.AppBucketGrant, error) {
	if m.Impl.FindAppGrantsByBucket == nil {
		return nil, errors.New("[MOCK] FindAppGrantsByBucket not implemented")
	}
	return m.Impl.FindAppGrantsByBucket(ctx, bucket)
}

func (m *GrantDBMock) FindAppGrantsByApp(ctx context.Context, appID int) ([]domain.AppBucketGrant, error) {
	if m.Impl.FindAppGrantsByApp == nil {
		return nil, errors.New("[MOCK] FindAppGrantsByApp not implemented")
	}
	return m.Impl.FindAppGrantsByApp(ctx, appID)
}

func (m *GrantDBMock) RegisterAppGrant(ctx context.Context, grant domain.AppBucketGrant) (domain.AppBucketGrant, error) {
	m.Calls.RegisterAppGrant = append(m.Calls.RegisterAppGrant, grant)
	if m.Impl.RegisterAppGrant == nil {
		return domain.AppBucketGrant{}, errors.New("[MOCK] RegisterAppGrant not implemented")
	}
	return m.Impl.RegisterAppGrant(ctx, grant)
}

func (m *GrantDBMock) UpdateAppGrant(ctx context.Context, id int, level domain.AccessLevel, paths []string) (domain.AppBucketGrant, error) {
	if m.Impl.UpdateAppGrant == nil {
		return domain.AppBucketGrant{}, errors.New("[MOCK] UpdateAppGrant not implemented")
	}
	return m.Impl.UpdateAppGrant(ctx, id, level, paths)
}

func (m *GrantDBMock) DeleteAppGrant(ctx context.Context, id int) error {
	m.Calls.DeleteAppGrant = append(m.Calls.DeleteAppGrant, id)
	if m.Impl.DeleteAppGrant == nil {
		return errors.New("[MOCK] DeleteAppGrant not implemented")
	}
	return m.Impl.DeleteAppGrant(ctx, id)
}

func (m *GrantDBMock) FindPolicyGrantsByBucket(ctx context.Context, bucket string) ([]domain.PolicyBucketGrant, error) {
	if m.Impl.FindPolicyGrantsByBucket == nil {
		return nil, errors.New("[MOCK] FindPolicyGrantsByBucket not implemented")
	}
	return m.Impl.FindPolicyGrantsByBucket(ctx, bucket)
}

func (m *GrantDBMock) RegisterPolicyGrant(ctx context.Context, grant domain.PolicyBucketGrant) (domain.PolicyBucketGrant, error) {
	if m.Impl.RegisterPolicyGrant == nil {
		return domain.PolicyBucketGrant{}, errors.New("[MOCK] RegisterPolicyGrant not implemented")
	}
	return m.Impl.RegisterPolicyGrant(ctx, grant)
}

func (m *GrantDBMock) DeletePolicyGrant(ctx context.Context, id int) error {
	if m.Impl.DeletePolicyGrant == nil {
		return errors.New("[MOCK] DeletePolicyGrant not implemented")
	}
	return m.Impl.DeletePolicyGrant(ctx, id)
}

func (m *GrantDBMock) FindGrantsByBucket(ctx context.Context, bucket string) ([]domain.Grant, error) {
	if m.Impl.FindGrantsByBucket == nil {
		return nil, errors.New("[MOCK] FindGrantsByBucket not implemented")
	}
	return m.Impl.FindGrantsByBucket(ctx, bucket)
}
