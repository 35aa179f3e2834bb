package mocks

import (
	"context"
	"errors"

	"github.com/analytical-platform/controlpanel/pkg/domain"
)

type BucketDBMock struct {
	Impl struct {
		Get         func(ctx context.Context, name string) (domain.Bucket, error)
		Find        func(ctx context.Context, includeArchived bool) ([]domain.Bucket, error)
		Register    func(ctx context.Context, bucket domain.Bucket) error
		SetLocation func(ctx context.Context, name string, location string) error
		Archive     func(ctx context.Context, name string) error
	}
	Calls struct {
		Get         []string
		Register    []domain.Bucket
		SetLocation []string
		Archive     []string
	}
}

func NewBucketDBMock() *BucketDBMock {
	return &BucketDBMock{}
}

func (m *BucketDBMock) Get(ctx context.Context, name string) (domain.Bucket, error) {
	m.Calls.Get = append(m.Calls.Get, name)
	if m.Impl.Get == nil {
		return domain.Bucket{}, errors.New("[MOCK] Get not implemented")
	}
	return m.Impl.Get(ctx, name)
}

func (m *BucketDBMock) Find(ctx context.Context, includeArchived bool) ([]domain.Bucket, error) {
	if m.Impl.Find == nil {
		return nil, errors.New("[MOCK] Find not implemented")
	}
	return m.Impl.Find(ctx, includeArchived)
}

func (m *BucketDBMock) Register(ctx context.Context, bucket domain.Bucket) error {
	m.Calls.Register = append(m.Calls.Register, bucket)
	if m.Impl.Register == nil {
		return errors.New("[MOCK] Register not implemented")
	}
	return m.Impl.Register(ctx, bucket)
}

func (m *BucketDBMock) SetLocation(ctx context.Context, name string, location string) error {
	m.Calls.SetLocation = append(m.Calls.SetLocation, name)
	if m.Impl.SetLocation == nil {
		return errors.New("[MOCK] SetLocation not implemented")
	}
	return m.Impl.SetLocation(ctx, name, location)
}

func (m *BucketDBMock) Archive(ctx context.Context, name string) error {
	m.Calls.Archive = append(m.Calls.Archive, name)
	if m.Impl.Archive == nil {
		return errors.New("[MOCK] Archive not implemented")
	}
	return m.Impl.Archive(ctx, name)
}
