package storage

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
)

type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Put(ctx context.Context, key string, body io.ReadSeeker, size int64, contentType string) error {
	args := m.Called(ctx, key, body, size, contentType)
	return args.Error(0)
}

func (m *MockBlobStore) Open(ctx context.Context, key string) (io.ReadCloser, Object, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Get(1).(Object), args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(Object), args.Error(2)
}

func (m *MockBlobStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
