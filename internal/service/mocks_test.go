package service

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/sealdrop/sealdrop/internal/model"
)

// MockFileStore mocks the FileStore interface
type MockFileStore struct {
	mock.Mock
}

func (m *MockFileStore) Create(ctx context.Context, file model.File, grants []model.Grant) (model.File, error) {
	args := m.Called(ctx, file, grants)
	return args.Get(0).(model.File), args.Error(1)
}

func (m *MockFileStore) GetByID(ctx context.Context, id uuid.UUID) (model.File, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.File), args.Error(1)
}

func (m *MockFileStore) SetStatus(ctx context.Context, id uuid.UUID, status model.FileStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockFileStore) MarkUsed(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockGrantStore mocks the GrantStore interface
type MockGrantStore struct {
	mock.Mock
}

func (m *MockGrantStore) GetByID(ctx context.Context, id uuid.UUID) (model.Grant, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Grant), args.Error(1)
}

func (m *MockGrantStore) GetByFileID(ctx context.Context, fileID uuid.UUID) ([]model.Grant, error) {
	args := m.Called(ctx, fileID)
	return args.Get(0).([]model.Grant), args.Error(1)
}

func (m *MockGrantStore) GetByFileIDAndEmail(ctx context.Context, fileID uuid.UUID, email string) (model.Grant, error) {
	args := m.Called(ctx, fileID, email)
	return args.Get(0).(model.Grant), args.Error(1)
}

func (m *MockGrantStore) RegisterAttempt(ctx context.Context, id uuid.UUID) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func (m *MockGrantStore) MarkVerified(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockGrantStore) MarkDownloaded(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// MockStorage mocks the Storage interface
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Upload(ctx context.Context, key string, reader io.Reader) error {
	args := m.Called(ctx, key, reader)
	return args.Error(0)
}

func (m *MockStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockStorage) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

// MockAuditSink mocks the AuditSink interface
type MockAuditSink struct {
	mock.Mock
}

func (m *MockAuditSink) Record(ctx context.Context, event model.AuditEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
