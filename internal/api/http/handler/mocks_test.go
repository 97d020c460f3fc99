package handler

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/sealdrop/sealdrop/internal/model"
	"github.com/sealdrop/sealdrop/internal/service"
)

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) VerifyCode(ctx context.Context, fileID uuid.UUID, code string, email string) (service.VerifyResult, error) {
	args := m.Called(ctx, fileID, code, email)
	return args.Get(0).(service.VerifyResult), args.Error(1)
}

type MockSharer struct {
	mock.Mock
}

func (m *MockSharer) ShareFile(ctx context.Context, params service.ShareFileParams) (model.File, []model.Grant, error) {
	args := m.Called(ctx, params)
	grants, _ := args.Get(1).([]model.Grant)
	return args.Get(0).(model.File), grants, args.Error(2)
}

func (m *MockSharer) Download(ctx context.Context, fileID, grantID uuid.UUID) (io.ReadCloser, model.File, error) {
	args := m.Called(ctx, fileID, grantID)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Get(1).(model.File), args.Error(2)
}
