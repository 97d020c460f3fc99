// Package handler implements the HTTP wire contract of the sharing
// protocol. Handlers translate JSON requests into service calls and map
// sentinel errors to coarse, non-diagnostic failure tags.
package handler

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/sealdrop/sealdrop/internal/logger"
	"github.com/sealdrop/sealdrop/internal/model"
	"github.com/sealdrop/sealdrop/internal/service"
)

// Verifier runs one verification attempt.
type Verifier interface {
	VerifyCode(ctx context.Context, fileID uuid.UUID, code string, email string) (service.VerifyResult, error)
}

// Sharer publishes files and serves verified downloads.
type Sharer interface {
	ShareFile(ctx context.Context, params service.ShareFileParams) (model.File, []model.Grant, error)
	Download(ctx context.Context, fileID, grantID uuid.UUID) (io.ReadCloser, model.File, error)
}

// Handler bundles the HTTP endpoints.
type Handler struct {
	verifier Verifier
	sharer   Sharer
	logger   *logger.Logger
}

func New(verifier Verifier, sharer Sharer, logger *logger.Logger) *Handler {
	return &Handler{
		verifier: verifier,
		sharer:   sharer,
		logger:   logger,
	}
}
