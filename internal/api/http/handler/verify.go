package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sealdrop/sealdrop/internal/model"
)

type verifyRequest struct {
	Code           string `json:"code"`
	RecipientEmail string `json:"recipientEmail,omitempty"`
}

type verifyResponse struct {
	WrappedKey  []byte `json:"wrappedKey"`
	WrapKeySalt []byte `json:"wrapKeySalt"`
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
}

// Verify handles POST /api/v1/files/{fileID}/verify.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	fileID, err := uuid.Parse(chi.URLParam(r, "fileID"))
	if err != nil {
		writeError(w, model.ErrNotAvailable)
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.ErrMalformedInput)
		return
	}

	result, err := h.verifier.VerifyCode(r.Context(), fileID, req.Code, req.RecipientEmail)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, verifyResponse{
		WrappedKey:  result.WrappedKey,
		WrapKeySalt: result.WrapSalt,
		FileName:    result.FileName,
		FileSize:    result.FileSize,
	})
}
