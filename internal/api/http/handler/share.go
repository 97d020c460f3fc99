package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sealdrop/sealdrop/internal/model"
	"github.com/sealdrop/sealdrop/internal/service"
)

type shareRecipient struct {
	Email      string `json:"email"`
	CodeHash   []byte `json:"codeHash"`
	WrappedKey []byte `json:"wrappedKey"`
	WrapSalt   []byte `json:"wrapSalt"`
}

type shareRequest struct {
	FileName     string           `json:"fileName"`
	FileSize     int64            `json:"fileSize"`
	ExpiryPolicy string           `json:"expiryPolicy"`
	ExpiresAt    time.Time        `json:"expiresAt"`
	Ciphertext   []byte           `json:"ciphertext"`
	Recipients   []shareRecipient `json:"recipients"`
}

type shareGrant struct {
	Email   string `json:"email"`
	GrantID string `json:"grantId"`
}

// shareResponse hands the sender the IDs it must distribute: the file ID
// for everyone and, per recipient, the grant ID that keys the download
// endpoint. Codes never appear here; the sender already has them.
type shareResponse struct {
	FileID string       `json:"fileId"`
	Grants []shareGrant `json:"grants"`
}

// Share handles POST /api/v1/files.
func (h *Handler) Share(w http.ResponseWriter, r *http.Request) {
	var req shareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.ErrMalformedInput)
		return
	}

	params := service.ShareFileParams{
		Name:         req.FileName,
		Size:         req.FileSize,
		ExpiryPolicy: model.ExpiryPolicy(req.ExpiryPolicy),
		ExpiresAt:    req.ExpiresAt,
		Ciphertext:   req.Ciphertext,
	}
	for _, rec := range req.Recipients {
		params.Recipients = append(params.Recipients, service.RecipientParams{
			Email:      rec.Email,
			CodeHash:   rec.CodeHash,
			WrappedKey: rec.WrappedKey,
			WrapSalt:   rec.WrapSalt,
		})
	}

	file, grants, err := h.sharer.ShareFile(r.Context(), params)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := shareResponse{FileID: file.ID.String()}
	for _, g := range grants {
		resp.Grants = append(resp.Grants, shareGrant{Email: g.Email, GrantID: g.ID.String()})
	}
	writeJSON(w, http.StatusCreated, resp)
}

// DownloadBlob handles GET /api/v1/files/{fileID}/blob.
func (h *Handler) DownloadBlob(w http.ResponseWriter, r *http.Request) {
	fileID, err := uuid.Parse(chi.URLParam(r, "fileID"))
	if err != nil {
		writeError(w, model.ErrNotAvailable)
		return
	}
	grantID, err := uuid.Parse(r.URL.Query().Get("grant"))
	if err != nil {
		writeError(w, model.ErrNotAvailable)
		return
	}

	rc, file, err := h.sharer.Download(r.Context(), fileID, grantID)
	if err != nil {
		writeError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(file.Name))
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Error("failed to stream blob", "file_id", fileID, "error", err)
	}
}
