package handlers

import (
	"net/http"

	"github.com/AnshRaj112/propertyhub-backend/internal/apperror"
	"github.com/AnshRaj112/propertyhub-backend/internal/services"
)

const maxUploadBytes = 10 << 20

type UploadHandler struct {
	responder
	uploader services.ImageUploader
}

// NewUploadHandler accepts a nil uploader; uploads then fail with a configuration error.
func NewUploadHandler(uploader services.ImageUploader, production bool) *UploadHandler {
	return &UploadHandler{responder: responder{production: production}, uploader: uploader}
}

// Upload handles POST /api/upload with a multipart "file" field.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.uploader == nil {
		h.writeError(w, r, apperror.Configuration("Image uploads are not configured"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.writeError(w, r, apperror.Wrap(apperror.KindValidation, "Failed to parse form", err))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, r, apperror.Wrap(apperror.KindValidation, "No file provided", err))
		return
	}
	defer file.Close()

	folder := r.URL.Query().Get("folder")
	if folder == "" {
		folder = services.DefaultUploadFolder
	}

	url, err := h.uploader.Upload(r.Context(), file, folder)
	if err != nil {
		h.writeError(w, r, apperror.Upstream("Failed to upload file", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "File uploaded successfully",
		"url":     url,
	})
}
