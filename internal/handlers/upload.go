package handlers

import (
	"net/http"

	"github.com/AnshRaj112/safeharbor-backend/internal/services"
)

type UploadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
}

// UploadImage handles POST /api/upload: a multipart "file" field holding a
// journal image. Answers 503 when Cloudinary is not configured.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if h.Uploader == nil {
		writeError(w, http.StatusServiceUnavailable, "Image uploads are not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, services.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(services.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to parse upload")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	file.Close()

	url, err := h.Uploader.UploadImage(r.Context(), userID(r), fileHeader)
	if err != nil {
		writeServiceError(w, r, err, "Failed to upload file")
		return
	}
	writeJSON(w, http.StatusOK, UploadResponse{Success: true, Message: "File uploaded successfully", URL: url})
}
