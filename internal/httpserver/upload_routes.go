package httpserver

import (
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"chatserver/internal/domain"
)

// handleMediaUpload stores a multipart file and records a media row pointing
// at the message it belongs to. The caller supplies messageId and mediaType
// as form fields alongside the file.
func handleMediaUpload(media domain.MediaRepository, uploadDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		if user == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}

		filename, err := saveUploadedFile(r, "file", uploadDir)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		mediaType := r.FormValue("mediaType")
		if mediaType == "" {
			mediaType = domain.MessageTypeImage
		}

		m := &domain.Media{
			ID:        uuid.NewString(),
			UserID:    user.ID,
			MessageID: r.FormValue("messageId"),
			MediaType: mediaType,
			MediaURL:  "/uploads/" + filename,
		}
		if err := media.Create(r.Context(), m); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, m)
	}
}

// handleServeUpload serves previously uploaded files. Filenames are
// server-generated, so anything that is not a bare name is rejected.
func handleServeUpload(uploadDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename := chi.URLParam(r, "filename")
		if filename == "" || filepath.Base(filename) != filename {
			http.Error(w, "invalid filename", http.StatusBadRequest)
			return
		}
		http.ServeFile(w, r, filepath.Join(uploadDir, filename))
	}
}
