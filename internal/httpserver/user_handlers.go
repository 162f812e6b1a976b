package httpserver

import (
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"chatserver/internal/service"
)

func handleCurrentUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		if user == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

func handleListUsers(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := userSvc.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, users)
	}
}

func handleUploadProfile(userSvc *service.UserService, uploadDir string) http.HandlerFunc {
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

		url := "/uploads/" + filename
		if err := userSvc.SetProfilePicture(r.Context(), user.ID, url); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"profilePicture": url})
	}
}

// saveUploadedFile stores a multipart file under a random name and returns
// the generated filename. The original name contributes only its extension.
func saveUploadedFile(r *http.Request, field, uploadDir string) (string, error) {
	if err := r.ParseMultipartForm(50 << 20); err != nil {
		return "", errBadUpload("failed to parse multipart form")
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", errBadUpload("missing file")
	}
	defer file.Close()

	ext := filepath.Ext(header.Filename)
	filename := uuid.NewString() + ext
	destPath := filepath.Join(uploadDir, filename)

	out, err := os.Create(destPath)
	if err != nil {
		return "", errBadUpload("could not create file")
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		return "", errBadUpload("could not save file")
	}
	return filename, nil
}

type errBadUpload string

func (e errBadUpload) Error() string { return string(e) }
