package media

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"portfolio-api/internal/observability"
	"portfolio-api/internal/web"
)

const maxUploadSizeBytes = 10 << 20

var folderPattern = regexp.MustCompile(`^[a-z0-9_-]{1,32}$`)

type UploadHandler struct {
	uploader ImageUploader
	logger   *observability.Logger
}

func NewUploadHandler(uploader ImageUploader, logger *observability.Logger) *UploadHandler {
	return &UploadHandler{uploader: uploader, logger: logger}
}

// Upload accepts a multipart "file" field and an optional "folder" (projects, skills, profile).
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.uploader == nil {
		web.WriteError(w, http.StatusServiceUnavailable, "image uploader is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSizeBytes+(1<<20))
	if err := r.ParseMultipartForm(maxUploadSizeBytes); err != nil {
		web.WriteError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	folder := strings.ToLower(strings.TrimSpace(r.FormValue("folder")))
	if folder == "" {
		folder = "misc"
	}
	if !folderPattern.MatchString(folder) {
		web.WriteError(w, http.StatusBadRequest, "folder is invalid")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		web.WriteError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSizeBytes+1))
	if err != nil {
		web.WriteError(w, http.StatusBadRequest, "failed to read file")
		return
	}
	if len(data) == 0 {
		web.WriteError(w, http.StatusBadRequest, "file is empty")
		return
	}
	if len(data) > maxUploadSizeBytes {
		web.WriteError(w, http.StatusRequestEntityTooLarge, "file is too large")
		return
	}

	// The sniffed type wins over the client header so a renamed payload cannot pass as an image.
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		declared := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
		if declared != "image/svg+xml" || !strings.Contains(strings.ToLower(string(data[:min(len(data), 512)])), "<svg") {
			web.WriteError(w, http.StatusBadRequest, "file must be an image")
			return
		}
		contentType = declared
	}

	imageSource := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))
	secureURL, err := h.uploader.UploadImage(r.Context(), imageSource, folder)
	if err != nil {
		h.logger.Error("media_upload_failed", map[string]any{"folder": folder, "error": err.Error()})
		observability.CaptureError(r, err)
		web.WriteError(w, http.StatusBadGateway, "failed to upload image")
		return
	}

	h.logger.Info("media_uploaded", map[string]any{"folder": folder, "bytes": len(data)})
	web.WriteJSON(w, http.StatusOK, map[string]string{"secure_url": secureURL})
}
