package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"fileops-backend/internal/services"
	"fileops-backend/utils/response"
)

// ShareHandler serves anonymous downloads through public share tokens.
// No authentication runs in front of it.
type ShareHandler struct {
	service *services.FileService
}

func NewShareHandler(service *services.FileService) *ShareHandler {
	return &ShareHandler{service: service}
}

func (h *ShareHandler) DownloadShared(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		response.Error(w, http.StatusBadRequest, "'token' not present in path")
		return
	}

	rc, file, err := h.service.DownloadShared(r.Context(), token, clientIP(r))
	if err != nil {
		response.FromError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	w.WriteHeader(http.StatusOK)
	io.Copy(w, rc)
}
