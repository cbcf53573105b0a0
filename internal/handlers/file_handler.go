package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"fileops-backend/internal/dto"
	"fileops-backend/internal/services"
	"fileops-backend/utils/response"
)

type FileHandler struct {
	service       *services.FileService
	maxUploadSize int64
}

func NewFileHandler(service *services.FileService, maxUploadSize int64) *FileHandler {
	return &FileHandler{service: service, maxUploadSize: maxUploadSize}
}

func (h *FileHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if user == nil {
		response.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	// Slack over the content limit covers multipart framing; the exact
	// byte limit is enforced while staging.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+1024*1024)

	if err := r.ParseMultipartForm(32 * 1024 * 1024); err != nil {
		response.Error(w, http.StatusBadRequest, fmt.Sprintf("Failed to parse multipart form: %v", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.Error(w, http.StatusBadRequest, fmt.Sprintf("Failed to get file from form: %v", err))
		return
	}
	defer file.Close()

	notes := r.FormValue("notes")

	resp, err := h.service.Upload(r.Context(), user, header.Filename, file, notes, clientIP(r))
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.SuccessResponse{
		Success: true,
		Data:    resp,
		Message: resp.Message,
	})
}

func (h *FileHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if user == nil {
		response.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	files, err := h.service.List(r.Context(), user, r.URL.Query().Get("search"), r.URL.Query().Get("sort"))
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SuccessResponse{
		Success: true,
		Data:    files,
	})
}

func (h *FileHandler) GetFileInfo(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if user == nil {
		response.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	fileID, ok := pathUUID(r, "id")
	if !ok {
		response.Error(w, http.StatusBadRequest, "Invalid file id")
		return
	}

	info, err := h.service.Info(r.Context(), user, fileID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SuccessResponse{
		Success: true,
		Data:    info,
	})
}

func (h *FileHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if user == nil {
		response.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	fileID, ok := pathUUID(r, "id")
	if !ok {
		response.Error(w, http.StatusBadRequest, "Invalid file id")
		return
	}

	versions, err := h.service.Versions(r.Context(), user, fileID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SuccessResponse{
		Success: true,
		Data:    versions,
	})
}

func (h *FileHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if user == nil {
		response.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	fileID, ok := pathUUID(r, "id")
	if !ok {
		response.Error(w, http.StatusBadRequest, "Invalid file id")
		return
	}

	rc, file, err := h.service.Download(r.Context(), user, fileID, clientIP(r))
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

func (h *FileHandler) DownloadZip(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if user == nil {
		response.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req dto.FileBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename=files_download.zip")
	w.Header().Set("Content-Type", "application/zip")

	if err := h.service.BundleZip(r.Context(), user, req.FileIDs, w, clientIP(r)); err != nil {
		// Headers may already be written; a mid-stream failure truncates
		// the archive rather than switching to a JSON error.
		response.FromError(w, err)
		return
	}
}

func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if user == nil {
		response.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	fileID, ok := pathUUID(r, "id")
	if !ok {
		response.Error(w, http.StatusBadRequest, "Invalid file id")
		return
	}

	if err := h.service.Delete(r.Context(), user, fileID, clientIP(r)); err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SuccessResponse{
		Success: true,
		Data:    fileID,
		Message: "File deleted successfully",
	})
}

func (h *FileHandler) DeleteMultiple(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if user == nil {
		response.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req dto.FileBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.FileIDs) == 0 {
		response.Error(w, http.StatusBadRequest, "file_ids is required")
		return
	}

	deleted, err := h.service.DeleteMany(r.Context(), user, req.FileIDs, clientIP(r))
	if err != nil && len(deleted) == 0 {
		response.FromError(w, err)
		return
	}

	message := "Files deleted successfully"
	if err != nil {
		message = fmt.Sprintf("Deleted %d of %d files: %v", len(deleted), len(req.FileIDs), err)
	}
	response.JSON(w, http.StatusOK, response.SuccessResponse{
		Success: true,
		Data:    deleted,
		Message: message,
	})
}

func (h *FileHandler) RollbackVersion(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if user == nil {
		response.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	fileID, ok := pathUUID(r, "id")
	if !ok {
		response.Error(w, http.StatusBadRequest, "Invalid file id")
		return
	}
	version, err := strconv.Atoi(r.PathValue("version"))
	if err != nil || version < 1 {
		response.Error(w, http.StatusBadRequest, "Invalid version number")
		return
	}

	if err := h.service.Rollback(r.Context(), user, fileID, version, clientIP(r)); err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SuccessResponse{
		Success: true,
		Message: fmt.Sprintf("File %s rolled back to version %d", fileID, version),
	})
}

func (h *FileHandler) ShareFile(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if user == nil {
		response.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	fileID, ok := pathUUID(r, "id")
	if !ok {
		response.Error(w, http.StatusBadRequest, "Invalid file id")
		return
	}

	token, err := h.service.Share(r.Context(), user, fileID, clientIP(r))
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SuccessResponse{
		Success: true,
		Data: dto.ShareResponse{
			FileID:   fileID,
			ShareURL: "/share/" + token,
		},
		Message: "Share link created",
	})
}
