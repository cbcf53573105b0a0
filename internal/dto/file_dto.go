package dto

import (
	"time"

	"github.com/google/uuid"
)

type FileUploadResponse struct {
	FileID       uuid.UUID `json:"file_id"`
	Filename     string    `json:"filename"`
	Size         int64     `json:"size"`
	Version      int       `json:"version"`
	Deduplicated bool      `json:"deduplicated"`
	Message      string    `json:"message"`
}

type FileInfoResponse struct {
	ID             uuid.UUID `json:"id"`
	Filename       string    `json:"filename"`
	Size           int64     `json:"size"`
	CurrentVersion int       `json:"current_version"`
	Owner          string    `json:"owner"`
	Versions       int       `json:"versions"`
	Shared         bool      `json:"shared"`
	CreatedAt      time.Time `json:"created_at"`
}

type FileBatchRequest struct {
	FileIDs []uuid.UUID `json:"file_ids"`
}

type ShareResponse struct {
	FileID   uuid.UUID `json:"file_id"`
	ShareURL string    `json:"share_url"`
}
