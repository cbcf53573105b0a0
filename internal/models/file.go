package models

import (
	"time"

	"github.com/google/uuid"
)

// File is the logical, user-facing artifact. Its pointer fields
// (CurrentVersion, Filepath, Size) always mirror one version record;
// rollback moves the pointer without touching the ledger.
type File struct {
	ID      uuid.UUID `db:"id" json:"id"`
	OwnerID uuid.UUID `db:"owner_id" json:"owner_id"`

	Filename       string  `db:"filename" json:"filename"`
	Filepath       string  `db:"filepath" json:"-"`
	Size           int64   `db:"size" json:"size"`
	CurrentVersion int     `db:"current_version" json:"current_version"`
	ShareToken     *string `db:"share_token" json:"share_token,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// FileVersion is one immutable snapshot in a file's version ledger.
// Version numbers start at 1 and are strictly increasing per file.
type FileVersion struct {
	ID     int64     `db:"id" json:"id"`
	FileID uuid.UUID `db:"file_id" json:"file_id"`

	VersionNumber int    `db:"version_number" json:"version"`
	Filepath      string `db:"filepath" json:"-"`
	Checksum      string `db:"checksum" json:"checksum"`
	Size          int64  `db:"size" json:"size"`
	Notes         string `db:"notes" json:"notes,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
