package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fileops-backend/internal/models"
)

// UserRepository persists user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// FileRepository persists logical files and their version ledger.
type FileRepository interface {
	Create(ctx context.Context, file *models.File) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.File, error)
	GetByOwnerAndName(ctx context.Context, ownerID uuid.UUID, filename string) (*models.File, error)
	GetByShareToken(ctx context.Context, token string) (*models.File, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, search string, sort string) ([]models.File, error)
	UpdateCurrent(ctx context.Context, fileID uuid.UUID, version int, path string, size int64) error
	SetShareToken(ctx context.Context, fileID uuid.UUID, token string) error
	Delete(ctx context.Context, fileID uuid.UUID) error

	// Version ledger. Version numbers are per-file, start at 1 and are
	// strictly increasing; numbers are never reused even after failures.
	NextVersionNumber(ctx context.Context, fileID uuid.UUID) (int, error)
	AppendVersion(ctx context.Context, version *models.FileVersion) error
	ListVersions(ctx context.Context, fileID uuid.UUID) ([]models.FileVersion, error)
	GetVersion(ctx context.Context, fileID uuid.UUID, number int) (*models.FileVersion, error)
	CurrentVersion(ctx context.Context, fileID uuid.UUID) (*models.FileVersion, error)
	CountVersions(ctx context.Context, fileID uuid.UUID) (int, error)

	// Deduplication support: candidate lookup by content digest (ascending
	// id, deterministic) and reference counting of a physical path across
	// all files other than the one being deleted.
	FindVersionsByChecksum(ctx context.Context, checksum string) ([]models.FileVersion, error)
	CountPathRefs(ctx context.Context, path string, excludeFileID uuid.UUID) (int, error)
}

// LogFilter narrows audit log listings. Zero values mean "no filter".
type LogFilter struct {
	UserID    *uuid.UUID
	Action    string
	StartDate *time.Time
	EndDate   *time.Time
	Ascending bool
}

// AuditRepository persists the append-only action log.
type AuditRepository interface {
	Insert(ctx context.Context, entry *models.LogEntry) error
	List(ctx context.Context, filter LogFilter) ([]models.LogEntry, error)
	ActionCounts(ctx context.Context) (map[string]int64, error)
	DistinctUsers(ctx context.Context) (int64, error)
}
