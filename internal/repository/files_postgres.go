package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"fileops-backend/internal/apperrors"
	"fileops-backend/internal/models"
)

const fileColumns = "id, owner_id, filename, filepath, size, current_version, share_token, created_at, updated_at"
const versionColumns = "id, file_id, version_number, filepath, checksum, size, notes, created_at"

// sortClauses maps the public sort keys to ORDER BY clauses. Keys are
// validated before they reach the repository; the map keeps user input out
// of the SQL text entirely.
var sortClauses = map[string]string{
	"date_desc": "created_at desc",
	"date_asc":  "created_at asc",
	"name_asc":  "filename asc",
	"name_desc": "filename desc",
	"size_desc": "size desc",
	"size_asc":  "size asc",
}

// ValidSortKey reports whether key names a supported file list ordering.
func ValidSortKey(key string) bool {
	_, ok := sortClauses[key]
	return ok
}

type PostgresFileRepository struct {
	db *sqlx.DB
}

func NewPostgresFileRepository(db *sqlx.DB) *PostgresFileRepository {
	return &PostgresFileRepository{db: db}
}

func (r *PostgresFileRepository) Create(ctx context.Context, file *models.File) error {
	query := `
		insert into files (id, owner_id, filename, filepath, size, current_version)
		values ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		file.ID, file.OwnerID, file.Filename, file.Filepath, file.Size, file.CurrentVersion)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: file %q already exists for this user", apperrors.ErrConflict, file.Filename)
	}
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	return nil
}

func (r *PostgresFileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.File, error) {
	var file models.File
	query := "select " + fileColumns + " from files where id = $1"

	if err := r.db.GetContext(ctx, &file, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: file %s", apperrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return &file, nil
}

func (r *PostgresFileRepository) GetByOwnerAndName(ctx context.Context, ownerID uuid.UUID, filename string) (*models.File, error) {
	var file models.File
	query := "select " + fileColumns + " from files where owner_id = $1 and filename = $2"

	if err := r.db.GetContext(ctx, &file, query, ownerID, filename); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: file %q", apperrors.ErrNotFound, filename)
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return &file, nil
}

func (r *PostgresFileRepository) GetByShareToken(ctx context.Context, token string) (*models.File, error) {
	var file models.File
	query := "select " + fileColumns + " from files where share_token = $1"

	if err := r.db.GetContext(ctx, &file, query, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: share link", apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get file by share token: %w", err)
	}
	return &file, nil
}

func (r *PostgresFileRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, search string, sort string) ([]models.File, error) {
	clause, ok := sortClauses[sort]
	if !ok {
		return nil, fmt.Errorf("%w: unknown sort key %q", apperrors.ErrValidation, sort)
	}

	var files []models.File
	query := "select " + fileColumns + " from files where owner_id = $1 and filename ilike $2 order by " + clause

	if err := r.db.SelectContext(ctx, &files, query, ownerID, "%"+search+"%"); err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return files, nil
}

func (r *PostgresFileRepository) UpdateCurrent(ctx context.Context, fileID uuid.UUID, version int, path string, size int64) error {
	query := `
		update files
		set current_version = $2, filepath = $3, size = $4, updated_at = now()
		where id = $1
	`
	res, err := r.db.ExecContext(ctx, query, fileID, version, path, size)
	if err != nil {
		return fmt.Errorf("failed to update current version: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update current version: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: file %s", apperrors.ErrNotFound, fileID)
	}
	return nil
}

func (r *PostgresFileRepository) SetShareToken(ctx context.Context, fileID uuid.UUID, token string) error {
	res, err := r.db.ExecContext(ctx, "update files set share_token = $2, updated_at = now() where id = $1", fileID, token)
	if err != nil {
		return fmt.Errorf("failed to set share token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to set share token: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: file %s", apperrors.ErrNotFound, fileID)
	}
	return nil
}

// Delete removes the file row; version records go with it via the
// ON DELETE CASCADE on file_versions.file_id.
func (r *PostgresFileRepository) Delete(ctx context.Context, fileID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, "delete from files where id = $1", fileID)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: file %s", apperrors.ErrNotFound, fileID)
	}
	return nil
}

func (r *PostgresFileRepository) NextVersionNumber(ctx context.Context, fileID uuid.UUID) (int, error) {
	var next int
	query := "select coalesce(max(version_number), 0) + 1 from file_versions where file_id = $1"

	if err := r.db.GetContext(ctx, &next, query, fileID); err != nil {
		return 0, fmt.Errorf("failed to compute next version: %w", err)
	}
	return next, nil
}

func (r *PostgresFileRepository) AppendVersion(ctx context.Context, version *models.FileVersion) error {
	query := `
		insert into file_versions (file_id, version_number, filepath, checksum, size, notes)
		values ($1, $2, $3, $4, $5, $6)
		returning id, created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		version.FileID, version.VersionNumber, version.Filepath, version.Checksum, version.Size, version.Notes).
		Scan(&version.ID, &version.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: version %d already exists for file %s", apperrors.ErrConflict, version.VersionNumber, version.FileID)
	}
	if err != nil {
		return fmt.Errorf("failed to append version: %w", err)
	}
	return nil
}

func (r *PostgresFileRepository) ListVersions(ctx context.Context, fileID uuid.UUID) ([]models.FileVersion, error) {
	var versions []models.FileVersion
	query := "select " + versionColumns + " from file_versions where file_id = $1 order by version_number asc"

	if err := r.db.SelectContext(ctx, &versions, query, fileID); err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	return versions, nil
}

func (r *PostgresFileRepository) GetVersion(ctx context.Context, fileID uuid.UUID, number int) (*models.FileVersion, error) {
	var version models.FileVersion
	query := "select " + versionColumns + " from file_versions where file_id = $1 and version_number = $2"

	if err := r.db.GetContext(ctx, &version, query, fileID, number); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: version %d of file %s", apperrors.ErrNotFound, number, fileID)
		}
		return nil, fmt.Errorf("failed to get version: %w", err)
	}
	return &version, nil
}

func (r *PostgresFileRepository) CurrentVersion(ctx context.Context, fileID uuid.UUID) (*models.FileVersion, error) {
	var version models.FileVersion
	query := "select " + versionColumns + " from file_versions where file_id = $1 order by version_number desc limit 1"

	if err := r.db.GetContext(ctx, &version, query, fileID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: no versions for file %s", apperrors.ErrNotFound, fileID)
		}
		return nil, fmt.Errorf("failed to get current version: %w", err)
	}
	return &version, nil
}

func (r *PostgresFileRepository) CountVersions(ctx context.Context, fileID uuid.UUID) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "select count(*) from file_versions where file_id = $1", fileID); err != nil {
		return 0, fmt.Errorf("failed to count versions: %w", err)
	}
	return count, nil
}

// FindVersionsByChecksum returns all version records with the given digest
// in ascending id order, so deduplication candidate selection is
// deterministic.
func (r *PostgresFileRepository) FindVersionsByChecksum(ctx context.Context, checksum string) ([]models.FileVersion, error) {
	var versions []models.FileVersion
	query := "select " + versionColumns + " from file_versions where checksum = $1 order by id asc"

	if err := r.db.SelectContext(ctx, &versions, query, checksum); err != nil {
		return nil, fmt.Errorf("failed to find versions by checksum: %w", err)
	}
	return versions, nil
}

// CountPathRefs counts version records of other files that reference the
// given physical path. Deduplicated versions alias paths across files, so
// bytes may only be unlinked when this count reaches zero.
func (r *PostgresFileRepository) CountPathRefs(ctx context.Context, path string, excludeFileID uuid.UUID) (int, error) {
	var count int
	query := "select count(*) from file_versions where filepath = $1 and file_id <> $2"

	if err := r.db.GetContext(ctx, &count, query, path, excludeFileID); err != nil {
		return 0, fmt.Errorf("failed to count path references: %w", err)
	}
	return count, nil
}
