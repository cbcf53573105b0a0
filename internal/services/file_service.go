package services

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"fileops-backend/internal/access"
	"fileops-backend/internal/apperrors"
	"fileops-backend/internal/dto"
	"fileops-backend/internal/locks"
	"fileops-backend/internal/models"
	"fileops-backend/internal/repository"
	"fileops-backend/internal/storage"
)

// FileService owns the version-aware content-addressable engine: logical
// files, their version ledger, deduplication against stored content, and
// the authorization gate in front of every byte-level operation.
//
// Mutations on one logical file are serialized by a keyed mutex on
// (ownerID, filename); the unique constraint on (file_id, version_number)
// is the backstop if anything slips past the lock.
type FileService struct {
	files repository.FileRepository
	users repository.UserRepository
	store *storage.ContentStore
	audit *AuditService
	locks *locks.KeyedMutex

	maxUploadSize int64
}

func NewFileService(files repository.FileRepository, users repository.UserRepository, store *storage.ContentStore, audit *AuditService, maxUploadSize int64) *FileService {
	return &FileService{
		files:         files,
		users:         users,
		store:         store,
		audit:         audit,
		locks:         locks.NewKeyedMutex(),
		maxUploadSize: maxUploadSize,
	}
}

func fileKey(ownerID uuid.UUID, filename string) string {
	return ownerID.String() + "/" + filename
}

// Upload streams content into a new version of the logical file named
// filename under owner. Identical content already present on disk is
// aliased instead of stored again.
func (s *FileService) Upload(ctx context.Context, owner *models.User, filename string, r io.Reader, notes string, ip string) (*dto.FileUploadResponse, error) {
	if filename == "" {
		return nil, fmt.Errorf("%w: missing filename", apperrors.ErrValidation)
	}
	if !access.CanUpload(owner) {
		return nil, fmt.Errorf("%w: role %q cannot create files", apperrors.ErrForbidden, owner.Role)
	}

	// Checksum and size are computed while the bytes land in a temp file;
	// nothing is visible at a final path yet. Staging happens outside the
	// per-file lock so slow uploads do not serialize behind each other.
	staged, err := s.store.Stage(r, s.maxUploadSize)
	if err != nil {
		return nil, err
	}
	defer staged.Discard()

	key := fileKey(owner.ID, filename)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	file, err := s.files.GetByOwnerAndName(ctx, owner.ID, filename)
	if errors.Is(err, apperrors.ErrNotFound) {
		file = &models.File{ID: uuid.New(), OwnerID: owner.ID, Filename: filename}
		if err := s.files.Create(ctx, file); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	next, err := s.files.NextVersionNumber(ctx, file.ID)
	if err != nil {
		return nil, err
	}

	finalPath, finalSize, deduplicated, err := s.resolveDuplicate(ctx, staged)
	if err != nil {
		return nil, err
	}
	if !deduplicated {
		finalPath = storage.VersionPath(owner.ID, file.ID, next, filename)
		if err := staged.Promote(finalPath); err != nil {
			return nil, err
		}
		finalSize = staged.Size
	}

	version := &models.FileVersion{
		FileID:        file.ID,
		VersionNumber: next,
		Filepath:      finalPath,
		Checksum:      staged.Checksum,
		Size:          finalSize,
		Notes:         notes,
	}
	if err := s.files.AppendVersion(ctx, version); err != nil {
		return nil, err
	}
	if err := s.files.UpdateCurrent(ctx, file.ID, next, finalPath, finalSize); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, &owner.ID, models.ActionUpload, &file.ID, map[string]interface{}{
		"version":      next,
		"size":         finalSize,
		"deduplicated": deduplicated,
	}, ip)

	return &dto.FileUploadResponse{
		FileID:       file.ID,
		Filename:     filename,
		Size:         finalSize,
		Version:      next,
		Deduplicated: deduplicated,
		Message:      "File uploaded successfully",
	}, nil
}

// resolveDuplicate looks for an existing version with the staged content's
// checksum whose physical file is still present. Checksum equality alone is
// not enough: a prior version's bytes may have been unlinked when an
// unrelated file was deleted, and aliasing a dangling path would corrupt
// the new version. Candidates are scanned in ascending id order.
func (s *FileService) resolveDuplicate(ctx context.Context, staged *storage.StagedUpload) (string, int64, bool, error) {
	candidates, err := s.files.FindVersionsByChecksum(ctx, staged.Checksum)
	if err != nil {
		return "", 0, false, err
	}
	for _, candidate := range candidates {
		if s.store.Exists(candidate.Filepath) {
			return candidate.Filepath, candidate.Size, true, nil
		}
	}
	return "", 0, false, nil
}

// requireFile loads the file and gates it with allowed. Absence is reported
// before permission, so callers cannot probe which files exist.
func (s *FileService) requireFile(ctx context.Context, user *models.User, fileID uuid.UUID, allowed func(*models.User, *models.File) bool) (*models.File, error) {
	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !allowed(user, file) {
		return nil, fmt.Errorf("%w: no permission for file %s", apperrors.ErrForbidden, fileID)
	}
	return file, nil
}

// Download opens the current content of the file for streaming.
func (s *FileService) Download(ctx context.Context, user *models.User, fileID uuid.UUID, ip string) (io.ReadCloser, *models.File, error) {
	file, err := s.requireFile(ctx, user, fileID, access.CanDownload)
	if err != nil {
		return nil, nil, err
	}

	rc, _, err := s.store.Open(file.Filepath)
	if err != nil {
		return nil, nil, err
	}

	s.audit.Record(ctx, &user.ID, models.ActionDownload, &file.ID, map[string]interface{}{
		"version": file.CurrentVersion,
	}, ip)
	return rc, file, nil
}

// DownloadShared resolves a public share token to the file's current
// content. The token bypasses ownership checks but not path resolution or
// physical existence.
func (s *FileService) DownloadShared(ctx context.Context, token string, ip string) (io.ReadCloser, *models.File, error) {
	file, err := s.files.GetByShareToken(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	if !s.store.Exists(file.Filepath) {
		return nil, nil, fmt.Errorf("%w: stored content for file %s", apperrors.ErrNotFound, file.ID)
	}

	rc, _, err := s.store.Open(file.Filepath)
	if err != nil {
		return nil, nil, err
	}

	s.audit.Record(ctx, nil, models.ActionShareDownload, &file.ID, map[string]interface{}{
		"share_token": token,
	}, ip)
	return rc, file, nil
}

// Share issues (or replaces) the file's public share token.
func (s *FileService) Share(ctx context.Context, user *models.User, fileID uuid.UUID, ip string) (string, error) {
	file, err := s.requireFile(ctx, user, fileID, access.CanUpdate)
	if err != nil {
		return "", err
	}

	token := uuid.NewString()
	if err := s.files.SetShareToken(ctx, file.ID, token); err != nil {
		return "", err
	}

	s.audit.Record(ctx, &user.ID, models.ActionShare, &file.ID, nil, ip)
	return token, nil
}

// List returns the caller's files filtered by a substring search and ordered
// by one of the fixed sort keys. An empty sort defaults to newest first.
func (s *FileService) List(ctx context.Context, user *models.User, search string, sort string) ([]models.File, error) {
	if sort == "" {
		sort = "date_desc"
	}
	if !repository.ValidSortKey(sort) {
		return nil, fmt.Errorf("%w: unknown sort key %q", apperrors.ErrValidation, sort)
	}
	return s.files.ListByOwner(ctx, user.ID, search, sort)
}

func (s *FileService) Info(ctx context.Context, user *models.User, fileID uuid.UUID) (*dto.FileInfoResponse, error) {
	file, err := s.requireFile(ctx, user, fileID, access.CanDownload)
	if err != nil {
		return nil, err
	}

	count, err := s.files.CountVersions(ctx, file.ID)
	if err != nil {
		return nil, err
	}

	ownerName := ""
	if owner, err := s.users.GetByID(ctx, file.OwnerID); err == nil {
		ownerName = owner.Username
	}

	return &dto.FileInfoResponse{
		ID:             file.ID,
		Filename:       file.Filename,
		Size:           file.Size,
		CurrentVersion: file.CurrentVersion,
		Owner:          ownerName,
		Versions:       count,
		Shared:         file.ShareToken != nil,
		CreatedAt:      file.CreatedAt,
	}, nil
}

func (s *FileService) Versions(ctx context.Context, user *models.User, fileID uuid.UUID) ([]models.FileVersion, error) {
	file, err := s.requireFile(ctx, user, fileID, access.CanDownload)
	if err != nil {
		return nil, err
	}
	return s.files.ListVersions(ctx, file.ID)
}

// Rollback repoints the file's current view at version number. It is a
// pointer move: no version record is created or removed, and versions made
// after the target stay in the ledger.
func (s *FileService) Rollback(ctx context.Context, user *models.User, fileID uuid.UUID, number int, ip string) error {
	file, err := s.requireFile(ctx, user, fileID, access.CanUpdate)
	if err != nil {
		return err
	}

	key := fileKey(file.OwnerID, file.Filename)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	target, err := s.files.GetVersion(ctx, file.ID, number)
	if err != nil {
		return err
	}
	if err := s.files.UpdateCurrent(ctx, file.ID, target.VersionNumber, target.Filepath, target.Size); err != nil {
		return err
	}

	s.audit.Record(ctx, &user.ID, models.ActionRollback, &file.ID, map[string]interface{}{
		"rolled_back_to": number,
	}, ip)
	return nil
}

// Delete removes the logical file, its ledger, and any physical content no
// longer referenced. Deduplicated versions alias paths owned by other files,
// so each path is unlinked only when no version outside this file still
// points at it.
func (s *FileService) Delete(ctx context.Context, user *models.User, fileID uuid.UUID, ip string) error {
	file, err := s.requireFile(ctx, user, fileID, access.CanDelete)
	if err != nil {
		return err
	}

	key := fileKey(file.OwnerID, file.Filename)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	versions, err := s.files.ListVersions(ctx, file.ID)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(versions))
	for _, version := range versions {
		if seen[version.Filepath] {
			continue
		}
		seen[version.Filepath] = true

		refs, err := s.files.CountPathRefs(ctx, version.Filepath, file.ID)
		if err != nil {
			return err
		}
		if refs > 0 {
			continue
		}
		// Physical delete is best effort: the metadata-consistent state
		// matters more than a stray file on disk.
		if err := s.store.Delete(version.Filepath); err != nil {
			log.Printf("delete: failed to unlink %s: %v", version.Filepath, err)
		}
	}

	if err := s.files.Delete(ctx, file.ID); err != nil {
		return err
	}

	s.audit.Record(ctx, &user.ID, models.ActionDelete, &file.ID, map[string]interface{}{
		"filename": file.Filename,
	}, ip)
	return nil
}

// DeleteMany deletes each listed file, collecting per-file failures instead
// of stopping at the first one. The returned slice holds the ids that were
// actually removed.
func (s *FileService) DeleteMany(ctx context.Context, user *models.User, fileIDs []uuid.UUID, ip string) ([]uuid.UUID, error) {
	var result *multierror.Error
	deleted := make([]uuid.UUID, 0, len(fileIDs))

	for _, id := range fileIDs {
		if err := s.Delete(ctx, user, id, ip); err != nil {
			result = multierror.Append(result, fmt.Errorf("file %s: %w", id, err))
			continue
		}
		deleted = append(deleted, id)
	}
	return deleted, result.ErrorOrNil()
}

// BundleZip streams a zip archive of the files' current content to w.
// Missing ids are skipped; a permission failure on any file aborts the
// whole bundle.
func (s *FileService) BundleZip(ctx context.Context, user *models.User, fileIDs []uuid.UUID, w io.Writer, ip string) error {
	zw := zip.NewWriter(w)

	bundled := 0
	for _, id := range fileIDs {
		file, err := s.requireFile(ctx, user, id, access.CanDownload)
		if errors.Is(err, apperrors.ErrNotFound) {
			continue
		}
		if err != nil {
			zw.Close()
			return err
		}

		rc, _, err := s.store.Open(file.Filepath)
		if err != nil {
			zw.Close()
			return err
		}

		entry, err := zw.Create(file.Filename)
		if err != nil {
			rc.Close()
			zw.Close()
			return fmt.Errorf("failed to add %s to archive: %w", file.Filename, err)
		}
		if _, err := io.Copy(entry, rc); err != nil {
			rc.Close()
			zw.Close()
			return fmt.Errorf("failed to archive %s: %w", file.Filename, err)
		}
		rc.Close()
		bundled++

		s.audit.Record(ctx, &user.ID, models.ActionDownload, &file.ID, map[string]interface{}{
			"zip_part": true,
		}, ip)
	}

	if bundled == 0 {
		zw.Close()
		return fmt.Errorf("%w: no files found for the given ids", apperrors.ErrNotFound)
	}
	return zw.Close()
}

// RemoveAllOwnedBy deletes every file owned by ownerID with the same
// refcount discipline as Delete. Used when an account is removed.
func (s *FileService) RemoveAllOwnedBy(ctx context.Context, admin *models.User, ownerID uuid.UUID, ip string) error {
	files, err := s.files.ListByOwner(ctx, ownerID, "", "date_desc")
	if err != nil {
		return err
	}

	var result *multierror.Error
	for _, file := range files {
		if err := s.Delete(ctx, admin, file.ID, ip); err != nil {
			result = multierror.Append(result, fmt.Errorf("file %s: %w", file.ID, err))
		}
	}
	return result.ErrorOrNil()
}
