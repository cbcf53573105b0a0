package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"fileops-backend/internal/apperrors"
	"fileops-backend/internal/models"
	"fileops-backend/internal/repository"
)

// In-memory repositories backing the service tests. They enforce the same
// uniqueness rules as the SQL schema (owner+filename, file+version) and are
// safe for concurrent use.

type memFileRepo struct {
	mu        sync.Mutex
	files     map[uuid.UUID]*models.File
	versions  []*models.FileVersion
	versionID int64
}

func newMemFileRepo() *memFileRepo {
	return &memFileRepo{files: make(map[uuid.UUID]*models.File)}
}

func (r *memFileRepo) Create(ctx context.Context, file *models.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.files {
		if f.OwnerID == file.OwnerID && f.Filename == file.Filename {
			return fmt.Errorf("%w: file %q already exists for this user", apperrors.ErrConflict, file.Filename)
		}
	}
	clone := *file
	r.files[file.ID] = &clone
	return nil
}

func (r *memFileRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: file %s", apperrors.ErrNotFound, id)
	}
	clone := *f
	return &clone, nil
}

func (r *memFileRepo) GetByOwnerAndName(ctx context.Context, ownerID uuid.UUID, filename string) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.files {
		if f.OwnerID == ownerID && f.Filename == filename {
			clone := *f
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("%w: file %q", apperrors.ErrNotFound, filename)
}

func (r *memFileRepo) GetByShareToken(ctx context.Context, token string) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.files {
		if f.ShareToken != nil && *f.ShareToken == token {
			clone := *f
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("%w: share link", apperrors.ErrNotFound)
}

func (r *memFileRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, search string, sortKey string) ([]models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.File
	for _, f := range r.files {
		if f.OwnerID == ownerID && strings.Contains(strings.ToLower(f.Filename), strings.ToLower(search)) {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out, nil
}

func (r *memFileRepo) UpdateCurrent(ctx context.Context, fileID uuid.UUID, version int, path string, size int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[fileID]
	if !ok {
		return fmt.Errorf("%w: file %s", apperrors.ErrNotFound, fileID)
	}
	f.CurrentVersion = version
	f.Filepath = path
	f.Size = size
	return nil
}

func (r *memFileRepo) SetShareToken(ctx context.Context, fileID uuid.UUID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[fileID]
	if !ok {
		return fmt.Errorf("%w: file %s", apperrors.ErrNotFound, fileID)
	}
	f.ShareToken = &token
	return nil
}

func (r *memFileRepo) Delete(ctx context.Context, fileID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.files[fileID]; !ok {
		return fmt.Errorf("%w: file %s", apperrors.ErrNotFound, fileID)
	}
	delete(r.files, fileID)
	kept := r.versions[:0]
	for _, v := range r.versions {
		if v.FileID != fileID {
			kept = append(kept, v)
		}
	}
	r.versions = kept
	return nil
}

func (r *memFileRepo) NextVersionNumber(ctx context.Context, fileID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := 0
	for _, v := range r.versions {
		if v.FileID == fileID && v.VersionNumber > max {
			max = v.VersionNumber
		}
	}
	return max + 1, nil
}

func (r *memFileRepo) AppendVersion(ctx context.Context, version *models.FileVersion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.versions {
		if v.FileID == version.FileID && v.VersionNumber == version.VersionNumber {
			return fmt.Errorf("%w: version %d already exists", apperrors.ErrConflict, version.VersionNumber)
		}
	}
	r.versionID++
	version.ID = r.versionID
	clone := *version
	r.versions = append(r.versions, &clone)
	return nil
}

func (r *memFileRepo) ListVersions(ctx context.Context, fileID uuid.UUID) ([]models.FileVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.FileVersion
	for _, v := range r.versions {
		if v.FileID == fileID {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNumber < out[j].VersionNumber })
	return out, nil
}

func (r *memFileRepo) GetVersion(ctx context.Context, fileID uuid.UUID, number int) (*models.FileVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.versions {
		if v.FileID == fileID && v.VersionNumber == number {
			clone := *v
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("%w: version %d", apperrors.ErrNotFound, number)
}

func (r *memFileRepo) CurrentVersion(ctx context.Context, fileID uuid.UUID) (*models.FileVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var current *models.FileVersion
	for _, v := range r.versions {
		if v.FileID == fileID && (current == nil || v.VersionNumber > current.VersionNumber) {
			current = v
		}
	}
	if current == nil {
		return nil, fmt.Errorf("%w: no versions", apperrors.ErrNotFound)
	}
	clone := *current
	return &clone, nil
}

func (r *memFileRepo) CountVersions(ctx context.Context, fileID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, v := range r.versions {
		if v.FileID == fileID {
			count++
		}
	}
	return count, nil
}

func (r *memFileRepo) FindVersionsByChecksum(ctx context.Context, checksum string) ([]models.FileVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.FileVersion
	for _, v := range r.versions {
		if v.Checksum == checksum {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memFileRepo) CountPathRefs(ctx context.Context, path string, excludeFileID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, v := range r.versions {
		if v.Filepath == path && v.FileID != excludeFileID {
			count++
		}
	}
	return count, nil
}

type memUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[uuid.UUID]*models.User)}
}

func (r *memUserRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return fmt.Errorf("%w: username or email already taken", apperrors.ErrConflict)
		}
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", apperrors.ErrNotFound, id)
	}
	clone := *u
	return &clone, nil
}

func (r *memUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("%w: user %q", apperrors.ErrNotFound, username)
}

func (r *memUserRepo) List(ctx context.Context) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.User
	for _, u := range r.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *memUserRepo) Update(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return fmt.Errorf("%w: user %s", apperrors.ErrNotFound, user.ID)
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *memFileRepo) allVersions() []models.FileVersion {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.FileVersion, 0, len(r.versions))
	for _, v := range r.versions {
		out = append(out, *v)
	}
	return out
}

func (r *memUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return fmt.Errorf("%w: user %s", apperrors.ErrNotFound, id)
	}
	delete(r.users, id)
	return nil
}

type memAuditRepo struct {
	mu      sync.Mutex
	entries []models.LogEntry
	nextID  int64
}

func (r *memAuditRepo) Insert(ctx context.Context, entry *models.LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	entry.ID = r.nextID
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *memAuditRepo) List(ctx context.Context, filter repository.LogFilter) ([]models.LogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.LogEntry, len(r.entries))
	copy(out, r.entries)
	return out, nil
}

func (r *memAuditRepo) ActionCounts(ctx context.Context) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int64)
	for _, e := range r.entries {
		counts[string(e.Action)]++
	}
	return counts, nil
}

func (r *memAuditRepo) DistinctUsers(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	for _, e := range r.entries {
		if e.UserID != nil {
			seen[*e.UserID] = true
		}
	}
	return int64(len(seen)), nil
}

func (r *memAuditRepo) actions() []models.LogAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.LogAction, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}
