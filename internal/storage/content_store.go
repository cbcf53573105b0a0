package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"fileops-backend/internal/apperrors"
)

const (
	chunkSize   = 1 * 1024 * 1024 // 1MB
	maxNameLen  = 255
	defaultName = "file"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ContentStore keeps all physical file content under a single root
// directory. Every relative path is resolved and containment-checked
// before it touches the filesystem.
type ContentStore struct {
	root string
}

func NewContentStore(root string) (*ContentStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &ContentStore{root: abs}, nil
}

// SafeName strips everything but alphanumerics, dot, underscore and hyphen
// from a client-supplied filename, so it can be embedded in a storage path.
func SafeName(name string) string {
	n := unsafeChars.ReplaceAllString(name, "_")
	n = strings.Trim(n, "._")
	if n == "" {
		n = defaultName
	}
	if len(n) > maxNameLen {
		n = n[:maxNameLen]
	}
	return n
}

// VersionPath builds the relative storage path for one version of a file.
// Paths are versioned so distinct versions never collide on disk.
func VersionPath(ownerID, fileID uuid.UUID, version int, filename string) string {
	return fmt.Sprintf("user/%s/file/%s/v%d/%s", ownerID, fileID, version, SafeName(filename))
}

// Resolve maps a relative path to an absolute path under the root and
// rejects anything that would escape it.
func (s *ContentStore) Resolve(rel string) (string, error) {
	abs := filepath.Join(s.root, filepath.FromSlash(rel))
	abs = filepath.Clean(abs)
	if abs != s.root && !strings.HasPrefix(abs, s.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %q", apperrors.ErrPathViolation, rel)
	}
	return abs, nil
}

func (s *ContentStore) Exists(rel string) bool {
	abs, err := s.Resolve(rel)
	if err != nil {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && info.Mode().IsRegular()
}

func (s *ContentStore) Open(rel string) (io.ReadCloser, int64, error) {
	abs, err := s.Resolve(rel)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(abs)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, fmt.Errorf("%w: %s", apperrors.ErrNotFound, rel)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", apperrors.ErrStorageIO, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("%w: %v", apperrors.ErrStorageIO, err)
	}
	return f, info.Size(), nil
}

// Delete unlinks the file at rel. A missing file is not an error: the
// metadata-consistent state is the priority, physical cleanup is best effort.
func (s *ContentStore) Delete(rel string) error {
	abs, err := s.Resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", apperrors.ErrStorageIO, err)
	}
	return nil
}

// StagedUpload is content written to a temporary location, with its digest
// and size computed while streaming. It becomes durable only on Promote.
type StagedUpload struct {
	store  *ContentStore
	tmpRel string

	Size     int64
	Checksum string
}

// Stage streams r to a uniquely-named temp file under the root, computing
// sha256 and byte count in one pass. When r is seekable the total size is
// pre-checked against maxSize before any bytes are written, so oversized
// uploads fail fast; the limit is enforced during streaming regardless.
func (s *ContentStore) Stage(r io.Reader, maxSize int64) (*StagedUpload, error) {
	if seeker, ok := r.(io.Seeker); ok {
		end, err := seeker.Seek(0, io.SeekEnd)
		if err == nil && end > maxSize {
			return nil, fmt.Errorf("%w: %d bytes over %d limit", apperrors.ErrSizeLimitExceeded, end, maxSize)
		}
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrStorageIO, err)
		}
	}

	tmpRel := fmt.Sprintf("tmp/%s.part", uuid.New())
	tmpAbs, err := s.Resolve(tmpRel)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(tmpAbs), 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStorageIO, err)
	}

	f, err := os.Create(tmpAbs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStorageIO, err)
	}

	hash := sha256.New()
	buf := make([]byte, chunkSize)
	size, err := io.CopyBuffer(io.MultiWriter(f, hash), io.LimitReader(r, maxSize+1), buf)
	closeErr := f.Close()
	if err != nil {
		os.Remove(tmpAbs)
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStorageIO, err)
	}
	if closeErr != nil {
		os.Remove(tmpAbs)
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStorageIO, closeErr)
	}
	if size > maxSize {
		os.Remove(tmpAbs)
		return nil, fmt.Errorf("%w: limit is %d bytes", apperrors.ErrSizeLimitExceeded, maxSize)
	}

	return &StagedUpload{
		store:    s,
		tmpRel:   tmpRel,
		Size:     size,
		Checksum: hex.EncodeToString(hash.Sum(nil)),
	}, nil
}

// Promote atomically renames the staged temp file into its final relative
// path. A reader never observes a partially-written file at the final path.
func (u *StagedUpload) Promote(rel string) error {
	finalAbs, err := u.store.Resolve(rel)
	if err != nil {
		return err
	}
	tmpAbs, err := u.store.Resolve(u.tmpRel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(finalAbs), 0755); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStorageIO, err)
	}
	if err := os.Rename(tmpAbs, finalAbs); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStorageIO, err)
	}
	return nil
}

// Discard removes the staged temp file. Safe to call after Promote.
func (u *StagedUpload) Discard() {
	if abs, err := u.store.Resolve(u.tmpRel); err == nil {
		os.Remove(abs)
	}
}
