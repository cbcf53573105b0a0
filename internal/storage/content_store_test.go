package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"

	"fileops-backend/internal/apperrors"
)

func setupTestStore(t *testing.T) *ContentStore {
	t.Helper()
	store, err := NewContentStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewContentStore failed: %v", err)
	}
	return store
}

func TestSafeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "report.pdf", "report.pdf"},
		{"spaces and unicode", "my rëport (final).pdf", "my_r_port_final_.pdf"},
		{"traversal attempt", "../../etc/passwd", "etc_passwd"},
		{"only unsafe chars", "///..", "file"},
		{"empty", "", "file"},
		{"leading dots stripped", "..hidden", "hidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SafeName(tt.input); got != tt.expected {
				t.Errorf("SafeName(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSafeName_LongNameCapped(t *testing.T) {
	long := strings.Repeat("a", 500)
	if got := SafeName(long); len(got) != 255 {
		t.Errorf("expected name capped at 255 chars, got %d", len(got))
	}
}

func TestVersionPath(t *testing.T) {
	ownerID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	fileID := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	got := VersionPath(ownerID, fileID, 3, "some file.txt")
	expected := "user/11111111-1111-1111-1111-111111111111/file/22222222-2222-2222-2222-222222222222/v3/some_file.txt"
	if got != expected {
		t.Errorf("VersionPath = %q, expected %q", got, expected)
	}
}

func TestResolve_RejectsTraversal(t *testing.T) {
	store := setupTestStore(t)

	for _, rel := range []string{"../outside", "a/../../outside", "a/b/../../../outside"} {
		if _, err := store.Resolve(rel); !errors.Is(err, apperrors.ErrPathViolation) {
			t.Errorf("Resolve(%q): expected ErrPathViolation, got %v", rel, err)
		}
	}
}

func TestResolve_AllowsNestedPaths(t *testing.T) {
	store := setupTestStore(t)

	if _, err := store.Resolve("user/1/file/2/v1/name.txt"); err != nil {
		t.Errorf("Resolve failed for valid path: %v", err)
	}
}

func TestStageAndPromote(t *testing.T) {
	store := setupTestStore(t)
	data := []byte("Hello, World!")

	staged, err := store.Stage(bytes.NewReader(data), 1024)
	if err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	defer staged.Discard()

	if staged.Size != int64(len(data)) {
		t.Errorf("expected size %d, got %d", len(data), staged.Size)
	}
	sum := sha256.Sum256(data)
	if staged.Checksum != hex.EncodeToString(sum[:]) {
		t.Errorf("expected checksum %s, got %s", hex.EncodeToString(sum[:]), staged.Checksum)
	}

	rel := "user/a/file/b/v1/hello.txt"
	if store.Exists(rel) {
		t.Error("final path should not exist before Promote")
	}
	if err := staged.Promote(rel); err != nil {
		t.Fatalf("Promote failed: %v", err)
	}
	if !store.Exists(rel) {
		t.Error("final path should exist after Promote")
	}

	// Round-trip: the promoted bytes are exactly what was staged.
	r, size, err := store.Open(rel)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()
	content, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !bytes.Equal(content, data) {
		t.Errorf("expected content %q, got %q", data, content)
	}
	if size != int64(len(data)) {
		t.Errorf("expected size %d, got %d", len(data), size)
	}
}

func TestStage_SizeLimitSeekableFailsFast(t *testing.T) {
	store := setupTestStore(t)
	data := bytes.Repeat([]byte("x"), 2048)

	_, err := store.Stage(bytes.NewReader(data), 1024)
	if !errors.Is(err, apperrors.ErrSizeLimitExceeded) {
		t.Fatalf("expected ErrSizeLimitExceeded, got %v", err)
	}

	// Fail-fast means nothing was written, not even a temp file.
	entries, err := os.ReadDir(store.root)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, e := range entries {
		if e.Name() == "tmp" {
			t.Error("temp directory should not exist after a failed pre-check")
		}
	}
}

func TestStage_SizeLimitNonSeekable(t *testing.T) {
	store := setupTestStore(t)
	data := bytes.Repeat([]byte("x"), 2048)

	// A bare io.Reader cannot be pre-checked; the limit is caught mid-stream.
	_, err := store.Stage(io.MultiReader(bytes.NewReader(data)), 1024)
	if !errors.Is(err, apperrors.ErrSizeLimitExceeded) {
		t.Fatalf("expected ErrSizeLimitExceeded, got %v", err)
	}
}

func TestDiscard_RemovesTempFile(t *testing.T) {
	store := setupTestStore(t)

	staged, err := store.Stage(bytes.NewReader([]byte("abandoned")), 1024)
	if err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	abs, err := store.Resolve(staged.tmpRel)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if _, err := os.Stat(abs); err != nil {
		t.Fatalf("temp file should exist before Discard: %v", err)
	}

	staged.Discard()

	if _, err := os.Stat(abs); !os.IsNotExist(err) {
		t.Error("temp file should be gone after Discard")
	}
}

func TestPromote_ReplacesExistingFile(t *testing.T) {
	store := setupTestStore(t)
	rel := "user/a/file/b/v1/name.txt"

	first, err := store.Stage(bytes.NewReader([]byte("old")), 1024)
	if err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	if err := first.Promote(rel); err != nil {
		t.Fatalf("Promote failed: %v", err)
	}

	second, err := store.Stage(bytes.NewReader([]byte("new")), 1024)
	if err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	if err := second.Promote(rel); err != nil {
		t.Fatalf("Promote failed: %v", err)
	}

	r, _, err := store.Open(rel)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()
	content, _ := io.ReadAll(r)
	if string(content) != "new" {
		t.Errorf("expected atomically replaced content, got %q", content)
	}
}

func TestDelete_MissingFileIsNotAnError(t *testing.T) {
	store := setupTestStore(t)

	if err := store.Delete("user/a/file/b/v1/gone.txt"); err != nil {
		t.Errorf("Delete of a missing file should succeed, got %v", err)
	}
}

func TestExists(t *testing.T) {
	store := setupTestStore(t)

	if store.Exists("nope.txt") {
		t.Error("Exists should be false for a missing file")
	}
	if store.Exists("../outside") {
		t.Error("Exists should be false for an escaping path")
	}

	staged, err := store.Stage(bytes.NewReader([]byte("x")), 16)
	if err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	if err := staged.Promote("present.txt"); err != nil {
		t.Fatalf("Promote failed: %v", err)
	}
	if !store.Exists("present.txt") {
		t.Error("Exists should be true after Promote")
	}
}
