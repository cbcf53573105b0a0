package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"fileops-backend/internal/apperrors"
	"fileops-backend/internal/models"
)

func versionFixture(fileID uuid.UUID, number int) *models.FileVersion {
	return &models.FileVersion{
		FileID:        fileID,
		VersionNumber: number,
		Filepath:      "user/a/file/b/v2/x.txt",
		Checksum:      "abc",
		Size:          10,
	}
}

func newFileRepoWithMock(t *testing.T) (*PostgresFileRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresFileRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func TestNextVersionNumber(t *testing.T) {
	repo, mock := newFileRepoWithMock(t)
	fileID := uuid.New()

	mock.ExpectQuery(`select coalesce\(max\(version_number\), 0\) \+ 1 from file_versions`).
		WithArgs(fileID).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(4))

	next, err := repo.NextVersionNumber(context.Background(), fileID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next != 4 {
		t.Errorf("expected next version 4, got %d", next)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAppendVersion_UniqueViolationIsConflict(t *testing.T) {
	repo, mock := newFileRepoWithMock(t)
	fileID := uuid.New()

	mock.ExpectQuery(`insert into file_versions`).
		WithArgs(fileID, 2, "user/a/file/b/v2/x.txt", "abc", int64(10), "").
		WillReturnError(&pq.Error{Code: pqUniqueViolation})

	err := repo.AppendVersion(context.Background(), versionFixture(fileID, 2))
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestFindVersionsByChecksum_AscendingID(t *testing.T) {
	repo, mock := newFileRepoWithMock(t)
	fileA, fileB := uuid.New(), uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "file_id", "version_number", "filepath", "checksum", "size", "notes", "created_at"}).
		AddRow(int64(1), fileA, 1, "user/a/file/x/v1/f", "abc", int64(5), "", now).
		AddRow(int64(7), fileB, 3, "user/b/file/y/v3/g", "abc", int64(5), "", now)

	mock.ExpectQuery(`from file_versions where checksum = \$1 order by id asc`).
		WithArgs("abc").
		WillReturnRows(rows)

	versions, err := repo.FindVersionsByChecksum(context.Background(), "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(versions))
	}
	if versions[0].ID != 1 || versions[1].ID != 7 {
		t.Errorf("candidates out of order: %d, %d", versions[0].ID, versions[1].ID)
	}
}

func TestCountPathRefs(t *testing.T) {
	repo, mock := newFileRepoWithMock(t)
	exclude := uuid.New()

	mock.ExpectQuery(`select count\(\*\) from file_versions where filepath = \$1 and file_id <> \$2`).
		WithArgs("user/a/file/x/v1/f", exclude).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountPathRefs(context.Background(), "user/a/file/x/v1/f", exclude)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 references, got %d", count)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock := newFileRepoWithMock(t)
	fileID := uuid.New()

	mock.ExpectQuery(`select .+ from files where id = \$1`).
		WithArgs(fileID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), fileID)
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListByOwner_UnknownSortKey(t *testing.T) {
	repo, _ := newFileRepoWithMock(t)

	_, err := repo.ListByOwner(context.Background(), uuid.New(), "", "by_vibes")
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestValidSortKey(t *testing.T) {
	for _, key := range []string{"date_desc", "date_asc", "name_asc", "name_desc", "size_desc", "size_asc"} {
		if !ValidSortKey(key) {
			t.Errorf("%q should be a valid sort key", key)
		}
	}
	if ValidSortKey("version; drop table files") {
		t.Error("arbitrary input must not be a valid sort key")
	}
}
