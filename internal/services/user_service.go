package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"fileops-backend/internal/access"
	"fileops-backend/internal/apperrors"
	"fileops-backend/internal/models"
	"fileops-backend/internal/repository"
)

// UserService covers admin account management. File cleanup on account
// deletion goes through FileService so deduplicated content is reference
// counted the same way as a normal delete.
type UserService struct {
	users repository.UserRepository
	files *FileService
}

func NewUserService(users repository.UserRepository, files *FileService) *UserService {
	return &UserService{users: users, files: files}
}

func (s *UserService) ListUsers(ctx context.Context, admin *models.User) ([]models.User, error) {
	if !access.CanManageUsers(admin) {
		return nil, fmt.Errorf("%w: admin access required", apperrors.ErrForbidden)
	}
	return s.users.List(ctx)
}

// DeleteUser removes an account and all of its files. Admins cannot delete
// themselves through this path.
func (s *UserService) DeleteUser(ctx context.Context, admin *models.User, targetID uuid.UUID, ip string) error {
	if !access.CanManageUsers(admin) {
		return fmt.Errorf("%w: admin access required", apperrors.ErrForbidden)
	}
	if targetID == admin.ID {
		return fmt.Errorf("%w: cannot delete your own account", apperrors.ErrValidation)
	}

	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		return err
	}

	// Physical bytes first: the row cascade would drop the ledger entries
	// needed for the reference-count checks.
	if err := s.files.RemoveAllOwnedBy(ctx, admin, targetID, ip); err != nil {
		return fmt.Errorf("failed to clean up files for user %s: %w", targetID, err)
	}
	return s.users.Delete(ctx, targetID)
}

// UpdateRole changes an account's role. Self-changes are rejected so an
// admin cannot accidentally demote the last admin out of the panel.
func (s *UserService) UpdateRole(ctx context.Context, admin *models.User, targetID uuid.UUID, role models.UserRole) (*models.User, error) {
	if !access.CanManageUsers(admin) {
		return nil, fmt.Errorf("%w: admin access required", apperrors.ErrForbidden)
	}
	if role != models.UserRoleAdmin && role != models.UserRoleUser {
		return nil, fmt.Errorf("%w: unknown role %q", apperrors.ErrValidation, role)
	}

	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if targetID == admin.ID && role != target.Role {
		return nil, fmt.Errorf("%w: cannot change your own role", apperrors.ErrValidation)
	}

	target.Role = role
	if err := s.users.Update(ctx, target); err != nil {
		return nil, err
	}
	return target, nil
}
