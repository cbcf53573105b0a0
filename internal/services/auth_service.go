package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"fileops-backend/internal/apperrors"
	"fileops-backend/internal/dto"
	"fileops-backend/internal/models"
	"fileops-backend/internal/repository"
)

type AuthService struct {
	users     repository.UserRepository
	audit     *AuditService
	jwtSecret string
}

func NewAuthService(users repository.UserRepository, audit *AuditService, jwtSecret string) *AuthService {
	return &AuthService{users: users, audit: audit, jwtSecret: jwtSecret}
}

func (s *AuthService) RegisterUser(ctx context.Context, req *dto.RegisterUserRequest, ip string) error {
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return fmt.Errorf("%w: username, email and password are required", apperrors.ErrValidation)
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(bytes),
		Role:         models.UserRoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return err
	}

	s.audit.Record(ctx, &user.ID, models.ActionRegister, nil, nil, ip)
	return nil
}

func (s *AuthService) LoginUser(ctx context.Context, req *dto.LoginUserRequest, ip string) (string, *models.User, error) {
	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		// Absent user and bad password are indistinguishable to the caller.
		return "", nil, fmt.Errorf("%w: invalid username or password", apperrors.ErrUnauthenticated)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return "", nil, fmt.Errorf("%w: invalid username or password", apperrors.ErrUnauthenticated)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userID":   user.ID.String(),
		"username": user.Username,
		"email":    user.Email,
		"role":     user.Role,
		"exp":      time.Now().Add(time.Hour * 24).Unix(),
	})

	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	s.audit.Record(ctx, &user.ID, models.ActionLogin, nil, nil, ip)
	return tokenString, user, nil
}

// LogoutUser only records the action; the cookie is cleared by the handler
// and there is no server-side token blacklist.
func (s *AuthService) LogoutUser(ctx context.Context, userID uuid.UUID, ip string) {
	s.audit.Record(ctx, &userID, models.ActionLogout, nil, nil, ip)
}

func (s *AuthService) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

// UpdateProfile applies a partial self-update. Changing the password
// requires proving knowledge of the old one.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *dto.UpdateProfileRequest) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	updated := false
	if req.Username != nil && *req.Username != user.Username {
		if *req.Username == "" {
			return nil, fmt.Errorf("%w: username cannot be empty", apperrors.ErrValidation)
		}
		user.Username = *req.Username
		updated = true
	}
	if req.Email != nil && *req.Email != user.Email {
		if *req.Email == "" {
			return nil, fmt.Errorf("%w: email cannot be empty", apperrors.ErrValidation)
		}
		user.Email = *req.Email
		updated = true
	}
	if req.NewPassword != nil {
		if req.OldPassword == nil {
			return nil, fmt.Errorf("%w: old password is required to set a new password", apperrors.ErrValidation)
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(*req.OldPassword)); err != nil {
			return nil, fmt.Errorf("%w: invalid old password", apperrors.ErrUnauthenticated)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = string(hash)
		updated = true
	}

	if updated {
		if err := s.users.Update(ctx, user); err != nil {
			return nil, err
		}
	}
	return user, nil
}
