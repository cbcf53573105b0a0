package dto

import "fileops-backend/internal/models"

type RoleUpdateRequest struct {
	Role models.UserRole `json:"role"`
}
