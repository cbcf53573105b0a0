package handlers

import (
	"encoding/json"
	"net/http"

	"fileops-backend/internal/dto"
	"fileops-backend/internal/services"
	"fileops-backend/utils/response"
)

type AdminHandler struct {
	service *services.UserService
}

func NewAdminHandler(service *services.UserService) *AdminHandler {
	return &AdminHandler{service: service}
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	admin := currentUser(r)
	if admin == nil {
		response.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	users, err := h.service.ListUsers(r.Context(), admin)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SuccessResponse{
		Success: true,
		Data:    users,
	})
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	admin := currentUser(r)
	if admin == nil {
		response.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	userID, ok := pathUUID(r, "id")
	if !ok {
		response.Error(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	if err := h.service.DeleteUser(r.Context(), admin, userID, clientIP(r)); err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SuccessResponse{
		Success: true,
		Message: "User deleted",
	})
}

func (h *AdminHandler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	admin := currentUser(r)
	if admin == nil {
		response.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	userID, ok := pathUUID(r, "id")
	if !ok {
		response.Error(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	var req dto.RoleUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.service.UpdateRole(r.Context(), admin, userID, req.Role)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SuccessResponse{
		Success: true,
		Data:    user,
		Message: "Role updated",
	})
}
