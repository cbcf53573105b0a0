package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"fileops-backend/internal/apperrors"
)

type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    int    `json:"code"`
}

func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func Success(w http.ResponseWriter, data interface{}, message string) {
	JSON(w, http.StatusOK, SuccessResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}

func Error(w http.ResponseWriter, code int, message string) {
	JSON(w, code, ErrorResponse{
		Success: false,
		Error:   message,
		Code:    code,
	})
}

// FromError maps a service error to its transport status. NotFound is
// checked before Forbidden everywhere in the services, so a 403 here always
// means the target exists.
func FromError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, apperrors.ErrForbidden):
		Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, apperrors.ErrUnauthenticated):
		Error(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, apperrors.ErrConflict):
		Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, apperrors.ErrSizeLimitExceeded):
		Error(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrPathViolation):
		Error(w, http.StatusBadRequest, err.Error())
	default:
		Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
