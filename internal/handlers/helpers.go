package handlers

import (
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"fileops-backend/internal/middleware"
	"fileops-backend/internal/models"
)

// currentUser rebuilds the authenticated principal from the verified JWT
// claims. Role freshness is bounded by the token lifetime; admin actions
// that must not trust a stale role re-read the account where it matters.
func currentUser(r *http.Request) *models.User {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		return nil
	}
	return &models.User{
		ID:       claims.UserID,
		Username: claims.Username,
		Email:    claims.Email,
		Role:     models.UserRole(claims.Role),
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	return id, err == nil
}
