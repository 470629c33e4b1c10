package httpapi

import (
	"net/http"
	"strings"

	"yourloops-dashboard/internal/domain"
)

// Identity headers set by the gateway after authentication.
const (
	HeaderUserID       = "X-User-Id"
	HeaderUserRole     = "X-User-Role"
	HeaderUserEmail    = "X-User-Email"
	HeaderSessionToken = "X-Session-Token"
)

func userFromRequest(r *http.Request) (domain.User, bool) {
	user := domain.User{
		ID:           strings.TrimSpace(r.Header.Get(HeaderUserID)),
		Email:        strings.TrimSpace(r.Header.Get(HeaderUserEmail)),
		Role:         domain.UserRole(strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderUserRole)))),
		SessionToken: r.Header.Get(HeaderSessionToken),
	}
	if user.ID == "" || user.Role == "" {
		return domain.User{}, false
	}
	return user, true
}

// requireUser writes a 401 when the identity headers are missing.
func requireUser(w http.ResponseWriter, r *http.Request) (domain.User, bool) {
	user, ok := userFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, Result[any]{
			Code:    ResultUnauthorized,
			Type:    "error",
			Message: "unauthorized",
		})
		return domain.User{}, false
	}
	return user, true
}
