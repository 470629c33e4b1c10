package httpapi

import (
	"net/http"
	"strings"

	"yourloops-dashboard/internal/domain"
	"yourloops-dashboard/internal/service"

	"go.uber.org/zap"
)

// CaregiversHandler serves the calling patient's direct shares.
type CaregiversHandler struct {
	caregivers *service.CaregiverService
	logger     *zap.Logger
}

func NewCaregiversHandler(caregivers *service.CaregiverService, logger *zap.Logger) *CaregiversHandler {
	return &CaregiversHandler{caregivers: caregivers, logger: logger}
}

func (h *CaregiversHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	seg := pathSegments(r.URL.Path, "/api/v1/caregivers")

	switch {
	case len(seg) == 0 && r.Method == http.MethodGet:
		h.List(w, r, user)
	case len(seg) == 1 && seg[0] == "invite" && r.Method == http.MethodPost:
		h.Invite(w, r, user)
	case len(seg) == 1 && r.Method == http.MethodDelete:
		h.Remove(w, r, user, seg[0])
	default:
		rejectRoute(w, len(seg) <= 1)
	}
}

func (h *CaregiversHandler) List(w http.ResponseWriter, r *http.Request, user domain.User) {
	shares, err := h.caregivers.ListCaregivers(r.Context(), user)
	if err != nil {
		writeError(w, h.logger, "ListCaregivers", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(shares))
}

func (h *CaregiversHandler) Invite(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req inviteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	inv, err := h.caregivers.InviteCaregiver(r.Context(), user, strings.TrimSpace(req.Email))
	if err != nil {
		writeError(w, h.logger, "InviteCaregiver", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(inv))
}

func (h *CaregiversHandler) Remove(w http.ResponseWriter, r *http.Request, user domain.User, viewerID string) {
	if err := h.caregivers.RemoveDirectShare(r.Context(), user, user.ID, viewerID); err != nil {
		writeError(w, h.logger, "RemoveDirectShare", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}
