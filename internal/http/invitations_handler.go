package httpapi

import (
	"net/http"

	"yourloops-dashboard/internal/domain"
	"yourloops-dashboard/internal/service"

	"go.uber.org/zap"
)

type InvitationsHandler struct {
	invitations *service.InvitationService
	logger      *zap.Logger
}

func NewInvitationsHandler(invitations *service.InvitationService, logger *zap.Logger) *InvitationsHandler {
	return &InvitationsHandler{invitations: invitations, logger: logger}
}

func (h *InvitationsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	seg := pathSegments(r.URL.Path, "/api/v1/invitations")

	switch {
	case len(seg) == 0 && r.Method == http.MethodGet:
		h.Pending(w, r, user)
	case len(seg) == 1 && seg[0] == "sent" && r.Method == http.MethodGet:
		h.Sent(w, r, user)
	case len(seg) == 2 && seg[1] == "accept" && r.Method == http.MethodPost:
		h.Accept(w, r, user, seg[0])
	case len(seg) == 2 && seg[1] == "decline" && r.Method == http.MethodPost:
		h.Decline(w, r, user, seg[0])
	case len(seg) == 2 && seg[1] == "cancel" && r.Method == http.MethodPost:
		h.Cancel(w, r, user, seg[0])
	default:
		known := len(seg) == 0 ||
			(len(seg) == 1 && seg[0] == "sent") ||
			(len(seg) == 2 && (seg[1] == "accept" || seg[1] == "decline" || seg[1] == "cancel"))
		rejectRoute(w, known)
	}
}

func (h *InvitationsHandler) Pending(w http.ResponseWriter, r *http.Request, user domain.User) {
	list, err := h.invitations.PendingInvitations(r.Context(), user)
	if err != nil {
		writeError(w, h.logger, "PendingInvitations", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(list))
}

func (h *InvitationsHandler) Sent(w http.ResponseWriter, r *http.Request, user domain.User) {
	list, err := h.invitations.SentInvitations(r.Context(), user)
	if err != nil {
		writeError(w, h.logger, "SentInvitations", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(list))
}

func (h *InvitationsHandler) Accept(w http.ResponseWriter, r *http.Request, user domain.User, id string) {
	if err := h.invitations.Accept(r.Context(), user, id); err != nil {
		writeError(w, h.logger, "AcceptInvitation", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

func (h *InvitationsHandler) Decline(w http.ResponseWriter, r *http.Request, user domain.User, id string) {
	if err := h.invitations.Decline(r.Context(), user, id); err != nil {
		writeError(w, h.logger, "DeclineInvitation", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

type cancelRequest struct {
	TeamID string `json:"teamId"`
	Email  string `json:"email" validate:"omitempty,email"`
}

func (h *InvitationsHandler) Cancel(w http.ResponseWriter, r *http.Request, user domain.User, id string) {
	var req cancelRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	err := h.invitations.Cancel(r.Context(), user, service.CancelInvitationRequest{
		InvitationID: id,
		TeamID:       req.TeamID,
		Email:        req.Email,
	})
	if err != nil {
		writeError(w, h.logger, "CancelInvitation", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}
