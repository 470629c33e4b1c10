package httpapi

import (
	"net/http"
	"strings"

	"yourloops-dashboard/internal/domain"
	"yourloops-dashboard/internal/service"

	"go.uber.org/zap"
)

type TeamsHandler struct {
	teams    *service.TeamService
	patients *service.PatientService
	logger   *zap.Logger
}

func NewTeamsHandler(teams *service.TeamService, patients *service.PatientService, logger *zap.Logger) *TeamsHandler {
	return &TeamsHandler{teams: teams, patients: patients, logger: logger}
}

func (h *TeamsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	seg := pathSegments(r.URL.Path, "/api/v1/teams")

	switch {
	case len(seg) == 0 && r.Method == http.MethodGet:
		h.ListTeams(w, r, user)
	case len(seg) == 0 && r.Method == http.MethodPost:
		h.CreateTeam(w, r, user)
	case len(seg) == 1 && seg[0] == "default" && r.Method == http.MethodGet:
		h.DefaultTeam(w, r, user)
	case len(seg) == 2 && seg[0] == "code" && r.Method == http.MethodGet:
		h.GetTeamFromCode(w, r, seg[1])
	case len(seg) == 1 && r.Method == http.MethodGet:
		h.GetTeam(w, r, user, seg[0])
	case len(seg) == 1 && r.Method == http.MethodPut:
		h.UpdateTeam(w, r, user, seg[0])
	case len(seg) == 1 && r.Method == http.MethodDelete:
		h.DeleteTeam(w, r, user, seg[0])
	case len(seg) == 2 && seg[1] == "monitoring" && r.Method == http.MethodPut:
		h.UpdateMonitoring(w, r, user, seg[0])
	case len(seg) == 2 && seg[1] == "leave" && r.Method == http.MethodPost:
		h.LeaveTeam(w, r, user, seg[0])
	case len(seg) == 2 && seg[1] == "join" && r.Method == http.MethodPost:
		h.JoinTeam(w, r, user, seg[0])
	case len(seg) == 3 && seg[1] == "members" && seg[2] == "invite" && r.Method == http.MethodPost:
		h.InviteMember(w, r, user, seg[0])
	case len(seg) == 3 && seg[1] == "members" && r.Method == http.MethodDelete:
		h.RemoveMember(w, r, user, seg[0], seg[2])
	case len(seg) == 4 && seg[1] == "members" && seg[3] == "role" && r.Method == http.MethodPut:
		h.ChangeMemberRole(w, r, user, seg[0], seg[2])
	default:
		rejectRoute(w, isTeamPath(seg))
	}
}

func isTeamPath(seg []string) bool {
	switch len(seg) {
	case 0, 1:
		return true
	case 2:
		return seg[0] == "code" || seg[1] == "monitoring" || seg[1] == "leave" || seg[1] == "join"
	case 3:
		return seg[1] == "members"
	case 4:
		return seg[1] == "members" && seg[3] == "role"
	}
	return false
}

// ListTeams returns the caller's teams, private team first.
// include=patients merges the computed patients into each team;
// type=medical drops the private team.
func (h *TeamsHandler) ListTeams(w http.ResponseWriter, r *http.Request, user domain.User) {
	q := r.URL.Query()
	if q.Get("include") == "patients" {
		res, err := h.teams.LoadTeams(r.Context(), user)
		if err != nil {
			writeError(w, h.logger, "LoadTeams", err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(res))
		return
	}

	var (
		teams []domain.Team
		err   error
	)
	if q.Get("type") == string(domain.TeamTypeMedical) {
		teams, err = h.teams.GetMedicalTeams(r.Context(), user)
	} else {
		teams, err = h.teams.GetTeams(r.Context(), user)
	}
	if err != nil {
		writeError(w, h.logger, "ListTeams", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(teams))
}

func (h *TeamsHandler) DefaultTeam(w http.ResponseWriter, r *http.Request, user domain.User) {
	id, err := h.teams.DefaultTeamID(r.Context(), user)
	if err != nil {
		writeError(w, h.logger, "DefaultTeamID", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]string{"teamId": id}))
}

type teamRequest struct {
	Name       string             `json:"name" validate:"required"`
	Phone      string             `json:"phone" validate:"required"`
	Email      string             `json:"email" validate:"omitempty,email"`
	Address    *domain.Address    `json:"address" validate:"required"`
	Monitoring *domain.Monitoring `json:"monitoring,omitempty"`
}

func (req teamRequest) toService() service.CreateTeamRequest {
	return service.CreateTeamRequest{
		Name:       strings.TrimSpace(req.Name),
		Phone:      strings.TrimSpace(req.Phone),
		Email:      strings.TrimSpace(req.Email),
		Address:    req.Address,
		Monitoring: req.Monitoring,
	}
}

func (h *TeamsHandler) CreateTeam(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req teamRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	team, err := h.teams.CreateTeam(r.Context(), user, req.toService())
	if err != nil {
		writeError(w, h.logger, "CreateTeam", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(team))
}

// GetTeamFromCode answers a null result for unknown codes.
func (h *TeamsHandler) GetTeamFromCode(w http.ResponseWriter, r *http.Request, code string) {
	team, err := h.teams.GetTeamFromCode(r.Context(), code)
	if err != nil {
		writeError(w, h.logger, "GetTeamFromCode", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(team))
}

func (h *TeamsHandler) GetTeam(w http.ResponseWriter, r *http.Request, user domain.User, teamID string) {
	team, err := h.teams.GetTeam(r.Context(), user, teamID)
	if err != nil {
		writeError(w, h.logger, "GetTeam", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(team))
}

func (h *TeamsHandler) UpdateTeam(w http.ResponseWriter, r *http.Request, user domain.User, teamID string) {
	var req teamRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	team, err := h.teams.UpdateTeam(r.Context(), user, service.UpdateTeamRequest{
		TeamID:            teamID,
		CreateTeamRequest: req.toService(),
	})
	if err != nil {
		writeError(w, h.logger, "UpdateTeam", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(team))
}

func (h *TeamsHandler) DeleteTeam(w http.ResponseWriter, r *http.Request, user domain.User, teamID string) {
	if err := h.teams.DeleteTeam(r.Context(), user, teamID); err != nil {
		writeError(w, h.logger, "DeleteTeam", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

func (h *TeamsHandler) UpdateMonitoring(w http.ResponseWriter, r *http.Request, user domain.User, teamID string) {
	var monitoring domain.Monitoring
	if err := readBodyJSON(r, maxBodyBytes, &monitoring); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	if err := h.teams.UpdateTeamMonitoring(r.Context(), user, teamID, &monitoring); err != nil {
		writeError(w, h.logger, "UpdateTeamMonitoring", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

// LeaveTeam: patients drop their own link, HCPs go through the admin rules.
func (h *TeamsHandler) LeaveTeam(w http.ResponseWriter, r *http.Request, user domain.User, teamID string) {
	var err error
	if user.Role == domain.RolePatient {
		err = h.patients.LeaveTeam(r.Context(), user, teamID)
	} else {
		err = h.teams.LeaveTeam(r.Context(), user, teamID)
	}
	if err != nil {
		writeError(w, h.logger, "LeaveTeam", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

func (h *TeamsHandler) JoinTeam(w http.ResponseWriter, r *http.Request, user domain.User, teamID string) {
	if err := h.teams.JoinTeam(r.Context(), user, teamID); err != nil {
		writeError(w, h.logger, "JoinTeam", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

type memberInviteRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=admin member"`
}

func (h *TeamsHandler) InviteMember(w http.ResponseWriter, r *http.Request, user domain.User, teamID string) {
	var req memberInviteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	inv, err := h.teams.InviteMember(r.Context(), user, teamID, strings.TrimSpace(req.Email), domain.TeamMemberRole(req.Role))
	if err != nil {
		writeError(w, h.logger, "InviteMember", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(inv))
}

func (h *TeamsHandler) RemoveMember(w http.ResponseWriter, r *http.Request, user domain.User, teamID, userID string) {
	if err := h.teams.RemoveMember(r.Context(), user, teamID, userID); err != nil {
		writeError(w, h.logger, "RemoveMember", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

type roleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin member"`
}

func (h *TeamsHandler) ChangeMemberRole(w http.ResponseWriter, r *http.Request, user domain.User, teamID, userID string) {
	var req roleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.teams.ChangeMemberRole(r.Context(), user, teamID, userID, domain.TeamMemberRole(req.Role)); err != nil {
		writeError(w, h.logger, "ChangeMemberRole", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}
