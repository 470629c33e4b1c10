package httpapi

import (
	"net/http"
	"strings"

	"yourloops-dashboard/internal/domain"
	"yourloops-dashboard/internal/patientlist"
	"yourloops-dashboard/internal/service"

	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// PatientsHandler serves /api/v1/patients and the patient routes nested under a team.
type PatientsHandler struct {
	patients *service.PatientService
	summary  *service.SummaryService
	logger   *zap.Logger
}

func NewPatientsHandler(patients *service.PatientService, summary *service.SummaryService, logger *zap.Logger) *PatientsHandler {
	return &PatientsHandler{patients: patients, summary: summary, logger: logger}
}

func (h *PatientsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	seg := pathSegments(r.URL.Path, "/api/v1/patients")

	switch {
	case len(seg) == 0 && r.Method == http.MethodGet:
		h.ListPatients(w, r, user)
	case len(seg) == 1 && seg[0] == "stats" && r.Method == http.MethodGet:
		h.FilterStats(w, r, user)
	case len(seg) == 1 && seg[0] == "flagged" && r.Method == http.MethodGet:
		h.FlaggedPatients(w, r, user)
	case len(seg) == 1 && seg[0] == "lookup" && r.Method == http.MethodGet:
		h.GetPatientByEmail(w, r, user)
	case len(seg) == 1 && r.Method == http.MethodGet:
		h.GetPatient(w, r, user, seg[0])
	case len(seg) == 2 && seg[1] == "summary" && r.Method == http.MethodGet:
		h.GetSummary(w, r, user, seg[0])
	case len(seg) == 2 && seg[1] == "summary" && r.Method == http.MethodDelete:
		h.CancelSummary(w, r, user, seg[0])
	case len(seg) == 2 && seg[1] == "flag" && r.Method == http.MethodPost:
		h.FlagPatient(w, r, user, seg[0])
	case len(seg) == 2 && seg[1] == "monitoring" && r.Method == http.MethodPut:
		h.UpdateMonitoring(w, r, user, seg[0])
	case len(seg) == 3 && seg[1] == "messages" && seg[2] == "read" && r.Method == http.MethodPost:
		h.MarkMessagesAsRead(w, r, user, seg[0])
	default:
		rejectRoute(w, isPatientPath(seg))
	}
}

func isPatientPath(seg []string) bool {
	switch len(seg) {
	case 0, 1:
		return true
	case 2:
		return seg[1] == "summary" || seg[1] == "flag" || seg[1] == "monitoring"
	case 3:
		return seg[1] == "messages" && seg[2] == "read"
	}
	return false
}

// ServeTeamPatients handles /api/v1/teams/{teamId}/patients/...
func (h *PatientsHandler) ServeTeamPatients(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	seg := pathSegments(r.URL.Path, "/api/v1/teams")
	if len(seg) != 4 || seg[1] != "patients" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	teamID := seg[0]

	switch {
	case seg[3] == "invite" && r.Method == http.MethodPost:
		h.InvitePatient(w, r, user, teamID)
	case seg[3] == "export" && r.Method == http.MethodGet:
		h.ExportPatients(w, r, user, teamID)
	case r.Method == http.MethodDelete:
		h.RemovePatient(w, r, user, teamID, seg[3])
	default:
		rejectRoute(w, true)
	}
}

func isTeamPatientsPath(path string) bool {
	seg := pathSegments(path, "/api/v1/teams")
	return len(seg) >= 2 && seg[1] == "patients"
}

func listRequestFromQuery(r *http.Request) service.ListPatientsRequest {
	q := r.URL.Query()
	return service.ListPatientsRequest{
		TeamID:    q.Get("team_id"),
		Filter:    patientlist.FilterType(q.Get("filter")),
		Search:    q.Get("search"),
		Sort:      patientlist.SortField(q.Get("sort")),
		Direction: patientlist.SortDirection(strings.ToLower(q.Get("direction"))),
		Page:      parseInt(q.Get("page"), 1),
		Size:      parseInt(q.Get("size"), 20),
	}
}

func (h *PatientsHandler) ListPatients(w http.ResponseWriter, r *http.Request, user domain.User) {
	resp, err := h.patients.ListPatients(r.Context(), user, listRequestFromQuery(r))
	if err != nil {
		writeError(w, h.logger, "ListPatients", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *PatientsHandler) FilterStats(w http.ResponseWriter, r *http.Request, user domain.User) {
	stats, err := h.patients.FilterStats(r.Context(), user, r.URL.Query().Get("team_id"))
	if err != nil {
		writeError(w, h.logger, "FilterStats", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(stats))
}

func (h *PatientsHandler) FlaggedPatients(w http.ResponseWriter, r *http.Request, user domain.User) {
	flagged, err := h.patients.FlaggedPatients(r.Context(), user)
	if err != nil {
		writeError(w, h.logger, "FlaggedPatients", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(flagged))
}

func (h *PatientsHandler) GetPatient(w http.ResponseWriter, r *http.Request, user domain.User, patientID string) {
	patient, err := h.patients.GetPatient(r.Context(), user, patientID)
	if err != nil {
		writeError(w, h.logger, "GetPatient", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(patient))
}

func (h *PatientsHandler) GetPatientByEmail(w http.ResponseWriter, r *http.Request, user domain.User) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		writeJSON(w, http.StatusOK, Fail("email is required"))
		return
	}
	patient, err := h.patients.GetPatientByEmail(r.Context(), user, email)
	if err != nil {
		writeError(w, h.logger, "GetPatientByEmail", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(patient))
}

// GetSummary waits on the fetch queue. A client disconnect withdraws this request only.
func (h *PatientsHandler) GetSummary(w http.ResponseWriter, r *http.Request, user domain.User, patientID string) {
	md, err := h.summary.FetchSummary(r.Context(), user, patientID)
	if err != nil {
		if r.Context().Err() != nil {
			h.logger.Debug("Summary request abandoned", zap.String("patient_id", patientID))
			return
		}
		writeError(w, h.logger, "GetSummary", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(md))
}

func (h *PatientsHandler) CancelSummary(w http.ResponseWriter, r *http.Request, user domain.User, patientID string) {
	removed, err := h.summary.CancelSummary(r.Context(), user, patientID)
	if err != nil {
		writeError(w, h.logger, "CancelSummary", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"removed": removed}))
}

func (h *PatientsHandler) FlagPatient(w http.ResponseWriter, r *http.Request, user domain.User, patientID string) {
	flagged, err := h.patients.FlagPatient(r.Context(), user, patientID)
	if err != nil {
		writeError(w, h.logger, "FlagPatient", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(flagged))
}

func (h *PatientsHandler) UpdateMonitoring(w http.ResponseWriter, r *http.Request, user domain.User, patientID string) {
	var monitoring domain.Monitoring
	if err := readBodyJSON(r, maxBodyBytes, &monitoring); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	if err := h.patients.UpdatePatientMonitoring(r.Context(), user, patientID, &monitoring); err != nil {
		writeError(w, h.logger, "UpdatePatientMonitoring", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

func (h *PatientsHandler) MarkMessagesAsRead(w http.ResponseWriter, r *http.Request, user domain.User, patientID string) {
	if err := h.patients.MarkPatientMessagesAsRead(r.Context(), user, patientID); err != nil {
		writeError(w, h.logger, "MarkPatientMessagesAsRead", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

type inviteRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *PatientsHandler) InvitePatient(w http.ResponseWriter, r *http.Request, user domain.User, teamID string) {
	var req inviteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	inv, err := h.patients.InvitePatient(r.Context(), user, teamID, strings.TrimSpace(req.Email))
	if err != nil {
		writeError(w, h.logger, "InvitePatient", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(inv))
}

func (h *PatientsHandler) RemovePatient(w http.ResponseWriter, r *http.Request, user domain.User, teamID, patientID string) {
	if err := h.patients.RemovePatient(r.Context(), user, patientID, teamID); err != nil {
		writeError(w, h.logger, "RemovePatient", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

// ExportPatients streams the filtered table of teamID as an XLSX workbook.
func (h *PatientsHandler) ExportPatients(w http.ResponseWriter, r *http.Request, user domain.User, teamID string) {
	data, err := h.patients.ExportPatients(r.Context(), user, teamID, listRequestFromQuery(r))
	if err != nil {
		writeError(w, h.logger, "ExportPatients", err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="patients.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
