package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"yourloops-dashboard/internal/dataapi"
	"yourloops-dashboard/internal/domain"
	"yourloops-dashboard/internal/repository"
	"yourloops-dashboard/internal/service"
	"yourloops-dashboard/internal/summary"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

var (
	testHCP      = domain.User{ID: "hcp1", Email: "doc@example.com", Role: domain.RoleHCP}
	testPatient  = domain.User{ID: "aaa1", Email: "ada@example.com", Role: domain.RolePatient}
	testOutsider = domain.User{ID: "zzz9", Email: "zed@example.com", Role: domain.RoleCaregiver}
)

type stubFetcher struct{}

func (stubFetcher) FetchSummary(_ context.Context, _ dataapi.Session, _ domain.User) (*domain.MedicalData, error) {
	return &domain.MedicalData{Range: &domain.DataRange{Start: "2024-01-01", End: "2024-01-31"}}, nil
}

type testEnv struct {
	router *Router
	mem    *repository.Memory
	queue  *summary.Queue
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	mem := repository.NewMemory()
	mem.PutAccount(repository.Account{UserID: testHCP.ID, Email: testHCP.Email, Role: domain.RoleHCP})
	mem.PutAccount(repository.Account{UserID: testPatient.ID, Email: testPatient.Email, Role: domain.RolePatient,
		Profile: &domain.MemberProfile{FirstName: "Ada", LastName: "Lovelace", FullName: "Ada Lovelace"}})

	require.NoError(t, mem.CreateTeam(ctx, &domain.Team{
		ID: "team-a", Name: "Alpha", Code: "111111111", Type: domain.TeamTypeMedical,
		Members: []domain.TeamMember{
			{UserID: testHCP.ID, Email: testHCP.Email, Role: domain.MemberRoleAdmin, Status: domain.StatusAccepted},
		},
	}))
	require.NoError(t, mem.UpsertMember(ctx, &domain.TeamMember{
		TeamID: "team-a", UserID: testPatient.ID, Email: testPatient.Email, Role: domain.MemberRolePatient,
		Status:  domain.StatusAccepted,
		Profile: &domain.MemberProfile{FirstName: "Ada", LastName: "Lovelace", FullName: "Ada Lovelace"},
	}))

	logger := zap.NewNop()
	repos := mem.Repositories()
	patients := service.NewPatientService(repos, nil, time.UTC, logger)
	teams := service.NewTeamService(repos, patients, nil, logger)
	queue := summary.NewQueue(stubFetcher{}, nil, logger)
	t.Cleanup(queue.Close)

	ph := NewPatientsHandler(patients, service.NewSummaryService(queue, patients, logger), logger)
	router := NewRouter(logger)
	router.RegisterHealthRoutes(queue.Pending)
	router.RegisterPatientRoutes(ph)
	router.RegisterTeamRoutes(NewTeamsHandler(teams, patients, logger), ph)
	router.RegisterInvitationRoutes(NewInvitationsHandler(service.NewInvitationService(repos, logger), logger))
	router.RegisterCaregiverRoutes(NewCaregiversHandler(service.NewCaregiverService(repos, logger), logger))
	return &testEnv{router: router, mem: mem, queue: queue}
}

func (e *testEnv) do(t *testing.T, user *domain.User, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != nil {
		req.Header.Set(HeaderUserID, user.ID)
		req.Header.Set(HeaderUserEmail, user.Email)
		req.Header.Set(HeaderUserRole, string(user.Role))
		req.Header.Set(HeaderSessionToken, "session-token")
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decodeResult(t *testing.T, rr *httptest.ResponseRecorder) Result[json.RawMessage] {
	t.Helper()
	var res Result[json.RawMessage]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	return res
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, nil, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"code":2000`)
	assert.Contains(t, rr.Body.String(), `"pendingSummaries":0`)
}

func TestMissingIdentity(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, nil, http.MethodGet, "/api/v1/patients", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, ResultUnauthorized, decodeResult(t, rr).Code)
}

func TestRouteRejections(t *testing.T) {
	env := newTestEnv(t)
	cases := []struct {
		method, path string
		want         int
	}{
		{http.MethodPut, "/api/v1/patients", http.StatusMethodNotAllowed},
		{http.MethodPatch, "/api/v1/patients/aaa1", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/patients/aaa1/flag", http.StatusMethodNotAllowed},
		{http.MethodPatch, "/api/v1/teams/team-a", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/teams/team-a/members/hcp1/role", http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/v1/teams/team-a/patients/export", http.StatusMethodNotAllowed},
		{http.MethodDelete, "/api/v1/invitations/sent", http.StatusMethodNotAllowed},
		{http.MethodPut, "/api/v1/caregivers", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/patients/aaa1/unknown", http.StatusNotFound},
		{http.MethodGet, "/api/v1/teams/team-a/members/hcp1/unknown", http.StatusNotFound},
		{http.MethodGet, "/api/v1/invitations/a/b/c", http.StatusNotFound},
		{http.MethodGet, "/api/v1/caregivers/a/b", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rr := env.do(t, &testHCP, tc.method, tc.path, nil)
			assert.Equal(t, tc.want, rr.Code)
		})
	}
}

func TestListPatients(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, &testHCP, http.MethodGet, "/api/v1/patients?team_id=team-a&sort=fullName&direction=asc", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"code":2000`)

	var res Result[service.ListPatientsResponse]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.Len(t, res.Result.Items, 1)
	assert.Equal(t, testPatient.ID, res.Result.Items[0].UserID)
	assert.Equal(t, 1, res.Result.Page)
}

func TestGetPatient_NotFound(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, &testHCP, http.MethodGet, "/api/v1/patients/nobody", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	res := decodeResult(t, rr)
	assert.Equal(t, ResultError, res.Code)
	assert.Equal(t, domain.ErrPatientNotFound.Error(), res.Message)
}

func TestFlagPatient_Toggles(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, &testHCP, http.MethodPost, "/api/v1/patients/aaa1/flag", nil)
	var res Result[[]string]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, []string{"aaa1"}, res.Result)

	rr = env.do(t, &testHCP, http.MethodPost, "/api/v1/patients/aaa1/flag", nil)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Empty(t, res.Result)
}

func TestSummary_FetchAndCancel(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, &testHCP, http.MethodGet, "/api/v1/patients/aaa1/summary", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var res Result[domain.MedicalData]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.NotNil(t, res.Result.Range)
	assert.Equal(t, "2024-01-31", res.Result.Range.End)

	rr = env.do(t, &testHCP, http.MethodDelete, "/api/v1/patients/aaa1/summary", nil)
	assert.Contains(t, rr.Body.String(), `"removed":false`)
}

func TestPatientRoutes_RequireVisibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m, err := env.mem.GetMember(ctx, "team-a", testPatient.ID)
	require.NoError(t, err)
	m.UnreadMessages = 4
	require.NoError(t, env.mem.UpsertMember(ctx, m))

	rr := env.do(t, &testOutsider, http.MethodPost, "/api/v1/patients/aaa1/messages/read", nil)
	assert.Equal(t, domain.ErrPatientNotFound.Error(), decodeResult(t, rr).Message)
	m, err = env.mem.GetMember(ctx, "team-a", testPatient.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, m.UnreadMessages)

	rr = env.do(t, &testOutsider, http.MethodDelete, "/api/v1/patients/aaa1/summary", nil)
	assert.Equal(t, domain.ErrPatientNotFound.Error(), decodeResult(t, rr).Message)

	rr = env.do(t, &testHCP, http.MethodPost, "/api/v1/patients/aaa1/messages/read", nil)
	require.Equal(t, ResultSuccess, decodeResult(t, rr).Code)
	m, err = env.mem.GetMember(ctx, "team-a", testPatient.ID)
	require.NoError(t, err)
	assert.Zero(t, m.UnreadMessages)
}

func TestInvitePatient(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, &testHCP, http.MethodPost, "/api/v1/teams/team-a/patients/invite", map[string]string{"email": "not-an-email"})
	assert.Equal(t, "email must be a valid email", decodeResult(t, rr).Message)

	rr = env.do(t, &testHCP, http.MethodPost, "/api/v1/teams/team-a/patients/invite", map[string]string{"email": "new@example.com"})
	assert.Contains(t, rr.Body.String(), `"code":2000`)

	rr = env.do(t, &testHCP, http.MethodPost, "/api/v1/teams/team-a/patients/invite", map[string]string{"email": "new@example.com"})
	assert.Equal(t, domain.ErrPatientAlreadyInvited.Error(), decodeResult(t, rr).Message)
}

func TestExportPatients(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, &testHCP, http.MethodGet, "/api/v1/teams/team-a/patients/export", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, xlsxContentType, rr.Header().Get("Content-Type"))

	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	name, err := f.GetCellValue("Patients", "A2")
	require.NoError(t, err)
	assert.Contains(t, name, "Lovelace")
}

func TestCreateTeam(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, &testHCP, http.MethodPost, "/api/v1/teams", map[string]any{"name": "Gamma"})
	assert.Equal(t, "phone is required", decodeResult(t, rr).Message)

	body := map[string]any{
		"name":    "Gamma",
		"phone":   "0102030405",
		"email":   "gamma@example.com",
		"address": domain.Address{Line1: "1 rue", Zip: "75000", City: "Paris", Country: "FR"},
	}
	rr = env.do(t, &testHCP, http.MethodPost, "/api/v1/teams", body)
	require.Equal(t, ResultSuccess, decodeResult(t, rr).Code)
	var res Result[domain.Team]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, "Gamma", res.Result.Name)
	assert.Len(t, res.Result.Code, domain.TeamCodeLength)

	rr = env.do(t, &testPatient, http.MethodPost, "/api/v1/teams", body)
	assert.Equal(t, domain.ErrInvalidUserRole.Error(), decodeResult(t, rr).Message)
}

func TestTeamFromCode(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, &testPatient, http.MethodGet, "/api/v1/teams/code/111-111-111", nil)
	var res Result[*domain.Team]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.NotNil(t, res.Result)
	assert.Equal(t, "Alpha", res.Result.Name)
	assert.Empty(t, res.Result.Members)

	rr = env.do(t, &testPatient, http.MethodGet, "/api/v1/teams/code/999999999", nil)
	assert.Contains(t, rr.Body.String(), `"result":null`)
}

func TestListTeams_PrivateFirst(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, &testHCP, http.MethodGet, "/api/v1/teams", nil)
	var res Result[[]domain.Team]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.Len(t, res.Result, 2)
	assert.Equal(t, domain.PrivateTeamID, res.Result[0].ID)
	assert.Equal(t, "team-a", res.Result[1].ID)
}

func TestChangeMemberRole_Validation(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, &testHCP, http.MethodPut, "/api/v1/teams/team-a/members/hcp1/role", map[string]string{"role": "owner"})
	assert.Equal(t, "role must be one of: admin member", decodeResult(t, rr).Message)
}

func TestPatientLeavesTeam(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, &testPatient, http.MethodPost, "/api/v1/teams/team-a/leave", nil)
	require.Equal(t, ResultSuccess, decodeResult(t, rr).Code)

	_, err := env.mem.GetMember(context.Background(), "team-a", testPatient.ID)
	assert.ErrorIs(t, err, domain.ErrNotTeamMember)
}

func TestInvitationsAndCaregivers(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, &testPatient, http.MethodGet, "/api/v1/invitations", nil)
	assert.Contains(t, rr.Body.String(), `"code":2000`)

	rr = env.do(t, &testPatient, http.MethodPost, "/api/v1/caregivers/invite", map[string]string{"email": "carer@example.com"})
	assert.Contains(t, rr.Body.String(), `"code":2000`)

	rr = env.do(t, &testPatient, http.MethodPost, "/api/v1/invitations/missing/accept", nil)
	assert.Equal(t, ResultError, decodeResult(t, rr).Code)

	rr = env.do(t, &testPatient, http.MethodDelete, "/api/v1/caregivers/unknown", nil)
	assert.Equal(t, domain.ErrShareNotFound.Error(), decodeResult(t, rr).Message)
}

func TestErrorMessage(t *testing.T) {
	msg, ok := errorMessage(domain.ErrInvalidInvitation)
	assert.True(t, ok)
	assert.Equal(t, "error-http-40x", msg)

	msg, ok = errorMessage(&dataapi.StatusError{Op: "summary", Status: http.StatusServiceUnavailable})
	assert.True(t, ok)
	assert.Equal(t, "error-http-500", msg)

	_, ok = errorMessage(context.DeadlineExceeded)
	assert.False(t, ok)
}

func TestPathSegments(t *testing.T) {
	assert.Nil(t, pathSegments("/api/v1/teams", "/api/v1/teams"))
	assert.Nil(t, pathSegments("/api/v1/teams/", "/api/v1/teams"))
	assert.Equal(t, []string{"a", "members", "b"}, pathSegments("/api/v1/teams/a/members/b", "/api/v1/teams"))
	assert.True(t, isTeamPatientsPath("/api/v1/teams/a/patients/export"))
	assert.False(t, isTeamPatientsPath("/api/v1/teams/a/members/invite"))
	assert.False(t, strings.Contains(xlsxContentType, "json"))
}
