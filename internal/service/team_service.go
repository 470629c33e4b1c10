package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
	"unicode"

	"yourloops-dashboard/internal/domain"
	"yourloops-dashboard/internal/metrics"
	"yourloops-dashboard/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	teamMetricsCategory = "team_management"
	maxCodeAttempts     = 10
)

// TeamService manages teams and their members.
type TeamService struct {
	repos    *repository.Repositories
	patients *PatientService
	metrics  metrics.Recorder
	logger   *zap.Logger
	newCode  func() string
	now      func() time.Time
}

func NewTeamService(repos *repository.Repositories, patients *PatientService, recorder metrics.Recorder, logger *zap.Logger) *TeamService {
	if recorder == nil {
		recorder = metrics.NopRecorder{}
	}
	return &TeamService{
		repos:    repos,
		patients: patients,
		metrics:  recorder,
		logger:   logger,
		newCode:  randomTeamCode,
		now:      time.Now,
	}
}

func randomTeamCode() string {
	return fmt.Sprintf("%09d", rand.Intn(1_000_000_000))
}

// GetTeams returns the teams of user, private team first.
func (s *TeamService) GetTeams(ctx context.Context, user domain.User) ([]domain.Team, error) {
	private, err := s.GetPrivateTeam(ctx, user)
	if err != nil {
		return nil, err
	}
	teams := []domain.Team{*private}

	switch user.Role {
	case domain.RoleHCP, domain.RolePatient:
		stored, err := s.repos.Teams.ListTeamsForUser(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list teams: %w", err)
		}
		teams = append(teams, stored...)
	case domain.RoleCaregiver:
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidUserRole, user.Role)
	}
	domain.SortTeamsByName(teams)
	return teams, nil
}

// GetPrivateTeam synthesizes the private team from direct shares. For a
// patient it lists the caregivers; for anyone else, the sharing patients.
func (s *TeamService) GetPrivateTeam(ctx context.Context, user domain.User) (*domain.Team, error) {
	team := domain.NewPrivateTeam(user.ID)
	var (
		shares []domain.DirectShare
		err    error
	)
	if user.Role == domain.RolePatient {
		shares, err = s.repos.DirectShares.ListSharesByPatient(ctx, user.ID)
	} else {
		shares, err = s.repos.DirectShares.ListSharesByViewer(ctx, user.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list direct shares: %w", err)
	}
	for _, sh := range shares {
		m := domain.TeamMember{
			TeamID:       domain.PrivateTeamID,
			Status:       sh.Status,
			InvitationID: sh.InvitationID,
		}
		if user.Role == domain.RolePatient {
			m.UserID, m.Email, m.Role = sh.ViewerID, sh.ViewerEmail, domain.MemberRoleMember
		} else {
			m.UserID, m.Role = sh.PatientID, domain.MemberRolePatient
		}
		team.Members = append(team.Members, m)
	}
	return &team, nil
}

// GetMedicalTeams drops the private team.
func (s *TeamService) GetMedicalTeams(ctx context.Context, user domain.User) ([]domain.Team, error) {
	teams, err := s.GetTeams(ctx, user)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Team, 0, len(teams))
	for _, t := range teams {
		if t.Type == domain.TeamTypeMedical {
			out = append(out, t)
		}
	}
	return out, nil
}

// GetTeam returns teamID if user belongs to it.
func (s *TeamService) GetTeam(ctx context.Context, user domain.User, teamID string) (*domain.Team, error) {
	if teamID == domain.PrivateTeamID {
		return s.GetPrivateTeam(ctx, user)
	}
	team, err := s.repos.Teams.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team.Member(user.ID) == nil {
		return nil, fmt.Errorf("team %s: %w", teamID, domain.ErrNotTeamMember)
	}
	return team, nil
}

// DefaultTeamID is the first medical team by name, or the private team.
func (s *TeamService) DefaultTeamID(ctx context.Context, user domain.User) (string, error) {
	teams, err := s.GetMedicalTeams(ctx, user)
	if err != nil {
		return "", err
	}
	if len(teams) == 0 {
		return domain.PrivateTeamID, nil
	}
	return teams[0].ID, nil
}

// LoadTeamsResult is the team list merged with the computed patients.
type LoadTeamsResult struct {
	Teams              []domain.Team `json:"teams"`
	FlaggedNotInResult []string      `json:"flaggedNotInResult"`
}

// LoadTeams merges each team with its patients. Patients linked to a team
// the user cannot see are attached to the private team.
func (s *TeamService) LoadTeams(ctx context.Context, user domain.User) (*LoadTeamsResult, error) {
	teams, err := s.GetTeams(ctx, user)
	if err != nil {
		return nil, err
	}
	patients, err := s.patients.ComputePatients(ctx, user)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(teams))
	for i := range teams {
		index[teams[i].ID] = i
	}
	privateIdx := index[domain.PrivateTeamID]
	for _, p := range patients {
		for _, link := range p.Teams {
			i, ok := index[link.TeamID]
			if !ok {
				i = privateIdx
			}
			if teams[i].Member(p.UserID) != nil {
				continue
			}
			teams[i].Members = append(teams[i].Members, domain.TeamMember{
				TeamID:       teams[i].ID,
				UserID:       p.UserID,
				Email:        p.Profile.Email,
				Role:         domain.MemberRolePatient,
				Status:       link.Status,
				InvitationID: link.InvitationID,
			})
		}
	}

	flagged, err := s.patients.FlaggedPatients(ctx, user)
	if err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(patients))
	for _, p := range patients {
		known[p.UserID] = struct{}{}
	}
	notInResult := []string{}
	for _, id := range flagged {
		if _, ok := known[id]; !ok {
			notInResult = append(notInResult, id)
		}
	}
	return &LoadTeamsResult{Teams: teams, FlaggedNotInResult: notInResult}, nil
}

// CreateTeamRequest carries the editable team fields.
type CreateTeamRequest struct {
	Name       string
	Phone      string
	Email      string
	Address    *domain.Address
	Monitoring *domain.Monitoring
}

// CreateTeam creates a medical team with a fresh code. The creator becomes its accepted admin.
func (s *TeamService) CreateTeam(ctx context.Context, user domain.User, req CreateTeamRequest) (*domain.Team, error) {
	if user.Role != domain.RoleHCP {
		return nil, fmt.Errorf("%w: only HCPs can create teams", domain.ErrInvalidUserRole)
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Phone) == "" || req.Address == nil {
		return nil, domain.ErrMissingTeamFields
	}
	monitoring := req.Monitoring
	if monitoring == nil {
		params := domain.DefaultMonitoringParameters()
		monitoring = &domain.Monitoring{Parameters: &params}
	} else if err := validateMonitoring(monitoring); err != nil {
		return nil, err
	}

	code, err := s.uniqueCode(ctx)
	if err != nil {
		return nil, err
	}
	team := &domain.Team{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(req.Name),
		Code:       code,
		Type:       domain.TeamTypeMedical,
		OwnerID:    user.ID,
		Phone:      req.Phone,
		Email:      req.Email,
		Address:    req.Address,
		Monitoring: monitoring,
		Members: []domain.TeamMember{{
			UserID: user.ID,
			Email:  user.Email,
			Role:   domain.MemberRoleAdmin,
			Status: domain.StatusAccepted,
		}},
	}
	if err := s.repos.Teams.CreateTeam(ctx, team); err != nil {
		return nil, err
	}

	label := "email_not_filled"
	if req.Email != "" {
		label = "email_filled"
	}
	s.metrics.Send(ctx, teamMetricsCategory, "create_care_team", label, nil)
	s.logger.Info("Team created", zap.String("team_id", team.ID), zap.String("owner_id", user.ID))
	return s.repos.Teams.GetTeam(ctx, team.ID)
}

func (s *TeamService) uniqueCode(ctx context.Context) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := s.newCode()
		exists, err := s.repos.Teams.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", errors.New("failed to generate a unique team code")
}

// UpdateTeamRequest replaces the editable fields of TeamID.
type UpdateTeamRequest struct {
	TeamID string
	CreateTeamRequest
}

func (s *TeamService) UpdateTeam(ctx context.Context, user domain.User, req UpdateTeamRequest) (*domain.Team, error) {
	team, err := s.adminTeam(ctx, user, req.TeamID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Phone) == "" || req.Address == nil {
		return nil, domain.ErrMissingTeamFields
	}
	team.Name = strings.TrimSpace(req.Name)
	team.Phone = req.Phone
	team.Email = req.Email
	team.Address = req.Address
	if req.Monitoring != nil {
		if err := validateMonitoring(req.Monitoring); err != nil {
			return nil, err
		}
		team.Monitoring = req.Monitoring
	}
	if err := s.repos.Teams.UpdateTeam(ctx, team); err != nil {
		return nil, err
	}
	return s.repos.Teams.GetTeam(ctx, team.ID)
}

func (s *TeamService) DeleteTeam(ctx context.Context, user domain.User, teamID string) error {
	if _, err := s.adminTeam(ctx, user, teamID); err != nil {
		return err
	}
	return s.repos.Teams.DeleteTeam(ctx, teamID)
}

// LeaveTeam removes user from teamID. The last accepted admin of a team
// with no other staff deletes the team instead.
func (s *TeamService) LeaveTeam(ctx context.Context, user domain.User, teamID string) error {
	team, err := s.repos.Teams.GetTeam(ctx, teamID)
	if err != nil {
		return err
	}
	member := team.Member(user.ID)
	if member == nil {
		return fmt.Errorf("team %s: %w", teamID, domain.ErrNotTeamMember)
	}
	if member.Role == domain.MemberRoleAdmin && member.Status == domain.StatusAccepted && team.HasOnlyOneMember() {
		if err := s.repos.Teams.DeleteTeam(ctx, teamID); err != nil {
			return err
		}
		s.metrics.Send(ctx, teamMetricsCategory, "delete_team", "", nil)
		s.logger.Info("Last administrator left, team deleted", zap.String("team_id", teamID))
		return nil
	}
	if err := s.repos.Members.DeleteMember(ctx, teamID, user.ID); err != nil {
		return err
	}
	s.metrics.Send(ctx, teamMetricsCategory, "leave_team", "", nil)
	return nil
}

// InviteMember invites an HCP as admin or member of teamID.
func (s *TeamService) InviteMember(ctx context.Context, user domain.User, teamID, email string, role domain.TeamMemberRole) (*domain.Invitation, error) {
	if role != domain.MemberRoleAdmin && role != domain.MemberRoleMember {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidUserRole, role)
	}
	team, err := s.adminTeam(ctx, user, teamID)
	if err != nil {
		return nil, err
	}
	if team.MemberByEmail(email) != nil {
		return nil, domain.ErrAlreadyInvited
	}
	acc, err := lookupInvitee(ctx, s.repos.Accounts, email)
	if err != nil {
		return nil, err
	}

	inv := &domain.Invitation{
		ID:         uuid.NewString(),
		Type:       domain.NotificationMemberInvitation,
		CreatorID:  user.ID,
		TargetID:   team.ID,
		TargetName: team.Name,
		Email:      email,
		Role:       role,
		Created:    s.now().UTC(),
	}
	if err := s.repos.Invitations.CreateInvitation(ctx, inv); err != nil {
		return nil, err
	}
	if acc == nil {
		return inv, nil
	}
	err = s.repos.Members.UpsertMember(ctx, &domain.TeamMember{
		TeamID:       team.ID,
		UserID:       acc.UserID,
		Email:        acc.Email,
		Role:         role,
		Status:       domain.StatusPending,
		InvitationID: inv.ID,
		Profile:      acc.Profile,
	})
	if err != nil {
		discardInvitation(ctx, s.repos.Invitations, s.logger, inv)
		return nil, err
	}
	return inv, nil
}

// RemoveMember cancels a pending member's invitation or removes an accepted one.
func (s *TeamService) RemoveMember(ctx context.Context, user domain.User, teamID, userID string) error {
	team, err := s.adminTeam(ctx, user, teamID)
	if err != nil {
		return err
	}
	member := team.Member(userID)
	if member == nil {
		return fmt.Errorf("member %s: %w", userID, domain.ErrNotTeamMember)
	}
	if member.Status == domain.StatusPending {
		if member.InvitationID == "" {
			return domain.ErrMissingInvitation
		}
		if err := s.repos.Invitations.DeleteInvitation(ctx, member.InvitationID); err != nil && !errors.Is(err, domain.ErrInvitationNotFound) {
			return err
		}
	}
	return s.repos.Members.DeleteMember(ctx, teamID, userID)
}

func (s *TeamService) ChangeMemberRole(ctx context.Context, user domain.User, teamID, userID string, role domain.TeamMemberRole) error {
	if role != domain.MemberRoleAdmin && role != domain.MemberRoleMember {
		return fmt.Errorf("%w: %s", domain.ErrInvalidUserRole, role)
	}
	team, err := s.adminTeam(ctx, user, teamID)
	if err != nil {
		return err
	}
	member := team.Member(userID)
	if member == nil || member.Role == domain.MemberRolePatient {
		return fmt.Errorf("member %s: %w", userID, domain.ErrNotTeamMember)
	}
	if err := s.repos.Members.UpdateMemberRole(ctx, teamID, userID, role); err != nil {
		return err
	}
	action := "revoke"
	if role == domain.MemberRoleAdmin {
		action = "grant"
	}
	s.metrics.Send(ctx, teamMetricsCategory, "manage_admin_permission", action, nil)
	return nil
}

// GetTeamFromCode ignores separators in code. An unknown code gives nil, nil.
func (s *TeamService) GetTeamFromCode(ctx context.Context, code string) (*domain.Team, error) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, code)
	if len(digits) != domain.TeamCodeLength {
		return nil, nil
	}
	team, err := s.repos.Teams.GetTeamByCode(ctx, digits)
	if err != nil {
		if errors.Is(err, domain.ErrTeamNotFound) {
			return nil, nil
		}
		return nil, err
	}
	// members are not disclosed to someone joining by code
	team.Members = []domain.TeamMember{}
	return team, nil
}

// JoinTeam adds the calling patient to teamID as an accepted member.
func (s *TeamService) JoinTeam(ctx context.Context, user domain.User, teamID string) error {
	if user.Role != domain.RolePatient {
		return fmt.Errorf("%w: only patients can join a team", domain.ErrInvalidUserRole)
	}
	team, err := s.repos.Teams.GetTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if team.Member(user.ID) != nil {
		return domain.ErrPatientAlreadyInvited
	}
	member := &domain.TeamMember{
		TeamID: teamID,
		UserID: user.ID,
		Email:  user.Email,
		Role:   domain.MemberRolePatient,
		Status: domain.StatusAccepted,
	}
	if acc, err := s.repos.Accounts.GetAccount(ctx, user.ID); err == nil {
		member.Profile = acc.Profile
	}
	if team.Monitoring != nil && team.Monitoring.Enabled {
		status := domain.MonitoringPending
		member.Monitoring = &domain.Monitoring{Enabled: false, Status: &status, Parameters: team.Monitoring.Parameters}
	}
	return s.repos.Members.UpsertMember(ctx, member)
}

// UpdateTeamMonitoring replaces the team's default monitoring.
func (s *TeamService) UpdateTeamMonitoring(ctx context.Context, user domain.User, teamID string, monitoring *domain.Monitoring) error {
	if err := validateMonitoring(monitoring); err != nil {
		return err
	}
	team, err := s.adminTeam(ctx, user, teamID)
	if err != nil {
		return err
	}
	team.Monitoring = monitoring
	return s.repos.Teams.UpdateTeam(ctx, team)
}

func (s *TeamService) adminTeam(ctx context.Context, user domain.User, teamID string) (*domain.Team, error) {
	team, err := s.repos.Teams.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !team.IsUserAdministrator(user.ID) {
		return nil, fmt.Errorf("team %s: %w", teamID, domain.ErrNotTeamAdmin)
	}
	return team, nil
}

func validateMonitoring(m *domain.Monitoring) error {
	if m == nil {
		return fmt.Errorf("%w: monitoring is required", domain.ErrInvalidMonitoring)
	}
	if m.Parameters != nil {
		m.Parameters.Normalize()
	}
	return m.Parameters.Validate()
}
