package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"yourloops-dashboard/internal/domain"
	"yourloops-dashboard/internal/patientlist"
	"yourloops-dashboard/internal/repository"
	"yourloops-dashboard/internal/summary"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PatientService builds the patient table and applies patient mutations.
type PatientService struct {
	repos  *repository.Repositories
	cache  *summary.Cache // optional; attaches cached medical data to rows
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

func NewPatientService(repos *repository.Repositories, cache *summary.Cache, loc *time.Location, logger *zap.Logger) *PatientService {
	if loc == nil {
		loc = time.UTC
	}
	return &PatientService{
		repos:  repos,
		cache:  cache,
		loc:    loc,
		logger: logger,
		now:    time.Now,
	}
}

// ComputePatients returns the normalized list of patients user can see.
func (s *PatientService) ComputePatients(ctx context.Context, user domain.User) ([]domain.Patient, error) {
	var (
		patients []domain.Patient
		err      error
	)
	switch user.Role {
	case domain.RoleHCP:
		patients, err = s.hcpPatients(ctx, user)
	case domain.RoleCaregiver:
		patients, err = s.sharedPatients(ctx, user)
	case domain.RolePatient:
		patients, err = s.ownPatientRecord(ctx, user)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidUserRole, user.Role)
	}
	if err != nil {
		return nil, err
	}

	patients = patientlist.RemoveDuplicates(patients)

	prefs, err := s.repos.Preferences.GetPreferences(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	patients = patientlist.ComputeFlagged(patients, prefs.PatientsStarred)
	s.attachMedicalData(ctx, patients)
	return patients, nil
}

// hcpPatients reads the patients of every team the HCP is staff of, plus
// the patients who shared their data directly.
func (s *PatientService) hcpPatients(ctx context.Context, user domain.User) ([]domain.Patient, error) {
	teams, err := s.repos.Teams.ListTeamsForUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	byID := make(map[string]*domain.Team, len(teams))
	teamIDs := make([]string, 0, len(teams))
	for i := range teams {
		m := teams[i].Member(user.ID)
		if m == nil || m.Role == domain.MemberRolePatient {
			continue
		}
		byID[teams[i].ID] = &teams[i]
		teamIDs = append(teamIDs, teams[i].ID)
	}

	members, err := s.repos.Members.ListPatientMembers(ctx, teamIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list patient members: %w", err)
	}
	patients := make([]domain.Patient, 0, len(members))
	for _, m := range members {
		patients = append(patients, domain.MemberToPatient(m, byID[m.TeamID]))
	}

	shared, err := s.sharedPatients(ctx, user)
	if err != nil {
		return nil, err
	}
	return append(patients, shared...), nil
}

func (s *PatientService) sharedPatients(ctx context.Context, user domain.User) ([]domain.Patient, error) {
	shares, err := s.repos.DirectShares.ListSharesByViewer(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list direct shares: %w", err)
	}
	private := domain.NewPrivateTeam(user.ID)
	patients := make([]domain.Patient, 0, len(shares))
	for _, share := range shares {
		member := domain.TeamMember{
			TeamID:       domain.PrivateTeamID,
			UserID:       share.PatientID,
			Role:         domain.MemberRolePatient,
			Status:       share.Status,
			InvitationID: share.InvitationID,
		}
		if acc, err := s.repos.Accounts.GetAccount(ctx, share.PatientID); err == nil {
			member.Email = acc.Email
			member.Profile = acc.Profile
		} else if !errors.Is(err, domain.ErrAccountNotFound) {
			return nil, fmt.Errorf("failed to get account: %w", err)
		}
		patients = append(patients, domain.MemberToPatient(member, &private))
	}
	return patients, nil
}

func (s *PatientService) ownPatientRecord(ctx context.Context, user domain.User) ([]domain.Patient, error) {
	memberships, err := s.repos.Members.ListMembershipsOfUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	patients := []domain.Patient{}
	for _, m := range memberships {
		if m.Role != domain.MemberRolePatient {
			continue
		}
		team, err := s.repos.Teams.GetTeam(ctx, m.TeamID)
		if err != nil {
			s.logger.Warn("Membership refers to an unknown team", zap.String("team_id", m.TeamID), zap.Error(err))
			team = nil
		}
		patients = append(patients, domain.MemberToPatient(m, team))
	}
	if len(patients) == 0 {
		p := domain.MemberToPatient(domain.TeamMember{UserID: user.ID, Email: user.Email}, nil)
		patients = append(patients, p)
	}
	return patients, nil
}

func (s *PatientService) attachMedicalData(ctx context.Context, patients []domain.Patient) {
	if s.cache == nil {
		return
	}
	for i := range patients {
		md, err := s.cache.Get(ctx, patients[i].UserID)
		if err != nil {
			if !summary.IsMiss(err) {
				s.logger.Debug("Summary cache read failed", zap.String("patient_id", patients[i].UserID), zap.Error(err))
			}
			continue
		}
		patients[i].Metadata.MedicalData = md
	}
}

// ListPatientsRequest selects, sorts and pages the patient table.
type ListPatientsRequest struct {
	TeamID    string
	Filter    patientlist.FilterType
	Search    string
	Sort      patientlist.SortField
	Direction patientlist.SortDirection
	Page      int
	Size      int
}

// PatientRow is a patient with its rendered medical columns.
type PatientRow struct {
	domain.Patient
	MedicalValues patientlist.MedicalValues `json:"medicalValues"`
}

type ListPatientsResponse struct {
	Items           []PatientRow            `json:"items"`
	Total           int                     `json:"total"`
	Page            int                     `json:"page"`
	Size            int                     `json:"size"`
	PendingCount    int                     `json:"pendingCount"`
	NonPendingCount int                     `json:"nonPendingCount"`
	Flagged         []string                `json:"flagged"`
	Stats           patientlist.FilterStats `json:"stats"`
}

// ListPatients runs the table pipeline: team scope, filter, search, sort, page.
func (s *PatientService) ListPatients(ctx context.Context, user domain.User, req ListPatientsRequest) (*ListPatientsResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Size <= 0 {
		req.Size = 20
	}
	if req.Filter == "" {
		req.Filter = patientlist.FilterAll
	}
	if !patientlist.ValidSortField(req.Sort) {
		req.Sort = patientlist.SortFullName
	}
	if req.Direction != patientlist.Desc {
		req.Direction = patientlist.Asc
	}

	patients, err := s.ComputePatients(ctx, user)
	if err != nil {
		return nil, err
	}
	prefs, err := s.repos.Preferences.GetPreferences(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	if req.TeamID != "" {
		patients = patientlist.InTeam(patients, req.TeamID)
	}

	now := s.now()
	stats := patientlist.ComputeFilterStats(patients, now)
	selected := patientlist.ExtractPatientsAt(patients, req.Filter, prefs.PatientsStarred, now)
	selected = patientlist.SearchPatients(selected, req.Search)
	patientlist.SortPatients(selected, req.Sort, req.Direction)

	total := len(selected)
	start := (req.Page - 1) * req.Size
	if start > total {
		start = total
	}
	end := start + req.Size
	if end > total {
		end = total
	}

	items := make([]PatientRow, 0, end-start)
	for _, p := range selected[start:end] {
		items = append(items, s.row(p))
	}
	return &ListPatientsResponse{
		Items:           items,
		Total:           total,
		Page:            req.Page,
		Size:            req.Size,
		PendingCount:    stats.Pending,
		NonPendingCount: stats.All,
		Flagged:         prefs.PatientsStarred,
		Stats:           stats,
	}, nil
}

// FilterStats returns the filter badge counters for one team, or all teams when teamID is empty.
func (s *PatientService) FilterStats(ctx context.Context, user domain.User, teamID string) (*patientlist.FilterStats, error) {
	patients, err := s.ComputePatients(ctx, user)
	if err != nil {
		return nil, err
	}
	if teamID != "" {
		patients = patientlist.InTeam(patients, teamID)
	}
	stats := patientlist.ComputeFilterStats(patients, s.now())
	return &stats, nil
}

func (s *PatientService) row(p domain.Patient) PatientRow {
	md := p.Metadata.MedicalData
	return PatientRow{
		Patient:       p,
		MedicalValues: patientlist.ComputeMedicalValues(md, md != nil, s.loc),
	}
}

func (s *PatientService) GetPatient(ctx context.Context, user domain.User, patientID string) (*domain.Patient, error) {
	patients, err := s.ComputePatients(ctx, user)
	if err != nil {
		return nil, err
	}
	for i := range patients {
		if patients[i].UserID == patientID {
			return &patients[i], nil
		}
	}
	return nil, fmt.Errorf("patient %s: %w", patientID, domain.ErrPatientNotFound)
}

func (s *PatientService) GetPatientByEmail(ctx context.Context, user domain.User, email string) (*domain.Patient, error) {
	patients, err := s.ComputePatients(ctx, user)
	if err != nil {
		return nil, err
	}
	for i := range patients {
		if strings.EqualFold(patients[i].Profile.Email, email) {
			return &patients[i], nil
		}
	}
	return nil, fmt.Errorf("patient %s: %w", email, domain.ErrPatientNotFound)
}

// InvitePatient creates a pending invitation and, when the account is
// known, a pending patient membership.
func (s *PatientService) InvitePatient(ctx context.Context, user domain.User, teamID, email string) (*domain.Invitation, error) {
	team, err := s.repos.Teams.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if m := team.Member(user.ID); m == nil || m.Role == domain.MemberRolePatient {
		return nil, fmt.Errorf("team %s: %w", teamID, domain.ErrNotTeamMember)
	}
	if team.MemberByEmail(email) != nil {
		return nil, domain.ErrPatientAlreadyInvited
	}
	existing, err := s.repos.Invitations.ListInvitations(ctx, repository.InvitationsFilter{
		Email:    email,
		TargetID: teamID,
		Type:     domain.NotificationPatientInvitation,
	})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, domain.ErrPatientAlreadyInvited
	}
	acc, err := lookupInvitee(ctx, s.repos.Accounts, email)
	if err != nil {
		return nil, err
	}
	if acc != nil && acc.Role != domain.RolePatient {
		return nil, fmt.Errorf("%w: %s is not a patient account", domain.ErrInvalidUserRole, email)
	}

	inv := &domain.Invitation{
		ID:         uuid.NewString(),
		Type:       domain.NotificationPatientInvitation,
		CreatorID:  user.ID,
		TargetID:   team.ID,
		TargetName: team.Name,
		Email:      email,
		Role:       domain.MemberRolePatient,
		Created:    s.now().UTC(),
	}
	if err := s.repos.Invitations.CreateInvitation(ctx, inv); err != nil {
		return nil, err
	}
	// without an account the membership is created when the invitation is accepted
	if acc != nil {
		err = s.repos.Members.UpsertMember(ctx, &domain.TeamMember{
			TeamID:       team.ID,
			UserID:       acc.UserID,
			Email:        acc.Email,
			Role:         domain.MemberRolePatient,
			Status:       domain.StatusPending,
			InvitationID: inv.ID,
			Profile:      acc.Profile,
		})
		if err != nil {
			discardInvitation(ctx, s.repos.Invitations, s.logger, inv)
			return nil, err
		}
	}

	s.logger.Info("Patient invited", zap.String("team_id", team.ID), zap.String("invitation_id", inv.ID))
	return inv, nil
}

// RemovePatient removes the patient's link to teamID. A pending link
// cancels its invitation; a private link removes the direct share.
func (s *PatientService) RemovePatient(ctx context.Context, user domain.User, patientID, teamID string) error {
	patient, err := s.GetPatient(ctx, user, patientID)
	if err != nil {
		return err
	}
	link := patientlist.TeamLink(patient, teamID)
	if link == nil {
		return fmt.Errorf("patient %s in team %s: %w", patientID, teamID, domain.ErrNotTeamMember)
	}

	if link.Status == domain.StatusPending && link.InvitationID != "" {
		if err := s.repos.Invitations.DeleteInvitation(ctx, link.InvitationID); err != nil && !errors.Is(err, domain.ErrInvitationNotFound) {
			return err
		}
	}
	if teamID == domain.PrivateTeamID {
		err = s.repos.DirectShares.DeleteShare(ctx, patientID, user.ID)
	} else {
		err = s.repos.Members.DeleteMember(ctx, teamID, patientID)
	}
	if err != nil {
		return err
	}

	if len(patient.Teams) == 1 && patient.IsFlagged() {
		if _, err := s.FlagPatient(ctx, user, patientID); err != nil {
			return err
		}
	}
	return nil
}

// FlagPatient toggles patientID in the user's starred list and returns the new list.
func (s *PatientService) FlagPatient(ctx context.Context, user domain.User, patientID string) ([]string, error) {
	prefs, err := s.repos.Preferences.GetPreferences(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	flagged := make([]string, 0, len(prefs.PatientsStarred)+1)
	found := false
	for _, id := range prefs.PatientsStarred {
		if id == patientID {
			found = true
			continue
		}
		flagged = append(flagged, id)
	}
	if !found {
		flagged = append(flagged, patientID)
	}
	if err := s.repos.Preferences.SetFlaggedPatients(ctx, user.ID, flagged); err != nil {
		return nil, err
	}
	return flagged, nil
}

func (s *PatientService) FlaggedPatients(ctx context.Context, user domain.User) ([]string, error) {
	prefs, err := s.repos.Preferences.GetPreferences(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return prefs.PatientsStarred, nil
}

// UpdatePatientMonitoring stores monitoring on the patient's remote-monitoring team link.
func (s *PatientService) UpdatePatientMonitoring(ctx context.Context, user domain.User, patientID string, monitoring *domain.Monitoring) error {
	if err := validateMonitoring(monitoring); err != nil {
		return err
	}
	patient, err := s.GetPatient(ctx, user, patientID)
	if err != nil {
		return err
	}
	team, err := patientlist.RemoteMonitoringTeam(patient)
	if err != nil {
		return err
	}
	return s.repos.Members.UpdateMemberMonitoring(ctx, team.TeamID, patientID, monitoring)
}

// MarkPatientMessagesAsRead clears the patient's unread counter in the
// teams user shares with the patient.
func (s *PatientService) MarkPatientMessagesAsRead(ctx context.Context, user domain.User, patientID string) error {
	patient, err := s.GetPatient(ctx, user, patientID)
	if err != nil {
		return err
	}
	teamIDs := make([]string, 0, len(patient.Teams))
	for _, t := range patient.Teams {
		if t.TeamID != domain.PrivateTeamID {
			teamIDs = append(teamIDs, t.TeamID)
		}
	}
	return s.repos.Members.ResetUnreadMessages(ctx, patientID, teamIDs)
}

// LeaveTeam removes the calling patient from teamID.
func (s *PatientService) LeaveTeam(ctx context.Context, user domain.User, teamID string) error {
	if user.Role != domain.RolePatient {
		return fmt.Errorf("%w: only patients can leave a team this way", domain.ErrInvalidUserRole)
	}
	if teamID == domain.PrivateTeamID {
		return fmt.Errorf("team %s: %w", teamID, domain.ErrNotTeamMember)
	}
	return s.repos.Members.DeleteMember(ctx, teamID, user.ID)
}

// SetPatientMedicalData replaces the cached medical data of patientID.
func (s *PatientService) SetPatientMedicalData(ctx context.Context, patientID string, md *domain.MedicalData) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Put(ctx, patientID, md)
}
