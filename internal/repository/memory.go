package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"yourloops-dashboard/internal/domain"
)

// Memory implements every repository in process. It backs development
// runs when the database is disabled and the service tests.
type Memory struct {
	mu          sync.RWMutex
	accounts    map[string]Account
	teams       map[string]domain.Team
	members     map[string]map[string]domain.TeamMember // teamID -> userID -> member
	invitations map[string]domain.Invitation
	shares      map[string]domain.DirectShare // patientID|viewerID
	prefs       map[string]domain.Preferences
}

func NewMemory() *Memory {
	return &Memory{
		accounts:    map[string]Account{},
		teams:       map[string]domain.Team{},
		members:     map[string]map[string]domain.TeamMember{},
		invitations: map[string]domain.Invitation{},
		shares:      map[string]domain.DirectShare{},
		prefs:       map[string]domain.Preferences{},
	}
}

var (
	_ AccountsRepository     = (*Memory)(nil)
	_ TeamsRepository        = (*Memory)(nil)
	_ MembersRepository      = (*Memory)(nil)
	_ InvitationsRepository  = (*Memory)(nil)
	_ DirectSharesRepository = (*Memory)(nil)
	_ PreferencesRepository  = (*Memory)(nil)
)

// Repositories returns m behind every interface.
func (m *Memory) Repositories() *Repositories {
	return &Repositories{
		Accounts:     m,
		Teams:        m,
		Members:      m,
		Invitations:  m,
		DirectShares: m,
		Preferences:  m,
	}
}

// PutAccount registers an account. Accounts are owned by the identity
// provider, so there is no Postgres counterpart.
func (m *Memory) PutAccount(a Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.UserID] = a
}

func (m *Memory) GetAccount(_ context.Context, userID string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[userID]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", userID, domain.ErrAccountNotFound)
	}
	return &a, nil
}

func (m *Memory) GetAccountByEmail(_ context.Context, email string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.accounts {
		if strings.EqualFold(a.Email, email) {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("account %s: %w", email, domain.ErrAccountNotFound)
}

// teamLocked returns a copy of the team with its members attached.
func (m *Memory) teamLocked(t domain.Team) domain.Team {
	t.Members = m.membersLocked(t.ID)
	return t
}

func (m *Memory) membersLocked(teamID string) []domain.TeamMember {
	out := make([]domain.TeamMember, 0, len(m.members[teamID]))
	for _, mem := range m.members[teamID] {
		out = append(out, mem)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Role != out[j].Role {
			return out[i].Role < out[j].Role
		}
		return out[i].Email < out[j].Email
	})
	return out
}

func (m *Memory) GetTeam(_ context.Context, teamID string) (*domain.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.teams[teamID]
	if !ok {
		return nil, fmt.Errorf("team %s: %w", teamID, domain.ErrTeamNotFound)
	}
	t = m.teamLocked(t)
	return &t, nil
}

func (m *Memory) GetTeamByCode(_ context.Context, code string) (*domain.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.teams {
		if t.Code == code {
			t = m.teamLocked(t)
			return &t, nil
		}
	}
	return nil, fmt.Errorf("team %s: %w", code, domain.ErrTeamNotFound)
}

func (m *Memory) ListTeamsForUser(_ context.Context, userID string) ([]domain.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []domain.Team{}
	for teamID, byUser := range m.members {
		if _, ok := byUser[userID]; !ok {
			continue
		}
		if t, ok := m.teams[teamID]; ok {
			out = append(out, m.teamLocked(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) CodeExists(_ context.Context, code string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.teams {
		if t.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) CreateTeam(_ context.Context, team *domain.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.teams[team.ID]; ok {
		return fmt.Errorf("team %s already exists", team.ID)
	}
	t := *team
	t.Members = nil
	m.teams[t.ID] = t
	m.members[t.ID] = map[string]domain.TeamMember{}
	for _, mem := range team.Members {
		mem.TeamID = t.ID
		m.members[t.ID][mem.UserID] = mem
	}
	return nil
}

func (m *Memory) UpdateTeam(_ context.Context, team *domain.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teams[team.ID]
	if !ok {
		return fmt.Errorf("team %s: %w", team.ID, domain.ErrTeamNotFound)
	}
	t.Name = team.Name
	t.Phone = team.Phone
	t.Email = team.Email
	t.Address = team.Address
	t.Monitoring = team.Monitoring
	m.teams[t.ID] = t
	return nil
}

func (m *Memory) DeleteTeam(_ context.Context, teamID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.teams[teamID]; !ok {
		return fmt.Errorf("team %s: %w", teamID, domain.ErrTeamNotFound)
	}
	delete(m.teams, teamID)
	delete(m.members, teamID)
	return nil
}

func (m *Memory) GetMember(_ context.Context, teamID, userID string) (*domain.TeamMember, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mem, ok := m.members[teamID][userID]
	if !ok {
		return nil, fmt.Errorf("member %s of team %s: %w", userID, teamID, domain.ErrNotTeamMember)
	}
	return &mem, nil
}

func (m *Memory) ListMembers(_ context.Context, teamID string) ([]domain.TeamMember, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.membersLocked(teamID), nil
}

func (m *Memory) ListPatientMembers(_ context.Context, teamIDs []string) ([]domain.TeamMember, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []domain.TeamMember{}
	for _, teamID := range teamIDs {
		for _, mem := range m.members[teamID] {
			if mem.Role == domain.MemberRolePatient {
				out = append(out, mem)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].TeamID < out[j].TeamID
	})
	return out, nil
}

func (m *Memory) ListMembershipsOfUser(_ context.Context, userID string) ([]domain.TeamMember, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []domain.TeamMember{}
	for _, byUser := range m.members {
		if mem, ok := byUser[userID]; ok {
			out = append(out, mem)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TeamID < out[j].TeamID })
	return out, nil
}

func (m *Memory) UpsertMember(_ context.Context, mem *domain.TeamMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.teams[mem.TeamID]; !ok {
		return fmt.Errorf("team %s: %w", mem.TeamID, domain.ErrTeamNotFound)
	}
	m.members[mem.TeamID][mem.UserID] = *mem
	return nil
}

func (m *Memory) updateMember(teamID, userID string, fn func(*domain.TeamMember)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.members[teamID][userID]
	if !ok {
		return fmt.Errorf("member %s of team %s: %w", userID, teamID, domain.ErrNotTeamMember)
	}
	fn(&mem)
	m.members[teamID][userID] = mem
	return nil
}

func (m *Memory) UpdateMemberStatus(_ context.Context, teamID, userID string, status domain.UserInvitationStatus) error {
	return m.updateMember(teamID, userID, func(mem *domain.TeamMember) { mem.Status = status })
}

func (m *Memory) UpdateMemberRole(_ context.Context, teamID, userID string, role domain.TeamMemberRole) error {
	return m.updateMember(teamID, userID, func(mem *domain.TeamMember) { mem.Role = role })
}

func (m *Memory) UpdateMemberMonitoring(_ context.Context, teamID, userID string, monitoring *domain.Monitoring) error {
	return m.updateMember(teamID, userID, func(mem *domain.TeamMember) { mem.Monitoring = monitoring })
}

func (m *Memory) UpdateMemberAlarms(_ context.Context, teamID, userID string, alarms domain.Alarm) error {
	return m.updateMember(teamID, userID, func(mem *domain.TeamMember) { mem.Alarms = &alarms })
}

func (m *Memory) ResetUnreadMessages(_ context.Context, userID string, teamIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, teamID := range teamIDs {
		if mem, ok := m.members[teamID][userID]; ok {
			mem.UnreadMessages = 0
			m.members[teamID][userID] = mem
		}
	}
	return nil
}

func (m *Memory) DeleteMember(_ context.Context, teamID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.members[teamID][userID]; !ok {
		return fmt.Errorf("member %s of team %s: %w", userID, teamID, domain.ErrNotTeamMember)
	}
	delete(m.members[teamID], userID)
	return nil
}

func (m *Memory) GetInvitation(_ context.Context, invitationID string) (*domain.Invitation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inv, ok := m.invitations[invitationID]
	if !ok {
		return nil, fmt.Errorf("invitation %s: %w", invitationID, domain.ErrInvitationNotFound)
	}
	return &inv, nil
}

func (m *Memory) ListInvitations(_ context.Context, filter InvitationsFilter) ([]domain.Invitation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []domain.Invitation{}
	for _, inv := range m.invitations {
		if filter.Email != "" && !strings.EqualFold(inv.Email, filter.Email) {
			continue
		}
		if filter.CreatorID != "" && inv.CreatorID != filter.CreatorID {
			continue
		}
		if filter.TargetID != "" && inv.TargetID != filter.TargetID {
			continue
		}
		if filter.Type != "" && inv.Type != filter.Type {
			continue
		}
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Created.After(out[j].Created) })
	return out, nil
}

func (m *Memory) CreateInvitation(_ context.Context, inv *domain.Invitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invitations[inv.ID] = *inv
	return nil
}

func (m *Memory) DeleteInvitation(_ context.Context, invitationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.invitations[invitationID]; !ok {
		return fmt.Errorf("invitation %s: %w", invitationID, domain.ErrInvitationNotFound)
	}
	delete(m.invitations, invitationID)
	return nil
}

func shareKey(patientID, viewerID string) string {
	return patientID + "|" + viewerID
}

func (m *Memory) listShares(match func(domain.DirectShare) bool) []domain.DirectShare {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []domain.DirectShare{}
	for _, s := range m.shares {
		if match(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return shareKey(out[i].PatientID, out[i].ViewerID) < shareKey(out[j].PatientID, out[j].ViewerID)
	})
	return out
}

func (m *Memory) ListSharesByViewer(_ context.Context, viewerID string) ([]domain.DirectShare, error) {
	return m.listShares(func(s domain.DirectShare) bool { return s.ViewerID == viewerID }), nil
}

func (m *Memory) ListSharesByPatient(_ context.Context, patientID string) ([]domain.DirectShare, error) {
	return m.listShares(func(s domain.DirectShare) bool { return s.PatientID == patientID }), nil
}

func (m *Memory) UpsertShare(_ context.Context, s *domain.DirectShare) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shares[shareKey(s.PatientID, s.ViewerID)] = *s
	return nil
}

func (m *Memory) UpdateShareStatus(_ context.Context, patientID, viewerID string, status domain.UserInvitationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := shareKey(patientID, viewerID)
	s, ok := m.shares[key]
	if !ok {
		return fmt.Errorf("direct share %s/%s: %w", patientID, viewerID, domain.ErrShareNotFound)
	}
	s.Status = status
	m.shares[key] = s
	return nil
}

func (m *Memory) DeleteShare(_ context.Context, patientID, viewerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := shareKey(patientID, viewerID)
	if _, ok := m.shares[key]; !ok {
		return fmt.Errorf("direct share %s/%s: %w", patientID, viewerID, domain.ErrShareNotFound)
	}
	delete(m.shares, key)
	return nil
}

func (m *Memory) GetPreferences(_ context.Context, userID string) (*domain.Preferences, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.prefs[userID]
	if !ok {
		return &domain.Preferences{UserID: userID, PatientsStarred: []string{}}, nil
	}
	p.PatientsStarred = append([]string{}, p.PatientsStarred...)
	return &p, nil
}

func (m *Memory) SetFlaggedPatients(_ context.Context, userID string, patientIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.prefs[userID]
	p.UserID = userID
	p.PatientsStarred = append([]string{}, patientIDs...)
	m.prefs[userID] = p
	return nil
}
