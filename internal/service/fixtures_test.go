package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"yourloops-dashboard/internal/domain"
	"yourloops-dashboard/internal/repository"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	hcp       = domain.User{ID: "hcp1", Email: "doc@example.com", Role: domain.RoleHCP}
	hcp2      = domain.User{ID: "hcp2", Email: "nurse@example.com", Role: domain.RoleHCP}
	caregiver = domain.User{ID: "cg1", Email: "cg@example.com", Role: domain.RoleCaregiver}
	patientA  = domain.User{ID: "aaa1", Email: "ada@example.com", Role: domain.RolePatient}
	patientB  = domain.User{ID: "bbb2", Email: "bob@example.com", Role: domain.RolePatient}
)

type sentMetric struct {
	category, action, name string
}

type fakeRecorder struct {
	mu   sync.Mutex
	sent []sentMetric
}

func (r *fakeRecorder) Send(_ context.Context, category, action, name string, _ *float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentMetric{category, action, name})
}

func (r *fakeRecorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sent))
	for _, m := range r.sent {
		out = append(out, m.action+":"+m.name)
	}
	return out
}

// seedRepos builds two medical teams: team-a (hcp1 admin, hcp2 member,
// patients aaa1 accepted and bbb2 pending) and team-b (hcp1 admin, aaa1 accepted).
func seedRepos(t *testing.T) (*repository.Memory, *repository.Repositories) {
	t.Helper()
	mem := repository.NewMemory()
	ctx := context.Background()

	mem.PutAccount(repository.Account{UserID: hcp.ID, Email: hcp.Email, Role: domain.RoleHCP})
	mem.PutAccount(repository.Account{UserID: hcp2.ID, Email: hcp2.Email, Role: domain.RoleHCP})
	mem.PutAccount(repository.Account{UserID: caregiver.ID, Email: caregiver.Email, Role: domain.RoleCaregiver})
	mem.PutAccount(repository.Account{UserID: patientA.ID, Email: patientA.Email, Role: domain.RolePatient,
		Profile: &domain.MemberProfile{FirstName: "Ada", LastName: "Lovelace", FullName: "Ada Lovelace", Birthdate: "1990-12-10"}})
	mem.PutAccount(repository.Account{UserID: patientB.ID, Email: patientB.Email, Role: domain.RolePatient,
		Profile: &domain.MemberProfile{FirstName: "Bob", LastName: "Marley", FullName: "Bob Marley"}})

	require.NoError(t, mem.CreateTeam(ctx, &domain.Team{
		ID: "team-a", Name: "Alpha", Code: "111111111", Type: domain.TeamTypeMedical,
		Members: []domain.TeamMember{
			{UserID: hcp.ID, Email: hcp.Email, Role: domain.MemberRoleAdmin, Status: domain.StatusAccepted},
			{UserID: hcp2.ID, Email: hcp2.Email, Role: domain.MemberRoleMember, Status: domain.StatusAccepted},
		},
	}))
	require.NoError(t, mem.CreateTeam(ctx, &domain.Team{
		ID: "team-b", Name: "Beta", Code: "222222222", Type: domain.TeamTypeMedical,
		Members: []domain.TeamMember{
			{UserID: hcp.ID, Email: hcp.Email, Role: domain.MemberRoleAdmin, Status: domain.StatusAccepted},
		},
	}))

	monitored := domain.MonitoringAccepted
	end := time.Now().Add(7 * 24 * time.Hour)
	require.NoError(t, mem.UpsertMember(ctx, &domain.TeamMember{
		TeamID: "team-a", UserID: patientA.ID, Email: patientA.Email, Role: domain.MemberRolePatient,
		Status:     domain.StatusAccepted,
		Profile:    &domain.MemberProfile{FirstName: "Ada", LastName: "Lovelace", FullName: "Ada Lovelace", Birthdate: "1990-12-10"},
		Alarms:     &domain.Alarm{TimeSpentAwayFromTargetActive: true, TimeSpentAwayFromTargetRate: 20},
		Monitoring: &domain.Monitoring{Enabled: true, Status: &monitored, MonitoringEnd: &end},
	}))
	require.NoError(t, mem.UpsertMember(ctx, &domain.TeamMember{
		TeamID: "team-b", UserID: patientA.ID, Email: patientA.Email, Role: domain.MemberRolePatient,
		Status:  domain.StatusAccepted,
		Profile: &domain.MemberProfile{FirstName: "Ada", LastName: "Lovelace", FullName: "Ada Lovelace"},
	}))
	require.NoError(t, mem.CreateInvitation(ctx, &domain.Invitation{
		ID: "inv-b", Type: domain.NotificationPatientInvitation, CreatorID: hcp.ID,
		TargetID: "team-a", Email: patientB.Email, Role: domain.MemberRolePatient, Created: time.Now(),
	}))
	require.NoError(t, mem.UpsertMember(ctx, &domain.TeamMember{
		TeamID: "team-a", UserID: patientB.ID, Email: patientB.Email, Role: domain.MemberRolePatient,
		Status: domain.StatusPending, InvitationID: "inv-b",
		Profile: &domain.MemberProfile{FirstName: "Bob", LastName: "Marley", FullName: "Bob Marley"},
	}))
	return mem, mem.Repositories()
}

func newTestPatientService(repos *repository.Repositories) *PatientService {
	return NewPatientService(repos, nil, time.UTC, zap.NewNop())
}

var errStoreDown = errors.New("store unavailable")

type failingMembers struct {
	repository.MembersRepository
}

func (failingMembers) UpsertMember(context.Context, *domain.TeamMember) error {
	return errStoreDown
}

type failingShares struct {
	repository.DirectSharesRepository
}

func (failingShares) UpsertShare(context.Context, *domain.DirectShare) error {
	return errStoreDown
}

// invitationsTo lists every invitation addressed to email.
func invitationsTo(t *testing.T, repos *repository.Repositories, email string) []domain.Invitation {
	t.Helper()
	invs, err := repos.Invitations.ListInvitations(context.Background(), repository.InvitationsFilter{Email: email})
	require.NoError(t, err)
	return invs
}
