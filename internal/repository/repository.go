// Package repository is the data access layer. Postgres implementations
// back production; the Memory implementation serves development when the
// database is disabled or unreachable.
package repository

import (
	"context"
	"database/sql"

	"yourloops-dashboard/internal/domain"
)

// AccountsRepository resolves platform users.
type AccountsRepository interface {
	GetAccount(ctx context.Context, userID string) (*Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)
}

// Account is a platform user as stored locally.
type Account struct {
	UserID  string
	Email   string
	Role    domain.UserRole
	Profile *domain.MemberProfile
}

// TeamsRepository stores teams. Returned teams carry their members.
type TeamsRepository interface {
	GetTeam(ctx context.Context, teamID string) (*domain.Team, error)
	GetTeamByCode(ctx context.Context, code string) (*domain.Team, error)
	ListTeamsForUser(ctx context.Context, userID string) ([]domain.Team, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	CreateTeam(ctx context.Context, team *domain.Team) error
	UpdateTeam(ctx context.Context, team *domain.Team) error
	DeleteTeam(ctx context.Context, teamID string) error
}

// MembersRepository stores team memberships, patients included.
type MembersRepository interface {
	GetMember(ctx context.Context, teamID, userID string) (*domain.TeamMember, error)
	ListMembers(ctx context.Context, teamID string) ([]domain.TeamMember, error)
	ListPatientMembers(ctx context.Context, teamIDs []string) ([]domain.TeamMember, error)
	ListMembershipsOfUser(ctx context.Context, userID string) ([]domain.TeamMember, error)
	UpsertMember(ctx context.Context, member *domain.TeamMember) error
	UpdateMemberStatus(ctx context.Context, teamID, userID string, status domain.UserInvitationStatus) error
	UpdateMemberRole(ctx context.Context, teamID, userID string, role domain.TeamMemberRole) error
	UpdateMemberMonitoring(ctx context.Context, teamID, userID string, monitoring *domain.Monitoring) error
	UpdateMemberAlarms(ctx context.Context, teamID, userID string, alarms domain.Alarm) error
	// ResetUnreadMessages clears the counter of userID in teamIDs only.
	ResetUnreadMessages(ctx context.Context, userID string, teamIDs []string) error
	DeleteMember(ctx context.Context, teamID, userID string) error
}

// InvitationsFilter narrows ListInvitations. Empty fields are ignored.
type InvitationsFilter struct {
	Email     string
	CreatorID string
	TargetID  string
	Type      domain.NotificationType
}

type InvitationsRepository interface {
	GetInvitation(ctx context.Context, invitationID string) (*domain.Invitation, error)
	ListInvitations(ctx context.Context, filter InvitationsFilter) ([]domain.Invitation, error)
	CreateInvitation(ctx context.Context, inv *domain.Invitation) error
	DeleteInvitation(ctx context.Context, invitationID string) error
}

type DirectSharesRepository interface {
	ListSharesByViewer(ctx context.Context, viewerID string) ([]domain.DirectShare, error)
	ListSharesByPatient(ctx context.Context, patientID string) ([]domain.DirectShare, error)
	UpsertShare(ctx context.Context, share *domain.DirectShare) error
	UpdateShareStatus(ctx context.Context, patientID, viewerID string, status domain.UserInvitationStatus) error
	DeleteShare(ctx context.Context, patientID, viewerID string) error
}

type PreferencesRepository interface {
	// GetPreferences returns empty preferences for unknown users.
	GetPreferences(ctx context.Context, userID string) (*domain.Preferences, error)
	SetFlaggedPatients(ctx context.Context, userID string, patientIDs []string) error
}

// Repositories groups every repository the services need.
type Repositories struct {
	Accounts     AccountsRepository
	Teams        TeamsRepository
	Members      MembersRepository
	Invitations  InvitationsRepository
	DirectShares DirectSharesRepository
	Preferences  PreferencesRepository
}

// NewPostgresRepositories wires every Postgres implementation on db.
func NewPostgresRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Accounts:     NewPostgresAccountsRepository(db),
		Teams:        NewPostgresTeamsRepository(db),
		Members:      NewPostgresMembersRepository(db),
		Invitations:  NewPostgresInvitationsRepository(db),
		DirectShares: NewPostgresDirectSharesRepository(db),
		Preferences:  NewPostgresPreferencesRepository(db),
	}
}
