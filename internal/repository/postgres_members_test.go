package repository

import (
	"context"
	"database/sql"
	"testing"

	"yourloops-dashboard/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockMembersDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresMembersRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresMembersRepository(db)
}

func TestPostgresMembers_ListPatientMembers(t *testing.T) {
	db, mock, repo := setupMockMembersDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(memberRowColumns).
			AddRow("team-1", "abc", "a@example.com", "patient", "accepted", "", nil, nil,
				`{"enabled":true,"status":"accepted"}`, 0, false).
			AddRow("team-2", "abc", "a@example.com", "patient", "pending", "inv-2", nil, nil, nil, 1, false))

	members, err := repo.ListPatientMembers(context.Background(), []string{"team-1", "team-2"})
	require.NoError(t, err)
	require.Len(t, members, 2)
	require.NotNil(t, members[0].Monitoring)
	assert.Equal(t, "accepted", *members[0].Monitoring.Status)
	assert.Equal(t, domain.StatusPending, members[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMembers_ListPatientMembers_NoTeams(t *testing.T) {
	db, mock, repo := setupMockMembersDB(t)
	defer db.Close()

	members, err := repo.ListPatientMembers(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, members)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMembers_GetMember_NotFound(t *testing.T) {
	db, mock, repo := setupMockMembersDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).WithArgs("team-1", "nobody").WillReturnError(sql.ErrNoRows)

	m, err := repo.GetMember(context.Background(), "team-1", "nobody")
	assert.Nil(t, m)
	assert.ErrorIs(t, err, domain.ErrNotTeamMember)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMembers_UpdateMemberRole(t *testing.T) {
	db, mock, repo := setupMockMembersDB(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE team_members SET role`).
		WithArgs("team-1", "hcp-2", "admin").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateMemberRole(context.Background(), "team-1", "hcp-2", domain.MemberRoleAdmin))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMembers_UpdateMemberAlarms_NoRow(t *testing.T) {
	db, mock, repo := setupMockMembersDB(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE team_members SET alarms`).
		WithArgs("team-1", "abc", `{"timeSpentAwayFromTargetRate":12.5,"frequencyOfSevereHypoglycemiaRate":0,"nonDataTransmissionRate":0,"timeSpentAwayFromTargetActive":true,"frequencyOfSevereHypoglycemiaActive":false,"nonDataTransmissionActive":false}`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateMemberAlarms(context.Background(), "team-1", "abc", domain.Alarm{
		TimeSpentAwayFromTargetRate:   12.5,
		TimeSpentAwayFromTargetActive: true,
	})
	assert.ErrorIs(t, err, domain.ErrNotTeamMember)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMembers_UpsertMember(t *testing.T) {
	db, mock, repo := setupMockMembersDB(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO team_members`).
		WithArgs("team-1", "abc", "a@example.com", "patient", "pending", "inv-1", nil, nil, nil, 0, false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpsertMember(context.Background(), &domain.TeamMember{
		TeamID:       "team-1",
		UserID:       "abc",
		Email:        "a@example.com",
		Role:         domain.MemberRolePatient,
		Status:       domain.StatusPending,
		InvitationID: "inv-1",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMembers_ResetUnreadMessages(t *testing.T) {
	db, mock, repo := setupMockMembersDB(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE team_members SET unread_messages = 0`).
		WithArgs("abc", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.ResetUnreadMessages(context.Background(), "abc", []string{"team-1", "team-2"}))
	require.NoError(t, repo.ResetUnreadMessages(context.Background(), "abc", nil))
	require.NoError(t, mock.ExpectationsWereMet())
}
