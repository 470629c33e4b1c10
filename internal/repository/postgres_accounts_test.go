package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"yourloops-dashboard/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var accountRowColumns = []string{"user_id", "email", "role", "profile"}

func setupMockAccountsDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresAccountsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresAccountsRepository(db)
}

func TestPostgresAccounts_GetAccount(t *testing.T) {
	db, mock, repo := setupMockAccountsDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT user_id, email, role, profile FROM accounts WHERE user_id`).
		WithArgs("abc").
		WillReturnRows(sqlmock.NewRows(accountRowColumns).
			AddRow("abc", "ada@example.com", "patient", `{"firstName":"Ada","lastName":"Lovelace","fullName":"Ada Lovelace"}`))

	acc, err := repo.GetAccount(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, domain.RolePatient, acc.Role)
	require.NotNil(t, acc.Profile)
	assert.Equal(t, "Ada Lovelace", acc.Profile.FullName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAccounts_GetAccountByEmail_Lowercases(t *testing.T) {
	db, mock, repo := setupMockAccountsDB(t)
	defer db.Close()

	mock.ExpectQuery(`WHERE lower\(email\)`).
		WithArgs("doc@example.com").
		WillReturnRows(sqlmock.NewRows(accountRowColumns).AddRow("hcp-1", "Doc@Example.com", "hcp", nil))

	acc, err := repo.GetAccountByEmail(context.Background(), "DOC@example.COM")
	require.NoError(t, err)
	assert.Equal(t, "hcp-1", acc.UserID)
	assert.Nil(t, acc.Profile)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAccounts_NotFound(t *testing.T) {
	db, mock, repo := setupMockAccountsDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).WithArgs("nobody").WillReturnError(sql.ErrNoRows)

	acc, err := repo.GetAccount(context.Background(), "nobody")
	assert.Nil(t, acc)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAccounts_QueryError(t *testing.T) {
	db, mock, repo := setupMockAccountsDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).WithArgs("abc").WillReturnError(errors.New("connection reset"))

	_, err := repo.GetAccount(context.Background(), "abc")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrAccountNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
