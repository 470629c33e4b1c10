package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"yourloops-dashboard/internal/domain"
)

type PostgresAccountsRepository struct {
	db *sql.DB
}

func NewPostgresAccountsRepository(db *sql.DB) *PostgresAccountsRepository {
	return &PostgresAccountsRepository{db: db}
}

var _ AccountsRepository = (*PostgresAccountsRepository)(nil)

func (r *PostgresAccountsRepository) getOne(ctx context.Context, where string, arg string) (*Account, error) {
	query := `SELECT user_id, email, role, profile FROM accounts WHERE ` + where
	var (
		a       Account
		role    string
		profile []byte
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&a.UserID, &a.Email, &role, &profile)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account %s: %w", arg, domain.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	a.Role = domain.UserRole(role)
	if len(profile) > 0 {
		a.Profile = &domain.MemberProfile{}
		if err := scanJSON(profile, a.Profile); err != nil {
			return nil, err
		}
	}
	return &a, nil
}

func (r *PostgresAccountsRepository) GetAccount(ctx context.Context, userID string) (*Account, error) {
	return r.getOne(ctx, "user_id = $1", userID)
}

// GetAccountByEmail is case-insensitive.
func (r *PostgresAccountsRepository) GetAccountByEmail(ctx context.Context, email string) (*Account, error) {
	return r.getOne(ctx, "lower(email) = $1", strings.ToLower(email))
}
