package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"yourloops-dashboard/internal/domain"

	"github.com/lib/pq"
)

type PostgresPreferencesRepository struct {
	db *sql.DB
}

func NewPostgresPreferencesRepository(db *sql.DB) *PostgresPreferencesRepository {
	return &PostgresPreferencesRepository{db: db}
}

var _ PreferencesRepository = (*PostgresPreferencesRepository)(nil)

func (r *PostgresPreferencesRepository) GetPreferences(ctx context.Context, userID string) (*domain.Preferences, error) {
	prefs := &domain.Preferences{UserID: userID, PatientsStarred: []string{}}
	var starred pq.StringArray
	err := r.db.QueryRowContext(ctx,
		`SELECT patients_starred, display_language FROM user_preferences WHERE user_id = $1`,
		userID,
	).Scan(&starred, &prefs.DisplayLanguage)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return prefs, nil
		}
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}
	if len(starred) > 0 {
		prefs.PatientsStarred = []string(starred)
	}
	return prefs, nil
}

func (r *PostgresPreferencesRepository) SetFlaggedPatients(ctx context.Context, userID string, patientIDs []string) error {
	if patientIDs == nil {
		patientIDs = []string{}
	}
	query := `
		INSERT INTO user_preferences (user_id, patients_starred)
		VALUES ($1, $2)
		ON CONFLICT (user_id)
		DO UPDATE SET patients_starred = EXCLUDED.patients_starred`
	if _, err := r.db.ExecContext(ctx, query, userID, pq.StringArray(patientIDs)); err != nil {
		return fmt.Errorf("failed to save flagged patients: %w", err)
	}
	return nil
}
