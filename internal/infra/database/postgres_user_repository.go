// internal/infra/database/postgres_user_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"eslatma_bot/internal/domain/user"
)

// PostgresUserRepository implements user.Repository on PostgreSQL.
type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Preferences(ctx context.Context, userID int64) (*user.Preferences, error) {
	query := `SELECT user_id, timezone, language, created_at, updated_at
               FROM user_preferences WHERE user_id = $1`
	p := user.Preferences{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&p.UserID, &p.Timezone, &p.Language, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrPreferencesNotFound
		}
		return nil, fmt.Errorf("error getting user preferences: %w", err)
	}
	return &p, nil
}

func (r *PostgresUserRepository) SavePreferences(ctx context.Context, p *user.Preferences) error {
	query := `INSERT INTO user_preferences (user_id, timezone, language)
               VALUES ($1, $2, $3)
               ON CONFLICT (user_id) DO UPDATE
               SET timezone = EXCLUDED.timezone, language = EXCLUDED.language, updated_at = NOW()
               RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, p.UserID, p.Timezone, p.Language).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error saving user preferences: %w", err)
	}
	return nil
}

// AllowMessage prunes entries older than the window, then counts the user's
// recent requests and records this one when under the limit.
func (r *PostgresUserRepository) AllowMessage(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	cutoff := time.Now().UTC().Add(-window)

	if _, err := r.db.ExecContext(ctx, `DELETE FROM rate_limits WHERE requested_at < $1`, cutoff); err != nil {
		return false, fmt.Errorf("error pruning rate limits: %w", err)
	}

	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rate_limits WHERE user_id = $1 AND requested_at >= $2`,
		userID, cutoff,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("error counting rate limit entries: %w", err)
	}
	if count >= limit {
		return false, nil
	}

	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO rate_limits (user_id, requested_at) VALUES ($1, $2)`,
		userID, time.Now().UTC(),
	); err != nil {
		return false, fmt.Errorf("error recording rate limit entry: %w", err)
	}
	return true, nil
}
