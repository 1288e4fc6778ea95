// internal/infra/database/sqlite_user_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"eslatma_bot/internal/domain/user"
)

// SQLiteUserRepository implements user.Repository on SQLite.
type SQLiteUserRepository struct {
	db *sql.DB
}

func NewSQLiteUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

func (r *SQLiteUserRepository) Preferences(ctx context.Context, userID int64) (*user.Preferences, error) {
	query := `SELECT user_id, timezone, language, created_at, updated_at
               FROM user_preferences WHERE user_id = ?`
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

func (r *SQLiteUserRepository) SavePreferences(ctx context.Context, p *user.Preferences) error {
	query := `INSERT INTO user_preferences (user_id, timezone, language)
               VALUES (?, ?, ?)
               ON CONFLICT (user_id) DO UPDATE
               SET timezone = excluded.timezone, language = excluded.language, updated_at = CURRENT_TIMESTAMP`
	if _, err := r.db.ExecContext(ctx, query, p.UserID, p.Timezone, p.Language); err != nil {
		return fmt.Errorf("error saving user preferences: %w", err)
	}
	return nil
}

func (r *SQLiteUserRepository) AllowMessage(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	cutoff := time.Now().UTC().Add(-window)

	if _, err := r.db.ExecContext(ctx, `DELETE FROM rate_limits WHERE requested_at < ?`, cutoff); err != nil {
		return false, fmt.Errorf("error pruning rate limits: %w", err)
	}

	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rate_limits WHERE user_id = ? AND requested_at >= ?`,
		userID, cutoff,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("error counting rate limit entries: %w", err)
	}
	if count >= limit {
		return false, nil
	}

	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO rate_limits (user_id, requested_at) VALUES (?, ?)`,
		userID, time.Now().UTC(),
	); err != nil {
		return false, fmt.Errorf("error recording rate limit entry: %w", err)
	}
	return true, nil
}
