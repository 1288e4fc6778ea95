package user

import (
	"context"
	"time"
)

// Preferences stores a user's timezone and language choices.
// Corresponds to the 'user_preferences' table.
type Preferences struct {
	UserID    int64
	Timezone  string // IANA zone name
	Language  string // "uz" or "ru"
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository defines persistence for user preferences and the per-user
// message rate limit.
type Repository interface {
	// Preferences returns ErrPreferencesNotFound when the user has never
	// saved any; callers apply the configured defaults.
	Preferences(ctx context.Context, userID int64) (*Preferences, error)

	// SavePreferences inserts or updates the user's row.
	SavePreferences(ctx context.Context, p *Preferences) error

	// AllowMessage records one message attempt and reports whether the user
	// is still within limit messages per window (sliding).
	AllowMessage(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
}
