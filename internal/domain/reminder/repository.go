// internal/domain/reminder/repository.go
package reminder

import (
	"context"
	"time"
)

// Repository defines the persistence contract for reminders. It is
// implemented by both the PostgreSQL and the SQLite backend; which one is in
// use is a deployment concern and must not leak into scheduling logic.
//
// Mutating methods return false (not an error) when the id does not exist: a
// reminder may be deleted by its owner while a scheduler pass is mid-scan,
// and that race is expected.
type Repository interface {
	// Add inserts a new pending reminder and assigns its ID, CreatedAt and
	// UpdatedAt fields.
	Add(ctx context.Context, r *Reminder) error

	// GetByID returns ErrReminderNotFound (declared in the database infra
	// package) when no such reminder exists.
	GetByID(ctx context.Context, id int64) (*Reminder, error)

	// DueForFirstDelivery returns all pending reminders whose initial
	// notification has not been sent and whose scheduled time is at or
	// before asOf, earliest first (ties broken by insertion order).
	DueForFirstDelivery(ctx context.Context, asOf time.Time) ([]*Reminder, error)

	// DueForFollowUp returns non-recurring pending reminders whose initial
	// notification went out, whose follow-up has not, and whose scheduled
	// time is at or before threshold.
	DueForFollowUp(ctx context.Context, threshold time.Time) ([]*Reminder, error)

	// AllPending returns every pending reminder; used only by startup
	// recovery.
	AllPending(ctx context.Context) ([]*Reminder, error)

	// ListByUser returns a user's reminders with the given status, earliest
	// scheduled first.
	ListByUser(ctx context.Context, userID int64, status Status) ([]*Reminder, error)

	// LatestAwaitingResponse returns the most recent pending reminder of the
	// user that has a follow-up outstanding, or ErrReminderNotFound. It
	// resolves a free-text yes/no reply when no explicit id accompanies it.
	LatestAwaitingResponse(ctx context.Context, userID int64) (*Reminder, error)

	MarkInitialSent(ctx context.Context, id int64) (bool, error)
	MarkFollowUpSent(ctx context.Context, id int64) (bool, error)
	SetStatus(ctx context.Context, id int64, status Status) (bool, error)

	// Reschedule moves the reminder to newTime and returns it to pending.
	// With resetFollowUp both sent flags are cleared so the whole
	// initial+follow-up cycle repeats; otherwise only the follow-up flag is
	// cleared (snooze of an already-announced reminder).
	Reschedule(ctx context.Context, id int64, newTime time.Time, resetFollowUp bool) (bool, error)

	Delete(ctx context.Context, id int64) (bool, error)
}
