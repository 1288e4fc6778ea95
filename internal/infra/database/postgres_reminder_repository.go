// internal/infra/database/postgres_reminder_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"eslatma_bot/internal/domain/reminder"
)

// PostgresReminderRepository implements reminder.Repository on PostgreSQL
// (the "cloud SQL" deployment variant).
type PostgresReminderRepository struct {
	db *sql.DB
}

func NewPostgresReminderRepository(db *sql.DB) *PostgresReminderRepository {
	return &PostgresReminderRepository{db: db}
}

func (r *PostgresReminderRepository) Add(ctx context.Context, rem *reminder.Reminder) error {
	if rem.Status == "" {
		rem.Status = reminder.StatusPending
	}
	query := `INSERT INTO reminders (user_id, chat_id, task_text, notes, location, scheduled_time_utc,
                 user_timezone, status, initial_reminder_sent, follow_up_sent, recurrence_type, recurrence_time)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, FALSE, $9, $10)
               RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		rem.UserID, rem.ChatID, rem.TaskText, rem.Notes, rem.Location, rem.ScheduledTimeUTC.UTC(),
		rem.UserTimezone, rem.Status, recurrenceParam(rem.RecurrenceType), rem.RecurrenceTime,
	).Scan(&rem.ID, &rem.CreatedAt, &rem.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating reminder: %w", err)
	}
	return nil
}

func (r *PostgresReminderRepository) GetByID(ctx context.Context, id int64) (*reminder.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE id = $1`
	rem, err := scanReminder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrReminderNotFound
		}
		return nil, fmt.Errorf("error getting reminder by ID: %w", err)
	}
	return rem, nil
}

func (r *PostgresReminderRepository) DueForFirstDelivery(ctx context.Context, asOf time.Time) ([]*reminder.Reminder, error) {
	query := `SELECT ` + reminderColumns + `
               FROM reminders
               WHERE status = $1 AND initial_reminder_sent = FALSE AND scheduled_time_utc <= $2
               ORDER BY scheduled_time_utc ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, reminder.StatusPending, asOf.UTC())
	if err != nil {
		return nil, fmt.Errorf("error listing reminders due for first delivery: %w", err)
	}
	return collectReminders(rows)
}

func (r *PostgresReminderRepository) DueForFollowUp(ctx context.Context, threshold time.Time) ([]*reminder.Reminder, error) {
	query := `SELECT ` + reminderColumns + `
               FROM reminders
               WHERE status = $1 AND initial_reminder_sent = TRUE AND follow_up_sent = FALSE
                 AND recurrence_type IS NULL AND scheduled_time_utc <= $2
               ORDER BY scheduled_time_utc ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, reminder.StatusPending, threshold.UTC())
	if err != nil {
		return nil, fmt.Errorf("error listing reminders due for follow-up: %w", err)
	}
	return collectReminders(rows)
}

func (r *PostgresReminderRepository) AllPending(ctx context.Context) ([]*reminder.Reminder, error) {
	query := `SELECT ` + reminderColumns + `
               FROM reminders
               WHERE status = $1
               ORDER BY scheduled_time_utc ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, reminder.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("error listing pending reminders: %w", err)
	}
	return collectReminders(rows)
}

func (r *PostgresReminderRepository) ListByUser(ctx context.Context, userID int64, status reminder.Status) ([]*reminder.Reminder, error) {
	query := `SELECT ` + reminderColumns + `
               FROM reminders
               WHERE user_id = $1 AND status = $2
               ORDER BY scheduled_time_utc ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, userID, status)
	if err != nil {
		return nil, fmt.Errorf("error listing reminders for user %d: %w", userID, err)
	}
	return collectReminders(rows)
}

func (r *PostgresReminderRepository) LatestAwaitingResponse(ctx context.Context, userID int64) (*reminder.Reminder, error) {
	query := `SELECT ` + reminderColumns + `
               FROM reminders
               WHERE user_id = $1 AND status = $2 AND follow_up_sent = TRUE
               ORDER BY scheduled_time_utc DESC, id DESC
               LIMIT 1`
	rem, err := scanReminder(r.db.QueryRowContext(ctx, query, userID, reminder.StatusPending))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrReminderNotFound
		}
		return nil, fmt.Errorf("error getting latest awaiting-response reminder: %w", err)
	}
	return rem, nil
}

func (r *PostgresReminderRepository) MarkInitialSent(ctx context.Context, id int64) (bool, error) {
	query := `UPDATE reminders SET initial_reminder_sent = TRUE, updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, query, id)
}

func (r *PostgresReminderRepository) MarkFollowUpSent(ctx context.Context, id int64) (bool, error) {
	query := `UPDATE reminders SET follow_up_sent = TRUE, updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, query, id)
}

func (r *PostgresReminderRepository) SetStatus(ctx context.Context, id int64, status reminder.Status) (bool, error) {
	query := `UPDATE reminders SET status = $1, updated_at = NOW() WHERE id = $2`
	return r.exec(ctx, query, status, id)
}

func (r *PostgresReminderRepository) Reschedule(ctx context.Context, id int64, newTime time.Time, resetFollowUp bool) (bool, error) {
	var query string
	if resetFollowUp {
		query = `UPDATE reminders
                  SET scheduled_time_utc = $1, status = $2, initial_reminder_sent = FALSE,
                      follow_up_sent = FALSE, updated_at = NOW()
                  WHERE id = $3`
	} else {
		query = `UPDATE reminders
                  SET scheduled_time_utc = $1, status = $2, follow_up_sent = FALSE, updated_at = NOW()
                  WHERE id = $3`
	}
	return r.exec(ctx, query, newTime.UTC(), reminder.StatusPending, id)
}

func (r *PostgresReminderRepository) Delete(ctx context.Context, id int64) (bool, error) {
	return r.exec(ctx, `DELETE FROM reminders WHERE id = $1`, id)
}

// exec runs a single-row mutation and reports whether a row was affected.
// A missing id is a no-op, not an error.
func (r *PostgresReminderRepository) exec(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("error executing reminder mutation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading affected rows: %w", err)
	}
	return affected > 0, nil
}
