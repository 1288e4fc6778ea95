package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"eslatma_bot/internal/domain/reminder"
)

// newTestDB opens a per-test in-memory SQLite database and applies the full
// migration set.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_fk=1&_loc=UTC", name, time.Now().UnixNano())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite memory: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedReminder(t *testing.T, repo *SQLiteReminderRepository, rem *reminder.Reminder) *reminder.Reminder {
	t.Helper()
	if err := repo.Add(context.Background(), rem); err != nil {
		t.Fatalf("seed reminder: %v", err)
	}
	return rem
}

func TestMigrateIdempotent(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	// Second run hits the additive-column branch and must still succeed.
	if err := Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestSQLiteAddAndGetRoundtrip(t *testing.T) {
	t.Parallel()
	repo := NewSQLiteReminderRepository(newTestDB(t))
	ctx := context.Background()

	at := time.Date(2026, 3, 10, 4, 0, 0, 0, time.UTC)
	rem := seedReminder(t, repo, &reminder.Reminder{
		UserID: 1, ChatID: 100, TaskText: "Dorini ichish",
		Notes:            sql.NullString{String: "ikkita tabletka", Valid: true},
		ScheduledTimeUTC: at,
		UserTimezone:     "Asia/Tashkent",
		RecurrenceType:   reminder.RecurrenceDaily,
		RecurrenceTime:   sql.NullString{String: "09:00", Valid: true},
	})
	if rem.ID == 0 {
		t.Fatalf("Add did not assign an id")
	}

	got, err := repo.GetByID(ctx, rem.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.TaskText != "Dorini ichish" || got.Notes.String != "ikkita tabletka" {
		t.Fatalf("content fields lost: %+v", got)
	}
	if got.Location.Valid {
		t.Fatalf("empty location came back non-NULL")
	}
	if !got.ScheduledTimeUTC.Equal(at) {
		t.Fatalf("scheduled time %s, want %s", got.ScheduledTimeUTC, at)
	}
	if got.Status != reminder.StatusPending || got.InitialReminderSent || got.FollowUpSent {
		t.Fatalf("fresh reminder has wrong state: %+v", got)
	}
	if got.RecurrenceType != reminder.RecurrenceDaily || got.RecurrenceTime.String != "09:00" {
		t.Fatalf("recurrence fields lost: %+v", got)
	}

	if _, err := repo.GetByID(ctx, 9999); err != ErrReminderNotFound {
		t.Fatalf("missing id: got %v, want ErrReminderNotFound", err)
	}
}

func TestSQLiteDueQueries(t *testing.T) {
	t.Parallel()
	repo := NewSQLiteReminderRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	due := seedReminder(t, repo, &reminder.Reminder{
		UserID: 1, ChatID: 1, TaskText: "due",
		ScheduledTimeUTC: now.Add(-time.Minute), UserTimezone: "UTC",
	})
	seedReminder(t, repo, &reminder.Reminder{
		UserID: 1, ChatID: 1, TaskText: "future",
		ScheduledTimeUTC: now.Add(time.Hour), UserTimezone: "UTC",
	})

	first, err := repo.DueForFirstDelivery(ctx, now)
	if err != nil {
		t.Fatalf("DueForFirstDelivery: %v", err)
	}
	if len(first) != 1 || first[0].ID != due.ID {
		t.Fatalf("expected only the due reminder, got %+v", first)
	}

	if ok, err := repo.MarkInitialSent(ctx, due.ID); err != nil || !ok {
		t.Fatalf("MarkInitialSent = (%v, %v)", ok, err)
	}
	first, err = repo.DueForFirstDelivery(ctx, now)
	if err != nil {
		t.Fatalf("DueForFirstDelivery after mark: %v", err)
	}
	if len(first) != 0 {
		t.Fatalf("sent reminder still listed for first delivery: %+v", first)
	}

	// Not yet past the follow-up threshold.
	followUps, err := repo.DueForFollowUp(ctx, now.Add(-30*time.Minute))
	if err != nil {
		t.Fatalf("DueForFollowUp: %v", err)
	}
	if len(followUps) != 0 {
		t.Fatalf("follow-up listed before threshold: %+v", followUps)
	}

	// Threshold moved past the scheduled time: the follow-up becomes due.
	followUps, err = repo.DueForFollowUp(ctx, now)
	if err != nil {
		t.Fatalf("DueForFollowUp: %v", err)
	}
	if len(followUps) != 1 || followUps[0].ID != due.ID {
		t.Fatalf("expected the announced reminder due for follow-up, got %+v", followUps)
	}

	if ok, err := repo.MarkFollowUpSent(ctx, due.ID); err != nil || !ok {
		t.Fatalf("MarkFollowUpSent = (%v, %v)", ok, err)
	}
	followUps, err = repo.DueForFollowUp(ctx, now)
	if err != nil {
		t.Fatalf("DueForFollowUp after mark: %v", err)
	}
	if len(followUps) != 0 {
		t.Fatalf("follow-up listed twice: %+v", followUps)
	}
}

func TestSQLiteRecurringExcludedFromFollowUp(t *testing.T) {
	t.Parallel()
	repo := NewSQLiteReminderRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	rem := seedReminder(t, repo, &reminder.Reminder{
		UserID: 1, ChatID: 1, TaskText: "vitamin",
		ScheduledTimeUTC: now.Add(-2 * time.Hour), UserTimezone: "UTC",
		RecurrenceType:   reminder.RecurrenceDaily,
		RecurrenceTime:   sql.NullString{String: "09:00", Valid: true},
	})
	if _, err := repo.MarkInitialSent(ctx, rem.ID); err != nil {
		t.Fatalf("MarkInitialSent: %v", err)
	}

	followUps, err := repo.DueForFollowUp(ctx, now)
	if err != nil {
		t.Fatalf("DueForFollowUp: %v", err)
	}
	if len(followUps) != 0 {
		t.Fatalf("recurring reminder listed for follow-up: %+v", followUps)
	}
}

func TestSQLiteRescheduleFlagReset(t *testing.T) {
	t.Parallel()
	repo := NewSQLiteReminderRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	rem := seedReminder(t, repo, &reminder.Reminder{
		UserID: 1, ChatID: 1, TaskText: "hisobot",
		ScheduledTimeUTC: now.Add(-time.Hour), UserTimezone: "UTC",
	})
	if _, err := repo.MarkInitialSent(ctx, rem.ID); err != nil {
		t.Fatalf("MarkInitialSent: %v", err)
	}
	if _, err := repo.MarkFollowUpSent(ctx, rem.ID); err != nil {
		t.Fatalf("MarkFollowUpSent: %v", err)
	}

	// Full reset: the whole initial+follow-up cycle repeats.
	later := now.Add(30 * time.Minute)
	if ok, err := repo.Reschedule(ctx, rem.ID, later, true); err != nil || !ok {
		t.Fatalf("Reschedule = (%v, %v)", ok, err)
	}
	got, err := repo.GetByID(ctx, rem.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.InitialReminderSent || got.FollowUpSent {
		t.Fatalf("full reschedule left flags set: %+v", got)
	}
	if !got.ScheduledTimeUTC.Equal(later) || got.Status != reminder.StatusPending {
		t.Fatalf("reschedule state wrong: %+v", got)
	}

	// Snooze variant keeps the announced flag, resets only the follow-up.
	if _, err := repo.MarkInitialSent(ctx, rem.ID); err != nil {
		t.Fatalf("MarkInitialSent: %v", err)
	}
	if _, err := repo.MarkFollowUpSent(ctx, rem.ID); err != nil {
		t.Fatalf("MarkFollowUpSent: %v", err)
	}
	if ok, err := repo.Reschedule(ctx, rem.ID, later.Add(time.Hour), false); err != nil || !ok {
		t.Fatalf("snooze Reschedule = (%v, %v)", ok, err)
	}
	got, err = repo.GetByID(ctx, rem.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.InitialReminderSent || got.FollowUpSent {
		t.Fatalf("snooze should keep initial flag and clear follow-up: %+v", got)
	}
}

func TestSQLiteLatestAwaitingResponse(t *testing.T) {
	t.Parallel()
	repo := NewSQLiteReminderRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	older := seedReminder(t, repo, &reminder.Reminder{
		UserID: 1, ChatID: 1, TaskText: "birinchi",
		ScheduledTimeUTC: now.Add(-2 * time.Hour), UserTimezone: "UTC",
	})
	newer := seedReminder(t, repo, &reminder.Reminder{
		UserID: 1, ChatID: 1, TaskText: "ikkinchi",
		ScheduledTimeUTC: now.Add(-time.Hour), UserTimezone: "UTC",
	})
	for _, id := range []int64{older.ID, newer.ID} {
		if _, err := repo.MarkInitialSent(ctx, id); err != nil {
			t.Fatalf("MarkInitialSent: %v", err)
		}
		if _, err := repo.MarkFollowUpSent(ctx, id); err != nil {
			t.Fatalf("MarkFollowUpSent: %v", err)
		}
	}

	got, err := repo.LatestAwaitingResponse(ctx, 1)
	if err != nil {
		t.Fatalf("LatestAwaitingResponse: %v", err)
	}
	if got.ID != newer.ID {
		t.Fatalf("latest awaiting = %d, want %d", got.ID, newer.ID)
	}

	if _, err := repo.LatestAwaitingResponse(ctx, 42); err != ErrReminderNotFound {
		t.Fatalf("unknown user: got %v, want ErrReminderNotFound", err)
	}
}

func TestSQLiteMutationsOnMissingID(t *testing.T) {
	t.Parallel()
	repo := NewSQLiteReminderRepository(newTestDB(t))
	ctx := context.Background()

	checks := []struct {
		name string
		call func() (bool, error)
	}{
		{"MarkInitialSent", func() (bool, error) { return repo.MarkInitialSent(ctx, 9999) }},
		{"MarkFollowUpSent", func() (bool, error) { return repo.MarkFollowUpSent(ctx, 9999) }},
		{"SetStatus", func() (bool, error) { return repo.SetStatus(ctx, 9999, reminder.StatusDone) }},
		{"Reschedule", func() (bool, error) { return repo.Reschedule(ctx, 9999, time.Now().UTC(), true) }},
		{"Delete", func() (bool, error) { return repo.Delete(ctx, 9999) }},
	}
	for _, c := range checks {
		ok, err := c.call()
		if err != nil {
			t.Errorf("%s on missing id returned error: %v", c.name, err)
		}
		if ok {
			t.Errorf("%s on missing id reported success", c.name)
		}
	}
}

func TestSQLiteListByUser(t *testing.T) {
	t.Parallel()
	repo := NewSQLiteReminderRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	late := seedReminder(t, repo, &reminder.Reminder{
		UserID: 1, ChatID: 1, TaskText: "kechki",
		ScheduledTimeUTC: now.Add(5 * time.Hour), UserTimezone: "UTC",
	})
	early := seedReminder(t, repo, &reminder.Reminder{
		UserID: 1, ChatID: 1, TaskText: "ertalabki",
		ScheduledTimeUTC: now.Add(time.Hour), UserTimezone: "UTC",
	})
	seedReminder(t, repo, &reminder.Reminder{
		UserID: 2, ChatID: 2, TaskText: "begona",
		ScheduledTimeUTC: now.Add(time.Hour), UserTimezone: "UTC",
	})
	if _, err := repo.SetStatus(ctx, late.ID, reminder.StatusDone); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	pending, err := repo.ListByUser(ctx, 1, reminder.StatusPending)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != early.ID {
		t.Fatalf("expected only the pending early reminder, got %+v", pending)
	}
}
