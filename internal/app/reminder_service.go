// internal/app/reminder_service.go
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"eslatma_bot/internal/domain/reminder"
	"eslatma_bot/internal/domain/speech"
	"eslatma_bot/internal/domain/user"
	idb "eslatma_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// ErrRateLimited is returned when a user exceeds the per-window message
// budget.
var ErrRateLimited = fmt.Errorf("user is sending messages too fast")

// IngestResult reports what a voice or text message produced.
type IngestResult struct {
	Transcript string
	Created    []*reminder.Reminder
	// NeedsTime holds extracted tasks with no schedulable time; the caller
	// must prompt the user for an explicit time. This is an expected branch,
	// not an error.
	NeedsTime []speech.Candidate
}

// ReminderService handles the ingestion side: turning voice/text into stored
// reminders, plus the user-facing list/delete/snooze/timezone operations.
type ReminderService struct {
	reminders   reminder.Repository
	users       user.Repository
	transcriber speech.Transcriber
	extractor   speech.Extractor
	logger      *logrus.Entry

	defaultTimezone string
	defaultLanguage string
	rateLimit       int
	rateWindow      time.Duration
}

func NewReminderService(
	reminders reminder.Repository,
	users user.Repository,
	transcriber speech.Transcriber,
	extractor speech.Extractor,
	logger *logrus.Entry,
	defaultTimezone string,
	rateLimit int,
	rateWindow time.Duration,
) *ReminderService {
	return &ReminderService{
		reminders:       reminders,
		users:           users,
		transcriber:     transcriber,
		extractor:       extractor,
		logger:          logger,
		defaultTimezone: defaultTimezone,
		defaultLanguage: "uz",
		rateLimit:       rateLimit,
		rateWindow:      rateWindow,
	}
}

// IngestVoice transcribes a voice recording and creates reminders from it.
func (s *ReminderService) IngestVoice(ctx context.Context, userID, chatID int64, audio []byte) (*IngestResult, error) {
	if err := s.checkRateLimit(ctx, userID); err != nil {
		return nil, err
	}

	prefs := s.preferencesFor(ctx, userID)
	text, err := s.transcriber.Transcribe(ctx, audio, prefs.Language)
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"user_id": userID, "chars": len(text)}).Debug("Voice message transcribed")

	result, err := s.ingest(ctx, userID, chatID, text, prefs.Timezone)
	if err != nil {
		return nil, err
	}
	result.Transcript = text
	return result, nil
}

// IngestText creates reminders from a plain-text message.
func (s *ReminderService) IngestText(ctx context.Context, userID, chatID int64, text string) (*IngestResult, error) {
	if err := s.checkRateLimit(ctx, userID); err != nil {
		return nil, err
	}
	prefs := s.preferencesFor(ctx, userID)
	return s.ingest(ctx, userID, chatID, text, prefs.Timezone)
}

func (s *ReminderService) ingest(ctx context.Context, userID, chatID int64, text, timezone string) (*IngestResult, error) {
	candidates, err := s.extractor.Extract(ctx, text, time.Now().UTC(), timezone)
	if err != nil {
		return nil, err
	}

	result := &IngestResult{}
	for _, cand := range candidates {
		if cand.ScheduledTimeUTC.IsZero() {
			result.NeedsTime = append(result.NeedsTime, cand)
			continue
		}

		rem := &reminder.Reminder{
			UserID:           userID,
			ChatID:           chatID,
			TaskText:         cand.Task,
			Notes:            nullable(cand.Notes),
			Location:         nullable(cand.Location),
			ScheduledTimeUTC: cand.ScheduledTimeUTC.UTC(),
			UserTimezone:     timezone,
			Status:           reminder.StatusPending,
			RecurrenceType:   cand.RecurrenceType,
		}
		if cand.RecurrenceType != reminder.RecurrenceNone {
			clock := cand.RecurrenceTime
			if clock == "" {
				clock = reminder.DefaultRecurrenceClock
			}
			rem.RecurrenceTime = sql.NullString{String: clock, Valid: true}
		}

		if err := s.reminders.Add(ctx, rem); err != nil {
			return nil, fmt.Errorf("failed to store reminder: %w", err)
		}
		s.logger.WithFields(logrus.Fields{
			"reminder_id": rem.ID,
			"user_id":     userID,
			"at_utc":      rem.ScheduledTimeUTC,
			"recurrence":  string(rem.RecurrenceType),
		}).Info("Reminder created")
		result.Created = append(result.Created, rem)
	}
	return result, nil
}

// ScheduleExplicit stores a single reminder with an already-known time, used
// when the user answers the "when should I remind you?" prompt.
func (s *ReminderService) ScheduleExplicit(ctx context.Context, userID, chatID int64, task string, at time.Time) (*reminder.Reminder, error) {
	prefs := s.preferencesFor(ctx, userID)
	rem := &reminder.Reminder{
		UserID:           userID,
		ChatID:           chatID,
		TaskText:         task,
		ScheduledTimeUTC: at.UTC(),
		UserTimezone:     prefs.Timezone,
		Status:           reminder.StatusPending,
	}
	if err := s.reminders.Add(ctx, rem); err != nil {
		return nil, fmt.Errorf("failed to store reminder: %w", err)
	}
	return rem, nil
}

// ListPending returns the user's pending reminders, earliest first.
func (s *ReminderService) ListPending(ctx context.Context, userID int64) ([]*reminder.Reminder, error) {
	return s.reminders.ListByUser(ctx, userID, reminder.StatusPending)
}

// DeleteByPosition deletes the n-th (1-based) pending reminder as shown by
// ListPending. Returns the deleted reminder, or ok=false when the position is
// out of range or the reminder vanished concurrently.
func (s *ReminderService) DeleteByPosition(ctx context.Context, userID int64, position int) (*reminder.Reminder, bool, error) {
	pending, err := s.ListPending(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if position < 1 || position > len(pending) {
		return nil, false, nil
	}
	rem := pending[position-1]
	ok, err := s.reminders.Delete(ctx, rem.ID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to delete reminder %d: %w", rem.ID, err)
	}
	return rem, ok, nil
}

// Snooze pushes a pending reminder to a later time, keeping its announced
// state (only the follow-up flag resets).
func (s *ReminderService) Snooze(ctx context.Context, reminderID int64, until time.Time) (bool, error) {
	return s.reminders.Reschedule(ctx, reminderID, until, false)
}

// SetTimezone validates and saves the user's IANA zone.
func (s *ReminderService) SetTimezone(ctx context.Context, userID int64, zone string) error {
	if _, err := time.LoadLocation(zone); err != nil {
		return fmt.Errorf("unknown timezone %q: %w", zone, err)
	}
	prefs := s.preferencesFor(ctx, userID)
	prefs.Timezone = zone
	if err := s.users.SavePreferences(ctx, prefs); err != nil {
		return fmt.Errorf("failed to save timezone: %w", err)
	}
	return nil
}

// TimezoneFor returns the user's display timezone.
func (s *ReminderService) TimezoneFor(ctx context.Context, userID int64) string {
	return s.preferencesFor(ctx, userID).Timezone
}

func (s *ReminderService) checkRateLimit(ctx context.Context, userID int64) error {
	allowed, err := s.users.AllowMessage(ctx, userID, s.rateLimit, s.rateWindow)
	if err != nil {
		// A broken rate-limit store should not block reminder creation.
		s.logger.WithError(err).WithField("user_id", userID).Warn("Rate limit check failed; allowing message")
		return nil
	}
	if !allowed {
		return ErrRateLimited
	}
	return nil
}

func (s *ReminderService) preferencesFor(ctx context.Context, userID int64) *user.Preferences {
	prefs, err := s.users.Preferences(ctx, userID)
	if err != nil {
		if err != idb.ErrPreferencesNotFound {
			s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to load preferences; using defaults")
		}
		return &user.Preferences{UserID: userID, Timezone: s.defaultTimezone, Language: s.defaultLanguage}
	}
	return prefs
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
