// internal/app/response_service.go
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"eslatma_bot/internal/domain/reminder"
	idb "eslatma_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// ResponseOutcome classifies what a user's reply to a follow-up did.
type ResponseOutcome int

const (
	// OutcomeUnrecognized means the text was not a yes/no reply at all; the
	// caller should fall through to other message handling.
	OutcomeUnrecognized ResponseOutcome = iota
	// OutcomeNoReminder means the reply was recognized but nothing is
	// awaiting a response (stale button, out-of-context message).
	OutcomeNoReminder
	// OutcomeDone means a one-shot reminder was confirmed done.
	OutcomeDone
	// OutcomeDoneRecurring means a recurring reminder was confirmed done and
	// its next occurrence was scheduled.
	OutcomeDoneRecurring
	// OutcomeSnoozed means the user said "not done"; the reminder re-enters
	// the unsent state at a later time.
	OutcomeSnoozed
)

// ResponseResult is returned to the transport handler, which renders the
// user-facing reply. Keeping presentation out of the service keeps this
// testable with a bare fake repository.
type ResponseResult struct {
	Outcome   ResponseOutcome
	Reminder  *reminder.Reminder
	NextLabel string    // rough timing of the next occurrence, recurring only
	NextTime  time.Time // scheduled retry (snooze) or next occurrence (recurring)
}

// Affirmative and negative reply tokens, Uzbek and Russian, matched
// case-insensitively against the whole trimmed message.
var (
	affirmativeTokens = []string{"HA", "XA", "ХА", "BAJARILDI", "TAYYOR", "TUGADI", "ДА", "Д", "ГОТОВО", "ВЫПОЛНЕНО", "✅"}
	negativeTokens    = []string{"YO'Q", "YOQ", "YOʻQ", "ЙУҚ", "HALI", "KEYINROQ", "НЕТ", "Н", "ЕЩЁ НЕТ", "ПОЗЖЕ", "ОТЛОЖИТЬ"}
)

// ResponseService consumes yes/no replies to follow-up nudges.
type ResponseService struct {
	repo        reminder.Repository
	logger      *logrus.Entry
	snoozeDelay time.Duration
}

func NewResponseService(repo reminder.Repository, logger *logrus.Entry, snoozeDelay time.Duration) *ResponseService {
	return &ResponseService{repo: repo, logger: logger, snoozeDelay: snoozeDelay}
}

// HandleCallback processes a yes/no button press. reminderID comes from the
// callback payload; zero falls back to the user's latest reminder awaiting a
// response.
func (s *ResponseService) HandleCallback(ctx context.Context, userID, reminderID int64, affirmative bool) (*ResponseResult, error) {
	rem, err := s.resolve(ctx, userID, reminderID)
	if err != nil {
		if err == idb.ErrReminderNotFound {
			return &ResponseResult{Outcome: OutcomeNoReminder}, nil
		}
		return nil, err
	}
	return s.apply(ctx, rem, affirmative)
}

// HandleText processes a free-text reply. Unrecognized text is not treated as
// a reply: the result carries OutcomeUnrecognized and no state changes.
func (s *ResponseService) HandleText(ctx context.Context, userID int64, text string) (*ResponseResult, error) {
	affirmative, recognized := classifyReply(text)
	if !recognized {
		return &ResponseResult{Outcome: OutcomeUnrecognized}, nil
	}

	rem, err := s.repo.LatestAwaitingResponse(ctx, userID)
	if err != nil {
		if err == idb.ErrReminderNotFound {
			return &ResponseResult{Outcome: OutcomeNoReminder}, nil
		}
		return nil, fmt.Errorf("failed to resolve reminder awaiting response: %w", err)
	}
	return s.apply(ctx, rem, affirmative)
}

func (s *ResponseService) resolve(ctx context.Context, userID, reminderID int64) (*reminder.Reminder, error) {
	if reminderID > 0 {
		rem, err := s.repo.GetByID(ctx, reminderID)
		if err != nil {
			return nil, err
		}
		// A button press on someone else's message, or on a reminder
		// already resolved, behaves like a stale callback.
		if rem.UserID != userID || rem.Status != reminder.StatusPending || !rem.FollowUpSent {
			return nil, idb.ErrReminderNotFound
		}
		return rem, nil
	}
	return s.repo.LatestAwaitingResponse(ctx, userID)
}

func (s *ResponseService) apply(ctx context.Context, rem *reminder.Reminder, affirmative bool) (*ResponseResult, error) {
	now := time.Now().UTC()

	if !affirmative {
		nextTime := now.Add(s.snoozeDelay)
		ok, err := s.repo.Reschedule(ctx, rem.ID, nextTime, true)
		if err != nil {
			return nil, fmt.Errorf("failed to reschedule reminder %d: %w", rem.ID, err)
		}
		if !ok {
			return &ResponseResult{Outcome: OutcomeNoReminder}, nil
		}
		s.logger.WithFields(logrus.Fields{"reminder_id": rem.ID, "next_at_utc": nextTime}).Info("Reminder not done; rescheduled")
		return &ResponseResult{Outcome: OutcomeSnoozed, Reminder: rem, NextTime: nextTime}, nil
	}

	if rem.IsRecurring() {
		// The fired occurrence goes terminal as completed and exactly one
		// successor row carries the schedule forward.
		next, err := advanceRecurrence(ctx, s.repo, rem, now)
		if err != nil {
			return nil, fmt.Errorf("failed to advance recurrence for reminder %d: %w", rem.ID, err)
		}
		if _, err := s.repo.SetStatus(ctx, rem.ID, reminder.StatusCompleted); err != nil {
			return nil, fmt.Errorf("failed to complete reminder %d: %w", rem.ID, err)
		}
		label, ok := recurrenceNextLabels[rem.RecurrenceType]
		if !ok {
			label = "keyingi safar / в следующий раз"
		}
		s.logger.WithFields(logrus.Fields{"reminder_id": rem.ID, "next_id": next.ID}).Info("Recurring reminder confirmed done; next occurrence scheduled")
		return &ResponseResult{Outcome: OutcomeDoneRecurring, Reminder: rem, NextLabel: label, NextTime: next.ScheduledTimeUTC}, nil
	}

	ok, err := s.repo.SetStatus(ctx, rem.ID, reminder.StatusDone)
	if err != nil {
		return nil, fmt.Errorf("failed to mark reminder %d done: %w", rem.ID, err)
	}
	if !ok {
		return &ResponseResult{Outcome: OutcomeNoReminder}, nil
	}
	s.logger.WithField("reminder_id", rem.ID).Info("Reminder confirmed done")
	return &ResponseResult{Outcome: OutcomeDone, Reminder: rem}, nil
}

// classifyReply reports whether the trimmed, uppercased text is an
// affirmative or negative token.
func classifyReply(text string) (affirmative, recognized bool) {
	normalized := strings.ToUpper(strings.TrimSpace(text))
	for _, token := range affirmativeTokens {
		if normalized == token {
			return true, true
		}
	}
	for _, token := range negativeTokens {
		if normalized == token {
			return false, true
		}
	}
	return false, false
}
