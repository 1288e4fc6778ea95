// internal/app/delivery_service.go
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"eslatma_bot/internal/domain/reminder"
	domainTelegram "eslatma_bot/internal/domain/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// DeliveryRunner is what the periodic scheduler drives. One call is one full
// pass over everything currently due.
type DeliveryRunner interface {
	RunPass(ctx context.Context, now time.Time) error
}

// DeliveryService sends due initial notifications and due follow-up nudges,
// and advances recurring reminders to their next occurrence once they fire.
type DeliveryService struct {
	repo          reminder.Repository
	client        domainTelegram.Client
	logger        *logrus.Entry
	followUpDelay time.Duration
	sendTimeout   time.Duration
}

func NewDeliveryService(
	repo reminder.Repository,
	client domainTelegram.Client,
	logger *logrus.Entry,
	followUpDelay time.Duration,
	sendTimeout time.Duration,
) *DeliveryService {
	return &DeliveryService{
		repo:          repo,
		client:        client,
		logger:        logger,
		followUpDelay: followUpDelay,
		sendTimeout:   sendTimeout,
	}
}

// RunPass executes one scheduler pass at the given instant. A failure on one
// reminder never blocks the rest of the pass: its flags stay untouched, so the
// next pass retries it (at-least-once delivery).
func (s *DeliveryService) RunPass(ctx context.Context, now time.Time) error {
	due, err := s.repo.DueForFirstDelivery(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to query reminders due for first delivery: %w", err)
	}
	for _, rem := range due {
		if err := s.deliverInitial(ctx, rem, now); err != nil {
			s.logger.WithError(err).WithField("reminder_id", rem.ID).Error("Initial delivery failed; will retry next pass")
		}
	}

	threshold := now.Add(-s.followUpDelay)
	followUps, err := s.repo.DueForFollowUp(ctx, threshold)
	if err != nil {
		return fmt.Errorf("failed to query reminders due for follow-up: %w", err)
	}
	for _, rem := range followUps {
		if err := s.deliverFollowUp(ctx, rem); err != nil {
			s.logger.WithError(err).WithField("reminder_id", rem.ID).Error("Follow-up delivery failed; will retry next pass")
		}
	}

	return nil
}

// deliverInitial sends the first notification for a due reminder. Recurring
// reminders are advanced immediately: the successor row is inserted and this
// occurrence goes terminal as completed, skipping the follow-up arm entirely.
func (s *DeliveryService) deliverInitial(ctx context.Context, rem *reminder.Reminder, now time.Time) error {
	if err := s.send(rem.ChatID, formatInitialMessage(rem), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown}); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}

	if rem.IsRecurring() {
		next, err := s.AdvanceRecurrence(ctx, rem, now)
		if err != nil {
			// Flags untouched: the next pass resends and retries the
			// advancement rather than silently dropping the chain.
			return fmt.Errorf("recurrence advancement failed: %w", err)
		}
		if ok, err := s.repo.SetStatus(ctx, rem.ID, reminder.StatusCompleted); err != nil {
			return fmt.Errorf("failed to complete fired occurrence: %w", err)
		} else if !ok {
			s.logger.WithField("reminder_id", rem.ID).Warn("Reminder vanished while completing fired occurrence")
		}
		s.logger.WithFields(logrus.Fields{
			"reminder_id": rem.ID,
			"next_id":     next.ID,
			"next_at_utc": next.ScheduledTimeUTC,
		}).Info("Delivered recurring reminder and scheduled next occurrence")
		return nil
	}

	ok, err := s.repo.MarkInitialSent(ctx, rem.ID)
	if err != nil {
		return fmt.Errorf("failed to mark initial sent: %w", err)
	}
	if !ok {
		s.logger.WithField("reminder_id", rem.ID).Warn("Reminder deleted mid-pass after initial send")
		return nil
	}
	s.logger.WithFields(logrus.Fields{"reminder_id": rem.ID, "user_id": rem.UserID}).Info("Delivered initial reminder")
	return nil
}

func (s *DeliveryService) deliverFollowUp(ctx context.Context, rem *reminder.Reminder) error {
	opts := &telebot.SendOptions{ParseMode: telebot.ModeMarkdown, ReplyMarkup: FollowUpKeyboard(rem.ID)}
	if err := s.send(rem.ChatID, formatFollowUpMessage(rem), opts); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}

	ok, err := s.repo.MarkFollowUpSent(ctx, rem.ID)
	if err != nil {
		return fmt.Errorf("failed to mark follow-up sent: %w", err)
	}
	if !ok {
		s.logger.WithField("reminder_id", rem.ID).Warn("Reminder deleted mid-pass after follow-up send")
		return nil
	}
	s.logger.WithFields(logrus.Fields{"reminder_id": rem.ID, "user_id": rem.UserID}).Info("Delivered follow-up nudge")
	return nil
}

// AdvanceRecurrence inserts the next occurrence of a recurring reminder as a
// brand-new pending row, copying every content field from the fired one, and
// returns it. The caller is responsible for finalizing the fired occurrence.
func (s *DeliveryService) AdvanceRecurrence(ctx context.Context, rem *reminder.Reminder, now time.Time) (*reminder.Reminder, error) {
	return advanceRecurrence(ctx, s.repo, rem, now)
}

func advanceRecurrence(ctx context.Context, repo reminder.Repository, rem *reminder.Reminder, now time.Time) (*reminder.Reminder, error) {
	nextTime, err := reminder.NextOccurrence(rem, now)
	if err != nil {
		return nil, err
	}

	next := &reminder.Reminder{
		UserID:           rem.UserID,
		ChatID:           rem.ChatID,
		TaskText:         rem.TaskText,
		Notes:            rem.Notes,
		Location:         rem.Location,
		ScheduledTimeUTC: nextTime,
		UserTimezone:     rem.UserTimezone,
		Status:           reminder.StatusPending,
		RecurrenceType:   rem.RecurrenceType,
		RecurrenceTime:   rem.RecurrenceTime,
	}
	if err := repo.Add(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to insert next occurrence: %w", err)
	}
	return next, nil
}

// send applies the configured bound to a single notification so one hanging
// transport call cannot stall a whole pass.
func (s *DeliveryService) send(chatID int64, text string, opts *telebot.SendOptions) error {
	done := make(chan error, 1)
	go func() {
		done <- s.client.SendMessage(chatID, text, opts)
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(s.sendTimeout):
		return fmt.Errorf("notification send timed out after %s", s.sendTimeout)
	}
}

var recurrenceLabels = map[reminder.RecurrenceType]string{
	reminder.RecurrenceDaily:    "🔄 Kunlik",
	reminder.RecurrenceWeekly:   "🔄 Haftalik",
	reminder.RecurrenceWeekdays: "🔄 Ish kunlari",
	reminder.RecurrenceMonthly:  "🔄 Oylik",
}

// recurrenceNextLabels name the rough timing of the next occurrence, used
// when confirming a recurring reminder as done.
var recurrenceNextLabels = map[reminder.RecurrenceType]string{
	reminder.RecurrenceDaily:    "ertaga / завтра",
	reminder.RecurrenceWeekly:   "kelasi hafta / на следующей неделе",
	reminder.RecurrenceWeekdays: "keyingi ish kuni / в следующий рабочий день",
	reminder.RecurrenceMonthly:  "kelasi oy / в следующем месяце",
}

func formatInitialMessage(rem *reminder.Reminder) string {
	var b strings.Builder
	if rem.IsRecurring() {
		label, ok := recurrenceLabels[rem.RecurrenceType]
		if !ok {
			label = "🔄"
		}
		fmt.Fprintf(&b, "🔔 **%s eslatma!**\n\n📝 %s\n", label, rem.TaskText)
	} else {
		fmt.Fprintf(&b, "🔔 **Eslatma!** / **Напоминание!**\n\n📝 %s\n", rem.TaskText)
	}
	if rem.Location.Valid {
		fmt.Fprintf(&b, "📍 **Joy:** %s\n", rem.Location.String)
	}
	if rem.Notes.Valid {
		fmt.Fprintf(&b, "\n📋 **Eslatma:**\n%s\n", rem.Notes.String)
	}
	fmt.Fprintf(&b, "\n⏰ _%s_", FormatInUserZone(rem.ScheduledTimeUTC, rem.UserTimezone))
	return b.String()
}

func formatFollowUpMessage(rem *reminder.Reminder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⏰ **Vazifa bajarildimi?**\n**Задача выполнена?**\n\n📝 %s", rem.TaskText)
	if rem.Location.Valid {
		fmt.Fprintf(&b, "\n📍 %s", rem.Location.String)
	}
	if rem.Notes.Valid {
		fmt.Fprintf(&b, "\n📋 %s", rem.Notes.String)
	}
	return b.String()
}

// FollowUpKeyboard builds the inline yes/no affordance correlated to the
// reminder id.
func FollowUpKeyboard(reminderID int64) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	btnYes := markup.Data("✅ HA / ДА", fmt.Sprintf("remind_yes_%d", reminderID))
	btnNo := markup.Data("❌ YO'Q / НЕТ", fmt.Sprintf("remind_no_%d", reminderID))
	markup.Inline(markup.Row(btnYes, btnNo))
	return markup
}

// RecurrenceLabel returns the display label for a recurrence type, empty for
// one-shot reminders.
func RecurrenceLabel(t reminder.RecurrenceType) string {
	return recurrenceLabels[t]
}

// FormatInUserZone renders a UTC instant as wall-clock time in the user's
// zone for display.
func FormatInUserZone(t time.Time, zone string) string {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		loc = time.UTC
	}
	return t.In(loc).Format("02.01.2006 15:04")
}
