// internal/app/recovery_service.go
package app

import (
	"context"
	"fmt"
	"time"

	"eslatma_bot/internal/domain/reminder"
	domainTelegram "eslatma_bot/internal/domain/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RecoveryService reconciles reminders that became due while the process was
// not running. It runs once at startup, before the periodic scheduler.
type RecoveryService struct {
	repo        reminder.Repository
	client      domainTelegram.Client
	logger      *logrus.Entry
	gracePeriod time.Duration
}

func NewRecoveryService(
	repo reminder.Repository,
	client domainTelegram.Client,
	logger *logrus.Entry,
	gracePeriod time.Duration,
) *RecoveryService {
	return &RecoveryService{
		repo:        repo,
		client:      client,
		logger:      logger,
		gracePeriod: gracePeriod,
	}
}

// Reconcile walks every pending reminder. Overdue ones within the grace
// period get a one-shot "this was scheduled N ago" notice, bypassing the
// sent-flag bookkeeping so the steady-state flow is unaffected; ones staler
// than the grace period are closed as completed without a notification.
// Future reminders are left for the periodic scheduler.
func (s *RecoveryService) Reconcile(ctx context.Context, now time.Time) error {
	pending, err := s.repo.AllPending(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pending reminders for recovery: %w", err)
	}

	var delivered, skipped, upcoming int
	for _, rem := range pending {
		if rem.ScheduledTimeUTC.After(now) {
			upcoming++
			continue
		}

		overdue := now.Sub(rem.ScheduledTimeUTC)
		if overdue > s.gracePeriod {
			skipped++
			if _, err := s.repo.SetStatus(ctx, rem.ID, reminder.StatusCompleted); err != nil {
				s.logger.WithError(err).WithField("reminder_id", rem.ID).Error("Failed to close stale reminder")
				continue
			}
			s.logger.WithFields(logrus.Fields{
				"reminder_id":   rem.ID,
				"overdue_hours": overdue.Hours(),
			}).Warn("Skipped stale reminder past grace period")
			continue
		}

		if err := s.client.SendMessage(rem.ChatID, formatDelayedMessage(rem, overdue), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown}); err != nil {
			s.logger.WithError(err).WithField("reminder_id", rem.ID).Error("Failed to send delayed reminder")
			continue
		}
		delivered++
		s.logger.WithFields(logrus.Fields{
			"reminder_id":     rem.ID,
			"user_id":         rem.UserID,
			"overdue_minutes": overdue.Minutes(),
		}).Info("Sent delayed reminder after restart")
	}

	s.logger.WithFields(logrus.Fields{
		"delivered": delivered,
		"skipped":   skipped,
		"upcoming":  upcoming,
	}).Info("Startup recovery complete")
	return nil
}

func formatDelayedMessage(rem *reminder.Reminder, overdue time.Duration) string {
	var overdueUz, overdueRu string
	if overdue >= time.Hour {
		hours := int(overdue.Hours())
		overdueUz = fmt.Sprintf("%d soat oldin", hours)
		overdueRu = fmt.Sprintf("%d ч. назад", hours)
	} else {
		minutes := int(overdue.Minutes())
		overdueUz = fmt.Sprintf("%d minut oldin", minutes)
		overdueRu = fmt.Sprintf("%d мин. назад", minutes)
	}

	return fmt.Sprintf(
		"🔔 **Kechikkan eslatma** / **Отложенное напоминание**\n\n"+
			"📝 %s\n\n"+
			"⚠️ _Bu %s rejalashtirilgan edi._\n"+
			"_Это было запланировано %s._",
		rem.TaskText, overdueUz, overdueRu,
	)
}
