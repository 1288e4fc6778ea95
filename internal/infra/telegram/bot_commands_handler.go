// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"eslatma_bot/internal/app"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func RegisterBotCommands(
	ctx context.Context,
	b *telebot.Bot,
	reminderService *app.ReminderService,
	baseLogger *logrus.Entry,
) {
	cmdLogger := baseLogger.WithField("handler_group", "commands")

	b.Handle("/start", func(c telebot.Context) error {
		logCtx := cmdLogger.WithField("command", "/start").WithField("sender_id", c.Sender().ID)
		logCtx.Info("Processing /start command")
		return c.Send(
			"Salom! Men ovozli eslatma botiman. 🎙\n"+
				"Привет! Я бот голосовых напоминаний.\n\n"+
				"Ovozli xabar yuboring yoki yozing, masalan:\n"+
				"_\"Ertaga soat 9 da Alisherga qo'ng'iroq qilish\"_\n\n"+
				"/help — barcha buyruqlar / все команды",
			&telebot.SendOptions{ParseMode: telebot.ModeMarkdown},
		)
	})

	b.Handle("/help", func(c telebot.Context) error {
		logCtx := cmdLogger.WithField("command", "/help").WithField("sender_id", c.Sender().ID)
		logCtx.Info("Processing /help command")
		return c.Send(
			"🎙 Ovozli xabar yuboring — men eslatma tuzaman.\n"+
				"Отправьте голосовое сообщение — я создам напоминание.\n\n"+
				"/list — eslatmalar ro'yxati / список напоминаний\n"+
				"/delete <n> — eslatmani o'chirish / удалить напоминание\n"+
				"/snooze <minut> — keyingi eslatmani kechiktirish / отложить ближайшее\n"+
				"/timezone <zona> — vaqt mintaqasi, masalan `Asia/Tashkent`",
			&telebot.SendOptions{ParseMode: telebot.ModeMarkdown},
		)
	})

	b.Handle("/list", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := cmdLogger.WithField("command", "/list").WithField("sender_id", senderID)
		logCtx.Info("Processing /list command")

		pending, err := reminderService.ListPending(ctx, senderID)
		if err != nil {
			logCtx.WithError(err).Error("Failed to list reminders")
			return c.Send("Xatolik yuz berdi. / Произошла ошибка.")
		}
		if len(pending) == 0 {
			return c.Send("Sizda eslatmalar yo'q. / У вас нет напоминаний.")
		}

		var sb strings.Builder
		sb.WriteString("📋 **Sizning eslatmalaringiz / Ваши напоминания:**\n\n")
		for i, rem := range pending {
			fmt.Fprintf(&sb, "%d. 📝 %s\n   ⏰ %s", i+1, rem.TaskText, app.FormatInUserZone(rem.ScheduledTimeUTC, rem.UserTimezone))
			if label := app.RecurrenceLabel(rem.RecurrenceType); label != "" {
				fmt.Fprintf(&sb, " (%s)", label)
			}
			sb.WriteString("\n")
		}
		return c.Send(sb.String(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})

	b.Handle("/delete", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := cmdLogger.WithField("command", "/delete").WithField("sender_id", senderID)

		position, err := strconv.Atoi(strings.TrimSpace(c.Message().Payload))
		if err != nil {
			return c.Send("Raqam kiriting, masalan: /delete 1\nУкажите номер, например: /delete 1")
		}

		rem, ok, err := reminderService.DeleteByPosition(ctx, senderID, position)
		if err != nil {
			logCtx.WithError(err).Error("Failed to delete reminder")
			return c.Send("Xatolik yuz berdi. / Произошла ошибка.")
		}
		if !ok {
			return c.Send("Bunday eslatma topilmadi. / Напоминание не найдено.")
		}
		logCtx.WithField("reminder_id", rem.ID).Info("Reminder deleted by user")
		return c.Send(fmt.Sprintf("🗑 O'chirildi / Удалено:\n📝 _%s_", rem.TaskText),
			&telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})

	b.Handle("/snooze", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := cmdLogger.WithField("command", "/snooze").WithField("sender_id", senderID)

		minutes, err := strconv.Atoi(strings.TrimSpace(c.Message().Payload))
		if err != nil || minutes < 1 {
			return c.Send("Minutlarda kiriting, masalan: /snooze 15\nУкажите минуты, например: /snooze 15")
		}

		pending, err := reminderService.ListPending(ctx, senderID)
		if err != nil {
			logCtx.WithError(err).Error("Failed to list reminders for snooze")
			return c.Send("Xatolik yuz berdi. / Произошла ошибка.")
		}
		if len(pending) == 0 {
			return c.Send("Sizda eslatmalar yo'q. / У вас нет напоминаний.")
		}

		rem := pending[0] // earliest scheduled
		until := time.Now().UTC().Add(time.Duration(minutes) * time.Minute)
		ok, err := reminderService.Snooze(ctx, rem.ID, until)
		if err != nil {
			logCtx.WithError(err).Error("Failed to snooze reminder")
			return c.Send("Xatolik yuz berdi. / Произошла ошибка.")
		}
		if !ok {
			return c.Send("Bunday eslatma topilmadi. / Напоминание не найдено.")
		}
		logCtx.WithField("reminder_id", rem.ID).WithField("minutes", minutes).Info("Reminder snoozed")
		return c.Send(fmt.Sprintf("⏰ %d minutga kechiktirildi / Отложено на %d минут:\n📝 _%s_", minutes, minutes, rem.TaskText),
			&telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})

	b.Handle("/timezone", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := cmdLogger.WithField("command", "/timezone").WithField("sender_id", senderID)

		zone := strings.TrimSpace(c.Message().Payload)
		if zone == "" {
			return c.Send(fmt.Sprintf(
				"Hozirgi mintaqa / Текущий пояс: `%s`\n\nO'zgartirish: /timezone Asia/Tashkent",
				reminderService.TimezoneFor(ctx, senderID),
			), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
		}

		if err := reminderService.SetTimezone(ctx, senderID, zone); err != nil {
			logCtx.WithError(err).Warn("Rejected timezone")
			return c.Send("Noto'g'ri mintaqa nomi. / Неверное название пояса.\nMasalan: `Asia/Tashkent`, `Europe/Moscow`",
				&telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
		}
		logCtx.WithField("timezone", zone).Info("Timezone updated")
		return c.Send(fmt.Sprintf("✅ Vaqt mintaqasi saqlandi: `%s`", zone),
			&telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})
}
