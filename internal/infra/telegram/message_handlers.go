// internal/infra/telegram/message_handlers.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"eslatma_bot/internal/app"
	"eslatma_bot/internal/domain/speech"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterMessageHandlers wires voice and free-text ingestion. Free text is
// first offered to the response service (a yes/no reply to a follow-up); only
// unrecognized text goes through extraction.
func RegisterMessageHandlers(
	ctx context.Context,
	b *telebot.Bot,
	reminderService *app.ReminderService,
	responseService *app.ResponseService,
	baseLogger *logrus.Entry,
) {
	msgLogger := baseLogger.WithField("handler_group", "messages")

	b.Handle(telebot.OnVoice, func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := msgLogger.WithField("handler", "voice").WithField("sender_id", senderID)
		logCtx.Info("Processing voice message")

		voice := c.Message().Voice
		reader, err := b.File(&voice.File)
		if err != nil {
			logCtx.WithError(err).Error("Failed to download voice file")
			return c.Send("Ovozli xabarni yuklab bo'lmadi. / Не удалось загрузить голосовое сообщение.")
		}
		defer reader.Close()

		audio, err := io.ReadAll(reader)
		if err != nil {
			logCtx.WithError(err).Error("Failed to read voice file")
			return c.Send("Ovozli xabarni yuklab bo'lmadi. / Не удалось загрузить голосовое сообщение.")
		}

		result, err := reminderService.IngestVoice(ctx, senderID, c.Chat().ID, audio)
		if err != nil {
			return sendIngestError(c, logCtx, err)
		}
		return c.Send(renderIngestResult(result), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})

	b.Handle(telebot.OnText, func(c telebot.Context) error {
		senderID := c.Sender().ID
		text := c.Text()
		logCtx := msgLogger.WithField("handler", "text").WithField("sender_id", senderID)

		reply, err := responseService.HandleText(ctx, senderID, text)
		if err != nil {
			logCtx.WithError(err).Error("Failed to process text reply")
			return c.Send("Xatolik yuz berdi. / Произошла ошибка.")
		}
		if reply.Outcome != app.OutcomeUnrecognized {
			if reply.Outcome == app.OutcomeNoReminder {
				// Recognized yes/no with nothing awaiting a response: out of
				// context, stay silent like any other unhandled message.
				return nil
			}
			return c.Send(renderResponseResult(reply), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
		}

		logCtx.Info("Processing text as reminder request")
		result, err := reminderService.IngestText(ctx, senderID, c.Chat().ID, text)
		if err != nil {
			return sendIngestError(c, logCtx, err)
		}
		return c.Send(renderIngestResult(result), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})
}

func sendIngestError(c telebot.Context, logCtx *logrus.Entry, err error) error {
	switch {
	case errors.Is(err, app.ErrRateLimited):
		return c.Send("⚠️ Juda ko'p xabar. Biroz kutib turing.\nСлишком много сообщений. Подождите немного.")
	case errors.Is(err, speech.ErrTranscriptionFailed):
		logCtx.WithError(err).Warn("Transcription failed")
		return c.Send("❌ Ovozli xabarni tushunolmadim. Qayta urinib ko'ring.\nНе удалось распознать голосовое сообщение. Попробуйте ещё раз.")
	case errors.Is(err, speech.ErrExtractionFailed):
		logCtx.WithError(err).Warn("Extraction failed")
		return c.Send("❌ Tushunmadim. Boshqacha ayting.\nНе понял(а). Скажите по-другому.")
	default:
		logCtx.WithError(err).Error("Ingestion failed")
		return c.Send("Xatolik yuz berdi. Qayta urinib ko'ring.\nПроизошла ошибка. Попробуйте ещё раз.")
	}
}

func renderIngestResult(result *app.IngestResult) string {
	if len(result.Created) == 0 && len(result.NeedsTime) == 0 {
		return "❌ Eslatma topilmadi. Qachon va nimani eslatishni ayting.\n" +
			"Напоминание не найдено. Скажите, что и когда напомнить."
	}

	var sb strings.Builder
	for _, rem := range result.Created {
		fmt.Fprintf(&sb, "✅ **Eslatma saqlandi!** / **Напоминание сохранено!**\n\n📝 %s\n⏰ %s",
			rem.TaskText, app.FormatInUserZone(rem.ScheduledTimeUTC, rem.UserTimezone))
		if label := app.RecurrenceLabel(rem.RecurrenceType); label != "" {
			fmt.Fprintf(&sb, "\n%s", label)
		}
		sb.WriteString("\n\n")
	}
	for _, cand := range result.NeedsTime {
		fmt.Fprintf(&sb, "🕐 **Qachon eslatay?** / **Когда напомнить?**\n📝 %s\n\n", cand.Task)
	}
	return strings.TrimRight(sb.String(), "\n")
}
