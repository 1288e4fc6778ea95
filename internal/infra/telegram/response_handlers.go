// internal/infra/telegram/response_handlers.go
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"eslatma_bot/internal/app"

	"gopkg.in/telebot.v3"
)

// RegisterResponseHandlers wires the yes/no follow-up buttons. Callback data
// is "remind_yes_<id>" / "remind_no_<id>"; an unparseable id falls back to
// the user's latest reminder awaiting a response.
func RegisterResponseHandlers(ctx context.Context, b *telebot.Bot, responseService *app.ResponseService) {
	b.Handle(telebot.OnCallback, func(c telebot.Context) error {
		data := strings.TrimPrefix(c.Callback().Data, "\f")

		var affirmative bool
		var idPart string
		switch {
		case strings.HasPrefix(data, "remind_yes_"):
			affirmative = true
			idPart = strings.TrimPrefix(data, "remind_yes_")
		case strings.HasPrefix(data, "remind_no_"):
			affirmative = false
			idPart = strings.TrimPrefix(data, "remind_no_")
		default:
			c.Bot().OnError(fmt.Errorf("unhandled callback data: %s", data), c)
			return c.Respond(&telebot.CallbackResponse{Text: "Noma'lum amal. / Неизвестное действие."})
		}

		reminderID, err := strconv.ParseInt(idPart, 10, 64)
		if err != nil {
			reminderID = 0 // resolve via latest awaiting response
		}

		result, err := responseService.HandleCallback(ctx, c.Sender().ID, reminderID, affirmative)
		if err != nil {
			c.Bot().OnError(fmt.Errorf("error processing follow-up callback %q: %w", data, err), c)
			return c.Respond(&telebot.CallbackResponse{Text: "Xatolik yuz berdi. / Произошла ошибка."})
		}

		if err := c.Edit(renderResponseResult(result), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown}); err != nil {
			c.Bot().OnError(err, c)
		}
		return c.Respond()
	})
}

func renderResponseResult(result *app.ResponseResult) string {
	switch result.Outcome {
	case app.OutcomeDone:
		return fmt.Sprintf(
			"✅ **Ajoyib!** Vazifa bajarildi!\n**Отлично!** Задача выполнена!\n\n📝 _%s_",
			result.Reminder.TaskText,
		)
	case app.OutcomeDoneRecurring:
		return fmt.Sprintf(
			"✅ **Ajoyib!** Vazifa bajarildi!\n**Отлично!** Задача выполнена!\n\n📝 _%s_\n\n"+
				"🔁 Keyingi eslatma: %s\nСледующее напоминание: %s",
			result.Reminder.TaskText, result.NextLabel, result.NextLabel,
		)
	case app.OutcomeSnoozed:
		minutes := int(time.Until(result.NextTime).Round(time.Minute).Minutes())
		return fmt.Sprintf(
			"⏰ **Tushunarli!** %d minut ichida yana eslataman.\n**Понятно!** Напомню снова через %d минут.\n\n📝 _%s_",
			minutes, minutes, result.Reminder.TaskText,
		)
	default:
		return "❌ Eslatma topilmadi.\nНапоминание не найдено."
	}
}
