package telegram

import "gopkg.in/telebot.v3"

// Client is the notification sender the core depends on. Decoupling from the
// bot library keeps delivery, recovery and response logic testable with a
// fake sender.
type Client interface {
	SendMessage(chatID int64, text string, options *telebot.SendOptions) error
}
