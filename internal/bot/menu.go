package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Menu button labels. Dispatch matches these after normalization, so casing
// in the incoming text does not matter.
const (
	btnStatus    = "🗺 Map status"
	btnHelp      = "ℹ️ Help"
	btnEnable    = "🟢 Enable map"
	btnDisable   = "🔴 Disable map"
	btnBroadcast = "📣 Broadcast"
	btnUsers     = "👥 Users"
)

// userMenu is the reply keyboard shown to regular users.
func userMenu() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnStatus),
			tgbotapi.NewKeyboardButton(btnHelp),
		),
	)
	keyboard.ResizeKeyboard = true
	return keyboard
}

// adminMenu extends the user menu with the administrative actions.
func adminMenu() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnStatus),
			tgbotapi.NewKeyboardButton(btnHelp),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnEnable),
			tgbotapi.NewKeyboardButton(btnDisable),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnBroadcast),
			tgbotapi.NewKeyboardButton(btnUsers),
		),
	)
	keyboard.ResizeKeyboard = true
	return keyboard
}

// menuFor picks the keyboard matching the user's role.
func (b *Bot) menuFor(userID int64) tgbotapi.ReplyKeyboardMarkup {
	if userID == b.adminID {
		return adminMenu()
	}
	return userMenu()
}
