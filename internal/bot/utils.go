package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// send delivers an outbound message, logging delivery failures. The nil
// sender path exists for tests that exercise handlers without a transport.
func (b *Bot) send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	if b.sender == nil {
		return tgbotapi.Message{}, nil
	}
	sent, err := b.sender.Send(msg)
	if err != nil {
		b.logger.Error("Failed to send message", zap.Error(err))
	}
	return sent, err
}
