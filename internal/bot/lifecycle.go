package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Start starts the bot in polling mode and blocks until Stop is called.
// Updates are handled one at a time, matching the single-threaded dispatch
// model: shared state is only ever touched through the component APIs.
func (b *Bot) Start() error {
	b.logger.Info("Starting bot in polling mode")

	// Remove webhook (if any was set previously)
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		b.logger.Warn("Failed to delete webhook", zap.Error(err))
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("Bot started successfully. Waiting for updates...")

	for update := range updates {
		b.HandleUpdate(update)
	}
	return nil
}

// HandleUpdate processes a single update.
func (b *Bot) HandleUpdate(update tgbotapi.Update) {
	if update.Message == nil {
		return
	}
	b.wg.Add(1)
	defer b.wg.Done()
	b.handleMessage(update.Message)
}

// Stop stops accepting new updates and waits for in-flight handlers to
// finish. Operations are not cancelled mid-flight.
func (b *Bot) Stop() {
	if b.api != nil {
		b.api.StopReceivingUpdates()
	}
	b.wg.Wait()
	b.logger.Info("Bot stopped")
}
