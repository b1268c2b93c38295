package bot

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Metaboom4304/genesis-war-bot-sub000/internal/storage"
)

// NewBot creates a new Telegram bot
func NewBot(token string, status StatusStore, db storage.Storage, engine Broadcaster, adminID int64, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.Error("Failed to create bot API", zap.Error(err))
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	logger.Info("Bot created",
		zap.String("bot_username", api.Self.UserName),
		zap.Int64("admin_id", adminID),
	)

	return &Bot{
		api:     api,
		sender:  api,
		status:  status,
		db:      db,
		engine:  engine,
		pending: NewPendingTracker(pendingTTL),
		adminID: adminID,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// API returns the underlying bot API client
func (b *Bot) API() *tgbotapi.BotAPI {
	return b.api
}

// SetBroadcaster wires the broadcast engine. It is set after construction
// because the engine sends through the same API client the bot owns.
func (b *Bot) SetBroadcaster(engine Broadcaster) {
	b.engine = engine
}
