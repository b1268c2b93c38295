package bot

import (
	"context"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Metaboom4304/genesis-war-bot-sub000/internal/broadcast"
	"github.com/Metaboom4304/genesis-war-bot-sub000/internal/mapstatus"
	"github.com/Metaboom4304/genesis-war-bot-sub000/internal/models"
	"github.com/Metaboom4304/genesis-war-bot-sub000/internal/storage"
)

// StatusStore is the map status document API the handlers depend on.
type StatusStore interface {
	Fetch(ctx context.Context) (mapstatus.Document, string, error)
	Update(ctx context.Context, partial mapstatus.Partial, expectedRevision string) (mapstatus.Document, string, error)
}

// Broadcaster delivers an announcement to every registered user.
type Broadcaster interface {
	Broadcast(ctx context.Context, text string) (models.DeliveryReport, error)
}

// Bot represents the Telegram bot wrapper
type Bot struct {
	api     *tgbotapi.BotAPI
	sender  broadcast.Sender
	status  StatusStore
	db      storage.Storage
	engine  Broadcaster
	pending *PendingTracker
	adminID int64
	logger  *zap.Logger
	now     func() time.Time

	// wg tracks in-flight handlers so shutdown can wait for them
	wg sync.WaitGroup
}
