package bot

import (
	"context"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Metaboom4304/genesis-war-bot-sub000/internal/models"
)

// handlerTimeout bounds the work done for one inbound message so a slow
// external call cannot stall the dispatch queue indefinitely.
const handlerTimeout = 30 * time.Second

// handleMessage processes a single message
func (b *Bot) handleMessage(message *tgbotapi.Message) {
	// Recover from panics to prevent bot crashes
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleMessage",
				zap.Any("panic", r),
				zap.Int64("chat_id", message.Chat.ID),
			)
			b.send(tgbotapi.NewMessage(message.Chat.ID, "Something went wrong. Please try again."))
		}
	}()

	if message.From == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	b.registerUser(ctx, message)

	userID := message.From.ID

	// Pending admin interactions resolve only through a reply to the prompt
	// message they were opened with; any other message from the admin leaves
	// them pending. A fresh command cancels them.
	if userID == b.adminID {
		if message.ReplyToMessage != nil {
			if kind, ok := b.pending.Resolve(userID, message.ReplyToMessage.MessageID); ok {
				switch kind {
				case PendingDisableConfirm:
					b.resolveDisableConfirmation(ctx, message)
				case PendingBroadcastText:
					b.resolveBroadcastText(ctx, message)
				}
				return
			}
		}
		if message.IsCommand() {
			b.pending.Cancel(userID)
		}
	}

	if message.IsCommand() {
		switch message.Command() {
		case "start":
			b.handleStart(message)
		case "help":
			b.handleHelp(message)
		case "status":
			b.handleStatus(ctx, message)
		case "enable":
			b.handleEnable(ctx, message)
		case "disable":
			b.handleDisable(message)
		case "disable_until":
			b.handleDisableUntil(ctx, message)
		case "broadcast":
			b.handleBroadcastCommand(ctx, message)
		case "users":
			b.handleUsers(ctx, message)
		default:
			b.send(tgbotapi.NewMessage(message.Chat.ID, "Unknown command. Use /help to see available commands."))
		}
		return
	}

	// Menu buttons dispatch on normalized text
	switch normalize(message.Text) {
	case normalize(btnStatus):
		b.handleStatus(ctx, message)
	case normalize(btnHelp):
		b.handleHelp(message)
	case normalize(btnEnable):
		b.handleEnable(ctx, message)
	case normalize(btnDisable):
		b.handleDisable(message)
	case normalize(btnBroadcast):
		b.handleBroadcastCommand(ctx, message)
	case normalize(btnUsers):
		b.handleUsers(ctx, message)
	default:
		b.send(tgbotapi.NewMessage(message.Chat.ID, "Unrecognized command. Use the menu or /help."))
	}
}

// registerUser records the chat in the registry on first contact.
func (b *Bot) registerUser(ctx context.Context, message *tgbotapi.Message) {
	id := strconv.FormatInt(message.Chat.ID, 10)

	known, err := b.db.HasUser(ctx, id)
	if err != nil {
		b.logger.Warn("Failed to check user registration", zap.String("user_id", id), zap.Error(err))
		return
	}
	if known {
		return
	}

	record := models.UserRecord{ID: id, RegisteredAt: b.now()}
	if err := b.db.AddUser(ctx, record); err != nil {
		b.logger.Warn("Failed to register user", zap.String("user_id", id), zap.Error(err))
		return
	}
	b.logger.Info("User registered", zap.String("user_id", id))
}

// normalize prepares text for dispatch: trimmed and case-insensitive.
func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// isAdmin reports whether the message comes from the configured admin.
func (b *Bot) isAdmin(message *tgbotapi.Message) bool {
	return message.From != nil && message.From.ID == b.adminID
}

// requireAdmin gates admin-only handlers. Unauthorized invocations are
// always explicitly rejected, never silently dropped.
func (b *Bot) requireAdmin(message *tgbotapi.Message) bool {
	if b.isAdmin(message) {
		return true
	}
	b.logger.Warn("Unauthorized admin action attempt",
		zap.Int64("user_id", message.From.ID),
		zap.String("text", message.Text),
	)
	b.send(tgbotapi.NewMessage(message.Chat.ID, "This action is available only to the bot admin."))
	return false
}
