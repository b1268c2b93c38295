package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Metaboom4304/genesis-war-bot-sub000/internal/mapstatus"
)

// Fixed announcement texts. The disable confirmation writes the same text to
// the status document and to the broadcast, so users querying status later
// see the message they were announced.
const (
	disabledAnnouncement = "🔴 The map has been disabled by the administrator."
	enabledAnnouncement  = "🟢 The map is enabled again. Welcome back!"
)

// handleStart greets the user and renders the role-specific menu.
func (b *Bot) handleStart(message *tgbotapi.Message) {
	text := `Welcome to the Genesis map bot! 🗺

Available commands:
/status - Show current map status
/help - Show this help`

	if b.isAdmin(message) {
		text += `

Admin commands:
/enable - Enable the map
/disable - Disable the map (asks for confirmation)
/disable_until <RFC3339> - Schedule re-enable time
/broadcast <text> - Announce to all registered users
/users - Show registered user count`
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ReplyMarkup = b.menuFor(message.From.ID)
	b.send(msg)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	b.handleStart(message)
}

// handleStatus reports availability through the one effective-availability
// rule. When the remote store is unreachable, the locally mirrored flag is
// used as a degraded fallback.
func (b *Bot) handleStatus(ctx context.Context, message *tgbotapi.Message) {
	doc, _, err := b.status.Fetch(ctx)
	if err != nil {
		b.replyStatusError(ctx, message, err)
		return
	}

	available := mapstatus.EffectiveAvailability(doc, b.now())

	var text strings.Builder
	if available {
		text.WriteString("🟢 The map is available.\n")
	} else {
		text.WriteString("🔴 The map is unavailable.\n")
	}
	if doc.Message != "" {
		text.WriteString("\n" + doc.Message + "\n")
	}

	if b.isAdmin(message) {
		text.WriteString(fmt.Sprintf("\nTheme: %s\n", doc.Theme))
		if doc.DisableUntil != "" {
			text.WriteString(fmt.Sprintf("Disabled until: %s\n", doc.DisableUntil))
		}
		if users, err := b.db.ListUsers(ctx); err == nil {
			text.WriteString(fmt.Sprintf("Registered users: %d\n", len(users)))
		}
	}

	b.send(tgbotapi.NewMessage(message.Chat.ID, text.String()))
}

// replyStatusError maps a fetch failure to a short user-visible reply.
// Diagnostic detail goes to the log only.
func (b *Bot) replyStatusError(ctx context.Context, message *tgbotapi.Message, err error) {
	b.logger.Error("Failed to fetch map status", zap.Error(err))

	var invalid *mapstatus.InvalidFormatError
	switch {
	case errors.Is(err, mapstatus.ErrNotFound):
		if b.isAdmin(message) {
			b.send(tgbotapi.NewMessage(message.Chat.ID, "The map status document has not been created yet."))
			return
		}
	case errors.As(err, &invalid):
		if b.isAdmin(message) {
			b.send(tgbotapi.NewMessage(message.Chat.ID, "The map status document is malformed and needs manual repair."))
			return
		}
	case mapstatus.IsRetryable(err):
		if enabled, ok, mirrorErr := b.db.EnabledMirror(ctx); mirrorErr == nil && ok {
			state := "🔴 unavailable"
			if enabled {
				state = "🟢 available"
			}
			b.send(tgbotapi.NewMessage(message.Chat.ID,
				fmt.Sprintf("The status service is unreachable. Last known map state: %s.", state)))
			return
		}
	}

	b.send(tgbotapi.NewMessage(message.Chat.ID, "Map status is not available right now. Please try again later."))
}

// handleEnable re-enables the map and announces it. Only disabling asks for
// confirmation; enabling is immediate.
func (b *Bot) handleEnable(ctx context.Context, message *tgbotapi.Message) {
	if !b.requireAdmin(message) {
		return
	}

	enabled := true
	clearUntil := ""
	announcement := enabledAnnouncement
	_, err := b.updateStatus(ctx, mapstatus.Partial{
		Enabled:      &enabled,
		Message:      &announcement,
		DisableUntil: &clearUntil,
	})
	if err != nil {
		b.logger.Error("Failed to enable map", zap.Error(err))
		b.send(tgbotapi.NewMessage(message.Chat.ID, "Failed to enable the map. Please try again."))
		return
	}

	b.doBroadcast(ctx, message.Chat.ID, enabledAnnouncement)
}

// handleDisable opens the disable confirmation: the admin must reply to the
// prompt message itself, so an unrelated message can never be mistaken for
// the confirmation.
func (b *Bot) handleDisable(message *tgbotapi.Message) {
	if !b.requireAdmin(message) {
		return
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, "⚠️ Disable the map for everyone?\nReply YES to this message to confirm.")
	msg.ReplyMarkup = tgbotapi.ForceReply{ForceReply: true, Selective: true}
	prompt, err := b.send(msg)
	if err != nil {
		return
	}

	if err := b.pending.Begin(message.From.ID, PendingDisableConfirm, prompt.MessageID); err != nil {
		b.send(tgbotapi.NewMessage(message.Chat.ID, "You already have a pending action. Finish or cancel it first."))
	}
}

// resolveDisableConfirmation runs after the admin replied to the disable
// prompt. The store update comes first; the broadcast runs only when the
// update succeeded.
func (b *Bot) resolveDisableConfirmation(ctx context.Context, message *tgbotapi.Message) {
	if normalize(message.Text) != "yes" {
		b.send(tgbotapi.NewMessage(message.Chat.ID, "Disable cancelled."))
		return
	}

	enabled := false
	text := disabledAnnouncement
	clearUntil := ""
	_, err := b.updateStatus(ctx, mapstatus.Partial{
		Enabled:      &enabled,
		Message:      &text,
		DisableUntil: &clearUntil,
	})
	if err != nil {
		b.logger.Error("Failed to disable map", zap.Error(err))
		b.send(tgbotapi.NewMessage(message.Chat.ID, "Failed to disable the map. Nothing was announced."))
		return
	}

	b.doBroadcast(ctx, message.Chat.ID, disabledAnnouncement)
}

// handleDisableUntil schedules a re-enable time: /disable_until <RFC3339>.
func (b *Bot) handleDisableUntil(ctx context.Context, message *tgbotapi.Message) {
	if !b.requireAdmin(message) {
		return
	}

	arg := strings.TrimSpace(message.CommandArguments())
	until, err := time.Parse(time.RFC3339, arg)
	if err != nil {
		b.send(tgbotapi.NewMessage(message.Chat.ID, "Usage: /disable_until 2026-01-02T15:04:05Z"))
		return
	}

	value := until.Format(time.RFC3339)
	if _, err := b.updateStatus(ctx, mapstatus.Partial{DisableUntil: &value}); err != nil {
		b.logger.Error("Failed to schedule disable", zap.Error(err))
		b.send(tgbotapi.NewMessage(message.Chat.ID, "Failed to update the map status. Please try again."))
		return
	}

	b.send(tgbotapi.NewMessage(message.Chat.ID, fmt.Sprintf("The map is considered unavailable until %s.", value)))
}

// handleBroadcastCommand handles both forms: /broadcast <text> sends
// immediately, a bare /broadcast (or the menu button) opens a force-reply
// prompt awaiting the announcement text.
func (b *Bot) handleBroadcastCommand(ctx context.Context, message *tgbotapi.Message) {
	if !b.requireAdmin(message) {
		return
	}

	if text := strings.TrimSpace(message.CommandArguments()); text != "" {
		b.doBroadcast(ctx, message.Chat.ID, text)
		return
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, "Reply to this message with the announcement text.")
	msg.ReplyMarkup = tgbotapi.ForceReply{ForceReply: true, Selective: true}
	prompt, err := b.send(msg)
	if err != nil {
		return
	}

	if err := b.pending.Begin(message.From.ID, PendingBroadcastText, prompt.MessageID); err != nil {
		b.send(tgbotapi.NewMessage(message.Chat.ID, "You already have a pending action. Finish or cancel it first."))
	}
}

// resolveBroadcastText runs after the admin replied to the broadcast prompt.
func (b *Bot) resolveBroadcastText(ctx context.Context, message *tgbotapi.Message) {
	text := strings.TrimSpace(message.Text)
	if text == "" {
		b.send(tgbotapi.NewMessage(message.Chat.ID, "The announcement text is empty. Broadcast cancelled."))
		return
	}
	b.doBroadcast(ctx, message.Chat.ID, text)
}

// doBroadcast runs a broadcast pass and reports the outcome to the admin.
func (b *Bot) doBroadcast(ctx context.Context, chatID int64, text string) {
	report, err := b.engine.Broadcast(ctx, text)
	if err != nil {
		b.logger.Error("Broadcast failed", zap.Error(err))
		b.send(tgbotapi.NewMessage(chatID, "Broadcast failed. Please try again."))
		return
	}

	summary := fmt.Sprintf("Broadcast delivered: %d sent, %d failed.", report.Sent, report.Failed)
	if len(report.Removed) > 0 {
		summary += fmt.Sprintf(" Removed %d unreachable users.", len(report.Removed))
	}
	b.send(tgbotapi.NewMessage(chatID, summary))
}

// handleUsers shows the registry size.
func (b *Bot) handleUsers(ctx context.Context, message *tgbotapi.Message) {
	if !b.requireAdmin(message) {
		return
	}

	users, err := b.db.ListUsers(ctx)
	if err != nil {
		b.logger.Error("Failed to list users", zap.Error(err))
		b.send(tgbotapi.NewMessage(message.Chat.ID, "Failed to read the user registry."))
		return
	}
	b.send(tgbotapi.NewMessage(message.Chat.ID, fmt.Sprintf("Registered users: %d", len(users))))
}

// updateStatus performs a fetch-then-update with the freshly read revision.
// A single Conflict is retried once against the new revision; a second loss
// is surfaced to the caller.
func (b *Bot) updateStatus(ctx context.Context, partial mapstatus.Partial) (mapstatus.Document, error) {
	_, revision, err := b.status.Fetch(ctx)
	if err != nil {
		return mapstatus.Document{}, err
	}

	doc, _, err := b.status.Update(ctx, partial, revision)
	if errors.Is(err, mapstatus.ErrConflict) {
		if _, revision, err = b.status.Fetch(ctx); err != nil {
			return mapstatus.Document{}, err
		}
		doc, _, err = b.status.Update(ctx, partial, revision)
	}
	return doc, err
}
