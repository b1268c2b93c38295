// Package broadcast fans a message out to every registered user. Deliveries
// are isolated per recipient: one failure never aborts the rest of the pass.
// Recipients that have permanently gone away (blocked the bot, deleted their
// account) are pruned from the registry after the pass.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Metaboom4304/genesis-war-bot-sub000/internal/models"
	"github.com/Metaboom4304/genesis-war-bot-sub000/internal/storage"
)

// Telegram allows roughly 30 messages per second to distinct chats.
const (
	sendRate  = rate.Limit(25)
	sendBurst = 5
)

// Sender is the outbound side of the chat transport.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Engine delivers announcements to the full user registry.
type Engine struct {
	sender  Sender
	store   storage.Storage
	limiter *rate.Limiter
	logger  *zap.Logger

	// mu serializes broadcast passes so concurrent calls cannot interleave
	// their registry prunes.
	mu sync.Mutex
}

// NewEngine creates a broadcast engine over the given transport and registry.
func NewEngine(sender Sender, store storage.Storage, logger *zap.Logger) *Engine {
	return &Engine{
		sender:  sender,
		store:   store,
		limiter: rate.NewLimiter(sendRate, sendBurst),
		logger:  logger,
	}
}

// Broadcast sends text to every user registered at call time and returns a
// delivery report. Recipients whose delivery failed permanently are removed
// from the registry; transient failures leave the registry untouched.
//
// A registration that races with the pass is not guaranteed to receive the
// message: delivery is at-most-once per snapshot.
func (e *Engine) Broadcast(ctx context.Context, text string) (models.DeliveryReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	report := models.DeliveryReport{ID: uuid.NewString()}

	users, err := e.store.ListUsers(ctx)
	if err != nil {
		return report, fmt.Errorf("snapshot user registry: %w", err)
	}

	e.logger.Info("Broadcast started",
		zap.String("broadcast_id", report.ID),
		zap.Int("recipients", len(users)),
	)

	for _, user := range users {
		chatID, err := strconv.ParseInt(user.ID, 10, 64)
		if err != nil {
			// Corrupt record, count as permanently unreachable.
			report.Failed++
			report.Removed = append(report.Removed, user.ID)
			e.logger.Warn("Dropping unparseable registry id",
				zap.String("broadcast_id", report.ID),
				zap.String("user_id", user.ID),
			)
			continue
		}

		if err := e.limiter.Wait(ctx); err != nil {
			return report, fmt.Errorf("broadcast interrupted: %w", err)
		}

		if _, err := e.sender.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
			report.Failed++
			if IsPermanentRecipientFailure(err) {
				report.Removed = append(report.Removed, user.ID)
				e.logger.Info("Recipient permanently unreachable, will prune",
					zap.String("broadcast_id", report.ID),
					zap.String("user_id", user.ID),
				)
			} else {
				e.logger.Warn("Delivery failed, keeping recipient",
					zap.String("broadcast_id", report.ID),
					zap.String("user_id", user.ID),
					zap.Error(err),
				)
			}
			continue
		}
		report.Sent++
	}

	if len(report.Removed) > 0 {
		if err := e.store.RemoveUsers(ctx, report.Removed); err != nil {
			return report, fmt.Errorf("prune registry: %w", err)
		}
	}

	e.logger.Info("Broadcast finished",
		zap.String("broadcast_id", report.ID),
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed),
		zap.Int("removed", len(report.Removed)),
	)
	return report, nil
}

// IsPermanentRecipientFailure reports whether a delivery error means the
// recipient is gone for good: the bot was blocked, the chat was deleted, or
// the account is deactivated. Rate limits and transport faults are not
// permanent.
func IsPermanentRecipientFailure(err error) bool {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == 403 {
			return true
		}
		message := strings.ToLower(apiErr.Message)
		return strings.Contains(message, "blocked by the user") ||
			strings.Contains(message, "user is deactivated") ||
			strings.Contains(message, "chat not found")
	}
	return false
}
