// Package alerts delivers operational alerts to a Telegram chat. Alerts are
// best-effort and optional; without credentials every call is a no-op.
package alerts

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Notifier sends alert messages to a single ops chat.
type Notifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

// New creates a Notifier. An empty token returns a disabled notifier rather
// than an error so alerting stays optional.
func New(token string, chatID int64, logger *zap.Logger) (*Notifier, error) {
	if token == "" || chatID == 0 {
		return &Notifier{logger: logger}, nil
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create alert bot: %w", err)
	}

	logger.Info("ops alerts enabled", zap.String("bot", api.Self.UserName))

	return &Notifier{
		api:    api,
		chatID: chatID,
		logger: logger,
	}, nil
}

// Alertf formats and sends one alert. Failures are logged and swallowed; an
// unreachable alert channel must never affect the caller.
func (n *Notifier) Alertf(format string, args ...any) {
	if n.api == nil {
		return
	}

	msg := tgbotapi.NewMessage(n.chatID, fmt.Sprintf(format, args...))
	if _, err := n.api.Send(msg); err != nil {
		n.logger.Warn("failed to send ops alert", zap.Error(err))
	}
}
