package bot

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"dkp_bot/internal/transport/bot/handler"
	"dkp_bot/pkg/contextx"
	"dkp_bot/pkg/logx"
)

const longPollingTimeout = 60

// Bot обслуживает диалог поиска объекта и команды администратора.
type Bot struct {
	botHandler *th.BotHandler
}

// New подписывается на обновления и регистрирует обработчики.
func New(ctx context.Context, bot *telego.Bot, h *handler.Handler, adminID int64) (*Bot, error) {
	updates, err := bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout: longPollingTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("bot.UpdatesViaLongPolling: %w", err)
	}

	botHandler, err := th.NewBotHandler(bot, updates)
	if err != nil {
		return nil, fmt.Errorf("th.NewBotHandler: %w", err)
	}

	h.RegisterRoutes(botHandler, adminID)

	return &Bot{botHandler: botHandler}, nil
}

// Run обрабатывает обновления до отмены контекста.
func (b *Bot) Run(ctx context.Context) error {
	logger := contextx.LoggerFromContextOrDefault(ctx)

	go func() {
		if err := b.botHandler.Start(); err != nil {
			logger.Error("botHandler.Start", logx.Error(err))
		}
	}()

	logger.Info("telegram bot started")

	<-ctx.Done()

	if err := b.botHandler.Stop(); err != nil {
		logger.Error("botHandler.Stop", logx.Error(err))
	}

	logger.Info("telegram bot stopped")

	return nil
}
