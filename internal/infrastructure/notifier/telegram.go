package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"dkp_bot/internal/domain/entity"
	"dkp_bot/internal/transport/bot/view"
	"dkp_bot/pkg/logx"
)

// Ограничение Telegram на длину сообщения.
const maxMessageLen = 4096

// TelegramBot рассылает уведомления в группу менеджеров и администратору.
type TelegramBot struct {
	bot     *telego.Bot
	adminID int64
	groupID int64
}

func NewTelegramBot(bot *telego.Bot, adminID, groupID int64) *TelegramBot {
	return &TelegramBot{
		bot:     bot,
		adminID: adminID,
		groupID: groupID,
	}
}

// AnnounceNew отправляет в группу сообщение о каждой новой сделке.
func (b *TelegramBot) AnnounceNew(ctx context.Context, deals []entity.Deal) error {
	return b.announce(ctx, deals, view.NewDeal)
}

// AnnounceCompleted отправляет в группу сообщение о каждой переданной сделке.
func (b *TelegramBot) AnnounceCompleted(ctx context.Context, deals []entity.Deal) error {
	return b.announce(ctx, deals, view.CompletedDeal)
}

func (b *TelegramBot) announce(ctx context.Context, deals []entity.Deal, render func(entity.Deal) string) error {
	var errs []error

	for _, d := range deals {
		if err := b.send(ctx, b.groupID, render(d)); err != nil {
			logger(ctx).Error(
				"failed to announce deal",
				slog.String(logx.FieldProject, d.Project),
				slog.Int64(logx.FieldDealID, d.DealID),
				logx.Error(err),
			)
			errs = append(errs, fmt.Errorf("deal %d: %w", d.DealID, err))
		}
	}

	return errors.Join(errs...)
}

// SendAdmin отправляет администратору простой текст.
func (b *TelegramBot) SendAdmin(ctx context.Context, text string) error {
	return b.send(ctx, b.adminID, text)
}

func (b *TelegramBot) send(ctx context.Context, chatID int64, text string) error {
	for _, part := range splitMessage(text, maxMessageLen) {
		if _, err := b.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), part)); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	}
	return nil
}

// splitMessage режет длинный текст по строкам так, чтобы каждая часть
// укладывалась в limit рун.
func splitMessage(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	var parts []string
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i > 0; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}

	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}

	return parts
}
