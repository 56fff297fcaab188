package handler

import (
	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"dkp_bot/internal/transport/bot/view"
)

func (h *Handler) OnStart(ctx *th.Context, msg telego.Message) error {
	return h.sendAll(ctx, msg.Chat.ID, h.start(msg.Chat.ID))
}

func (h *Handler) OnText(ctx *th.Context, msg telego.Message) error {
	return h.sendAll(ctx, msg.Chat.ID, h.dialogue(ctx, msg.Chat.ID, msg.Text))
}

func (h *Handler) OnSync(ctx *th.Context, msg telego.Message) error {
	if err := h.send(ctx, msg.Chat.ID, view.Message{Text: view.SyncStarted}); err != nil {
		return err
	}

	return h.sendAll(ctx, msg.Chat.ID, h.sync(ctx))
}

func (h *Handler) OnStatus(ctx *th.Context, msg telego.Message) error {
	return h.send(ctx, msg.Chat.ID, h.status())
}

func (h *Handler) sendAll(ctx *th.Context, chatID int64, messages []view.Message) error {
	for _, m := range messages {
		if err := h.send(ctx, chatID, m); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) send(ctx *th.Context, chatID int64, m view.Message) error {
	_, err := ctx.Bot().SendMessage(ctx, &telego.SendMessageParams{
		ChatID:      telego.ChatID{ID: chatID},
		Text:        m.Text,
		ReplyMarkup: m.Markup,
	})
	return err
}
