package middleware

import (
	"log/slog"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"dkp_bot/pkg/contextx"
	"dkp_bot/pkg/logx"
)

// AdminOnly пропускает дальше только сообщения администратора.
// Остальные молча отбрасываются.
func AdminOnly(adminID int64) th.Handler {
	return func(ctx *th.Context, update telego.Update) error {
		if senderID(update) == adminID {
			return ctx.Next(update)
		}

		if update.Message != nil {
			contextx.LoggerFromContextOrDefault(ctx).Warn(
				"admin command rejected",
				slog.Int64(logx.FieldChatID, update.Message.Chat.ID),
				slog.String("command", update.Message.Text),
			)
		}

		return nil
	}
}

func senderID(update telego.Update) int64 {
	switch {
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID
	case update.CallbackQuery != nil:
		return update.CallbackQuery.From.ID
	default:
		return 0
	}
}
