package handler

import (
	th "github.com/mymmrac/telego/telegohandler"

	"dkp_bot/internal/transport/bot/middleware"
)

func (h *Handler) RegisterRoutes(bh *th.BotHandler, adminID int64) {
	bh.HandleMessage(h.OnStart, th.CommandEqual("start"))

	// Запуск синхронизации и её статус только для администратора
	adminGroup := bh.Group(th.Or(th.CommandEqual("sync"), th.CommandEqual("status")))
	adminGroup.Use(middleware.AdminOnly(adminID))

	adminGroup.HandleMessage(h.OnSync, th.CommandEqual("sync"))
	adminGroup.HandleMessage(h.OnStatus, th.CommandEqual("status"))

	// Всё остальное считается шагами диалога, включая команды вида /12
	bh.HandleMessage(h.OnText, th.AnyMessageWithText())
}
