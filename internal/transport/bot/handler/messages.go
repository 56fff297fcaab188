package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/lo"

	"dkp_bot/internal/domain/entity"
	"dkp_bot/internal/domain/service/lookup"
	"dkp_bot/internal/transport/bot/view"
	"dkp_bot/internal/worker"
	"dkp_bot/pkg/logx"
)

func (h *Handler) start(chatID int64) []view.Message {
	res := h.dialog.Start()
	h.save(chatID, res)

	return render(res)
}

func (h *Handler) dialogue(ctx context.Context, chatID int64, text string) []view.Message {
	res := h.dialog.Handle(ctx, h.session(chatID), text)
	h.save(chatID, res)

	return render(res)
}

func (h *Handler) sync(ctx context.Context) []view.Message {
	report, err := h.syncer.RunPass(ctx)
	if err != nil {
		if errors.Is(err, worker.ErrPassInProgress) {
			return []view.Message{{Text: view.SyncInProcess}}
		}

		logger(ctx).Error("manual sync failed", logx.Error(err))
		return []view.Message{{Text: view.SyncFailed}}
	}

	newDeals := report.New()
	if len(newDeals) == 0 {
		return []view.Message{{Text: view.NoNewDeals}}
	}

	logger(ctx).Info("manual sync found deals", slog.Int("new", len(newDeals)))

	return lo.Map(newDeals, func(d entity.Deal, _ int) view.Message {
		return view.Message{Text: view.NewDeal(d)}
	})
}

func (h *Handler) status() view.Message {
	report, ok := h.syncer.LastReport()
	if !ok {
		return view.Message{Text: view.NoPassYet}
	}

	text := view.PassSummary(report)
	if errText := view.PassErrors(report); errText != "" {
		text += "\n" + errText
	}

	return view.Message{Text: text}
}

func render(res lookup.Result) []view.Message {
	return lo.Map(res.Replies, func(r lookup.Reply, _ int) view.Message {
		return view.Render(r)
	})
}
