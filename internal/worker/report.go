package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dkp_bot/internal/domain/entity"
	"dkp_bot/internal/domain/service/deadline"
	"dkp_bot/pkg/logx"
)

const defaultDeadlineWindow = 5

type DealLister interface {
	List(ctx context.Context, filter entity.DealFilter) ([]entity.Deal, error)
}

type ReportMailer interface {
	SendStat(ctx context.Context, summary deadline.Summary, deals []entity.Deal) error
	SendDeadline(ctx context.Context, due []deadline.DueDeal) error
}

type AdminNotifier interface {
	SendAdmin(ctx context.Context, text string) error
}

// ReportWorker собирает ежедневную рассылку: статистику по объектам в
// работе и список сделок с подходящим сроком передачи.
type ReportWorker struct {
	deals    DealLister
	mailer   ReportMailer
	admin    AdminNotifier
	projects []string
	window   int
	now      func() time.Time
}

func NewReportWorker(deals DealLister, mailer ReportMailer, admin AdminNotifier, projects []string) *ReportWorker {
	return &ReportWorker{
		deals:    deals,
		mailer:   mailer,
		admin:    admin,
		projects: projects,
		window:   defaultDeadlineWindow,
		now:      time.Now,
	}
}

// WithWindow задаёт число дней до дедлайна, начиная с которого сделка
// попадает в рассылку.
func (w *ReportWorker) WithWindow(days int) *ReportWorker {
	if days > 0 {
		w.window = days
	}
	return w
}

func (w *ReportWorker) Run(ctx context.Context) error {
	err := w.run(ctx)
	if err == nil {
		return nil
	}

	logger(ctx).Error("report failed", logx.Error(err))

	if adminErr := w.admin.SendAdmin(ctx, "Ошибка отправки отчёта: "+err.Error()); adminErr != nil {
		logger(ctx).Error("admin report failed", logx.Error(adminErr))
	}

	return err
}

func (w *ReportWorker) run(ctx context.Context) error {
	active := false

	deals, err := w.deals.List(ctx, entity.DealFilter{Completed: &active})
	if err != nil {
		return fmt.Errorf("deals.List: %w", err)
	}

	var errs []error

	summary := deadline.Summarize(deals, w.projects)
	if err := w.mailer.SendStat(ctx, summary, deals); err != nil {
		errs = append(errs, fmt.Errorf("mailer.SendStat: %w", err))
	}

	due := deadline.FindDue(deals, w.now(), w.window)
	if err := w.mailer.SendDeadline(ctx, due); err != nil {
		errs = append(errs, fmt.Errorf("mailer.SendDeadline: %w", err))
	}

	logger(ctx).Info(
		"report sent",
		slog.Int("active", summary.Total),
		slog.Int("due", len(due)),
	)

	return errors.Join(errs...)
}
