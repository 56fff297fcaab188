package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"dkp_bot/internal/domain/entity"
	"dkp_bot/internal/domain/service/reconcile"
	"dkp_bot/internal/infrastructure/notifier"
	"dkp_bot/internal/infrastructure/persistence"
	"dkp_bot/internal/worker"
	"dkp_bot/pkg/logx"
)

// SyncOptions задаёт параметры ручного запуска синхронизации из CLI.
type SyncOptions struct {
	// Рассылать уведомления в Telegram и на почту.
	Notify bool
	// Повторять проход с интервалом WatchInterval до отмены контекста.
	Watch bool
}

func (a *Application) Migrate(ctx context.Context) error {
	db, err := a.postgres.Client(ctx)
	if err != nil {
		return fmt.Errorf("postgres.Client: %w", err)
	}

	if err := persistence.Migrate(ctx, db); err != nil {
		return fmt.Errorf("persistence.Migrate: %w", err)
	}

	return nil
}

func (a *Application) MigrationStatus(ctx context.Context) error {
	db, err := a.postgres.Client(ctx)
	if err != nil {
		return fmt.Errorf("postgres.Client: %w", err)
	}

	if err := persistence.MigrationStatus(ctx, db); err != nil {
		return fmt.Errorf("persistence.MigrationStatus: %w", err)
	}

	return nil
}

// Sync выполняет проход синхронизации и отдаёт отчёт в onReport. В режиме
// Watch проходы повторяются до отмены контекста. Без Redis блокировка
// действует только внутри процесса.
func (a *Application) Sync(ctx context.Context, opts SyncOptions, onReport func(reconcile.Report)) error {
	repo, err := a.deals(ctx)
	if err != nil {
		return err
	}

	var (
		announcer worker.Announcer = logAnnouncer{}
		mailer    *notifier.Mailer
	)

	if opts.Notify {
		tgBot, err := a.telegram()
		if err != nil {
			return err
		}
		announcer = notifier.NewTelegramBot(tgBot, a.cfg.Bot.AdminID, a.cfg.Bot.GroupID)

		if mailer, err = a.mailer(); err != nil {
			return err
		}
	}

	redisClient, err := a.redisClient(ctx)
	if err != nil {
		logger(ctx).Warn("redis is unavailable, pass lock disabled", logx.Error(err))
		redisClient = nil
	}

	syncWorker, err := a.syncWorker(repo, announcer, mailer, redisClient)
	if err != nil {
		return err
	}

	if opts.Watch {
		err := syncWorker.WithReportHook(onReport).Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	report, err := syncWorker.RunPass(ctx)
	if err != nil {
		return fmt.Errorf("syncWorker.RunPass: %w", err)
	}

	onReport(report)

	return nil
}

// Report отправляет ежедневную рассылку один раз.
func (a *Application) Report(ctx context.Context) error {
	mailer, err := a.mailer()
	if err != nil {
		return err
	}
	if mailer == nil {
		return errors.New("mailer is not configured: set SMTP_HOST and MAIL_RECEIVERS")
	}

	repo, err := a.deals(ctx)
	if err != nil {
		return err
	}

	var admin worker.AdminNotifier = logAnnouncer{}

	if tgBot, err := a.telegram(); err == nil {
		admin = notifier.NewTelegramBot(tgBot, a.cfg.Bot.AdminID, a.cfg.Bot.GroupID)
	}

	return worker.NewReportWorker(repo, mailer, admin, a.projects.ProjectNames()).
		WithWindow(a.cfg.Schedule.DeadlineWindowDays).
		Run(ctx)
}

// logAnnouncer пишет уведомления в лог вместо Telegram.
type logAnnouncer struct{}

func (logAnnouncer) AnnounceNew(ctx context.Context, deals []entity.Deal) error {
	for _, d := range deals {
		logger(ctx).Info("new deal", slog.String(logx.FieldProject, d.Project), slog.Int64(logx.FieldDealID, d.DealID))
	}
	return nil
}

func (logAnnouncer) AnnounceCompleted(ctx context.Context, deals []entity.Deal) error {
	for _, d := range deals {
		logger(ctx).Info("deal completed", slog.String(logx.FieldProject, d.Project), slog.Int64(logx.FieldDealID, d.DealID))
	}
	return nil
}

func (logAnnouncer) SendAdmin(ctx context.Context, text string) error {
	logger(ctx).Info("admin notice", slog.String("text", text))
	return nil
}
