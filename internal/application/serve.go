package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"dkp_bot/internal/domain/service/lookup"
	"dkp_bot/internal/infrastructure/notifier"
	"dkp_bot/internal/server"
	"dkp_bot/internal/transport/bot"
	"dkp_bot/internal/transport/bot/handler"
	"dkp_bot/internal/worker"
	"dkp_bot/pkg/application/modules"
	"dkp_bot/pkg/logx"
	"dkp_bot/pkg/middlewarex"
	"dkp_bot/pkg/probe"
)

// Serve запускает бота, планировщик проходов, REST API и служебные серверы
// и работает до отмены контекста.
func (a *Application) Serve(ctx context.Context) error {
	cfg := a.cfg

	if err := a.Migrate(ctx); err != nil {
		return err
	}

	repo, err := a.deals(ctx)
	if err != nil {
		return err
	}

	redisClient, err := a.redisClient(ctx)
	if err != nil {
		return err
	}

	location, err := cfg.Schedule.Location()
	if err != nil {
		return fmt.Errorf("schedule.Location: %w", err)
	}

	tgBot, err := a.telegram()
	if err != nil {
		return err
	}

	announcer := notifier.NewTelegramBot(tgBot, cfg.Bot.AdminID, cfg.Bot.GroupID)

	mailer, err := a.mailer()
	if err != nil {
		return err
	}

	syncWorker, err := a.syncWorker(repo, announcer, mailer, redisClient)
	if err != nil {
		return err
	}

	projectNames := a.projects.ProjectNames()

	dialog := lookup.NewDialog(repo, projectNames)
	botTransport, err := bot.New(ctx, tgBot, handler.New(dialog, syncWorker, cfg.Bot.SessionTTL), cfg.Bot.AdminID)
	if err != nil {
		return fmt.Errorf("bot.New: %w", err)
	}

	r := chi.NewRouter()
	r.Use(
		middlewarex.TraceID,
		middlewarex.Logger,
		middlewarex.Recovery,
		middlewarex.Metrics(a.registry),
		middlewarex.RequestLogging(logx.NewSensitiveDataMasker(), cfg.HTTP.LogFieldMaxLen),
		middlewarex.ResponseLogging(logx.NewSensitiveDataMasker(), cfg.HTTP.LogFieldMaxLen),
	)

	server.NewServer(
		server.NewDealServer(repo, projectNames, cfg.Schedule.DeadlineWindowDays),
		server.NewSyncServer(syncWorker),
	).RegisterRoutes(r)

	g, ctx := errgroup.WithContext(ctx)

	modules.ProbeServer{
		Name:          cfg.App.Name,
		Version:       cfg.App.Version,
		ListenAddress: cfg.HTTP.ProbeListenAddress,
		Checks: map[string]probe.Check{
			"postgres": a.postgres.Ping,
			"redis":    a.redis.Ping,
		},
	}.Run(ctx, g)

	modules.MetricServer{
		ListenAddress: cfg.HTTP.MetricsListenAddress,
		Gatherer:      a.registry,
	}.Run(ctx, g)

	modules.HTTPServer{
		ListenAddress:   cfg.HTTP.ListenAddress,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}.Run(ctx, g, r)

	asynqServer := modules.AsynqServer{
		RedisUsername: cfg.Redis.Username,
		RedisPassword: cfg.Redis.Password,
		RedisAddress:  cfg.Redis.Address,
		RedisDB:       cfg.Redis.DatabaseNumber,
		Concurrency:   1,
	}

	handlers := []modules.AsynqHandler{{Pattern: worker.TaskSyncPass, Handle: syncWorker.HandleTask}}
	entries := []modules.AsynqEntry{{Cronspec: cfg.Schedule.SyncCron, Task: worker.NewSyncPassTask()}}

	if mailer != nil {
		reportWorker := worker.NewReportWorker(repo, mailer, announcer, projectNames).
			WithWindow(cfg.Schedule.DeadlineWindowDays)

		handlers = worker.Handlers(syncWorker, reportWorker)
		entries = worker.Schedule(cfg.Schedule.SyncCron, cfg.Schedule.ReportCron)
	} else {
		logger(ctx).Warn("mailer is not configured, daily report disabled")
	}

	asynqServer.Run(ctx, g, modules.AsynqQueues{worker.Queue: 1}, handlers...)

	modules.AsynqScheduler{
		RedisUsername: cfg.Redis.Username,
		RedisPassword: cfg.Redis.Password,
		RedisAddress:  cfg.Redis.Address,
		RedisDB:       cfg.Redis.DatabaseNumber,
		Location:      location,
	}.Run(ctx, g, entries...)

	g.Go(func() error {
		return botTransport.Run(ctx)
	})

	logger(ctx).Info(
		"dkp bot started",
		slog.Int("tenants", len(a.projects.Tenants)),
		slog.Any(logx.FieldProject, projectNames),
	)

	if err := g.Wait(); err != nil {
		return fmt.Errorf("errgroup.Wait: %w", err)
	}

	return nil
}
