package modules

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"
)

type AsynqQueues map[string]int

type AsynqHandler struct {
	Pattern string
	Handle  func(context.Context, *asynq.Task) error
}

// AsynqEntry описывает периодическую задачу планировщика.
type AsynqEntry struct {
	Cronspec string
	Task     *asynq.Task
}

type AsynqServer struct {
	RedisUsername string
	RedisPassword string
	RedisAddress  string
	RedisDB       int
	Concurrency   int
}

func (s AsynqServer) Run(
	ctx context.Context,
	g *errgroup.Group,
	queues AsynqQueues,
	handlers ...AsynqHandler,
) {
	g.Go(func() error {
		worker := asynq.NewServer(redisOpt(s.RedisAddress, s.RedisUsername, s.RedisPassword, s.RedisDB), asynq.Config{
			BaseContext: func() context.Context { return ctx },
			Queues:      queues,
			Concurrency: s.Concurrency,
		})

		mux := asynq.NewServeMux()

		for _, h := range handlers {
			mux.HandleFunc(h.Pattern, h.Handle)
		}

		if err := worker.Start(mux); err != nil {
			return fmt.Errorf("asynqServer.Start: %w", err)
		}

		logger(ctx).Info("asynq server started", slog.String("redis-address", s.RedisAddress), slog.Int("redis-db", s.RedisDB))

		<-ctx.Done()
		worker.Shutdown()

		logger(ctx).Info("asynq server stopped", slog.String("redis-address", s.RedisAddress), slog.Int("redis-db", s.RedisDB))

		return nil
	})
}

// AsynqScheduler ставит задачи в очередь по cron-расписанию.
type AsynqScheduler struct {
	RedisUsername string
	RedisPassword string
	RedisAddress  string
	RedisDB       int
	Location      *time.Location
}

func (s AsynqScheduler) Run(
	ctx context.Context,
	g *errgroup.Group,
	entries ...AsynqEntry,
) {
	g.Go(func() error {
		scheduler := asynq.NewScheduler(
			redisOpt(s.RedisAddress, s.RedisUsername, s.RedisPassword, s.RedisDB),
			&asynq.SchedulerOpts{Location: s.Location},
		)

		for _, e := range entries {
			if _, err := scheduler.Register(e.Cronspec, e.Task); err != nil {
				return fmt.Errorf("scheduler.Register(%s, %q): %w", e.Task.Type(), e.Cronspec, err)
			}

			logger(ctx).Info("task scheduled", slog.String("task", e.Task.Type()), slog.String("cron", e.Cronspec))
		}

		if err := scheduler.Start(); err != nil {
			return fmt.Errorf("scheduler.Start: %w", err)
		}

		<-ctx.Done()
		scheduler.Shutdown()

		logger(ctx).Info("asynq scheduler stopped")

		return nil
	})
}

func redisOpt(address, username, password string, db int) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     address,
		Username: username,
		Password: password,
		DB:       db,
	}
}
