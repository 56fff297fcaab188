package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"dkp_bot/pkg/application/modules"
	"dkp_bot/pkg/contextx"
	"dkp_bot/pkg/logx"
)

const (
	TaskSyncPass = "dkp:sync"
	TaskReport   = "dkp:report"

	Queue = "dkp"
)

// NewSyncPassTask создаёт задачу прохода синхронизации. Повторять её бессмысленно:
// следующий проход по расписанию сделает то же самое.
func NewSyncPassTask() *asynq.Task {
	return asynq.NewTask(TaskSyncPass, nil, asynq.Queue(Queue), asynq.MaxRetry(0))
}

func NewReportTask() *asynq.Task {
	return asynq.NewTask(TaskReport, nil, asynq.Queue(Queue), asynq.MaxRetry(2))
}

// Schedule возвращает расписание задач для asynq.Scheduler.
func Schedule(syncCron, reportCron string) []modules.AsynqEntry {
	return []modules.AsynqEntry{
		{Cronspec: syncCron, Task: NewSyncPassTask()},
		{Cronspec: reportCron, Task: NewReportTask()},
	}
}

func Handlers(syncWorker *SyncWorker, reportWorker *ReportWorker) []modules.AsynqHandler {
	return []modules.AsynqHandler{
		{Pattern: TaskSyncPass, Handle: syncWorker.HandleTask},
		{Pattern: TaskReport, Handle: reportWorker.HandleTask},
	}
}

func (w *SyncWorker) HandleTask(ctx context.Context, task *asynq.Task) error {
	ctx = taskLogger(ctx, task)

	if _, err := w.RunPass(ctx); err != nil {
		if errors.Is(err, ErrPassInProgress) {
			logger(ctx).Info("pass already in progress, task skipped")
			return nil
		}
		return fmt.Errorf("syncWorker.RunPass: %w", err)
	}

	return nil
}

func (w *ReportWorker) HandleTask(ctx context.Context, task *asynq.Task) error {
	if err := w.Run(taskLogger(ctx, task)); err != nil {
		return fmt.Errorf("reportWorker.Run: %w", err)
	}
	return nil
}

func taskLogger(ctx context.Context, task *asynq.Task) context.Context {
	return contextx.WithLogger(ctx, logger(ctx).With(slog.String(logx.FieldTask, task.Type())))
}
