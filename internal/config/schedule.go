package config

import (
	"errors"
	"fmt"
	"time"
)

type Schedule struct {
	// Cron-выражения asynq.Scheduler.
	SyncCron   string `env:"SYNC_SCHEDULE" envDefault:"*/30 8-20 * * *"`
	ReportCron string `env:"REPORT_SCHEDULE" envDefault:"0 9 * * 1-5"`
	Timezone   string `env:"SCHEDULE_TIMEZONE" envDefault:"Europe/Moscow"`

	PassTimeout       time.Duration `env:"PASS_TIMEOUT" envDefault:"10m"`
	EnrichConcurrency int           `env:"ENRICH_CONCURRENCY" envDefault:"4"`
	// Сделки, до передачи которых осталось меньше этого числа дней, попадают в рассылку.
	DeadlineWindowDays int `env:"DEADLINE_WINDOW_DAYS" envDefault:"5"`
	// Дедлайн рассылки итогов прохода, блокировка в это время ещё занята.
	NotifyTimeout time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"2m"`
	// Время жизни распределённой блокировки прохода. Должно быть больше
	// PASS_TIMEOUT + NOTIFY_TIMEOUT.
	LockTTL time.Duration `env:"PASS_LOCK_TTL" envDefault:"15m"`
	// Интервал для режима sync --watch.
	WatchInterval time.Duration `env:"SYNC_WATCH_INTERVAL" envDefault:"30m"`
}

func (s Schedule) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

func (s Schedule) Validate() error {
	if s.PassTimeout <= 0 || s.NotifyTimeout <= 0 {
		return errors.New("PASS_TIMEOUT and NOTIFY_TIMEOUT must be positive")
	}

	if s.LockTTL <= s.PassTimeout+s.NotifyTimeout {
		return fmt.Errorf(
			"PASS_LOCK_TTL %s must exceed PASS_TIMEOUT %s + NOTIFY_TIMEOUT %s",
			s.LockTTL, s.PassTimeout, s.NotifyTimeout,
		)
	}

	return nil
}
