package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rs/xid"

	"dkp_bot/internal/domain"
	"dkp_bot/internal/domain/entity"
	"dkp_bot/internal/domain/service/reconcile"
	"dkp_bot/internal/infrastructure/passlock"
	"dkp_bot/internal/transport/bot/view"
	"dkp_bot/pkg/contextx"
	"dkp_bot/pkg/errcodes"
	"dkp_bot/pkg/logx"
)

const defaultWatchInterval = 30 * time.Minute

// ErrPassInProgress возвращается, пока предыдущий проход не закончился.
var ErrPassInProgress = domain.NewError(errcodes.PassInProgress, "sync pass is already in progress")

type Reconciler interface {
	Tenant() string
	Run(ctx context.Context) (reconcile.PassResult, error)
}

// Announcer рассылает итоги прохода в Telegram.
type Announcer interface {
	AnnounceNew(ctx context.Context, deals []entity.Deal) error
	AnnounceCompleted(ctx context.Context, deals []entity.Deal) error
	SendAdmin(ctx context.Context, text string) error
}

type NewDealsMailer interface {
	SendNewDeals(ctx context.Context, deals []entity.Deal) error
}

type PassLocker interface {
	Acquire(ctx context.Context) (*passlock.Lease, error)
}

// SyncWorker запускает проходы синхронизации по всем аккаунтам и не даёт
// им пересекаться.
type SyncWorker struct {
	reconcilers []Reconciler
	announcer   Announcer
	mailer      NewDealsMailer
	locker      PassLocker
	metrics     *Metrics
	onReport    func(reconcile.Report)

	timeout       time.Duration
	notifyTimeout time.Duration
	interval      time.Duration
	now      func() time.Time

	passMu sync.Mutex

	lastMu sync.RWMutex
	last   *reconcile.Report

	// Control fields
	mu         sync.Mutex
	cancelFunc context.CancelFunc
	isRunning  bool
	wg         sync.WaitGroup
}

func NewSyncWorker(announcer Announcer, reconcilers ...Reconciler) *SyncWorker {
	return &SyncWorker{
		reconcilers: reconcilers,
		announcer:   announcer,
		interval:    defaultWatchInterval,
		now:         time.Now,
	}
}

func (w *SyncWorker) WithMailer(mailer NewDealsMailer) *SyncWorker {
	w.mailer = mailer
	return w
}

// WithLocker включает распределённую блокировку прохода.
func (w *SyncWorker) WithLocker(locker PassLocker) *SyncWorker {
	w.locker = locker
	return w
}

// WithReportHook вызывает hook после каждого завершённого прохода.
func (w *SyncWorker) WithReportHook(hook func(reconcile.Report)) *SyncWorker {
	w.onReport = hook
	return w
}

func (w *SyncWorker) WithMetrics(metrics *Metrics) *SyncWorker {
	w.metrics = metrics
	return w
}

// WithTimeout задаёт общий дедлайн прохода.
func (w *SyncWorker) WithTimeout(timeout time.Duration) *SyncWorker {
	w.timeout = timeout
	return w
}

// WithNotifyTimeout ограничивает рассылку итогов прохода.
func (w *SyncWorker) WithNotifyTimeout(timeout time.Duration) *SyncWorker {
	w.notifyTimeout = timeout
	return w
}

func (w *SyncWorker) WithInterval(interval time.Duration) *SyncWorker {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// RunPass выполняет один проход. Ошибка возвращается, только если проход
// не начался; сбои аккаунтов и сделок лежат в отчёте.
func (w *SyncWorker) RunPass(ctx context.Context) (reconcile.Report, error) {
	if !w.passMu.TryLock() {
		w.metrics.busy()
		return reconcile.Report{}, ErrPassInProgress
	}
	defer w.passMu.Unlock()

	if w.locker != nil {
		lease, err := w.locker.Acquire(ctx)
		if errors.Is(err, passlock.ErrNotAcquired) {
			w.metrics.busy()
			return reconcile.Report{}, ErrPassInProgress
		}
		if err != nil {
			return reconcile.Report{}, fmt.Errorf("locker.Acquire: %w", err)
		}

		defer func() {
			if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
				logger(ctx).Warn("pass lock release failed", logx.Error(err))
			}
		}()
	}

	passID := contextx.PassID(xid.New().String())
	ctx = contextx.WithPassID(ctx, passID)
	ctx = contextx.WithLogger(ctx, logger(ctx).With(slog.String(logx.FieldPassID, passID.String())))

	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	report := reconcile.Report{
		PassID:    passID,
		StartedAt: w.now(),
	}

	if err := w.announcer.SendAdmin(ctx, view.PassStarted(report.StartedAt)); err != nil {
		logger(ctx).Warn("pass start notice failed", logx.Error(err))
	}

	for _, r := range w.reconcilers {
		result, err := r.Run(ctx)
		if err != nil {
			logger(ctx).Error(
				"tenant pass failed",
				slog.String(logx.FieldTenant, r.Tenant()),
				logx.Error(err),
			)
			report.Failures = append(report.Failures, reconcile.TenantFailure{Tenant: r.Tenant(), Err: err})
			continue
		}

		report.Results = append(report.Results, result)
	}

	report.Duration = w.now().Sub(report.StartedAt)

	// Записи уже сохранены, рассылка идёт без дедлайна прохода, но со своим.
	notifyCtx := context.WithoutCancel(ctx)
	if w.notifyTimeout > 0 {
		var cancel context.CancelFunc
		notifyCtx, cancel = context.WithTimeout(notifyCtx, w.notifyTimeout)
		defer cancel()
	}
	w.notify(notifyCtx, report)

	w.metrics.observe(report)
	w.setLast(report)

	if w.onReport != nil {
		w.onReport(report)
	}

	logger(ctx).Info(
		"pass finished",
		slog.Int("new", len(report.New())),
		slog.Int("completed", len(report.Completed())),
		slog.Int("failed-tenants", len(report.Failures)),
		slog.Int64(logx.FieldDurationMs, report.Duration.Milliseconds()),
	)

	return report, nil
}

func (w *SyncWorker) notify(ctx context.Context, report reconcile.Report) {
	newDeals := report.New()
	completed := report.Completed()

	var errs []error

	if len(newDeals) > 0 {
		if err := w.announcer.AnnounceNew(ctx, newDeals); err != nil {
			errs = append(errs, fmt.Errorf("announce new: %w", err))
		}

		if w.mailer != nil {
			if err := w.mailer.SendNewDeals(ctx, newDeals); err != nil {
				errs = append(errs, fmt.Errorf("mail new: %w", err))
			}
		}
	}

	if len(completed) > 0 {
		if err := w.announcer.AnnounceCompleted(ctx, completed); err != nil {
			errs = append(errs, fmt.Errorf("announce completed: %w", err))
		}
	}

	text := view.PassErrors(report)
	for _, err := range errs {
		logger(ctx).Error("pass notification failed", logx.Error(err))
		text += err.Error() + "\n"
	}

	if text == "" {
		return
	}

	if err := w.announcer.SendAdmin(ctx, text); err != nil {
		logger(ctx).Error("admin report failed", logx.Error(err))
	}
}

func (w *SyncWorker) setLast(report reconcile.Report) {
	w.lastMu.Lock()
	defer w.lastMu.Unlock()
	w.last = &report
}

// LastReport возвращает итог последнего завершённого прохода.
func (w *SyncWorker) LastReport() (reconcile.Report, bool) {
	w.lastMu.RLock()
	defer w.lastMu.RUnlock()

	if w.last == nil {
		return reconcile.Report{}, false
	}
	return *w.last, true
}

func (w *SyncWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return errors.New("sync worker is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel
	w.isRunning = true

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() {
			w.mu.Lock()
			w.isRunning = false
			w.cancelFunc = nil
			w.mu.Unlock()
		}()

		if err := w.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger(ctx).Error("sync worker stopped", logx.Error(err))
		}
	}()

	return nil
}

func (w *SyncWorker) Stop() {
	w.mu.Lock()

	if !w.isRunning {
		w.mu.Unlock()
		return
	}

	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	w.mu.Unlock()

	w.wg.Wait()
}

// IsRunning возвращает текущий статус
func (w *SyncWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.isRunning
}

// Run запускает проходы с интервалом до отмены контекста. Первый проход
// выполняется сразу.
func (w *SyncWorker) Run(ctx context.Context) error {
	logger(ctx).Info("sync worker started", slog.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.RunPass(ctx); err != nil {
			logger(ctx).Warn("pass skipped", logx.Error(err))
		}

		select {
		case <-ctx.Done():
			logger(ctx).Info("sync worker stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
