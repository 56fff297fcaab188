package application

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"dkp_bot/internal/config"
	"dkp_bot/internal/domain/service/reconcile"
	"dkp_bot/internal/infrastructure/amocrm"
	"dkp_bot/internal/infrastructure/notifier"
	"dkp_bot/internal/infrastructure/passlock"
	"dkp_bot/internal/infrastructure/persistence"
	"dkp_bot/internal/infrastructure/profitbase"
	"dkp_bot/internal/worker"
	"dkp_bot/pkg/application/connectors"
	"dkp_bot/pkg/lox"
	"dkp_bot/pkg/metrics"
)

const passLockKey = "dkp:sync:lock"

// Application собирает зависимости из конфигурации. Подключения к
// Postgres и Redis открываются при первом обращении.
type Application struct {
	cfg      config.Config
	projects config.Projects
	registry *prometheus.Registry
	postgres *connectors.Postgres
	redis    *connectors.Redis
}

func New(cfg config.Config, projects config.Projects) *Application {
	return &Application{
		cfg:      cfg,
		projects: projects,
		registry: metrics.NewRegistry(),
		postgres: &connectors.Postgres{
			DSN:             cfg.Postgres.DSN,
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		},
		redis: &connectors.Redis{
			Username:           cfg.Redis.Username,
			Password:           cfg.Redis.Password,
			Address:            cfg.Redis.Address,
			DatabaseNumber:     cfg.Redis.DatabaseNumber,
			PoolSize:           cfg.Redis.PoolSize,
			MinIdleConnections: cfg.Redis.MinIdleConnections,
			MaxIdleConnections: cfg.Redis.MaxIdleConnections,
		},
	}
}

// Load читает окружение и файл проектов.
func Load() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	projects, err := config.LoadProjects(cfg.ProjectsFile)
	if err != nil {
		return nil, fmt.Errorf("config.LoadProjects: %w", err)
	}

	return New(cfg, projects), nil
}

func (a *Application) Config() config.Config {
	return a.cfg
}

func (a *Application) Close(ctx context.Context) {
	a.postgres.Close(ctx)
	a.redis.Close(ctx)
}

func (a *Application) deals(ctx context.Context) (*persistence.DealRepository, error) {
	db, err := a.postgres.Client(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres.Client: %w", err)
	}

	return persistence.NewDealRepository(db), nil
}

func (a *Application) redisClient(ctx context.Context) (*redis.Client, error) {
	client, err := a.redis.Client(ctx)
	if err != nil {
		return nil, fmt.Errorf("redis.Client: %w", err)
	}

	return client, nil
}

func (a *Application) reconcilers(repo *persistence.DealRepository) ([]worker.Reconciler, error) {
	return lox.MapErr(a.projects.Tenants, func(t config.Tenant) (worker.Reconciler, error) {
		return a.reconciler(t, repo)
	})
}

func (a *Application) reconciler(t config.Tenant, repo *persistence.DealRepository) (worker.Reconciler, error) {
	fields := amocrm.FieldMapping{
		ContractFieldID:  t.Fields.ContractType.FieldID,
		ContractEnumID:   t.Fields.ContractType.EnumID,
		ContractValue:    t.Fields.ContractType.Value,
		DaysLimitFieldID: t.Fields.DaysLimitFieldID,
	}
	if t.Fields.Project != nil {
		fields.ProjectFieldID = t.Fields.Project.FieldID
		fields.ProjectValues = t.Fields.Project.Values
	}

	crm, err := amocrm.NewClient(amocrm.Config{
		BaseURL:          t.AmoCRM.BaseURL,
		Token:            t.AmoCRM.Token,
		DefaultProject:   t.Project,
		DefaultDaysLimit: t.DefaultDaysLimit,
		DaysLimits:       t.DaysLimits,
		RateLimit:        t.AmoCRM.RateLimit,
		MaxPages:         t.AmoCRM.MaxPages,
		Timeout:          t.AmoCRM.Timeout,
		LogFieldMaxLen:   a.cfg.HTTP.LogFieldMaxLen,
		Fields:           fields,
	})
	if err != nil {
		return nil, fmt.Errorf("amocrm.NewClient(%s): %w", t.Name, err)
	}

	pb, err := profitbase.NewClient(profitbase.Config{
		BaseURL:        t.Profitbase.BaseURL,
		APIKey:         t.Profitbase.APIKey,
		Timeout:        t.Profitbase.Timeout,
		LogFieldMaxLen: a.cfg.HTTP.LogFieldMaxLen,
	})
	if err != nil {
		return nil, fmt.Errorf("profitbase.NewClient(%s): %w", t.Name, err)
	}

	return reconcile.NewReconciler(reconcile.Config{
		Tenant:       t.Name,
		PipelineID:   t.AmoCRM.PipelineID,
		FunnelFilter: t.FunnelFilter,
		Projects:     t.ProjectNames(),
	}, crm, pb, repo).WithConcurrency(a.cfg.Schedule.EnrichConcurrency), nil
}

func (a *Application) telegram() (*telego.Bot, error) {
	bot, err := telego.NewBot(a.cfg.Bot.Token, telego.WithDiscardLogger())
	if err != nil {
		return nil, fmt.Errorf("telego.NewBot: %w", err)
	}

	return bot, nil
}

// mailer возвращает nil, если SMTP не настроен.
func (a *Application) mailer() (*notifier.Mailer, error) {
	if !a.cfg.Mailer.Enabled() {
		return nil, nil //nolint:nilnil
	}

	receivers, err := a.cfg.Mailer.ParseReceivers()
	if err != nil {
		return nil, fmt.Errorf("mailer.ParseReceivers: %w", err)
	}

	location, err := a.cfg.Schedule.Location()
	if err != nil {
		return nil, fmt.Errorf("schedule.Location: %w", err)
	}

	return notifier.NewMailer(notifier.MailerConfig{
		Host:      a.cfg.Mailer.Host,
		Port:      a.cfg.Mailer.Port,
		Username:  a.cfg.Mailer.Username,
		Password:  a.cfg.Mailer.Password,
		From:      a.cfg.Mailer.From,
		FromName:  a.cfg.Mailer.FromName,
		Receivers: receivers,
		Location:  location,
	}), nil
}

// syncWorker собирает проход по всем аккаунтам. Блокировка в Redis
// включается, если передан клиент.
func (a *Application) syncWorker(
	repo *persistence.DealRepository,
	announcer worker.Announcer,
	mailer *notifier.Mailer,
	redisClient *redis.Client,
) (*worker.SyncWorker, error) {
	reconcilers, err := a.reconcilers(repo)
	if err != nil {
		return nil, err
	}

	w := worker.NewSyncWorker(announcer, reconcilers...).
		WithTimeout(a.cfg.Schedule.PassTimeout).
		WithNotifyTimeout(a.cfg.Schedule.NotifyTimeout).
		WithInterval(a.cfg.Schedule.WatchInterval).
		WithMetrics(worker.NewMetrics(a.registry))

	if mailer != nil {
		w = w.WithMailer(mailer)
	}

	if redisClient != nil {
		w = w.WithLocker(passlock.New(redisClient, passLockKey, a.cfg.Schedule.LockTTL))
	}

	return w, nil
}
