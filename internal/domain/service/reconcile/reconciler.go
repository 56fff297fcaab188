package reconcile

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"dkp_bot/internal/domain"
	"dkp_bot/internal/domain/entity"
	"dkp_bot/pkg/contextx"
	"dkp_bot/pkg/errcodes"
	"dkp_bot/pkg/logx"
)

const defaultConcurrency = 4

type LeadSource interface {
	ListFunnels(ctx context.Context, pipelineID int64) ([]entity.Funnel, error)
	FetchActiveDealCandidates(ctx context.Context, pipelineID, funnelID int64) ([]entity.DealCandidate, error)
}

type Enricher interface {
	Authenticate(ctx context.Context) (string, error)
	FetchDealDetail(ctx context.Context, dealID int64, project, token string) (entity.Deal, error)
}

type DealStore interface {
	ReadActiveIDs(ctx context.Context, project string) ([]entity.DealLimit, error)
	Create(ctx context.Context, deal entity.Deal) (entity.Deal, error)
	MarkNotCompleted(ctx context.Context, project string, dealID int64) (bool, error)
	MarkCompleted(ctx context.Context, project string, dealIDs []int64) ([]entity.Deal, error)
	SetDaysLimit(ctx context.Context, project string, dealID int64, days int) error
}

// Reconciler сверяет активные сделки одного аккаунта CRM с локальным
// хранилищем и возвращает пачки новых и переданных сделок.
type Reconciler struct {
	tenant       string
	pipelineID   int64
	funnelFilter string
	projects     []string
	source       LeadSource
	enricher     Enricher
	store        DealStore
	concurrency  int
	now          func() time.Time
}

type Config struct {
	Tenant       string
	PipelineID   int64
	FunnelFilter string
	// Все проекты, сделки которых может вернуть аккаунт.
	Projects []string
}

func NewReconciler(cfg Config, source LeadSource, enricher Enricher, store DealStore) *Reconciler {
	return &Reconciler{
		tenant:       cfg.Tenant,
		pipelineID:   cfg.PipelineID,
		funnelFilter: strings.ToLower(cfg.FunnelFilter),
		projects:     lo.Uniq(cfg.Projects),
		source:       source,
		enricher:     enricher,
		store:        store,
		concurrency:  defaultConcurrency,
		now:          time.Now,
	}
}

// WithConcurrency ограничивает число сделок, обогащаемых одновременно.
func (r *Reconciler) WithConcurrency(n int) *Reconciler {
	if n > 0 {
		r.concurrency = n
	}
	return r
}

func (r *Reconciler) Tenant() string {
	return r.tenant
}

// Run выполняет полный проход: снимок хранилища, чтение этапов передачи
// и сверка. Ошибка возвращается только если проход не состоялся; ошибки
// отдельных сделок лежат в PassResult.Errors.
func (r *Reconciler) Run(ctx context.Context) (PassResult, error) {
	ctx = r.withPassID(ctx)

	snapshot, err := r.readSnapshot(ctx)
	if err != nil {
		return PassResult{}, err
	}

	candidates, err := r.fetchCandidates(ctx)
	if err != nil {
		return PassResult{}, err
	}

	return r.reconcile(ctx, snapshot, candidates), nil
}

func (r *Reconciler) withPassID(ctx context.Context) context.Context {
	if _, err := contextx.PassIDFromContext(ctx); err == nil {
		return ctx
	}
	return contextx.WithPassID(ctx, contextx.PassID(xid.New().String()))
}

func (r *Reconciler) readSnapshot(ctx context.Context) (map[entity.DealKey]int, error) {
	snapshot := make(map[entity.DealKey]int)

	for _, project := range r.projects {
		limits, err := r.store.ReadActiveIDs(ctx, project)
		if err != nil {
			return nil, domain.WrapError(err, errcodes.PersistenceFailed, "read active deals of "+project)
		}

		for _, l := range limits {
			snapshot[entity.DealKey{Project: project, DealID: l.DealID}] = l.DaysLimit
		}
	}

	return snapshot, nil
}

// fetchCandidates собирает сделки всех этапов, название которых содержит
// фильтр. Любая ошибка CRM прерывает проход.
func (r *Reconciler) fetchCandidates(ctx context.Context) ([]entity.DealCandidate, error) {
	funnels, err := r.source.ListFunnels(ctx, r.pipelineID)
	if err != nil {
		return nil, r.remoteError(err, "list funnels")
	}

	funnels = lo.Filter(funnels, func(f entity.Funnel, _ int) bool {
		return strings.Contains(strings.ToLower(f.Name), r.funnelFilter)
	})
	// Пустой список этапов означает ошибку настройки, а не отсутствие сделок:
	// иначе проход пометил бы переданными все сделки аккаунта.
	if len(funnels) == 0 {
		return nil, domain.NewErrorf(errcodes.RemoteFetchFailed,
			"pipeline %d: no funnels match %q", r.pipelineID, r.funnelFilter)
	}

	var candidates []entity.DealCandidate

	for _, f := range funnels {
		found, err := r.source.FetchActiveDealCandidates(ctx, r.pipelineID, f.ID)
		if err != nil {
			return nil, r.remoteError(err, "fetch funnel "+f.Name)
		}

		logger(ctx).Info(
			"funnel fetched",
			slog.String(logx.FieldTenant, r.tenant),
			slog.Int64(logx.FieldFunnelID, f.ID),
			slog.Int("candidates", len(found)),
		)

		candidates = append(candidates, found...)
	}

	return candidates, nil
}

func (r *Reconciler) remoteError(err error, message string) error {
	if domain.HasCode(err, errcodes.RemoteFetchFailed) {
		return err
	}
	return domain.WrapError(err, errcodes.RemoteFetchFailed, message)
}

type newDeal struct {
	candidate entity.DealCandidate
	deal      entity.Deal
	err       error
}

func (r *Reconciler) reconcile(
	ctx context.Context,
	snapshot map[entity.DealKey]int,
	candidates []entity.DealCandidate,
) PassResult {
	passID, _ := contextx.PassIDFromContext(ctx)

	result := PassResult{
		PassID:    passID,
		Tenant:    r.tenant,
		StartedAt: r.now(),
	}

	seen := make(map[entity.DealKey]struct{}, len(candidates))
	var pending []*newDeal

	for _, c := range candidates {
		key := c.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		if days, ok := snapshot[key]; ok {
			delete(snapshot, key)
			r.continuing(ctx, c, days, &result)
			continue
		}

		returned, err := r.store.MarkNotCompleted(ctx, c.Project, c.DealID)
		if err != nil {
			result.Errors = append(result.Errors, DealError{
				Key: key,
				Err: domain.WrapError(err, errcodes.PersistenceFailed, "mark not completed"),
			})
			continue
		}

		if returned {
			result.Returned = append(result.Returned, key)
			continue
		}

		pending = append(pending, &newDeal{candidate: c})
	}

	r.createNew(ctx, pending)

	for _, p := range pending {
		if p.err != nil {
			result.Errors = append(result.Errors, DealError{Key: p.candidate.Key(), Err: p.err})
			continue
		}
		result.New = append(result.New, p.deal)
	}

	r.complete(ctx, snapshot, &result)

	result.Duration = r.now().Sub(result.StartedAt)

	logger(ctx).Info(
		"reconcile finished",
		slog.String(logx.FieldTenant, r.tenant),
		slog.String(logx.FieldPassID, passID.String()),
		slog.Int("new", len(result.New)),
		slog.Int("completed", len(result.Completed)),
		slog.Int("returned", len(result.Returned)),
		slog.Int("limit-changed", len(result.LimitChanged)),
		slog.Int("unchanged", result.Unchanged),
		slog.Int("errors", len(result.Errors)),
	)

	return result
}

func (r *Reconciler) continuing(ctx context.Context, c entity.DealCandidate, days int, result *PassResult) {
	if days == c.DaysLimit {
		result.Unchanged++
		return
	}

	if err := r.store.SetDaysLimit(ctx, c.Project, c.DealID, c.DaysLimit); err != nil {
		result.Errors = append(result.Errors, DealError{
			Key: c.Key(),
			Err: domain.WrapError(err, errcodes.PersistenceFailed, "set days limit"),
		})
		return
	}

	result.LimitChanged = append(result.LimitChanged, c.Key())
}

// createNew обогащает и сохраняет новые сделки на ограниченном пуле.
// Результаты пишутся по индексу, порядок CRM сохраняется.
func (r *Reconciler) createNew(ctx context.Context, pending []*newDeal) {
	if len(pending) == 0 {
		return
	}

	token := newPassToken(r.enricher)

	var g errgroup.Group
	g.SetLimit(r.concurrency)

	for _, p := range pending {
		g.Go(func() error {
			p.deal, p.err = r.create(ctx, token, p.candidate)
			if p.err != nil {
				logger(ctx).Warn(
					"new deal skipped",
					slog.String(logx.FieldProject, p.candidate.Project),
					slog.Int64(logx.FieldDealID, p.candidate.DealID),
					logx.Error(p.err),
				)
			}
			return nil
		})
	}

	_ = g.Wait()
}

func (r *Reconciler) create(ctx context.Context, token *passToken, c entity.DealCandidate) (entity.Deal, error) {
	accessToken, err := token.get(ctx)
	if err != nil {
		return entity.Deal{}, err
	}

	deal, err := r.enricher.FetchDealDetail(ctx, c.DealID, c.Project, accessToken)
	if err != nil {
		if !domain.HasCode(err, errcodes.EnrichmentDataFailed) {
			err = domain.WrapError(err, errcodes.EnrichmentDataFailed, "fetch deal detail")
		}
		return entity.Deal{}, err
	}

	deal.DealID = c.DealID
	deal.Project = c.Project
	deal.DaysLimit = c.DaysLimit
	deal.TransferCompleted = false

	created, err := r.store.Create(ctx, deal)
	if err != nil {
		return entity.Deal{}, domain.WrapError(err, errcodes.PersistenceFailed, "create deal")
	}

	return created, nil
}

// complete помечает переданными сделки снимка, которых не было в CRM.
func (r *Reconciler) complete(ctx context.Context, rest map[entity.DealKey]int, result *PassResult) {
	byProject := make(map[string][]int64)
	for key := range rest {
		byProject[key.Project] = append(byProject[key.Project], key.DealID)
	}

	projects := lo.Keys(byProject)
	slices.Sort(projects)

	for _, project := range projects {
		ids := byProject[project]
		slices.Sort(ids)

		completed, err := r.store.MarkCompleted(ctx, project, ids)
		if err != nil {
			err = domain.WrapError(err, errcodes.PersistenceFailed, "mark completed")
			for _, id := range ids {
				result.Errors = append(result.Errors, DealError{
					Key: entity.DealKey{Project: project, DealID: id},
					Err: err,
				})
			}
			continue
		}

		result.Completed = append(result.Completed, completed...)
	}
}
