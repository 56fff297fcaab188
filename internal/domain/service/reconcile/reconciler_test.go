package reconcile_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"git.appkode.ru/pub/go/failure"
	"github.com/stretchr/testify/require"

	"dkp_bot/internal/domain"
	"dkp_bot/internal/domain/entity"
	"dkp_bot/internal/domain/service/reconcile"
	"dkp_bot/internal/domain/value"
	"dkp_bot/pkg/errcodes"
)

const (
	project    = "DNS Сити"
	pipelineID = 7486918
)

type fakeSource struct {
	funnels    []entity.Funnel
	candidates map[int64][]entity.DealCandidate
	funnelsErr error
	fetchErr   error
}

func (s *fakeSource) ListFunnels(context.Context, int64) ([]entity.Funnel, error) {
	return s.funnels, s.funnelsErr
}

func (s *fakeSource) FetchActiveDealCandidates(_ context.Context, _, funnelID int64) ([]entity.DealCandidate, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.candidates[funnelID], nil
}

type fakeEnricher struct {
	mu        sync.Mutex
	authCalls int
	fetched   []int64
	authErr   error
	failFor   map[int64]error
	delay     map[int64]time.Duration
}

func (e *fakeEnricher) Authenticate(context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.authCalls++
	return "token", e.authErr
}

func (e *fakeEnricher) FetchDealDetail(_ context.Context, dealID int64, project, _ string) (entity.Deal, error) {
	time.Sleep(e.delay[dealID])

	e.mu.Lock()
	defer e.mu.Unlock()

	e.fetched = append(e.fetched, dealID)
	if err := e.failFor[dealID]; err != nil {
		return entity.Deal{}, err
	}

	return entity.Deal{
		DealID:     dealID,
		Project:    project,
		House:      5,
		ObjectType: value.ObjectTypeApartment,
		Object:     int(dealID),
		CreatedOn:  time.Date(2025, 3, 12, 4, 38, 0, 0, time.UTC),
	}, nil
}

func (e *fakeEnricher) fetchCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.fetched)
}

type fakeStore struct {
	mu           sync.Mutex
	deals        map[entity.DealKey]entity.Deal
	nextID       int64
	setLimits    []entity.DealKey
	createErr    map[int64]error
	completeErr  error
	readErr      error
	createCalls  int
	completeArgs [][]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{deals: make(map[entity.DealKey]entity.Deal)}
}

func (s *fakeStore) ReadActiveIDs(_ context.Context, project string) ([]entity.DealLimit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.readErr != nil {
		return nil, s.readErr
	}

	var limits []entity.DealLimit
	for key, d := range s.deals {
		if key.Project == project && !d.TransferCompleted {
			limits = append(limits, entity.DealLimit{DealID: d.DealID, DaysLimit: d.DaysLimit})
		}
	}
	return limits, nil
}

func (s *fakeStore) Create(_ context.Context, deal entity.Deal) (entity.Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.createCalls++
	if err := s.createErr[deal.DealID]; err != nil {
		return entity.Deal{}, err
	}
	if _, ok := s.deals[deal.Key()]; ok {
		return entity.Deal{}, domain.NewError(errcodes.DealAlreadyExists, "duplicate")
	}

	s.nextID++
	deal.ID = s.nextID
	s.deals[deal.Key()] = deal
	return deal, nil
}

func (s *fakeStore) MarkNotCompleted(_ context.Context, project string, dealID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := entity.DealKey{Project: project, DealID: dealID}
	d, ok := s.deals[key]
	if !ok || !d.TransferCompleted {
		return false, nil
	}

	d.TransferCompleted = false
	s.deals[key] = d
	return true, nil
}

func (s *fakeStore) MarkCompleted(_ context.Context, project string, dealIDs []int64) ([]entity.Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.completeArgs = append(s.completeArgs, dealIDs)
	if s.completeErr != nil {
		return nil, s.completeErr
	}

	var out []entity.Deal
	for _, id := range dealIDs {
		key := entity.DealKey{Project: project, DealID: id}
		d, ok := s.deals[key]
		if !ok {
			continue
		}
		d.TransferCompleted = true
		s.deals[key] = d
		out = append(out, d)
	}
	return out, nil
}

func (s *fakeStore) SetDaysLimit(_ context.Context, project string, dealID int64, days int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := entity.DealKey{Project: project, DealID: dealID}
	d, ok := s.deals[key]
	if !ok {
		return domain.NewError(errcodes.DealNotFound, "not found")
	}

	d.DaysLimit = days
	s.deals[key] = d
	s.setLimits = append(s.setLimits, key)
	return nil
}

func (s *fakeStore) get(dealID int64) (entity.Deal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.deals[entity.DealKey{Project: project, DealID: dealID}]
	return d, ok
}

func candidate(dealID int64, days int) entity.DealCandidate {
	return entity.DealCandidate{DealID: dealID, DaysLimit: days, Project: project}
}

const transferFunnelID = 10

type testReconciler struct {
	*reconcile.Reconciler
	source *fakeSource
}

func newReconciler(source *fakeSource, enricher *fakeEnricher, store *fakeStore) testReconciler {
	return testReconciler{
		Reconciler: reconcile.NewReconciler(reconcile.Config{
			Tenant:       "city",
			PipelineID:   pipelineID,
			FunnelFilter: "Передача",
			Projects:     []string{project},
		}, source, enricher, store),
		source: source,
	}
}

func (r testReconciler) withConcurrency(n int) testReconciler {
	r.Reconciler = r.WithConcurrency(n)
	return r
}

// pass выполняет проход, в котором CRM отдаёт ровно candidates.
func (r testReconciler) pass(ctx context.Context, candidates []entity.DealCandidate) (reconcile.PassResult, error) {
	r.source.funnels = []entity.Funnel{{ID: transferFunnelID, Name: "Передача ключей"}}
	r.source.candidates = map[int64][]entity.DealCandidate{transferFunnelID: candidates}

	return r.Run(ctx)
}

func keys(ids ...int64) []entity.DealKey {
	out := make([]entity.DealKey, 0, len(ids))
	for _, id := range ids {
		out = append(out, entity.DealKey{Project: project, DealID: id})
	}
	return out
}

func dealIDs(deals []entity.Deal) []int64 {
	out := make([]int64, 0, len(deals))
	for _, d := range deals {
		out = append(out, d.DealID)
	}
	return out
}

func TestReconcileLifecycle(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	enricher := &fakeEnricher{}
	store := newFakeStore()
	r := newReconciler(&fakeSource{}, enricher, store)

	// Обе сделки новые.
	res, err := r.pass(ctx, []entity.DealCandidate{candidate(1, 30), candidate(2, 45)})
	rq.NoError(err)
	rq.Equal([]int64{1, 2}, dealIDs(res.New))
	rq.Empty(res.Completed)
	rq.Empty(res.Errors)
	rq.Equal(2, enricher.fetchCount())
	rq.Equal(1, enricher.authCalls)

	created, ok := store.get(2)
	rq.True(ok)
	rq.Equal(45, created.DaysLimit)
	rq.Equal(5, created.House)
	rq.False(created.TransferCompleted)

	// B пропала из CRM.
	res, err = r.pass(ctx, []entity.DealCandidate{candidate(1, 30)})
	rq.NoError(err)
	rq.Empty(res.New)
	rq.Equal([]int64{2}, dealIDs(res.Completed))
	rq.Equal(1, res.Unchanged)
	rq.Equal(2, enricher.fetchCount())

	completed, _ := store.get(2)
	rq.True(completed.TransferCompleted)
	completed.TransferCompleted = false
	rq.Equal(created, completed)

	// B вернулась: без повторного обогащения.
	res, err = r.pass(ctx, []entity.DealCandidate{candidate(1, 30), candidate(2, 45)})
	rq.NoError(err)
	rq.Empty(res.New)
	rq.Empty(res.Completed)
	rq.Equal(keys(2), res.Returned)
	rq.Equal(1, res.Unchanged)
	rq.Equal(2, enricher.fetchCount())
	rq.Equal(2, store.createCalls)

	returned, _ := store.get(2)
	rq.False(returned.TransferCompleted)
}

func TestReconcileIdempotent(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	enricher := &fakeEnricher{}
	store := newFakeStore()
	r := newReconciler(&fakeSource{}, enricher, store)

	candidates := []entity.DealCandidate{candidate(1, 30), candidate(2, 45), candidate(3, 60)}

	_, err := r.pass(ctx, candidates)
	rq.NoError(err)

	res, err := r.pass(ctx, candidates)
	rq.NoError(err)
	rq.Empty(res.New)
	rq.Empty(res.Completed)
	rq.Empty(res.Returned)
	rq.Empty(res.LimitChanged)
	rq.Equal(3, res.Unchanged)
	rq.Equal(3, store.createCalls)
	rq.Equal(3, enricher.fetchCount())
	rq.Empty(store.completeArgs)
}

func TestReconcileLimitConvergence(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	store := newFakeStore()
	r := newReconciler(&fakeSource{}, &fakeEnricher{}, store)

	_, err := r.pass(ctx, []entity.DealCandidate{candidate(1, 30)})
	rq.NoError(err)

	res, err := r.pass(ctx, []entity.DealCandidate{candidate(1, 90)})
	rq.NoError(err)
	rq.Equal(keys(1), res.LimitChanged)

	res, err = r.pass(ctx, []entity.DealCandidate{candidate(1, 90)})
	rq.NoError(err)
	rq.Empty(res.LimitChanged)
	rq.Equal(1, res.Unchanged)

	rq.Equal(keys(1), store.setLimits)

	d, _ := store.get(1)
	rq.Equal(90, d.DaysLimit)
}

func TestReconcileKeepsRemoteOrder(t *testing.T) {
	rq := require.New(t)

	enricher := &fakeEnricher{delay: map[int64]time.Duration{
		5: 30 * time.Millisecond,
		3: 10 * time.Millisecond,
	}}
	r := newReconciler(&fakeSource{}, enricher, newFakeStore()).withConcurrency(3)

	res, err := r.pass(context.Background(), []entity.DealCandidate{
		candidate(5, 30), candidate(3, 30), candidate(9, 30), candidate(1, 30),
	})
	rq.NoError(err)
	rq.Equal([]int64{5, 3, 9, 1}, dealIDs(res.New))
	rq.Equal(1, enricher.authCalls)
}

func TestReconcileDuplicateCandidates(t *testing.T) {
	rq := require.New(t)

	enricher := &fakeEnricher{}
	store := newFakeStore()
	r := newReconciler(&fakeSource{}, enricher, store)

	res, err := r.pass(context.Background(), []entity.DealCandidate{
		candidate(1, 30), candidate(1, 45), candidate(2, 30),
	})
	rq.NoError(err)
	rq.Equal([]int64{1, 2}, dealIDs(res.New))
	rq.Empty(res.Errors)
	rq.Equal(2, store.createCalls)

	d, _ := store.get(1)
	rq.Equal(30, d.DaysLimit)
}

func TestReconcileIsolatesDealErrors(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	testCases := []struct {
		name     string
		enricher *fakeEnricher
		store    func() *fakeStore
		wantNew  []int64
		wantErr  map[int64]failure.ErrorCode
	}{
		{
			name: "Enrichment data",
			enricher: &fakeEnricher{failFor: map[int64]error{
				2: domain.NewError(errcodes.EnrichmentDataFailed, "no dates"),
			}},
			store:   newFakeStore,
			wantNew: []int64{1, 3},
			wantErr: map[int64]failure.ErrorCode{2: errcodes.EnrichmentDataFailed},
		},
		{
			name:     "Enrichment auth",
			enricher: &fakeEnricher{authErr: errors.New("bad key")},
			store:    newFakeStore,
			wantErr: map[int64]failure.ErrorCode{
				1: errcodes.EnrichmentAuthFailed,
				2: errcodes.EnrichmentAuthFailed,
				3: errcodes.EnrichmentAuthFailed,
			},
		},
		{
			name:     "Persistence",
			enricher: &fakeEnricher{},
			store: func() *fakeStore {
				s := newFakeStore()
				s.createErr = map[int64]error{3: errors.New("connection reset")}
				return s
			},
			wantNew: []int64{1, 2},
			wantErr: map[int64]failure.ErrorCode{3: errcodes.PersistenceFailed},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(*testing.T) {
			store := tc.store()
			store.deals[entity.DealKey{Project: project, DealID: 100}] = entity.Deal{
				DealID: 100, Project: project, DaysLimit: 30,
			}

			r := newReconciler(&fakeSource{}, tc.enricher, store)

			res, err := r.pass(ctx, []entity.DealCandidate{candidate(1, 30), candidate(2, 30), candidate(3, 30)})
			rq.NoError(err)

			got := dealIDs(res.New)
			if len(tc.wantNew) == 0 {
				rq.Empty(got)
			} else {
				rq.Equal(tc.wantNew, got)
			}

			// Обход завершения не прерывается ошибками сделок.
			rq.Equal([]int64{100}, dealIDs(res.Completed))

			rq.Len(res.Errors, len(tc.wantErr))
			for _, e := range res.Errors {
				code, ok := tc.wantErr[e.Key.DealID]
				rq.True(ok, e.Error())
				rq.True(domain.HasCode(e, code), e.Error())
			}
		})
	}
}

func TestReconcileAuthOncePerPass(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	enricher := &fakeEnricher{authErr: errors.New("bad key")}
	r := newReconciler(&fakeSource{}, enricher, newFakeStore()).withConcurrency(2)

	_, err := r.pass(ctx, []entity.DealCandidate{candidate(1, 30), candidate(2, 30), candidate(3, 30)})
	rq.NoError(err)
	rq.Equal(1, enricher.authCalls)
	rq.Zero(enricher.fetchCount())

	// Следующий проход снова пробует авторизоваться.
	_, err = r.pass(ctx, []entity.DealCandidate{candidate(1, 30)})
	rq.NoError(err)
	rq.Equal(2, enricher.authCalls)
}

func TestReconcileNoAuthWithoutNewDeals(t *testing.T) {
	rq := require.New(t)

	store := newFakeStore()
	store.deals[entity.DealKey{Project: project, DealID: 1}] = entity.Deal{DealID: 1, Project: project, DaysLimit: 30}

	enricher := &fakeEnricher{}
	r := newReconciler(&fakeSource{}, enricher, store)

	_, err := r.pass(context.Background(), []entity.DealCandidate{candidate(1, 30)})
	rq.NoError(err)
	rq.Zero(enricher.authCalls)
}

func TestReconcileCompletionFailure(t *testing.T) {
	rq := require.New(t)

	store := newFakeStore()
	store.deals[entity.DealKey{Project: project, DealID: 7}] = entity.Deal{DealID: 7, Project: project}
	store.deals[entity.DealKey{Project: project, DealID: 4}] = entity.Deal{DealID: 4, Project: project}
	store.completeErr = errors.New("deadlock")

	r := newReconciler(&fakeSource{}, &fakeEnricher{}, store)

	res, err := r.pass(context.Background(), nil)
	rq.NoError(err)
	rq.Empty(res.Completed)
	rq.Len(res.Errors, 2)
	rq.Equal([][]int64{{4, 7}}, store.completeArgs)

	for _, e := range res.Errors {
		rq.True(domain.HasCode(e, errcodes.PersistenceFailed))
	}
}

func TestRunCollectsMatchingFunnels(t *testing.T) {
	rq := require.New(t)

	source := &fakeSource{
		funnels: []entity.Funnel{
			{ID: 10, Name: "Передача ключей"},
			{ID: 11, Name: "Подписание"},
			{ID: 12, Name: "Ожидает ПЕРЕДАЧИ"},
		},
		candidates: map[int64][]entity.DealCandidate{
			10: {candidate(1, 30), candidate(2, 30)},
			11: {candidate(99, 30)},
			12: {candidate(3, 30), candidate(1, 30)},
		},
	}

	r := newReconciler(source, &fakeEnricher{}, newFakeStore())

	res, err := r.Run(context.Background())
	rq.NoError(err)
	rq.Equal([]int64{1, 2, 3}, dealIDs(res.New))
	rq.Equal("city", res.Tenant)
	rq.NotEmpty(res.PassID)
}

func TestRunRemoteFailureAbortsPass(t *testing.T) {
	rq := require.New(t)

	testCases := []struct {
		name   string
		source *fakeSource
	}{
		{
			name:   "Funnels",
			source: &fakeSource{funnelsErr: errors.New("timeout")},
		},
		{
			name: "Leads",
			source: &fakeSource{
				funnels:  []entity.Funnel{{ID: 10, Name: "Передача"}},
				fetchErr: domain.NewError(errcodes.RemoteFetchFailed, "unexpected status 502"),
			},
		},
		{
			name: "No matching funnels",
			source: &fakeSource{
				funnels: []entity.Funnel{{ID: 11, Name: "Подписание"}},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(*testing.T) {
			store := newFakeStore()
			store.deals[entity.DealKey{Project: project, DealID: 1}] = entity.Deal{DealID: 1, Project: project}

			enricher := &fakeEnricher{}
			r := newReconciler(tc.source, enricher, store)

			_, err := r.Run(context.Background())
			rq.Error(err)
			rq.True(domain.HasCode(err, errcodes.RemoteFetchFailed), err.Error())

			rq.Empty(store.completeArgs)
			rq.Zero(store.createCalls)
			rq.Zero(enricher.authCalls)

			d, _ := store.get(1)
			rq.False(d.TransferCompleted)
		})
	}
}

func TestReconcileSnapshotFailure(t *testing.T) {
	rq := require.New(t)

	store := newFakeStore()
	store.readErr = errors.New("connection refused")

	_, err := newReconciler(&fakeSource{}, &fakeEnricher{}, store).
		pass(context.Background(), []entity.DealCandidate{candidate(1, 30)})
	rq.Error(err)
	rq.True(domain.HasCode(err, errcodes.PersistenceFailed))
	rq.Zero(store.createCalls)
}

func TestPassResultCounts(t *testing.T) {
	rq := require.New(t)

	res := reconcile.PassResult{
		New:          []entity.Deal{{DealID: 1}},
		Completed:    []entity.Deal{{DealID: 2}, {DealID: 3}},
		Returned:     keys(4),
		LimitChanged: keys(5, 6, 7),
		Unchanged:    10,
	}

	counts := res.Counts()
	rq.Equal(1, counts[entity.TransitionNew])
	rq.Equal(2, counts[entity.TransitionCompleted])
	rq.Equal(1, counts[entity.TransitionReturned])
	rq.Equal(3, counts[entity.TransitionContinuingLimitDrift])
	rq.Equal(10, counts[entity.TransitionContinuingUnchanged])
	rq.False(res.HasErrors())
}
