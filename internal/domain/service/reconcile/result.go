package reconcile

import (
	"fmt"
	"time"

	"dkp_bot/internal/domain/entity"
	"dkp_bot/pkg/contextx"
)

// PassResult содержит итог прохода по одному аккаунту.
type PassResult struct {
	PassID contextx.PassID
	Tenant string
	// Созданные записи в порядке выдачи CRM.
	New []entity.Deal
	// Записи, помеченные переданными в этом проходе.
	Completed    []entity.Deal
	Returned     []entity.DealKey
	LimitChanged []entity.DealKey
	Unchanged    int
	Errors       []DealError
	StartedAt    time.Time
	Duration     time.Duration
}

// Counts возвращает число сделок по каждому переходу.
func (r PassResult) Counts() map[entity.Transition]int {
	return map[entity.Transition]int{
		entity.TransitionNew:                  len(r.New),
		entity.TransitionContinuingUnchanged:  r.Unchanged,
		entity.TransitionContinuingLimitDrift: len(r.LimitChanged),
		entity.TransitionReturned:             len(r.Returned),
		entity.TransitionCompleted:            len(r.Completed),
	}
}

func (r PassResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// DealError описывает ошибку обработки одной сделки. Проход при этом продолжается.
type DealError struct {
	Key entity.DealKey
	Err error
}

func (e DealError) Error() string {
	return fmt.Sprintf("%s deal %d: %v", e.Key.Project, e.Key.DealID, e.Err)
}

func (e DealError) Unwrap() error {
	return e.Err
}

// Report содержит итог прохода по всем аккаунтам.
type Report struct {
	PassID    contextx.PassID
	StartedAt time.Time
	Duration  time.Duration
	Results   []PassResult
	// Аккаунты, проход по которым не состоялся.
	Failures []TenantFailure
}

type TenantFailure struct {
	Tenant string
	Err    error
}

func (r Report) New() []entity.Deal {
	var deals []entity.Deal
	for _, res := range r.Results {
		deals = append(deals, res.New...)
	}
	return deals
}

func (r Report) Completed() []entity.Deal {
	var deals []entity.Deal
	for _, res := range r.Results {
		deals = append(deals, res.Completed...)
	}
	return deals
}

// DealErrors собирает ошибки отдельных сделок всех аккаунтов.
func (r Report) DealErrors() []DealError {
	var errs []DealError
	for _, res := range r.Results {
		errs = append(errs, res.Errors...)
	}
	return errs
}

func (r Report) HasErrors() bool {
	return len(r.Failures) > 0 || len(r.DealErrors()) > 0
}
