package reconcile

import (
	"context"
	"sync"

	"dkp_bot/internal/domain"
	"dkp_bot/pkg/errcodes"
)

// passToken выдаёт токен Profitbase не более одного раза за проход.
// Ошибка авторизации запоминается и возвращается всем последующим вызовам.
type passToken struct {
	mu       sync.Mutex
	enricher Enricher
	fetched  bool
	token    string
	err      error
}

func newPassToken(enricher Enricher) *passToken {
	return &passToken{enricher: enricher}
}

func (t *passToken) get(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.fetched {
		return t.token, t.err
	}

	t.fetched = true
	t.token, t.err = t.enricher.Authenticate(ctx)
	if t.err != nil && !domain.HasCode(t.err, errcodes.EnrichmentAuthFailed) {
		t.err = domain.WrapError(t.err, errcodes.EnrichmentAuthFailed, "authenticate")
	}

	return t.token, t.err
}
