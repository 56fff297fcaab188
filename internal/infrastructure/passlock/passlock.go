package passlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/xid"
)

var (
	// ErrNotAcquired возвращается, если блокировку держит другой процесс.
	ErrNotAcquired = errors.New("pass lock is held by another process")
	// ErrLeaseLost возвращается, если блокировка истекла и, возможно, уже занята другим.
	ErrLeaseLost = errors.New("pass lock lease lost")
)

// Удаляем ключ, только если он всё ещё наш.
//
//nolint:gochecknoglobals
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker держит распределённую блокировку прохода синхронизации, чтобы два
// экземпляра бота не сверяли одни и те же сделки одновременно.
type Locker struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func New(client *redis.Client, key string, ttl time.Duration) *Locker {
	return &Locker{
		client: client,
		key:    key,
		ttl:    ttl,
	}
}

type Lease struct {
	locker *Locker
	token  string
}

func (l *Locker) Acquire(ctx context.Context) (*Lease, error) {
	token := xid.New().String()

	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis.SetNX: %w", err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}

	return &Lease{locker: l, token: token}, nil
}

func (l *Lease) Release(ctx context.Context) error {
	deleted, err := releaseScript.Run(ctx, l.locker.client, []string{l.locker.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("releaseScript.Run: %w", err)
	}
	if deleted == 0 {
		return ErrLeaseLost
	}

	return nil
}
