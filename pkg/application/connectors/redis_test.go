package connectors_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"dkp_bot/pkg/application/connectors"
)

func TestRedis(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	mr := miniredis.RunT(t)

	r := &connectors.Redis{Address: mr.Addr()}
	rq.Error(r.Ping(ctx))

	client, err := r.Client(ctx)
	rq.NoError(err)
	rq.NoError(r.Ping(ctx))

	// Повторный вызов отдаёт тот же клиент.
	again, err := r.Client(ctx)
	rq.NoError(err)
	rq.Same(client, again)

	mr.Close()
	rq.Error(r.Ping(ctx))

	r.Close(ctx)
}

func TestRedisUnavailable(t *testing.T) {
	rq := require.New(t)

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	r := &connectors.Redis{Address: addr}

	client, err := r.Client(context.Background())
	rq.Error(err)
	rq.Nil(client)

	// Закрытие неподключённого клиента ничего не делает.
	r.Close(context.Background())
}
