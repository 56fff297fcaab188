package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dkp_bot/internal/config"
)

func TestScheduleValidate(t *testing.T) {
	testCases := []struct {
		name     string
		schedule config.Schedule
		wantErr  bool
	}{
		{
			name:     "Lease outlives pass and notification",
			schedule: config.Schedule{PassTimeout: 10 * time.Minute, NotifyTimeout: 2 * time.Minute, LockTTL: 15 * time.Minute},
		},
		{
			name:     "Lease shorter than pass",
			schedule: config.Schedule{PassTimeout: 10 * time.Minute, NotifyTimeout: 2 * time.Minute, LockTTL: 5 * time.Minute},
			wantErr:  true,
		},
		{
			name:     "Lease expires during notification",
			schedule: config.Schedule{PassTimeout: 10 * time.Minute, NotifyTimeout: 2 * time.Minute, LockTTL: 12 * time.Minute},
			wantErr:  true,
		},
		{
			name:     "No pass timeout",
			schedule: config.Schedule{NotifyTimeout: time.Minute, LockTTL: time.Hour},
			wantErr:  true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)

			err := tc.schedule.Validate()
			if tc.wantErr {
				rq.Error(err)
				return
			}
			rq.NoError(err)
		})
	}
}

func TestLoadRejectsShortPassLock(t *testing.T) {
	rq := require.New(t)

	t.Setenv("BOT_TOKEN", "token")
	t.Setenv("BOT_ADMIN_ID", "1")
	t.Setenv("BOT_GROUP_ID", "-100")
	t.Setenv("PASS_TIMEOUT", "10m")
	t.Setenv("PASS_LOCK_TTL", "10m")

	_, err := config.Load()
	rq.ErrorContains(err, "PASS_LOCK_TTL")

	t.Setenv("PASS_LOCK_TTL", "15m")

	cfg, err := config.Load()
	rq.NoError(err)
	rq.Equal(2*time.Minute, cfg.Schedule.NotifyTimeout)
}
