package blacklist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixora/flowauth/infrastructure/service/logger"
)

type failingSweeper struct{}

func (failingSweeper) Sweep(ctx context.Context) (int, error) {
	return 0, errors.New("store offline")
}

func TestSweepScheduler(t *testing.T) {
	ctx := context.Background()

	t.Run("run once sweeps expired entries", func(t *testing.T) {
		b := NewMemoryBlacklist()
		_ = b.Add(ctx, "old", time.Now().Add(-time.Minute))
		_ = b.Add(ctx, "new", time.Now().Add(time.Minute))

		s, err := NewSweepScheduler(b, "", logger.NewNopLogger())
		require.NoError(t, err)

		removed, err := s.RunOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, removed)
		assert.Equal(t, 1, b.Size())
	})

	t.Run("scheduled sweep runs in background", func(t *testing.T) {
		b := NewMemoryBlacklist()
		_ = b.Add(ctx, "old", time.Now().Add(-time.Minute))

		s, err := NewSweepScheduler(b, "@every 1s", logger.NewNopLogger())
		require.NoError(t, err)
		s.Start()
		defer s.Stop(ctx)

		assert.Eventually(t, func() bool { return b.Size() == 0 }, 3*time.Second, 50*time.Millisecond)
	})

	t.Run("invalid schedule", func(t *testing.T) {
		_, err := NewSweepScheduler(NewMemoryBlacklist(), "every hour", logger.NewNopLogger())
		assert.Error(t, err)
	})

	t.Run("sweep errors are returned", func(t *testing.T) {
		s, err := NewSweepScheduler(failingSweeper{}, "", logger.NewNopLogger())
		require.NoError(t, err)
		_, err = s.RunOnce(ctx)
		assert.Error(t, err)
	})
}
