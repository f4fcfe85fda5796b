package refresh

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRefresher_CommitsResult(t *testing.T) {
	r := NewRefresher("test", func(ctx context.Context) (int, error) {
		return 42, nil
	}, time.Minute, zap.NewNop())

	_, ok := r.Snapshot()
	assert.False(t, ok)

	applied, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, applied)

	snap, ok := r.Snapshot()
	require.True(t, ok)
	assert.Equal(t, 42, snap.Value)
	assert.Equal(t, uint64(1), snap.Generation)
}

func TestRefresher_SlowOlderRequestIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32

	r := NewRefresher("test", func(ctx context.Context) (string, error) {
		if calls.Add(1) == 1 {
			// первый запрос отвечает позже второго
			<-release
			return "old", nil
		}
		return "new", nil
	}, time.Minute, zap.NewNop())

	type result struct {
		applied bool
		err     error
	}
	slow := make(chan result)
	go func() {
		applied, err := r.Refresh(context.Background())
		slow <- result{applied, err}
	}()

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	applied, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, applied)

	close(release)
	res := <-slow
	require.NoError(t, res.err)
	assert.False(t, res.applied)

	snap, ok := r.Snapshot()
	require.True(t, ok)
	assert.Equal(t, "new", snap.Value)
	assert.Equal(t, uint64(2), snap.Generation)
}

func TestRefresher_FailureKeepsPreviousSnapshot(t *testing.T) {
	fail := false
	r := NewRefresher("test", func(ctx context.Context) (int, error) {
		if fail {
			return 0, errors.New("store unavailable")
		}
		return 7, nil
	}, time.Minute, zap.NewNop())

	_, err := r.Refresh(context.Background())
	require.NoError(t, err)

	fail = true
	applied, err := r.Refresh(context.Background())
	assert.Error(t, err)
	assert.False(t, applied)

	snap, _ := r.Snapshot()
	assert.Equal(t, 7, snap.Value)
}

func TestRefresher_RunRefreshesOnStartAndTrigger(t *testing.T) {
	var calls atomic.Int32
	r := NewRefresher("test", func(ctx context.Context) (int32, error) {
		return calls.Add(1), nil
	}, time.Hour, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, time.Second, time.Millisecond)

	r.Trigger()
	require.Eventually(t, func() bool {
		snap, ok := r.Snapshot()
		return ok && snap.Value >= 2
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("refresher did not stop after cancel")
	}
}

func TestRefresher_RunUsesInterval(t *testing.T) {
	var calls atomic.Int32
	r := NewRefresher("test", func(ctx context.Context) (int32, error) {
		return calls.Add(1), nil
	}, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
}

func TestRefresher_NonPositiveIntervalFallsBackToDefault(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Second} {
		var calls atomic.Int32
		r := NewRefresher("test", func(ctx context.Context) (int32, error) {
			return calls.Add(1), nil
		}, interval, zap.NewNop())
		assert.Equal(t, DefaultInterval, r.interval)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			r.Run(ctx)
		}()

		require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
		cancel()
		require.Eventually(t, func() bool {
			select {
			case <-done:
				return true
			default:
				return false
			}
		}, time.Second, time.Millisecond)
	}
}
