package sio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestTimersFire(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	fired := make(chan interface{}, 1)
	ts := NewTimers(func(ctx context.Context, t *Timer) {
		fired <- t.Msg
	})

	ctx := context.Background()
	require.NoError(t, ts.Add(ctx, "t1", "hello", 10*time.Millisecond))
	require.Equal(t, []string{"t1"}, ts.Pending())

	select {
	case x := <-fired:
		require.Equal(t, "hello", x)
	case <-time.After(5 * time.Second):
		t.Fatal("timer didn't fire")
	}

	ts.Wait()
	require.Empty(t, ts.Pending())
}

func TestTimersCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ts := NewTimers(func(ctx context.Context, t *Timer) {
		panic("fired")
	})

	ctx := context.Background()
	require.NoError(t, ts.Add(ctx, "t1", "hello", time.Hour))
	require.NoError(t, ts.Cancel(ctx, "t1"))
	require.Error(t, ts.Cancel(ctx, "t1"))
	ts.Wait()
	require.Empty(t, ts.Pending())
}

func TestTimersReplace(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	fired := make(chan interface{}, 2)
	ts := NewTimers(func(ctx context.Context, t *Timer) {
		fired <- t.Msg
	})

	ctx := context.Background()
	require.NoError(t, ts.Add(ctx, "t1", "first", time.Hour))
	require.NoError(t, ts.Add(ctx, "t1", "second", time.Millisecond))

	select {
	case x := <-fired:
		require.Equal(t, "second", x)
	case <-time.After(5 * time.Second):
		t.Fatal("timer didn't fire")
	}
	ts.Wait()
	require.Empty(t, fired)
}

func TestTimersCron(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	fired := make(chan interface{}, 8)
	ts := NewTimers(func(ctx context.Context, t *Timer) {
		fired <- t.Msg
	})

	// Every second.
	require.NoError(t, ts.AddCron(ctx, "refresh", "* * * * * * *", "tick"))

	for i := 0; i < 2; i++ {
		select {
		case x := <-fired:
			require.Equal(t, "tick", x)
		case <-time.After(5 * time.Second):
			t.Fatal("cron timer didn't fire")
		}
	}
	require.Equal(t, []string{"refresh"}, ts.Pending())

	cancel()
	ts.Wait()
}

func TestTimersBadCron(t *testing.T) {
	ts := NewTimers(nil)
	require.Error(t, ts.AddCron(context.Background(), "x", "not a schedule", nil))
	require.Empty(t, ts.Pending())
}
