package plugin

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roleplay_bot/internal/domain"
	"roleplay_bot/internal/metrics"
)

type postHooks struct {
	stubPlugin
	before func(ctx context.Context, payload *domain.Payload) error
	after  func(ctx context.Context) error
}

func (p postHooks) BeforePost(ctx context.Context, _ *PostEvent, payload *domain.Payload) error {
	return p.before(ctx, payload)
}

func (p postHooks) AfterPost(ctx context.Context, _ *PostEvent) error {
	return p.after(ctx)
}

func noop(context.Context) error { return nil }

func TestDispatcherRunsEveryHook(t *testing.T) {
	m := metrics.NewUnregistered()
	d := NewDispatcher(m, 0)

	var ran atomic.Int32
	ok := postHooks{
		stubPlugin: stubPlugin{name: "ok"},
		before: func(_ context.Context, p *domain.Payload) error {
			ran.Add(1)
			p.Edit(func(b *domain.MessageBody) { b.Content += "+ok" })
			return nil
		},
		after: noop,
	}
	failing := postHooks{
		stubPlugin: stubPlugin{name: "failing"},
		before: func(context.Context, *domain.Payload) error {
			ran.Add(1)
			return errors.New("nope")
		},
		after: noop,
	}
	panicking := postHooks{
		stubPlugin: stubPlugin{name: "panicking"},
		before: func(context.Context, *domain.Payload) error {
			ran.Add(1)
			panic("boom")
		},
		after: noop,
	}
	plain := stubPlugin{name: "plain"}

	payload := domain.NewPayload(domain.MessageBody{Content: "post"})
	faults := d.BeforePost(context.Background(), []Plugin{ok, failing, panicking, plain}, &PostEvent{}, payload)

	assert.Equal(t, int32(3), ran.Load())
	assert.Equal(t, "post+ok", payload.Snapshot().Content)
	require.Len(t, faults, 2)

	byPlugin := map[string]Fault{}
	for _, f := range faults {
		byPlugin[f.Plugin] = f
		assert.Equal(t, HookBeforePost, f.Hook)
	}
	assert.EqualError(t, byPlugin["failing"].Err, "nope")
	assert.Contains(t, byPlugin["panicking"].Err.Error(), "panic: boom")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HookRuns.WithLabelValues("ok", string(HookBeforePost))))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.HookRuns.WithLabelValues("plain", string(HookBeforePost))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HookFaults.WithLabelValues("panicking", string(HookBeforePost))))
}

func TestDispatcherRunsHooksConcurrently(t *testing.T) {
	d := NewDispatcher(nil, 0)

	// оба хука ждут друг друга: последовательный запуск зависнет
	arrived := make(chan struct{}, 2)
	release := make(chan struct{})
	wait := func(ctx context.Context) error {
		arrived <- struct{}{}
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	a := postHooks{stubPlugin: stubPlugin{name: "a"}, before: func(context.Context, *domain.Payload) error { return nil }, after: wait}
	b := postHooks{stubPlugin: stubPlugin{name: "b"}, before: func(context.Context, *domain.Payload) error { return nil }, after: wait}

	done := make(chan []Fault)
	go func() { done <- d.AfterPost(context.Background(), []Plugin{a, b}, &PostEvent{}) }()

	for i := 0; i < 2; i++ {
		select {
		case <-arrived:
		case <-time.After(time.Second):
			t.Fatal("hooks are not running concurrently")
		}
	}
	close(release)
	assert.Empty(t, <-done)
}

func TestDispatcherTimeout(t *testing.T) {
	d := NewDispatcher(nil, 20*time.Millisecond)
	slow := postHooks{
		stubPlugin: stubPlugin{name: "slow"},
		before:     func(context.Context, *domain.Payload) error { return nil },
		after: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}

	faults := d.AfterPost(context.Background(), []Plugin{slow}, &PostEvent{})
	require.Len(t, faults, 1)
	assert.ErrorIs(t, faults[0], context.DeadlineExceeded)
}
