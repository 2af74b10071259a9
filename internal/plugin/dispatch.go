package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"roleplay_bot/internal/domain"
	"roleplay_bot/internal/logger"
	"roleplay_bot/internal/metrics"
)

// Fault ошибка или паника одного хука
type Fault struct {
	Plugin string
	Hook   Hook
	Err    error
}

func (f Fault) Error() string {
	return fmt.Sprintf("plugin %s %s: %v", f.Plugin, f.Hook, f.Err)
}

func (f Fault) Unwrap() error { return f.Err }

// Dispatcher запускает все подходящие хуки одного события параллельно
// и ждет всех. Сбой одного хука не трогает соседей.
type Dispatcher struct {
	log     *slog.Logger
	metrics *metrics.Metrics
	timeout time.Duration
}

// NewDispatcher timeout <= 0 означает без ограничения
func NewDispatcher(m *metrics.Metrics, timeout time.Duration) *Dispatcher {
	if m == nil {
		m = metrics.NewUnregistered()
	}
	return &Dispatcher{
		log:     logger.With("component", "hook_dispatcher"),
		metrics: m,
		timeout: timeout,
	}
}

func (d *Dispatcher) BeforePost(ctx context.Context, plugins []Plugin, ev *PostEvent, payload *domain.Payload) []Fault {
	return fanOut(ctx, d, HookBeforePost, plugins, func(ctx context.Context, h BeforePostHook) error {
		return h.BeforePost(ctx, ev, payload)
	})
}

func (d *Dispatcher) AfterPost(ctx context.Context, plugins []Plugin, ev *PostEvent) []Fault {
	return fanOut(ctx, d, HookAfterPost, plugins, func(ctx context.Context, h AfterPostHook) error {
		return h.AfterPost(ctx, ev)
	})
}

func (d *Dispatcher) BeforeShowProfile(ctx context.Context, plugins []Plugin, ev *ProfileEvent, payload *domain.Payload) []Fault {
	return fanOut(ctx, d, HookBeforeShowProfile, plugins, func(ctx context.Context, h BeforeShowProfileHook) error {
		return h.BeforeShowProfile(ctx, ev, payload)
	})
}

func (d *Dispatcher) AfterShowProfile(ctx context.Context, plugins []Plugin, ev *ProfileEvent) []Fault {
	return fanOut(ctx, d, HookAfterShowProfile, plugins, func(ctx context.Context, h AfterShowProfileHook) error {
		return h.AfterShowProfile(ctx, ev)
	})
}

func (d *Dispatcher) UserMessage(ctx context.Context, plugins []Plugin, msg *domain.Message) []Fault {
	return fanOut(ctx, d, HookUserMessage, plugins, func(ctx context.Context, h UserMessageHook) error {
		return h.UserMessage(ctx, msg)
	})
}

func fanOut[H any](ctx context.Context, d *Dispatcher, hook Hook, plugins []Plugin, call func(context.Context, H) error) []Fault {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		faults []Fault
	)

	for _, p := range plugins {
		h, ok := p.(H)
		if !ok {
			continue
		}

		wg.Add(1)
		go func(p Plugin, h H) {
			defer wg.Done()

			err := d.invoke(ctx, hook, p, func(ctx context.Context) error {
				return call(ctx, h)
			})
			if err != nil {
				mu.Lock()
				faults = append(faults, Fault{Plugin: p.Name(), Hook: hook, Err: err})
				mu.Unlock()
			}
		}(p, h)
	}

	wg.Wait()
	return faults
}

func (d *Dispatcher) invoke(ctx context.Context, hook Hook, p Plugin, fn func(context.Context) error) (err error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}

		d.metrics.HookRuns.WithLabelValues(p.Name(), string(hook)).Inc()
		d.metrics.HookDuration.WithLabelValues(string(hook)).Observe(time.Since(start).Seconds())
		if err != nil {
			d.metrics.HookFaults.WithLabelValues(p.Name(), string(hook)).Inc()
			logger.FromContext(ctx, d.log).Error("plugin hook failed",
				"plugin", p.Name(), "hook", string(hook), "error", err)
		}
	}()

	return fn(ctx)
}
