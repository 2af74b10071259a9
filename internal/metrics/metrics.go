package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics счетчики движка постов, плагинов и экономики
type Metrics struct {
	HookRuns      *prometheus.CounterVec
	HookFaults    *prometheus.CounterVec
	HookDuration  *prometheus.HistogramVec
	PostsSent     prometheus.Counter
	PostsSkipped  *prometheus.CounterVec
	XPAwarded     prometheus.Counter
	LevelUps      prometheus.Counter
	Transfers     *prometheus.CounterVec
	StreakRenames *prometheus.CounterVec
	PluginToggles *prometheus.CounterVec
}

// New регистрирует коллекторы в reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HookRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roleplay",
			Name:      "hook_runs_total",
			Help:      "Plugin hook invocations.",
		}, []string{"plugin", "hook"}),
		HookFaults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roleplay",
			Name:      "hook_faults_total",
			Help:      "Plugin hook invocations that returned an error or panicked.",
		}, []string{"plugin", "hook"}),
		HookDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "roleplay",
			Name:      "hook_duration_seconds",
			Help:      "Plugin hook latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"hook"}),
		PostsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roleplay",
			Name:      "posts_sent_total",
			Help:      "Character posts delivered to chat.",
		}),
		PostsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roleplay",
			Name:      "posts_skipped_total",
			Help:      "Messages that did not become a character post.",
		}, []string{"reason"}),
		XPAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roleplay",
			Name:      "xp_awarded_total",
			Help:      "Experience points granted to characters.",
		}),
		LevelUps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roleplay",
			Name:      "level_ups_total",
			Help:      "Character level-ups.",
		}),
		Transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roleplay",
			Name:      "money_transfers_total",
			Help:      "Money transfer attempts by result.",
		}, []string{"result"}),
		StreakRenames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roleplay",
			Name:      "streak_renames_total",
			Help:      "Streak nickname rewrites by result.",
		}, []string{"result"}),
		PluginToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roleplay",
			Name:      "plugin_toggles_total",
			Help:      "Per-server plugin toggles.",
		}, []string{"plugin", "enabled"}),
	}

	reg.MustRegister(
		m.HookRuns,
		m.HookFaults,
		m.HookDuration,
		m.PostsSent,
		m.PostsSkipped,
		m.XPAwarded,
		m.LevelUps,
		m.Transfers,
		m.StreakRenames,
		m.PluginToggles,
	)
	return m
}

// NewUnregistered для тестов: отдельный реестр на каждый вызов
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}
