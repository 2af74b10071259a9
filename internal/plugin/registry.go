package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	cmap "github.com/orcaman/concurrent-map/v2"

	"roleplay_bot/internal/logger"
	"roleplay_bot/internal/metrics"
)

var (
	ErrDuplicatePlugin = errors.New("plugin already registered")
	ErrUnknownPlugin   = errors.New("unknown plugin")
)

// Registry фиксированный каталог плагинов и их включение по серверам
type Registry struct {
	plugins []Plugin
	byName  map[string]Plugin

	store   ConfigStore
	surface CommandSurface
	metrics *metrics.Metrics
	log     *slog.Logger

	// serverID -> множество включенных имен; значение не меняется после записи
	enabled  cmap.ConcurrentMap[int64, map[string]bool]
	toggleMu sync.Mutex
}

func shardServer(id int64) uint32 {
	u := uint64(id)
	return uint32(u ^ (u >> 32))
}

// NewRegistry собирает каталог. Повтор имени - ошибка конструирования.
func NewRegistry(store ConfigStore, m *metrics.Metrics, plugins ...Plugin) (*Registry, error) {
	if m == nil {
		m = metrics.NewUnregistered()
	}
	r := &Registry{
		byName:  make(map[string]Plugin, len(plugins)),
		store:   store,
		metrics: m,
		log:     logger.With("component", "plugin_registry"),
		enabled: cmap.NewWithCustomShardingFunction[int64, map[string]bool](shardServer),
	}

	for _, p := range plugins {
		if p == nil {
			return nil, errors.New("plugin is nil")
		}
		name := p.Name()
		if name == "" {
			return nil, errors.New("plugin name is required")
		}
		if _, ok := r.byName[name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePlugin, name)
		}
		r.byName[name] = p
		r.plugins = append(r.plugins, p)
	}

	return r, nil
}

// SetCommandSurface подключает платформу; до этого команды только переключаются в хранилище
func (r *Registry) SetCommandSurface(s CommandSurface) {
	r.surface = s
}

// Catalog плагины в порядке регистрации
func (r *Registry) Catalog() []Plugin {
	return append([]Plugin(nil), r.plugins...)
}

func (r *Registry) Lookup(name string) (Plugin, bool) {
	p, ok := r.byName[name]
	return p, ok
}

func (r *Registry) enabledSet(ctx context.Context, serverID int64) (map[string]bool, error) {
	if set, ok := r.enabled.Get(serverID); ok {
		return set, nil
	}

	names, err := r.store.EnabledPlugins(ctx, serverID)
	if err != nil {
		return nil, fmt.Errorf("load enabled plugins: %w", err)
	}

	set := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := r.byName[n]; ok {
			set[n] = true
		}
	}
	r.enabled.SetIfAbsent(serverID, set)

	set, _ = r.enabled.Get(serverID)
	return set, nil
}

// Enabled включенные на сервере плагины в порядке каталога
func (r *Registry) Enabled(ctx context.Context, serverID int64) ([]Plugin, error) {
	set, err := r.enabledSet(ctx, serverID)
	if err != nil {
		return nil, err
	}

	out := make([]Plugin, 0, len(set))
	for _, p := range r.plugins {
		if set[p.Name()] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *Registry) IsEnabled(ctx context.Context, serverID int64, name string) (bool, error) {
	set, err := r.enabledSet(ctx, serverID)
	if err != nil {
		return false, err
	}
	return set[name], nil
}

// Toggle переключает плагин на сервере и возвращает новое состояние.
// Действует только на последующие события.
func (r *Registry) Toggle(ctx context.Context, serverID int64, name string) (bool, error) {
	p, ok := r.byName[name]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownPlugin, name)
	}

	r.toggleMu.Lock()
	defer r.toggleMu.Unlock()

	current, err := r.enabledSet(ctx, serverID)
	if err != nil {
		return false, err
	}
	enabled := !current[name]

	if err := r.store.SetPluginEnabled(ctx, serverID, name, enabled); err != nil {
		return false, fmt.Errorf("save plugin state: %w", err)
	}

	next := make(map[string]bool, len(current)+1)
	for k, v := range current {
		next[k] = v
	}
	if enabled {
		next[name] = true
	} else {
		delete(next, name)
	}
	r.enabled.Set(serverID, next)

	r.metrics.PluginToggles.WithLabelValues(name, strconv.FormatBool(enabled)).Inc()
	r.syncCommands(ctx, serverID, p, enabled)

	return enabled, nil
}

// ошибки платформы не откатывают переключение
func (r *Registry) syncCommands(ctx context.Context, serverID int64, p Plugin, enabled bool) {
	cmds := p.Commands()
	if r.surface == nil || len(cmds) == 0 {
		return
	}

	var err error
	if enabled {
		err = r.surface.RegisterCommands(ctx, serverID, cmds)
	} else {
		err = r.surface.UnregisterCommands(ctx, serverID, cmds)
	}
	if err != nil {
		r.log.Error("failed to sync plugin commands",
			"plugin", p.Name(), "server_id", serverID, "enabled", enabled, "error", err)
	}
}

// Command ищет команду среди включенных на сервере плагинов
func (r *Registry) Command(ctx context.Context, serverID int64, name string) (*Command, Plugin, error) {
	plugins, err := r.Enabled(ctx, serverID)
	if err != nil {
		return nil, nil, err
	}
	for _, p := range plugins {
		for _, c := range p.Commands() {
			if c.Name == name {
				cmd := c
				return &cmd, p, nil
			}
		}
	}
	return nil, nil, nil
}

// EnabledCommands команды всех включенных плагинов сервера
func (r *Registry) EnabledCommands(ctx context.Context, serverID int64) ([]Command, error) {
	plugins, err := r.Enabled(ctx, serverID)
	if err != nil {
		return nil, err
	}
	var out []Command
	for _, p := range plugins {
		out = append(out, p.Commands()...)
	}
	return out, nil
}
