package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"roleplay_bot/internal/domain"
	"roleplay_bot/internal/metrics"
	"roleplay_bot/internal/plugin"
	"roleplay_bot/internal/repository/memstore"
)

type sentRecord struct {
	ChannelID int64
	Body      domain.MessageBody
}

// fakePlatform чат в памяти: Sender, Collector, MemberDirectory, NicknameSetter
type fakePlatform struct {
	mu        sync.Mutex
	nextID    int64
	sent      []sentRecord
	edited    map[domain.MessageRef]domain.MessageBody
	deleted   []domain.MessageRef
	sendErr   error
	members   map[int64]*Member
	nicknames map[int64]string
	limit     int
	replies   chan *domain.Message
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		nextID:    1000,
		edited:    map[domain.MessageRef]domain.MessageBody{},
		members:   map[int64]*Member{},
		nicknames: map[int64]string{},
		limit:     32,
		replies:   make(chan *domain.Message, 8),
	}
}

func (f *fakePlatform) SendMessage(_ context.Context, channelID int64, body domain.MessageBody) (*domain.SentMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.nextID++
	f.sent = append(f.sent, sentRecord{ChannelID: channelID, Body: body.Clone()})
	return &domain.SentMessage{Ref: domain.MessageRef{ChannelID: channelID, MessageID: f.nextID}, Body: body}, nil
}

func (f *fakePlatform) EditMessage(_ context.Context, ref domain.MessageRef, body domain.MessageBody) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edited[ref] = body.Clone()
	return nil
}

func (f *fakePlatform) DeleteMessage(_ context.Context, ref domain.MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ref)
	return nil
}

func (f *fakePlatform) CollectNextMessage(ctx context.Context, _ int64, filter func(*domain.Message) bool, timeout time.Duration) (*domain.Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case m := <-f.replies:
			if filter(m) {
				return m, nil
			}
		case <-timer.C:
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (f *fakePlatform) Member(_ context.Context, _ int64, userID int64) (*Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[userID]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (f *fakePlatform) SetNickname(_ context.Context, _ int64, userID int64, nickname string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nicknames[userID] = nickname
	if m, ok := f.members[userID]; ok {
		m.Nickname = nickname
	}
	return nil
}

func (f *fakePlatform) NicknameLimit() int { return f.limit }

func (f *fakePlatform) Sent() []sentRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentRecord(nil), f.sent...)
}

func (f *fakePlatform) Deleted() []domain.MessageRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.MessageRef(nil), f.deleted...)
}

// recordingPublisher запоминает темы событий
type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return nil
}

func (p *recordingPublisher) Subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.subjects...)
}

// --- тестовые плагины

type basePlugin struct{ name string }

func (b basePlugin) Name() string               { return b.name }
func (b basePlugin) Description() string        { return "test plugin " + b.name }
func (b basePlugin) Commands() []plugin.Command { return nil }

type beforePostPlugin struct {
	basePlugin
	fn func(ctx context.Context, ev *plugin.PostEvent, payload *domain.Payload) error
}

func (p beforePostPlugin) BeforePost(ctx context.Context, ev *plugin.PostEvent, payload *domain.Payload) error {
	return p.fn(ctx, ev, payload)
}

type afterPostPlugin struct {
	basePlugin
	fn func(ctx context.Context, ev *plugin.PostEvent) error
}

func (p afterPostPlugin) AfterPost(ctx context.Context, ev *plugin.PostEvent) error {
	return p.fn(ctx, ev)
}

type profilePlugin struct {
	basePlugin
	before func(ctx context.Context, ev *plugin.ProfileEvent, payload *domain.Payload) error
	after  func(ctx context.Context, ev *plugin.ProfileEvent) error
}

func (p profilePlugin) BeforeShowProfile(ctx context.Context, ev *plugin.ProfileEvent, payload *domain.Payload) error {
	return p.before(ctx, ev, payload)
}

func (p profilePlugin) AfterShowProfile(ctx context.Context, ev *plugin.ProfileEvent) error {
	return p.after(ctx, ev)
}

var errHook = errors.New("hook failed")

// --- окружение

const (
	testServer  int64 = 500
	testChannel int64 = 600
	testUser    int64 = 1
)

type testEnv struct {
	store       *memstore.Store
	platform    *fakePlatform
	events      *recordingPublisher
	metrics     *metrics.Metrics
	registry    *plugin.Registry
	audit       *AuditService
	characters  *CharacterService
	progression *ProgressionService
	economy     *EconomyService
	editing     *EditingGuard
	posts       *PostService
	profiles    *ProfileService
	now         time.Time
}

func newTestEnv(t *testing.T, plugins ...plugin.Plugin) *testEnv {
	t.Helper()

	env := &testEnv{
		store:    memstore.New(),
		platform: newFakePlatform(),
		events:   &recordingPublisher{},
		metrics:  metrics.NewUnregistered(),
		editing:  NewEditingGuard(),
		now:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	reg, err := plugin.NewRegistry(env.store.Servers, env.metrics, plugins...)
	require.NoError(t, err)
	env.registry = reg

	env.audit = NewAuditService(env.store.Audit)
	env.characters = NewCharacterService(env.store.Characters, env.store.Users, nil, env.audit, domain.LanguageEnglish)
	env.progression = NewProgressionService(env.store.Characters, nil, env.events, env.metrics, time.Minute*30,
		WithProgressionClock(func() time.Time { return env.now }),
		WithXPRoller(func() int { return 2 }),
	)
	env.economy = NewEconomyService(env.store.Balances, env.audit, env.events, env.metrics)

	dispatcher := plugin.NewDispatcher(env.metrics, time.Second)
	env.posts = NewPostService(PostServiceDeps{
		Characters:  env.characters,
		Progression: env.progression,
		Registry:    reg,
		Dispatcher:  dispatcher,
		Sender:      env.platform,
		Posts:       env.store.Posts,
		Editing:     env.editing,
		Events:      env.events,
		Metrics:     env.metrics,
	})
	env.profiles = NewProfileService(env.characters, reg, dispatcher)
	return env
}

func (e *testEnv) enable(t *testing.T, names ...string) {
	t.Helper()
	for _, n := range names {
		enabled, err := e.registry.Toggle(context.Background(), testServer, n)
		require.NoError(t, err)
		require.True(t, enabled)
	}
}

func (e *testEnv) character(t *testing.T, ownerID int64, name string) *domain.Character {
	t.Helper()
	c, err := e.characters.Create(context.Background(), ownerID, name, "https://img.example/"+name+".png")
	require.NoError(t, err)
	return c
}

func message(id int64, content string) *domain.Message {
	return &domain.Message{
		ID:        id,
		ChannelID: testChannel,
		ServerID:  testServer,
		Author:    domain.Author{ID: testUser, Username: "player", DisplayName: "Player"},
		Content:   content,
	}
}
