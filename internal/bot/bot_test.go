package bot

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roleplay_bot/internal/domain"
	"roleplay_bot/internal/plugin"
	"roleplay_bot/internal/repository/memstore"
	"roleplay_bot/internal/service"
)

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	member   tgbotapi.ChatMember
	nextID   int
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetChatMember(tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	return f.member, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(chan tgbotapi.Update)
}

func (f *fakeAPI) StopReceivingUpdates() {}

func (f *fakeAPI) lastRequest() tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakeAPI) lastText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg, _ := f.sent[len(f.sent)-1].(tgbotapi.MessageConfig)
	return cfg.Text
}

const selfID int64 = 999

// newCommandBot бот с сервисами персонажей и профилей на memstore
func newCommandBot(t *testing.T) (*Bot, *fakeAPI, *service.CharacterService) {
	t.Helper()
	store := memstore.New()
	audit := service.NewAuditService(store.Audit)
	characters := service.NewCharacterService(store.Characters, store.Users, nil, audit, domain.LanguageEnglish)
	registry, err := plugin.NewRegistry(store.Servers, nil)
	require.NoError(t, err)

	api := &fakeAPI{}
	b := newBot(api, selfID)
	b.Attach(Handlers{
		Characters: characters,
		Profiles:   service.NewProfileService(characters, registry, plugin.NewDispatcher(nil, time.Second)),
		Registry:   registry,
	})
	return b, api, characters
}

func command(text string) *tgbotapi.Message {
	name, _, _ := strings.Cut(text, " ")
	return &tgbotapi.Message{
		MessageID: 1,
		Chat:      &tgbotapi.Chat{ID: -100},
		From:      &tgbotapi.User{ID: 7, FirstName: "Ana"},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}
}

func TestRenderHTML(t *testing.T) {
	body := domain.MessageBody{
		Content: "@bob",
		Embeds: []domain.Embed{{
			AuthorName:  "Aria",
			Description: "a < b & c",
			Footer:      "⬆️ Level 2 | 💡 1 XP",
			ImageURL:    "https://img.example/a.png",
			Fields: []domain.EmbedField{
				{Name: "Age", Value: "20", Inline: true},
				{Name: "Leveling", Value: "🟩"},
			},
		}},
	}

	want := `<a href="https://img.example/a.png">&#8203;</a>@bob` + "\n\n" +
		"<b>Aria</b>\na &lt; b &amp; c\n<b>Age</b>: 20\n<b>Leveling</b>\n🟩\n<i>⬆️ Level 2 | 💡 1 XP</i>"
	assert.Equal(t, want, RenderHTML(body))
	assert.Empty(t, RenderHTML(domain.MessageBody{}))
}

func TestRenderHTMLTruncates(t *testing.T) {
	long := make([]rune, maxMessageRunes+10)
	for i := range long {
		long[i] = 'я'
	}
	out := []rune(RenderHTML(domain.MessageBody{Content: string(long)}))
	assert.Len(t, out, maxMessageRunes)
	assert.Equal(t, '…', out[len(out)-1])
}

func TestToDomainMessage(t *testing.T) {
	m := &tgbotapi.Message{
		MessageID: 12,
		Date:      1700000000,
		Chat:      &tgbotapi.Chat{ID: -100},
		From:      &tgbotapi.User{ID: 7, UserName: "aria", FirstName: "Ana", LastName: "Lu"},
		Text:      "🔥 hi @bob there",
		// 🔥 занимает две единицы UTF-16
		Entities:       []tgbotapi.MessageEntity{{Type: "mention", Offset: 6, Length: 4}, {Type: "bold", Offset: 0, Length: 2}},
		ReplyToMessage: &tgbotapi.Message{MessageID: 3},
	}

	msg := toDomainMessage(m)
	assert.Equal(t, int64(12), msg.ID)
	assert.Equal(t, int64(-100), msg.ChannelID)
	assert.Equal(t, int64(-100), msg.ServerID)
	assert.Equal(t, domain.Author{ID: 7, Username: "aria", DisplayName: "Ana Lu"}, msg.Author)
	assert.Equal(t, []string{"@bob"}, msg.Mentions)
	assert.Equal(t, int64(3), msg.ReplyToID)
	assert.Equal(t, time.Unix(1700000000, 0), msg.CreatedAt)
}

func TestToDomainMessageUsesCaption(t *testing.T) {
	m := &tgbotapi.Message{
		Chat:            &tgbotapi.Chat{ID: 1},
		From:            &tgbotapi.User{ID: 1},
		Caption:         "@amy look",
		CaptionEntities: []tgbotapi.MessageEntity{{Type: "mention", Offset: 0, Length: 4}},
	}
	msg := toDomainMessage(m)
	assert.Equal(t, "@amy look", msg.Content)
	assert.Equal(t, []string{"@amy"}, msg.Mentions)
}

func TestSendAndEditMessage(t *testing.T) {
	api := &fakeAPI{}
	b := newBot(api, selfID)
	ctx := context.Background()

	sent, err := b.SendMessage(ctx, 5, domain.MessageBody{Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, domain.MessageRef{ChannelID: 5, MessageID: 1}, sent.Ref)
	assert.Equal(t, int64(5), sent.ServerID)

	cfg, ok := api.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, tgbotapi.ModeHTML, cfg.ParseMode)
	assert.Equal(t, "hello", cfg.Text)
	assert.True(t, cfg.DisableWebPagePreview)

	_, err = b.SendMessage(ctx, 5, domain.MessageBody{})
	assert.ErrorIs(t, err, errEmptyMessage)

	require.NoError(t, b.EditMessage(ctx, sent.Ref, domain.MessageBody{Content: "edited"}))
	edit, ok := api.lastRequest().(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	assert.Equal(t, "edited", edit.Text)
	assert.Equal(t, 1, edit.MessageID)

	require.NoError(t, b.DeleteMessage(ctx, sent.Ref))
	del, ok := api.lastRequest().(tgbotapi.DeleteMessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(5), del.ChatID)
}

func TestCollectNextMessage(t *testing.T) {
	b := newBot(&fakeAPI{}, selfID)

	got := make(chan *domain.Message, 1)
	go func() {
		msg, err := b.CollectNextMessage(context.Background(), 5, func(m *domain.Message) bool {
			return m.Author.ID == 7
		}, time.Second)
		assert.NoError(t, err)
		got <- msg
	}()

	require.Eventually(t, func() bool {
		b.collectMu.Lock()
		defer b.collectMu.Unlock()
		return len(b.collectors[5]) == 1
	}, time.Second, 5*time.Millisecond)

	assert.False(t, b.deliver(&domain.Message{ChannelID: 5, Author: domain.Author{ID: 8}}))
	assert.False(t, b.deliver(&domain.Message{ChannelID: 6, Author: domain.Author{ID: 7}}))
	assert.True(t, b.deliver(&domain.Message{ID: 42, ChannelID: 5, Author: domain.Author{ID: 7}}))

	msg := <-got
	require.NotNil(t, msg)
	assert.Equal(t, int64(42), msg.ID)

	b.collectMu.Lock()
	assert.Empty(t, b.collectors)
	b.collectMu.Unlock()
}

func TestCollectNextMessageTimeout(t *testing.T) {
	b := newBot(&fakeAPI{}, selfID)

	msg, err := b.CollectNextMessage(context.Background(), 5, nil, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, msg)
	assert.False(t, b.deliver(&domain.Message{ChannelID: 5}))
}

func TestCollectNextMessageKeepsLateDelivery(t *testing.T) {
	b := newBot(&fakeAPI{}, selfID)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ожидание снимается, пока deliver держит сообщение
	filter := func(*domain.Message) bool {
		cancel()
		time.Sleep(20 * time.Millisecond)
		return true
	}

	type result struct {
		msg *domain.Message
		err error
	}
	got := make(chan result, 1)
	go func() {
		msg, err := b.CollectNextMessage(ctx, 5, filter, time.Minute)
		got <- result{msg, err}
	}()

	require.Eventually(t, func() bool {
		b.collectMu.Lock()
		defer b.collectMu.Unlock()
		return len(b.collectors[5]) == 1
	}, time.Second, 5*time.Millisecond)

	require.True(t, b.deliver(&domain.Message{ID: 42, ChannelID: 5}))

	r := <-got
	require.NoError(t, r.err)
	require.NotNil(t, r.msg, "delivered message must not be lost")
	assert.Equal(t, int64(42), r.msg.ID)
}

func TestTargetUser(t *testing.T) {
	reply := &tgbotapi.Message{
		From:           &tgbotapi.User{ID: 1},
		ReplyToMessage: &tgbotapi.Message{From: &tgbotapi.User{ID: 7}},
	}
	assert.Equal(t, int64(7), targetUser(reply))

	toBot := &tgbotapi.Message{ReplyToMessage: &tgbotapi.Message{From: &tgbotapi.User{ID: selfID, IsBot: true}}}
	assert.Zero(t, targetUser(toBot))

	mention := &tgbotapi.Message{
		Text: "/give_money Ana 5",
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: 11},
			{Type: "text_mention", Offset: 12, Length: 3, User: &tgbotapi.User{ID: 8}},
		},
	}
	assert.Equal(t, int64(8), targetUser(mention))
	assert.Zero(t, targetUser(&tgbotapi.Message{Text: "/give_money 5"}))
}

func TestMember(t *testing.T) {
	api := &fakeAPI{member: tgbotapi.ChatMember{
		User:   &tgbotapi.User{ID: 7, FirstName: "Ana"},
		Status: "administrator",
	}}
	b := newBot(api, selfID)
	ctx := context.Background()

	m, err := b.Member(ctx, -100, 7)
	require.NoError(t, err)
	assert.True(t, m.IsAdmin)
	assert.False(t, m.IsOwner)
	assert.Equal(t, "Ana", m.Nickname)

	api.member = tgbotapi.ChatMember{User: &tgbotapi.User{ID: selfID}, Status: "creator", CustomTitle: "Ana | 🔥 2"}
	m, err = b.Member(ctx, -100, selfID)
	require.NoError(t, err)
	assert.True(t, m.IsOwner)
	assert.True(t, m.IsSelf)
	assert.Equal(t, "Ana | 🔥 2", m.Nickname)

	api.member = tgbotapi.ChatMember{User: &tgbotapi.User{ID: 7}, Status: "left"}
	m, err = b.Member(ctx, -100, 7)
	require.NoError(t, err)
	assert.Nil(t, m)

	// личный чат
	m, err = b.Member(ctx, 7, 7)
	require.NoError(t, err)
	assert.True(t, m.IsOwner)
}

func TestCommandSurface(t *testing.T) {
	api := &fakeAPI{}
	b := newBot(api, selfID)
	ctx := context.Background()
	base := len(baseCommands())

	money := []plugin.Command{{Name: "add_money", Description: "add"}, {Name: "give_money", Description: "give"}}
	dice := []plugin.Command{{Name: "roll", Description: "roll"}}

	require.NoError(t, b.RegisterCommands(ctx, -100, money))
	require.NoError(t, b.RegisterCommands(ctx, -100, dice))
	require.NoError(t, b.RegisterCommands(ctx, -100, dice))

	cfg, ok := api.lastRequest().(tgbotapi.SetMyCommandsConfig)
	require.True(t, ok)
	assert.Len(t, cfg.Commands, base+3)

	require.NoError(t, b.UnregisterCommands(ctx, -100, money))
	cfg = api.lastRequest().(tgbotapi.SetMyCommandsConfig)
	require.Len(t, cfg.Commands, base+1)
	assert.Equal(t, "roll", cfg.Commands[base].Command)

	// другой чат не затронут
	require.NoError(t, b.RegisterCommands(ctx, -200, nil))
	cfg = api.lastRequest().(tgbotapi.SetMyCommandsConfig)
	assert.Len(t, cfg.Commands, base)
}

func TestParseHelpers(t *testing.T) {
	name, url := parseCreateArgs("  Aria Stone | https://img.example/a.png ")
	assert.Equal(t, "Aria Stone", name)
	assert.Equal(t, "https://img.example/a.png", url)

	name, url = parseCreateArgs("Bram")
	assert.Equal(t, "Bram", name)
	assert.Empty(t, url)

	id, ok := parseID([]string{"#12"})
	assert.True(t, ok)
	assert.Equal(t, int64(12), id)

	_, ok = parseID([]string{"x"})
	assert.False(t, ok)
	_, ok = parseID(nil)
	assert.False(t, ok)

	id, key, value, ok := parseSetArgs("#3 backstory = Born at sea, raised by wolves")
	require.True(t, ok)
	assert.Equal(t, int64(3), id)
	assert.Equal(t, "backstory ", key)
	assert.Equal(t, " Born at sea, raised by wolves", value)

	_, _, _, ok = parseSetArgs("3 backstory")
	assert.False(t, ok)
	_, _, _, ok = parseSetArgs("x title=Sir")
	assert.False(t, ok)
}

func TestFormatTop(t *testing.T) {
	top := []*domain.Character{{Name: "Aria", Level: 12, Exp: 3}, {Name: "Bram", Level: 2, Exp: 1}}
	assert.Equal(t, "🏆 Top characters\n1. Aria ⬆️ 12 💡 3\n2. Bram ⬆️ 2 💡 1", formatTop(domain.LanguageEnglish, top))
}

func TestSetAndUnsetCommands(t *testing.T) {
	b, api, characters := newCommandBot(t)
	ctx := context.Background()
	aria, err := characters.Create(ctx, 7, "Aria", "")
	require.NoError(t, err)
	id := strconv.FormatInt(aria.ID, 10)

	b.handleCommand(ctx, command("/set "+id+" backstory=Born at sea."))
	assert.Equal(t, "Character Aria updated.", api.lastText())

	b.handleCommand(ctx, command("/set "+id+" wings=yes"))
	assert.Contains(t, api.lastText(), "title, color, age")

	b.handleCommand(ctx, command("/set "+id+" color=blue"))
	assert.Contains(t, api.lastText(), "Usage: /set")

	// карточка и следом длинные поля
	sent := len(api.sent)
	b.handleCommand(ctx, command("/profile"))
	require.Len(t, api.sent, sent+2)
	assert.Contains(t, api.lastText(), "<b>Backstory</b>\nBorn at sea.")

	b.handleCommand(ctx, command("/unset"))
	assert.Equal(t, "You stopped playing Aria.", api.lastText())
	b.handleCommand(ctx, command("/unset"))
	assert.Equal(t, "You are not playing any character.", api.lastText())

	current, _, err := characters.Current(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestProfileWithoutLongFieldsSendsOneMessage(t *testing.T) {
	b, api, characters := newCommandBot(t)
	ctx := context.Background()
	_, err := characters.Create(ctx, 7, "Aria", "")
	require.NoError(t, err)

	b.handleCommand(ctx, command("/profile"))
	assert.Len(t, api.sent, 1)
}
