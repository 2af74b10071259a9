package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"roleplay_bot/internal/domain"
	"roleplay_bot/internal/i18n"
	"roleplay_bot/internal/logger"
	"roleplay_bot/internal/plugin"
	"roleplay_bot/internal/service"
)

// команды ядра, всегда в меню
func baseCommands() []tgbotapi.BotCommand {
	return []tgbotapi.BotCommand{
		{Command: "help", Description: "How to use the bot"},
		{Command: "create", Description: "Create a character"},
		{Command: "choose", Description: "Play as a character"},
		{Command: "characters", Description: "Your characters"},
		{Command: "profile", Description: "Character profile"},
		{Command: "delete", Description: "Delete a character"},
		{Command: "set", Description: "Edit a character profile"},
		{Command: "unset", Description: "Stop playing your current character"},
		{Command: "top", Description: "Top characters"},
		{Command: "plugins", Description: "Plugins on this chat"},
		{Command: "toggleplugin", Description: "Enable or disable a plugin"},
		{Command: "language", Description: "Bot language"},
		{Command: "edit", Description: "Edit your post (reply to it)"},
	}
}

func (b *Bot) handleCommand(ctx context.Context, m *tgbotapi.Message) {
	chatID := m.Chat.ID
	userID := m.From.ID
	args := strings.Fields(m.CommandArguments())

	ctx = logger.ContextWith(ctx, "chat_id", chatID, "user_id", userID, "command", m.Command())
	log := logger.FromContext(ctx, b.log)
	log.Debug("command received")

	lang := b.language(ctx, userID)

	var (
		text string
		err  error
	)
	switch m.Command() {
	case "start", "help":
		text = i18n.T(lang, i18n.Help)
	case "create":
		text, err = b.cmdCreate(ctx, userID, lang, m.CommandArguments())
	case "choose":
		text, err = b.cmdChoose(ctx, userID, lang, args)
	case "characters":
		text, err = b.cmdCharacters(ctx, userID, lang)
	case "profile":
		text, err = b.cmdProfile(ctx, m, lang, args)
	case "delete":
		text, err = b.cmdDelete(ctx, userID, lang, args)
	case "set":
		text, err = b.cmdSet(ctx, userID, lang, m.CommandArguments())
	case "unset":
		text, err = b.cmdUnset(ctx, userID, lang)
	case "top":
		text, err = b.cmdTop(ctx, lang)
	case "plugins":
		text, err = b.cmdPlugins(ctx, chatID, lang)
	case "toggleplugin":
		text, err = b.cmdTogglePlugin(ctx, chatID, userID, lang, args)
	case "language":
		text, err = b.cmdLanguage(ctx, userID, args)
	case "edit":
		text, err = b.cmdEdit(ctx, m, lang)
	default:
		text, err = b.cmdPlugin(ctx, m, lang, args)
	}

	if err != nil {
		log.Error("command failed", "error", err)
		text = i18n.T(lang, i18n.InternalError)
	}
	if text != "" {
		b.reply(chatID, m.MessageID, text)
	}
}

func (b *Bot) reply(chatID int64, replyTo int, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyTo
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("failed to send reply", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) language(ctx context.Context, userID int64) string {
	user, err := b.h.Characters.User(ctx, userID)
	if err != nil {
		b.log.Warn("failed to load user language", "user_id", userID, "error", err)
		return i18n.Normalize("")
	}
	return user.PreferredLanguage
}

func parseID(args []string) (int64, bool) {
	if len(args) == 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	return id, err == nil && id > 0
}

// parseCreateArgs разбирает "Имя | ссылка"
func parseCreateArgs(raw string) (name, imageURL string) {
	name, imageURL, _ = strings.Cut(raw, "|")
	return strings.TrimSpace(name), strings.TrimSpace(imageURL)
}

func characterError(lang string, err error) (string, error) {
	switch {
	case errors.Is(err, service.ErrInvalidCharacterName), errors.Is(err, service.ErrInvalidImageURL):
		return i18n.T(lang, i18n.CharacterUsage), nil
	case errors.Is(err, service.ErrCharacterNotFound), errors.Is(err, service.ErrNotOwner):
		return i18n.T(lang, i18n.CharacterNotFound), nil
	case errors.Is(err, service.ErrInvalidProfileField):
		return profileUsage(lang), nil
	}
	return "", err
}

func profileUsage(lang string) string {
	return i18n.T(lang, i18n.ProfileUsage, strings.Join(service.ProfileFieldNames, ", "))
}

// parseSetArgs разбирает "id поле=значение", значение может содержать пробелы
func parseSetArgs(raw string) (id int64, key, value string, ok bool) {
	head, rest, _ := strings.Cut(strings.TrimSpace(raw), " ")
	id, ok = parseID([]string{head})
	if !ok {
		return 0, "", "", false
	}
	key, value, ok = strings.Cut(strings.TrimSpace(rest), "=")
	if !ok || strings.TrimSpace(key) == "" {
		return 0, "", "", false
	}
	return id, key, value, true
}

func (b *Bot) cmdCreate(ctx context.Context, userID int64, lang, raw string) (string, error) {
	name, imageURL := parseCreateArgs(raw)
	c, err := b.h.Characters.Create(ctx, userID, name, imageURL)
	if err != nil {
		return characterError(lang, err)
	}
	return i18n.T(lang, i18n.CharacterCreated, c.Name, c.ID), nil
}

func (b *Bot) cmdChoose(ctx context.Context, userID int64, lang string, args []string) (string, error) {
	id, ok := parseID(args)
	if !ok {
		return i18n.T(lang, i18n.CharacterNotFound), nil
	}
	c, err := b.h.Characters.ChooseCurrent(ctx, userID, id)
	if err != nil {
		return characterError(lang, err)
	}
	return i18n.T(lang, i18n.CharacterChosen, c.Name), nil
}

func (b *Bot) cmdDelete(ctx context.Context, userID int64, lang string, args []string) (string, error) {
	id, ok := parseID(args)
	if !ok {
		return i18n.T(lang, i18n.CharacterNotFound), nil
	}
	c, err := b.h.Characters.Delete(ctx, userID, id)
	if err != nil {
		return characterError(lang, err)
	}
	return i18n.T(lang, i18n.CharacterDeleted, c.Name), nil
}

func (b *Bot) cmdSet(ctx context.Context, userID int64, lang, raw string) (string, error) {
	id, key, value, ok := parseSetArgs(raw)
	if !ok {
		return profileUsage(lang), nil
	}
	p, err := service.ParseProfileField(key, value)
	if err != nil {
		return profileUsage(lang), nil
	}
	c, err := b.h.Characters.UpdateProfile(ctx, userID, id, p)
	if err != nil {
		return characterError(lang, err)
	}
	return i18n.T(lang, i18n.CharacterUpdated, c.Name), nil
}

func (b *Bot) cmdUnset(ctx context.Context, userID int64, lang string) (string, error) {
	c, err := b.h.Characters.ClearCurrent(ctx, userID)
	if err != nil {
		return "", err
	}
	if c == nil {
		return i18n.T(lang, i18n.NoCurrent), nil
	}
	return i18n.T(lang, i18n.CurrentCleared, c.Name), nil
}

func (b *Bot) cmdCharacters(ctx context.Context, userID int64, lang string) (string, error) {
	chars, err := b.h.Characters.ListByOwner(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(chars) == 0 {
		return i18n.T(lang, i18n.CharacterUsage), nil
	}
	_, user, err := b.h.Characters.Current(ctx, userID)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(i18n.T(lang, i18n.CharacterList))
	for _, c := range chars {
		mark := "  "
		if user != nil && user.CurrentCharacterID != nil && *user.CurrentCharacterID == c.ID {
			mark = "▶ "
		}
		fmt.Fprintf(&sb, "\n%s#%d %s ⬆️ %d", mark, c.ID, c.Name, c.Level)
	}
	return sb.String(), nil
}

func (b *Bot) cmdProfile(ctx context.Context, m *tgbotapi.Message, lang string, args []string) (string, error) {
	id, ok := parseID(args)
	if !ok {
		c, _, err := b.h.Characters.Current(ctx, m.From.ID)
		if err != nil {
			return "", err
		}
		if c == nil {
			return i18n.T(lang, i18n.CharacterNotFound), nil
		}
		id = c.ID
	}

	chatID := m.Chat.ID
	body, err := b.h.Profiles.ShowProfile(ctx, service.ProfileRequest{
		CharacterID: id,
		ViewerID:    m.From.ID,
		ServerID:    chatID,
		Send: func(ctx context.Context, body domain.MessageBody) (*domain.SentMessage, error) {
			return b.SendMessage(ctx, chatID, body)
		},
		// длинные поля анкеты следом за карточкой
		WhenSent: func(ctx context.Context, _ *domain.SentMessage) error {
			c, err := b.h.Characters.Get(ctx, id)
			if err != nil || c == nil {
				return err
			}
			details, ok := service.BuildProfileDetails(c, lang)
			if !ok {
				return nil
			}
			_, err = b.SendMessage(ctx, chatID, details)
			return err
		},
	})
	if err != nil {
		return "", err
	}
	if body == nil {
		return i18n.T(lang, i18n.CharacterNotFound), nil
	}
	return "", nil
}

func (b *Bot) cmdTop(ctx context.Context, lang string) (string, error) {
	top, err := b.h.Characters.Top(ctx, service.TopLimit)
	if err != nil {
		return "", err
	}
	if len(top) == 0 {
		return i18n.T(lang, i18n.TopEmpty), nil
	}
	return formatTop(lang, top), nil
}

func formatTop(lang string, top []*domain.Character) string {
	var sb strings.Builder
	sb.WriteString(i18n.T(lang, i18n.TopTitle))
	for i, c := range top {
		fmt.Fprintf(&sb, "\n%d. %s ⬆️ %d 💡 %d", i+1, c.Name, c.Level, c.Exp)
	}
	return sb.String()
}

func (b *Bot) cmdPlugins(ctx context.Context, chatID int64, lang string) (string, error) {
	list, err := b.h.Servers.Plugins(ctx, chatID)
	if err != nil {
		return "", err
	}
	return formatPlugins(lang, list), nil
}

func formatPlugins(lang string, list []service.PluginStatus) string {
	var sb strings.Builder
	sb.WriteString(i18n.T(lang, i18n.PluginList))
	for _, p := range list {
		mark := "❌"
		if p.Enabled {
			mark = "✅"
		}
		fmt.Fprintf(&sb, "\n%s %s: %s", mark, p.Name, p.Description)
	}
	return sb.String()
}

func (b *Bot) cmdTogglePlugin(ctx context.Context, chatID, userID int64, lang string, args []string) (string, error) {
	// без аргумента показываем список, чтобы было из чего выбрать
	if len(args) == 0 {
		return b.cmdPlugins(ctx, chatID, lang)
	}
	name := strings.ToLower(args[0])

	enabled, err := b.h.Servers.TogglePlugin(ctx, chatID, userID, name)
	switch {
	case errors.Is(err, service.ErrNotServerAdmin):
		return i18n.T(lang, i18n.NoPermission), nil
	case errors.Is(err, plugin.ErrUnknownPlugin):
		return i18n.T(lang, i18n.PluginUnknown, name), nil
	case err != nil:
		return "", err
	}

	if enabled {
		return i18n.T(lang, i18n.PluginEnabled, name), nil
	}
	return i18n.T(lang, i18n.PluginDisabled, name), nil
}

func (b *Bot) cmdLanguage(ctx context.Context, userID int64, args []string) (string, error) {
	if len(args) == 0 {
		return i18n.T(b.language(ctx, userID), i18n.LanguageUnknown), nil
	}
	lang, err := b.h.Characters.SetLanguage(ctx, userID, args[0])
	if errors.Is(err, service.ErrUnsupportedLanguage) {
		return i18n.T(b.language(ctx, userID), i18n.LanguageUnknown), nil
	}
	if err != nil {
		return "", err
	}
	return i18n.T(lang, i18n.LanguageChanged, lang), nil
}

// cmdEdit блокируется до ответа автора или таймаута
func (b *Bot) cmdEdit(ctx context.Context, m *tgbotapi.Message, lang string) (string, error) {
	if m.ReplyToMessage == nil {
		return i18n.T(lang, i18n.EditNotAllowed), nil
	}

	// сама команда в чате не нужна
	if err := b.DeleteMessage(ctx, domain.MessageRef{ChannelID: m.Chat.ID, MessageID: int64(m.MessageID)}); err != nil {
		b.log.Debug("failed to delete edit command", "error", err)
	}

	post, err := b.h.Editor.EditPost(ctx, service.EditRequest{
		UserID:        m.From.ID,
		ServerID:      m.Chat.ID,
		ChannelID:     m.Chat.ID,
		PostMessageID: int64(m.ReplyToMessage.MessageID),
		Language:      lang,
	})
	switch {
	case errors.Is(err, service.ErrPostNotFound), errors.Is(err, service.ErrNotPostAuthor):
		return i18n.T(lang, i18n.EditNotAllowed), nil
	case errors.Is(err, service.ErrAlreadyEditing):
		return i18n.T(lang, i18n.AlreadyEditing), nil
	case err != nil:
		return "", err
	}
	if post == nil {
		return "", nil
	}
	return i18n.T(lang, i18n.EditDone), nil
}

// cmdPlugin команда одного из включенных плагинов
func (b *Bot) cmdPlugin(ctx context.Context, m *tgbotapi.Message, lang string, args []string) (string, error) {
	cmd, p, err := b.h.Registry.Command(ctx, m.Chat.ID, m.Command())
	if err != nil {
		return "", err
	}
	if cmd == nil {
		return i18n.T(lang, i18n.UnknownCommand), nil
	}

	isAdmin, err := b.h.Servers.IsAdmin(ctx, m.Chat.ID, m.From.ID)
	if err != nil {
		b.log.Warn("failed to check admin rights", "chat_id", m.Chat.ID, "user_id", m.From.ID, "error", err)
	}

	inv := &plugin.Invocation{
		ServerID:  m.Chat.ID,
		ChannelID: m.Chat.ID,
		UserID:    m.From.ID,
		UserName:  userName(m.From),
		Language:  lang,
		Args:      args,
		IsAdmin:   isAdmin,
	}
	inv.TargetUserID = targetUser(m)

	out, err := cmd.Run(ctx, inv)
	if err != nil {
		return "", fmt.Errorf("plugin %s command %s: %w", p.Name(), cmd.Name, err)
	}
	return out, nil
}

// targetUser адресат команды: автор сообщения, на которое ответили,
// иначе первый text_mention в тексте команды
func targetUser(m *tgbotapi.Message) int64 {
	if r := m.ReplyToMessage; r != nil && r.From != nil && !r.From.IsBot {
		return r.From.ID
	}
	for _, e := range m.Entities {
		if e.Type == "text_mention" && e.User != nil && !e.User.IsBot {
			return e.User.ID
		}
	}
	return 0
}

func userName(u *tgbotapi.User) string {
	if u.FirstName != "" {
		return strings.TrimSpace(u.FirstName + " " + u.LastName)
	}
	return u.UserName
}
