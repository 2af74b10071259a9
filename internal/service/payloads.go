package service

import (
	"fmt"
	"math/rand/v2"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"roleplay_bot/internal/domain"
	"roleplay_bot/internal/game"
	"roleplay_bot/internal/i18n"
)

var (
	// строки вне персонажа: /команда, \заметка, (ooc)
	outOfCharacterRe = regexp.MustCompile(`(?m)^(/|\\|\(|\))`)
	embedColorRe     = regexp.MustCompile(`^#?[0-9a-fA-F]{6}$`)
)

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
}

// IsOutOfCharacter сообщение не должно становиться постом
func IsOutOfCharacter(content string) bool {
	return outOfCharacterRe.MatchString(content)
}

func IsAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func isImageURL(raw string) bool {
	if !IsAbsoluteURL(raw) {
		return false
	}
	u, _ := url.Parse(raw)
	return imageExtensions[strings.ToLower(path.Ext(u.Path))]
}

// EmbedColor цвет персонажа или случайный, если не задан
func EmbedColor(c *domain.Character) int {
	if embedColorRe.MatchString(c.EmbedColor) {
		v, err := strconv.ParseInt(strings.TrimPrefix(c.EmbedColor, "#"), 16, 32)
		if err == nil {
			return int(v)
		}
	}
	return rand.IntN(0x1000000)
}

// stripMentions выносит упоминания из текста поста
func stripMentions(content string, mentions []string) (string, string) {
	if len(mentions) == 0 {
		return strings.TrimSpace(content), ""
	}
	for _, m := range mentions {
		content = strings.ReplaceAll(content, m, "")
	}
	return strings.TrimSpace(content), strings.Join(mentions, " ")
}

func authorName(c *domain.Character, a domain.Author) string {
	if c.Title != "" {
		return c.Title
	}
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.Username
}

// BuildPostBody карточка поста от лица персонажа
func BuildPostBody(c *domain.Character, msg *domain.Message, lang string) domain.MessageBody {
	description, mentions := stripMentions(msg.Content, msg.Mentions)

	embed := domain.Embed{
		Title:        c.Name,
		Description:  description,
		Color:        EmbedColor(c),
		AuthorName:   authorName(c, msg.Author),
		AuthorIcon:   msg.Author.AvatarURL,
		ThumbnailURL: c.ImageURL,
		Footer:       fmt.Sprintf("⬆️ %s %d | 💡 %d XP", i18n.T(lang, i18n.FieldLevel), c.Level, c.Exp),
	}
	for _, a := range msg.Attachments {
		if isImageURL(a) {
			embed.ImageURL = a
			break
		}
	}

	return domain.MessageBody{
		Content: mentions,
		Embeds:  []domain.Embed{embed},
	}
}

func orNotDefined(lang, v string) string {
	if strings.TrimSpace(v) == "" {
		return i18n.T(lang, i18n.NotDefined)
	}
	return v
}

func formatDate(lang string, t *time.Time) string {
	if t == nil || t.IsZero() {
		return i18n.T(lang, i18n.NotDefined)
	}
	if i18n.Normalize(lang) == domain.LanguagePortuguese {
		return t.Format("02/01/2006")
	}
	return t.Format("01/02/2006")
}

// LevelingBar строка вида 🟩🟩⬛⬛⬛⬛⬛⬛⬛⬛ 20% 3/100
func LevelingBar(level, exp int) string {
	return fmt.Sprintf("%s %d%% %d/%d", game.ProgressBar(level, exp), game.Progress(level, exp), level, game.MaxLevel)
}

// BuildProfileBody карточка профиля с короткими полями
func BuildProfileBody(c *domain.Character, lang string) domain.MessageBody {
	age := ""
	if c.Age != nil {
		age = strconv.Itoa(*c.Age)
	}
	created := c.CreatedAt

	field := func(key, value string) domain.EmbedField {
		return domain.EmbedField{Name: i18n.T(lang, key), Value: value, Inline: true}
	}

	embed := domain.Embed{
		Title:        c.Name,
		Color:        EmbedColor(c),
		ThumbnailURL: c.ImageURL,
		Fields: []domain.EmbedField{
			field(i18n.FieldName, c.Name),
			field(i18n.FieldAge, orNotDefined(lang, age)),
			field(i18n.FieldRace, orNotDefined(lang, c.Race)),
			field(i18n.FieldGender, orNotDefined(lang, c.Gender)),
			field(i18n.FieldPronouns, orNotDefined(lang, c.Pronouns)),
			field(i18n.FieldTitle, orNotDefined(lang, c.Title)),
			field(i18n.FieldCreatedAt, formatDate(lang, &created)),
			field(i18n.FieldLastPostAt, formatDate(lang, c.LastPostAt)),
			field(i18n.FieldLevel, strconv.Itoa(c.Level)),
			field(i18n.FieldExp, fmt.Sprintf("%d/%d", c.Exp, game.RequiredExp(c.Level))),
			{Name: i18n.T(lang, i18n.FieldLeveling), Value: LevelingBar(c.Level, c.Exp)},
		},
	}

	return domain.MessageBody{Embeds: []domain.Embed{embed}}
}

// BuildProfileDetails длинные поля анкеты отдельным сообщением; false, если их нет
func BuildProfileDetails(c *domain.Character, lang string) (domain.MessageBody, bool) {
	embed := domain.Embed{Title: c.Name, Color: EmbedColor(c)}
	for _, f := range []struct{ key, value string }{
		{i18n.FieldAppearance, c.Appearance},
		{i18n.FieldBackstory, c.Backstory},
		{i18n.FieldPersonality, c.Personality},
	} {
		if strings.TrimSpace(f.value) == "" {
			continue
		}
		embed.Fields = append(embed.Fields, domain.EmbedField{Name: i18n.T(lang, f.key), Value: f.value})
	}
	if len(embed.Fields) == 0 {
		return domain.MessageBody{}, false
	}
	return domain.MessageBody{Embeds: []domain.Embed{embed}}, true
}
