package bot

import (
	"html"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"roleplay_bot/internal/domain"
)

const maxMessageRunes = 4096

// RenderHTML превращает тело сообщения в HTML для parse_mode=HTML.
// Картинка карточки идет невидимой ссылкой в начале, Telegram покажет превью.
func RenderHTML(body domain.MessageBody) string {
	var sb strings.Builder

	if img := previewImage(body); img != "" {
		sb.WriteString(`<a href="`)
		sb.WriteString(html.EscapeString(img))
		sb.WriteString(`">&#8203;</a>`)
	}

	var parts []string
	if c := strings.TrimSpace(body.Content); c != "" {
		parts = append(parts, html.EscapeString(c))
	}
	for _, e := range body.Embeds {
		if s := renderEmbed(e); s != "" {
			parts = append(parts, s)
		}
	}
	sb.WriteString(strings.Join(parts, "\n\n"))

	return truncateRunes(sb.String(), maxMessageRunes)
}

func previewImage(body domain.MessageBody) string {
	for _, e := range body.Embeds {
		if e.ImageURL != "" {
			return e.ImageURL
		}
	}
	for _, e := range body.Embeds {
		if e.ThumbnailURL != "" {
			return e.ThumbnailURL
		}
	}
	return ""
}

func renderEmbed(e domain.Embed) string {
	var lines []string
	if e.AuthorName != "" {
		lines = append(lines, "<b>"+html.EscapeString(e.AuthorName)+"</b>")
	}
	if e.Title != "" {
		lines = append(lines, "<b>"+html.EscapeString(e.Title)+"</b>")
	}
	if e.Description != "" {
		lines = append(lines, html.EscapeString(e.Description))
	}

	for _, f := range e.Fields {
		name := "<b>" + html.EscapeString(f.Name) + "</b>"
		if f.Inline {
			lines = append(lines, name+": "+html.EscapeString(f.Value))
		} else {
			lines = append(lines, name+"\n"+html.EscapeString(f.Value))
		}
	}

	if e.Footer != "" {
		lines = append(lines, "<i>"+html.EscapeString(e.Footer)+"</i>")
	}
	return strings.Join(lines, "\n")
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit-1]) + "…"
}

// toDomainMessage переводит сообщение Telegram; группа служит и сервером, и каналом
func toDomainMessage(m *tgbotapi.Message) *domain.Message {
	content := m.Text
	entities := m.Entities
	if content == "" {
		content = m.Caption
		entities = m.CaptionEntities
	}

	msg := &domain.Message{
		ID:        int64(m.MessageID),
		ChannelID: m.Chat.ID,
		ServerID:  m.Chat.ID,
		Content:   content,
		Mentions:  mentions(content, entities),
		CreatedAt: m.Time(),
	}
	if m.From != nil {
		msg.Author = domain.Author{
			ID:          m.From.ID,
			Username:    m.From.UserName,
			DisplayName: strings.TrimSpace(m.From.FirstName + " " + m.From.LastName),
			IsBot:       m.From.IsBot,
		}
	}
	if m.ReplyToMessage != nil {
		msg.ReplyToID = int64(m.ReplyToMessage.MessageID)
	}
	return msg
}

// mentions вырезает @упоминания; смещения сущностей считаются в UTF-16
func mentions(text string, entities []tgbotapi.MessageEntity) []string {
	if len(entities) == 0 {
		return nil
	}
	units := utf16.Encode([]rune(text))

	var out []string
	for _, e := range entities {
		if e.Type != "mention" {
			continue
		}
		if e.Offset < 0 || e.Length <= 0 || e.Offset+e.Length > len(units) {
			continue
		}
		out = append(out, string(utf16.Decode(units[e.Offset:e.Offset+e.Length])))
	}
	return out
}
