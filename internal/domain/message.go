package domain

import (
	"sync"
	"time"
)

// входящее сообщение из чата
type Message struct {
	ID          int64     `json:"id"`
	ChannelID   int64     `json:"channel_id"`
	ServerID    int64     `json:"server_id"`
	Author      Author    `json:"author"`
	Content     string    `json:"content"`
	Mentions    []string  `json:"mentions,omitempty"`    // как они записаны в тексте, например "@nick"
	Attachments []string  `json:"attachments,omitempty"` // url вложений
	ReplyToID   int64     `json:"reply_to_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Author struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	IsBot       bool   `json:"is_bot"`
}

type MessageRef struct {
	ChannelID int64 `json:"channel_id"`
	MessageID int64 `json:"message_id"`
}

// отправленное ботом сообщение
type SentMessage struct {
	Ref      MessageRef  `json:"ref"`
	ServerID int64       `json:"server_id"`
	Body     MessageBody `json:"body"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type Embed struct {
	Title        string       `json:"title,omitempty"`
	Description  string       `json:"description,omitempty"`
	Color        int          `json:"color,omitempty"`
	AuthorName   string       `json:"author_name,omitempty"`
	AuthorIcon   string       `json:"author_icon,omitempty"`
	Footer       string       `json:"footer,omitempty"`
	ThumbnailURL string       `json:"thumbnail_url,omitempty"`
	ImageURL     string       `json:"image_url,omitempty"`
	Fields       []EmbedField `json:"fields,omitempty"`
}

// то, что уходит в чат: текст, карточки и файлы
type MessageBody struct {
	Content string   `json:"content,omitempty"`
	Embeds  []Embed  `json:"embeds,omitempty"`
	Files   []string `json:"files,omitempty"`
}

// Clone глубокая копия
func (b MessageBody) Clone() MessageBody {
	out := MessageBody{Content: b.Content}
	if b.Embeds != nil {
		out.Embeds = make([]Embed, len(b.Embeds))
		for i, e := range b.Embeds {
			out.Embeds[i] = e
			if e.Fields != nil {
				out.Embeds[i].Fields = append([]EmbedField(nil), e.Fields...)
			}
		}
	}
	if b.Files != nil {
		out.Files = append([]string(nil), b.Files...)
	}
	return out
}

// Payload изменяемое тело сообщения, которое хуки правят параллельно.
// Все изменения идут через Edit под мьютексом.
type Payload struct {
	mu   sync.Mutex
	body MessageBody
}

func NewPayload(body MessageBody) *Payload {
	return &Payload{body: body.Clone()}
}

// Edit применяет fn к телу под блокировкой
func (p *Payload) Edit(fn func(b *MessageBody)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.body)
}

// Replace полностью заменяет тело
func (p *Payload) Replace(body MessageBody) {
	p.Edit(func(b *MessageBody) { *b = body.Clone() })
}

// Snapshot возвращает копию текущего тела
func (p *Payload) Snapshot() MessageBody {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.body.Clone()
}
