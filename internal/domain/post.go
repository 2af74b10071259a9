package domain

import "time"

// запись об отправленном посте персонажа
type Post struct {
	MessageID    int64     `db:"message_id" json:"message_id"`
	ChannelID    int64     `db:"channel_id" json:"channel_id"`
	ServerID     int64     `db:"server_id" json:"server_id"`
	AuthorID     int64     `db:"author_id" json:"author_id"`
	Content      string    `db:"content" json:"content"`
	CharacterIDs []int64   `db:"-" json:"character_ids"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
