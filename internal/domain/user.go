package domain

import "time"

type User struct {
	ID                 int64     `db:"id" json:"id"` // id пользователя в мессенджере
	PreferredLanguage  string    `db:"preferred_language" json:"preferred_language"`
	CurrentCharacterID *int64    `db:"current_character_id" json:"current_character_id,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// Языки интерфейса
const (
	LanguageEnglish    = "en-US"
	LanguagePortuguese = "pt-BR"
)
