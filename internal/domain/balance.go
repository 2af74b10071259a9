package domain

// баланс персонажа на конкретном сервере, никогда не отрицательный
type ServerCharacterBalance struct {
	CharacterID int64 `db:"character_id" json:"character_id"`
	ServerID    int64 `db:"server_id" json:"server_id"`
	Money       int64 `db:"money" json:"money"`
}

// результат перевода между персонажами
type Transfer struct {
	FromCharacterID int64 `json:"from_character_id"`
	ToCharacterID   int64 `json:"to_character_id"`
	ServerID        int64 `json:"server_id"`
	Amount          int64 `json:"amount"`
	FromBalance     int64 `json:"from_balance"`
	ToBalance       int64 `json:"to_balance"`
}
