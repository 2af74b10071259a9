package domain

import "time"

// ролевой персонаж пользователя
type Character struct {
	ID            int64      `db:"id" json:"id"`
	OwnerID       int64      `db:"owner_id" json:"owner_id"`
	Name          string     `db:"name" json:"name"`
	ImageURL      string     `db:"image_url" json:"image_url"`
	Level         int        `db:"level" json:"level"`
	Exp           int        `db:"exp" json:"exp"`
	LastExpGainAt *time.Time `db:"last_exp_gain_at" json:"last_exp_gain_at,omitempty"`
	Age           *int       `db:"age" json:"age,omitempty"`
	Race          string     `db:"race" json:"race,omitempty"`
	Gender        string     `db:"gender" json:"gender,omitempty"`
	Pronouns      string     `db:"pronouns" json:"pronouns,omitempty"`
	Title         string     `db:"title" json:"title,omitempty"`
	EmbedColor    string     `db:"embed_color" json:"embed_color,omitempty"` // #RRGGBB
	Appearance    string     `db:"appearance" json:"appearance,omitempty"`
	Backstory     string     `db:"backstory" json:"backstory,omitempty"`
	Personality   string     `db:"personality" json:"personality,omitempty"`
	LastPostAt    *time.Time `db:"last_post_at" json:"last_post_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// Clone возвращает копию, чтобы хуки не видели чужих мутаций
func (c *Character) Clone() *Character {
	if c == nil {
		return nil
	}
	cp := *c
	if c.LastExpGainAt != nil {
		t := *c.LastExpGainAt
		cp.LastExpGainAt = &t
	}
	if c.LastPostAt != nil {
		t := *c.LastPostAt
		cp.LastPostAt = &t
	}
	if c.Age != nil {
		a := *c.Age
		cp.Age = &a
	}
	return &cp
}
