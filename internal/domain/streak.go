package domain

import "time"

type ServerUserStreak struct {
	UserID       int64      `db:"user_id" json:"user_id"`
	ServerID     int64      `db:"server_id" json:"server_id"`
	Streak       int        `db:"streak" json:"streak"`
	LastStreakAt *time.Time `db:"last_streak_at" json:"last_streak_at,omitempty"`
}

// состояние пользователя относительно редактирования поста
type EditingState int

const (
	NotEditing EditingState = iota
	Editing
)

func (s EditingState) String() string {
	if s == Editing {
		return "editing"
	}
	return "not_editing"
}
