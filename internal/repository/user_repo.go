package repository

import (
	"context"

	"roleplay_bot/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// получает или создаёт пользователя
func (r *UserRepository) GetOrCreate(ctx context.Context, id int64, language string) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (id, preferred_language) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
		RETURNING id, preferred_language, current_character_id, created_at
	`, id, language).Scan(&u.ID, &u.PreferredLanguage, &u.CurrentCharacterID, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, preferred_language, current_character_id) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET preferred_language = EXCLUDED.preferred_language,
		    current_character_id = EXCLUDED.current_character_id
	`, u.ID, u.PreferredLanguage, u.CurrentCharacterID)
	return err
}
