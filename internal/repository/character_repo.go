package repository

import (
	"context"
	"errors"

	"roleplay_bot/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const characterColumns = `id, owner_id, name, image_url, level, exp, last_exp_gain_at, age, race, gender,
	pronouns, title, embed_color, appearance, backstory, personality, last_post_at, created_at`

type CharacterRepository struct {
	db *pgxpool.Pool
}

func NewCharacterRepository(db *pgxpool.Pool) *CharacterRepository {
	return &CharacterRepository{db: db}
}

func scanCharacter(row pgx.Row) (*domain.Character, error) {
	var c domain.Character
	err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.ImageURL, &c.Level, &c.Exp, &c.LastExpGainAt,
		&c.Age, &c.Race, &c.Gender, &c.Pronouns, &c.Title, &c.EmbedColor, &c.Appearance,
		&c.Backstory, &c.Personality, &c.LastPostAt, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// возвращает персонажа по id или nil
func (r *CharacterRepository) GetByID(ctx context.Context, id int64) (*domain.Character, error) {
	c, err := scanCharacter(r.db.QueryRow(ctx,
		`SELECT `+characterColumns+` FROM characters WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (r *CharacterRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*domain.Character, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+characterColumns+` FROM characters WHERE owner_id = $1 ORDER BY id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCharacters(rows)
}

// топ по уровню, затем по опыту
func (r *CharacterRepository) ListTop(ctx context.Context, limit int) ([]*domain.Character, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+characterColumns+` FROM characters ORDER BY level DESC, exp DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCharacters(rows)
}

func collectCharacters(rows pgx.Rows) ([]*domain.Character, error) {
	var out []*domain.Character
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// создает персонажа, проставляет ID и CreatedAt
func (r *CharacterRepository) Create(ctx context.Context, c *domain.Character) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO characters (owner_id, name, image_url, level, exp, age, race, gender, pronouns,
			title, embed_color, appearance, backstory, personality)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at
	`, c.OwnerID, c.Name, c.ImageURL, c.Level, c.Exp, c.Age, c.Race, c.Gender, c.Pronouns,
		c.Title, c.EmbedColor, c.Appearance, c.Backstory, c.Personality,
	).Scan(&c.ID, &c.CreatedAt)
}

// обновляет все изменяемые поля; false если строки нет
func (r *CharacterRepository) Update(ctx context.Context, c *domain.Character) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE characters SET
			name = $2, image_url = $3, level = $4, exp = $5, last_exp_gain_at = $6, age = $7,
			race = $8, gender = $9, pronouns = $10, title = $11, embed_color = $12,
			appearance = $13, backstory = $14, personality = $15, last_post_at = $16
		WHERE id = $1
	`, c.ID, c.Name, c.ImageURL, c.Level, c.Exp, c.LastExpGainAt, c.Age, c.Race, c.Gender,
		c.Pronouns, c.Title, c.EmbedColor, c.Appearance, c.Backstory, c.Personality, c.LastPostAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *CharacterRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM characters WHERE id = $1`, id)
	return err
}
