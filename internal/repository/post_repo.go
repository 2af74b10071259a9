package repository

import (
	"context"
	"errors"

	"roleplay_bot/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostRepository struct {
	db *pgxpool.Pool
}

func NewPostRepository(db *pgxpool.Pool) *PostRepository {
	return &PostRepository{db: db}
}

// сохраняет пост вместе со связями на персонажей
func (r *PostRepository) Create(ctx context.Context, p *domain.Post) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO posts (message_id, channel_id, server_id, author_id, content)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, p.MessageID, p.ChannelID, p.ServerID, p.AuthorID, p.Content).Scan(&p.CreatedAt)
	if err != nil {
		return err
	}

	for _, id := range p.CharacterIDs {
		_, err = tx.Exec(ctx, `
			INSERT INTO post_characters (channel_id, message_id, character_id)
			VALUES ($1, $2, $3) ON CONFLICT DO NOTHING
		`, p.ChannelID, p.MessageID, id)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *PostRepository) Get(ctx context.Context, channelID, messageID int64) (*domain.Post, error) {
	var p domain.Post
	err := r.db.QueryRow(ctx, `
		SELECT message_id, channel_id, server_id, author_id, content, created_at,
		       COALESCE(ARRAY(SELECT character_id FROM post_characters pc
		                      WHERE pc.channel_id = p.channel_id AND pc.message_id = p.message_id
		                      ORDER BY character_id), '{}')
		FROM posts p
		WHERE channel_id = $1 AND message_id = $2
	`, channelID, messageID).Scan(&p.MessageID, &p.ChannelID, &p.ServerID, &p.AuthorID,
		&p.Content, &p.CreatedAt, &p.CharacterIDs)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PostRepository) UpdateContent(ctx context.Context, channelID, messageID int64, content string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE posts SET content = $3 WHERE channel_id = $1 AND message_id = $2`,
		channelID, messageID, content)
	return err
}
