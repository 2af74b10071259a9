package repository

import (
	"context"
	"errors"

	"roleplay_bot/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BalanceRepository деньги персонажей по серверам.
// Все изменения атомарны на стороне базы, без read-modify-write.
type BalanceRepository struct {
	db *pgxpool.Pool
}

func NewBalanceRepository(db *pgxpool.Pool) *BalanceRepository {
	return &BalanceRepository{db: db}
}

// возвращает баланс, при отсутствии создает нулевую строку
func (r *BalanceRepository) GetOrCreate(ctx context.Context, characterID, serverID int64) (int64, error) {
	var money int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO server_character_balances (character_id, server_id) VALUES ($1, $2)
		ON CONFLICT (character_id, server_id) DO UPDATE SET money = server_character_balances.money
		RETURNING money
	`, characterID, serverID).Scan(&money)
	return money, err
}

func (r *BalanceRepository) Add(ctx context.Context, characterID, serverID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}

	var money int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO server_character_balances (character_id, server_id, money) VALUES ($1, $2, $3)
		ON CONFLICT (character_id, server_id)
		DO UPDATE SET money = server_character_balances.money + EXCLUDED.money
		RETURNING money
	`, characterID, serverID, amount).Scan(&money)
	return money, err
}

// списывает, но не ниже нуля
func (r *BalanceRepository) Remove(ctx context.Context, characterID, serverID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}

	var money int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO server_character_balances (character_id, server_id, money) VALUES ($1, $2, 0)
		ON CONFLICT (character_id, server_id)
		DO UPDATE SET money = GREATEST(server_character_balances.money - $3, 0)
		RETURNING money
	`, characterID, serverID, amount).Scan(&money)
	return money, err
}

// переводит деньги одной транзакцией
func (r *BalanceRepository) Transfer(ctx context.Context, fromID, toID, serverID, amount int64) (*domain.Transfer, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// строки могут еще не существовать
	_, err = tx.Exec(ctx, `
		INSERT INTO server_character_balances (character_id, server_id)
		VALUES ($1, $3), ($2, $3)
		ON CONFLICT (character_id, server_id) DO NOTHING
	`, fromID, toID, serverID)
	if err != nil {
		return nil, err
	}

	// блокируем обе строки (упорядочиваем по id для предотвращения deadlock'ов)
	firstID, secondID := fromID, toID
	if firstID > secondID {
		firstID, secondID = secondID, firstID
	}
	balances := make(map[int64]int64, 2)
	for _, id := range []int64{firstID, secondID} {
		var money int64
		err = tx.QueryRow(ctx, `
			SELECT money FROM server_character_balances
			WHERE character_id = $1 AND server_id = $2 FOR UPDATE
		`, id, serverID).Scan(&money)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, domain.ErrInsufficientFunds
			}
			return nil, err
		}
		balances[id] = money
	}

	if balances[fromID] < amount {
		return nil, domain.ErrInsufficientFunds
	}

	t := &domain.Transfer{
		FromCharacterID: fromID,
		ToCharacterID:   toID,
		ServerID:        serverID,
		Amount:          amount,
	}
	err = tx.QueryRow(ctx, `
		UPDATE server_character_balances SET money = money - $1
		WHERE character_id = $2 AND server_id = $3 RETURNING money
	`, amount, fromID, serverID).Scan(&t.FromBalance)
	if err != nil {
		return nil, err
	}
	err = tx.QueryRow(ctx, `
		UPDATE server_character_balances SET money = money + $1
		WHERE character_id = $2 AND server_id = $3 RETURNING money
	`, amount, toID, serverID).Scan(&t.ToBalance)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return t, nil
}
