package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ServerRepository настройки плагинов по серверам
type ServerRepository struct {
	db *pgxpool.Pool
}

func NewServerRepository(db *pgxpool.Pool) *ServerRepository {
	return &ServerRepository{db: db}
}

func (r *ServerRepository) EnabledPlugins(ctx context.Context, serverID int64) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT plugin_name FROM server_plugins WHERE server_id = $1 ORDER BY plugin_name`, serverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (r *ServerRepository) SetPluginEnabled(ctx context.Context, serverID int64, name string, enabled bool) error {
	if enabled {
		_, err := r.db.Exec(ctx,
			`INSERT INTO server_plugins (server_id, plugin_name) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			serverID, name)
		return err
	}
	_, err := r.db.Exec(ctx,
		`DELETE FROM server_plugins WHERE server_id = $1 AND plugin_name = $2`, serverID, name)
	return err
}
