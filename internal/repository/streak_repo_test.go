package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow func(dest ...any) error

func (f fakeRow) Scan(dest ...any) error { return f(dest...) }

// fakeDB отдает строки по очереди и считает запросы
type fakeDB struct {
	rows    []fakeRow
	queries []string
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	f.queries = append(f.queries, sql)
	row := f.rows[0]
	f.rows = f.rows[1:]
	return row
}

func (f *fakeDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func streakRow(userID, serverID int64, streak int) fakeRow {
	return func(dest ...any) error {
		*dest[0].(*int64) = userID
		*dest[1].(*int64) = serverID
		*dest[2].(*int) = streak
		*dest[3].(**time.Time) = nil
		return nil
	}
}

func TestStreakGetOrCreateInsertsOnlyWhenMissing(t *testing.T) {
	db := &fakeDB{rows: []fakeRow{
		func(...any) error { return pgx.ErrNoRows },
		streakRow(1, 2, 0),
	}}
	repo := &StreakRepository{db: db}

	s, err := repo.GetOrCreate(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.UserID)
	assert.Equal(t, int64(2), s.ServerID)
	require.Len(t, db.queries, 2)
	assert.Contains(t, db.queries[1], "INSERT")
}

func TestStreakGetOrCreateReturnsQueryError(t *testing.T) {
	broken := errors.New("connection reset")
	db := &fakeDB{rows: []fakeRow{func(...any) error { return broken }}}
	repo := &StreakRepository{db: db}

	_, err := repo.GetOrCreate(context.Background(), 1, 2)
	assert.ErrorIs(t, err, broken)
	assert.Len(t, db.queries, 1, "no insert after a failed select")
}
