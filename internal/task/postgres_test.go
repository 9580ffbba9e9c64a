package task

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func mockStore(t *testing.T) (pgxmock.PgxPoolIface, *PostgresStore) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewPostgresStoreWithPool(mock, "tasks")
	require.NoError(t, err)
	return mock, store
}

func taskColumns() []string {
	return []string{"id", "site", "comicid", "chapters", "params_hash",
		"status", "message", "created_at", "updated_at"}
}

func TestPostgresStore_CreateInsertsRow(t *testing.T) {
	t.Parallel()

	mock, store := mockStore(t)

	tk := Task{
		ID:         "uuid-v7",
		Site:       "qq",
		ComicID:    "505430",
		Chapters:   "1-10",
		ParamsHash: "abc123",
		Status:     StatusInit,
	}

	mock.ExpectExec("INSERT INTO tasks").
		WithArgs(tk.ID, tk.Site, tk.ComicID, tk.Chapters, tk.ParamsHash, tk.Status, tk.Message).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Create(context.Background(), tk))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetScansRow(t *testing.T) {
	t.Parallel()

	mock, store := mockStore(t)
	now := time.Unix(1700000000, 0).UTC()

	mock.ExpectQuery("SELECT (.+) FROM tasks WHERE id").
		WithArgs("uuid-v7").
		WillReturnRows(pgxmock.NewRows(taskColumns()).
			AddRow("uuid-v7", "qq", "505430", "1-10", "abc123",
				StatusDone, "ok", now, now))

	got, err := store.Get(context.Background(), "uuid-v7")
	require.NoError(t, err)
	require.Equal(t, "qq", got.Site)
	require.Equal(t, StatusDone, got.Status)
	require.Equal(t, now, got.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetMissing(t *testing.T) {
	t.Parallel()

	mock, store := mockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM tasks WHERE id").
		WithArgs("nope").
		WillReturnRows(pgxmock.NewRows(taskColumns()))

	_, err := store.Get(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindByHash(t *testing.T) {
	t.Parallel()

	mock, store := mockStore(t)
	now := time.Unix(1700000000, 0).UTC()

	mock.ExpectQuery("SELECT (.+) FROM tasks WHERE params_hash").
		WithArgs("abc123").
		WillReturnRows(pgxmock.NewRows(taskColumns()).
			AddRow("uuid-v7", "qq", "505430", "1-10", "abc123",
				StatusRunning, "", now, now))

	got, found, err := store.FindByHash(context.Background(), "abc123")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, StatusRunning, got.Status)

	mock.ExpectQuery("SELECT (.+) FROM tasks WHERE params_hash").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(taskColumns()))

	_, found, err = store.FindByHash(context.Background(), "missing")
	require.NoError(t, err)
	require.False(t, found)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateStatus(t *testing.T) {
	t.Parallel()

	mock, store := mockStore(t)

	mock.ExpectExec("UPDATE tasks SET status").
		WithArgs("uuid-v7", StatusDone, "all good").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, store.UpdateStatus(context.Background(), "uuid-v7", StatusDone, "all good"))

	mock.ExpectExec("UPDATE tasks SET status").
		WithArgs("nope", StatusDone, "").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.ErrorIs(t, store.UpdateStatus(context.Background(), "nope", StatusDone, ""), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_List(t *testing.T) {
	t.Parallel()

	mock, store := mockStore(t)
	now := time.Unix(1700000000, 0).UTC()

	mock.ExpectQuery("SELECT (.+) FROM tasks ORDER BY created_at").
		WithArgs(2).
		WillReturnRows(pgxmock.NewRows(taskColumns()).
			AddRow("b", "qq", "2", "", "h2", StatusDone, "", now, now).
			AddRow("a", "qq", "1", "", "h1", StatusDone, "", now.Add(-time.Hour), now))

	got, err := store.List(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "b", got[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostgresStoreWithPool_Validation(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	_, err = NewPostgresStoreWithPool(nil, "tasks")
	require.Error(t, err)

	_, err = NewPostgresStoreWithPool(mock, "tasks; DROP TABLE tasks")
	require.Error(t, err)
}
