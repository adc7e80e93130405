package contact

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMessageID = "01890a5d-ac96-774b-bcce-b302099a8201"

func newRepoWithMock(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewRepository(db), mock
}

func TestRepository_Create(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`INSERT\s+INTO\s+messages`).
		WithArgs(sqlmock.AnyArg(), "Bob", "bob@example.com", "Hi", "Hello there", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	m, err := repo.Create(context.Background(), Input{Name: "Bob", Email: "bob@example.com", Subject: "Hi", Body: "Hello there"})
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)
	assert.False(t, m.Read)
}

func TestRepository_ListUnread(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)FROM\s+messages.*ORDER\s+BY\s+created_at\s+DESC`).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "subject", "body", "read", "created_at"}).
			AddRow(testMessageID, "Bob", "bob@example.com", "", "Hello", false, now))

	messages, err := repo.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "Bob", messages[0].Name)
}

func TestRepository_SetRead_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`UPDATE\s+messages\s+SET\s+read`).
		WithArgs(testMessageID, true).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.SetRead(context.Background(), testMessageID, true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_PurgeReadBatches(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`(?s)DELETE\s+FROM\s+messages.*read\s*=\s*TRUE`).
		WithArgs(cutoff, 2).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`(?s)DELETE\s+FROM\s+messages.*read\s*=\s*TRUE`).
		WithArgs(cutoff, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))

	deleted, err := repo.PurgeRead(context.Background(), cutoff, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
}
