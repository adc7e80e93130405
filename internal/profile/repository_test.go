package profile

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var profileRowColumns = []string{"full_name", "headline", "bio", "avatar_url", "email", "location", "links", "updated_at"}

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

func TestRepository_Get(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM\s+profile\s+WHERE\s+id\s*=\s*1`).
		WillReturnRows(sqlmock.NewRows(profileRowColumns).
			AddRow("Ada", "Engineer", "", "", "ada@example.com", "", []byte(`{"github":"https://github.com/ada"}`), now))

	p, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.FullName)
	assert.Equal(t, map[string]string{"github": "https://github.com/ada"}, p.Links)
}

func TestRepository_Get_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM\s+profile`).WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_Upsert(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+profile.*ON\s+CONFLICT\s+\(id\)\s+DO\s+UPDATE`).
		WithArgs("Ada", "", "", "", "", "", []byte(`{}`), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(profileRowColumns).AddRow("Ada", "", "", "", "", "", []byte(`{}`), now))

	p, err := repo.Upsert(context.Background(), Input{FullName: "Ada", Links: map[string]string{}})
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.FullName)
	assert.Empty(t, p.Links)
}
