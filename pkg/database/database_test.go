package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/bookstacks/bookstacks/pkg/config"
	"github.com/bookstacks/bookstacks/pkg/migrations"
	"github.com/bookstacks/bookstacks/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DatabaseFilePath:          filepath.Join(t.TempDir(), "bookstacks.db"),
		DatabaseBusyTimeout:       time.Second,
		DatabaseConnectRetryCount: 1,
		DatabaseMaxRetries:        1,
	}
}

func newDatabase(t *testing.T) *bun.DB {
	t.Helper()

	db, err := New(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	return db
}

func TestNewConnectsWithShimmedDriver(t *testing.T) {
	t.Parallel()
	db := newDatabase(t)

	var one int
	require.NoError(t, db.QueryRow("SELECT 1").Scan(&one))
	assert.Equal(t, 1, one)
}

func TestNewEnforcesForeignKeysOnEveryConnection(t *testing.T) {
	t.Parallel()
	db := newDatabase(t)
	ctx := context.Background()

	// Holding the first connection forces the pool to open a second one.
	first, err := db.DB.Conn(ctx)
	require.NoError(t, err)
	defer first.Close()

	second, err := db.DB.Conn(ctx)
	require.NoError(t, err)
	defer second.Close()

	for _, conn := range []*sql.Conn{first, second} {
		var enabled int
		require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&enabled))
		assert.Equal(t, 1, enabled)
	}
}

func TestDeleteCascadesOnPooledConnections(t *testing.T) {
	t.Parallel()
	db := newDatabase(t)
	ctx := context.Background()
	now := time.Now()

	user := &models.User{Email: "reader@example.com", PasswordHash: "x", CreatedAt: now, UpdatedAt: now}
	_, err := db.NewInsert().Model(user).Exec(ctx)
	require.NoError(t, err)

	book := &models.Book{UserID: user.ID, Title: "Dune", Status: models.StatusReading, CreatedAt: now, UpdatedAt: now}
	_, err = db.NewInsert().Model(book).Exec(ctx)
	require.NoError(t, err)

	reading := &models.Reading{BookID: book.ID, StartDate: now, CreatedAt: now, UpdatedAt: now}
	_, err = db.NewInsert().Model(reading).Exec(ctx)
	require.NoError(t, err)

	// Keep one connection checked out so the delete runs on a fresh one.
	held, err := db.DB.Conn(ctx)
	require.NoError(t, err)
	defer held.Close()

	_, err = db.NewDelete().Model(book).WherePK().Exec(ctx)
	require.NoError(t, err)

	count, err := db.NewSelect().Model((*models.Reading)(nil)).Where("book_id = ?", book.ID).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
