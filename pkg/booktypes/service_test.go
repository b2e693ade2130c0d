package booktypes

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/bookstacks/bookstacks/pkg/migrations"
	"github.com/bookstacks/bookstacks/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	models.RegisterJoinModels(db)

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func createTestBook(t *testing.T, db *bun.DB, userID int, title string, typeID *int) {
	t.Helper()
	now := time.Now()
	book := &models.Book{UserID: userID, Title: title, Status: models.StatusBacklog, TypeID: typeID, CreatedAt: now, UpdatedAt: now}
	_, err := db.NewInsert().Model(book).Exec(context.Background())
	require.NoError(t, err)
}

func TestFilterCountsSingleValued(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	now := time.Now()
	user := &models.User{Email: "reader@example.com", PasswordHash: "x", CreatedAt: now, UpdatedAt: now}
	_, err := db.NewInsert().Model(user).Exec(ctx)
	require.NoError(t, err)

	nonFiction := &models.BookType{Name: "Non-fiction"}
	require.NoError(t, svc.CreateType(ctx, nonFiction))
	memoir := &models.BookType{Name: "Memoir", ParentID: &nonFiction.ID}
	require.NoError(t, svc.CreateType(ctx, memoir))
	history := &models.BookType{Name: "History", ParentID: &nonFiction.ID}
	require.NoError(t, svc.CreateType(ctx, history))

	createTestBook(t, db, user.ID, "A", &memoir.ID)
	createTestBook(t, db, user.ID, "B", &memoir.ID)
	createTestBook(t, db, user.ID, "C", &history.ID)
	createTestBook(t, db, user.ID, "D", &nonFiction.ID)
	createTestBook(t, db, user.ID, "E", nil)

	counts, err := svc.FilterCounts(ctx, FilterCountsOptions{UserID: user.ID})
	require.NoError(t, err)

	require.Contains(t, counts, "non-fiction")
	assert.Equal(t, 4, counts["non-fiction"].Count)
	assert.Equal(t, map[string]int{"memoir": 2, "history": 1}, counts["non-fiction"].SubItems)
}

func TestFilterCountsStatusScoped(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	now := time.Now()
	user := &models.User{Email: "reader@example.com", PasswordHash: "x", CreatedAt: now, UpdatedAt: now}
	_, err := db.NewInsert().Model(user).Exec(ctx)
	require.NoError(t, err)

	fiction := &models.BookType{Name: "Fiction"}
	require.NoError(t, svc.CreateType(ctx, fiction))

	createTestBook(t, db, user.ID, "A", &fiction.ID)

	reading := models.StatusReading
	counts, err := svc.FilterCounts(ctx, FilterCountsOptions{UserID: user.ID, Status: &reading})
	require.NoError(t, err)
	assert.Equal(t, 0, counts["fiction"].Count)
}
