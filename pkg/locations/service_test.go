package locations

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

func TestFilterCounts(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	now := time.Now()
	user := &models.User{Email: "reader@example.com", PasswordHash: "x", CreatedAt: now, UpdatedAt: now}
	_, err := db.NewInsert().Model(user).Exec(ctx)
	require.NoError(t, err)

	shelf := &models.Location{Name: "Living Room Shelf"}
	require.NoError(t, svc.CreateLocation(ctx, shelf))
	storage := &models.Location{Name: "Storage"}
	require.NoError(t, svc.CreateLocation(ctx, storage))

	book := &models.Book{UserID: user.ID, Title: "Dune", Status: models.StatusBacklog, CreatedAt: now, UpdatedAt: now}
	_, err = db.NewInsert().Model(book).Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewInsert().Model(&models.BookLocation{BookID: book.ID, LocationID: shelf.ID}).Exec(ctx)
	require.NoError(t, err)

	counts, err := svc.FilterCounts(ctx, FilterCountsOptions{UserID: user.ID})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"living-room-shelf": 1, "storage": 0}, counts)
}
