package books

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/bookstacks/bookstacks/pkg/errcodes"
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

func createTestUser(t *testing.T, db *bun.DB, email string) *models.User {
	t.Helper()

	now := time.Now()
	user := &models.User{
		Email:        email,
		PasswordHash: "x",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err := db.NewInsert().Model(user).Exec(context.Background())
	require.NoError(t, err)

	return user
}

func TestCreateBookDirectlyInReading(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	user := createTestUser(t, db, "reader@example.com")

	book := &models.Book{UserID: user.ID, Title: "Dune", Status: models.StatusReading}
	require.NoError(t, svc.CreateBook(ctx, book))

	loaded, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)

	require.Len(t, loaded.Readings, 1)
	reading := loaded.Readings[0]
	assert.WithinDuration(t, startOfDay(time.Now()), reading.StartDate, time.Minute)
	assert.Nil(t, reading.EndDate)
	assert.False(t, reading.Finished)

	// No prior status, so no status change is recorded.
	assert.Empty(t, loaded.StatusChanges)
	assert.Equal(t, models.StatusReading, loaded.OriginalStatus)
}

func TestCreateBookWishlistHasNoSideEffects(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	user := createTestUser(t, db, "reader@example.com")

	book := &models.Book{UserID: user.ID, Title: "Dune", Status: models.StatusWishlist}
	require.NoError(t, svc.CreateBook(ctx, book))

	loaded, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	assert.Empty(t, loaded.Readings)
	assert.Empty(t, loaded.StatusChanges)
}

func changeStatus(t *testing.T, svc *Service, book *models.Book, status string) {
	t.Helper()
	book.Status = status
	require.NoError(t, svc.UpdateBook(context.Background(), book, UpdateBookOptions{Columns: []string{"status"}}))
}

func TestBacklogToReadingToFinished(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	user := createTestUser(t, db, "reader@example.com")

	book := &models.Book{UserID: user.ID, Title: "Dune", Status: models.StatusBacklog}
	require.NoError(t, svc.CreateBook(ctx, book))

	changeStatus(t, svc, book, models.StatusReading)

	loaded, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	require.Len(t, loaded.Readings, 1)
	startDate := loaded.Readings[0].StartDate

	changeStatus(t, svc, book, models.StatusFinished)

	loaded, err = svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)

	require.Len(t, loaded.Readings, 1)
	reading := loaded.Readings[0]
	assert.WithinDuration(t, startDate, reading.StartDate, time.Second)
	require.NotNil(t, reading.EndDate)
	assert.WithinDuration(t, startOfDay(time.Now()), *reading.EndDate, time.Minute)
	assert.True(t, reading.Finished)

	require.Len(t, loaded.StatusChanges, 2)
	assert.Equal(t, models.StatusBacklog, loaded.StatusChanges[0].OldStatus)
	assert.Equal(t, models.StatusReading, loaded.StatusChanges[0].NewStatus)
	assert.Equal(t, models.StatusReading, loaded.StatusChanges[1].OldStatus)
	assert.Equal(t, models.StatusFinished, loaded.StatusChanges[1].NewStatus)
}

func TestReadingToDNFLeavesFinishedFalse(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	user := createTestUser(t, db, "reader@example.com")

	book := &models.Book{UserID: user.ID, Title: "Dune", Status: models.StatusReading}
	require.NoError(t, svc.CreateBook(ctx, book))

	changeStatus(t, svc, book, models.StatusDNF)

	loaded, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)

	require.Len(t, loaded.Readings, 1)
	reading := loaded.Readings[0]
	require.NotNil(t, reading.EndDate)
	assert.WithinDuration(t, startOfDay(time.Now()), *reading.EndDate, time.Minute)
	assert.False(t, reading.Finished)
}

func TestReenteringReadingSameDayIsValidationError(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	user := createTestUser(t, db, "reader@example.com")

	book := &models.Book{UserID: user.ID, Title: "Dune", Status: models.StatusReading}
	require.NoError(t, svc.CreateBook(ctx, book))

	changeStatus(t, svc, book, models.StatusBacklog)

	book.Status = models.StatusReading
	err := svc.UpdateBook(ctx, book, UpdateBookOptions{Columns: []string{"status"}})
	cerr := &errcodes.Error{}
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "duplicate_reading", cerr.Code)

	count, err := db.NewSelect().Model((*models.Reading)(nil)).Where("book_id = ?", book.ID).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestFinishedWithNoOpenReadingIsStatusOnly(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	user := createTestUser(t, db, "reader@example.com")

	book := &models.Book{UserID: user.ID, Title: "Dune", Status: models.StatusBacklog}
	require.NoError(t, svc.CreateBook(ctx, book))

	changeStatus(t, svc, book, models.StatusFinished)

	loaded, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)

	assert.Empty(t, loaded.Readings)
	assert.Equal(t, models.StatusFinished, loaded.Status)
	require.Len(t, loaded.StatusChanges, 1)
}

func TestSaveWithoutStatusChangeRecordsNothing(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	user := createTestUser(t, db, "reader@example.com")

	book := &models.Book{UserID: user.ID, Title: "Dune", Status: models.StatusReading}
	require.NoError(t, svc.CreateBook(ctx, book))

	// Saving the same status is a no-op for history and readings.
	changeStatus(t, svc, book, models.StatusReading)

	book.Title = "Dune Messiah"
	require.NoError(t, svc.UpdateBook(ctx, book, UpdateBookOptions{Columns: []string{"title"}}))

	loaded, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)

	assert.Empty(t, loaded.StatusChanges)
	assert.Len(t, loaded.Readings, 1)
	assert.Equal(t, "Dune Messiah", loaded.Title)
}

func TestOriginalStatus(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	user := createTestUser(t, db, "reader@example.com")

	book := &models.Book{UserID: user.ID, Title: "Dune", Status: models.StatusWishlist}
	require.NoError(t, svc.CreateBook(ctx, book))

	loaded, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	assert.Equal(t, models.StatusWishlist, loaded.OriginalStatus)

	changeStatus(t, svc, book, models.StatusBacklog)
	changeStatus(t, svc, book, models.StatusReading)

	loaded, err = svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	assert.Equal(t, models.StatusWishlist, loaded.OriginalStatus)
	require.NotNil(t, loaded.LatestReading)
	assert.WithinDuration(t, startOfDay(time.Now()), loaded.LatestReading.StartDate, time.Minute)
}

func TestDuplicateTitle(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	user := createTestUser(t, db, "reader@example.com")
	other := createTestUser(t, db, "other@example.com")

	require.NoError(t, svc.CreateBook(ctx, &models.Book{UserID: user.ID, Title: "Dune", Status: models.StatusWishlist}))

	// Case-insensitively equal title for the same user fails with a named
	// validation error.
	err := svc.CreateBook(ctx, &models.Book{UserID: user.ID, Title: "dune", Status: models.StatusWishlist})
	require.Error(t, err)
	cerr := &errcodes.Error{}
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "duplicate_title", cerr.Code)

	// A different user can have the same title.
	require.NoError(t, svc.CreateBook(ctx, &models.Book{UserID: other.ID, Title: "dune", Status: models.StatusWishlist}))
}

func TestCreateBookFindsOrCreatesAuthors(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	user := createTestUser(t, db, "reader@example.com")

	first := &models.Book{
		UserID:  user.ID,
		Title:   "Dune",
		Status:  models.StatusBacklog,
		Authors: []*models.Author{{Name: "Frank Herbert"}},
	}
	require.NoError(t, svc.CreateBook(ctx, first))

	second := &models.Book{
		UserID:  user.ID,
		Title:   "Dune Messiah",
		Status:  models.StatusBacklog,
		Authors: []*models.Author{{Name: "frank herbert"}},
	}
	require.NoError(t, svc.CreateBook(ctx, second))

	count, err := db.NewSelect().Model((*models.Author)(nil)).Where("user_id = ?", user.ID).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	loaded, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &second.ID})
	require.NoError(t, err)
	require.Len(t, loaded.Authors, 1)
	assert.Equal(t, "Frank Herbert", loaded.Authors[0].Name)
}

func TestStatusCounts(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	user := createTestUser(t, db, "reader@example.com")

	require.NoError(t, svc.CreateBook(ctx, &models.Book{UserID: user.ID, Title: "A", Status: models.StatusBacklog}))
	require.NoError(t, svc.CreateBook(ctx, &models.Book{UserID: user.ID, Title: "B", Status: models.StatusBacklog}))
	require.NoError(t, svc.CreateBook(ctx, &models.Book{UserID: user.ID, Title: "C", Status: models.StatusReading}))

	archived := &models.Book{UserID: user.ID, Title: "D", Status: models.StatusBacklog, Archived: true}
	require.NoError(t, svc.CreateBook(ctx, archived))

	counts, err := svc.StatusCounts(ctx, user.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, counts[models.StatusBacklog])
	assert.Equal(t, 1, counts[models.StatusReading])
	assert.Equal(t, 0, counts[models.StatusFinished])
}

func TestListBooksFilters(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	user := createTestUser(t, db, "reader@example.com")

	require.NoError(t, svc.CreateBook(ctx, &models.Book{UserID: user.ID, Title: "Dune", Status: models.StatusBacklog}))
	require.NoError(t, svc.CreateBook(ctx, &models.Book{UserID: user.ID, Title: "Hyperion", Status: models.StatusReading}))

	status := models.StatusBacklog
	books, total, err := svc.ListBooksWithTotal(ctx, ListBooksOptions{UserID: &user.ID, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, books, 1)
	assert.Equal(t, "Dune", books[0].Title)

	search := "hyp"
	books, err = svc.ListBooks(ctx, ListBooksOptions{UserID: &user.ID, Search: &search})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Hyperion", books[0].Title)
}

func TestDeleteBookCascades(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	user := createTestUser(t, db, "reader@example.com")

	book := &models.Book{UserID: user.ID, Title: "Dune", Status: models.StatusReading}
	require.NoError(t, svc.CreateBook(ctx, book))
	changeStatus(t, svc, book, models.StatusFinished)

	require.NoError(t, svc.DeleteBook(ctx, book))

	_, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.Error(t, err)

	readings, err := db.NewSelect().Model((*models.Reading)(nil)).Where("book_id = ?", book.ID).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, readings)

	changes, err := db.NewSelect().Model((*models.StatusChange)(nil)).Where("book_id = ?", book.ID).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, changes)
}
