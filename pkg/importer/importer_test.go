package importer

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bookstacks/bookstacks/pkg/books"
	"github.com/bookstacks/bookstacks/pkg/covers"
	"github.com/bookstacks/bookstacks/pkg/mailer"
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

func createTestUser(t *testing.T, db *bun.DB) *models.User {
	t.Helper()
	now := time.Now()
	user := &models.User{Email: "reader@example.com", PasswordHash: "x", CreatedAt: now, UpdatedAt: now}
	_, err := db.NewInsert().Model(user).Exec(context.Background())
	require.NoError(t, err)
	return user
}

func writeTempCSV(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func newImporter(t *testing.T, db *bun.DB, openLibraryURL string) *Importer {
	t.Helper()
	coverSvc := covers.NewService(db, t.TempDir(), 600)
	coverClient := covers.NewClient(openLibraryURL)
	return New(db, coverSvc, coverClient, mailer.New("", "noreply@example.com"))
}

const importCSV = `Title,Author,Additional Authors,My Rating,Number of Pages,Original Publication Year,Exclusive Shelf,Date Added,Date Read,My Review
Dune,Frank Herbert,,5,412,1965,read,2023/01/02,2023/02/10,Loved it.
Good Omens,Terry Pratchett,Neil Gaiman,0,288,1990,currently-reading,2024/03/01,,
Hyperion,Dan Simmons,,4,482,1989,read,not a date,also not a date,
`

func TestRunImportsGoodreadsFile(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db)
	bookSvc := books.NewService(db)

	// Dune already exists, so its row should be skipped.
	require.NoError(t, bookSvc.CreateBook(ctx, &models.Book{UserID: user.ID, Title: "dune", Status: models.StatusBacklog}))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"docs":[{"key":"/works/OL1W","title":"x","author_name":["y"]}]}`))
	}))
	t.Cleanup(srv.Close)

	imp := newImporter(t, db, srv.URL)
	count, err := imp.Run(ctx, user, writeTempCSV(t, importCSV))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	omensTitle := "Good Omens"
	omens, err := bookSvc.RetrieveBook(ctx, books.RetrieveBookOptions{UserID: &user.ID, Title: &omensTitle})
	require.NoError(t, err)
	assert.Equal(t, models.StatusReading, omens.Status)
	assert.True(t, omens.Imported)
	require.NotNil(t, omens.OLID)
	assert.Equal(t, "OL1W", *omens.OLID)
	require.Len(t, omens.Authors, 2)
	require.Len(t, omens.Readings, 1)
	assert.WithinDuration(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), omens.Readings[0].StartDate, time.Second)
	assert.Nil(t, omens.Readings[0].EndDate)

	// Unparseable dates fall back to today.
	hyperionTitle := "Hyperion"
	hyperion, err := bookSvc.RetrieveBook(ctx, books.RetrieveBookOptions{UserID: &user.ID, Title: &hyperionTitle})
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, hyperion.Status)
	require.Len(t, hyperion.Readings, 1)
	reading := hyperion.Readings[0]
	assert.WithinDuration(t, time.Now(), reading.StartDate, 24*time.Hour)
	require.NotNil(t, reading.EndDate)
	assert.WithinDuration(t, time.Now(), *reading.EndDate, 24*time.Hour)
	assert.True(t, reading.Finished)
	require.NotNil(t, reading.Rating)
	assert.Equal(t, 4, *reading.Rating)

	// The skipped duplicate keeps its original state.
	duneTitle := "dune"
	dune, err := bookSvc.RetrieveBook(ctx, books.RetrieveBookOptions{UserID: &user.ID, Title: &duneTitle})
	require.NoError(t, err)
	assert.Equal(t, models.StatusBacklog, dune.Status)
	assert.False(t, dune.Imported)
	assert.Empty(t, dune.Readings)
}

func TestRunSavesReviewAsNote(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db)
	bookSvc := books.NewService(db)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"docs":[]}`))
	}))
	t.Cleanup(srv.Close)

	imp := newImporter(t, db, srv.URL)
	count, err := imp.Run(ctx, user, writeTempCSV(t, importCSV))
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	duneTitle := "Dune"
	dune, err := bookSvc.RetrieveBook(ctx, books.RetrieveBookOptions{UserID: &user.ID, Title: &duneTitle})
	require.NoError(t, err)
	require.Len(t, dune.Notes, 1)
	assert.Equal(t, "Loved it.", dune.Notes[0].Text)
	assert.Nil(t, dune.OLID)
}

func TestRunSurvivesCoverSearchFailure(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	imp := newImporter(t, db, srv.URL)
	count, err := imp.Run(ctx, user, writeTempCSV(t, importCSV))
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
