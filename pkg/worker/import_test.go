package worker

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
	"github.com/bookstacks/bookstacks/pkg/config"
	"github.com/bookstacks/bookstacks/pkg/jobs"
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

func newTestWorker(t *testing.T, db *bun.DB) *Worker {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"docs":[]}`))
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		WorkerProcesses: 1,
		CoversDir:       t.TempDir(),
		CoverMaxWidth:   600,
		OpenLibraryURL:  srv.URL,
	}
	return New(cfg, db)
}

func TestProcessImportJob(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	w := newTestWorker(t, db)

	now := time.Now()
	user := &models.User{Email: "reader@example.com", PasswordHash: "x", CreatedAt: now, UpdatedAt: now}
	_, err := db.NewInsert().Model(user).Exec(ctx)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "export.csv")
	csv := "Title,Author,Exclusive Shelf\nDune,Frank Herbert,read\nPiranesi,Susanna Clarke,to-read\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	jobService := jobs.NewService(db)
	job := &models.Job{
		UserID:     user.ID,
		Type:       models.JobTypeImport,
		Status:     models.JobStatusPending,
		DataParsed: &models.ImportJobData{UserID: user.ID, Filepath: path},
	}
	require.NoError(t, jobService.CreateJob(ctx, job))

	got, err := jobService.RetrieveJob(ctx, jobs.RetrieveJobOptions{ID: &job.ID})
	require.NoError(t, err)
	require.NoError(t, w.ProcessImportJob(ctx, got))

	bookSvc := books.NewService(db)
	list, err := bookSvc.ListBooks(ctx, books.ListBooksOptions{UserID: &user.ID})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	// The uploaded file is cleaned up.
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestProcessImportJobMissingUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	w := newTestWorker(t, db)

	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, []byte("Title,Author\n"), 0o644))

	job := &models.Job{
		Type:       models.JobTypeImport,
		Status:     models.JobStatusPending,
		DataParsed: &models.ImportJobData{UserID: 999, Filepath: path},
	}

	err := w.ProcessImportJob(ctx, job)
	require.Error(t, err)
}
