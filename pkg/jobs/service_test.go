package jobs

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
	user := &models.User{Email: email, PasswordHash: "x", CreatedAt: now, UpdatedAt: now}
	_, err := db.NewInsert().Model(user).Exec(context.Background())
	require.NoError(t, err)
	return user
}

func TestCreateJobMarshalsData(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	user := createTestUser(t, db, "reader@example.com")

	job := &models.Job{
		UserID:     user.ID,
		Type:       models.JobTypeImport,
		Status:     models.JobStatusPending,
		DataParsed: &models.ImportJobData{UserID: user.ID, Filepath: "/tmp/goodreads.csv"},
	}
	err := svc.CreateJob(ctx, job)
	require.NoError(t, err)
	require.NotZero(t, job.ID)

	got, err := svc.RetrieveJob(ctx, RetrieveJobOptions{ID: &job.ID})
	require.NoError(t, err)

	data, err := got.ImportData()
	require.NoError(t, err)
	assert.Equal(t, user.ID, data.UserID)
	assert.Equal(t, "/tmp/goodreads.csv", data.Filepath)
}

func TestRetrieveJobScopedToUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	user := createTestUser(t, db, "reader@example.com")
	other := createTestUser(t, db, "other@example.com")

	job := &models.Job{
		UserID:     user.ID,
		Type:       models.JobTypeImport,
		Status:     models.JobStatusPending,
		DataParsed: &models.ImportJobData{UserID: user.ID, Filepath: "/tmp/export.csv"},
	}
	require.NoError(t, svc.CreateJob(ctx, job))

	_, err := svc.RetrieveJob(ctx, RetrieveJobOptions{ID: &job.ID, UserID: &other.ID})
	require.Error(t, err)
	cerr := &errcodes.Error{}
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "not_found", cerr.Code)

	got, err := svc.RetrieveJob(ctx, RetrieveJobOptions{ID: &job.ID, UserID: &user.ID})
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
}

func TestListJobsExcludesClaimedProcess(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	user := createTestUser(t, db, "reader@example.com")

	mine := "abcd1234"
	theirs := "ffff0000"

	unclaimed := &models.Job{UserID: user.ID, Type: models.JobTypeImport, Status: models.JobStatusPending, Data: "{}"}
	require.NoError(t, svc.CreateJob(ctx, unclaimed))

	claimed := &models.Job{UserID: user.ID, Type: models.JobTypeImport, Status: models.JobStatusInProgress, ProcessID: &mine, Data: "{}"}
	require.NoError(t, svc.CreateJob(ctx, claimed))

	otherProcess := &models.Job{UserID: user.ID, Type: models.JobTypeImport, Status: models.JobStatusInProgress, ProcessID: &theirs, Data: "{}"}
	require.NoError(t, svc.CreateJob(ctx, otherProcess))

	jobs, err := svc.ListJobs(ctx, ListJobsOptions{
		Statuses:           []string{models.JobStatusPending, models.JobStatusInProgress},
		ProcessIDToExclude: &mine,
	})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, unclaimed.ID, jobs[0].ID)
	assert.Equal(t, otherProcess.ID, jobs[1].ID)
}

func TestUpdateJobStatus(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	user := createTestUser(t, db, "reader@example.com")

	job := &models.Job{UserID: user.ID, Type: models.JobTypeImport, Status: models.JobStatusPending, Data: "{}"}
	require.NoError(t, svc.CreateJob(ctx, job))

	job.Status = models.JobStatusFailed
	job.Progress = 40
	require.NoError(t, svc.UpdateJob(ctx, job, UpdateJobOptions{Columns: []string{"status", "progress"}}))

	got, err := svc.RetrieveJob(ctx, RetrieveJobOptions{ID: &job.ID})
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	assert.Equal(t, 40, got.Progress)
}
