package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patwa/internal/models"
	"patwa/internal/storage"
)

func setup(t *testing.T, maxRetries int) (*Worker, *storage.JobRepository, string) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "patwa.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	src := &models.Source{Type: models.SourceTypeUpload}
	require.NoError(t, storage.NewSourceRepository(db).Create(context.Background(), src))

	repo := storage.NewJobRepository(db)
	w := New(repo, Options{Interval: 10 * time.Millisecond, MaxRetries: maxRetries}, zerolog.Nop())
	return w, repo, src.ID
}

func queue(t *testing.T, repo *storage.JobRepository, sourceID, jobType string) *models.ProcessingJob {
	t.Helper()
	job := &models.ProcessingJob{SourceID: sourceID, Type: jobType, Priority: models.JobPriorityNormal}
	require.NoError(t, repo.Create(context.Background(), job))
	return job
}

func TestProcessNextCompletes(t *testing.T) {
	ctx := context.Background()
	w, repo, sourceID := setup(t, 3)
	job := queue(t, repo, sourceID, models.JobTypeTranslateMedia)

	var seen []int
	w.RegisterHandler(models.JobTypeTranslateMedia, func(ctx context.Context, j *models.ProcessingJob, progress ProgressFunc) error {
		assert.Equal(t, job.ID, j.ID)
		progress(50, "translating")
		got, err := repo.GetByID(ctx, j.ID)
		require.NoError(t, err)
		seen = append(seen, got.Progress)
		assert.Equal(t, models.JobStatusRunning, got.Status)
		assert.Equal(t, "translating", got.CurrentStep)
		return nil
	})

	assert.True(t, w.ProcessNext(ctx))
	assert.False(t, w.ProcessNext(ctx), "queue is empty")
	assert.Equal(t, []int{50}, seen)

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
}

func TestProcessNextRetriesThenFails(t *testing.T) {
	ctx := context.Background()
	w, repo, sourceID := setup(t, 2)
	job := queue(t, repo, sourceID, models.JobTypeTranslateMedia)

	attempts := 0
	w.RegisterHandler(models.JobTypeTranslateMedia, func(ctx context.Context, j *models.ProcessingJob, progress ProgressFunc) error {
		attempts++
		return errors.New("upstream unavailable")
	})
	var failed []error
	w.RegisterFailureHandler(models.JobTypeTranslateMedia, func(ctx context.Context, j *models.ProcessingJob, jobErr error) {
		assert.Equal(t, job.ID, j.ID)
		failed = append(failed, jobErr)
	})

	for i := 0; i < 2; i++ {
		require.True(t, w.ProcessNext(ctx))
		assert.Empty(t, failed, "retries are not final failures")
		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusQueued, got.Status)
		assert.Equal(t, i+1, got.RetryCount)
	}

	require.True(t, w.ProcessNext(ctx))
	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	assert.Equal(t, "upstream unavailable", got.Error)
	assert.Equal(t, 3, attempts)
	require.Len(t, failed, 1)
	assert.EqualError(t, failed[0], "upstream unavailable")
}

func TestProcessNextRecoversPanic(t *testing.T) {
	ctx := context.Background()
	w, repo, sourceID := setup(t, 0)
	job := queue(t, repo, sourceID, models.JobTypeTranslateMedia)
	w.RegisterHandler(models.JobTypeTranslateMedia, func(ctx context.Context, j *models.ProcessingJob, progress ProgressFunc) error {
		panic("boom")
	})

	require.True(t, w.ProcessNext(ctx))
	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	assert.Equal(t, "panic: boom", got.Error)
}

func TestProcessNextWithoutHandler(t *testing.T) {
	ctx := context.Background()
	w, repo, sourceID := setup(t, 3)
	job := queue(t, repo, sourceID, "unknown")

	require.True(t, w.ProcessNext(ctx))
	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	assert.Contains(t, got.Error, "no handler registered")
}

func TestStartRunsQueuedJobs(t *testing.T) {
	ctx := context.Background()
	w, repo, sourceID := setup(t, 3)

	interrupted := queue(t, repo, sourceID, models.JobTypeTranslateMedia)
	require.NoError(t, repo.Start(ctx, interrupted.ID))
	fresh := queue(t, repo, sourceID, models.JobTypeTranslateMedia)

	done := make(chan string, 2)
	w.RegisterHandler(models.JobTypeTranslateMedia, func(ctx context.Context, j *models.ProcessingJob, progress ProgressFunc) error {
		done <- j.ID
		return nil
	})

	w.Start(ctx)
	defer w.Stop()

	var ids []string
	for len(ids) < 2 {
		select {
		case id := <-done:
			ids = append(ids, id)
		case <-time.After(5 * time.Second):
			t.Fatal("jobs were not processed")
		}
	}
	assert.ElementsMatch(t, []string{interrupted.ID, fresh.ID}, ids)
}

func TestCleanup(t *testing.T) {
	ctx := context.Background()
	db, err := storage.Open(filepath.Join(t.TempDir(), "patwa.db"))
	require.NoError(t, err)
	defer db.Close()
	src := &models.Source{Type: models.SourceTypeUpload}
	require.NoError(t, storage.NewSourceRepository(db).Create(ctx, src))
	repo := storage.NewJobRepository(db)

	job := queue(t, repo, src.ID, models.JobTypeTranslateMedia)
	require.NoError(t, repo.Start(ctx, job.ID))
	require.NoError(t, repo.Complete(ctx, job.ID))

	// keeps recent jobs
	New(repo, Options{RetentionDays: 1}, zerolog.Nop()).Cleanup(ctx)
	_, err = repo.GetByID(ctx, job.ID)
	require.NoError(t, err)

	New(repo, Options{}, zerolog.Nop()).Cleanup(ctx)
	_, err = repo.GetByID(ctx, job.ID)
	require.NoError(t, err, "zero retention keeps everything")
}
