package jobqueue

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func offlineClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:         "127.0.0.1:0",
		DialTimeout:  100 * time.Millisecond,
		ReadTimeout:  100 * time.Millisecond,
		WriteTimeout: 100 * time.Millisecond,
		PoolTimeout:  100 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewQueueWithClient(t *testing.T) {
	tests := []struct {
		name            string
		workers         int
		expectedWorkers int
	}{
		{"Valid worker count", 5, 5},
		{"Zero workers", 0, 3},
		{"Negative workers", -1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := NewQueueWithClient(offlineClient(t), tt.workers)

			assert.NotNil(t, queue)
			assert.Equal(t, tt.expectedWorkers, queue.workers)
			assert.Equal(t, tt.expectedWorkers, cap(queue.workerPool))
			assert.NotNil(t, queue.stopCh)
			assert.False(t, queue.running)
		})
	}
}

func TestConstants(t *testing.T) {
	assert.Equal(t, "bizfox:job:", JobKeyPrefix)
	assert.Equal(t, "bizfox:job_queue", JobQueueKey)
	assert.Equal(t, "bizfox:job_processing", JobProcessingKey)
	assert.Equal(t, "bizfox:job_stats", JobStatsKey)
	assert.Equal(t, 3, DefaultMaxRetries)
	assert.Equal(t, 24*time.Hour, JobTTL)
}

func TestQueue_EnqueueJob_PipelineError(t *testing.T) {
	queue := NewQueueWithClient(offlineClient(t), 1)

	job, err := queue.EnqueueJob(JobTypeNotification, map[string]interface{}{"k": "v"})
	assert.Error(t, err)
	assert.Nil(t, job)
}

func TestJob_IsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		job       Job
		retryable bool
	}{
		{"failed with budget left", Job{Status: JobStatusFailed, RetryCount: 1, MaxRetries: 3}, true},
		{"failed without budget", Job{Status: JobStatusFailed, RetryCount: 3, MaxRetries: 3}, false},
		{"fire once", Job{Status: JobStatusFailed, RetryCount: 1, MaxRetries: 0}, false},
		{"not failed", Job{Status: JobStatusProcessing, RetryCount: 0, MaxRetries: 3}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, tt.job.IsRetryable())
		})
	}
}

func TestJob_StatusTransitions(t *testing.T) {
	job := &Job{Status: JobStatusPending, MaxRetries: 3}
	before := time.Now()

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	assert.NotNil(t, job.ProcessedAt)
	assert.False(t, job.UpdatedAt.Before(before))

	job.MarkAsFailed("smtp down")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "smtp down", job.ErrorMsg)
	assert.Equal(t, 1, job.RetryCount)

	job.MarkAsRetrying()
	assert.Equal(t, JobStatusRetrying, job.Status)

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.NotNil(t, job.CompletedAt)
	assert.Empty(t, job.ErrorMsg)
}
