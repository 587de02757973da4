//go:build integration
// +build integration

package jobqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/BizFox/internal/pkg/notify"
)

func setupRedisQueue(t *testing.T) (*Queue, context.Context) {
	t.Helper()

	client := newIsolatedRedisClient(t, isolatedJobQueueTestRedisDB)
	queue := NewQueueWithClient(client, 1)
	resetJobQueueRedisWithClient(t, client)
	t.Cleanup(func() {
		resetJobQueueRedisWithClient(t, client)
	})
	return queue, context.Background()
}

func TestQueue_EnqueueJob(t *testing.T) {
	queue, ctx := setupRedisQueue(t)

	job, err := queue.EnqueueJob(JobTypeStatsRefresh, map[string]interface{}{"scope": "public"})
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, JobStatusPending, job.Status)

	snap, err := queue.Snapshot(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, snap.Pending)
	assert.EqualValues(t, 0, snap.Processing)
	assert.EqualValues(t, 1, snap.Stats[JobStatusPending])
}

func TestQueue_GetJob_NotFound(t *testing.T) {
	queue, ctx := setupRedisQueue(t)

	_, err := queue.GetJob(ctx, "missing-job-id")
	assert.ErrorIs(t, err, redis.Nil)
}

func TestQueue_ProcessNotification_Success(t *testing.T) {
	queue, ctx := setupRedisQueue(t)
	n := &fakeNotifier{}
	queue.Handle(JobTypeNotification, NotificationHandler(n))

	require.NoError(t, NewNotificationDispatcher(queue).Dispatch(ctx, statusMessage()))
	job, err := queue.dequeueJob(ctx)
	require.NoError(t, err)

	queue.processJob(ctx, job)

	assert.Len(t, n.statusChanges, 1)
	_, err = queue.GetJob(ctx, job.ID)
	assert.ErrorIs(t, err, redis.Nil)
	stats, err := queue.GetJobStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats[JobStatusCompleted])
}

func TestQueue_ProcessNotification_FailsWithoutRetry(t *testing.T) {
	queue, ctx := setupRedisQueue(t)
	queue.Handle(JobTypeNotification, NotificationHandler(&fakeNotifier{err: errors.New("smtp down")}))

	require.NoError(t, NewNotificationDispatcher(queue).Dispatch(ctx, notify.Message{
		Kind:    notify.KindWelcome,
		Welcome: &notify.Welcome{Email: "new@example.com", Name: "New"},
	}))
	job, err := queue.dequeueJob(ctx)
	require.NoError(t, err)

	queue.processJob(ctx, job)

	stored, err := queue.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, stored.Status)
	assert.Equal(t, "smtp down", stored.ErrorMsg)

	pending, err := queue.GetQueueSize(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, pending)
	processing, err := queue.GetProcessingSize(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, processing)
}

func TestQueue_UnknownJobType(t *testing.T) {
	queue, ctx := setupRedisQueue(t)

	_, err := queue.EnqueueJobWithRetries(ctx, JobType("unknown"), nil, 0)
	require.NoError(t, err)
	job, err := queue.dequeueJob(ctx)
	require.NoError(t, err)

	queue.processJob(ctx, job)

	stored, err := queue.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.ErrorMsg, "unknown job type")
}

func TestQueue_RecoverStuck(t *testing.T) {
	queue, ctx := setupRedisQueue(t)

	created, err := queue.EnqueueJob(JobTypeStatsRefresh, nil)
	require.NoError(t, err)
	job, err := queue.dequeueJob(ctx)
	require.NoError(t, err)
	job.MarkAsProcessing()
	queue.updateJob(ctx, job)

	queue.recoverStuck(ctx, time.Minute, time.Now().Add(2*time.Minute))

	reloaded, err := queue.GetJob(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, reloaded.Status)
	size, err := queue.GetQueueSize(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, size)
}

func TestQueue_StartStop(t *testing.T) {
	queue, _ := setupRedisQueue(t)

	queue.Start()
	assert.True(t, queue.running)
	queue.Stop()
	assert.False(t, queue.running)
	// restartable
	queue.Start()
	queue.Stop()
}

func TestManager_StartStop(t *testing.T) {
	queue, _ := setupRedisQueue(t)
	manager := NewManager(queue)

	manager.Start()
	assert.True(t, manager.IsRunning())
	manager.Stop()
	assert.False(t, manager.IsRunning())
}
