package services

import (
	"context"
	"testing"
	"time"

	"funcal/config"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestSyncQueue() (*SyncQueueService, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	cfg := &config.Config{
		SyncWorkers:     2,
		SyncMaxAttempts: 3,
		SyncBackoffBase: time.Minute,
		SyncStaggerMax:  time.Minute,
	}

	service := &SyncQueueService{
		Redis:    db,
		cfg:      cfg,
		stopChan: make(chan struct{}),
	}
	return service, mock
}

func TestSyncQueue_Enqueue(t *testing.T) {
	service, mock := setupTestSyncQueue()
	defer mock.ClearExpect()

	// The score is derived from time.Now, so match loosely.
	mock.CustomMatch(func(expected, actual []interface{}) error {
		return nil
	}).ExpectZAdd(syncQueueKey, redis.Z{}).SetVal(1)

	err := service.Enqueue(context.Background(),
		SyncJob{Kind: JobSourceScrape, ID: "src1"}, time.Minute)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncQueue_Depth(t *testing.T) {
	service, mock := setupTestSyncQueue()
	defer mock.ClearExpect()

	mock.ExpectZCard(syncQueueKey).SetVal(7)

	depth, err := service.Depth(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(7), depth)
}

func TestSyncQueue_PopDueDropsMalformedJobs(t *testing.T) {
	service, mock := setupTestSyncQueue()
	defer mock.ClearExpect()

	mock.CustomMatch(func(expected, actual []interface{}) error {
		return nil
	}).ExpectEvalSha(popDueScript.Hash(), []string{syncQueueKey}).SetVal("not json")

	_, ok := service.popDue(context.Background())

	assert.False(t, ok)
}

func TestSyncQueue_BackoffGrowsPerAttempt(t *testing.T) {
	service, _ := setupTestSyncQueue()

	assert.Equal(t, time.Minute, service.backoff(1))
	assert.Equal(t, 4*time.Minute, service.backoff(2))
	assert.Equal(t, 16*time.Minute, service.backoff(3))
}

func TestSyncQueue_StaggerStaysWithinBound(t *testing.T) {
	service, _ := setupTestSyncQueue()

	for i := 0; i < 50; i++ {
		d := service.stagger()
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.Less(t, d, service.cfg.SyncStaggerMax)
	}
}
