package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"time"

	"funcal/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const syncQueueKey = "sync:scheduled"

// Job kinds the queue knows how to execute.
const (
	JobCalendarImport = "calendar_import"
	JobSourceScrape   = "source_scrape"
)

// SyncJob is one queued unit of work: import a calendar or run a scraper
// source. Attempt counts completed tries, so a freshly enqueued job is 0.
// RunID survives retries, so one logical run can be followed through the
// logs across attempts.
type SyncJob struct {
	Kind    string `json:"kind"`
	ID      string `json:"id"`
	Attempt int    `json:"attempt"`
	RunID   string `json:"run_id,omitempty"`
}

// popDueScript atomically takes the earliest job whose scheduled time has
// arrived. Doing it in one script keeps two workers from claiming the
// same job.
var popDueScript = redis.NewScript(`
	local jobs = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, 1)
	if #jobs == 0 then
		return false
	end
	redis.call('ZREM', KEYS[1], jobs[1])
	return jobs[1]
`)

// SyncQueueService schedules and executes ingestion jobs through a Redis
// sorted set, score = when the job should run.
type SyncQueueService struct {
	Redis  *redis.Client
	ingest *IngestService
	cfg    *config.Config

	stopChan chan struct{}
	workers  int
}

func NewSyncQueueService(redisClient *redis.Client, ingest *IngestService, cfg *config.Config) *SyncQueueService {
	return &SyncQueueService{
		Redis:    redisClient,
		ingest:   ingest,
		cfg:      cfg,
		stopChan: make(chan struct{}),
	}
}

// Enqueue schedules a job to run after delay. Enqueueing the same job
// again just moves its scheduled time, since the member is the job's JSON
// encoding.
func (s *SyncQueueService) Enqueue(ctx context.Context, job SyncJob, delay time.Duration) error {
	if job.RunID == "" {
		job.RunID = uuid.NewString()
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	runAt := time.Now().Add(delay).Unix()
	if err := s.Redis.ZAdd(ctx, syncQueueKey, redis.Z{
		Score:  float64(runAt),
		Member: string(payload),
	}).Err(); err != nil {
		return fmt.Errorf("enqueue %s %s: %w", job.Kind, job.ID, err)
	}
	return nil
}

// Depth reports how many jobs are scheduled, due or not.
func (s *SyncQueueService) Depth(ctx context.Context) (int64, error) {
	return s.Redis.ZCard(ctx, syncQueueKey).Result()
}

// StartWorkers launches n polling workers. Stop them with Stop.
func (s *SyncQueueService) StartWorkers(ctx context.Context, n int) {
	for i := 0; i < n; i++ {
		go s.worker(ctx, i)
	}
	log.Printf("[SyncQueue] Started %d workers", n)
}

func (s *SyncQueueService) worker(ctx context.Context, id int) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for {
				job, ok := s.popDue(ctx)
				if !ok {
					break
				}
				s.execute(ctx, job)
			}
		case <-s.stopChan:
			log.Printf("[SyncQueue] Worker %d stopping", id)
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *SyncQueueService) popDue(ctx context.Context) (SyncJob, bool) {
	var job SyncJob

	result, err := popDueScript.Run(ctx, s.Redis,
		[]string{syncQueueKey}, time.Now().Unix()).Result()
	if err == redis.Nil || result == nil {
		return job, false
	}
	if err != nil {
		log.Printf("[SyncQueue] Pop failed: %v", err)
		return job, false
	}

	payload, ok := result.(string)
	if !ok {
		return job, false
	}
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		log.Printf("[SyncQueue] Dropping malformed job %q: %v", payload, err)
		return job, false
	}
	return job, true
}

func (s *SyncQueueService) execute(ctx context.Context, job SyncJob) {
	log.Printf("[SyncQueue] Executing %s %s (run %s, attempt %d)",
		job.Kind, job.ID, job.RunID, job.Attempt+1)

	var result RunResult
	switch job.Kind {
	case JobCalendarImport:
		result = s.ingest.RunCalendarImport(ctx, job.ID)
	case JobSourceScrape:
		result = s.ingest.RunSource(ctx, job.ID)
	default:
		log.Printf("[SyncQueue] Dropping job with unknown kind %q", job.Kind)
		return
	}

	if result.Err == nil {
		return
	}
	if IsTerminalError(result.Err) {
		log.Printf("[SyncQueue] Not retrying %s %s: %v", job.Kind, job.ID, result.Err)
		return
	}

	job.Attempt++
	if job.Attempt >= s.cfg.SyncMaxAttempts {
		log.Printf("[SyncQueue] Giving up on %s %s after %d attempts: %v",
			job.Kind, job.ID, job.Attempt, result.Err)
		return
	}

	delay := s.backoff(job.Attempt)
	log.Printf("[SyncQueue] Retrying %s %s in %s (attempt %d): %v",
		job.Kind, job.ID, delay, job.Attempt, result.Err)
	if err := s.Enqueue(ctx, job, delay); err != nil {
		log.Printf("[SyncQueue] Failed to requeue %s %s: %v", job.Kind, job.ID, err)
	}
}

// backoff grows the retry delay by 4x per completed attempt.
func (s *SyncQueueService) backoff(attempt int) time.Duration {
	delay := s.cfg.SyncBackoffBase
	for i := 1; i < attempt; i++ {
		delay *= 4
	}
	return delay
}

// Stop shuts the workers down.
func (s *SyncQueueService) Stop() {
	close(s.stopChan)
}

// ScheduleDueWork scans for calendars and sources whose interval has
// elapsed and enqueues them with a random stagger so a sweep does not
// fire every fetch at once. Returns how many jobs were enqueued.
func (s *SyncQueueService) ScheduleDueWork(ctx context.Context) int {
	now := time.Now()
	enqueued := 0

	calendars, err := s.ingest.dueCalendars(now)
	if err != nil {
		log.Printf("[SyncQueue] Failed to list calendars: %v", err)
	}
	for _, id := range calendars {
		if err := s.Enqueue(ctx, SyncJob{Kind: JobCalendarImport, ID: id}, s.stagger()); err != nil {
			log.Printf("[SyncQueue] %v", err)
			continue
		}
		enqueued++
	}

	sources, err := s.ingest.dueSources(now)
	if err != nil {
		log.Printf("[SyncQueue] Failed to list sources: %v", err)
	}
	for _, id := range sources {
		if err := s.Enqueue(ctx, SyncJob{Kind: JobSourceScrape, ID: id}, s.stagger()); err != nil {
			log.Printf("[SyncQueue] %v", err)
			continue
		}
		enqueued++
	}

	if enqueued > 0 {
		log.Printf("[SyncQueue] Scheduled %d due jobs", enqueued)
	}
	return enqueued
}

func (s *SyncQueueService) stagger() time.Duration {
	max := s.cfg.SyncStaggerMax
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max)))
}
