package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// claimDueScript atomically pops jobs whose due time has passed so that
// concurrent workers never deliver the same job twice.
var claimDueScript = redis.NewScript(`
local due = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1], "LIMIT", 0, ARGV[2])
if #due > 0 then
  redis.call("ZREM", KEYS[1], unpack(due))
end
return due
`)

// Job is one scheduled enrichment delivery.
type Job struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"video_id"`
	RecipeID  int64     `json:"recipe_id"`
	DueAt     time.Time `json:"due_at"`
	CreatedAt time.Time `json:"created_at"`
}

// DelayedQueue schedules one-shot jobs on a Redis sorted set, scored by due
// time. Jobs survive process restarts; delivery is at-most-once with no
// retry.
type DelayedQueue struct {
	client     *redis.Client
	key        string
	delay      time.Duration
	poll       time.Duration
	claimCount int64
}

type DelayedQueueConfig struct {
	Addr       string
	Password   string
	Key        string
	Delay      time.Duration
	Poll       time.Duration
	ClaimCount int64
}

func NewDelayedQueue(cfg DelayedQueueConfig) (*DelayedQueue, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("redis addr required")
	}
	key := strings.TrimSpace(cfg.Key)
	if key == "" {
		key = "cooktube:enrich:due"
	}
	delay := cfg.Delay
	if delay <= 0 {
		delay = 10 * time.Second
	}
	poll := cfg.Poll
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	claimCount := cfg.ClaimCount
	if claimCount <= 0 {
		claimCount = 10
	}
	return &DelayedQueue{
		client:     redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Password}),
		key:        key,
		delay:      delay,
		poll:       poll,
		claimCount: claimCount,
	}, nil
}

// Enqueue schedules a job due after the configured delay and returns it
// immediately.
func (q *DelayedQueue) Enqueue(ctx context.Context, videoID string, recipeID int64) (Job, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return Job{}, errors.New("video id required")
	}
	now := time.Now().UTC()
	job := Job{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		RecipeID:  recipeID,
		DueAt:     now.Add(q.delay),
		CreatedAt: now,
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return Job{}, err
	}
	if err := q.client.ZAdd(ctx, q.key, redis.Z{
		Score:  float64(job.DueAt.UnixMilli()),
		Member: string(payload),
	}).Err(); err != nil {
		return Job{}, err
	}
	return job, nil
}

// Run polls for due jobs and hands them to handler until ctx is done.
// Handler outcomes are the handler's problem; a failed delivery is not
// rescheduled.
func (q *DelayedQueue) Run(ctx context.Context, handler func(context.Context, Job)) error {
	ticker := time.NewTicker(q.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		jobs, err := q.claimDue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Warn("claim due jobs failed", "err", err)
			continue
		}
		for _, job := range jobs {
			handler(ctx, job)
		}
	}
}

func (q *DelayedQueue) claimDue(ctx context.Context) ([]Job, error) {
	now := time.Now().UTC().UnixMilli()
	raw, err := claimDueScript.Run(ctx, q.client, []string{q.key}, now, q.claimCount).StringSlice()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	jobs := make([]Job, 0, len(raw))
	for _, member := range raw {
		var job Job
		if err := json.Unmarshal([]byte(member), &job); err != nil {
			slog.Warn("drop malformed job payload", "err", err)
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Close releases the underlying Redis client.
func (q *DelayedQueue) Close() error {
	return q.client.Close()
}
