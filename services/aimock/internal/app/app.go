package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cooktube/internal/callbacktoken"
	"cooktube/pkg/domain"
	"cooktube/pkg/queue"
)

// ErrInvalidVideoID means the start request carried no usable video id.
var ErrInvalidVideoID = errors.New("invalid video_id")

// Config holds runtime configuration for the mock enrichment producer.
type Config struct {
	RedisAddr      string
	RedisPassword  string
	RecipeURL      string
	CallbackSecret string
	Delay          time.Duration
	Queue          *queue.DelayedQueue
}

// App schedules mock enrichment jobs and delivers their results to the
// recipe service's callback endpoint.
type App struct {
	queue   *queue.DelayedQueue
	deliver deliverClient
}

// New constructs the producer. When cfg.Queue is nil a Redis-backed queue is
// opened from cfg.RedisAddr.
func New(cfg Config) (*App, error) {
	q := cfg.Queue
	if q == nil {
		var err error
		q, err = queue.NewDelayedQueue(queue.DelayedQueueConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Delay:    cfg.Delay,
		})
		if err != nil {
			return nil, fmt.Errorf("init delayed queue: %w", err)
		}
	}
	if cfg.RecipeURL == "" {
		return nil, fmt.Errorf("recipe URL required")
	}
	signer, err := callbacktoken.NewSigner(cfg.CallbackSecret, callbacktoken.DefaultTTL)
	if err != nil {
		return nil, err
	}
	return &App{
		queue:   q,
		deliver: newProcessClient(cfg.RecipeURL, signer),
	}, nil
}

// Start validates the request and schedules a delayed enrichment delivery.
// It returns as soon as the job is persisted; the caller does not wait for
// the downstream step.
func (a *App) Start(ctx context.Context, videoID string, recipeID int64) (queue.Job, error) {
	if strings.TrimSpace(videoID) == "" {
		return queue.Job{}, ErrInvalidVideoID
	}
	job, err := a.queue.Enqueue(ctx, videoID, recipeID)
	if err != nil {
		return queue.Job{}, fmt.Errorf("enqueue enrichment: %w", err)
	}
	return job, nil
}

// Run consumes due jobs until ctx is done.
func (a *App) Run(ctx context.Context) error {
	return a.queue.Run(ctx, a.handleDue)
}

// handleDue posts the synthetic payload to the callback receiver. Delivery
// failure is logged and the job is dropped; there is no retry.
func (a *App) handleDue(ctx context.Context, job queue.Job) {
	if err := a.deliver.Deliver(ctx, job.RecipeID, mockEnrichment(job.VideoID)); err != nil {
		slog.Error("enrichment delivery failed", "video_id", job.VideoID, "recipe_id", job.RecipeID, "err", err)
		return
	}
	slog.Info("enrichment delivered", "video_id", job.VideoID, "recipe_id", job.RecipeID)
}

// mockEnrichment is the fixed synthetic payload, independent of the actual
// video.
func mockEnrichment(videoID string) domain.Enrichment {
	return domain.Enrichment{
		VideoID: videoID,
		Title:   "목데이터 영상제목",
		Name:    "목데이터 레시피이름",
		Channel: "목데이터 영상채널",
		Items: []string{
			"1. 김치를 꺼내요",
			"2. 된장을 꺼내요",
			"3. 아무튼 물을 넣고 끓여요",
			"4. 접시에 담아요",
		},
		Ingredients: []domain.Ingredient{
			{Name: "김치", Amount: "한포기"},
			{Name: "된장", Amount: "100g"},
			{Name: "시래기", Amount: "한단"},
		},
	}
}
