package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"vodgallery/internal/logging"
	"vodgallery/internal/metrics"
	"vodgallery/internal/services"
)

const (
	prefetchQueue = "queue:page-prefetch"
	lockTTL       = 2 * time.Minute
	enqueueWait   = 2 * time.Second
	warmTimeout   = 30 * time.Second
)

// PageWarmer loads a page through the page cache.
type PageWarmer interface {
	Page(ctx context.Context, page int) (*services.PageResult, error)
}

type prefetchJob struct {
	Page       int       `json:"page"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Pool drains the prefetch queue and warms each page into the cache.
type Pool struct {
	redis       *redis.Client
	pages       PageWarmer
	workerCount int
	pollTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger zerolog.Logger
}

func NewPool(redisClient *redis.Client, pages PageWarmer, workerCount int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		redis:       redisClient,
		pages:       pages,
		workerCount: workerCount,
		pollTimeout: 5 * time.Second,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logging.WithComponent("prefetch"),
	}
}

func lockKey(page int) string {
	return fmt.Sprintf("prefetch:lock:%d", page)
}

// Enqueue queues page for warming unless it is already queued or being
// warmed. Failures are logged and otherwise ignored.
func (p *Pool) Enqueue(ctx context.Context, page int) {
	if page < 1 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), enqueueWait)
	defer cancel()

	locked, err := p.redis.SetNX(ctx, lockKey(page), "1", lockTTL).Result()
	if err != nil {
		p.logger.Warn().Err(err).Int("page", page).Msg("prefetch lock failed")
		return
	}
	if !locked {
		metrics.RecordPrefetch("duplicate")
		return
	}

	payload, _ := json.Marshal(prefetchJob{Page: page, EnqueuedAt: time.Now().UTC()})
	if err := p.redis.RPush(ctx, prefetchQueue, payload).Err(); err != nil {
		p.redis.Del(ctx, lockKey(page))
		p.logger.Warn().Err(err).Int("page", page).Msg("prefetch enqueue failed")
		return
	}
	metrics.RecordPrefetch("enqueued")
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Info().Int("workers", p.workerCount).Msg("started prefetch workers")
}

// Stop signals the workers and waits for them to return.
func (p *Pool) Stop() {
	p.cancel()
	p.wg.Wait()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	logger := p.logger.With().Int("worker", id).Logger()

	for {
		result, err := p.redis.BLPop(p.ctx, p.pollTimeout, prefetchQueue).Result()
		if p.ctx.Err() != nil {
			logger.Debug().Msg("worker shutting down")
			return
		}
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			logger.Warn().Err(err).Msg("queue read failed")
			select {
			case <-p.ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if len(result) < 2 {
			continue
		}

		var job prefetchJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil || job.Page < 1 {
			logger.Warn().Str("payload", result[1]).Msg("dropping malformed prefetch job")
			metrics.RecordPrefetch("failed")
			continue
		}

		p.warm(logger, job)
	}
}

func (p *Pool) warm(logger zerolog.Logger, job prefetchJob) {
	ctx, cancel := context.WithTimeout(p.ctx, warmTimeout)
	defer cancel()
	defer p.redis.Del(context.WithoutCancel(ctx), lockKey(job.Page))

	if _, err := p.pages.Page(ctx, job.Page); err != nil {
		logger.Warn().Err(err).Int("page", job.Page).Msg("prefetch failed")
		metrics.RecordPrefetch("failed")
		return
	}
	logger.Debug().Int("page", job.Page).Dur("queued_for", time.Since(job.EnqueuedAt)).Msg("page warmed")
	metrics.RecordPrefetch("warmed")
}
