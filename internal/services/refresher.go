package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"vodgallery/internal/logging"
)

const refreshTimeout = 30 * time.Second

type pageRefresher interface {
	Refresh(ctx context.Context, page int) error
}

// Refresher reloads a fixed set of pages on an interval so the landing page
// is served from cache and always has a stale copy to fall back on.
type Refresher struct {
	pages    pageRefresher
	targets  []int
	interval time.Duration
	stopChan chan struct{}
	wg       sync.WaitGroup
	logger   zerolog.Logger
}

func NewRefresher(pages pageRefresher, interval time.Duration, targets ...int) *Refresher {
	return &Refresher{
		pages:    pages,
		targets:  targets,
		interval: interval,
		stopChan: make(chan struct{}),
		logger:   logging.WithComponent("refresher"),
	}
}

func (r *Refresher) Start() {
	if r.interval <= 0 || len(r.targets) == 0 {
		return
	}
	r.wg.Add(1)
	go r.loop()
	r.logger.Info().Dur("interval", r.interval).Ints("pages", r.targets).Msg("page refresher started")
}

func (r *Refresher) Stop() {
	select {
	case <-r.stopChan:
	default:
		close(r.stopChan)
	}
	r.wg.Wait()
}

func (r *Refresher) loop() {
	defer r.wg.Done()

	// Run on startup as well as by interval.
	r.refreshAll()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			return
		case <-ticker.C:
			r.refreshAll()
		}
	}
}

func (r *Refresher) refreshAll() {
	for _, page := range r.targets {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		err := r.pages.Refresh(ctx, page)
		cancel()
		if err != nil {
			r.logger.Warn().Err(err).Int("page", page).Msg("page refresh failed")
			continue
		}
		r.logger.Debug().Int("page", page).Msg("page refreshed")
	}
}
