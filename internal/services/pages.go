package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"vodgallery/internal/cache"
	"vodgallery/internal/gallery"
	"vodgallery/internal/logging"
	"vodgallery/internal/metrics"
	"vodgallery/internal/models"
)

// Upstream fetches a page of VODs starting at a record offset.
type Upstream interface {
	FetchPage(ctx context.Context, skip int) (*models.VODPage, error)
}

// PageResult is a page of VODs as served to the gallery.
type PageResult struct {
	models.VODPage
	Page      int
	FetchedAt time.Time
	// Stale is set when the upstream request failed and an expired cache
	// entry was served in its place.
	Stale bool
}

// PageService serves gallery pages. Fresh cache entries are returned without
// contacting the API; concurrent misses for the same page share one upstream
// request; upstream failures fall back to the last cached copy.
type PageService struct {
	upstream Upstream
	cache    cache.PageCache
	ttl      time.Duration
	staleTTL time.Duration
	group    singleflight.Group
	now      func() time.Time
}

func NewPageService(upstream Upstream, c cache.PageCache, ttl, staleTTL time.Duration) *PageService {
	if staleTTL < ttl {
		staleTTL = ttl
	}
	return &PageService{
		upstream: upstream,
		cache:    c,
		ttl:      ttl,
		staleTTL: staleTTL,
		now:      time.Now,
	}
}

func validatePage(page int) error {
	if !gallery.ValidPage(page) {
		return &ValidationError{Fields: map[string]string{"page": fmt.Sprintf("must be between 1 and %d", gallery.MaxPage)}}
	}
	return nil
}

func cacheKey(skip int) string {
	return "vods:skip:" + strconv.Itoa(skip)
}

// Page returns the 1-based page.
func (s *PageService) Page(ctx context.Context, page int) (*PageResult, error) {
	if err := validatePage(page); err != nil {
		return nil, err
	}
	skip := gallery.Skip(page)
	key := cacheKey(skip)

	cached, haveCached := s.cache.Get(ctx, key)
	if haveCached && s.now().Sub(cached.FetchedAt) < s.ttl {
		metrics.RecordCacheLookup("fresh")
		return &PageResult{VODPage: cached.Page, Page: page, FetchedAt: cached.FetchedAt}, nil
	}

	entry, err := s.load(ctx, skip)
	if err != nil {
		if haveCached {
			metrics.RecordCacheLookup("stale")
			metrics.RecordStaleServed()
			logger := logging.FromContext(ctx, "pages")
			logger.Warn().Err(err).Int("page", page).
				Time("fetched_at", cached.FetchedAt).Msg("upstream failed, serving stale page")
			return &PageResult{VODPage: cached.Page, Page: page, FetchedAt: cached.FetchedAt, Stale: true}, nil
		}
		metrics.RecordCacheLookup("miss")
		return nil, fmt.Errorf("fetch page %d: %w", page, err)
	}

	metrics.RecordCacheLookup("miss")
	return &PageResult{VODPage: entry.Page, Page: page, FetchedAt: entry.FetchedAt}, nil
}

// Refresh fetches page from the API and stores it, ignoring any fresh cache
// entry.
func (s *PageService) Refresh(ctx context.Context, page int) error {
	if err := validatePage(page); err != nil {
		return err
	}
	if _, err := s.load(ctx, gallery.Skip(page)); err != nil {
		return fmt.Errorf("refresh page %d: %w", page, err)
	}
	return nil
}

func (s *PageService) load(ctx context.Context, skip int) (cache.Entry, error) {
	key := cacheKey(skip)
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		// Detached so one caller going away does not fail the others
		// waiting on the same key. The HTTP client timeout bounds it.
		res, err := s.upstream.FetchPage(context.WithoutCancel(ctx), skip)
		if err != nil {
			return nil, err
		}
		entry := cache.Entry{FetchedAt: s.now(), Page: *res}
		s.cache.Set(ctx, key, entry, s.staleTTL)
		return entry, nil
	})
	if err != nil {
		return cache.Entry{}, err
	}
	return v.(cache.Entry), nil
}

// FetchPage adapts Page to gallery.Fetcher.
func (s *PageService) FetchPage(ctx context.Context, page int) (*models.VODPage, error) {
	res, err := s.Page(ctx, page)
	if err != nil {
		return nil, err
	}
	return &res.VODPage, nil
}

// IsUpstreamError reports whether err came from talking to the VOD API.
func IsUpstreamError(err error) bool {
	var te *TransportError
	var de *DecodeError
	return errors.As(err, &te) || errors.As(err, &de)
}
