package gallery

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"vodgallery/internal/models"
)

var errEmptyResponse = errors.New("empty response")

// Fetcher loads one page of VODs. page is 1-based.
type Fetcher interface {
	FetchPage(ctx context.Context, page int) (*models.VODPage, error)
}

// Request is a fetch issued by the Controller. It must be handed back to
// Complete together with the outcome of the fetch.
type Request struct {
	Seq     uint64
	Page    int
	Skip    int
	Initial bool
}

// State is a snapshot of the gallery's paged collection.
type State struct {
	Page       int
	TotalPages int
	Total      int
	Items      []models.VOD
	Loading    bool
	Loaded     bool
	Err        error
}

// Controller owns the gallery's page state. It is not safe for concurrent
// use; callers drive it from a single goroutine and perform the fetches
// described by the returned Requests themselves.
//
// Every Request carries a sequence number. Only the completion of the most
// recently issued Request is applied, so a slow response can never overwrite
// the result of a later page change.
type Controller struct {
	state  State
	seq    uint64
	logger zerolog.Logger
}

func NewController(logger zerolog.Logger) *Controller {
	return &Controller{logger: logger}
}

// Mount issues the initial request for page 1.
func (c *Controller) Mount() Request {
	return c.MountAt(1)
}

// MountAt issues the initial request for page. Pages outside 1..MaxPage load
// page 1.
func (c *Controller) MountAt(page int) Request {
	if !ValidPage(page) {
		page = 1
	}
	c.state.Loading = true
	return c.issue(page, true)
}

// ChangePage moves the gallery to page p. The displayed page number updates
// immediately; the items follow when the request completes. It returns false
// and issues nothing when p is the current page, when p is outside
// 1..MaxPage, or before the initial load has succeeded.
func (c *Controller) ChangePage(p int) (Request, bool) {
	if !c.state.Loaded || !ValidPage(p) || p == c.state.Page {
		return Request{}, false
	}
	c.state.Loading = true
	c.state.Page = p
	return c.issue(p, false), true
}

// Retry re-issues the request for the displayed page, or the initial request
// when nothing has loaded yet.
func (c *Controller) Retry() Request {
	if !c.state.Loaded {
		page := c.state.Page
		if page < 1 {
			page = 1
		}
		c.state.Loading = true
		return c.issue(page, true)
	}
	c.state.Loading = true
	return c.issue(c.state.Page, false)
}

func (c *Controller) issue(page int, initial bool) Request {
	c.seq++
	if initial {
		c.state.Page = page
	}
	return Request{Seq: c.seq, Page: page, Skip: Skip(page), Initial: initial}
}

// Complete applies the outcome of req. It returns false when req has been
// superseded by a later request and the outcome was discarded.
//
// A failed fetch is recorded in State.Err and leaves the items as they were.
// An empty page after a page change also leaves the items as they were.
func (c *Controller) Complete(req Request, page *models.VODPage, err error) bool {
	if req.Seq != c.seq {
		c.logger.Debug().
			Uint64("seq", req.Seq).
			Uint64("latest", c.seq).
			Int("page", req.Page).
			Msg("discarding superseded page response")
		return false
	}
	c.state.Loading = false

	if err == nil && page == nil {
		err = errEmptyResponse
	}
	if err != nil {
		c.state.Err = err
		c.logger.Error().Err(err).Int("page", req.Page).Bool("initial", req.Initial).Msg("fetch vods failed")
		return true
	}
	c.state.Err = nil

	if req.Initial {
		c.state.Page = req.Page
		c.state.Total = page.Total
		c.state.TotalPages = TotalPages(page.Total)
		c.state.Items = page.Data
		c.state.Loaded = true
		return true
	}

	if len(page.Data) == 0 {
		c.logger.Warn().Int("page", req.Page).Msg("empty page returned, keeping previous items")
		return true
	}
	c.state.Items = page.Data
	return true
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	return c.state
}

// Load performs the initial fetch synchronously.
func (c *Controller) Load(ctx context.Context, f Fetcher, page int) State {
	req := c.MountAt(page)
	res, err := f.FetchPage(ctx, req.Page)
	c.Complete(req, res, err)
	return c.State()
}
