package handlers

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"vodgallery/internal/gallery"
	"vodgallery/internal/logging"
	"vodgallery/internal/models"
	"vodgallery/internal/render"
	"vodgallery/internal/services"
)

// PageSource serves gallery pages.
type PageSource interface {
	Page(ctx context.Context, page int) (*services.PageResult, error)
}

// Prefetcher warms pages the visitor is likely to open next.
type Prefetcher interface {
	Enqueue(ctx context.Context, page int)
}

type GalleryHandler struct {
	pages    PageSource
	renderer *render.Renderer
	prefetch Prefetcher
	now      func() time.Time
}

// NewGalleryHandler builds the HTML gallery handler. prefetch may be nil.
func NewGalleryHandler(pages PageSource, renderer *render.Renderer, prefetch Prefetcher) *GalleryHandler {
	return &GalleryHandler{
		pages:    pages,
		renderer: renderer,
		prefetch: prefetch,
		now:      time.Now,
	}
}

// Index renders one page of the gallery. Each request loads its page fresh,
// so the state the controller sees is always an initial load.
func (h *GalleryHandler) Index(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		http.Error(w, "invalid page", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	logger := logging.FromContext(ctx, "gallery")

	ctrl := gallery.NewController(logger)
	req := ctrl.MountAt(page)

	var (
		result *models.VODPage
		stale  bool
	)
	res, err := h.pages.Page(ctx, page)
	if err == nil {
		result = &res.VODPage
		stale = res.Stale
	}
	ctrl.Complete(req, result, err)
	st := ctrl.State()

	var buf bytes.Buffer
	view := h.renderer.View(st, stale, h.now())
	gallery.OpenWatchMenu(view.Cards, r.URL.Query().Get("watch"))
	if err := h.renderer.Page(&buf, view); err != nil {
		logger.Error().Err(err).Int("page", page).Msg("render gallery failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if st.Err != nil {
		status = http.StatusBadGateway
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)

	if st.Err == nil && h.prefetch != nil && page < st.TotalPages {
		h.prefetch.Enqueue(context.WithoutCancel(ctx), page+1)
	}
}
