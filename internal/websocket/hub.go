package websocket

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"vodgallery/internal/gallery"
	"vodgallery/internal/logging"
	"vodgallery/internal/metrics"
	"vodgallery/internal/render"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Renderer produces the HTML fragments pushed to a session.
type Renderer interface {
	Fragments(st gallery.State, now time.Time) (render.Fragments, error)
}

// Hub accepts gallery sessions and tracks them so they can be shut down.
type Hub struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]context.CancelFunc
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc

	pages    gallery.Fetcher
	renderer Renderer
	now      func() time.Time
	logger   zerolog.Logger
}

func NewHub(pages gallery.Fetcher, renderer Renderer) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		sessions: make(map[uuid.UUID]context.CancelFunc),
		ctx:      ctx,
		cancel:   cancel,
		pages:    pages,
		renderer: renderer,
		now:      time.Now,
		logger:   logging.WithComponent("sessions"),
	}
}

// HandleWebSocket upgrades the request and runs a gallery session on it until
// either side closes. ?page= selects the page loaded first.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || !gallery.ValidPage(page) {
		page = 1
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	id := uuid.New()
	ctx, cancel := context.WithCancel(h.ctx)
	if !h.register(id, cancel) {
		cancel()
		conn.Close()
		return
	}
	defer h.unregister(id)

	s := newSession(id, conn, h.pages, h.renderer, h.now, h.logger.With().Str("session", id.String()).Logger())
	s.run(ctx, page)
}

func (h *Hub) register(id uuid.UUID, cancel context.CancelFunc) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ctx.Err() != nil {
		return false
	}
	h.sessions[id] = cancel
	h.wg.Add(1)
	metrics.SessionOpened()
	h.logger.Debug().Str("session", id.String()).Int("total", len(h.sessions)).Msg("session opened")
	return true
}

func (h *Hub) unregister(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cancel, ok := h.sessions[id]; ok {
		cancel()
		delete(h.sessions, id)
		h.wg.Done()
		metrics.SessionClosed()
	}
	h.logger.Debug().Str("session", id.String()).Msg("session closed")
}

// Count returns the number of open sessions.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Close ends every session and waits for them to finish. New sessions are
// refused afterwards.
func (h *Hub) Close() {
	h.mu.Lock()
	h.cancel()
	for _, cancel := range h.sessions {
		cancel()
	}
	h.mu.Unlock()
	h.wg.Wait()
}
