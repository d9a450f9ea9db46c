package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"vodgallery/internal/gallery"
	"vodgallery/internal/metrics"
	"vodgallery/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

type clientMessage struct {
	Type string `json:"type"` // "page" | "retry"
	Page int    `json:"page"`
}

type stateMessage struct {
	Type       string `json:"type"`
	Page       int    `json:"page"`
	TotalPages int    `json:"total_pages"`
	Loading    bool   `json:"loading"`
	Error      string `json:"error,omitempty"`
	HTML       string `json:"html,omitempty"`
	Pager      string `json:"pager,omitempty"`
	Notice     string `json:"notice"`
}

type completion struct {
	req  gallery.Request
	page *models.VODPage
	err  error
}

// session runs one gallery controller for one connection. The controller is
// only touched from run; the reader and fetch goroutines talk to it through
// channels.
type session struct {
	id       uuid.UUID
	conn     *websocket.Conn
	ctrl     *gallery.Controller
	fetcher  gallery.Fetcher
	renderer Renderer
	now      func() time.Time
	logger   zerolog.Logger

	inbox chan clientMessage
	done  chan completion
	wg    sync.WaitGroup
}

func newSession(id uuid.UUID, conn *websocket.Conn, fetcher gallery.Fetcher, renderer Renderer, now func() time.Time, logger zerolog.Logger) *session {
	return &session{
		id:       id,
		conn:     conn,
		ctrl:     gallery.NewController(logger),
		fetcher:  fetcher,
		renderer: renderer,
		now:      now,
		logger:   logger,
		inbox:    make(chan clientMessage),
		done:     make(chan completion),
	}
}

func (s *session) run(ctx context.Context, page int) {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		s.conn.Close()
		s.wg.Wait()
	}()

	s.wg.Add(1)
	go s.readLoop(ctx, cancel)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	s.fetch(ctx, s.ctrl.MountAt(page))
	if err := s.push(); err != nil {
		s.logger.Debug().Err(err).Msg("initial push failed")
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		case msg := <-s.inbox:
			switch msg.Type {
			case "page":
				req, ok := s.ctrl.ChangePage(msg.Page)
				if !ok {
					continue
				}
				s.fetch(ctx, req)
			case "retry":
				s.fetch(ctx, s.ctrl.Retry())
			default:
				s.logger.Debug().Str("type", msg.Type).Msg("ignoring unknown message")
				continue
			}
		case c := <-s.done:
			if !s.ctrl.Complete(c.req, c.page, c.err) {
				metrics.RecordResponseDiscarded()
				continue
			}
		}

		if err := s.push(); err != nil {
			s.logger.Debug().Err(err).Msg("push failed, closing session")
			return
		}
	}
}

func (s *session) readLoop(ctx context.Context, cancel context.CancelFunc) {
	defer s.wg.Done()
	defer cancel()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Debug().Err(err).Msg("ignoring malformed message")
			continue
		}
		select {
		case s.inbox <- msg:
		case <-ctx.Done():
			return
		}
	}
}

func (s *session) fetch(ctx context.Context, req gallery.Request) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		page, err := s.fetcher.FetchPage(ctx, req.Page)
		select {
		case s.done <- completion{req: req, page: page, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (s *session) push() error {
	st := s.ctrl.State()
	f, err := s.renderer.Fragments(st, s.now())
	if err != nil {
		return err
	}
	msg := stateMessage{
		Type:       "state",
		Page:       st.Page,
		TotalPages: st.TotalPages,
		Loading:    st.Loading,
		HTML:       f.Grid,
		Pager:      f.Pager,
		Notice:     f.Notice,
	}
	if st.Err != nil {
		msg.Error = "unavailable"
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(msg)
}
