package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"vodgallery/internal/models"
	"vodgallery/internal/render"
)

// fakePages serves synthetic pages. Pages listed in gates block until the
// gate channel is closed.
type fakePages struct {
	mu    sync.Mutex
	total int
	fail  map[int]bool
	gates map[int]chan struct{}
	calls []int
}

func (f *fakePages) FetchPage(ctx context.Context, page int) (*models.VODPage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, page)
	gate := f.gates[page]
	fail := f.fail[page]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, errors.New("upstream down")
	}
	return &models.VODPage{
		Total: f.total,
		Data: []models.VOD{{
			ID:        models.VODID(fmt.Sprintf("p%d", page)),
			Title:     fmt.Sprintf("Page %d stream", page),
			CreatedAt: time.Now(),
		}},
	}, nil
}

func (f *fakePages) setFail(page int, v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[page] = v
}

// verifyNoLeaks must be called before newTestHub so its check runs after the
// hub and server are torn down.
func verifyNoLeaks(t *testing.T) {
	t.Helper()
	opt := goleak.IgnoreCurrent()
	t.Cleanup(func() { goleak.VerifyNone(t, opt) })
}

func newTestHub(t *testing.T, pages *fakePages) (*Hub, string) {
	t.Helper()
	r, err := render.New(render.Site{Title: "VODS"})
	require.NoError(t, err)

	hub := NewHub(pages, r)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func readState(t *testing.T, conn *websocket.Conn) stateMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg stateMessage
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "state", msg.Type)
	return msg
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func newFakePages(total int) *fakePages {
	return &fakePages{total: total, fail: map[int]bool{}, gates: map[int]chan struct{}{}}
}

func TestSession_InitialLoadAndPageChange(t *testing.T) {
	verifyNoLeaks(t)

	pages := newFakePages(200)
	_, url := newTestHub(t, pages)
	conn := dial(t, url+"/ws")
	defer conn.Close()

	first := readState(t, conn)
	assert.True(t, first.Loading)
	assert.Equal(t, 1, first.Page)
	assert.Empty(t, first.HTML, "server-rendered cards stay until the load completes")
	assert.Empty(t, first.Pager)
	assert.Contains(t, first.Notice, "Loading")
	assert.NotContains(t, first.Notice, "No VODs")

	loaded := readState(t, conn)
	assert.False(t, loaded.Loading)
	assert.Equal(t, 1, loaded.Page)
	assert.Equal(t, 4, loaded.TotalPages)
	assert.Contains(t, loaded.HTML, "Page 1 stream")

	send(t, conn, clientMessage{Type: "page", Page: 2})
	optimistic := readState(t, conn)
	assert.True(t, optimistic.Loading)
	assert.Equal(t, 2, optimistic.Page)
	assert.Contains(t, optimistic.HTML, "Page 1 stream")

	changed := readState(t, conn)
	assert.False(t, changed.Loading)
	assert.Equal(t, 2, changed.Page)
	assert.Equal(t, 4, changed.TotalPages)
	assert.Contains(t, changed.HTML, "Page 2 stream")

	// Same page is a no-op, so the next state belongs to page 3.
	send(t, conn, clientMessage{Type: "page", Page: 2})
	send(t, conn, clientMessage{Type: "page", Page: 3})
	next := readState(t, conn)
	assert.Equal(t, 3, next.Page)
	assert.True(t, next.Loading)
}

func TestSession_FirstMessageLeavesGridInPlace(t *testing.T) {
	verifyNoLeaks(t)

	pages := newFakePages(200)
	_, url := newTestHub(t, pages)
	conn := dial(t, url+"/ws")
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "state", raw["type"])
	assert.Equal(t, true, raw["loading"])
	assert.NotContains(t, raw, "html")
	assert.NotContains(t, raw, "pager")
	assert.Contains(t, raw["notice"], "Loading")
}

func TestSession_StartsAtRequestedPage(t *testing.T) {
	verifyNoLeaks(t)

	pages := newFakePages(500)
	_, url := newTestHub(t, pages)
	conn := dial(t, url+"/ws?page=3")
	defer conn.Close()

	readState(t, conn)
	loaded := readState(t, conn)
	assert.Equal(t, 3, loaded.Page)
	assert.Equal(t, 10, loaded.TotalPages)
	assert.Contains(t, loaded.HTML, "Page 3 stream")
}

func TestSession_DiscardsSupersededResponse(t *testing.T) {
	verifyNoLeaks(t)

	pages := newFakePages(200)
	slow := make(chan struct{})
	pages.gates[2] = slow
	_, url := newTestHub(t, pages)
	conn := dial(t, url+"/ws")
	defer conn.Close()

	readState(t, conn)
	readState(t, conn)

	send(t, conn, clientMessage{Type: "page", Page: 2})
	assert.Equal(t, 2, readState(t, conn).Page)
	send(t, conn, clientMessage{Type: "page", Page: 3})
	assert.Equal(t, 3, readState(t, conn).Page)

	third := readState(t, conn)
	assert.Equal(t, 3, third.Page)
	assert.Contains(t, third.HTML, "Page 3 stream")

	close(slow)

	// The page 2 response is dropped without a push; the next state is the
	// retry's loading state, still showing page 3.
	send(t, conn, clientMessage{Type: "retry"})
	after := readState(t, conn)
	assert.Equal(t, 3, after.Page)
	assert.Contains(t, after.HTML, "Page 3 stream")
	assert.NotContains(t, after.HTML, "Page 2 stream")
}

func TestSession_FailureThenRetry(t *testing.T) {
	verifyNoLeaks(t)

	pages := newFakePages(120)
	pages.setFail(1, true)
	_, url := newTestHub(t, pages)
	conn := dial(t, url+"/ws")
	defer conn.Close()

	readState(t, conn)
	failed := readState(t, conn)
	assert.False(t, failed.Loading)
	assert.Equal(t, "unavailable", failed.Error)
	assert.Contains(t, failed.Notice, "data-retry")

	pages.setFail(1, false)
	send(t, conn, clientMessage{Type: "retry"})
	retrying := readState(t, conn)
	assert.True(t, retrying.Loading)
	assert.Empty(t, retrying.HTML)
	assert.NotContains(t, retrying.Notice, "data-retry")

	recovered := readState(t, conn)
	assert.Empty(t, recovered.Error)
	assert.Equal(t, 1, recovered.Page)
	assert.Equal(t, 2, recovered.TotalPages)
}

func TestSession_IgnoresMalformedMessages(t *testing.T) {
	verifyNoLeaks(t)

	pages := newFakePages(200)
	_, url := newTestHub(t, pages)
	conn := dial(t, url+"/ws")
	defer conn.Close()

	readState(t, conn)
	readState(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	send(t, conn, clientMessage{Type: "bogus"})
	send(t, conn, clientMessage{Type: "page", Page: 0})
	send(t, conn, clientMessage{Type: "page", Page: 2})

	assert.Equal(t, 2, readState(t, conn).Page)
}

func TestHub_CloseEndsSessions(t *testing.T) {
	verifyNoLeaks(t)

	pages := newFakePages(200)
	block := make(chan struct{})
	pages.gates[2] = block
	defer close(block)

	hub, url := newTestHub(t, pages)
	conn := dial(t, url+"/ws")
	defer conn.Close()

	readState(t, conn)
	readState(t, conn)
	require.Equal(t, 1, hub.Count())

	// Leave a fetch in flight; Close must cancel it.
	send(t, conn, clientMessage{Type: "page", Page: 2})
	readState(t, conn)

	hub.Close()
	assert.Equal(t, 0, hub.Count())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestHub_ClientDisconnectUnregisters(t *testing.T) {
	verifyNoLeaks(t)

	pages := newFakePages(200)
	hub, url := newTestHub(t, pages)
	conn := dial(t, url+"/ws")

	readState(t, conn)
	readState(t, conn)
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool { return hub.Count() == 0 }, 5*time.Second, 10*time.Millisecond)
}
