package gallery

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"vodgallery/internal/models"
)

var now = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func labels(entries []MenuEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Label
	}
	return out
}

func TestNewCard_ManualFallback(t *testing.T) {
	v := models.VOD{ID: "123", Title: "stream", CreatedAt: now.Add(-30 * 24 * time.Hour)}

	card := NewCard(v, now)

	assert.Equal(t, FallbackThumbnail, card.Thumbnail)
	assert.Equal(t, "/manual/123", card.Href)
	assert.Equal(t, []string{"Manual"}, labels(card.Entries))
	assert.False(t, card.Menu.IsOpen())
}

func TestNewCard_YoutubePrimary(t *testing.T) {
	v := models.VOD{
		ID:           "456",
		ThumbnailURL: "https://cdn.example/thumb.jpg",
		Youtube:      []json.RawMessage{json.RawMessage(`{"id":"abc","part":1}`)},
		CreatedAt:    now.Add(-30 * 24 * time.Hour),
	}

	card := NewCard(v, now)

	assert.Equal(t, "https://cdn.example/thumb.jpg", card.Thumbnail)
	assert.Equal(t, "/youtube/456", card.Href)
	assert.Equal(t, []MenuEntry{
		{Label: "Youtube", Href: "/youtube/456"},
		{Label: "Manual", Href: "/manual/456"},
	}, card.Entries)
}

func TestWatchEntries_CDNWindow(t *testing.T) {
	tests := []struct {
		name string
		age  time.Duration
		cdn  bool
	}{
		{"six days", 6 * 24 * time.Hour, true},
		{"just under seven days", CDNWindow - time.Millisecond, true},
		{"exactly seven days", CDNWindow, false},
		{"eight days", 8 * 24 * time.Hour, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := models.VOD{ID: "1", CreatedAt: now.Add(-tc.age)}
			got := labels(WatchEntries(v, now))
			if tc.cdn {
				assert.Equal(t, []string{"CDN", "Manual"}, got)
			} else {
				assert.Equal(t, []string{"Manual"}, got)
			}
		})
	}
}

func TestWatchEntries_UnknownCreationHasNoCDN(t *testing.T) {
	v := models.VOD{ID: "1"}
	assert.Equal(t, []string{"Manual"}, labels(WatchEntries(v, now)))
}

func TestWatchEntries_Order(t *testing.T) {
	v := models.VOD{
		ID:        "9",
		Youtube:   []json.RawMessage{json.RawMessage(`{}`)},
		CreatedAt: now.Add(-time.Hour),
	}
	assert.Equal(t, []string{"Youtube", "CDN", "Manual"}, labels(WatchEntries(v, now)))
}

func TestWatchMenu_OpenClose(t *testing.T) {
	var m WatchMenu
	assert.False(t, m.IsOpen())

	m.Open("watch-9")
	assert.True(t, m.IsOpen())
	assert.Equal(t, "watch-9", m.Anchor())

	m.Close()
	assert.False(t, m.IsOpen())
}

func TestOpenWatchMenu(t *testing.T) {
	cards := NewCards([]models.VOD{{ID: "1"}, {ID: "2"}, {ID: "3"}}, now)
	cards[0].Menu.Open("watch-1")

	OpenWatchMenu(cards, "watch-2")

	assert.False(t, cards[0].Menu.IsOpen(), "opening one menu closes the others")
	assert.True(t, cards[1].Menu.IsOpen())
	assert.Equal(t, "watch-2", cards[1].Menu.Anchor())
	assert.False(t, cards[2].Menu.IsOpen())

	OpenWatchMenu(cards, "")
	for _, c := range cards {
		assert.False(t, c.Menu.IsOpen())
	}

	OpenWatchMenu(cards, "watch-missing")
	for _, c := range cards {
		assert.False(t, c.Menu.IsOpen())
	}
}
