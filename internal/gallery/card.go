package gallery

import (
	"time"

	"vodgallery/internal/models"
)

// FallbackThumbnail is served when a VOD has no thumbnail of its own.
const FallbackThumbnail = "/static/default_thumbnail.svg"

// Card is the render model for a single VOD.
type Card struct {
	ID        string
	Title     string
	Href      string
	Thumbnail string
	Date      string
	Duration  string
	MenuID    string
	Menu      WatchMenu
	Entries   []MenuEntry
}

func NewCard(v models.VOD, now time.Time) Card {
	thumb := v.ThumbnailURL
	if thumb == "" {
		thumb = FallbackThumbnail
	}
	return Card{
		ID:        string(v.ID),
		Title:     v.Title,
		Href:      PrimaryHref(v),
		Thumbnail: thumb,
		Date:      v.Date,
		Duration:  v.Duration,
		MenuID:    "watch-" + string(v.ID),
		Entries:   WatchEntries(v, now),
	}
}

func NewCards(vods []models.VOD, now time.Time) []Card {
	cards := make([]Card, 0, len(vods))
	for _, v := range vods {
		cards = append(cards, NewCard(v, now))
	}
	return cards
}

// OpenWatchMenu opens the menu of the card whose trigger id is anchor and
// closes every other one. An empty or unknown anchor closes them all.
func OpenWatchMenu(cards []Card, anchor string) {
	for i := range cards {
		if anchor != "" && cards[i].MenuID == anchor {
			cards[i].Menu.Open(anchor)
			continue
		}
		cards[i].Menu.Close()
	}
}
