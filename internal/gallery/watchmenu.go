package gallery

import (
	"time"

	"vodgallery/internal/models"
)

// CDNWindow is how long after creation a VOD stays available on the CDN.
const CDNWindow = 7 * 24 * time.Hour

type MenuEntry struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

// WatchMenu is the open/closed state of one card's "Watch on" menu. The
// anchor names the element the menu is attached to; empty means closed.
type WatchMenu struct {
	anchor string
}

func (m *WatchMenu) Open(anchor string) {
	m.anchor = anchor
}

func (m *WatchMenu) Close() {
	m.anchor = ""
}

func (m WatchMenu) IsOpen() bool {
	return m.anchor != ""
}

func (m WatchMenu) Anchor() string {
	return m.anchor
}

func YoutubeHref(id models.VODID) string { return "/youtube/" + string(id) }
func CDNHref(id models.VODID) string     { return "/cdn/" + string(id) }
func ManualHref(id models.VODID) string  { return "/manual/" + string(id) }

// PrimaryHref is where the thumbnail and title of a card link to.
func PrimaryHref(v models.VOD) string {
	if v.HasYoutube() {
		return YoutubeHref(v.ID)
	}
	return ManualHref(v.ID)
}

// CDNAvailable reports whether createdAt is strictly less than CDNWindow
// before now.
func CDNAvailable(createdAt, now time.Time) bool {
	return now.Sub(createdAt) < CDNWindow
}

// WatchEntries lists the playback destinations for v in display order:
// Youtube, CDN, Manual. Manual is always present.
func WatchEntries(v models.VOD, now time.Time) []MenuEntry {
	entries := make([]MenuEntry, 0, 3)
	if v.HasYoutube() {
		entries = append(entries, MenuEntry{Label: "Youtube", Href: YoutubeHref(v.ID)})
	}
	if CDNAvailable(v.CreatedAt, now) {
		entries = append(entries, MenuEntry{Label: "CDN", Href: CDNHref(v.ID)})
	}
	entries = append(entries, MenuEntry{Label: "Manual", Href: ManualHref(v.ID)})
	return entries
}
