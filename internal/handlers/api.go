package handlers

import (
	"net/http"
	"time"

	"vodgallery/internal/gallery"
)

type VODResponse struct {
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	ThumbnailURL string              `json:"thumbnail_url"`
	Date         string              `json:"date"`
	Duration     string              `json:"duration"`
	CreatedAt    time.Time           `json:"created_at"`
	Href         string              `json:"href"`
	Watch        []gallery.MenuEntry `json:"watch"`
}

type PageResponse struct {
	Page       int           `json:"page"`
	TotalPages int           `json:"total_pages"`
	Total      int           `json:"total"`
	Stale      bool          `json:"stale"`
	FetchedAt  time.Time     `json:"fetched_at"`
	Items      []VODResponse `json:"items"`
}

type APIHandler struct {
	pages PageSource
	now   func() time.Time
}

func NewAPIHandler(pages PageSource) *APIHandler {
	return &APIHandler{pages: pages, now: time.Now}
}

// List returns one page of VODs with their resolved links.
func (h *APIHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	res, err := h.pages.Page(r.Context(), page)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	now := h.now()
	items := make([]VODResponse, 0, len(res.Data))
	for _, v := range res.Data {
		card := gallery.NewCard(v, now)
		items = append(items, VODResponse{
			ID:           card.ID,
			Title:        v.Title,
			ThumbnailURL: card.Thumbnail,
			Date:         v.Date,
			Duration:     v.Duration,
			CreatedAt:    v.CreatedAt,
			Href:         card.Href,
			Watch:        card.Entries,
		})
	}

	writeJSON(w, http.StatusOK, PageResponse{
		Page:       res.Page,
		TotalPages: gallery.TotalPages(res.Total),
		Total:      res.Total,
		Stale:      res.Stale,
		FetchedAt:  res.FetchedAt,
		Items:      items,
	})
}
