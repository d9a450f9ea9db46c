// Package render turns gallery state into HTML.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"vodgallery/internal/gallery"
	"vodgallery/internal/logging"
	"vodgallery/internal/metrics"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Site carries the page-wide settings.
type Site struct {
	Title    string
	AdClient string
	AdSlot   string
}

type Pager struct {
	Current  int
	Total    int
	Disabled bool
	Items    []gallery.PagerItem
}

// NewPager builds the page selector. It is disabled for one page or fewer.
func NewPager(current, total int) Pager {
	return Pager{
		Current:  current,
		Total:    total,
		Disabled: total <= 1,
		Items:    gallery.PagerItems(current, total),
	}
}

// PageView is the data behind a full gallery page.
type PageView struct {
	Site       Site
	Loading    bool
	Page       int
	TotalPages int
	Cards      []gallery.Card
	Pager      Pager
	Error      string
	RetryHref  string
	Stale      bool
	TopAd      template.HTML
	BottomAd   template.HTML
}

// Fragments are the parts of the page a live session replaces in place.
// While the first load is pending only Notice is set; the grid and pager
// already on the page stay as they are.
type Fragments struct {
	Grid    string
	Pager   string
	Notice  string
	Pending bool
}

type adSlotData struct {
	Name   string
	Client string
	Slot   string
}

type Renderer struct {
	pages  *template.Template
	ads    *template.Template
	site   Site
	logger zerolog.Logger
}

func PageHref(page int) string {
	return "/vods?page=" + strconv.Itoa(page)
}

func New(site Site) (*Renderer, error) {
	funcs := template.FuncMap{
		"pageHref": PageHref,
		"inc":      func(n int) int { return n + 1 },
		"dec":      func(n int) int { return n - 1 },
	}
	pages, err := template.New("gallery").Funcs(funcs).ParseFS(templateFS, "templates/gallery.html")
	if err != nil {
		return nil, fmt.Errorf("parse gallery templates: %w", err)
	}
	ads, err := template.New("ads").ParseFS(templateFS, "templates/adslot.html")
	if err != nil {
		return nil, fmt.Errorf("parse ad templates: %w", err)
	}
	return &Renderer{
		pages:  pages,
		ads:    ads,
		site:   site,
		logger: logging.WithComponent("render"),
	}, nil
}

// View assembles the page view for st. Ad slots are rendered here, each on
// its own, so a failing slot leaves an empty region and nothing else.
func (r *Renderer) View(st gallery.State, stale bool, now time.Time) PageView {
	v := PageView{
		Site:       r.site,
		Loading:    st.Loading && !st.Loaded && st.Err == nil,
		Page:       st.Page,
		TotalPages: st.TotalPages,
		Cards:      gallery.NewCards(st.Items, now),
		Pager:      NewPager(st.Page, st.TotalPages),
		Stale:      stale,
	}
	if st.Err != nil {
		v.Error = "unavailable"
		page := st.Page
		if page < 1 {
			page = 1
		}
		v.RetryHref = PageHref(page)
	}
	if !v.Loading {
		v.TopAd = r.adSlot("top")
		v.BottomAd = r.adSlot("bottom")
	}
	return v
}

// Page writes the full HTML page.
func (r *Renderer) Page(w io.Writer, v PageView) error {
	var buf bytes.Buffer
	if err := r.pages.ExecuteTemplate(&buf, "page", v); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Fragments renders the grid, pager and notice for st.
func (r *Renderer) Fragments(st gallery.State, now time.Time) (Fragments, error) {
	if st.Loading && !st.Loaded {
		var buf bytes.Buffer
		if err := r.pages.ExecuteTemplate(&buf, "notice", PageView{Loading: true}); err != nil {
			return Fragments{}, fmt.Errorf("render notice: %w", err)
		}
		return Fragments{Notice: buf.String(), Pending: true}, nil
	}
	v := r.View(st, false, now)
	var f Fragments
	for _, part := range []struct {
		name string
		data any
		dst  *string
	}{
		{"cards", v.Cards, &f.Grid},
		{"pager", v.Pager, &f.Pager},
		{"notice", v, &f.Notice},
	} {
		var buf bytes.Buffer
		if err := r.pages.ExecuteTemplate(&buf, part.name, part.data); err != nil {
			return Fragments{}, fmt.Errorf("render %s: %w", part.name, err)
		}
		*part.dst = buf.String()
	}
	return f, nil
}

func (r *Renderer) adSlot(name string) (out template.HTML) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().Interface("panic", rec).Str("slot", name).Msg("ad slot panicked")
			metrics.RecordAdSlotFailure(name)
			out = ""
		}
	}()

	var buf bytes.Buffer
	data := adSlotData{Name: name, Client: r.site.AdClient, Slot: r.site.AdSlot}
	if err := r.ads.ExecuteTemplate(&buf, "adslot", data); err != nil {
		r.logger.Warn().Err(err).Str("slot", name).Msg("ad slot failed to render")
		metrics.RecordAdSlotFailure(name)
		return ""
	}
	return template.HTML(buf.String())
}

// StaticHandler serves the embedded assets under /static/.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
