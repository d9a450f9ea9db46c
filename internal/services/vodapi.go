package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vodgallery/internal/gallery"
	"vodgallery/internal/metrics"
	"vodgallery/internal/models"
)

// VODClient reads pages from the VOD API.
type VODClient struct {
	base       string
	httpClient *http.Client
}

func NewVODClient(base string, timeout time.Duration) *VODClient {
	return &VODClient{
		base:       strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// PageURL builds the list URL for the given record offset, newest first.
// The first page omits $skip.
func PageURL(base string, skip int) string {
	if skip <= 0 {
		return fmt.Sprintf("%s/vods?$limit=%d&$sort[createdAt]=-1", base, gallery.PageSize)
	}
	return fmt.Sprintf("%s/vods?$limit=%d&$skip=%d&$sort[createdAt]=-1", base, gallery.PageSize, skip)
}

// FetchPage requests the page starting at skip.
func (c *VODClient) FetchPage(ctx context.Context, skip int) (*models.VODPage, error) {
	u := PageURL(c.base, skip)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build vod request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstream("transport_error", time.Since(start))
		return nil, &TransportError{URL: u, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		metrics.RecordUpstream("transport_error", time.Since(start))
		return nil, &TransportError{URL: u, StatusCode: resp.StatusCode}
	}

	var page models.VODPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		metrics.RecordUpstream("decode_error", time.Since(start))
		return nil, &DecodeError{URL: u, Err: err}
	}
	if page.Data == nil {
		metrics.RecordUpstream("decode_error", time.Since(start))
		return nil, &DecodeError{URL: u, Err: fmt.Errorf("missing data array")}
	}

	metrics.RecordUpstream("success", time.Since(start))
	return &page, nil
}
