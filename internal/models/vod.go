package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// VODID is the opaque identifier of a VOD. The API sends it either as a
// JSON string or as a number.
type VODID string

func (id *VODID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = VODID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("vod id: %w", err)
	}
	*id = VODID(n.String())
	return nil
}

type VOD struct {
	ID           VODID             `json:"id"`
	Title        string            `json:"title"`
	ThumbnailURL string            `json:"thumbnail_url"`
	Date         string            `json:"date"`
	Duration     string            `json:"duration"`
	Youtube      []json.RawMessage `json:"youtube"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// UnmarshalJSON decodes a VOD, reading createdAt leniently: a missing or
// unparseable timestamp becomes the zero time instead of failing the record.
func (v *VOD) UnmarshalJSON(b []byte) error {
	type plain VOD
	aux := struct {
		*plain
		CreatedAt json.RawMessage `json:"createdAt"`
	}{plain: (*plain)(v)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	v.CreatedAt = parseCreatedAt(aux.CreatedAt)
	return nil
}

var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseCreatedAt accepts an RFC 3339 string (or a looser date form) or epoch
// milliseconds. Anything else is the zero time.
func parseCreatedAt(raw json.RawMessage) time.Time {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}
		}
		for _, layout := range createdAtLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
		return time.Time{}
	}
	var ms json.Number
	if err := json.Unmarshal(raw, &ms); err != nil {
		return time.Time{}
	}
	n, err := ms.Int64()
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(n).UTC()
}

// HasYoutube reports whether at least one YouTube upload exists.
func (v VOD) HasYoutube() bool {
	return len(v.Youtube) > 0
}

// VODPage is the body returned by GET /vods.
type VODPage struct {
	Data  []VOD `json:"data"`
	Total int   `json:"total"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
