package domain

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// PageParams carries limit/cursor values from the HTTP layer to the repo layer.
// Cursor is the zero value for the first page.
type PageParams struct {
	Limit  int
	Cursor Cursor
}

// NewPageParams builds PageParams from optional HTTP query params.
// A nil limit falls back to 20 and the limit is capped at 100.
// An empty token selects the first page.
func NewPageParams(limit *int, token string) (PageParams, error) {
	p := PageParams{Limit: defaultPageLimit}
	if limit != nil && *limit >= 1 {
		p.Limit = min(*limit, maxPageLimit)
	}
	if token != "" {
		c, err := DecodeCursor(token)
		if err != nil {
			return PageParams{}, err
		}
		p.Cursor = c
	}
	return p, nil
}

// Cursor marks the last row of the previous page by its sort key and id.
// SortKey is the ordering column as text so one cursor shape serves every list.
type Cursor struct {
	SortKey string `json:"k"`
	ID      string `json:"id"`
}

// IsZero reports whether the cursor points at the start of the result set.
func (c Cursor) IsZero() bool {
	return c.SortKey == "" && c.ID == ""
}

// Encode returns the opaque token handed to clients.
func (c Cursor) Encode() string {
	if c.IsZero() {
		return ""
	}
	b, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor parses a token produced by Cursor.Encode.
func DecodeCursor(token string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: malformed cursor", ErrValidation)
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil || c.ID == "" {
		return Cursor{}, fmt.Errorf("%w: malformed cursor", ErrValidation)
	}
	return c, nil
}

// TimeCursor builds a cursor for lists ordered by a timestamp column.
func TimeCursor(t time.Time, id string) Cursor {
	return Cursor{SortKey: t.UTC().Format(time.RFC3339Nano), ID: id}
}

// Page is one slice of a list result. Next is empty on the last page.
type Page[T any] struct {
	Items []T
	Next  string
}
