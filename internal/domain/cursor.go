package domain

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// SortMode is the ordering a cursor was issued for
type SortMode string

const (
	SortByDistance SortMode = "distance"
	SortByScore    SortMode = "score"
	SortByStart    SortMode = "start"
	SortByCreated  SortMode = "created"
)

// Cursor is the sort key of the last row of a page
type Cursor struct {
	Mode     SortMode  `json:"m"`
	Distance float64   `json:"d,omitempty"`
	Score    float64   `json:"s,omitempty"`
	Time     time.Time `json:"t,omitempty"`
	ID       string    `json:"id"`
}

// Encode returns the opaque token form
func (c Cursor) Encode() string {
	data, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeCursor parses a token and checks it was issued for mode. An empty token yields nil.
func DecodeCursor(token string, mode SortMode) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, NewInvalidQueryError("malformed cursor")
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil || c.ID == "" {
		return nil, NewInvalidQueryError("malformed cursor")
	}
	if c.Mode != mode {
		return nil, NewInvalidQueryError("cursor was issued for %s ordering, not %s", c.Mode, mode)
	}
	return &c, nil
}

// PageSize applies the default and the maximum to a requested limit
func PageSize(limit int) (int, error) {
	switch {
	case limit == 0:
		return DefaultPageSize, nil
	case limit < 0:
		return 0, NewInvalidQueryError("limit must be positive")
	case limit > MaxPageSize:
		return MaxPageSize, nil
	}
	return limit, nil
}

// Page is one page of results
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    bool   `json:"hasMore"`
}
