// Package gsc pulls query, page and country analytics from Google Search
// Console for every tracked property and date range bucket.
package gsc

import (
	"context"
	"errors"

	"github.com/jonesrussell/rankrecon/internal/window"
)

// ErrNoProperties is returned when none of the tracked domains is a
// verified Search Console property.
var ErrNoProperties = errors.New("domains not found in search console")

// Row is one analytics result keyed by query, page and country.
type Row struct {
	Query       string  `json:"query"`
	Page        string  `json:"page"`
	Country     string  `json:"country"`
	Clicks      float64 `json:"clicks"`
	Impressions float64 `json:"impressions"`
	CTR         float64 `json:"ctr"`
	Position    float64 `json:"position"`
}

// Querier is the analytics query source.
type Querier interface {
	// Sites lists the property URLs the credentials can read.
	Sites(ctx context.Context) ([]string, error)
	// Query returns analytics rows for site over w.
	Query(ctx context.Context, site string, w window.Window) ([]Row, error)
}
