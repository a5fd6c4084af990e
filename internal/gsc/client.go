package gsc

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/searchconsole/v1"

	"github.com/jonesrussell/rankrecon/internal/window"
)

const (
	// maxRowsPerRequest is the Search Analytics API page size ceiling.
	maxRowsPerRequest = 25000
	dateLayout        = "2006-01-02"
)

var dimensions = []string{"query", "page", "country"}

// ClientConfig configures the Search Console client.
type ClientConfig struct {
	CredentialsFile string
	RowLimit        int
	SearchType      string
}

// Client queries the Search Console API.
type Client struct {
	svc        *searchconsole.Service
	rowLimit   int
	searchType string
}

// NewClient authenticates with a service-account or authorized-user JSON
// file and returns a read-only client.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read gsc credentials: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, data, searchconsole.WebmastersReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse gsc credentials: %w", err)
	}

	svc, err := searchconsole.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create search console service: %w", err)
	}

	return NewClientFromService(svc, cfg.RowLimit, cfg.SearchType), nil
}

// NewClientFromService wraps an existing service.
func NewClientFromService(svc *searchconsole.Service, rowLimit int, searchType string) *Client {
	if rowLimit <= 0 {
		rowLimit = 100
	}
	if searchType == "" {
		searchType = "web"
	}
	return &Client{svc: svc, rowLimit: rowLimit, searchType: searchType}
}

// Sites lists every property visible to the credentials.
func (c *Client) Sites(ctx context.Context) ([]string, error) {
	resp, err := c.svc.Sites.List().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	out := make([]string, 0, len(resp.SiteEntry))
	for _, e := range resp.SiteEntry {
		out = append(out, e.SiteUrl)
	}
	return out, nil
}

// Query fetches up to the configured row limit for site over w, paging
// when the limit exceeds one API page.
func (c *Client) Query(ctx context.Context, site string, w window.Window) ([]Row, error) {
	var rows []Row
	for start := 0; start < c.rowLimit; {
		size := min(c.rowLimit-start, maxRowsPerRequest)
		req := &searchconsole.SearchAnalyticsQueryRequest{
			StartDate:  w.Start.Format(dateLayout),
			EndDate:    w.End.Format(dateLayout),
			Dimensions: dimensions,
			RowLimit:   int64(size),
			StartRow:   int64(start),
			Type:       c.searchType,
		}

		resp, err := c.svc.Searchanalytics.Query(site, req).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("query %s %s: %w", site, w.Label(), err)
		}

		for _, r := range resp.Rows {
			if len(r.Keys) < len(dimensions) {
				continue
			}
			rows = append(rows, Row{
				Query:       r.Keys[0],
				Page:        r.Keys[1],
				Country:     r.Keys[2],
				Clicks:      r.Clicks,
				Impressions: r.Impressions,
				CTR:         r.Ctr,
				Position:    r.Position,
			})
		}

		if len(resp.Rows) < size {
			break
		}
		start += size
	}
	return rows, nil
}
