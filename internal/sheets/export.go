// Package sheets loads the spreadsheet-backed inputs: click logs, filter
// rules and the tracked domain list. A source is either a Google Sheets
// link, a plain CSV URL or a local .csv/.xlsx file.
package sheets

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNotSheetsURL is returned when a link is not a Google Sheets document.
var ErrNotSheetsURL = errors.New("not a google sheets url")

const sheetsHost = "docs.google.com"

// ExportURL converts a Google Sheets edit link into its CSV export link.
// The tab is taken from the gid fragment or query value, defaulting to the
// first tab.
func ExportURL(editURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(editURL))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNotSheetsURL, err)
	}
	if !strings.EqualFold(u.Hostname(), sheetsHost) {
		return "", fmt.Errorf("%w: %s", ErrNotSheetsURL, editURL)
	}

	// /spreadsheets/d/<doc>/edit
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 3 || parts[0] != "spreadsheets" || parts[1] != "d" || parts[2] == "" {
		return "", fmt.Errorf("%w: no document id in %s", ErrNotSheetsURL, editURL)
	}
	doc := parts[2]

	gid := u.Query().Get("gid")
	if frag, ferr := url.ParseQuery(u.Fragment); ferr == nil && frag.Get("gid") != "" {
		gid = frag.Get("gid")
	}
	if gid == "" {
		gid = "0"
	}

	return fmt.Sprintf("https://%s/spreadsheets/d/%s/export?format=csv&gid=%s",
		sheetsHost, url.PathEscape(doc), url.QueryEscape(gid)), nil
}

// IsSheetsURL reports whether ref points at docs.google.com.
func IsSheetsURL(ref string) bool {
	u, err := url.Parse(strings.TrimSpace(ref))
	return err == nil && strings.EqualFold(u.Hostname(), sheetsHost)
}

func isHTTPURL(ref string) bool {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
