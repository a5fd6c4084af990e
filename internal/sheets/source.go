package sheets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonesrussell/rankrecon/internal/logger"
	"github.com/jonesrussell/rankrecon/internal/retry"
	"github.com/jonesrussell/rankrecon/internal/table"
)

// Sheet names used by the report pipeline.
const (
	InHouseClicks  = "in_house_clicks"
	SerpClixClicks = "serpclix_clicks"
	FilterRules    = "filter_rules"
	Domains        = "domains"
)

// maxDownloadBytes bounds a single export download unless
// HTTPSource.MaxBytes overrides it.
const maxDownloadBytes = 64 << 20

// ErrTooLarge is returned when an export exceeds the download limit.
var ErrTooLarge = errors.New("sheet export exceeds download limit")

// Source fetches a named sheet as a table.
type Source interface {
	Fetch(ctx context.Context, name string) (*table.Table, error)
}

// HTTPSource downloads CSV exports. Every successful download is cached
// as <CacheDir>/<name>.csv; a failed download falls back to that copy.
type HTTPSource struct {
	Client   *http.Client
	CacheDir string
	Retry    retry.Config
	Log      logger.Logger
	// MaxBytes caps one download; zero means 64 MiB.
	MaxBytes int64
}

// Get downloads ref (a Google Sheets link or plain CSV URL) under name.
func (s *HTTPSource) Get(ctx context.Context, name, ref string) (*table.Table, error) {
	target := ref
	if IsSheetsURL(ref) {
		exp, err := ExportURL(ref)
		if err != nil {
			return nil, err
		}
		target = exp
	}

	start := time.Now()
	var body []byte
	err := retry.Do(ctx, s.Retry, func() error {
		b, derr := s.download(ctx, target)
		if derr != nil {
			return derr
		}
		body = b
		return nil
	})
	if err != nil {
		if cached, cerr := s.cached(name); cerr == nil {
			s.log().Warn("Sheet download failed, using cached copy",
				logger.String("sheet", name),
				logger.Error(err),
			)
			return cached, nil
		}
		return nil, fmt.Errorf("download sheet %s: %w", name, err)
	}

	s.log().Debug("Downloaded sheet",
		logger.String("sheet", name),
		logger.Int("bytes", len(body)),
		logger.Duration("duration", time.Since(start)),
	)

	if err = s.store(name, body); err != nil {
		s.log().Warn("Failed to cache sheet", logger.String("sheet", name), logger.Error(err))
	}

	t, err := table.Read(bytes.NewReader(body), ',')
	if err != nil {
		return nil, fmt.Errorf("parse sheet %s: %w", name, err)
	}
	return t, nil
}

func (s *HTTPSource) download(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("create request: %w", err))
	}

	client := s.Client
	if client == nil {
		client = NewHTTPClient(0)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	limit := s.maxBytes()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, limit))
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, retry.Permanent(fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit))
	}
	return body, nil
}

func (s *HTTPSource) maxBytes() int64 {
	if s.MaxBytes > 0 {
		return s.MaxBytes
	}
	return maxDownloadBytes
}

func (s *HTTPSource) cachePath(name string) string {
	return filepath.Join(s.CacheDir, name+".csv")
}

func (s *HTTPSource) store(name string, body []byte) error {
	if s.CacheDir == "" {
		return nil
	}
	if err := os.MkdirAll(s.CacheDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.cachePath(name), body, 0o600)
}

func (s *HTTPSource) cached(name string) (*table.Table, error) {
	if s.CacheDir == "" {
		return nil, os.ErrNotExist
	}
	return table.ReadFile(s.cachePath(name))
}

func (s *HTTPSource) log() logger.Logger {
	if s.Log == nil {
		return logger.NewNop()
	}
	return s.Log
}

// Loader resolves sheet names to their configured references.
type Loader struct {
	refs map[string]string
	web  *HTTPSource
}

// NewLoader builds a Loader over refs (sheet name to link or path).
func NewLoader(refs map[string]string, web *HTTPSource) *Loader {
	return &Loader{refs: refs, web: web}
}

// ErrUnknownSheet is returned for a sheet name without a configured source.
var ErrUnknownSheet = errors.New("sheet source not configured")

// Fetch loads the sheet registered under name.
func (l *Loader) Fetch(ctx context.Context, name string) (*table.Table, error) {
	ref := strings.TrimSpace(l.refs[name])
	if ref == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSheet, name)
	}
	if isHTTPURL(ref) {
		if l.web == nil {
			return nil, fmt.Errorf("sheet %s: no http source configured", name)
		}
		return l.web.Get(ctx, name, ref)
	}
	t, err := table.ReadFile(ref)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", name, err)
	}
	return t, nil
}
