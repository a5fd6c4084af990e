package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/jonesrussell/rankrecon/internal/domain"
	"github.com/jonesrussell/rankrecon/internal/logger"
	"github.com/jonesrussell/rankrecon/internal/pipeline"
)

const bulkBatchSize = 500

// reportDocument is one indexed report row.
type reportDocument struct {
	domain.ReportRow
	RunID     string    `json:"run_id"`
	Anchor    string    `json:"anchor"`
	IndexedAt time.Time `json:"indexed_at"`
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error,omitempty"`
	} `json:"items"`
}

// Elasticsearch bulk-indexes report rows, one document per row.
type Elasticsearch struct {
	client *es.Client
	index  string
	log    logger.Logger
}

// NewElasticsearch builds an index sink writing to index.
func NewElasticsearch(client *es.Client, index string, log logger.Logger) *Elasticsearch {
	if log == nil {
		log = logger.NewNop()
	}
	return &Elasticsearch{client: client, index: index, log: log}
}

// Name implements pipeline.Sink.
func (e *Elasticsearch) Name() string { return "elasticsearch" }

// DocumentID is run_id:query:page:country.
func DocumentID(runID string, r domain.ReportRow) string {
	return strings.Join([]string{runID, r.Query, r.Page, r.Country}, ":")
}

// Write implements pipeline.Sink.
func (e *Elasticsearch) Write(ctx context.Context, res *pipeline.Result) error {
	if len(res.Report) == 0 {
		return nil
	}
	runID := res.RunID.String()
	anchor := res.Anchor.Format(time.DateOnly)
	now := time.Now().UTC()

	for start := 0; start < len(res.Report); start += bulkBatchSize {
		end := min(start+bulkBatchSize, len(res.Report))

		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		for _, r := range res.Report[start:end] {
			meta := map[string]any{
				"index": map[string]any{"_index": e.index, "_id": DocumentID(runID, r)},
			}
			if err := enc.Encode(meta); err != nil {
				return fmt.Errorf("encode bulk meta: %w", err)
			}
			doc := reportDocument{ReportRow: r, RunID: runID, Anchor: anchor, IndexedAt: now}
			if err := enc.Encode(doc); err != nil {
				return fmt.Errorf("encode report document: %w", err)
			}
		}

		if err := e.bulk(ctx, &buf); err != nil {
			return err
		}
	}

	e.log.Info("Indexed report rows",
		logger.String("index", e.index),
		logger.Int("documents", len(res.Report)),
	)
	return nil
}

func (e *Elasticsearch) bulk(ctx context.Context, body *bytes.Buffer) error {
	res, err := e.client.Bulk(
		bytes.NewReader(body.Bytes()),
		e.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("bulk request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("bulk indexing error: %s", res.String())
	}

	var br bulkResponse
	if err = json.NewDecoder(res.Body).Decode(&br); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}
	if !br.Errors {
		return nil
	}

	failed := 0
	var first string
	for _, item := range br.Items {
		for _, op := range item {
			if op.Error == nil {
				continue
			}
			failed++
			if first == "" {
				first = fmt.Sprintf("%s: %s", op.Error.Type, op.Error.Reason)
			}
		}
	}
	return fmt.Errorf("bulk indexing: %d documents failed, first: %s", failed, first)
}
