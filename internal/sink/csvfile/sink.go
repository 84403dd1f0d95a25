// Package csvsink accumulates chart entries and writes them as one CSV
// object at the end of a run.
package csvsink

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/sdvx-chart-sync/internal/chart"
	"github.com/JakeFAU/sdvx-chart-sync/internal/logging"
	"github.com/JakeFAU/sdvx-chart-sync/internal/storage"
)

const contentType = "text/csv; charset=utf-8"

// Sink implements chart.Sink by buffering rows in memory.
type Sink struct {
	store  storage.BlobStore
	path   string
	rows   [][]string
	uri    string
	logger *zap.Logger
}

var _ chart.Sink = (*Sink)(nil)

// New returns a sink that writes to path in store on Finalize.
func New(store storage.BlobStore, path string, logger *zap.Logger) (*Sink, error) {
	if store == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if path == "" {
		return nil, fmt.Errorf("output path is required")
	}
	return &Sink{
		store:  store,
		path:   path,
		rows:   [][]string{chart.Header},
		logger: logging.Named(logger, "sink.csv"),
	}, nil
}

// Accept appends entry to the table.
func (s *Sink) Accept(_ context.Context, entry chart.Entry) error {
	s.rows = append(s.rows, entry.Row())
	return nil
}

// Rows returns the table including the header row.
func (s *Sink) Rows() [][]string {
	return s.rows
}

// Finalize encodes the table and writes it in a single PutObject call. The
// in-memory table is kept when the write fails.
func (s *Sink) Finalize(ctx context.Context) error {
	payload, err := Encode(s.rows)
	if err != nil {
		return err
	}
	uri, err := s.store.PutObject(ctx, s.path, contentType, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	s.uri = uri
	s.logger.Info("csv written", zap.String("uri", uri), zap.Int("entries", len(s.rows)-1))
	return nil
}

// URI reports where the last successful Finalize wrote the table.
func (s *Sink) URI() string {
	return s.uri
}

// Encode renders rows as UTF-8 CSV.
func Encode(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return buf.Bytes(), nil
}
