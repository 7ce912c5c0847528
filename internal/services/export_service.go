package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"teamreports/internal/core"
	"teamreports/internal/export"
	"teamreports/internal/metrics"
	"teamreports/internal/store"
)

var ErrFetchRecords = errors.New("fetch records")

// Document is a fully rendered export ready to be sent.
type Document struct {
	Format      export.Format
	ContentType string
	Filename    string
	Categories  int
	Body        []byte
}

// ExportService runs the fetch, aggregate and render pipeline. Every call
// reads the current records; nothing is cached between calls.
type ExportService struct {
	records  store.RecordStore
	renderer *export.Renderer
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewExportService(records store.RecordStore, renderer *export.Renderer, m *metrics.Metrics) *ExportService {
	if renderer == nil {
		renderer = export.NewRenderer()
	}
	return &ExportService{records: records, renderer: renderer, metrics: m, now: time.Now}
}

// Export returns export.ErrNotImplemented for formats that cannot be
// rendered without touching the record store.
func (s *ExportService) Export(ctx context.Context, f export.Format) (Document, error) {
	start := s.now()
	if !f.Implemented() {
		s.metrics.ObserveExport(f.String(), metrics.OutcomeNotImplemented, 0, 0)
		return Document{}, export.ErrNotImplemented
	}

	records, err := s.records.FetchAll(ctx)
	if err != nil {
		s.metrics.ObserveExport(f.String(), metrics.OutcomeStoreError, 0, 0)
		return Document{}, fmt.Errorf("%w: %w", ErrFetchRecords, err)
	}

	summary := core.Aggregate(records)

	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, summary, f); err != nil {
		s.metrics.ObserveExport(f.String(), metrics.OutcomeRenderError, 0, 0)
		return Document{}, err
	}

	s.metrics.ObserveExport(f.String(), metrics.OutcomeSuccess, s.now().Sub(start), buf.Len())
	return Document{
		Format:      f,
		ContentType: f.ContentType(),
		Filename:    f.Filename(),
		Categories:  summary.Len(),
		Body:        buf.Bytes(),
	}, nil
}

// Summary aggregates the current records without rendering.
func (s *ExportService) Summary(ctx context.Context) (core.Summary, error) {
	records, err := s.records.FetchAll(ctx)
	if err != nil {
		return core.Summary{}, fmt.Errorf("%w: %w", ErrFetchRecords, err)
	}
	return core.Aggregate(records), nil
}
