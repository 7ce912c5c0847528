// Package export turns an aggregated summary into downloadable documents.
package export

import (
	"errors"
	"fmt"
	"io"
	"time"

	"teamreports/internal/core"
)

const Title = "Master Report"

var (
	ErrNotImplemented = errors.New("export format not implemented")
	ErrRender         = errors.New("render document")
)

// Renderer writes summaries as documents. It holds no per-call state and is
// safe for concurrent use.
type Renderer struct {
	now      func() time.Time
	compress bool
}

type Option func(*Renderer)

// WithClock fixes the timestamp embedded in document metadata.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) { r.now = now }
}

// WithCompression toggles PDF stream compression.
func WithCompression(on bool) Option {
	return func(r *Renderer) { r.compress = on }
}

func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{now: time.Now, compress: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render encodes s in format f onto w. The summary is only read.
func (r *Renderer) Render(w io.Writer, s core.Summary, f Format) error {
	var err error
	switch f {
	case FormatPDF:
		err = r.renderPDF(w, s.Entries())
	case FormatSpreadsheet:
		err = r.renderSpreadsheet(w, s.Entries())
	case FormatImage:
		return ErrNotImplemented
	default:
		return ErrUnknownFormat
	}
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrRender, f, err)
	}
	return nil
}

// EntryLine is the text line used for one summary entry.
func EntryLine(e core.AggregateEntry) string {
	return fmt.Sprintf("Category: %s, Total: %s", e.Category, e.Total.String())
}
