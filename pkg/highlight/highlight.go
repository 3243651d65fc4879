// Package highlight runs a parser and a compiled rule set over a source
// buffer, and presents the resulting spans.
package highlight

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/macropower/crumbs/pkg/log"
	"github.com/macropower/crumbs/pkg/syntax"
	"github.com/macropower/crumbs/pkg/tree"
)

// Highlighter pairs a [tree.Parser] with a compiled rule set.
//
// A Highlighter is safe for concurrent use; calls are serialized because the
// underlying [syntax.Matcher] processes one traversal at a time.
type Highlighter struct {
	parser  tree.Parser
	matcher *syntax.Matcher
	tracer  trace.Tracer
	mu      sync.Mutex
}

// New creates a new [Highlighter].
func New(p tree.Parser, m *syntax.Matcher) *Highlighter {
	return &Highlighter{
		parser:  p,
		matcher: m,
		tracer:  otel.Tracer("highlight"),
	}
}

// Highlight parses src and returns its resolved spans.
func (h *Highlighter) Highlight(ctx context.Context, src []byte) ([]syntax.Span, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ctx, span := h.tracer.Start(ctx, "highlight", trace.WithAttributes(
		attribute.Int("bytes", len(src)),
		attribute.Int("patterns", h.matcher.Patterns()),
	))
	defer span.End()

	start := time.Now()

	spans, err := h.matcher.Walk(ctx, h.parser, src)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err //nolint:wrapcheck // Already wrapped by the matcher.
	}

	span.SetAttributes(attribute.Int("spans", len(spans)))

	log.WithContext(ctx).Debug("highlighted source",
		slog.String("size", humanize.Bytes(uint64(len(src)))),
		slog.Int("spans", len(spans)),
		slog.Duration("took", time.Since(start)),
	)

	return spans, nil
}

// Breadcrumbs parses src and returns every located leaf with its
// breadcrumb path.
func Breadcrumbs(ctx context.Context, p tree.Parser, src []byte) ([]tree.Crumb, error) {
	trail := tree.NewTrail()

	err := p.Parse(ctx, src, trail)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	return trail.Leaves(), nil
}
