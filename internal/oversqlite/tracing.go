package oversqlite

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// tracerName matches the otel convention of naming the tracer after the
// instrumented package, mirrored from the host's hooks_otel.go wrapping of
// external-process boundaries in spans.
const tracerName = "github.com/oversqlite/oversqlite"

func tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// startOpSpan opens a span around one of the three network-facing
// operations (upload_once, download_once, hydrate) and returns it alongside
// a derived context, following the host's pattern of wrapping a boundary the
// library doesn't control in a span rather than instrumenting every internal
// call.
func startOpSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer().Start(ctx, name)
}

func setUploadAttributes(span trace.Span, summary UploadSummary) {
	span.SetAttributes(
		attribute.Int("oversqlite.total", summary.Total),
		attribute.Int("oversqlite.applied", summary.Applied),
		attribute.Int("oversqlite.conflict", summary.Conflict),
		attribute.Int("oversqlite.invalid", summary.Invalid),
		attribute.Int("oversqlite.materialize_error", summary.MaterializeError),
	)
}

func setDownloadAttributes(span trace.Span, applied int, newCursor int64) {
	span.SetAttributes(
		attribute.Int("oversqlite.applied", applied),
		attribute.String("oversqlite.new_cursor", strconv.FormatInt(newCursor, 10)),
	)
}

func addVerdictEvent(span trace.Span, table string, status VerdictStatus) {
	span.AddEvent("oversqlite.verdict", trace.WithAttributes(
		attribute.String("table", table),
		attribute.String("status", string(status)),
	))
}
