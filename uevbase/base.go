// Package uevbase defines the interface between the span/event engine
// and the wire encoders.  There can be multiple Encoder implementations;
// the bridge ships two (uevnative and uevcs).
package uevbase

import (
	"time"

	"github.com/uevlog/uev-go/uevnum"
	"github.com/uevlog/uev-go/uevtrace"
)

// SpanView is a read-only borrowed view of a live span record.  It is
// consumed only by encoders, which must not retain it past the call.
type SpanView interface {
	ID() uint64
	// Parent returns 0 when the span has no parent.
	Parent() uint64
	Name() string
	Level() uevnum.Level
	StartTime() time.Time
	ActivityID() uevtrace.ActivityID
	RelatedActivityID() uevtrace.ActivityID
	// Fields iterates declared fields in declaration order.  Return
	// false from the callback to stop early.
	Fields(func(name string, value FieldValue) bool)
}

// Encoder serializes events and span snapshots into a wire buffer and
// hands the buffer to the channel.  Implementations are safe for
// concurrent use; the scratch buffer they encode into is never shared
// between goroutines.
//
// Encoding is fire-and-forget: a failed channel write is reported to
// the encoder's error reporter, never returned to the caller.
type Encoder interface {
	// WriteEvent serializes a point-in-time event.  currentSpan and
	// parentSpan are zero when the event is outside any span.
	WriteEvent(ts time.Time, currentSpan, parentSpan uint64, name string,
		level uevnum.Level, keyword uint64, tag uint32, fields []Field)

	// WriteSpanStart emits the span entry record.  Encoders for
	// schemas that only document span completion implement this as a
	// no-op.
	WriteSpanStart(view SpanView, keyword uint64, tag uint32)

	// WriteSpanStop emits the span completion record with the
	// start/stop timestamp pair captured by the tracker.
	WriteSpanStop(start, stop time.Time, view SpanView, keyword uint64, tag uint32)
}
