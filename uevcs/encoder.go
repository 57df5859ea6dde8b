// Package uevcs encodes events and span completions as Common Schema
// 4.0 documents: a JSON object with PartA (envelope), PartB (record
// body), and PartC (caller fields).  Only span completion is
// documented by the schema, so span starts are not emitted.
package uevcs

import (
	"encoding/hex"
	"sync/atomic"
	"time"

	"github.com/uevlog/uev-go/uevbase"
	"github.com/uevlog/uev-go/uevchannel"
	"github.com/uevlog/uev-go/uevnum"
	"github.com/uevlog/uev-go/uevtrace"
	"github.com/uevlog/uev-go/uevutil"
)

// Version is the __csver__ value: 0x0401, Common Schema 4.1.
const Version = 0x0401

type Option func(*Encoder)

// WithErrorReporter sets the function that receives channel write
// failures.
func WithErrorReporter(f func(error)) Option {
	return func(e *Encoder) {
		e.errorFunc = f
	}
}

type Encoder struct {
	channel      uevchannel.Channel
	errorFunc    func(error)
	errorCount   int32
	maxEventSize int64
}

var _ uevbase.Encoder = &Encoder{}

func New(ch uevchannel.Channel, opts ...Option) *Encoder {
	e := &Encoder{
		channel:   ch,
		errorFunc: func(error) {},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Encoder) ErrorCount() int32   { return atomic.LoadInt32(&e.errorCount) }
func (e *Encoder) MaxEventSize() int64 { return atomic.LoadInt64(&e.maxEventSize) }

// addPartCField translates one caller field.  A field literally named
// "message" is promoted to the document body slot; its value is
// assumed to be a string.  Fields that were declared but never
// recorded are dropped.
func addPartCField(b *uevutil.Builder, name string, v uevbase.FieldValue) {
	if v.IsNone() {
		return
	}
	if name == "message" {
		name = "Body"
	}
	b.AddKey(name)
	switch v.Kind() {
	case uevbase.KindUint64:
		b.AddUint64(v.Uint64())
	case uevbase.KindInt64:
		b.AddInt64(v.Int64())
	case uevbase.KindUint128, uevbase.KindInt128:
		// Fixed-width binary: 16 little-endian bytes rendered as hex.
		wide := v.Wide()
		var h [32]byte
		hex.Encode(h[:], wide[:])
		b.AppendByte('"')
		b.AppendBytes(h[:])
		b.AppendByte('"')
	case uevbase.KindFloat64:
		b.AddFloat64(v.Float64())
	case uevbase.KindBool:
		b.AddBool(v.Bool())
	case uevbase.KindString:
		b.AddString(v.String())
	case uevbase.KindChar:
		b.AddString(string(rune(uint16(v.Char()))))
	}
}

func (e *Encoder) write(b *uevutil.Builder) {
	uevutil.AtomicMaxInt64(&e.maxEventSize, int64(len(b.B)))
	if err := e.channel.Write(b.B, nil, nil); err != nil {
		atomic.AddInt32(&e.errorCount, 1)
		e.errorFunc(err)
	}
}

// WriteEvent emits a Log document.  The schema has no related-activity
// slot for events, so parentSpan is not encoded.
func (e *Encoder) WriteEvent(ts time.Time, currentSpan, parentSpan uint64, name string,
	level uevnum.Level, keyword uint64, tag uint32, fields []uevbase.Field,
) {
	uevchannel.EnsureSet(e.channel, level, keyword)

	b := uevutil.GetBuilder()
	defer uevutil.PutBuilder(b)

	timestamp := ts.UTC().Format(time.RFC3339)

	b.AppendString(`{"__csver__":`)
	b.AddUint64(Version)
	b.AppendString(`,"PartA":{"time":`)
	b.AddSafeString(timestamp)
	if currentSpan != 0 {
		b.AppendString(`,"ext_dt":{"traceId":"","spanId":`)
		b.AddSafeString(uevtrace.SpanIDHex(currentSpan))
		b.AppendByte('}')
	}
	b.AppendString(`},"PartB":{"_typeName":"Log","name":`)
	b.AddString(name)
	b.AppendString(`,"eventTime":`)
	b.AddSafeString(timestamp)
	b.AppendString(`},"PartC":{`)
	for _, f := range fields {
		addPartCField(b, f.Name, f.Value)
	}
	b.AppendString("}}")

	e.write(b)
}

// WriteSpanStart is a no-op: Common Schema only documents span
// completion, not entry.
func (e *Encoder) WriteSpanStart(uevbase.SpanView, uint64, uint32) {}

func (e *Encoder) WriteSpanStop(start, stop time.Time, view uevbase.SpanView, keyword uint64, tag uint32) {
	uevchannel.EnsureSet(e.channel, view.Level(), keyword)

	b := uevutil.GetBuilder()
	defer uevutil.PutBuilder(b)

	b.AppendString(`{"__csver__":`)
	b.AddUint64(Version)
	b.AppendString(`,"PartA":{"time":`)
	b.AddSafeString(stop.UTC().Format(time.RFC3339))
	b.AppendString(`,"ext_dt":{"traceId":"","spanId":`)
	b.AddSafeString(uevtrace.SpanIDHex(view.ID()))
	b.AppendString(`}},"PartB":{"_typeName":"Span"`)
	if parent := view.Parent(); parent != 0 {
		b.AppendString(`,"parentId":`)
		b.AddSafeString(uevtrace.SpanIDHex(parent))
	}
	b.AppendString(`,"name":`)
	b.AddString(view.Name())
	b.AppendString(`,"startTime":`)
	b.AddSafeString(start.UTC().Format(time.RFC3339))
	b.AppendString(`},"PartC":{`)
	view.Fields(func(name string, v uevbase.FieldValue) bool {
		addPartCField(b, name, v)
		return true
	})
	b.AppendString("}}")

	e.write(b)
}
