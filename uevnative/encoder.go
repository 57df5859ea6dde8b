// Package uevnative encodes events and spans into the compact native
// wire format: a fixed header, a typed timestamp field, then typed
// fields, with activity ids passed to the channel out of band.
package uevnative

import (
	"sync/atomic"
	"time"

	"github.com/uevlog/uev-go/uevbase"
	"github.com/uevlog/uev-go/uevchannel"
	"github.com/uevlog/uev-go/uevnum"
	"github.com/uevlog/uev-go/uevtrace"
	"github.com/uevlog/uev-go/uevutil"
)

// Magic opens every native buffer; the '1' is the schema version.
var Magic = [4]byte{'U', 'E', 'V', '1'}

// Opcodes, one per record kind.
const (
	OpcodeInfo          = 1
	OpcodeActivityStart = 2
	OpcodeActivityStop  = 3
)

// Field type bytes.
const (
	TypeUint64  = 1
	TypeInt64   = 2
	TypeUint128 = 3
	TypeInt128  = 4
	TypeFloat64 = 5
	TypeBool    = 6
	TypeString  = 7
	TypeChar    = 8
	TypeTime    = 9
)

type Option func(*Encoder)

// WithErrorReporter sets the function that receives channel write
// failures.  Writes are fire-and-forget; this is the only place a
// failure surfaces.
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

func (e *Encoder) ErrorCount() int32 { return atomic.LoadInt32(&e.errorCount) }

// MaxEventSize reports the largest buffer encoded so far.
func (e *Encoder) MaxEventSize() int64 { return atomic.LoadInt64(&e.maxEventSize) }

func header(b *uevutil.Builder, opcode byte, level uevnum.Level, keyword uint64, tag uint32, name string) {
	b.AppendBytes(Magic[:])
	b.U8(opcode)
	b.U8(uint8(level))
	b.U64(keyword)
	b.U32(tag)
	b.Str16(name)
}

func timeField(b *uevutil.Builder, name string, ts time.Time) {
	b.Str16(name)
	b.U8(TypeTime)
	b.U64(uint64(ts.Unix()))
}

func addField(b *uevutil.Builder, name string, v uevbase.FieldValue) {
	if v.IsNone() {
		return
	}
	b.Str16(name)
	switch v.Kind() {
	case uevbase.KindUint64:
		b.U8(TypeUint64)
		b.U64(v.Uint64())
	case uevbase.KindInt64:
		b.U8(TypeInt64)
		b.U64(uint64(v.Int64()))
	case uevbase.KindUint128:
		b.U8(TypeUint128)
		wide := v.Wide()
		b.AppendBytes(wide[:])
	case uevbase.KindInt128:
		b.U8(TypeInt128)
		wide := v.Wide()
		b.AppendBytes(wide[:])
	case uevbase.KindFloat64:
		b.U8(TypeFloat64)
		b.U64(v.Uint64()) // already the float bits
	case uevbase.KindBool:
		b.U8(TypeBool)
		if v.Bool() {
			b.U8(1)
		} else {
			b.U8(0)
		}
	case uevbase.KindString:
		b.U8(TypeString)
		b.Str16(v.String())
	case uevbase.KindChar:
		b.U8(TypeChar)
		b.U16(uint16(v.Char()))
	}
}

func (e *Encoder) write(b *uevutil.Builder, activityID, relatedActivityID uevtrace.ActivityID) {
	uevutil.AtomicMaxInt64(&e.maxEventSize, int64(len(b.B)))
	var aid, rid *uevtrace.ActivityID
	if activityID.IsSet() {
		aid = &activityID
	}
	if relatedActivityID.IsSet() {
		rid = &relatedActivityID
	}
	if err := e.channel.Write(b.B, aid, rid); err != nil {
		atomic.AddInt32(&e.errorCount, 1)
		e.errorFunc(err)
	}
}

func (e *Encoder) WriteEvent(ts time.Time, currentSpan, parentSpan uint64, name string,
	level uevnum.Level, keyword uint64, tag uint32, fields []uevbase.Field,
) {
	uevchannel.EnsureSet(e.channel, level, keyword)

	b := uevutil.GetBuilder()
	defer uevutil.PutBuilder(b)

	header(b, OpcodeInfo, level, keyword, tag, name)
	timeField(b, "time", ts)
	for _, f := range fields {
		addField(b, f.Name, f.Value)
	}

	e.write(b, uevtrace.New(currentSpan), uevtrace.New(parentSpan))
}

func (e *Encoder) WriteSpanStart(view uevbase.SpanView, keyword uint64, tag uint32) {
	uevchannel.EnsureSet(e.channel, view.Level(), keyword)

	b := uevutil.GetBuilder()
	defer uevutil.PutBuilder(b)

	header(b, OpcodeActivityStart, view.Level(), keyword, tag, view.Name())
	timeField(b, "start time", view.StartTime())
	view.Fields(func(name string, v uevbase.FieldValue) bool {
		addField(b, name, v)
		return true
	})

	e.write(b, view.ActivityID(), view.RelatedActivityID())
}

// WriteSpanStop only encodes the stop time; the paired start time was
// already emitted on the start record.
func (e *Encoder) WriteSpanStop(start, stop time.Time, view uevbase.SpanView, keyword uint64, tag uint32) {
	uevchannel.EnsureSet(e.channel, view.Level(), keyword)

	b := uevutil.GetBuilder()
	defer uevutil.PutBuilder(b)

	header(b, OpcodeActivityStop, view.Level(), keyword, tag, view.Name())
	timeField(b, "stop time", stop)
	view.Fields(func(name string, v uevbase.FieldValue) bool {
		addField(b, name, v)
		return true
	})

	e.write(b, view.ActivityID(), view.RelatedActivityID())
}
