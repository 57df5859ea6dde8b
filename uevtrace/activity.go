// Package uevtrace holds the correlation identifiers that tie spans and
// events together on the wire.  An ActivityID is the collector-side
// correlation key: 16 bytes where byte 0 is a presence flag and bytes
// 8-15 carry the little-endian 64-bit span id.  Bytes 1-7 come from a
// per-process random seed so ids from different processes do not
// collide.
package uevtrace

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"sync"
	"time"
)

// ActivityID is immutable once built.  The zero value is "not set".
type ActivityID struct {
	b [16]byte
}

var (
	seedOnce sync.Once
	seed     [16]byte
)

// Seed returns the process-wide activity seed with the presence flag
// clear.  It is derived once, from crypto/rand with a clock fallback.
func Seed() [16]byte {
	seedOnce.Do(func() {
		if _, err := rand.Read(seed[:8]); err != nil {
			binary.LittleEndian.PutUint64(seed[:8], uint64(time.Now().UnixNano()))
		}
		seed[0] = 0
	})
	return seed
}

// New derives the activity id for a span.  A zero span id yields an
// unset ActivityID (the root of a trace has no activity of its own).
func New(spanID uint64) ActivityID {
	if spanID == 0 {
		return ActivityID{}
	}
	var a ActivityID
	a.b = Seed()
	binary.LittleEndian.PutUint64(a.b[8:], spanID)
	a.b[0] = 1
	return a
}

func (a ActivityID) IsSet() bool { return a.b[0] != 0 }

// Bytes returns the raw 16-byte id for the native channel write.
func (a ActivityID) Bytes() [16]byte { return a.b }

// SpanID recovers the span id embedded in the activity id.
func (a ActivityID) SpanID() uint64 {
	if !a.IsSet() {
		return 0
	}
	return binary.LittleEndian.Uint64(a.b[8:])
}

func (a ActivityID) String() string {
	var h [32]byte
	hex.Encode(h[:], a.b[:])
	return string(h[:])
}

// SpanIDHex renders a span id the way the Common Schema encoder wants
// it: 16 lowercase hex characters, zero padded.
func SpanIDHex(spanID uint64) string {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], spanID)
	var h [16]byte
	hex.Encode(h[:], b[:])
	return string(h[:])
}
