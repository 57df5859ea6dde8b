// Package uevutil has the low-level byte building shared by the wire
// encoders.
package uevutil

import (
	"encoding/binary"
	"io"
	"strconv"
	"unicode/utf8"
)

// Builder is a reusable scratch buffer with both JSON-text and
// little-endian binary append primitives.  A Builder grows to the
// largest event it has seen and never shrinks; see GetBuilder.
type Builder struct {
	B []byte
}

var _ io.Writer = &Builder{}

func (b *Builder) Reset() {
	b.B = b.B[:0]
}

func (b *Builder) AppendByte(v byte) {
	b.B = append(b.B, v)
}

// AppendBytes adds the bytes without wrapping or checking.
func (b *Builder) AppendBytes(v []byte) {
	b.B = append(b.B, v...)
}

// AppendString adds the bytes without wrapping or checking.
func (b *Builder) AppendString(v string) {
	b.B = append(b.B, v...)
}

// Write allows Builder to be an io.Writer.
func (b *Builder) Write(v []byte) (int, error) {
	b.B = append(b.B, v...)
	return len(v), nil
}

// Comma adds a comma if one is needed based on what is already in the
// buffer: not after '{', '[', ':', or at the start.
func (b *Builder) Comma() {
	if len(b.B) == 0 {
		return
	}
	switch b.B[len(b.B)-1] {
	case '[', '{', ':':
		return
	}
	b.B = append(b.B, ',')
}

// AddSafeString adds a JSON-encoded string that is known to not need
// escaping.
func (b *Builder) AddSafeString(v string) {
	b.B = append(b.B, '"')
	b.AppendString(v)
	b.B = append(b.B, '"')
}

// AddString adds a JSON-encoded string.
func (b *Builder) AddString(v string) {
	b.B = append(b.B, '"')
	b.AddStringBody(v)
	b.B = append(b.B, '"')
}

const hexDigits = "0123456789abcdef"

// AddStringBody JSON-escapes v into the buffer without the surrounding
// quotes.
func (b *Builder) AddStringBody(v string) {
	start := 0
	for i := 0; i < len(v); {
		c := v[i]
		if c < utf8.RuneSelf {
			if c >= 0x20 && c != '"' && c != '\\' {
				i++
				continue
			}
			b.B = append(b.B, v[start:i]...)
			switch c {
			case '"':
				b.B = append(b.B, '\\', '"')
			case '\\':
				b.B = append(b.B, '\\', '\\')
			case '\n':
				b.B = append(b.B, '\\', 'n')
			case '\r':
				b.B = append(b.B, '\\', 'r')
			case '\t':
				b.B = append(b.B, '\\', 't')
			default:
				b.B = append(b.B, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xF])
			}
			i++
			start = i
			continue
		}
		r, size := utf8.DecodeRuneInString(v[i:])
		if r == utf8.RuneError && size == 1 {
			b.B = append(b.B, v[start:i]...)
			b.B = append(b.B, '\\', 'u', 'f', 'f', 'f', 'd')
			i += size
			start = i
			continue
		}
		i += size
	}
	b.B = append(b.B, v[start:]...)
}

// AddKey calls Comma and then adds "key": with escaping.
func (b *Builder) AddKey(v string) {
	b.Comma()
	b.AddString(v)
	b.B = append(b.B, ':')
}

// AddSafeKey is AddKey for keys known to not need escaping.
func (b *Builder) AddSafeKey(v string) {
	b.Comma()
	b.B = append(b.B, '"')
	b.B = append(b.B, v...)
	b.B = append(b.B, '"', ':')
}

func (b *Builder) AddUint64(i uint64) {
	b.B = strconv.AppendUint(b.B, i, 10)
}

func (b *Builder) AddInt64(i int64) {
	b.B = strconv.AppendInt(b.B, i, 10)
}

func (b *Builder) AddFloat64(f float64) {
	b.B = strconv.AppendFloat(b.B, f, 'f', -1, 64)
}

func (b *Builder) AddBool(v bool) {
	b.B = strconv.AppendBool(b.B, v)
}

// Binary primitives, all little-endian.

func (b *Builder) U8(v uint8) {
	b.B = append(b.B, v)
}

func (b *Builder) U16(v uint16) {
	b.B = binary.LittleEndian.AppendUint16(b.B, v)
}

func (b *Builder) U32(v uint32) {
	b.B = binary.LittleEndian.AppendUint32(b.B, v)
}

func (b *Builder) U64(v uint64) {
	b.B = binary.LittleEndian.AppendUint64(b.B, v)
}

// Str16 writes a 16-bit length prefix followed by the raw bytes.
// Strings longer than 64KiB are truncated to fit the prefix.
func (b *Builder) Str16(v string) {
	if len(v) > 0xFFFF {
		v = v[:0xFFFF]
	}
	b.U16(uint16(len(v)))
	b.B = append(b.B, v...)
}
