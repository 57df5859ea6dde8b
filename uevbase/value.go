package uevbase

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Kind discriminates FieldValue.  The zero value is KindNone: a field
// that was declared but never recorded.
type Kind int

const (
	KindNone Kind = iota
	KindUint64
	KindInt64
	KindUint128
	KindInt128
	KindFloat64
	KindBool
	KindString
	KindChar
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindUint64:
		return "uint64"
	case KindInt64:
		return "int64"
	case KindUint128:
		return "uint128"
	case KindInt128:
		return "int128"
	case KindFloat64:
		return "float64"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindChar:
		return "char"
	default:
		return fmt.Sprintf("kind-%d", int(k))
	}
}

// FieldValue is a loggable value.  It is a tagged union rather than an
// interface{} so that recording a field on the hot path does not
// allocate.  128-bit values are carried as 16 little-endian bytes.
type FieldValue struct {
	kind Kind
	num  uint64 // uint64, int64 bits, float64 bits, bool, char code point
	wide [16]byte
	str  string
}

func Uint64Value(v uint64) FieldValue { return FieldValue{kind: KindUint64, num: v} }

func Int64Value(v int64) FieldValue { return FieldValue{kind: KindInt64, num: uint64(v)} }

func Float64Value(v float64) FieldValue {
	return FieldValue{kind: KindFloat64, num: math.Float64bits(v)}
}

func BoolValue(v bool) FieldValue {
	var n uint64
	if v {
		n = 1
	}
	return FieldValue{kind: KindBool, num: n}
}

func StringValue(v string) FieldValue { return FieldValue{kind: KindString, str: v} }

func CharValue(v rune) FieldValue { return FieldValue{kind: KindChar, num: uint64(v)} }

// Uint128Value builds a 128-bit unsigned value from its high and low
// 64-bit halves.
func Uint128Value(hi, lo uint64) FieldValue {
	v := FieldValue{kind: KindUint128}
	binary.LittleEndian.PutUint64(v.wide[0:8], lo)
	binary.LittleEndian.PutUint64(v.wide[8:16], hi)
	return v
}

// Int128Value builds a 128-bit signed value from its high and low
// halves.  The wire representation is identical to Uint128Value;
// only the kind differs.
func Int128Value(hi, lo uint64) FieldValue {
	v := Uint128Value(hi, lo)
	v.kind = KindInt128
	return v
}

func (v FieldValue) Kind() Kind { return v.kind }

func (v FieldValue) IsNone() bool { return v.kind == KindNone }

// Uint64 is valid for KindUint64.
func (v FieldValue) Uint64() uint64 { return v.num }

// Int64 is valid for KindInt64.
func (v FieldValue) Int64() int64 { return int64(v.num) }

// Float64 is valid for KindFloat64.
func (v FieldValue) Float64() float64 { return math.Float64frombits(v.num) }

// Bool is valid for KindBool.
func (v FieldValue) Bool() bool { return v.num != 0 }

// String is valid for KindString.  For other kinds it returns a
// debugging rendition, following the fmt.Stringer convention.
func (v FieldValue) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNone:
		return ""
	default:
		return fmt.Sprintf("%s(%d)", v.kind, v.num)
	}
}

// Char is valid for KindChar.
func (v FieldValue) Char() rune { return rune(v.num) }

// Wide returns the 16-byte little-endian payload of a 128-bit value.
func (v FieldValue) Wide() [16]byte { return v.wide }

// Field pairs a name with a value for the encoder call interfaces.
type Field struct {
	Name  string
	Value FieldValue
}
