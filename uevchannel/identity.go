package uevchannel

import (
	"crypto/sha1"
	"strings"
	"unicode/utf16"

	"github.com/google/uuid"
)

// Identity is the 128-bit channel/provider id.
type Identity = uuid.UUID

// namespaceBytes is the well-known namespace GUID used by native
// tracing stacks for name-to-id derivation, in big-endian wire order.
var namespaceBytes = [16]byte{
	0x48, 0x2C, 0x2D, 0xB2, 0xC3, 0x90, 0x47, 0xC8,
	0x87, 0xF8, 0x1A, 0x15, 0xBF, 0xC1, 0x30, 0xFB,
}

// IdentityFromName derives a stable channel identity from a name:
// SHA-1 over the namespace GUID followed by the upper-cased name in
// UTF-16BE, with the version nibble set to 5.  The same name always
// yields the same identity, in any process, matching what collector
// tooling computes on its side.
func IdentityFromName(name string) Identity {
	h := sha1.New()
	h.Write(namespaceBytes[:])
	for _, u := range utf16.Encode([]rune(strings.ToUpper(name))) {
		h.Write([]byte{byte(u >> 8), byte(u)})
	}
	sum := h.Sum(nil)

	var id Identity
	copy(id[:], sum[:16])
	id[6] = (id[6] & 0x0F) | 0x50
	id[8] = (id[8] & 0x3F) | 0x80
	return id
}
