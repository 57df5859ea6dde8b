package uevchannel

import "github.com/uevlog/uev-go/uevnum"

// EnsureSet returns the event set for (level, keyword), registering it
// lazily on first use.  Encoders call this on every write; the common
// case is the read-locked FindSet hit.
func EnsureSet(ch Channel, level uevnum.Level, keyword uint64) *EventSet {
	if es := ch.FindSet(level, keyword); es != nil {
		return es
	}
	return ch.RegisterSet(level, keyword)
}
