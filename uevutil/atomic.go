package uevutil

import "sync/atomic"

// AtomicMaxInt64 raises *target to value if value is larger, returning
// whichever won.  Used to track high-water marks without a lock.
func AtomicMaxInt64(target *int64, value int64) int64 {
	for {
		old := atomic.LoadInt64(target)
		if old >= value {
			return old
		}
		if atomic.CompareAndSwapInt64(target, old, value) {
			return value
		}
	}
}
