// Package uevchannel abstracts the OS trace destination the encoders
// write completed buffers to.  The bridge only depends on the Channel
// interface; the real collector-backed implementations live with the
// platform glue, and uevrecorder provides an in-memory one for tests.
package uevchannel

import (
	"sync"
	"sync/atomic"

	"github.com/uevlog/uev-go/uevnum"
	"github.com/uevlog/uev-go/uevtrace"
)

// EventSet is the registered enablement handle for one (level,
// keyword) pair within a channel.  Enabled flips when a collector
// attaches or detaches.
type EventSet struct {
	level   uevnum.Level
	keyword uint64
	enabled atomic.Bool
}

func (es *EventSet) Level() uevnum.Level { return es.level }
func (es *EventSet) Keyword() uint64     { return es.keyword }
func (es *EventSet) Enabled() bool       { return es.enabled.Load() }

// SetEnabled is for channel implementations; the encoders only read.
func (es *EventSet) SetEnabled(v bool) { es.enabled.Store(v) }

// Channel is the trace destination.  Implementations must be safe for
// concurrent use.  Write is fire-and-forget from the bridge's point of
// view: a returned error is reported, never propagated to the logging
// caller.
type Channel interface {
	// RegisterSet returns the EventSet for (level, keyword), creating
	// it if needed.
	RegisterSet(level uevnum.Level, keyword uint64) *EventSet

	// FindSet returns the EventSet for (level, keyword) or nil.
	FindSet(level uevnum.Level, keyword uint64) *EventSet

	// Enabled reports whether a collector is listening for (level,
	// keyword).  An unregistered pair is disabled.
	Enabled(level uevnum.Level, keyword uint64) bool

	// SupportsEnableCallback reports whether OnEnableChange callbacks
	// fire when collector interest changes.  Channels without
	// callback support force the filter into its pull model.
	SupportsEnableCallback() bool

	// OnEnableChange registers a callback invoked whenever any event
	// set's enablement may have changed.  Only meaningful when
	// SupportsEnableCallback is true.
	OnEnableChange(func())

	// Write hands a completed wire buffer to the collector.  The
	// activity ids are passed out of band when set; nil means the
	// event has no correlation id.
	Write(buf []byte, activityID, relatedActivityID *uevtrace.ActivityID) error
}

type setKey struct {
	level   uevnum.Level
	keyword uint64
}

// SetRegistry is the (level, keyword) -> EventSet table concrete
// channels embed.  Guarded by its own lock, independent of the span
// tracker's.
type SetRegistry struct {
	mu   sync.RWMutex
	sets map[setKey]*EventSet
}

func (r *SetRegistry) FindSet(level uevnum.Level, keyword uint64) *EventSet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sets[setKey{level, keyword}]
}

func (r *SetRegistry) RegisterSet(level uevnum.Level, keyword uint64) *EventSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sets == nil {
		r.sets = make(map[setKey]*EventSet)
	}
	key := setKey{level, keyword}
	if es, ok := r.sets[key]; ok {
		return es
	}
	es := &EventSet{level: level, keyword: keyword}
	r.sets[key] = es
	return es
}

func (r *SetRegistry) Enabled(level uevnum.Level, keyword uint64) bool {
	if es := r.FindSet(level, keyword); es != nil {
		return es.Enabled()
	}
	return false
}

// SetAllEnabled flips every registered set, the way a collector
// attach/detach does.
func (r *SetRegistry) SetAllEnabled(v bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, es := range r.sets {
		es.SetEnabled(v)
	}
}
