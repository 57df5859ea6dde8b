// Package uev bridges a structured event/span stream into OS-native
// trace wire formats.  A Layer accepts the front end's calls, decides
// per call whether a collector is listening, and when one is, encodes
// the event or span snapshot and hands the buffer to the channel.
// When nothing is listening a call returns after one filter check.
package uev

import (
	"sync/atomic"

	"github.com/zoobzio/clockz"

	"github.com/uevlog/uev-go/uevbase"
	"github.com/uevlog/uev-go/uevchannel"
	"github.com/uevlog/uev-go/uevmeta"
	"github.com/uevlog/uev-go/uevnum"
	"github.com/uevlog/uev-go/uevspan"
)

// RegisterSite records the static metadata for one log call site in
// the process-wide registry.  Call once per site, at program start;
// generated front-end code stands in for the link-time collection the
// design descends from.  Registering the same descriptor pointer more
// than once is harmless.
func RegisterSite(keyword uint64, identity uevmeta.SiteID, tag uint32) *uevmeta.SiteDescriptor {
	desc := &uevmeta.SiteDescriptor{
		Keyword:  keyword,
		Identity: identity,
		Tag:      tag,
	}
	uevmeta.Default().Register(desc)
	return desc
}

// Layer is one bridge instance: a channel, an encoder for one wire
// format, a span tracker, and the enablement filter.  Multiple layers
// with different channels or formats can run side by side.
type Layer struct {
	name     string
	identity uevchannel.Identity
	channel  uevchannel.Channel
	encoder  uevbase.Encoder
	tracker  *uevspan.Tracker
	filter   *filter
	clock    clockz.Clock
	spanIDs  atomic.Uint64
}

func (l *Layer) Name() string                  { return l.name }
func (l *Layer) Identity() uevchannel.Identity { return l.identity }

// Tracker exposes the span store; meant for tests and diagnostics.
func (l *Layer) Tracker() *uevspan.Tracker { return l.tracker }

// CreateSpan allocates a span id and its record.  declaredFields
// fixes the span's field set: later RecordSpanFields calls may only
// overwrite these names.  Spans carry the layer's default keyword;
// site keywords are an event concern.
func (l *Layer) CreateSpan(parentID uint64, declaredFields []string, name string, level uevnum.Level) uint64 {
	id := l.spanIDs.Add(1)
	l.tracker.Create(id, parentID, name, level, declaredFields, nil)
	return id
}

// CreateSpanWithFields is CreateSpan plus initial field values, the
// way front ends that attach values at span creation use it.
func (l *Layer) CreateSpanWithFields(parentID uint64, declaredFields []string, name string, level uevnum.Level, initial []uevbase.Field) uint64 {
	id := l.spanIDs.Add(1)
	l.tracker.Create(id, parentID, name, level, declaredFields, initial)
	return id
}

// EnterSpan stamps the span's start time and emits the start record
// if a collector is listening.  Entering an unknown span id is a
// tolerated front-end quirk and does nothing.
func (l *Layer) EnterSpan(id uint64) {
	rec, ok := l.tracker.Get(id)
	if !ok {
		return
	}
	if !l.filter.enabled("", rec.Level()) {
		return
	}
	rec, ok = l.tracker.Enter(id)
	if !ok {
		return
	}
	l.encoder.WriteSpanStart(rec, l.filter.defaultKeyword, 0)
}

// ExitSpan emits the stop record with the start/stop timestamp pair.
func (l *Layer) ExitSpan(id uint64) {
	start, stop, rec, ok := l.tracker.Exit(id)
	if !ok {
		return
	}
	if !l.filter.enabled("", rec.Level()) {
		return
	}
	l.encoder.WriteSpanStop(start, stop, rec, l.filter.defaultKeyword, 0)
}

// AddSpanRef increments the span's reference count.  Needed because
// some host frameworks clone span handles; each clone must be closed.
func (l *Layer) AddSpanRef(id uint64) {
	l.tracker.AddRef(id)
}

// CloseSpan drops one reference and reports whether the span is still
// alive.  The record is removed when the last reference closes.
func (l *Layer) CloseSpan(id uint64) bool {
	return l.tracker.Release(id)
}

// RecordSpanFields overwrites values of the span's declared fields.
// Updates naming undeclared fields are silently dropped.
func (l *Layer) RecordSpanFields(id uint64, updates []uevbase.Field) {
	l.tracker.RecordFields(id, updates)
}

// EmitEvent serializes a point-in-time event outside any span.
func (l *Layer) EmitEvent(site uevmeta.SiteID, level uevnum.Level, name string, fields []uevbase.Field) {
	l.EmitEventInSpan(site, 0, level, name, fields)
}

// EmitEventInSpan is EmitEvent correlated to the live span the caller
// is executing in.  The event inherits the span's activity id and the
// span's parent as its related activity.
func (l *Layer) EmitEventInSpan(site uevmeta.SiteID, spanID uint64, level uevnum.Level, name string, fields []uevbase.Field) {
	if !l.filter.enabled(site, level) {
		return
	}
	keyword, tag := l.filter.keywordTag(site)

	var parentID uint64
	if spanID != 0 {
		if rec, ok := l.tracker.Get(spanID); ok {
			parentID = rec.Parent()
		}
	}
	l.encoder.WriteEvent(l.clock.Now(), spanID, parentID, name, level, keyword, tag, fields)
}
