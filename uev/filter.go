package uev

import (
	"sync"
	"sync/atomic"

	"github.com/uevlog/uev-go/uevchannel"
	"github.com/uevlog/uev-go/uevmeta"
	"github.com/uevlog/uev-go/uevnum"
)

// filter decides, per log call, whether any encoding work happens.
// Two strategies:
//
// Push model (channel has enable-change callbacks): decisions are
// cached per (site, level) as always/never.  A collector attaching or
// detaching bumps the generation counter, and every cached decision is
// re-evaluated lazily on next use.
//
// Pull model (no callbacks): the channel's true state cannot be
// cached, so the decision is re-evaluated on every call.
//
// Both converge to the same answer; the pull model within the same
// call, the push model one invalidation round later.
type filter struct {
	channel        uevchannel.Channel
	registry       *uevmeta.Registry
	defaultKeyword uint64
	push           bool
	generation     atomic.Uint64
	cache          sync.Map // siteLevelKey -> cachedDecision
}

type siteLevelKey struct {
	site  uevmeta.SiteID
	level uevnum.Level
}

type cachedDecision struct {
	generation uint64
	enabled    bool
}

func newFilter(ch uevchannel.Channel, registry *uevmeta.Registry, defaultKeyword uint64) *filter {
	f := &filter{
		channel:        ch,
		registry:       registry,
		defaultKeyword: defaultKeyword,
		push:           ch.SupportsEnableCallback(),
	}
	if f.push {
		ch.OnEnableChange(func() {
			f.generation.Add(1)
		})
	}
	return f
}

// keywordTag resolves a site's static metadata, falling back to the
// default keyword for sites that never registered (cold start, or a
// front end without site descriptors).
func (f *filter) keywordTag(site uevmeta.SiteID) (uint64, uint32) {
	if site != "" {
		if desc := f.registry.Lookup(site); desc != nil {
			return desc.Keyword, desc.Tag
		}
	}
	return f.defaultKeyword, 0
}

func (f *filter) enabled(site uevmeta.SiteID, level uevnum.Level) bool {
	keyword, _ := f.keywordTag(site)
	if !f.push {
		return f.channel.Enabled(level, keyword)
	}
	key := siteLevelKey{site: site, level: level}
	gen := f.generation.Load()
	if v, ok := f.cache.Load(key); ok {
		if d := v.(cachedDecision); d.generation == gen {
			return d.enabled
		}
	}
	enabled := f.channel.Enabled(level, keyword)
	f.cache.Store(key, cachedDecision{generation: gen, enabled: enabled})
	return enabled
}
