// Package uevspan tracks live spans between creation and close.  It
// owns the per-span state the encoders snapshot: declared fields,
// correlation ids, and the start timestamp.
package uevspan

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/uevlog/uev-go/uevbase"
	"github.com/uevlog/uev-go/uevnum"
	"github.com/uevlog/uev-go/uevtrace"
)

// MaxFields caps the declared fields of a span.  Field lists beyond
// the cap are truncated rather than rejected.
const MaxFields = 32

// FieldSlot holds one declared field.  The slot array is fixed at
// span creation; later recordings overwrite values in place.  The slot
// at position r additionally stores, in SortIndex, the position of the
// r-th alphabetically smallest field name, so by-name updates are a
// binary search without re-sorting.
type FieldSlot struct {
	Name      string
	Value     uevbase.FieldValue
	SortIndex uint8
}

// Record is the per-span state.  It is fully constructed before it is
// inserted into the tracker, so no reader ever observes it half
// built.  Mutation after creation is limited to Value overwrites,
// startTime, and the reference count; callers serialize enter/exit/
// record per span id.
type Record struct {
	id                uint64
	parentID          uint64
	name              string
	level             uevnum.Level
	fields            []FieldSlot
	activityID        uevtrace.ActivityID
	relatedActivityID uevtrace.ActivityID
	startTime         time.Time
	refCount          int32
}

var _ uevbase.SpanView = &Record{}

func (r *Record) ID() uint64                             { return r.id }
func (r *Record) Parent() uint64                         { return r.parentID }
func (r *Record) Name() string                           { return r.name }
func (r *Record) Level() uevnum.Level                    { return r.level }
func (r *Record) StartTime() time.Time                   { return r.startTime }
func (r *Record) ActivityID() uevtrace.ActivityID        { return r.activityID }
func (r *Record) RelatedActivityID() uevtrace.ActivityID { return r.relatedActivityID }

// Fields iterates the declared fields in declaration order.
func (r *Record) Fields(f func(name string, value uevbase.FieldValue) bool) {
	for i := range r.fields {
		if !f(r.fields[i].Name, r.fields[i].Value) {
			return
		}
	}
}

// Tracker is the process-wide span store.  One reader/writer lock
// guards the whole map; every enter takes the writer lock even though
// it touches a single entry.  That is a known bottleneck carried over
// from the design this implements.
type Tracker struct {
	mu      sync.RWMutex
	records map[uint64]*Record
	clock   clockz.Clock
}

type Option func(*Tracker)

// WithClock injects a clock, for deterministic tests.
func WithClock(c clockz.Clock) Option {
	return func(t *Tracker) {
		t.clock = c
	}
}

func New(opts ...Option) *Tracker {
	t := &Tracker{
		records: make(map[uint64]*Record),
		clock:   clockz.RealClock,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Create allocates the record for a new span and inserts it with a
// reference count of one.  A record already stored under the same id
// is overwritten: the host contract treats same-id spans as
// semantically identical, so collision is a documented policy, not an
// error.  Declared fields beyond MaxFields are dropped.
func (t *Tracker) Create(id, parentID uint64, name string, level uevnum.Level, fieldNames []string, initial []uevbase.Field) {
	if len(fieldNames) > MaxFields {
		fieldNames = fieldNames[:MaxFields]
	}
	n := len(fieldNames)
	fields := make([]FieldSlot, n)
	for i, name := range fieldNames {
		fields[i].Name = name
		fields[i].SortIndex = uint8(i)
	}

	var perm [MaxFields]uint8
	for i := range perm {
		perm[i] = uint8(i)
	}
	sort.Slice(perm[:n], func(a, b int) bool {
		return fields[perm[a]].Name < fields[perm[b]].Name
	})
	for i := range fields {
		fields[i].SortIndex = perm[i]
	}

	rec := &Record{
		id:                id,
		parentID:          parentID,
		name:              name,
		level:             level,
		fields:            fields,
		activityID:        uevtrace.New(id),
		relatedActivityID: uevtrace.New(parentID),
		refCount:          1,
	}
	for _, f := range initial {
		updateSlot(rec.fields, f.Name, f.Value)
	}

	t.mu.Lock()
	t.records[id] = rec
	t.mu.Unlock()
}

// updateSlot overwrites the value of a declared field.  Unknown names
// are silently dropped; the slot array never grows.
func updateSlot(fields []FieldSlot, name string, value uevbase.FieldValue) bool {
	n := len(fields)
	rank := sort.Search(n, func(r int) bool {
		return fields[fields[r].SortIndex].Name >= name
	})
	if rank < n && fields[fields[rank].SortIndex].Name == name {
		fields[fields[rank].SortIndex].Value = value
		return true
	}
	return false
}

// AddRef increments the reference count of a live span.  The count
// only gates deallocation, not mutation visibility, so a plain atomic
// increment is enough.
func (t *Tracker) AddRef(id uint64) {
	t.mu.RLock()
	if rec := t.records[id]; rec != nil {
		atomic.AddInt32(&rec.refCount, 1)
	}
	t.mu.RUnlock()
}

// Release decrements the reference count and removes the record when
// it reaches zero.  The removal re-checks the count under the writer
// lock so two releases racing to zero cannot both remove, and an
// AddRef that sneaks in between the decrement and the locked check
// resurrects the record (see the tracker design notes).  Returns
// whether the span is still alive.  Releasing an unknown id returns
// false.
func (t *Tracker) Release(id uint64) bool {
	t.mu.RLock()
	rec := t.records[id]
	var n int32
	if rec != nil {
		n = atomic.AddInt32(&rec.refCount, -1)
	}
	t.mu.RUnlock()
	if rec == nil {
		return false
	}

	if n == 0 {
		t.mu.Lock()
		if cur := t.records[id]; cur == rec && atomic.LoadInt32(&rec.refCount) == 0 {
			delete(t.records, id)
		}
		t.mu.Unlock()
	}
	return n != 0
}

// Enter stamps the span's start time and returns the record for the
// start-event emission.  Re-entering a span that was already entered
// overwrites the start time, so nested enter/exit on one span id
// without an intervening exit is not correctly timed.  That is a
// known limitation of the stored-start-time design, kept as is.
func (t *Tracker) Enter(id uint64) (*Record, bool) {
	now := t.clock.Now()
	t.mu.Lock()
	rec := t.records[id]
	if rec != nil {
		rec.startTime = now
	}
	t.mu.Unlock()
	return rec, rec != nil
}

// Exit reads the start time recorded by Enter and pairs it with the
// current time for the stop-event emission.  It does not mutate.
func (t *Tracker) Exit(id uint64) (start, stop time.Time, rec *Record, ok bool) {
	stop = t.clock.Now()
	t.mu.RLock()
	rec = t.records[id]
	if rec != nil {
		start = rec.startTime
	}
	t.mu.RUnlock()
	return start, stop, rec, rec != nil
}

// RecordFields applies updates to a live span's declared fields.
// Updates naming fields the span never declared are dropped.
func (t *Tracker) RecordFields(id uint64, updates []uevbase.Field) {
	t.mu.Lock()
	if rec := t.records[id]; rec != nil {
		for _, f := range updates {
			updateSlot(rec.fields, f.Name, f.Value)
		}
	}
	t.mu.Unlock()
}

// Get returns a read view of a live span, for encoders.
func (t *Tracker) Get(id uint64) (*Record, bool) {
	t.mu.RLock()
	rec := t.records[id]
	t.mu.RUnlock()
	return rec, rec != nil
}

// Len reports the number of live spans; used by tests.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}
