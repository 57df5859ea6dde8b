/*
Package uevrecorder provides an introspective in-memory Channel.  All
buffers handed to Write are copied and kept so tests can examine what
the encoders produced.  The enablement side is fully scriptable: tests
toggle collector interest and choose whether the channel advertises
enable-change callbacks, which picks the filter model the bridge uses.
*/
package uevrecorder

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/valyala/fastjson"

	"github.com/uevlog/uev-go/uevchannel"
	"github.com/uevlog/uev-go/uevtrace"
)

var _ uevchannel.Channel = &Channel{}

// Write is one captured channel write.
type Write struct {
	Buffer            []byte
	ActivityID        *uevtrace.ActivityID
	RelatedActivityID *uevtrace.ActivityID
}

type Opt func(*Channel)

// WithEnableCallbacks makes the channel advertise callback support,
// putting the bridge's filter into its push (cached) model.
func WithEnableCallbacks() Opt {
	return func(ch *Channel) {
		ch.supportsCallbacks = true
	}
}

func New(opts ...Opt) *Channel {
	ch := &Channel{
		id: "uevrecorder-" + uuid.New().String(),
	}
	for _, opt := range opts {
		opt(ch)
	}
	return ch
}

type Channel struct {
	uevchannel.SetRegistry

	lock              sync.Mutex
	id                string
	supportsCallbacks bool
	callbacks         []func()
	writeErr          error
	Writes            []Write
}

func (ch *Channel) ID() string { return ch.id }

func (ch *Channel) SupportsEnableCallback() bool { return ch.supportsCallbacks }

func (ch *Channel) OnEnableChange(f func()) {
	ch.lock.Lock()
	ch.callbacks = append(ch.callbacks, f)
	ch.lock.Unlock()
}

func (ch *Channel) Write(buf []byte, activityID, relatedActivityID *uevtrace.ActivityID) error {
	ch.lock.Lock()
	defer ch.lock.Unlock()
	if ch.writeErr != nil {
		return ch.writeErr
	}
	// The encoders reuse their scratch buffers, so keep a copy.
	w := Write{Buffer: append([]byte(nil), buf...)}
	if activityID != nil {
		a := *activityID
		w.ActivityID = &a
	}
	if relatedActivityID != nil {
		r := *relatedActivityID
		w.RelatedActivityID = &r
	}
	ch.Writes = append(ch.Writes, w)
	return nil
}

// FailWrites makes every subsequent Write return err; nil restores
// normal operation.  Used to exercise the fire-and-forget path.
func (ch *Channel) FailWrites(err error) {
	ch.lock.Lock()
	ch.writeErr = err
	ch.lock.Unlock()
}

// SetListening flips every registered event set and fires the
// enable-change callbacks, the way a collector attach/detach does.
func (ch *Channel) SetListening(v bool) {
	ch.SetAllEnabled(v)
	ch.lock.Lock()
	callbacks := append([]func(){}, ch.callbacks...)
	ch.lock.Unlock()
	for _, f := range callbacks {
		f()
	}
}

func (ch *Channel) WriteCount() int {
	ch.lock.Lock()
	defer ch.lock.Unlock()
	return len(ch.Writes)
}

// Captured returns a snapshot of the captured writes.
func (ch *Channel) Captured() []Write {
	ch.lock.Lock()
	defer ch.lock.Unlock()
	return append([]Write(nil), ch.Writes...)
}

// FindWrites returns the captured writes the predicate accepts.
func (ch *Channel) FindWrites(pred func(Write) bool) []Write {
	var found []Write
	for _, w := range ch.Captured() {
		if pred(w) {
			found = append(found, w)
		}
	}
	return found
}

// CommonSchemaDocs parses every captured buffer as a Common Schema
// JSON document.  It fails if any buffer is not valid JSON, so only
// use it on channels fed by the Common Schema encoder.
func (ch *Channel) CommonSchemaDocs() ([]*fastjson.Value, error) {
	writes := ch.Captured()
	docs := make([]*fastjson.Value, 0, len(writes))
	for i, w := range writes {
		// One parser per document: fastjson values borrow their
		// parser's tree, and these outlive the loop.
		var p fastjson.Parser
		doc, err := p.ParseBytes(w.Buffer)
		if err != nil {
			return nil, errors.Wrapf(err, "captured write %d is not a Common Schema document", i)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
