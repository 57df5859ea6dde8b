package uev_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/clockz"

	"github.com/uevlog/uev-go/uev"
	"github.com/uevlog/uev-go/uevbase"
	"github.com/uevlog/uev-go/uevchannel"
	"github.com/uevlog/uev-go/uevmeta"
	"github.com/uevlog/uev-go/uevnative"
	"github.com/uevlog/uev-go/uevnum"
	"github.com/uevlog/uev-go/uevrecorder"
)

func newSite(t *testing.T, registry *uevmeta.Registry, keyword uint64, tag uint32) uevmeta.SiteID {
	id := uevmeta.SiteID(fmt.Sprintf("%s-kw%d@test.go:1", t.Name(), keyword))
	registry.Register(&uevmeta.SiteDescriptor{Keyword: keyword, Identity: id, Tag: tag})
	return id
}

func TestBuildValidation(t *testing.T) {
	ch := uevrecorder.New()

	_, err := uev.NewLayerBuilder("bad name").WithChannel(ch).Build()
	assert.ErrorIs(t, err, uevchannel.ErrInvalidNameCharacters)

	_, err = uev.NewLayerBuilder("Tracer").WithChannel(ch).WithProviderGroup("UPPER").Build()
	assert.ErrorIs(t, err, uevchannel.ErrInvalidGroupCharacters)

	_, err = uev.NewLayerBuilder("Tracer").Build()
	assert.ErrorIs(t, err, uev.ErrNoChannel)

	layer, err := uev.NewLayerBuilder("Tracer").WithChannel(ch).WithProviderGroup("group1").Build()
	require.NoError(t, err)
	assert.Equal(t, uevchannel.IdentityFromName("Tracer"), layer.Identity())
}

func TestBuildPreregistersEventSets(t *testing.T) {
	registry := uevmeta.NewRegistry()
	newSite(t, registry, 0x20, 0)
	ch := uevrecorder.New()

	_, err := uev.NewLayerBuilder("Tracer").
		WithChannel(ch).
		WithRegistry(registry).
		WithDefaultKeyword(0x8).
		Build()
	require.NoError(t, err)

	for _, level := range []uevnum.Level{
		uevnum.ErrorLevel, uevnum.WarnLevel, uevnum.InfoLevel, uevnum.DebugLevel, uevnum.TraceLevel,
	} {
		assert.NotNil(t, ch.FindSet(level, 0x20), "site keyword at %s", level)
		assert.NotNil(t, ch.FindSet(level, 0x8), "default keyword at %s", level)
	}
}

func TestDisabledMeansNoWrites(t *testing.T) {
	registry := uevmeta.NewRegistry()
	site := newSite(t, registry, 0x4, 0)
	ch := uevrecorder.New()
	layer, err := uev.NewLayerBuilder("Tracer").WithChannel(ch).WithRegistry(registry).Build()
	require.NoError(t, err)

	layer.EmitEvent(site, uevnum.InfoLevel, "quiet", nil)

	id := layer.CreateSpan(0, []string{"a"}, "quietspan", uevnum.InfoLevel)
	layer.EnterSpan(id)
	layer.ExitSpan(id)
	layer.CloseSpan(id)

	assert.Equal(t, 0, ch.WriteCount(), "nothing listening, nothing written")
}

func TestPullModelReflectsToggleImmediately(t *testing.T) {
	registry := uevmeta.NewRegistry()
	site := newSite(t, registry, 0x4, 0)
	ch := uevrecorder.New() // no callback support: pull model
	layer, err := uev.NewLayerBuilder("Tracer").WithChannel(ch).WithRegistry(registry).Build()
	require.NoError(t, err)

	layer.EmitEvent(site, uevnum.InfoLevel, "before", nil)
	assert.Equal(t, 0, ch.WriteCount())

	ch.SetAllEnabled(true)
	layer.EmitEvent(site, uevnum.InfoLevel, "after", nil)
	assert.Equal(t, 1, ch.WriteCount(), "pull model re-evaluates on every call")

	ch.SetAllEnabled(false)
	layer.EmitEvent(site, uevnum.InfoLevel, "off again", nil)
	assert.Equal(t, 1, ch.WriteCount())
}

func TestPushModelCachesUntilInvalidation(t *testing.T) {
	registry := uevmeta.NewRegistry()
	site := newSite(t, registry, 0x4, 0)
	ch := uevrecorder.New(uevrecorder.WithEnableCallbacks())
	layer, err := uev.NewLayerBuilder("Tracer").WithChannel(ch).WithRegistry(registry).Build()
	require.NoError(t, err)

	layer.EmitEvent(site, uevnum.InfoLevel, "cached never", nil)
	assert.Equal(t, 0, ch.WriteCount())

	// Flip state without firing the callback: the cached "never"
	// holds, which is exactly what the push model trades for speed.
	ch.SetAllEnabled(true)
	layer.EmitEvent(site, uevnum.InfoLevel, "still cached", nil)
	assert.Equal(t, 0, ch.WriteCount())

	// A real collector attach fires the callback; the next call
	// re-evaluates.
	ch.SetListening(true)
	layer.EmitEvent(site, uevnum.InfoLevel, "now seen", nil)
	assert.Equal(t, 1, ch.WriteCount())

	ch.SetListening(false)
	layer.EmitEvent(site, uevnum.InfoLevel, "detached", nil)
	assert.Equal(t, 1, ch.WriteCount())
}

func TestSiteKeywordAndTagReachTheWire(t *testing.T) {
	registry := uevmeta.NewRegistry()
	site := newSite(t, registry, 0x40, 17)
	ch := uevrecorder.New()
	layer, err := uev.NewLayerBuilder("Tracer").WithChannel(ch).WithRegistry(registry).Build()
	require.NoError(t, err)
	ch.SetAllEnabled(true)

	layer.EmitEvent(site, uevnum.WarnLevel, "tagged", nil)
	layer.EmitEvent("unregistered@x.go:9", uevnum.WarnLevel, "untagged", nil)

	writes := ch.Captured()
	require.Len(t, writes, 2)
	// keyword bytes 6-13, tag bytes 14-17 of the native header
	assert.Equal(t, byte(0x40), writes[0].Buffer[6])
	assert.Equal(t, byte(17), writes[0].Buffer[14])
	assert.Equal(t, byte(uev.DefaultKeyword), writes[1].Buffer[6], "unregistered site falls back to the default keyword")
	assert.Equal(t, byte(0), writes[1].Buffer[14])
}

func TestEndToEndSpanScenario(t *testing.T) {
	clock := clockz.NewFakeClock()
	ch := uevrecorder.New()
	layer, err := uev.NewLayerBuilder("Tracer").
		WithChannel(ch).
		WithRegistry(uevmeta.NewRegistry()).
		WithClock(clock).
		Build()
	require.NoError(t, err)
	ch.SetAllEnabled(true)

	outer := layer.CreateSpan(0, nil, "outer", uevnum.InfoLevel)
	layer.EnterSpan(outer)
	inner := layer.CreateSpan(outer, nil, "inner", uevnum.InfoLevel)
	layer.EnterSpan(inner)
	layer.EmitEventInSpan("", inner, uevnum.InfoLevel, "evt",
		[]uevbase.Field{{Name: "x", Value: uevbase.Int64Value(7)}})
	layer.ExitSpan(inner)
	layer.ExitSpan(outer)
	assert.False(t, layer.CloseSpan(inner))
	assert.False(t, layer.CloseSpan(outer))
	assert.Equal(t, 0, layer.Tracker().Len())

	writes := ch.Captured()
	require.Len(t, writes, 5, "start outer, start inner, event, stop inner, stop outer")

	isOp := func(w uevrecorder.Write, opcode byte) bool { return w.Buffer[4] == opcode }
	assert.True(t, isOp(writes[0], uevnative.OpcodeActivityStart))
	assert.True(t, isOp(writes[1], uevnative.OpcodeActivityStart))
	assert.True(t, isOp(writes[2], uevnative.OpcodeInfo))
	assert.True(t, isOp(writes[3], uevnative.OpcodeActivityStop))
	assert.True(t, isOp(writes[4], uevnative.OpcodeActivityStop))

	outerActivity := writes[0].ActivityID
	require.NotNil(t, outerActivity)
	assert.Equal(t, outer, outerActivity.SpanID())
	assert.Nil(t, writes[0].RelatedActivityID, "outer has no parent")

	innerActivity := writes[1].ActivityID
	require.NotNil(t, innerActivity)
	require.NotNil(t, writes[1].RelatedActivityID)
	assert.Equal(t, *outerActivity, *writes[1].RelatedActivityID,
		"inner's related activity is outer's activity id")

	require.NotNil(t, writes[2].ActivityID)
	assert.Equal(t, *innerActivity, *writes[2].ActivityID,
		"the event's correlation id is inner's activity id")
	require.NotNil(t, writes[2].RelatedActivityID)
	assert.Equal(t, *outerActivity, *writes[2].RelatedActivityID)

	starts := ch.FindWrites(func(w uevrecorder.Write) bool { return isOp(w, uevnative.OpcodeActivityStart) })
	stops := ch.FindWrites(func(w uevrecorder.Write) bool { return isOp(w, uevnative.OpcodeActivityStop) })
	assert.Len(t, starts, 2, "exactly one start per span")
	assert.Len(t, stops, 2, "exactly one stop per span")
}

func TestCommonSchemaLayer(t *testing.T) {
	clock := clockz.NewFakeClock()
	ch := uevrecorder.New()
	layer, err := uev.NewCommonSchemaLayerBuilder("Tracer").
		WithChannel(ch).
		WithRegistry(uevmeta.NewRegistry()).
		WithClock(clock).
		Build()
	require.NoError(t, err)
	ch.SetAllEnabled(true)

	id := layer.CreateSpanWithFields(0, []string{"message"}, "csspan", uevnum.InfoLevel,
		[]uevbase.Field{{Name: "message", Value: uevbase.StringValue("done")}})
	layer.EnterSpan(id)
	layer.ExitSpan(id)
	layer.CloseSpan(id)

	docs, err := ch.CommonSchemaDocs()
	require.NoError(t, err)
	require.Len(t, docs, 1, "span start is not emitted in this schema")
	assert.Equal(t, "Span", string(docs[0].GetStringBytes("PartB", "_typeName")))
	assert.Equal(t, "csspan", string(docs[0].GetStringBytes("PartB", "name")))
	assert.Equal(t, "done", string(docs[0].GetStringBytes("PartC", "Body")))
}

func TestRecordFieldsBeforeExit(t *testing.T) {
	ch := uevrecorder.New()
	layer, err := uev.NewLayerBuilder("Tracer").
		WithChannel(ch).
		WithRegistry(uevmeta.NewRegistry()).
		Build()
	require.NoError(t, err)
	ch.SetAllEnabled(true)

	id := layer.CreateSpan(0, []string{"count"}, "counted", uevnum.InfoLevel)
	layer.EnterSpan(id)
	layer.RecordSpanFields(id, []uevbase.Field{{Name: "count", Value: uevbase.Uint64Value(5)}})
	layer.ExitSpan(id)
	layer.CloseSpan(id)

	writes := ch.Captured()
	require.Len(t, writes, 2)
	// The stop record carries the recorded value; "count" then 0x01
	// (uint64 type) then 5 little-endian.
	assert.Contains(t, string(writes[1].Buffer), "count")
	assert.Contains(t, string(writes[1].Buffer), string([]byte{1, 5, 0, 0, 0, 0, 0, 0, 0}))
}

func TestUnknownSpanOperationsAreTolerated(t *testing.T) {
	ch := uevrecorder.New()
	layer, err := uev.NewLayerBuilder("Tracer").
		WithChannel(ch).
		WithRegistry(uevmeta.NewRegistry()).
		Build()
	require.NoError(t, err)
	ch.SetAllEnabled(true)

	layer.EnterSpan(999)
	layer.ExitSpan(999)
	layer.RecordSpanFields(999, []uevbase.Field{{Name: "x", Value: uevbase.BoolValue(true)}})
	assert.False(t, layer.CloseSpan(999))
	assert.Equal(t, 0, ch.WriteCount())
}
