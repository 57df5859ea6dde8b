package uev

import (
	"github.com/pkg/errors"
	"github.com/zoobzio/clockz"

	"github.com/uevlog/uev-go/uevbase"
	"github.com/uevlog/uev-go/uevchannel"
	"github.com/uevlog/uev-go/uevcs"
	"github.com/uevlog/uev-go/uevmeta"
	"github.com/uevlog/uev-go/uevnative"
	"github.com/uevlog/uev-go/uevnum"
	"github.com/uevlog/uev-go/uevspan"
)

// ErrNoChannel is returned by Build when no channel was supplied.
// The OS-backed channels live with the platform glue; the core never
// opens one itself.
var ErrNoChannel = errors.New("layer requires a channel")

// DefaultKeyword is used for call sites without registered metadata
// when the builder does not override it.  Keyword zero is reserved by
// some collectors and never a good default.
const DefaultKeyword = 1

type encoding int

const (
	nativeEncoding encoding = iota
	commonSchemaEncoding
)

// LayerBuilder assembles a Layer.  Use NewLayerBuilder for the native
// wire format or NewCommonSchemaLayerBuilder for Common Schema 4.0
// output, then chain With* calls and finish with Build.
type LayerBuilder struct {
	name           string
	identity       uevchannel.Identity
	groupName      string
	groupSet       bool
	defaultKeyword uint64
	enc            encoding
	clock          clockz.Clock
	errorFunc      func(error)
	channel        uevchannel.Channel
	registry       *uevmeta.Registry
}

func newBuilder(name string, enc encoding) *LayerBuilder {
	return &LayerBuilder{
		name:           name,
		identity:       uevchannel.IdentityFromName(name),
		defaultKeyword: DefaultKeyword,
		enc:            enc,
		clock:          clockz.RealClock,
		registry:       uevmeta.Default(),
	}
}

// NewLayerBuilder creates a builder for a layer emitting the compact
// native format under the given channel name.
func NewLayerBuilder(name string) *LayerBuilder {
	return newBuilder(name, nativeEncoding)
}

// NewCommonSchemaLayerBuilder creates a builder for a layer emitting
// Common Schema 4.0 documents.  Only use this when the consumer
// requires that schema; it is slower to produce than the native
// format.
func NewCommonSchemaLayerBuilder(name string) *LayerBuilder {
	return newBuilder(name, commonSchemaEncoding)
}

// WithIdentity overrides the identity that is otherwise derived from
// the channel name.
func (b *LayerBuilder) WithIdentity(id uevchannel.Identity) *LayerBuilder {
	b.identity = id
	return b
}

// Identity returns the identity the layer will register with; a
// convenience for tooling that does not implement the name hash.
func (b *LayerBuilder) Identity() uevchannel.Identity { return b.identity }

// WithProviderGroup joins the channel to a named provider group.
func (b *LayerBuilder) WithProviderGroup(group string) *LayerBuilder {
	b.groupName = group
	b.groupSet = true
	return b
}

// WithDefaultKeyword sets the keyword for call sites without
// registered metadata.
func (b *LayerBuilder) WithDefaultKeyword(kw uint64) *LayerBuilder {
	b.defaultKeyword = kw
	return b
}

// WithChannel supplies the trace destination.  Required.
func (b *LayerBuilder) WithChannel(ch uevchannel.Channel) *LayerBuilder {
	b.channel = ch
	return b
}

// WithClock injects a clock, for deterministic tests.
func (b *LayerBuilder) WithClock(c clockz.Clock) *LayerBuilder {
	b.clock = c
	return b
}

// WithErrorReporter receives channel write failures.  Tracing must
// never fail the caller's business logic, so this is the only place
// write errors surface.
func (b *LayerBuilder) WithErrorReporter(f func(error)) *LayerBuilder {
	b.errorFunc = f
	return b
}

// WithRegistry overrides the process-wide site metadata registry;
// meant for tests.
func (b *LayerBuilder) WithRegistry(r *uevmeta.Registry) *LayerBuilder {
	b.registry = r
	return b
}

func (b *LayerBuilder) validate() error {
	if err := uevchannel.ValidateName(b.name); err != nil {
		return err
	}
	if b.groupSet {
		if err := uevchannel.ValidateGroupName(b.name, b.groupName); err != nil {
			return err
		}
	}
	if b.channel == nil {
		return ErrNoChannel
	}
	return nil
}

var allLevels = []uevnum.Level{
	uevnum.ErrorLevel,
	uevnum.WarnLevel,
	uevnum.InfoLevel,
	uevnum.DebugLevel,
	uevnum.TraceLevel,
}

// Build validates the configuration and constructs the Layer.
// Configuration errors are returned synchronously, before anything is
// registered with the channel; they are never retried.
//
// Keywords are static, but levels are dynamic, so every registered
// site's keyword is pre-registered at every level, plus the default
// keyword at every level.
func (b *LayerBuilder) Build() (*Layer, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	b.registry.Iterate(func(desc *uevmeta.SiteDescriptor) bool {
		for _, level := range allLevels {
			b.channel.RegisterSet(level, desc.Keyword)
		}
		return true
	})
	for _, level := range allLevels {
		b.channel.RegisterSet(level, b.defaultKeyword)
	}

	errorFunc := b.errorFunc
	if errorFunc == nil {
		errorFunc = func(error) {}
	}
	var enc uevbase.Encoder
	switch b.enc {
	case commonSchemaEncoding:
		enc = uevcs.New(b.channel, uevcs.WithErrorReporter(errorFunc))
	default:
		enc = uevnative.New(b.channel, uevnative.WithErrorReporter(errorFunc))
	}

	return &Layer{
		name:     b.name,
		identity: b.identity,
		channel:  b.channel,
		encoder:  enc,
		tracker:  uevspan.New(uevspan.WithClock(b.clock)),
		filter:   newFilter(b.channel, b.registry, b.defaultKeyword),
		clock:    b.clock,
	}, nil
}
