package uevmeta_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uevlog/uev-go/uevmeta"
)

func TestLookupFindsEverySite(t *testing.T) {
	registry := uevmeta.NewRegistry()
	descs := make([]*uevmeta.SiteDescriptor, 40)
	for i := range descs {
		descs[i] = &uevmeta.SiteDescriptor{
			Keyword:  uint64(i + 1),
			Identity: uevmeta.SiteID(fmt.Sprintf("site%d@file.go:%d", i, i*7)),
			Tag:      uint32(i),
		}
		registry.Register(descs[i])
	}
	for _, want := range descs {
		got := registry.Lookup(want.Identity)
		require.NotNil(t, got, "lookup %s", want.Identity)
		assert.Same(t, want, got)
	}
	assert.Nil(t, registry.Lookup("never-registered@nope.go:1"))
}

func TestEmptyRegistryIsNotAnError(t *testing.T) {
	registry := uevmeta.NewRegistry()
	assert.Nil(t, registry.Lookup("anything@x.go:1"))
	assert.Equal(t, 0, registry.Len())
}

func TestDuplicateRegistrationsCollapse(t *testing.T) {
	registry := uevmeta.NewRegistry()
	desc := &uevmeta.SiteDescriptor{Keyword: 7, Identity: "dup@a.go:10"}
	registry.Register(desc)
	registry.Register(desc)
	registry.Register(desc)
	other := &uevmeta.SiteDescriptor{Keyword: 9, Identity: "other@a.go:20"}
	registry.Register(other)

	assert.Equal(t, 2, registry.Len(), "duplicate pointers collapse to one entry")
	assert.Same(t, desc, registry.Lookup("dup@a.go:10"))
}

func TestLookupIsIdempotent(t *testing.T) {
	registry := uevmeta.NewRegistry()
	for i := 0; i < 10; i++ {
		registry.Register(&uevmeta.SiteDescriptor{
			Keyword:  uint64(i + 1),
			Identity: uevmeta.SiteID(fmt.Sprintf("s%d", i)),
		})
	}
	first := make(map[uevmeta.SiteID]*uevmeta.SiteDescriptor)
	for i := 0; i < 10; i++ {
		id := uevmeta.SiteID(fmt.Sprintf("s%d", i))
		first[id] = registry.Lookup(id)
	}
	for id, want := range first {
		assert.Same(t, want, registry.Lookup(id), "second lookup of %s", id)
	}
}

func TestKeywordSum(t *testing.T) {
	registry := uevmeta.NewRegistry()
	for i := 1; i <= 10; i++ {
		registry.Register(&uevmeta.SiteDescriptor{
			Keyword:  uint64(i),
			Identity: uevmeta.SiteID(fmt.Sprintf("kw%d", i)),
		})
	}
	var sum uint64
	registry.Iterate(func(desc *uevmeta.SiteDescriptor) bool {
		sum += desc.Keyword
		return true
	})
	assert.Equal(t, uint64(55), sum)
}

func TestRegistrationAfterBuildIsNotIndexed(t *testing.T) {
	registry := uevmeta.NewRegistry()
	registry.Register(&uevmeta.SiteDescriptor{Keyword: 1, Identity: "early"})
	require.NotNil(t, registry.Lookup("early"), "index is built now")

	registry.Register(&uevmeta.SiteDescriptor{Keyword: 2, Identity: "late"})
	assert.Nil(t, registry.Lookup("late"), "descriptors are conceptually baked at load time")
}
