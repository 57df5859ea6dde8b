package uevutil

import "sync"

const minBuffer = 1024

var builderPool = sync.Pool{
	New: func() interface{} {
		return &Builder{B: make([]byte, 0, minBuffer)}
	},
}

// GetBuilder returns an empty Builder from the per-process pool.
// Builders keep whatever capacity they have grown to, so steady-state
// encoding does not allocate.  The caller must not retain the Builder
// or its bytes after PutBuilder.
func GetBuilder() *Builder {
	b := builderPool.Get().(*Builder)
	b.Reset()
	return b
}

func PutBuilder(b *Builder) {
	builderPool.Put(b)
}
