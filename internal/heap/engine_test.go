package heap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// panicHandler turns a Violation into a panic so tests can observe the
// non-returning OOMHandler contract with recover() instead of hanging the
// test goroutine the way the production HaltHandler would.
type panicHandler struct{}

func (panicHandler) Halt(v Violation) { panic(v) }

func haltOn(t *testing.T, kind ViolationKind, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected the OOMHandler to be invoked")
		v, ok := r.(Violation)
		require.True(t, ok, "panic value must be a Violation, got %T", r)
		assert.Equal(t, kind, v.Kind)
	}()
	fn()
}

func descOf(ptr uintptr) *Descriptor {
	return descriptorAt(readBackLink(ptr))
}

func TestEngine_Alloc_BasicInvariants(t *testing.T) {
	e := NewEngine(1<<20, panicHandler{}, nil)

	ptr := e.Alloc(5, 8)
	require.NotZero(t, ptr)
	assert.Zero(t, ptr%8, "payload must be aligned to the requested alignment")
	assert.GreaterOrEqual(t, ptr, e.Start())
	assert.Less(t, ptr, e.End())

	d := descOf(ptr)
	assert.Equal(t, Magic, d.Magic)
	assert.GreaterOrEqual(t, d.Size, uintptr(5)+descriptorSize+8)
}

func TestEngine_Alloc_RejectsBadAlignment(t *testing.T) {
	e := NewEngine(1<<20, panicHandler{}, nil)
	haltOn(t, Misuse, func() { e.Alloc(16, 0) })
	haltOn(t, Misuse, func() { e.Alloc(16, 3) })
}

func TestEngine_Free_RejectsNilPointer(t *testing.T) {
	e := NewEngine(1<<20, panicHandler{}, nil)
	haltOn(t, Misuse, func() { e.Free(0) })
}

func TestEngine_Free_DetectsDoubleFree(t *testing.T) {
	e := NewEngine(1<<20, panicHandler{}, nil)
	ptr := e.Alloc(32, 8)
	e.Free(ptr)
	haltOn(t, Corruption, func() { e.Free(ptr) })
}

func TestEngine_Alloc_OOMWhenExhausted(t *testing.T) {
	e := NewEngine(256, panicHandler{}, nil)
	haltOn(t, OOM, func() {
		for i := 0; i < 64; i++ {
			e.Alloc(64, 8)
		}
	})
}

// Scenario 6: free(alloc(s,a)) followed by alloc(s,a) returns the same
// address when no intervening allocation of the same class occurred,
// whether served by the top-rewind path or the block's class queue.
func TestEngine_FreeThenRealloc_ReturnsSameAddress(t *testing.T) {
	e := NewEngine(1<<20, panicHandler{}, nil)
	p := e.Alloc(100, 8)
	e.Free(p)
	q := e.Alloc(100, 8)
	assert.Equal(t, p, q)
}

// Queue-path FIFO reuse: once the top-rewind fast path is no longer
// available (an intervening allocation sits above it), a freed block must
// come back from its class queue on the very next same-class alloc.
func TestEngine_FreeThenRealloc_QueuePath(t *testing.T) {
	e := NewEngine(1<<20, panicHandler{}, nil)
	p := e.Alloc(40, 8) // bucket 1
	keep := e.Alloc(40, 8)
	_ = keep // keeps p from being the top of the heap
	e.Free(p)
	q := e.Alloc(40, 8)
	assert.Equal(t, p, q)
}

func TestEngine_TopOfHeapRewind_RestoresCursor(t *testing.T) {
	e := NewEngine(1<<20, panicHandler{}, nil)
	before := e.arena.ensureInit()
	p := e.Alloc(100, 8)
	e.Free(p)
	after := e.arena.ensureInit()
	assert.Equal(t, before, after, "freeing the only allocation must restore the cursor")
}

func TestEngine_AllocPage_IsPageAlignedAndOversize(t *testing.T) {
	e := NewEngine(1<<20, panicHandler{}, nil)
	pageSize := uintptr(4096)
	ptr := e.AllocPage(3, pageSize)

	assert.Zero(t, ptr%pageSize)
	d := descOf(ptr)
	assert.Equal(t, uint32(OversizeClass), d.Bucket)
	assert.Equal(t, 3*pageSize+descriptorSize, d.Size)
	assert.Equal(t, pageSize, d.Align)
}

func TestEngine_AllocPage_RejectsBadArgs(t *testing.T) {
	e := NewEngine(1<<20, panicHandler{}, nil)
	haltOn(t, Misuse, func() { e.AllocPage(0, 4096) })
	haltOn(t, Misuse, func() { e.AllocPage(1, 100) })
}

// Scenario 7: two concurrent same-size allocations from different
// goroutines return disjoint, non-overlapping ranges.
func TestEngine_ConcurrentAllocs_Disjoint(t *testing.T) {
	e := NewEngine(1<<22, panicHandler{}, nil)
	const n = 64
	ptrs := make([]uintptr, n)
	sizes := make([]uintptr, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := e.Alloc(64, 8)
			ptrs[i] = p
			sizes[i] = descOf(p).Size
		}(i)
	}
	wg.Wait()

	type span struct{ lo, hi uintptr }
	spans := make([]span, n)
	for i := range ptrs {
		base := readBackLink(ptrs[i])
		spans[i] = span{base, base + sizes[i]}
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			overlap := spans[i].lo < spans[j].hi && spans[j].lo < spans[i].hi
			assert.False(t, overlap, "concurrent allocations %d and %d overlap", i, j)
		}
	}
}

func TestEngine_ConcurrentFreeAndAlloc_NoRace(t *testing.T) {
	e := NewEngine(1<<22, panicHandler{}, nil)
	const workers = 16
	const iterations = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				p := e.Alloc(48, 8)
				e.Free(p)
			}
		}()
	}
	wg.Wait()
}

func TestEngine_Stats_ReflectsQueuedAndCursor(t *testing.T) {
	e := NewEngine(1<<16, panicHandler{}, nil)

	p1 := e.Alloc(40, 8)
	_ = e.Alloc(40, 8) // keeps p1 off the top-of-heap fast path
	e.Free(p1)

	stats := e.Stats()
	assert.Equal(t, e.Start(), stats.HeapStart)
	assert.Equal(t, e.End(), stats.HeapEnd)
	assert.Equal(t, uint64(1), stats.QueuedBlocks)
	assert.Equal(t, ClassSizes[1], stats.QueuedBytes)
	assert.Greater(t, stats.Cursor, stats.HeapStart)
}
