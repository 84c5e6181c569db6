// Command heapstress drives the lock-free allocator engine from multiple
// goroutines standing in for cores, writes a verifiable byte pattern into
// every block it allocates, and prints the resulting free-list statistics.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"unsafe"

	"github.com/bytedance/gopkg/lang/mcache"

	"github.com/ruspigo/allocator/internal/heap"
	"github.com/ruspigo/allocator/internal/oom"
	"github.com/ruspigo/allocator/pkg/galloc"
)

func main() {
	heapMB := flag.Int("heap-mb", 64, "size in MiB of the simulated physical heap")
	workers := flag.Int("workers", 8, "number of concurrent cores (goroutines)")
	iterations := flag.Int("iterations", 2000, "allocations attempted per worker")
	seed := flag.Int64("seed", 1, "workload PRNG seed")
	flag.Parse()

	diag := heap.NewDiagnostics(heap.DiagViolations, os.Stderr, 512)
	g := galloc.New(uintptr(*heapMB)<<20, oom.HaltHandler{}, diag)

	var wg sync.WaitGroup
	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			runWorker(g, rand.New(rand.NewSource(*seed+int64(workerID))), *iterations)
		}(w)
	}
	wg.Wait()

	allocs, frees, violations := diag.Counts()
	stats := g.Engine().Stats()
	fmt.Printf("allocs=%d frees=%d violations=%d queued_blocks=%d queued_bytes=%d cursor_used=%d/%d\n",
		allocs, frees, violations, stats.QueuedBlocks, stats.QueuedBytes,
		stats.Cursor-stats.HeapStart, stats.HeapEnd-stats.HeapStart)
}

// payloadSizes are the request sizes exercised, spread across the ladder
// from the 64 B class up to the 256 KiB class; not every class in between
// is reached.
var payloadSizes = []int{1, 5, 60, 200, 1000, 4000, 30000, 200000}

func runWorker(g *galloc.GlobalAllocator, rng *rand.Rand, iterations int) {
	var held []uintptr
	for i := 0; i < iterations; i++ {
		size := payloadSizes[rng.Intn(len(payloadSizes))]
		align := uintptr(1) << rng.Intn(4) // 1, 2, 4, or 8

		ptr := g.Allocate(uintptr(size), align)
		fillPattern(ptr, size, rng)

		// Once more than eight blocks are held, free one at random on
		// roughly a third of rounds so both the bump path and the
		// free-list queues see traffic.
		held = append(held, ptr)
		if len(held) > 8 && rng.Intn(3) == 0 {
			victim := rng.Intn(len(held))
			g.Deallocate(held[victim])
			held[victim] = held[len(held)-1]
			held = held[:len(held)-1]
		}
	}
	for _, ptr := range held {
		g.Deallocate(ptr)
	}
}

// fillPattern writes a pseudo-random byte pattern into the allocated
// block via a pooled scratch buffer, so the write path never allocates a
// fresh Go slice per iteration.
func fillPattern(ptr uintptr, size int, rng *rand.Rand) {
	if size == 0 {
		return
	}
	scratch := mcache.Malloc(size)
	defer mcache.Free(scratch)

	for i := range scratch {
		scratch[i] = byte(rng.Intn(256))
	}

	dst := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), size)
	copy(dst, scratch)
}
