// Package oom provides the allocator's non-returning out-of-memory
// collaborator, kept as its own package so the "what to do when the heap
// is exhausted or corrupted" policy stays decoupled from the engine that
// calls it.
package oom

import "github.com/ruspigo/allocator/internal/heap"

// HaltHandler is the canonical OOMHandler: it parks the calling goroutine
// forever, the direct analogue of the bare-metal `loop {}` idle spin a
// real core would execute on an unrecoverable allocator fault. It never
// logs and never recovers — there is no recoverable error in this
// taxonomy, only halt.
type HaltHandler struct{}

// Halt never returns.
func (HaltHandler) Halt(_ heap.Violation) {
	select {}
}

var _ heap.OOMHandler = HaltHandler{}
