package oom

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ruspigo/allocator/internal/heap"
)

func TestHaltHandler_NeverReturns(t *testing.T) {
	done := make(chan struct{})
	go func() {
		HaltHandler{}.Halt(heap.Violation{Kind: heap.OOM})
		close(done) // unreachable if Halt honors its contract
	}()

	select {
	case <-done:
		t.Fatal("HaltHandler.Halt returned, violating its non-returning contract")
	case <-time.After(50 * time.Millisecond):
		// expected: the handler is still parked.
	}
}

func TestHaltHandler_ImplementsInterface(t *testing.T) {
	var h heap.OOMHandler = HaltHandler{}
	assert.NotNil(t, h)
}
