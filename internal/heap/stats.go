package heap

// Stats is a point-in-time, non-linearizable snapshot of the engine's bump
// cursor and queued blocks. It reports only sums of fields the descriptor
// already carries — there is deliberately no live-set tracking here, only
// cursor position and queue contents.
type Stats struct {
	HeapStart    uintptr
	HeapEnd      uintptr
	Cursor       uintptr
	QueuedBytes  uintptr
	QueuedBlocks uint64
}

// Stats walks every bucket's free-list queue and reports the current bump
// cursor alongside the queued totals. Because it runs without pausing
// concurrent allocators, it is a diagnostic approximation, not a
// linearized snapshot — the sum-of-fields accounting only holds exactly
// against an otherwise-quiesced heap.
func (e *Engine) Stats() Stats {
	s := Stats{
		HeapStart: e.arena.Start(),
		HeapEnd:   e.arena.End(),
		Cursor:    e.arena.ensureInit(),
	}
	for b := 0; b <= OversizeClass; b++ {
		bytes, count := e.free.queuedBytes(b)
		s.QueuedBytes += bytes
		s.QueuedBlocks += count
	}
	return s
}
