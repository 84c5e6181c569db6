// Package heap implements the segregated free-list allocator engine: the
// block descriptor, the size-class ladder, the bump-pointer arena, and the
// lock-free free-list queues that back it.
package heap

import "unsafe"

// Magic marks a descriptor as currently managing a live or recycled block.
// Cleared at free, re-written at the next alloc that claims the address.
const Magic uint32 = 0xDEADBEEF

// WordSize is the size of the back-link slot stored immediately before
// every payload.
const WordSize = unsafe.Sizeof(uintptr(0))

// NumClasses is the number of fixed power-of-two size classes. Anything
// that doesn't fit falls into the oversize class, indexed NumClasses.
const NumClasses = 16

// OversizeClass is the bucket index used for blocks too large for the
// ladder. Such blocks carry their exact size in Descriptor.Size and are
// never normalized to a class size.
const OversizeClass = NumClasses

// ClassSizes is the fixed ladder of power-of-two size classes, 64 B to
// 2 MiB, matching the bucket table a bare-metal build would define as
// compile-time constants.
var ClassSizes = [NumClasses]uintptr{
	1 << 6, 1 << 7, 1 << 8, 1 << 9, 1 << 10, 1 << 11, 1 << 12, 1 << 13,
	1 << 14, 1 << 15, 1 << 16, 1 << 17, 1 << 18, 1 << 19, 1 << 20, 1 << 21,
}

// Descriptor is the in-band metadata record stored at the low address of
// every allocated or previously-freed block. It is never referenced as a
// typed Go pointer across calls — only materialized at a raw address via
// descriptorAt, because the same bytes alternately mean "descriptor owned
// by a live allocation" and "descriptor linked into a free-list queue".
type Descriptor struct {
	Magic       uint32
	Bucket      uint32
	Size        uintptr
	Align       uintptr
	Prev        uintptr // intrusive link toward the queue head; 0 if none
	Next        uintptr // intrusive link toward the queue tail; 0 if none
	PayloadAddr uintptr

	// slack is one word of trailing padding, never read after
	// construction. Because admin reserves sizeof(Descriptor) (slack
	// included) plus align bytes, the back-link word always starts at or
	// after this field: "payload_addr - WordSize >= descriptor_addr +
	// offsetof(slack)". At small alignments (e.g. align == 1, where it
	// starts one byte into slack) the back-link word overlaps slack, so
	// "payload_addr - WordSize >= descriptor_addr + sizeof(Descriptor)"
	// does not hold there; the overlap lands harmlessly inside slack
	// instead of clobbering PayloadAddr or an earlier field.
	slack uintptr
}

// descriptorSize is the physical footprint of a Descriptor record,
// computed once and reused wherever admin overhead must be reserved.
var descriptorSize = unsafe.Sizeof(Descriptor{})

// descriptorAt reinterprets a raw heap address as a Descriptor view. The
// caller is responsible for having verified addr lies within the arena and
// refers to a location previously written as a descriptor.
func descriptorAt(addr uintptr) *Descriptor {
	return (*Descriptor)(unsafe.Pointer(addr))
}

// resolveClass resolves a size class for a request: given a
// request (reqSize, align), it returns the bucket, the total block size to
// carve from the heap, and the admin overhead (descriptor + padding)
// consumed ahead of the payload.
//
// Rounding up to strictly greater than the ladder value (never ≥) ensures
// that after alignment and back-link placement there is never overlap
// between the descriptor, the back-link word, and the payload — an exact
// ladder-sized request is promoted to the next class.
func resolveClass(reqSize, align uintptr) (bucket int, allocSize, admin uintptr) {
	padding := align
	admin = descriptorSize + padding
	phys := admin + reqSize

	for c, classSize := range ClassSizes {
		if classSize > phys {
			return c, classSize, admin
		}
	}
	return OversizeClass, phys, admin
}

// isPowerOfTwo reports whether v is a nonzero power of two.
func isPowerOfTwo(v uintptr) bool {
	return v != 0 && v&(v-1) == 0
}

// alignUp rounds addr up to the next multiple of align, which must be a
// power of two.
func alignUp(addr, align uintptr) uintptr {
	return (addr + align - 1) &^ (align - 1)
}
