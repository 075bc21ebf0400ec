package figure

import "sync/atomic"

// Allocator hands out figure ids. One allocator is shared by every
// room in the process, so ids are unique across rooms and never
// repeat within the process lifetime. Implementations must be safe
// for concurrent use.
type Allocator interface {
	Next() ID
}

type atomicAllocator struct {
	last atomic.Uint64
}

// NewAllocator returns a monotonic allocator whose first id is 1.
func NewAllocator() Allocator {
	return &atomicAllocator{}
}

func (a *atomicAllocator) Next() ID {
	return ID(a.last.Add(1))
}
