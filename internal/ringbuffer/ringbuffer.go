// Package ringbuffer implements the byte-granular ring buffer that
// decouples a link driver's raw byte stream from frame assembly in the
// data link layer.
package ringbuffer

import (
	"fmt"

	"github.com/izot/lon-core/internal/lonerr"
	"github.com/izot/lon-core/pkg/bufpool"
)

// DefaultMaxCapacity is the default ceiling on a RingBuffer's capacity.
const DefaultMaxCapacity = 2048

// RingBuffer is a fixed-capacity byte ring with head (write), tail (read),
// and count bookkeeping. count never exceeds the configured capacity.
type RingBuffer struct {
	storage  []byte
	capacity int
	head     int
	tail     int
	count    int
}

// New allocates a RingBuffer with the given capacity. A capacity of 0 or
// greater than maxCapacity is rejected with a NoMemoryAvailable error.
// Pass 0 for maxCapacity to use DefaultMaxCapacity.
func New(capacity, maxCapacity int) (*RingBuffer, error) {
	if maxCapacity <= 0 {
		maxCapacity = DefaultMaxCapacity
	}
	if capacity <= 0 || capacity > maxCapacity {
		return nil, lonerr.New(lonerr.NoMemoryAvailable,
			fmt.Sprintf("ring buffer: capacity %d out of range (1..%d)", capacity, maxCapacity))
	}

	storage := bufpool.Get(capacity)
	if len(storage) < capacity {
		return nil, lonerr.New(lonerr.NoMemoryAvailable,
			fmt.Sprintf("ring buffer: allocate %d bytes", capacity))
	}

	return &RingBuffer{storage: storage, capacity: capacity}, nil
}

// Close returns the ring's backing storage to the buffer pool.
func (r *RingBuffer) Close() {
	bufpool.Put(r.storage)
	r.storage = nil
}

// Capacity returns the ring's configured capacity.
func (r *RingBuffer) Capacity() int { return r.capacity }

// Count returns the number of unread bytes currently stored.
func (r *RingBuffer) Count() int { return r.count }

// Avail returns the number of bytes that can still be written.
func (r *RingBuffer) Avail() int { return r.capacity - r.count }

// Write copies min(len(src), Avail()) bytes into the ring, wrapping at the
// end of the backing storage as needed, and returns the number written.
// A nil or empty src is safe and returns 0.
func (r *RingBuffer) Write(src []byte) int {
	n := len(src)
	if n > r.Avail() {
		n = r.Avail()
	}
	if n == 0 {
		return 0
	}

	first := r.capacity - r.head
	if first > n {
		first = n
	}
	copy(r.storage[r.head:], src[:first])
	if n > first {
		copy(r.storage[0:], src[first:n])
	}

	r.head = (r.head + n) % r.capacity
	r.count += n
	return n
}

// Peek copies up to min(len(dst), Count()) bytes into dst without
// consuming them, and returns the number copied. A nil or zero-length dst
// is safe and returns 0.
func (r *RingBuffer) Peek(dst []byte) int {
	n := len(dst)
	if n > r.count {
		n = r.count
	}
	if n == 0 {
		return 0
	}

	first := r.capacity - r.tail
	if first > n {
		first = n
	}
	copy(dst[:first], r.storage[r.tail:])
	if n > first {
		copy(dst[first:n], r.storage[0:])
	}
	return n
}

// Read is Peek followed by advancing tail and decrementing count by the
// number of bytes actually copied.
func (r *RingBuffer) Read(dst []byte) int {
	n := r.Peek(dst)
	r.tail = (r.tail + n) % r.capacity
	r.count -= n
	return n
}

// Clear resets head, tail, and count to zero without touching storage
// contents.
func (r *RingBuffer) Clear() {
	r.head = 0
	r.tail = 0
	r.count = 0
}
