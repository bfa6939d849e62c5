// Package queue implements the fixed-capacity, fixed-item-size SPSC queue
// that carries NPDUs/LPDUs between layers (nwInQ, nwOutQ, nwOutPriQ, lkOutQ,
// lkOutPriQ, tsaInQ, appInQ, ...). One producer ever touches tail; one
// consumer ever touches head. Backing storage is a single contiguous arena
// allocated once at Reset and held for the life of the owning layer.
package queue

import (
	"fmt"

	"github.com/izot/lon-core/internal/lonerr"
	"github.com/izot/lon-core/internal/logger"
	"github.com/izot/lon-core/pkg/bufpool"
)

// MaxArenaBytes bounds a single queue's backing allocation. A request over
// this ceiling is treated the same as a failed allocation would be on a
// memory-constrained embedded target.
const MaxArenaBytes = 64 << 20 // 64 MiB

// Queue is a fixed-capacity ring of entrySize-byte entries.
type Queue struct {
	name      string
	arena     []byte
	entrySize int
	capacity  int
	size      int
	head      int
	tail      int
}

// New allocates a Queue with room for capacity entries of entrySize bytes
// each. It returns a NoMemoryAvailable error if entrySize or capacity are
// non-positive, or if the requested arena exceeds MaxArenaBytes.
func New(name string, entrySize, capacity int) (*Queue, error) {
	if entrySize <= 0 || capacity <= 0 {
		return nil, lonerr.New(lonerr.NoMemoryAvailable,
			fmt.Sprintf("queue %s: invalid entrySize=%d capacity=%d", name, entrySize, capacity))
	}

	total := entrySize * capacity
	if total > MaxArenaBytes {
		return nil, lonerr.New(lonerr.NoMemoryAvailable,
			fmt.Sprintf("queue %s: requested arena %d bytes exceeds %d byte ceiling", name, total, MaxArenaBytes))
	}

	arena := bufpool.Get(total)
	if len(arena) < total {
		return nil, lonerr.New(lonerr.NoMemoryAvailable,
			fmt.Sprintf("queue %s: allocate %d bytes", name, total))
	}

	return &Queue{
		name:      name,
		arena:     arena,
		entrySize: entrySize,
		capacity:  capacity,
	}, nil
}

// Close returns the queue's backing arena to the buffer pool. Callers must
// not use the queue after Close.
func (q *Queue) Close() {
	bufpool.Put(q.arena)
	q.arena = nil
}

// Name returns the queue's diagnostic name (e.g. "nwInQ").
func (q *Queue) Name() string { return q.name }

// Size returns the number of entries currently stored.
func (q *Queue) Size() int { return q.size }

// Capacity returns the maximum number of entries the queue can hold.
func (q *Queue) Capacity() int { return q.capacity }

// EntrySize returns the fixed size, in bytes, of each entry.
func (q *Queue) EntrySize() int { return q.entrySize }

// Full reports whether the queue has no room for another entry.
func (q *Queue) Full() bool { return q.size == q.capacity }

// Empty reports whether the queue holds no entries.
func (q *Queue) Empty() bool { return q.size == 0 }

func (q *Queue) slot(i int) []byte {
	off := i * q.entrySize
	return q.arena[off : off+q.entrySize : off+q.entrySize]
}

// Peek returns the head entry without removing it, or nil if empty.
func (q *Queue) Peek() []byte {
	if q.Empty() {
		return nil
	}
	return q.slot(q.head)
}

// Tail returns the slot the caller should fill before calling Write, or nil
// if the queue is full.
func (q *Queue) Tail() []byte {
	if q.Full() {
		return nil
	}
	return q.slot(q.tail)
}

// Write commits the entry previously written into the slot returned by
// Tail, advancing the producer index. A full queue logs and is a no-op —
// the caller is expected to have checked Full first.
func (q *Queue) Write() {
	if q.Full() {
		logger.Warn("write on full queue is a no-op", logger.Queue(q.name))
		return
	}
	q.tail = (q.tail + 1) % q.capacity
	q.size++
}

// DropHead removes the head entry, advancing the consumer index. An empty
// queue logs and is a no-op.
func (q *Queue) DropHead() {
	if q.Empty() {
		logger.Warn("drop_head on empty queue is a no-op", logger.Queue(q.name))
		return
	}
	q.head = (q.head + 1) % q.capacity
	q.size--
}
