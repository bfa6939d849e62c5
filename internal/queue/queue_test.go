package queue

import (
	"testing"

	"github.com/izot/lon-core/internal/lonerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadSizes(t *testing.T) {
	_, err := New("test", 0, 4)
	require.Error(t, err)
	assert.True(t, lonerr.Is(err, lonerr.NoMemoryAvailable))

	_, err = New("test", 16, 0)
	require.Error(t, err)
	assert.True(t, lonerr.Is(err, lonerr.NoMemoryAvailable))
}

func TestNewRejectsOversizedArena(t *testing.T) {
	_, err := New("huge", MaxArenaBytes, 2)
	require.Error(t, err)
	assert.True(t, lonerr.Is(err, lonerr.NoMemoryAvailable))
}

func TestFIFOOrdering(t *testing.T) {
	q, err := New("nwInQ", 4, 3)
	require.NoError(t, err)
	defer q.Close()

	assert.True(t, q.Empty())
	assert.False(t, q.Full())
	assert.Equal(t, 3, q.Capacity())
	assert.Equal(t, 4, q.EntrySize())

	for i, b := range []byte{0x01, 0x02, 0x03} {
		slot := q.Tail()
		require.NotNil(t, slot)
		slot[0] = b
		q.Write()
		assert.Equal(t, i+1, q.Size())
	}

	assert.True(t, q.Full())
	assert.Nil(t, q.Tail(), "Tail on a full queue returns nil")

	for _, want := range []byte{0x01, 0x02, 0x03} {
		head := q.Peek()
		require.NotNil(t, head)
		assert.Equal(t, want, head[0])
		q.DropHead()
	}

	assert.True(t, q.Empty())
	assert.Nil(t, q.Peek(), "Peek on an empty queue returns nil")
}

func TestWriteOnFullQueueIsNoOp(t *testing.T) {
	q, err := New("lkOutPriQ", 2, 1)
	require.NoError(t, err)
	defer q.Close()

	q.Tail()[0] = 0xAA
	q.Write()
	require.True(t, q.Full())

	q.Write() // no-op, must not panic or grow size past capacity
	assert.Equal(t, 1, q.Size())
}

func TestDropHeadOnEmptyQueueIsNoOp(t *testing.T) {
	q, err := New("appInQ", 2, 1)
	require.NoError(t, err)
	defer q.Close()

	require.True(t, q.Empty())
	q.DropHead() // no-op, must not panic or underflow size
	assert.Equal(t, 0, q.Size())
}

func TestWrapAround(t *testing.T) {
	q, err := New("wrap", 1, 2)
	require.NoError(t, err)
	defer q.Close()

	fill := func(v byte) {
		slot := q.Tail()
		slot[0] = v
		q.Write()
	}
	drain := func() byte {
		v := q.Peek()[0]
		q.DropHead()
		return v
	}

	fill(1)
	fill(2)
	assert.Equal(t, byte(1), drain())
	fill(3) // wraps tail back to index 0
	assert.Equal(t, byte(2), drain())
	assert.Equal(t, byte(3), drain())
	assert.True(t, q.Empty())
}
