package flashhal

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/izot/lon-core/internal/lonerr"
)

func newTestDevice(t *testing.T) *FileDevice {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flash.img")
	dev := NewFileDevice(path, 64, 4)
	require.NoError(t, dev.Init())
	require.NoError(t, dev.Open())
	t.Cleanup(func() { _ = dev.Close() })
	return dev
}

func TestInitCreatesErasedFile(t *testing.T) {
	dev := newTestDevice(t)

	buf := make([]byte, dev.Info().TotalSize())
	require.NoError(t, dev.Read(0, buf))
	for _, b := range buf {
		assert.Equal(t, byte(0xFF), b)
	}
}

func TestInitRejectsMismatchedExistingSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flash.img")
	dev := NewFileDevice(path, 64, 4)
	require.NoError(t, dev.Init())

	mismatched := NewFileDevice(path, 64, 8)
	err := mismatched.Init()
	require.Error(t, err)
	assert.True(t, lonerr.Is(err, lonerr.NoMemoryAvailable))
}

func TestOpenEnforcesSingleInstance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flash.img")
	first := NewFileDevice(path, 64, 4)
	require.NoError(t, first.Init())
	require.NoError(t, first.Open())
	defer first.Close()

	second := NewFileDevice(path, 64, 4)
	require.NoError(t, second.Init())
	err := second.Open()
	require.Error(t, err)
	assert.True(t, lonerr.Is(err, lonerr.NoMemoryAvailable))
}

func TestWriteOnlyClearsBits(t *testing.T) {
	dev := newTestDevice(t)

	require.NoError(t, dev.Write(0, []byte{0b1010_1010}))
	buf := make([]byte, 1)
	require.NoError(t, dev.Read(0, buf))
	assert.Equal(t, byte(0b1010_1010), buf[0])

	// Writing 0xFF must not set bits already cleared back to 1.
	require.NoError(t, dev.Write(0, []byte{0xFF}))
	require.NoError(t, dev.Read(0, buf))
	assert.Equal(t, byte(0b1010_1010), buf[0])
}

func TestEraseRestoresErasedState(t *testing.T) {
	dev := newTestDevice(t)

	require.NoError(t, dev.Write(0, []byte{0x00, 0x00}))
	require.NoError(t, dev.Erase(0, 64))

	buf := make([]byte, 2)
	require.NoError(t, dev.Read(0, buf))
	assert.Equal(t, []byte{0xFF, 0xFF}, buf)
}

func TestEraseRejectsUnalignedRange(t *testing.T) {
	dev := newTestDevice(t)
	err := dev.Erase(1, 64)
	require.Error(t, err)
	assert.True(t, lonerr.Is(err, lonerr.NoMemoryAvailable))
}

func TestBoundsRejectOutOfRangeAccess(t *testing.T) {
	dev := newTestDevice(t)

	err := dev.Read(dev.Info().TotalSize()-1, make([]byte, 2))
	require.Error(t, err)
	assert.True(t, lonerr.Is(err, lonerr.WritePastEndOfNetBuffer))
}

func TestRoundDownBlockAndRoundUpBlocks(t *testing.T) {
	assert.Equal(t, int64(0), RoundDownBlock(63, 64))
	assert.Equal(t, int64(64), RoundDownBlock(64, 64))
	assert.Equal(t, int64(192), RoundDownBlock(200, 64))

	assert.Equal(t, int64(64), RoundUpBlocks(1, 64))
	assert.Equal(t, int64(64), RoundUpBlocks(64, 64))
	assert.Equal(t, int64(128), RoundUpBlocks(65, 64))
}
