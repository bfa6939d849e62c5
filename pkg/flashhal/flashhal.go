// Package flashhal adapts a block-erasable flash primitive for the
// persistence layer. On the target hardware this wraps HalFlashDrv{Init,
// Open,Read,Write,Erase,Close} and HalGetFlashInfo — out of scope for this
// core per spec §1. On a Linux host, the reference Device below stands in
// for that hardware HAL: a single file, block-aligned, with 1-to-0 write
// semantics (a write can only clear bits; an Erase is required to set them
// back to 0xFF) so the persistence layer's crash-consistency scheme
// behaves identically to real NOR flash.
package flashhal

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/izot/lon-core/internal/lonerr"
)

// Info mirrors HalGetFlashInfo's result: the device's block geometry.
type Info struct {
	BlockSize int
	NumBlocks int
}

// TotalSize returns the device's total addressable byte span.
func (i Info) TotalSize() int64 { return int64(i.BlockSize) * int64(i.NumBlocks) }

// Device is the block-erasable storage primitive the persistence layer is
// built against.
type Device interface {
	Init() error
	Open() error
	Close() error
	Info() Info

	// Read copies len(buf) bytes starting at offset.
	Read(offset int64, buf []byte) error

	// Write ANDs data into the device at offset — only bits already 1 can
	// be cleared to 0, exactly as a real NOR cell behaves between erases.
	Write(offset int64, data []byte) error

	// Erase sets every bit to 1 across the blocks spanning
	// [offset, offset+length). offset and length must be block-aligned.
	Erase(offset int64, length int64) error
}

// FileDevice is a single host file standing in for the flash chip.
// golang.org/x/sys/unix.Flock enforces §5's single-instance-access
// invariant: only one process may hold the device open at a time.
type FileDevice struct {
	path      string
	blockSize int
	numBlocks int
	file      *os.File
}

// NewFileDevice describes a flash-file-backed Device at path with the
// given block geometry. Call Init then Open before use.
func NewFileDevice(path string, blockSize, numBlocks int) *FileDevice {
	return &FileDevice{path: path, blockSize: blockSize, numBlocks: numBlocks}
}

// Init creates the backing file at its full size if it does not already
// exist, filled with 0xFF (the erased state), and is a no-op otherwise.
func (d *FileDevice) Init() error {
	total := d.Info().TotalSize()

	if st, err := os.Stat(d.path); err == nil {
		if st.Size() != total {
			return lonerr.New(lonerr.NoMemoryAvailable,
				fmt.Sprintf("flashhal: existing file %s size %d does not match configured geometry %d", d.path, st.Size(), total))
		}
		return nil
	}

	f, err := os.OpenFile(d.path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return lonerr.Wrap(lonerr.NoMemoryAvailable, "flashhal: create device file", err)
	}
	defer f.Close()

	erased := make([]byte, d.blockSize)
	for i := range erased {
		erased[i] = 0xFF
	}
	for off := int64(0); off < total; off += int64(d.blockSize) {
		if _, err := f.WriteAt(erased, off); err != nil {
			return lonerr.Wrap(lonerr.NoMemoryAvailable, "flashhal: initialize erased state", err)
		}
	}
	return nil
}

// Open opens the device file and takes an exclusive advisory lock.
func (d *FileDevice) Open() error {
	f, err := os.OpenFile(d.path, os.O_RDWR, 0600)
	if err != nil {
		return lonerr.Wrap(lonerr.NoMemoryAvailable, "flashhal: open device file", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return lonerr.Wrap(lonerr.NoMemoryAvailable, "flashhal: device already open elsewhere", err)
	}
	d.file = f
	return nil
}

// Close releases the lock and closes the device file.
func (d *FileDevice) Close() error {
	if d.file == nil {
		return nil
	}
	_ = unix.Flock(int(d.file.Fd()), unix.LOCK_UN)
	err := d.file.Close()
	d.file = nil
	return err
}

// Info returns the device's block geometry.
func (d *FileDevice) Info() Info {
	return Info{BlockSize: d.blockSize, NumBlocks: d.numBlocks}
}

func (d *FileDevice) bounds(offset int64, length int64) error {
	if offset < 0 || length < 0 || offset+length > d.Info().TotalSize() {
		return lonerr.New(lonerr.WritePastEndOfNetBuffer, "flashhal: access outside device bounds")
	}
	return nil
}

// Read copies len(buf) bytes starting at offset.
func (d *FileDevice) Read(offset int64, buf []byte) error {
	if err := d.bounds(offset, int64(len(buf))); err != nil {
		return err
	}
	_, err := d.file.ReadAt(buf, offset)
	return err
}

// Write ANDs data into the device over the whole range, so only already-1 bits
// can be cleared — matching the transaction scheme's reliance on 1-to-0
// writes (spec §4.5).
func (d *FileDevice) Write(offset int64, data []byte) error {
	if err := d.bounds(offset, int64(len(data))); err != nil {
		return err
	}

	cur := make([]byte, len(data))
	if _, err := d.file.ReadAt(cur, offset); err != nil {
		return err
	}
	for i := range data {
		cur[i] &= data[i]
	}
	_, err := d.file.WriteAt(cur, offset)
	return err
}

// Erase sets every byte in [offset, offset+length) to 0xFF. Both bounds
// must land on block boundaries.
func (d *FileDevice) Erase(offset int64, length int64) error {
	if offset%int64(d.blockSize) != 0 || length%int64(d.blockSize) != 0 {
		return lonerr.New(lonerr.NoMemoryAvailable, "flashhal: erase range is not block-aligned")
	}
	if err := d.bounds(offset, length); err != nil {
		return err
	}

	erased := make([]byte, d.blockSize)
	for i := range erased {
		erased[i] = 0xFF
	}
	for off := offset; off < offset+length; off += int64(d.blockSize) {
		if _, err := d.file.WriteAt(erased, off); err != nil {
			return err
		}
	}
	return nil
}

// RoundDownBlock rounds offset down to the nearest block boundary.
func RoundDownBlock(offset int64, blockSize int) int64 {
	return offset - offset%int64(blockSize)
}

// RoundUpBlocks returns the number of whole blocks needed to cover size
// bytes, times blockSize.
func RoundUpBlocks(size int64, blockSize int) int64 {
	n := (size + int64(blockSize) - 1) / int64(blockSize)
	return n * int64(blockSize)
}

var _ Device = (*FileDevice)(nil)
