package core

import "github.com/izot/lon-core/internal/ringbuffer"

// LoopbackLink is a host-side stand-in for the out-of-scope LON link HAL
// (spec §1: "OpenLonLink, ReadLonLink, WriteLonLink ... framed byte pipe
// to a USB or serial transceiver"). It satisfies datalink.Link without
// any real transceiver attached, which is what `lonctl run`/`lonctl
// stats` use in place of target hardware: everything written to it is
// discarded and never answered, so the data link layer's Reset
// never blocks except on a power-line interface's unique-id fetch (which
// this stub never satisfies — don't configure a powerline interface
// against it).
type LoopbackLink struct {
	name string
	buf  *ringbuffer.RingBuffer
}

// NewLoopbackLink constructs a named LoopbackLink.
func NewLoopbackLink(name string) *LoopbackLink {
	ring, _ := ringbuffer.New(ringbuffer.DefaultMaxCapacity, 0)
	return &LoopbackLink{name: name, buf: ring}
}

func (l *LoopbackLink) Open() error  { return nil }
func (l *LoopbackLink) Close() error { return nil }

// Read always reports no bytes available: a loopback with nothing on the
// wire, per datalink.Link's documented "nothing currently available"
// contract.
func (l *LoopbackLink) Read(buf []byte) (int, error) {
	return 0, nil
}

// Write discards the frame; a host harness has no peer to deliver it to.
func (l *LoopbackLink) Write(buf []byte) (int, error) {
	return len(buf), nil
}
