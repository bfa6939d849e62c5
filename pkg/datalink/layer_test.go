package datalink

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/izot/lon-core/internal/crc16"
	"github.com/izot/lon-core/internal/queue"
)

// fakeLink is an in-memory Link double. Writes are recorded; reads are
// served from a caller-supplied queue of canned frames (or the zero value,
// meaning "nothing available").
type fakeLink struct {
	mu      sync.Mutex
	writes  [][]byte
	reads   [][]byte
	closed  bool
	onWrite func(frame []byte) // optional hook, e.g. to queue a canned reply
}

func (f *fakeLink) Open() error  { return nil }
func (f *fakeLink) Close() error { f.mu.Lock(); f.closed = true; f.mu.Unlock(); return nil }

func (f *fakeLink) Write(buf []byte) (int, error) {
	f.mu.Lock()
	f.writes = append(f.writes, append([]byte(nil), buf...))
	f.mu.Unlock()
	if f.onWrite != nil {
		f.onWrite(buf)
	}
	return len(buf), nil
}

func (f *fakeLink) Read(buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.reads) == 0 {
		return 0, nil
	}
	next := f.reads[0]
	f.reads = f.reads[1:]
	return copy(buf, next), nil
}

func (f *fakeLink) queueRead(b []byte) {
	f.mu.Lock()
	f.reads = append(f.reads, b)
	f.mu.Unlock()
}

// uniqueIdReply builds the SICB response fetchUniqueId expects: a 21-byte
// response frame whose payload echoes LNM_TAG/successCode, pads out the
// management header, and carries the 6-byte id at frame bytes [15:21].
func uniqueIdReply(id [6]byte) []byte {
	body := append([]byte{LNM_TAG, successCode}, make([]byte, 11)...)
	body = append(body, id[:]...)
	return encodeSicb(nicbRESPONSE, body)
}

func testConfig(ifaces ...InterfaceConfig) Config {
	return Config{
		Interfaces:        ifaces,
		LkOutQCnt:         4,
		LkOutPriQCnt:      2,
		LkOutBufSize:      66,
		LkInBufSize:       256,
		LkInQCnt:          4,
		XcvrFetchInterval: 10 * time.Second,
	}
}

func TestResetOpensInterfaceAndAllocatesQueues(t *testing.T) {
	link := &fakeLink{}
	l := New()
	require.NoError(t, l.Reset(testConfig(InterfaceConfig{Kind: KindUSB, Link: link})))
	assert.True(t, l.ResetOk)
	assert.False(t, l.OutQueue().Full())
}

func TestResetFetchesUniqueIdOnPowerLineInterface(t *testing.T) {
	link := &fakeLink{}
	want := [6]byte{1, 2, 3, 4, 5, 6}
	link.onWrite = func([]byte) {
		link.queueRead(uniqueIdReply(want))
	}

	l := New()
	require.NoError(t, l.Reset(testConfig(InterfaceConfig{Kind: KindPowerLine, Link: link})))
	assert.Equal(t, want, l.UniqueNodeId())
}

func TestCloseClosesEveryInterfaceAndReportsFirstError(t *testing.T) {
	ok := &fakeLink{}
	failing := &closeErrLink{fakeLink: fakeLink{}}

	l := New()
	require.NoError(t, l.Reset(testConfig(
		InterfaceConfig{Kind: KindUSB, Link: ok},
		InterfaceConfig{Kind: KindUSB, Link: failing},
	)))

	err := l.Close()
	require.Error(t, err)
	assert.True(t, ok.closed)
}

type closeErrLink struct{ fakeLink }

func (f *closeErrLink) Close() error { return errors.New("stuck transceiver") }

func TestLKSendFramesHeadNPDUAndWritesToEveryInterface(t *testing.T) {
	usb := &fakeLink{}
	l := New()
	require.NoError(t, l.Reset(testConfig(InterfaceConfig{Kind: KindUSB, Link: usb})))

	slot := l.lkOutQ.Tail()
	packNwEntry(slot, false, false, []byte{0xAA, 0xBB, 0xCC})
	l.lkOutQ.Write()

	l.LKSend()

	assert.True(t, l.lkOutQ.Empty())
	require.Len(t, usb.writes, 1)
	frame := usb.writes[0]
	assert.Equal(t, cmdOutgoingL2, frame[0])
}

func TestLKSendPrefersPriorityQueue(t *testing.T) {
	usb := &fakeLink{}
	l := New()
	require.NoError(t, l.Reset(testConfig(InterfaceConfig{Kind: KindUSB, Link: usb})))

	lowSlot := l.lkOutQ.Tail()
	packNwEntry(lowSlot, false, false, []byte{0x01})
	l.lkOutQ.Write()

	priSlot := l.lkOutPriQ.Tail()
	packNwEntry(priSlot, true, false, []byte{0x02})
	l.lkOutPriQ.Write()

	l.LKSend()

	assert.True(t, l.lkOutPriQ.Empty(), "priority entry drained")
	assert.False(t, l.lkOutQ.Empty(), "non-priority entry untouched")
}

func newTestNwInQ(t *testing.T) *queue.Queue {
	t.Helper()
	q, err := queue.New("nwInQ", 66+4, 4)
	require.NoError(t, err)
	return q
}

func TestLKReceiveAcceptsL2M2FrameOntoNwInQ(t *testing.T) {
	usb := &fakeLink{}
	l := New()
	require.NoError(t, l.Reset(testConfig(InterfaceConfig{Kind: KindUSB, Link: usb})))
	nwInQ := newTestNwInQ(t)
	l.SetNetworkInQueue(nwInQ)

	npdu := []byte{0x10, 0x20, 0x30, 0x40, 0x50, 0x60, 0x70, 0x80}
	lpduHeader := packLpduHeader(false, false, 0)
	lpdu := append([]byte{lpduHeader}, npdu...)
	framedLpdu := crc16.Append(lpdu)

	payload := append([]byte{l.localNmCode}, framedLpdu...)
	payload = append(payload, 0, 0) // trailing register/zero-crossing bytes
	frame := encodeSicb(nicbINCOMING_L2M2, payload)
	usb.queueRead(frame)

	l.LKReceive()

	assert.False(t, nwInQ.Empty())
	assert.Equal(t, uint16(1), l.Stats.Get(LcsL2Rx))
}

func TestLKReceiveIgnoresResponseFrameAndCachesXcvrParams(t *testing.T) {
	usb := &fakeLink{}
	l := New()
	require.NoError(t, l.Reset(testConfig(InterfaceConfig{Kind: KindUSB, Link: usb})))

	usb.queueRead(encodeSicb(nicbRESPONSE, []byte{LNM_TAG, successCode, 0xAA}))

	l.LKReceive()

	assert.Equal(t, uint16(0), l.Stats.Get(LcsL2Rx))
	assert.Equal(t, []byte{0xAA}, l.ifaces[0].xcvrParams)
}

func TestLKReceiveMarksPhaseLostOnResetFrame(t *testing.T) {
	plc := &fakeLink{}
	plc.onWrite = func([]byte) {
		plc.queueRead(uniqueIdReply([6]byte{1, 2, 3, 4, 5, 6}))
	}

	l := New()
	require.NoError(t, l.Reset(testConfig(InterfaceConfig{Kind: KindPowerLine, Link: plc})))

	plc.onWrite = nil
	plc.mu.Lock()
	plc.reads = nil
	plc.mu.Unlock()
	plc.queueRead(encodeSicb(nicbRESET, nil))

	l.LKReceive()

	assert.True(t, l.ifaces[0].phaseLost)
}
