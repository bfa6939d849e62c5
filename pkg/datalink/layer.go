// Package datalink implements the Data Link Layer (L2): LPDU framing,
// dual priority/non-priority output queues, the SICB command protocol to
// the network interface, CRC-16 (for interfaces that don't compute their
// own), and power-line transceiver parameter probing.
package datalink

import (
	"time"

	"github.com/izot/lon-core/internal/lonerr"
	"github.com/izot/lon-core/internal/logger"
	"github.com/izot/lon-core/internal/queue"
	"github.com/izot/lon-core/internal/ringbuffer"
)

// Kind discriminates the configured network interface's transceiver
// family. Power-line interfaces carry extra capability (phase-setting
// re-send, periodic parameter probing) the other kinds don't need (spec
// §9's Design Notes: "implementations may compile them out or feature-
// gate them behind an interface capability flag").
type Kind int

const (
	KindMIP Kind = iota
	KindUSB
	KindPowerLine
)

// Link is the host interface to a single transceiver: OpenLonLink/
// ReadLonLink/WriteLonLink (spec §1, out of scope — provided by the
// embedding application). Read returns 0 bytes and a nil error when
// nothing is currently available; it must not block indefinitely.
type Link interface {
	Open() error
	Close() error
	Read(buf []byte) (int, error)
	Write(buf []byte) (int, error)
}

// InterfaceConfig describes one configured network interface.
type InterfaceConfig struct {
	Kind Kind
	Link Link
}

// Config carries Reset-time sizing parameters decoded from the node's
// configuration.
type Config struct {
	Interfaces []InterfaceConfig

	LkOutQCnt    int
	LkOutPriQCnt int
	LkOutBufSize int // max bytes of one L2 frame's NPDU payload

	LkInBufSize int // DecodeBufferSize(nwInBufSize): per-slot raw byte capacity
	LkInQCnt    int // DecodeBufferCnt(nwInQCnt)

	// XcvrFetchInterval is the power-line transceiver parameter refresh
	// period (spec §4.3: "starts a 10-second repeat timer").
	XcvrFetchInterval time.Duration
}

type ifaceState struct {
	cfg InterfaceConfig
	in  *ringbuffer.RingBuffer

	// xcvrParams caches the most recent ND_QUERY_XCVR response body.
	xcvrParams []byte

	// phaseLost is set when a non-L2M2 incoming frame (RESET, L2, L2M1) is
	// observed on a power-line interface — spec §4.3's receive-path note
	// that the phase setting must be re-sent.
	phaseLost bool

	// fetchPending holds a failed ND_QUERY_XCVR send across ticks so the
	// next one retries (spec §4.3's outbound-path note).
	fetchPending bool
}

// Layer is the Data Link Layer's runtime state.
type Layer struct {
	cfg Config

	lkOutQ    *queue.Queue
	lkOutPriQ *queue.Queue
	nwInQ     *queue.Queue // owned by the network layer; LKReceive enqueues into it

	ifaces []*ifaceState

	uniqueNodeId  [6]byte
	localNmCode   byte
	xcvrFetchDue  time.Time
	nextXcvrFetch time.Time

	Stats Statistics

	ResetOk bool
}

// New constructs a Layer; call Reset before using it.
func New() *Layer {
	return &Layer{}
}

// SetNetworkInQueue binds the network layer's nwInQ, into which LKReceive
// hands off accepted frames.
func (l *Layer) SetNetworkInQueue(q *queue.Queue) { l.nwInQ = q }

// OutQueue and OutPriQueue expose the network layer's hand-off targets.
func (l *Layer) OutQueue() *queue.Queue    { return l.lkOutQ }
func (l *Layer) OutPriQueue() *queue.Queue { return l.lkOutPriQ }

// UniqueNodeId returns the unique id fetched from the power-line
// transceiver during Reset (zero value on non-power-line-only configs
// until a Read-Unique-ID response arrives).
func (l *Layer) UniqueNodeId() [6]byte { return l.uniqueNodeId }

// Reset allocates lkOutQ/lkOutPriQ, opens every configured interface, and
// — for power-line interfaces — blocks issuing Read-Unique-ID management
// frames on a 500ms retry until one succeeds (spec §4.3). On success, a
// 10-second repeat timer for transceiver parameter probing is armed.
func (l *Layer) Reset(cfg Config) error {
	l.cfg = cfg
	l.ResetOk = true
	l.localNmCode = 0x00

	var err error
	if l.lkOutQ, err = queue.New("lkOutQ", cfg.LkOutBufSize+4, cfg.LkOutQCnt); err != nil {
		l.ResetOk = false
		return err
	}
	if l.lkOutPriQ, err = queue.New("lkOutPriQ", cfg.LkOutBufSize+4, cfg.LkOutPriQCnt); err != nil {
		l.ResetOk = false
		return err
	}

	l.ifaces = make([]*ifaceState, 0, len(cfg.Interfaces))
	for idx, ic := range cfg.Interfaces {
		ring, err := ringbuffer.New(cfg.LkInBufSize*cfg.LkInQCnt, 0)
		if err != nil {
			l.ResetOk = false
			return err
		}
		if err := ic.Link.Open(); err != nil {
			l.ResetOk = false
			return lonerr.Wrap(lonerr.NoMemoryAvailable, "datalink: open link interface", err)
		}

		st := &ifaceState{cfg: ic, in: ring}
		l.ifaces = append(l.ifaces, st)

		if ic.Kind == KindPowerLine {
			if err := l.fetchUniqueId(idx, st); err != nil {
				l.ResetOk = false
				return err
			}
		}
	}

	l.nextXcvrFetch = time.Now().Add(cfg.XcvrFetchInterval)
	return nil
}

// Close closes every opened interface's link. Each error is logged and the
// remaining interfaces are still closed, so one stuck transceiver doesn't
// stop the others from closing; the first error is returned.
func (l *Layer) Close() error {
	var first error
	for idx, st := range l.ifaces {
		if err := st.cfg.Link.Close(); err != nil {
			logger.Warn("datalink: close link interface failed", logger.Interface(idx), logger.Err(err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// fetchUniqueId issues NM_READ_MEMORY/READ_ONLY_RELATIVE management
// frames, retrying every 500ms, until a response is parsed — bytes
// [15:21] of the response form the unique id (spec §4.3).
func (l *Layer) fetchUniqueId(idx int, st *ifaceState) error {
	req := buildManagementFrame(cmdNMReadMemory, []byte{READ_ONLY_RELATIVE, 0, 6})

	for {
		if _, err := st.cfg.Link.Write(req); err != nil {
			logger.Warn("datalink: unique-id request failed, retrying", logger.Interface(idx), logger.Err(err))
		} else {
			buf := make([]byte, maxFrameBytes)
			n, err := st.cfg.Link.Read(buf)
			if err == nil && n >= 21 {
				copy(l.uniqueNodeId[:], buf[15:21])
				return nil
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
}
