// Package network implements the Network Layer (L3): NPDU encode/decode,
// addressing and domain logic, flex-domain policy, and demultiplexing into
// application/transport-session-authentication queues.
package network

import (
	"github.com/izot/lon-core/internal/lonerr"
	"github.com/izot/lon-core/internal/logger"
	"github.com/izot/lon-core/internal/queue"
)

// queueEntryOverhead is the size of the fixed param prefix packed into
// every nwIn/nwOut(Pri) queue entry ahead of the raw NPDU bytes:
// priority(1) | altPath(1) | pduSize(2, big-endian).
const queueEntryOverhead = 4

// Config carries the Reset-time sizing and policy parameters decoded from
// the node's configuration.
type Config struct {
	NwInBufSize  int
	NwOutBufSize int
	NwInQCnt     int
	NwOutQCnt    int
	NwOutPriQCnt int
	AppInQCnt    int
	TsaInQCnt    int

	// DropIfUnconfigured gates whether a non-flex send is silently dropped
	// while the node has not completed commissioning.
	DropIfUnconfigured bool
}

// Layer is the Network Layer's runtime state: its three core queues, the
// domain table and read-only identity it routes against, and the
// statistics counters it bumps instead of propagating per-packet errors.
type Layer struct {
	cfg Config

	nwInQ     *queue.Queue
	nwOutQ    *queue.Queue
	nwOutPriQ *queue.Queue

	appInQ      *queue.Queue
	tsaInQ      *queue.Queue
	appCeRspInQ *queue.Queue

	// lkOutQ/lkOutPriQ are owned by the data link layer; the network layer
	// hands off outbound frames into them directly, as spec §4.4 step 9
	// describes ("enqueue on lkCurrent").
	lkOutQ    *queue.Queue
	lkOutPriQ *queue.Queue

	Domain     DomainTable
	ReadOnly   ReadOnlyData
	Stats      Statistics
	ResetOk    bool
	Configured bool
}

// New constructs a Layer; call Reset before using it.
func New() *Layer {
	return &Layer{}
}

// Reset allocates nwInQ/nwOutQ/nwOutPriQ (plus the appInQ/tsaInQ/
// appCeRspInQ sinks) per cfg. It requires NwOutQCnt ≥ 2 and
// NwOutPriQCnt ≥ 1; a violation marks ResetOk false without panicking, so
// the scheduler can observe it and halt further initialization.
func (l *Layer) Reset(cfg Config) error {
	l.cfg = cfg
	l.ResetOk = true
	l.Stats.Reset()

	if cfg.NwOutQCnt < 2 {
		logger.Error("nwOutQCnt must be >= 2", logger.Queue("nwOutQ"), logger.StatValue(uint16(cfg.NwOutQCnt)))
		l.ResetOk = false
	}
	if cfg.NwOutPriQCnt < 1 {
		logger.Error("nwOutPriQCnt must be >= 1", logger.Queue("nwOutPriQ"), logger.StatValue(uint16(cfg.NwOutPriQCnt)))
		l.ResetOk = false
	}
	if !l.ResetOk {
		return lonerr.New(lonerr.NoMemoryAvailable, "network layer Reset: invalid queue counts")
	}

	var err error
	if l.nwInQ, err = queue.New("nwInQ", cfg.NwInBufSize+queueEntryOverhead, cfg.NwInQCnt); err != nil {
		l.ResetOk = false
		return err
	}
	if l.nwOutQ, err = queue.New("nwOutQ", cfg.NwOutBufSize+queueEntryOverhead, cfg.NwOutQCnt); err != nil {
		l.ResetOk = false
		return err
	}
	if l.nwOutPriQ, err = queue.New("nwOutPriQ", cfg.NwOutBufSize+queueEntryOverhead, cfg.NwOutPriQCnt); err != nil {
		l.ResetOk = false
		return err
	}
	if l.appInQ, err = queue.New("appInQ", cfg.NwInBufSize+dispatchEntryOverhead, cfg.AppInQCnt); err != nil {
		l.ResetOk = false
		return err
	}
	if l.tsaInQ, err = queue.New("tsaInQ", cfg.NwInBufSize+dispatchEntryOverhead, cfg.TsaInQCnt); err != nil {
		l.ResetOk = false
		return err
	}
	if l.appCeRspInQ, err = queue.New("appCeRspInQ", 1, cfg.AppInQCnt); err != nil {
		l.ResetOk = false
		return err
	}

	return nil
}

// SetLinkQueues binds the data link layer's outbound queues, into which
// NWSend hands off framed NPDUs.
func (l *Layer) SetLinkQueues(outQ, outPriQ *queue.Queue) {
	l.lkOutQ = outQ
	l.lkOutPriQ = outPriQ
}

// InQueue exposes nwInQ so the data link layer's LKReceive can enqueue
// decoded frames.
func (l *Layer) InQueue() *queue.Queue { return l.nwInQ }

// OutQueue and OutPriQueue expose the application-facing send queues.
func (l *Layer) OutQueue() *queue.Queue    { return l.nwOutQ }
func (l *Layer) OutPriQueue() *queue.Queue { return l.nwOutPriQ }

// AppInQueue, TsaInQueue, and CompletionQueue expose the layer's dispatch
// sinks for test harnesses and the application/TSA consumers.
func (l *Layer) AppInQueue() *queue.Queue        { return l.appInQ }
func (l *Layer) TsaInQueue() *queue.Queue        { return l.tsaInQ }
func (l *Layer) CompletionQueue() *queue.Queue   { return l.appCeRspInQ }

func packEntry(slot []byte, priority, altPath bool, npdu []byte) {
	slot[0] = boolToByte(priority)
	slot[1] = boolToByte(altPath)
	slot[2] = byte(len(npdu) >> 8)
	slot[3] = byte(len(npdu))
	copy(slot[4:], npdu)
}

func unpackEntry(slot []byte) (priority, altPath bool, npdu []byte) {
	priority = slot[0] != 0
	altPath = slot[1] != 0
	size := int(slot[2])<<8 | int(slot[3])
	npdu = slot[4 : 4+size]
	return
}

func boolToByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
