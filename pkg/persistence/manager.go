// Package persistence implements the Persistent Segment Manager (spec
// §4.5): transactional, checksummed, segment-oriented persistence of
// network image and application data atop flashhal.Device, with
// guard-band commit batching and crash-consistency.
package persistence

import (
	"time"

	"github.com/izot/lon-core/internal/lonerr"
	"github.com/izot/lon-core/internal/logger"
	"github.com/izot/lon-core/pkg/flashhal"
)

// segmentOrder fixes the top-down allocation order; stable across boots so
// a segment's offsets never move once mapped (spec §3's Lifecycles).
var segmentOrder = []SegmentType{
	SegmentNetworkImage,
	SegmentSecurityII,
	SegmentNodeDefinition,
	SegmentApplicationData,
	SegmentUniqueId,
	SegmentConnectionTable,
	SegmentIsi,
}

// Manager is the Persistent Segment Manager's runtime state.
type Manager struct {
	dev          flashhal.Device
	blockSize    int
	appSignature uint32
	guardBand    time.Duration
	now          func() time.Time

	entries    map[SegmentType]mapEntry
	handlers   map[SegmentType]Handler
	dirty      map[SegmentType]bool
	lastUpdate map[SegmentType]time.Time
	commitFlag bool
}

// Config carries Manager construction parameters.
type Config struct {
	AppSignature uint32
	GuardBand    time.Duration
	MaxDataSize  map[SegmentType]int64
}

// New lays out every segment in segmentOrder, top-down, atop dev, and
// returns a Manager ready to accept Handler registrations.
func New(dev flashhal.Device, cfg Config) *Manager {
	info := dev.Info()
	entries := layoutSegments(info.TotalSize(), info.BlockSize, segmentOrder, cfg.MaxDataSize)

	return &Manager{
		dev:          dev,
		blockSize:    info.BlockSize,
		appSignature: cfg.AppSignature,
		guardBand:    cfg.GuardBand,
		now:          time.Now,
		entries:      entries,
		handlers:     make(map[SegmentType]Handler),
		dirty:        make(map[SegmentType]bool),
		lastUpdate:   make(map[SegmentType]time.Time),
	}
}

// Register binds a Handler to a segment type. Store/Restore for that
// segment are no-ops (StackNotInitialized) until this is called.
func (m *Manager) Register(seg SegmentType, h Handler) {
	m.handlers[seg] = h
}

func (m *Manager) entry(seg SegmentType) (mapEntry, error) {
	e, ok := m.entries[seg]
	if !ok {
		return mapEntry{}, lonerr.New(lonerr.StackNotInitialized, "persistence: unknown segment type")
	}
	return e, nil
}

// IsInTransaction reports whether seg's transaction record currently
// reads as "in transaction" (data not yet valid), per spec §4.5.
func (m *Manager) IsInTransaction(seg SegmentType) (bool, error) {
	e, err := m.entry(seg)
	if err != nil {
		return true, err
	}
	buf := make([]byte, txRecordSize)
	if err := m.dev.Read(e.txOffset, buf); err != nil {
		return true, err
	}
	return !unmarshalTxRecord(buf).valid(), nil
}

func (m *Manager) enterTransaction(e mapEntry) error {
	tx := txRecord{Signature: TxSignature, TxState: 0}
	return m.dev.Write(e.txOffset, tx.marshal())
}

// openForWrite erases every block spanning tx + max(size, reserved), then
// re-marks the (now-erased, all-0xFF) transaction record explicitly —
// still "in transaction" because the signature is no longer TxSignature.
func (m *Manager) openForWrite(e mapEntry, size int64) error {
	reserved := txRecordSize + headerSize + e.maxDataSize
	span := size
	if reserved > span {
		span = reserved
	}

	eraseStart := flashhal.RoundDownBlock(e.txOffset, m.blockSize)
	eraseLen := flashhal.RoundUpBlocks(span, m.blockSize)
	if err := m.dev.Erase(eraseStart, eraseLen); err != nil {
		return err
	}

	tx := txRecord{Signature: TxStateValid, TxState: TxStateValid}
	return m.dev.Write(e.txOffset, tx.marshal())
}

func (m *Manager) exitTransaction(e mapEntry) error {
	tx := txRecord{Signature: TxSignature, TxState: TxStateValid}
	return m.dev.Write(e.txOffset, tx.marshal())
}

// Restore implements spec §4.5's Restore(seg): validate the transaction
// record, header, and checksum, then hand the payload to seg's Handler.
func (m *Manager) Restore(seg SegmentType) error {
	e, err := m.entry(seg)
	if err != nil {
		return err
	}
	h, ok := m.handlers[seg]
	if !ok {
		return lonerr.New(lonerr.StackNotInitialized, "persistence: no handler registered for "+seg.String())
	}

	inTx, err := m.IsInTransaction(seg)
	if err != nil || inTx {
		return lonerr.New(lonerr.PersistentDataFailure, "persistence: "+seg.String()+" is in-transaction or unreadable")
	}

	hdrBuf := make([]byte, headerSize)
	if err := m.dev.Read(e.dataOffset, hdrBuf); err != nil {
		return lonerr.Wrap(lonerr.PersistentDataFailure, "persistence: read header", err)
	}
	hdr := unmarshalHeader(hdrBuf)

	if hdr.Signature != HeaderSignature || hdr.Version > CurrentVersion {
		return lonerr.New(lonerr.PersistentDataFailure, "persistence: "+seg.String()+" header signature/version mismatch")
	}
	if int64(hdr.Length) > e.maxDataSize {
		return lonerr.New(lonerr.PersistentDataFailure, "persistence: "+seg.String()+" length exceeds segment capacity")
	}

	payload := make([]byte, hdr.Length)
	if len(payload) > 0 {
		if err := m.dev.Read(e.dataOffset+headerSize, payload); err != nil {
			return lonerr.Wrap(lonerr.PersistentDataFailure, "persistence: read payload", err)
		}
	}

	// AppSignature 0 is a wildcard that skips both the identity check and
	// the checksum (spec §4.5).
	if hdr.AppSignature != 0 {
		if hdr.AppSignature != m.appSignature {
			return lonerr.New(lonerr.PersistentDataFailure, "persistence: "+seg.String()+" appSignature mismatch")
		}
		if ComputeChecksum(payload) != hdr.Checksum {
			return lonerr.New(lonerr.PersistentDataFailure, "persistence: "+seg.String()+" checksum mismatch")
		}
	}

	if err := h.Deserialize(payload); err != nil {
		return lonerr.Wrap(lonerr.PersistentDataFailure, "persistence: "+seg.String()+" deserialize rejected payload", err)
	}
	return nil
}

// Store implements spec §4.5's Store(seg): serialize, compute checksum,
// erase, write header+payload, and only then exit the transaction. A
// failed write leaves the segment marked in-transaction, protecting
// nothing — the erase has already destroyed whatever was there — but
// ensuring the next Restore correctly reports failure rather than
// returning torn data.
func (m *Manager) Store(seg SegmentType) error {
	e, err := m.entry(seg)
	if err != nil {
		return err
	}
	h, ok := m.handlers[seg]
	if !ok {
		return lonerr.New(lonerr.StackNotInitialized, "persistence: no handler registered for "+seg.String())
	}

	payload, err := h.Serialize()
	if err != nil {
		return lonerr.Wrap(lonerr.PersistentDataFailure, "persistence: "+seg.String()+" serialize failed", err)
	}
	if int64(len(payload)) > e.maxDataSize {
		return lonerr.New(lonerr.WritePastEndOfApplBuffer, "persistence: "+seg.String()+" payload exceeds segment capacity")
	}

	if err := m.enterTransaction(e); err != nil {
		return lonerr.Wrap(lonerr.PersistentDataFailure, "persistence: enter transaction", err)
	}

	if err := m.openForWrite(e, int64(headerSize+len(payload))); err != nil {
		return lonerr.Wrap(lonerr.PersistentDataFailure, "persistence: open for write", err)
	}

	hdr := Header{
		Version:      CurrentVersion,
		Length:       uint16(len(payload)),
		Signature:    HeaderSignature,
		Checksum:     ComputeChecksum(payload),
		AppSignature: m.appSignature,
	}
	if err := m.dev.Write(e.dataOffset, hdr.marshal()); err != nil {
		logger.Error("persistence: header write failed, segment left in-transaction", logger.Segment(seg.String()), logger.Err(err))
		return lonerr.Wrap(lonerr.PersistentDataFailure, "persistence: write header", err)
	}
	if len(payload) > 0 {
		if err := m.dev.Write(e.dataOffset+headerSize, payload); err != nil {
			logger.Error("persistence: payload write failed, segment left in-transaction", logger.Segment(seg.String()), logger.Err(err))
			return lonerr.Wrap(lonerr.PersistentDataFailure, "persistence: write payload", err)
		}
	}

	if err := m.exitTransaction(e); err != nil {
		return lonerr.Wrap(lonerr.PersistentDataFailure, "persistence: exit transaction", err)
	}

	delete(m.dirty, seg)
	return nil
}

// SetCommitFlag marks seg dirty and arms its guard-band window, to be
// flushed by the next CommitTick once the window expires (spec §4.5).
func (m *Manager) SetCommitFlag(seg SegmentType) {
	m.dirty[seg] = true
	m.lastUpdate[seg] = m.now()
}

// StartCommitTimer (re)configures the guard-band duration; callers pass
// the configured milliseconds and this normalizes to a time.Duration.
func (m *Manager) StartCommitTimer(guardBandMs int64) {
	m.guardBand = time.Duration(guardBandMs) * time.Millisecond
}

// ForceCommit causes the next CommitTick to store every dirty segment
// regardless of elapsed guard-band time — used at reset/shutdown.
func (m *Manager) ForceCommit() {
	m.commitFlag = true
}

// CommitTick is the guard-band check driven once per scheduler tick: once
// elapsed >= guardBand OR commitFlag is set, every dirty segment is
// stored, sleeping ~20ms between segments to respect flash-driver timing
// (spec §4.5). Multiple SetCommitFlag calls for the same segment between
// ticks coalesce into a single Store.
func (m *Manager) CommitTick() {
	if len(m.dirty) == 0 {
		m.commitFlag = false
		return
	}

	now := m.now()
	due := m.commitFlag
	if !due {
		for seg := range m.dirty {
			if now.Sub(m.lastUpdate[seg]) >= m.guardBand {
				due = true
				break
			}
		}
	}
	if !due {
		return
	}

	pending := make([]SegmentType, 0, len(m.dirty))
	for seg := range m.dirty {
		pending = append(pending, seg)
	}

	for i, seg := range pending {
		if err := m.Store(seg); err != nil {
			logger.Error("persistence: guard-band commit failed", logger.Segment(seg.String()), logger.Err(err))
		}
		if i < len(pending)-1 {
			time.Sleep(20 * time.Millisecond)
		}
	}
	m.commitFlag = false
}
