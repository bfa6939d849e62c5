package persistence

// SegmentInfo is a read-only snapshot of one segment's map entry and
// on-flash transaction/header state, for `lonctl segment list|dump` —
// the Linux-host stand-in for the JTAG flash-dump tooling a real
// firmware build would use to diagnose torn writes.
type SegmentInfo struct {
	Type SegmentType

	SegmentStart int64
	TxOffset     int64
	DataOffset   int64
	MaxDataSize  int64

	InTransaction bool

	HeaderValid  bool
	HeaderLength uint16
	AppSignature uint32
	Checksum     uint8
}

// Segments returns every segment type in allocation order.
func Segments() []SegmentType {
	out := make([]SegmentType, len(segmentOrder))
	copy(out, segmentOrder)
	return out
}

// Inspect reads seg's map entry and raw on-flash transaction/header state
// without going through Restore's signature/checksum/appSignature
// acceptance gate, so a torn or rejected write is still visible.
func (m *Manager) Inspect(seg SegmentType) (SegmentInfo, error) {
	e, err := m.entry(seg)
	if err != nil {
		return SegmentInfo{}, err
	}

	info := SegmentInfo{
		Type:         seg,
		SegmentStart: e.segmentStart,
		TxOffset:     e.txOffset,
		DataOffset:   e.dataOffset,
		MaxDataSize:  e.maxDataSize,
	}

	inTx, err := m.IsInTransaction(seg)
	if err != nil {
		return info, err
	}
	info.InTransaction = inTx

	hdrBuf := make([]byte, headerSize)
	if err := m.dev.Read(e.dataOffset, hdrBuf); err != nil {
		return info, err
	}
	hdr := unmarshalHeader(hdrBuf)
	info.HeaderValid = hdr.Signature == HeaderSignature && hdr.Version <= CurrentVersion
	info.HeaderLength = hdr.Length
	info.AppSignature = hdr.AppSignature
	info.Checksum = hdr.Checksum

	return info, nil
}

// ReadPayload reads up to n bytes of seg's raw payload region, for
// `lonctl segment dump`. It does not validate the header or checksum.
func (m *Manager) ReadPayload(seg SegmentType, n int64) ([]byte, error) {
	e, err := m.entry(seg)
	if err != nil {
		return nil, err
	}
	if n > e.maxDataSize {
		n = e.maxDataSize
	}
	buf := make([]byte, n)
	if n > 0 {
		if err := m.dev.Read(e.dataOffset+headerSize, buf); err != nil {
			return nil, err
		}
	}
	return buf, nil
}
