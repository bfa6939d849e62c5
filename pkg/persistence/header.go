package persistence

import "encoding/binary"

const (
	// TxSignature marks a transaction record as "exited" (data valid) when
	// paired with TxStateValid (spec §3/§4.5).
	TxSignature  uint32 = 0x89ABCDEF
	TxStateValid uint32 = 0xFFFFFFFF

	// HeaderSignature is the PersistenceHeader's own plausibility marker,
	// distinct from TxSignature (spec §4.5).
	HeaderSignature uint16 = 0xCF82

	// CurrentVersion is the highest PersistenceHeader version this
	// implementation writes and accepts.
	CurrentVersion uint8 = 1

	txRecordSize = 8  // signature(4) + txState(4), both little-endian
	headerSize   = 10 // version(1) + length(2) + signature(2) + checksum(1) + appSignature(4)
)

// txRecord is the flash-resident PersistentTransactionRecord (spec §3).
type txRecord struct {
	Signature uint32
	TxState   uint32
}

func (t txRecord) marshal() []byte {
	buf := make([]byte, txRecordSize)
	binary.LittleEndian.PutUint32(buf[0:4], t.Signature)
	binary.LittleEndian.PutUint32(buf[4:8], t.TxState)
	return buf
}

func unmarshalTxRecord(buf []byte) txRecord {
	return txRecord{
		Signature: binary.LittleEndian.Uint32(buf[0:4]),
		TxState:   binary.LittleEndian.Uint32(buf[4:8]),
	}
}

// valid reports whether this transaction record marks its segment's data
// as valid: signature == TxSignature AND txState == TxStateValid.
func (t txRecord) valid() bool {
	return t.Signature == TxSignature && t.TxState == TxStateValid
}

// Header is the flash-resident PersistenceHeader (spec §3/§4.5).
type Header struct {
	Version      uint8
	Length       uint16
	Signature    uint16
	Checksum     uint8
	AppSignature uint32
}

func (h Header) marshal() []byte {
	buf := make([]byte, headerSize)
	buf[0] = h.Version
	binary.LittleEndian.PutUint16(buf[1:3], h.Length)
	binary.LittleEndian.PutUint16(buf[3:5], h.Signature)
	buf[5] = h.Checksum
	binary.LittleEndian.PutUint32(buf[6:10], h.AppSignature)
	return buf
}

func unmarshalHeader(buf []byte) Header {
	return Header{
		Version:      buf[0],
		Length:       binary.LittleEndian.Uint16(buf[1:3]),
		Signature:    binary.LittleEndian.Uint16(buf[3:5]),
		Checksum:     buf[5],
		AppSignature: binary.LittleEndian.Uint32(buf[6:10]),
	}
}

// ComputeChecksum preserves spec §4.5/§9's exact (possibly off-by-one)
// arithmetic verbatim: it sums length-1 bytes of payload, then adds
// length itself as a final term, all wrapping modulo 256. Whether this is
// an intentional check-length-is-part-of-the-sum design or an off-by-one
// is an open question (spec.md §9); this implementation does not "fix"
// it.
func ComputeChecksum(payload []byte) uint8 {
	length := len(payload)
	var sum int
	for i := 0; i < length-1; i++ {
		sum += int(payload[i])
	}
	sum += length
	return uint8(sum)
}
