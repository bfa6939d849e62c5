package persistence

// SegmentType enumerates the closed set of persisted segment kinds
// (spec §3). Each type occupies exactly one segment.
type SegmentType int

const (
	SegmentNetworkImage SegmentType = iota
	SegmentSecurityII
	SegmentNodeDefinition
	SegmentApplicationData
	SegmentUniqueId
	SegmentConnectionTable
	SegmentIsi
	segmentTypeCount
)

func (s SegmentType) String() string {
	switch s {
	case SegmentNetworkImage:
		return "NetworkImage"
	case SegmentSecurityII:
		return "SecurityII"
	case SegmentNodeDefinition:
		return "NodeDefinition"
	case SegmentApplicationData:
		return "ApplicationData"
	case SegmentUniqueId:
		return "UniqueId"
	case SegmentConnectionTable:
		return "ConnectionTable"
	case SegmentIsi:
		return "Isi"
	default:
		return "Unknown"
	}
}

// Handler serializes/deserializes one segment's payload. NetworkImage and
// ApplicationData are the two kinds spec §4.5 calls out by name — the
// former an opaque struct copy, the latter delegated to a registered
// izot_serialize_handler/izot_deserialize_handler pair. Both, and every
// other segment kind, implement this same interface.
type Handler interface {
	Serialize() ([]byte, error)
	Deserialize([]byte) error
}

// RawHandler is the identity Handler: Serialize returns Data verbatim and
// Deserialize replaces it. This is what spec §4.5 means by "NetworkImage:
// opaque copy of the configData structure" when the caller does not need
// a richer in-memory representation of the image.
type RawHandler struct {
	Data []byte
}

func (h *RawHandler) Serialize() ([]byte, error) { return h.Data, nil }

func (h *RawHandler) Deserialize(b []byte) error {
	h.Data = append([]byte(nil), b...)
	return nil
}

var _ Handler = (*RawHandler)(nil)

// mapEntry is one segment's flash-layout bookkeeping (spec §3).
type mapEntry struct {
	segmentStart int64
	txOffset     int64
	dataOffset   int64
	maxDataSize  int64
}

// layoutSegments lays out segments contiguously, top-down, in the
// persistent region, each segment's start rounded down to a block
// boundary (spec §4.5's "Flash layout" and §3's Lifecycles: "laid out on
// the first access per boot, top-down in the flash region").
func layoutSegments(totalSize int64, blockSize int, order []SegmentType, maxDataSize map[SegmentType]int64) map[SegmentType]mapEntry {
	out := make(map[SegmentType]mapEntry, len(order))
	cursor := totalSize

	for _, st := range order {
		size := headerSize + maxDataSize[st]
		reserved := int64(txRecordSize) + size
		blocks := (reserved + int64(blockSize) - 1) / int64(blockSize)
		span := blocks * int64(blockSize)

		cursor -= span
		start := cursor - cursor%int64(blockSize)

		out[st] = mapEntry{
			segmentStart: start,
			txOffset:     start,
			dataOffset:   start + txRecordSize,
			maxDataSize:  maxDataSize[st],
		}
		cursor = start
	}
	return out
}
