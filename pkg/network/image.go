package network

import (
	"bytes"

	"github.com/izot/lon-core/internal/xdr"
)

// ImageHandler serializes/deserializes a Layer's DomainTable and
// ReadOnlyData for the persistence layer's NetworkImage segment (spec
// §4.5: "NetworkImage: opaque copy of the configData structure"). It
// satisfies persistence.Handler structurally, without pkg/network
// depending on pkg/persistence.
type ImageHandler struct {
	Layer *Layer
}

// Serialize encodes the domain table and read-only identity using the
// shared RFC 4506-flavored helpers: fixed-width fields big-endian, and the
// variable-length unique-id/domain-id byte strings length-prefixed and
// 4-byte aligned.
func (h *ImageHandler) Serialize() ([]byte, error) {
	var buf bytes.Buffer

	ro := h.Layer.ReadOnly
	if err := xdr.WriteXDROpaque(&buf, ro.UniqueNodeId[:]); err != nil {
		return nil, err
	}
	if err := xdr.WriteBool(&buf, ro.TwoDomains); err != nil {
		return nil, err
	}

	dt := h.Layer.Domain
	for i := 0; i < 2; i++ {
		e := dt.Entries[i]
		if err := xdr.WriteXDROpaque(&buf, e.Id[:e.IdLength]); err != nil {
			return nil, err
		}
		if err := xdr.WriteUint32(&buf, uint32(e.Subnet)); err != nil {
			return nil, err
		}
		if err := xdr.WriteUint32(&buf, uint32(e.Node)); err != nil {
			return nil, err
		}
		if err := xdr.WriteBool(&buf, e.Invalid); err != nil {
			return nil, err
		}
		if err := xdr.WriteXDROpaque(&buf, e.Groups[:]); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// Deserialize restores the domain table and read-only identity in place.
func (h *ImageHandler) Deserialize(data []byte) error {
	r := bytes.NewReader(data)

	uid, err := xdr.DecodeOpaque(r)
	if err != nil {
		return err
	}
	copy(h.Layer.ReadOnly.UniqueNodeId[:], uid)

	twoDomains, err := xdr.DecodeBool(r)
	if err != nil {
		return err
	}
	h.Layer.ReadOnly.TwoDomains = twoDomains
	h.Layer.Domain.TwoDomains = twoDomains

	for i := 0; i < 2; i++ {
		id, err := xdr.DecodeOpaque(r)
		if err != nil {
			return err
		}
		subnet, err := xdr.DecodeUint32(r)
		if err != nil {
			return err
		}
		node, err := xdr.DecodeUint32(r)
		if err != nil {
			return err
		}
		invalid, err := xdr.DecodeBool(r)
		if err != nil {
			return err
		}
		groups, err := xdr.DecodeOpaque(r)
		if err != nil {
			return err
		}

		e := &h.Layer.Domain.Entries[i]
		e.IdLength = len(id)
		copy(e.Id[:], id)
		e.Subnet = uint8(subnet)
		e.Node = uint8(node)
		e.Invalid = invalid
		copy(e.Groups[:], groups)
	}

	return nil
}
