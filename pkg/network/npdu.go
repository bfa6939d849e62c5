package network

import (
	"github.com/izot/lon-core/internal/lonerr"
)

// PduType is the 2-bit enclosed-PDU discriminator carried in the NPDU
// header.
type PduType uint8

const (
	PduAPDU PduType = iota
	PduTPDU
	PduSPDU
	PduAUTHPDU
)

func (t PduType) String() string {
	switch t {
	case PduAPDU:
		return "APDU"
	case PduTPDU:
		return "TPDU"
	case PduSPDU:
		return "SPDU"
	case PduAUTHPDU:
		return "AUTHPDU"
	default:
		return "unknown"
	}
}

// Header is the fully decoded form of an NPDU's addressing envelope.
// Encode/Decode round-trip this structure bit-for-bit against the wire
// layout described in spec section 6:
//
//	byte 0:            protocolVersion:2 | pduType:2 | addrFmt:2 | domainLength:2
//	byte 1:            source subnet (0 in flex domain)
//	byte 2:            selField:1 | sourceNode:7 (0x80 in flex domain)
//	bytes 3..:         destination address, 1/1/2/4/7 bytes by addrFmt
//	bytes ...:         domain id, 0/1/3/6 bytes by domainLength code
type Header struct {
	ProtocolVersion uint8
	PduType         PduType
	Dest            AddressMode
	SrcSubnet       uint8
	SrcNode         uint8 // 7-bit
	SelField        uint8 // 1-bit
	DomainId        []byte
	Flex            bool // true when no domain table row matched (source subnet/node are 0/0x80)
}

// Encode writes the NPDU header followed by payload into a new byte slice.
// It returns WritePastEndOfNetBuffer if the result would exceed maxLen, and
// BadAddressType/InvalidDomain for a malformed header.
func Encode(h Header, payload []byte, maxLen int) ([]byte, error) {
	addrFmt, err := h.Dest.addrFmt()
	if err != nil {
		return nil, err
	}

	domainCode, err := domainLenCode(len(h.DomainId))
	if err != nil {
		return nil, err
	}

	destLen := h.Dest.destLen()
	total := 3 + destLen + len(h.DomainId) + len(payload)
	if total > maxLen {
		return nil, lonerr.New(lonerr.WritePastEndOfNetBuffer,
			"encoded NPDU exceeds output buffer")
	}

	buf := make([]byte, total)
	buf[0] = (h.ProtocolVersion&0x3)<<6 | (uint8(h.PduType)&0x3)<<4 | (uint8(addrFmt)&0x3)<<2 | (domainCode & 0x3)

	if h.Flex {
		buf[1] = 0
		buf[2] = 0x80
	} else {
		buf[1] = h.SrcSubnet
		buf[2] = (h.SelField&0x1)<<7 | (h.SrcNode & 0x7F)
	}

	j := 3
	switch h.Dest.Kind {
	case Broadcast:
		buf[j] = h.Dest.Subnet
	case Multicast:
		buf[j] = h.Dest.Group
	case SubnetNode:
		buf[j] = h.Dest.Subnet
		buf[j+1] = h.Dest.Node & 0x7F
	case MulticastAck:
		buf[j] = h.Dest.Subnet
		buf[j+1] = h.Dest.Node & 0x7F
		buf[j+2] = h.Dest.Group
		buf[j+3] = h.Dest.Member
	case UniqueId:
		buf[j] = h.Dest.Subnet
		copy(buf[j+1:j+7], h.Dest.Uid[:])
	}
	j += destLen

	copy(buf[j:j+len(h.DomainId)], h.DomainId)
	j += len(h.DomainId)

	copy(buf[j:], payload)
	return buf, nil
}

// Decode parses an NPDU's addressing envelope and returns the header along
// with the remaining payload bytes.
func Decode(data []byte) (Header, []byte, error) {
	if len(data) < 3 {
		return Header{}, nil, lonerr.New(lonerr.WritePastEndOfApplBuffer, "NPDU shorter than 3-byte common prefix")
	}

	h := Header{
		ProtocolVersion: (data[0] >> 6) & 0x3,
		PduType:         PduType((data[0] >> 4) & 0x3),
		SrcSubnet:       data[1],
		SelField:        (data[2] >> 7) & 0x1,
		SrcNode:         data[2] & 0x7F,
	}
	addrFmtCode := (data[0] >> 2) & 0x3
	domainCode := data[0] & 0x3
	h.DomainId = nil

	j := 3
	switch AddrFmt(addrFmtCode) {
	case AddrFmtBroadcast:
		if len(data) < j+1 {
			return Header{}, nil, lonerr.New(lonerr.WritePastEndOfApplBuffer, "truncated broadcast destination")
		}
		h.Dest = AddressMode{Kind: Broadcast, Subnet: data[j]}
		j++
	case AddrFmtMulticast:
		if len(data) < j+1 {
			return Header{}, nil, lonerr.New(lonerr.WritePastEndOfApplBuffer, "truncated multicast destination")
		}
		h.Dest = AddressMode{Kind: Multicast, Group: data[j]}
		j++
	case AddrFmtSubnetNode:
		if h.SelField == 1 {
			if len(data) < j+2 {
				return Header{}, nil, lonerr.New(lonerr.WritePastEndOfApplBuffer, "truncated subnet/node destination")
			}
			h.Dest = AddressMode{Kind: SubnetNode, Subnet: data[j], Node: data[j+1] & 0x7F}
			j += 2
		} else {
			if len(data) < j+4 {
				return Header{}, nil, lonerr.New(lonerr.WritePastEndOfApplBuffer, "truncated multicast-ack destination")
			}
			h.Dest = AddressMode{Kind: MulticastAck, Subnet: data[j], Node: data[j+1] & 0x7F, Group: data[j+2], Member: data[j+3]}
			j += 4
		}
	case AddrFmtUniqueId:
		if len(data) < j+7 {
			return Header{}, nil, lonerr.New(lonerr.WritePastEndOfApplBuffer, "truncated unique-id destination")
		}
		var uid [6]byte
		copy(uid[:], data[j+1:j+7])
		h.Dest = AddressMode{Kind: UniqueId, Subnet: data[j], Uid: uid}
		j += 7
	default:
		return Header{}, nil, lonerr.New(lonerr.BadAddressType, "unrecognized addrFmt code")
	}

	domainLen := domainLenFromCode(domainCode)
	if domainLen != 0 && domainLen != 1 && domainLen != 3 && domainLen != 6 {
		return Header{}, nil, lonerr.New(lonerr.InvalidDomain, "decoded domain length out of range")
	}
	if len(data) < j+domainLen {
		return Header{}, nil, lonerr.New(lonerr.WritePastEndOfApplBuffer, "truncated domain id")
	}
	if domainLen > 0 {
		h.DomainId = append([]byte(nil), data[j:j+domainLen]...)
	}
	j += domainLen

	h.Flex = h.SrcSubnet == 0 && h.SrcNode == 0 && h.SelField == 1

	return h, data[j:], nil
}
