package network

import (
	"github.com/izot/lon-core/internal/logger"
	"github.com/izot/lon-core/internal/queue"
)

// dispatchEntryOverhead is the fixed descriptor prefix NWReceive packs
// ahead of the enclosed PDU bytes in every appInQ/tsaInQ entry: the source
// address (tagged-union layout, matching SendRequest's dest encoding),
// priority/altPath, and — for TSA consumers that need it — the protocol
// version carried in the NPDU header.
const dispatchEntryOverhead = 17

// DispatchRecord is what NWReceive hands to the application (APDU) or
// transport/session/authentication (TPDU/SPDU/AUTHPDU) consumer: the
// decoded source address alongside the enclosed PDU.
type DispatchRecord struct {
	ProtocolVersion uint8
	Src             AddressMode
	Priority        bool
	AltPath         bool
	// Flex is spec §8 scenario 2's srcAddr.flex: true when the frame was
	// accepted without matching a domain table row (header.Flex from
	// Decode), so the consumer knows the source address carries no
	// meaningful subnet/node.
	Flex    bool
	Payload []byte
}

func packDispatch(slot []byte, rec DispatchRecord) int {
	slot[0] = rec.ProtocolVersion
	slot[1] = uint8(rec.Src.Kind)
	slot[2] = rec.Src.Subnet
	slot[3] = rec.Src.Node
	slot[4] = rec.Src.Group
	slot[5] = rec.Src.Member
	copy(slot[6:12], rec.Src.Uid[:])
	slot[12] = boolToByte(rec.Priority)
	slot[13] = boolToByte(rec.AltPath)
	slot[14] = byte(len(rec.Payload) >> 8)
	slot[15] = byte(len(rec.Payload))
	slot[16] = boolToByte(rec.Flex)
	n := copy(slot[dispatchEntryOverhead:], rec.Payload)
	return dispatchEntryOverhead + n
}

// unpackDispatch is packDispatch's inverse, used by tests that need to
// observe what NWReceive handed to appInQ/tsaInQ.
func unpackDispatch(slot []byte) DispatchRecord {
	var uid [6]byte
	copy(uid[:], slot[6:12])
	size := int(slot[14])<<8 | int(slot[15])
	return DispatchRecord{
		ProtocolVersion: slot[0],
		Src: AddressMode{
			Kind:   AddressKind(slot[1]),
			Subnet: slot[2],
			Node:   slot[3],
			Group:  slot[4],
			Member: slot[5],
			Uid:    uid,
		},
		Priority: slot[12] != 0,
		AltPath:  slot[13] != 0,
		Flex:     slot[16] != 0,
		Payload:  slot[dispatchEntryOverhead : dispatchEntryOverhead+size],
	}
}

// NWReceive implements spec §4.4's inbound path: parse the head of nwInQ,
// apply addressing/domain/self-loopback/configuration-state filtering, and
// dispatch the enclosed PDU into appInQ or tsaInQ. It is driven once per
// scheduler tick; malformed or filtered frames are dropped silently except
// where the spec calls for a telemetry counter.
func (l *Layer) NWReceive() {
	if !l.ResetOk {
		logger.Error("NWReceive called before successful Reset", logger.Layer("network"))
		return
	}
	if l.nwInQ.Empty() {
		return
	}

	priority, altPath, npdu := unpackEntry(l.nwInQ.Peek())

	header, payload, err := Decode(npdu)
	if err != nil {
		logger.Warn("NWReceive: decode failed", logger.Err(err))
		l.Stats.Increment(LcsRxError)
		l.nwInQ.DropHead()
		return
	}

	domainIndex := l.Domain.MatchDomain(l.Configured, header.DomainId)

	if domainIndex != FlexDomain {
		row := &l.Domain.Entries[domainIndex]

		// Self-loopback suppression (spec §4.4 step 6): domainIndex==1 is
		// deliberately excluded from this check, per spec.md §9 — preserved
		// verbatim rather than treated as a bug.
		if domainIndex != 1 && header.SrcSubnet == row.Subnet && header.SrcNode == row.Node {
			l.nwInQ.DropHead()
			return
		}

		if !l.addressMatches(header.Dest, row) {
			l.nwInQ.DropHead()
			return
		}
	}

	// Configuration-state policy (spec §4.4 step 8).
	if !l.Configured {
		if header.Dest.Kind != Broadcast && header.Dest.Kind != UniqueId {
			l.nwInQ.DropHead()
			return
		}
	} else if domainIndex == FlexDomain && header.Dest.Kind != UniqueId {
		l.nwInQ.DropHead()
		return
	}

	if len(payload) <= 0 {
		logger.Warn("NWReceive: empty enclosed PDU")
		l.Stats.Increment(LcsRxError)
		l.nwInQ.DropHead()
		return
	}

	rec := DispatchRecord{
		ProtocolVersion: header.ProtocolVersion,
		Src: AddressMode{
			Kind:   SubnetNode,
			Subnet: header.SrcSubnet,
			Node:   header.SrcNode,
		},
		Priority: priority,
		AltPath:  altPath,
		Flex:     header.Flex,
		Payload:  payload,
	}

	var dest *queue.Queue
	switch header.PduType {
	case PduAPDU:
		dest = l.appInQ
	case PduTPDU, PduSPDU, PduAUTHPDU:
		dest = l.tsaInQ
	default:
		logger.Warn("NWReceive: unknown pduType")
		l.nwInQ.DropHead()
		return
	}

	if dest.Full() {
		l.Stats.Increment(LcsLost)
		l.nwInQ.DropHead()
		return
	}

	slot := dest.Tail()
	n := packDispatch(slot, rec)
	if n > len(slot) {
		logger.Warn("NWReceive: dispatch record exceeds buffer", logger.PduSize(n))
		l.Stats.Increment(LcsRxError)
		l.nwInQ.DropHead()
		return
	}
	dest.Write()

	l.Stats.Increment(LcsL3Rx)
	l.nwInQ.DropHead()
}

// addressMatches implements spec §4.4 step 7's per-mode addressing filter
// against the matched (non-flex) domain row.
func (l *Layer) addressMatches(dest AddressMode, row *DomainEntry) bool {
	switch dest.Kind {
	case Broadcast:
		return dest.Subnet == 0 || dest.Subnet == row.Subnet
	case Multicast:
		return row.IsGroupMember(dest.Group)
	case SubnetNode:
		return dest.Subnet == row.Subnet && dest.Node == row.Node
	case MulticastAck:
		return dest.Subnet == row.Subnet && dest.Node == row.Node && row.IsGroupMember(dest.Group)
	case UniqueId:
		return dest.Uid == l.ReadOnly.UniqueNodeId
	default:
		return false
	}
}
