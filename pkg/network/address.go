package network

import "github.com/izot/lon-core/internal/lonerr"

// AddrFmt is the 2-bit wire code for an address mode.
type AddrFmt uint8

const (
	AddrFmtBroadcast  AddrFmt = 0
	AddrFmtMulticast  AddrFmt = 1
	AddrFmtSubnetNode AddrFmt = 2 // shared wire code with MulticastAck
	AddrFmtUniqueId   AddrFmt = 3
)

// AddressKind discriminates the AddressMode sum type. SubnetNode and
// MulticastAck share wire code 2; the source-node selField bit
// disambiguates them on receive.
type AddressKind int

const (
	Broadcast AddressKind = iota
	Multicast
	SubnetNode
	MulticastAck
	UniqueId
)

func (k AddressKind) String() string {
	switch k {
	case Broadcast:
		return "broadcast"
	case Multicast:
		return "multicast"
	case SubnetNode:
		return "subnet_node"
	case MulticastAck:
		return "multicast_ack"
	case UniqueId:
		return "unique_id"
	default:
		return "unknown"
	}
}

// AddressMode is a tagged union over the five LON destination address
// shapes. Only the fields relevant to Kind are meaningful.
type AddressMode struct {
	Kind AddressKind

	Subnet uint8 // Broadcast (0 = flex/all), SubnetNode, MulticastAck, UniqueId (routing hint)
	Node   uint8 // SubnetNode, MulticastAck (7-bit)
	Group  uint8 // Multicast, MulticastAck
	Member uint8 // MulticastAck only: member index within the group's ack set
	Uid    [6]byte // UniqueId only
}

// addrFmt maps an AddressMode to its 2-bit wire code. MulticastAck and
// SubnetNode share code 2.
func (m AddressMode) addrFmt() (AddrFmt, error) {
	switch m.Kind {
	case Broadcast:
		return AddrFmtBroadcast, nil
	case Multicast:
		return AddrFmtMulticast, nil
	case SubnetNode, MulticastAck:
		return AddrFmtSubnetNode, nil
	case UniqueId:
		return AddrFmtUniqueId, nil
	default:
		return 0, lonerr.New(lonerr.BadAddressType, "unrecognized address mode")
	}
}

// destLen returns the number of destination-address bytes this mode
// occupies in the NPDU, per spec §4.4 step 6.
func (m AddressMode) destLen() int {
	switch m.Kind {
	case Broadcast, Multicast:
		return 1
	case SubnetNode:
		return 2
	case MulticastAck:
		return 4
	case UniqueId:
		return 7
	default:
		return 0
	}
}

// domainLenCode encodes a domain id byte length (0, 1, 3, or 6) to its
// 2-bit wire code. Any other length is InvalidDomain.
func domainLenCode(length int) (uint8, error) {
	switch length {
	case 0:
		return 0, nil
	case 1:
		return 1, nil
	case 3:
		return 2, nil
	case 6:
		return 3, nil
	default:
		return 0, lonerr.New(lonerr.InvalidDomain,
			"domain id length must be 0, 1, 3, or 6 bytes")
	}
}

// domainLenFromCode decodes a 2-bit domain-length wire code to a byte
// count. Code 3 decodes to 6 — whether a 6-byte domain is ultimately
// accepted is gated by the node's configuration, not by this decode step
// (spec.md §9 open question: preserved verbatim).
func domainLenFromCode(code uint8) int {
	switch code & 0x3 {
	case 0:
		return 0
	case 1:
		return 1
	case 2:
		return 3
	default:
		return 6
	}
}
