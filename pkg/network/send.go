package network

import (
	"github.com/izot/lon-core/internal/lonerr"
	"github.com/izot/lon-core/internal/logger"
	"github.com/izot/lon-core/internal/queue"
)

// sendReqOverhead is the size of the fixed descriptor prefix the
// application/TSA producer packs ahead of the payload in every nwOutQ /
// nwOutPriQ entry.
const sendReqOverhead = 17

// SendRequest is what the application/transport-session-authentication
// producer writes into nwOutQ/nwOutPriQ: everything NWSend needs to build
// an NPDU header without itself knowing addressing policy.
type SendRequest struct {
	PduType     PduType
	Dest        AddressMode
	DomainIndex int // FlexDomain for an explicit flex-domain send
	Priority    bool
	AltPath     bool
	Payload     []byte
}

func packSendRequest(slot []byte, req SendRequest) int {
	slot[0] = uint8(req.PduType)
	slot[1] = uint8(req.Dest.Kind)
	slot[2] = req.Dest.Subnet
	slot[3] = req.Dest.Node
	slot[4] = req.Dest.Group
	slot[5] = req.Dest.Member
	copy(slot[6:12], req.Dest.Uid[:])
	slot[12] = uint8(req.DomainIndex + 1) // 0 means FlexDomain(-1)
	slot[13] = boolToByte(req.Priority)
	slot[14] = boolToByte(req.AltPath)
	slot[15] = byte(len(req.Payload) >> 8)
	slot[16] = byte(len(req.Payload))
	n := copy(slot[sendReqOverhead:], req.Payload)
	return sendReqOverhead + n
}

func unpackSendRequest(slot []byte) SendRequest {
	var uid [6]byte
	copy(uid[:], slot[6:12])
	size := int(slot[15])<<8 | int(slot[16])
	return SendRequest{
		PduType: PduType(slot[0]),
		Dest: AddressMode{
			Kind:   AddressKind(slot[1]),
			Subnet: slot[2],
			Node:   slot[3],
			Group:  slot[4],
			Member: slot[5],
			Uid:    uid,
		},
		DomainIndex: int(slot[12]) - 1,
		Priority:    slot[13] != 0,
		AltPath:     slot[14] != 0,
		Payload:     slot[sendReqOverhead : sendReqOverhead+size],
	}
}

// Enqueue writes req onto nwOutPriQ (if req.Priority) or nwOutQ, for later
// processing by NWSend. It is the producer-side half of the nwOut(Pri)Q
// contract that the application/TSA layers (out of scope here) drive.
func (l *Layer) Enqueue(req SendRequest) error {
	q := l.nwOutQ
	if req.Priority {
		q = l.nwOutPriQ
	}
	if q.Full() {
		return lonerr.New(lonerr.NoBufferAvailable, "nwOut queue full")
	}
	slot := q.Tail()
	n := packSendRequest(slot, req)
	if n > len(slot) {
		return lonerr.New(lonerr.WritePastEndOfNetBuffer, "send request exceeds nwOutBufSize")
	}
	q.Write()
	return nil
}

// NWSend implements spec §4.4's outbound path: it is driven once per
// scheduler tick, selecting between nwOutPriQ and nwOutQ, building the
// NPDU header from the domain table, and handing the framed result off to
// the data link layer's outbound queues.
func (l *Layer) NWSend() {
	if !l.ResetOk {
		logger.Error("NWSend called before successful Reset", logger.Layer("network"))
		return
	}

	var q *queue.Queue
	var priority bool
	switch {
	case !l.nwOutPriQ.Empty() && !l.lkOutPriQ.Full():
		q, priority = l.nwOutPriQ, true
	case !l.nwOutQ.Empty() && !l.lkOutQ.Full():
		q, priority = l.nwOutQ, false
	default:
		return
	}

	req := unpackSendRequest(q.Peek())

	if req.PduType == PduAPDU && l.appCeRspInQ.Full() {
		// Completion-event prearm: preserve delivery order by not consuming.
		return
	}

	header, ok := l.buildSendHeader(req)
	if !ok {
		q.DropHead()
		l.completeSend(req, false)
		return
	}

	npdu, err := Encode(header, req.Payload, l.cfg.NwOutBufSize)
	if err != nil {
		logger.Warn("NWSend: encode failed", logger.Err(err))
		l.Stats.Increment(LcsTxError)
		q.DropHead()
		l.completeSend(req, false)
		return
	}

	lkQ := l.lkOutQ
	if priority {
		lkQ = l.lkOutPriQ
	}
	slot := lkQ.Tail()
	packEntry(slot, priority, req.AltPath, npdu)
	lkQ.Write()

	q.DropHead()
	l.Stats.Increment(LcsL3Tx)
	l.completeSend(req, true)
}

// buildSendHeader resolves addressing and domain-selection policy (spec
// §4.4 steps 3-7) into a Header ready for Encode. ok is false when the
// send must terminate (logged and counted by the caller).
func (l *Layer) buildSendHeader(req SendRequest) (Header, bool) {
	h := Header{
		ProtocolVersion: 0,
		PduType:         req.PduType,
		Dest:            req.Dest,
	}

	if _, err := req.Dest.addrFmt(); err != nil {
		logger.Warn("NWSend: bad address type", logger.Err(err))
		return Header{}, false
	}

	numDomains := l.Domain.NumDomains()

	if !l.Configured && l.cfg.DropIfUnconfigured && req.DomainIndex != FlexDomain {
		return Header{}, false
	}

	if req.DomainIndex >= 0 && req.DomainIndex < numDomains {
		row := l.Domain.Entries[req.DomainIndex]
		if row.Invalid {
			logger.Warn("NWSend: domain row invalid", logger.Domain(string(rune('0'+req.DomainIndex))))
			return Header{}, false
		}
		h.SrcSubnet = row.Subnet
		h.SrcNode = row.Node
		h.SelField = 1
		if req.Dest.Kind == MulticastAck {
			h.SelField = 0
		}
		h.DomainId = append([]byte(nil), row.Id[:row.IdLength]...)
		h.Flex = false
	} else {
		h.Flex = true
		h.DomainId = nil
	}

	if _, err := domainLenCode(len(h.DomainId)); err != nil {
		logger.Warn("NWSend: invalid domain length", logger.Err(err))
		return Header{}, false
	}

	return h, true
}

func (l *Layer) completeSend(req SendRequest, success bool) {
	if req.PduType != PduAPDU {
		return
	}
	if l.appCeRspInQ.Full() {
		return
	}
	slot := l.appCeRspInQ.Tail()
	slot[0] = boolToByte(success)
	l.appCeRspInQ.Write()
}
