package datalink

import (
	"github.com/izot/lon-core/internal/crc16"
	"github.com/izot/lon-core/internal/logger"
)

// lpduRegisterOverhead is the transceiver-register + zero-crossing byte
// count subtracted from a frame's len to get lpduSize (spec §4.3:
// "lpduSize = frame.len - 3").
const lpduRegisterOverhead = 3

// LKReceive implements spec §4.3's inbound path: poll each interface in
// turn, stopping at the first one yielding a frame, classify it by cmd,
// and on an accepted L2M2 frame enqueue an NW receive-parameter record
// into nwInQ.
func (l *Layer) LKReceive() {
	if !l.ResetOk {
		logger.Error("LKReceive called before successful Reset", logger.Layer("datalink"))
		return
	}

	for idx, st := range l.ifaces {
		buf := make([]byte, maxFrameBytes)
		n, err := st.cfg.Link.Read(buf)
		if err != nil {
			logger.Warn("LKReceive: link read failed", logger.Interface(idx), logger.Err(err))
			continue
		}
		if n == 0 {
			continue
		}
		st.in.Write(buf[:n])

		peek := make([]byte, st.in.Count())
		st.in.Peek(peek)
		f, consumed, ok := tryParseSicb(peek)
		if !ok {
			continue
		}
		drained := make([]byte, consumed)
		st.in.Read(drained)

		l.handleFrame(idx, st, f)
		return
	}
}

func (l *Layer) handleFrame(idx int, st *ifaceState, f sicbFrame) {
	switch {
	case f.cmd == nicbRESPONSE:
		if len(f.payload) >= 2 && f.payload[0]&0x0F == LNM_TAG && f.payload[1] == successCode {
			st.xcvrParams = append([]byte(nil), f.payload[2:]...)
		}
		return

	case f.cmd == nicbINCOMING_L2M2:
		lpduSize := len(f.payload) - lpduRegisterOverhead
		if lpduSize < 8 {
			l.Stats.Increment(LcsRxError)
			return
		}
		if len(f.payload) == 0 || f.payload[0] != l.localNmCode {
			l.Stats.Increment(LcsMissed)
			return
		}
		l.acceptL2(st, lpduSize, f.payload)
		if st.cfg.Kind == KindPowerLine && len(f.payload) > lpduRegisterOverhead+lpduSize {
			st.xcvrParams = append([]byte(nil), f.payload[lpduRegisterOverhead+lpduSize:]...)
		}
		return

	case isTxError(f.cmd):
		l.Stats.Increment(LcsTxError)
		l.bumpTxError(idx)
		return

	case isRxError(f.cmd):
		l.Stats.Increment(LcsRxError)
		l.bumpTxError(idx)
		return

	case f.cmd == nicbRESET || f.cmd == nicbINCOMING_L2 || f.cmd == nicbINCOMING_L2M1:
		if st.cfg.Kind == KindPowerLine {
			st.phaseLost = true
		}
		return

	default:
		return
	}
}

func (l *Layer) bumpTxError(idx int) {
	logger.Warn("LKReceive: transceiver reported an error frame", logger.Interface(idx))
}

// acceptL2 extracts the LPDU header and NPDU from an accepted L2M2
// payload and hands it to the network layer via nwInQ. Non-power-line
// interfaces carry an appended CRC-16 the transceiver did not validate
// itself (spec §3); power-line frames have already been checked.
func (l *Layer) acceptL2(st *ifaceState, lpduSize int, payload []byte) {
	lpdu := payload[1 : 1+lpduSize]
	if st.cfg.Kind != KindPowerLine {
		if !crc16.Verify(lpdu) {
			l.Stats.Increment(LcsRxError)
			return
		}
		lpdu = lpdu[:len(lpdu)-2]
	}
	priority, altPath, _ := unpackLpduHeader(lpdu[0])
	npdu := lpdu[1:]

	if l.nwInQ == nil || l.nwInQ.Full() {
		l.Stats.Increment(LcsMissed)
		logger.Warn("LKReceive: nwInQ full, dropping frame")
		return
	}
	slot := l.nwInQ.Tail()
	packNwEntry(slot, priority, altPath, npdu)
	l.nwInQ.Write()
	l.Stats.Increment(LcsL2Rx)
}
