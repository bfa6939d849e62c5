package datalink

import (
	"time"

	"github.com/izot/lon-core/internal/crc16"
	"github.com/izot/lon-core/internal/logger"
	"github.com/izot/lon-core/internal/queue"
)

// LKSend implements spec §4.3's outbound path: pick lkOutPriQ over lkOutQ
// when both are eligible, frame the head NPDU as an L2 packet, write the
// frame to every configured interface, and (for power-line interfaces)
// refresh transceiver parameters on the 10-second timer or re-send a lost
// phase setting.
func (l *Layer) LKSend() {
	if !l.ResetOk {
		logger.Error("LKSend called before successful Reset", logger.Layer("datalink"))
		return
	}

	var q *queue.Queue
	var priority bool
	switch {
	case !l.lkOutPriQ.Empty():
		q, priority = l.lkOutPriQ, true
	case !l.lkOutQ.Empty():
		q, priority = l.lkOutQ, false
	}

	if q != nil {
		_, altPath, npdu := unpackLkEntry(q.Peek())

		if len(npdu) > l.cfg.LkOutBufSize {
			logger.Warn("LKSend: NPDU exceeds frame buffer, truncating", logger.FrameLen(len(npdu)))
			npdu = npdu[:l.cfg.LkOutBufSize]
		}

		lpduHeader := packLpduHeader(priority, altPath, 0)
		lpdu := append([]byte{lpduHeader}, npdu...)

		for _, st := range l.ifaces {
			payload := lpdu
			if st.cfg.Kind != KindPowerLine {
				// Power-line transceivers compute their own frame check;
				// other interfaces get an appended CRC-16 (spec §3).
				payload = crc16.Append(append([]byte(nil), lpdu...))
			}
			frame := encodeSicb(cmdOutgoingL2, payload)
			if _, err := st.cfg.Link.Write(frame); err != nil {
				logger.Warn("LKSend: write failed", logger.Err(err))
			}
		}
		q.DropHead()
	}

	fetchDue := time.Now().After(l.nextXcvrFetch)
	for _, st := range l.ifaces {
		if st.cfg.Kind != KindPowerLine {
			continue
		}
		if fetchDue || st.fetchPending {
			req := buildManagementFrame(cmdQueryXcvr, nil)
			if _, err := st.cfg.Link.Write(req); err != nil {
				st.fetchPending = true
			} else {
				st.fetchPending = false
			}
		}
		if st.phaseLost {
			if _, err := st.cfg.Link.Write([]byte{cmdPhase | 0x02, 0}); err == nil {
				st.phaseLost = false
			}
		}
	}
	if fetchDue {
		l.nextXcvrFetch = time.Now().Add(l.cfg.XcvrFetchInterval)
	}
}
