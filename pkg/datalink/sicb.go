package datalink

// SICB ("Serial Interface Command Block") frames wrap the host/transceiver
// command protocol: cmd(1) | len(1) | payload(len) (spec §6). maxFrameBytes
// bounds the largest frame this layer will assemble or parse.
const maxFrameBytes = 256

// Commands this core originates.
const (
	cmdOutgoingL2  byte = 0x12 // host -> transceiver: send an L2 packet
	cmdNMReadMemory byte = 0x20 // host -> transceiver: NM_READ_MEMORY request
	cmdQueryXcvr    byte = 0x21 // host -> transceiver: ND_QUERY_XCVR request
	cmdPhase        byte = 0x30 // host -> transceiver: phase-set command (nicbPHASE)
)

// nicb* response codes the transceiver reports on the inbound path.
const (
	nicbRESET          byte = 0x50
	nicbINCOMING_L2     byte = 0x51
	nicbINCOMING_L2M1   byte = 0x52
	nicbINCOMING_L2M2   byte = 0x53
	nicbRESPONSE        byte = 0x54
	nicbTXErrorBase     byte = 0x60 // nicb*ERROR* codes occupy 0x60-0x6F
	nicbRxErrorBase     byte = 0x70
)

// READ_ONLY_RELATIVE is the memory-region selector for the NM_READ_MEMORY
// request used to fetch the node's unique id (spec §4.3).
const READ_ONLY_RELATIVE byte = 0x03

// successCode is the status byte a successful management response carries
// immediately after the echoed management tag.
const successCode byte = 0x00

// LNM_TAG identifies a locally issued network-management request; a
// response carries the tag in the low nibble of its first payload byte
// (spec §4.3).
const LNM_TAG byte = 0x0F

func isTxError(cmd byte) bool { return cmd >= nicbTXErrorBase && cmd < nicbTXErrorBase+0x10 }
func isRxError(cmd byte) bool { return cmd >= nicbRxErrorBase && cmd < nicbRxErrorBase+0x10 }

// sicbFrame is one parsed SICB frame.
type sicbFrame struct {
	cmd     byte
	payload []byte
}

// encodeSicb wraps payload in cmd(1)|len(1)|payload(len).
func encodeSicb(cmd byte, payload []byte) []byte {
	out := make([]byte, 2+len(payload))
	out[0] = cmd
	out[1] = byte(len(payload))
	copy(out[2:], payload)
	return out
}

// buildManagementFrame wraps a locally issued NM request with the 15-byte
// management header (spec §4.3: "Commands wrap a 15-byte header; tag
// LNM_TAG ... identifies locally issued network-management requests").
// Bytes beyond the fixed header carry the request-specific body.
func buildManagementFrame(cmd byte, body []byte) []byte {
	header := make([]byte, 15)
	header[0] = LNM_TAG
	payload := append(header, body...)
	return encodeSicb(cmd, payload)
}

// tryParseSicb attempts to parse one complete frame from the head of buf
// without consuming it from the caller's ring buffer; the caller drops
// the returned byte count once it has acted on the frame. ok is false
// when fewer than a full frame's worth of bytes are available yet.
func tryParseSicb(buf []byte) (f sicbFrame, consumed int, ok bool) {
	if len(buf) < 2 {
		return sicbFrame{}, 0, false
	}
	length := int(buf[1])
	total := 2 + length
	if len(buf) < total {
		return sicbFrame{}, 0, false
	}
	return sicbFrame{cmd: buf[0], payload: buf[2:total]}, total, true
}
