package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging.
// These keys are shared across the network, data link, and persistence
// layers so log aggregation/querying stays consistent regardless of which
// layer emitted the line.
const (
	// ========================================================================
	// Layer & boot identification
	// ========================================================================
	KeyBootID = "boot_id" // per-process boot correlation id
	KeyLayer  = "layer"   // network, datalink, persistence, core

	// ========================================================================
	// Network layer (NPDU)
	// ========================================================================
	KeyPduType   = "pdu_type"   // APDU, TPDU, SPDU, AUTHPDU
	KeyAddrMode  = "addr_mode"  // broadcast, multicast, subnet_node, multicast_ack, unique_id
	KeyDomain    = "domain"     // domain index (0, 1, or "flex")
	KeySubnet    = "subnet"     // subnet byte
	KeyNode      = "node"       // node 7-bit field
	KeyPriority  = "priority"   // LPDU/NPDU priority bit
	KeyPduSize   = "pdu_size"   // enclosed PDU length in bytes

	// ========================================================================
	// Data link layer
	// ========================================================================
	KeyInterface = "interface" // configured link interface index
	KeyCmd       = "cmd"       // SICB command byte
	KeyFrameLen  = "frame_len" // L2 frame length

	// ========================================================================
	// Persistence layer
	// ========================================================================
	KeySegment     = "segment"      // segment type name
	KeyTxState     = "tx_state"     // in-transaction / committed
	KeyGuardBandMs = "guard_band_ms"

	// ========================================================================
	// Queueing & statistics
	// ========================================================================
	KeyQueue     = "queue"      // queue name: nwInQ, lkOutPriQ, etc.
	KeyStat      = "stat"       // statistic counter name
	KeyStatValue = "stat_value" // statistic counter value

	// ========================================================================
	// Generic operation metadata
	// ========================================================================
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyErrorCode  = "error_code"
	KeyOperation  = "operation"
)

// BootID returns a slog.Attr identifying the current process boot.
func BootID(id string) slog.Attr {
	return slog.String(KeyBootID, id)
}

// Layer returns a slog.Attr naming the emitting layer.
func Layer(name string) slog.Attr {
	return slog.String(KeyLayer, name)
}

// PduType returns a slog.Attr for the NPDU's enclosed PDU kind.
func PduType(t string) slog.Attr {
	return slog.String(KeyPduType, t)
}

// AddrMode returns a slog.Attr for the decoded address mode.
func AddrMode(mode string) slog.Attr {
	return slog.String(KeyAddrMode, mode)
}

// Domain returns a slog.Attr for a domain index ("0", "1", "flex").
func Domain(idx string) slog.Attr {
	return slog.String(KeyDomain, idx)
}

// Subnet returns a slog.Attr for a subnet byte.
func Subnet(subnet uint8) slog.Attr {
	return slog.Any(KeySubnet, subnet)
}

// Node returns a slog.Attr for a 7-bit node field.
func Node(node uint8) slog.Attr {
	return slog.Any(KeyNode, node)
}

// Priority returns a slog.Attr for the priority bit.
func Priority(p bool) slog.Attr {
	return slog.Bool(KeyPriority, p)
}

// PduSize returns a slog.Attr for the enclosed PDU length.
func PduSize(n int) slog.Attr {
	return slog.Int(KeyPduSize, n)
}

// Interface returns a slog.Attr for a link interface index.
func Interface(idx int) slog.Attr {
	return slog.Int(KeyInterface, idx)
}

// Cmd returns a slog.Attr for an SICB command byte, formatted as hex.
func Cmd(cmd byte) slog.Attr {
	return slog.String(KeyCmd, fmt.Sprintf("0x%02x", cmd))
}

// FrameLen returns a slog.Attr for an L2 frame length.
func FrameLen(n int) slog.Attr {
	return slog.Int(KeyFrameLen, n)
}

// Segment returns a slog.Attr for a persistence segment type name.
func Segment(name string) slog.Attr {
	return slog.String(KeySegment, name)
}

// TxState returns a slog.Attr for a segment's transaction state.
func TxState(state string) slog.Attr {
	return slog.String(KeyTxState, state)
}

// GuardBandMs returns a slog.Attr for the configured guard-band duration.
func GuardBandMs(ms int64) slog.Attr {
	return slog.Int64(KeyGuardBandMs, ms)
}

// Queue returns a slog.Attr naming a queue.
func Queue(name string) slog.Attr {
	return slog.String(KeyQueue, name)
}

// Stat returns a slog.Attr naming a statistic counter.
func Stat(name string) slog.Attr {
	return slog.String(KeyStat, name)
}

// StatValue returns a slog.Attr for a statistic counter's current value.
func StatValue(v uint16) slog.Attr {
	return slog.Any(KeyStatValue, v)
}

// DurationMs returns a slog.Attr for a duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for a numeric/taxonomy error code.
func ErrorCode(code string) slog.Attr {
	return slog.String(KeyErrorCode, code)
}

// Operation returns a slog.Attr for a sub-operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}
