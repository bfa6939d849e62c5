package network

import "sync/atomic"

// StatKind names one of the seven telemetry counters layers bump instead
// of propagating per-packet errors upward (spec §7).
type StatKind int

const (
	LcsL3Rx StatKind = iota
	LcsL3Tx
	LcsL2Rx
	LcsTxError
	LcsRxError
	LcsMissed
	LcsLost
	statKindCount
)

func (k StatKind) String() string {
	switch k {
	case LcsL3Rx:
		return "LcsL3Rx"
	case LcsL3Tx:
		return "LcsL3Tx"
	case LcsL2Rx:
		return "LcsL2Rx"
	case LcsTxError:
		return "LcsTxError"
	case LcsRxError:
		return "LcsRxError"
	case LcsMissed:
		return "LcsMissed"
	case LcsLost:
		return "LcsLost"
	default:
		return "unknown"
	}
}

// Statistics holds two-byte saturating counters, one per StatKind,
// mirroring the on-wire network-management statistics record (each
// counter caps at 0xFFFF rather than wrapping).
type Statistics struct {
	counters [statKindCount]atomic.Uint32 // stored as uint32 for atomic ops, saturated to uint16 range
}

// Increment bumps the named counter, saturating at 0xFFFF.
func (s *Statistics) Increment(kind StatKind) {
	for {
		cur := s.counters[kind].Load()
		if cur >= 0xFFFF {
			return
		}
		if s.counters[kind].CompareAndSwap(cur, cur+1) {
			return
		}
	}
}

// Get returns the current value of the named counter.
func (s *Statistics) Get(kind StatKind) uint16 {
	return uint16(s.counters[kind].Load())
}

// Reset zeroes every counter (used at layer Reset).
func (s *Statistics) Reset() {
	for i := range s.counters {
		s.counters[i].Store(0)
	}
}

// Snapshot returns every counter's current value keyed by name, for CLI
// and /metrics consumers.
func (s *Statistics) Snapshot() map[string]uint16 {
	out := make(map[string]uint16, statKindCount)
	for k := StatKind(0); k < statKindCount; k++ {
		out[k.String()] = s.Get(k)
	}
	return out
}
