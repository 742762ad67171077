package session

import "github.com/bbouchez/RTP-MIDI/wire"

// outFramer re-serializes the raw MIDI byte stream a host pushes through
// the FIFO into single-command (or single-SysEx-segment) RTP-MIDI payload
// bodies. It mirrors midi.Decoder's command-boundary rules in reverse, and
// always reconstructs any status byte the host elided via its own running
// status, since outbound packets never set the phantom-status bit
// (spec.md §4.A: "Outbound packets set B=1, J=Z=P=0").
//
// Sending at most one command, or one SysEx segment, per packet means no
// packet ever needs an inter-command delta-time: Z stays 0 throughout,
// matching spec.md's literal outbound encoding rule.
type outFramer struct {
	runningStatus   byte
	inSysex         bool
	needSegmentFlag bool // next call must open with 0xF7, resuming a paused segment
}

// next extracts the bytes the caller should send as one RTP-MIDI payload
// from the front of raw. ok is false when raw does not yet hold a complete
// command and the caller should wait for more bytes from the FIFO.
// consumed is how many bytes of raw were used, which may be 0 (nothing
// complete yet) or include bytes dropped silently (an orphan data byte).
func (f *outFramer) next(raw []byte) (piece []byte, consumed int, ok bool) {
	if len(raw) == 0 {
		return nil, 0, false
	}

	if f.inSysex {
		piece, consumed = f.continueSysex(raw)
		return piece, consumed, true
	}

	b := raw[0]
	switch {
	case b == 0xF0:
		f.inSysex = true
		piece, consumed = f.continueSysex(raw)
		return piece, consumed, true
	case b >= 0xF8:
		return []byte{b}, 1, true
	case b == 0xF6:
		f.runningStatus = 0
		return []byte{b}, 1, true
	case b&0x80 != 0:
		total := commandLength(b)
		if total == 0 {
			return nil, 1, true // stray F7 or undefined status: drop it, nothing to send
		}
		if len(raw) < total {
			return nil, 0, false
		}
		f.runningStatus = b
		out := append([]byte(nil), raw[:total]...)
		if b == 0xF2 {
			f.runningStatus = 0
		}
		return out, total, true
	default:
		if f.runningStatus == 0 {
			return nil, 1, true // orphan data byte: drop it, nothing to send
		}
		total := commandLength(f.runningStatus)
		need := total - 1
		if len(raw) < need {
			return nil, 0, false
		}
		out := make([]byte, 0, total)
		out = append(out, f.runningStatus)
		out = append(out, raw[:need]...)
		if f.runningStatus == 0xF2 {
			f.runningStatus = 0
		}
		return out, need, true
	}
}

// continueSysex scans raw for the SysEx terminator (F7) or cancellation
// (F4). If neither appears within the bytes currently available, it sends
// what it has with a trailing F0 "pause" marker and arranges for the next
// call to resume with a leading F7 "resume" marker, per spec.md §4.C's
// segment table.
//
// The leading resume byte and the trailing pause byte both count against
// wire.MaxRTPLoad, so the raw-byte copy loop is bounded one (or two) bytes
// short of the cap to leave room for them -- otherwise a pause/resume
// marker could push piece one byte past the limit wire.EncodeDataPacket's
// caller relies on.
func (f *outFramer) continueSysex(raw []byte) (piece []byte, consumed int) {
	budget := wire.MaxRTPLoad
	if f.needSegmentFlag {
		piece = append(piece, 0xF7)
		f.needSegmentFlag = false
		budget--
	}
	limit := budget - 1 // headroom for a trailing 0xF0 pause marker
	for consumed < len(raw) && consumed < limit {
		b := raw[consumed]
		piece = append(piece, b)
		consumed++
		if b == 0xF7 || b == 0xF4 {
			f.inSysex = false
			return piece, consumed
		}
	}
	piece = append(piece, 0xF0)
	f.needSegmentFlag = true
	return piece, consumed
}

// commandLength returns the total byte count (including the status byte)
// of a channel voice or two/three-byte system-common command. It returns 0
// for System Real Time, Tune Request, SysEx start/end, and undefined
// status bytes -- those are handled by their own cases in next.
func commandLength(status byte) int {
	switch {
	case status < 0x80:
		return 0
	case status < 0xC0:
		return 3 // note off/on, poly pressure, control change
	case status < 0xE0:
		return 2 // program change, channel pressure
	case status < 0xF0:
		return 3 // pitch bend
	case status == 0xF1, status == 0xF3:
		return 2
	case status == 0xF2:
		return 3 // song position pointer
	default:
		return 0
	}
}
