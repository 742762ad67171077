// Package midi implements the RTP-MIDI payload codec (spec.md §4.B/§4.C):
// the outbound byte FIFO and the stateful decoder that turns an RTP-MIDI
// payload's MIDI command list into discrete, timestamped MIDI events,
// honoring running status, System Real Time interleaving, and segmented
// SysEx reassembly.
package midi

// DefaultSysexBufferSize is used when a caller does not specify one.
const DefaultSysexBufferSize = 512

// Event is a single decoded MIDI message, ready to hand to the host.
// Timestamp is local_clock (100 µs units) at the moment this command's
// delta-time placed it, per spec.md §4.C ("Every delivered message is
// timestamped with local_clock + delta_time_of_this_command").
type Event struct {
	Data      []byte
	Timestamp uint32
}

// Callback receives one decoded Event at a time. It is invoked
// synchronously from Decoder.Decode -- there is no buffering inside the
// decoder itself.
type Callback func(Event)

// Decoder holds the running-status and SysEx-reassembly state that must
// survive across RTP-MIDI packets, per spec.md §3 ("Decoder state").
type Decoder struct {
	runningStatus    byte
	awaitingThird    bool
	pendingFirstByte byte // first data byte of a pending 3-byte command

	inSysex    bool
	segmenting bool
	sysexBuf   []byte
	sysexCap   int
	sysexOver  bool

	emit Callback
}

// NewDecoder creates a decoder with the given SysEx reassembly buffer
// capacity. emit is called once per decoded event or completed SysEx.
func NewDecoder(sysexCap int, emit Callback) *Decoder {
	if sysexCap <= 0 {
		sysexCap = DefaultSysexBufferSize
	}
	return &Decoder{
		sysexCap: sysexCap,
		sysexBuf: make([]byte, 0, sysexCap),
		emit:     emit,
	}
}

// Reset clears all decoder state, as if newly constructed. The session
// state machine calls this when a session is (re)initiated, matching the
// original implementation's SYSEX_RTPActif/SegmentSYSEXInput/
// IncomingThirdByte reset in InitiateSession/RestartSession.
func (d *Decoder) Reset() {
	d.runningStatus = 0
	d.awaitingThird = false
	d.pendingFirstByte = 0
	d.inSysex = false
	d.segmenting = false
	d.sysexBuf = d.sysexBuf[:0]
	d.sysexOver = false
}

// SysexOverflowed reports whether the most recently completed SysEx
// transfer exceeded the buffer capacity. Like the endpoint's other sticky
// flags, this is informational only -- the buffer still delivers whatever
// fit.
func (d *Decoder) SysexOverflowed() bool {
	return d.sysexOver
}

// Decode processes one RTP-MIDI payload's MIDI command list segment (the
// bytes wire.DecodeDataPacket returned as `list`). hasLeadingDelta is the
// payload header's Z bit: when true, the first command in list is
// preceded by a delta-time; otherwise the first command starts
// immediately and only subsequent top-level commands carry a delta-time
// prefix (spec.md §4.C). Real Time bytes interleaved inside a SysEx
// transfer are not "top-level commands" and carry no delta-time of their
// own -- decodeCommand consumes them without returning to this loop.
func (d *Decoder) Decode(list []byte, hasLeadingDelta bool, localClock uint32) {
	pos := 0
	first := true
	for pos < len(list) {
		var delta uint32
		if !first || hasLeadingDelta {
			var n int
			delta, n = DecodeDeltaTime(list[pos:])
			pos += n
			if pos >= len(list) {
				// "The last event can be empty" (spec.md §4.C /
				// original_source RTP_MIDI_Input.cpp): a trailing
				// delta-time with nothing after it is simply dropped.
				break
			}
		}
		first = false
		pos = d.decodeCommand(list, pos, localClock+delta)
	}
}

// decodeCommand decodes bytes starting at list[pos] until it delivers one
// top-level MIDI event (or a cancelled/incomplete SysEx), returning the
// index just past the bytes it consumed. It mirrors
// original_source/RTP_MIDI_Input.cpp's GenerateMIDIEvent: a single call
// may emit several events (Real Time bytes interleaved inside a SysEx
// transfer) before it finally returns.
func (d *Decoder) decodeCommand(list []byte, pos int, ts uint32) int {
	for pos < len(list) {
		b := list[pos]
		pos++

		if d.inSysex {
			switch {
			case b == 0xF0:
				// Any F0 while already inside a SysEx ends the current
				// segment; the transfer resumes on the next F7.
				d.segmenting = false
				continue
			case b == 0xF7 && d.segmenting:
				d.appendSysex(0xF7)
				d.deliverSysex(ts)
				return pos
			case b == 0xF7 && !d.segmenting:
				d.segmenting = true
				continue
			case b == 0xF4:
				d.resetSysex()
				return pos
			case d.segmenting && b < 0x80:
				d.appendSysex(b)
				continue
			case d.segmenting && b >= 0xF8:
				d.emit(Event{Data: []byte{b}, Timestamp: ts})
				continue
			case d.segmenting:
				// Corrupted SysEx: an unexpected status byte arrived
				// mid-segment. Reset and reprocess b as a normal
				// status/data byte below.
				d.resetSysex()
			default:
				// Not segmenting (between segments) and b is none of
				// F0/F7/F4: a normal message in the gap. SysEx state is
				// left untouched; reprocess b as a normal status/data
				// byte below.
			}
		}

		if b&0x80 != 0 {
			switch {
			case b >= 0xF8:
				// System Real Time: single-byte message, running status untouched.
				d.emit(Event{Data: []byte{b}, Timestamp: ts})
				return pos
			case b == 0xF6:
				// Tune Request: single-byte message, clears running status.
				d.runningStatus = 0
				d.awaitingThird = false
				d.emit(Event{Data: []byte{b}, Timestamp: ts})
				return pos
			case b == 0xF0:
				d.inSysex = true
				d.segmenting = true
				d.sysexBuf = d.sysexBuf[:0]
				d.sysexOver = false
				d.appendSysex(0xF0)
				continue
			default:
				// Channel voice/mode status, or F1-F7 system common:
				// becomes the new running status; data byte(s) that
				// complete the command may arrive later, even in a
				// subsequent packet.
				d.runningStatus = b
				d.awaitingThird = false
				continue
			}
		}

		// Data byte (top bit clear): complete the pending command using
		// the current running status.
		rs := d.runningStatus
		if d.awaitingThird {
			d.awaitingThird = false
			d.emit(Event{Data: []byte{rs, d.pendingFirstByte, b}, Timestamp: ts})
			if rs == 0xF2 {
				d.runningStatus = 0
			}
			return pos
		}
		if rs == 0 {
			return pos // orphan data byte with no running status: ignored
		}
		switch {
		case rs < 0xC0, (rs >= 0xE0 && rs < 0xF0), rs == 0xF2:
			// 0x8_-0xB_ (note/poly-pressure/CC), 0xE_ (pitch bend), and
			// F2 (song position pointer) all need a second data byte:
			// remember this one and keep scanning, possibly into a
			// later packet, for the byte that completes the command.
			d.pendingFirstByte = b
			d.awaitingThird = true
			continue
		case rs < 0xE0:
			// 0xC_-0xD_: program change, channel pressure -- 2 bytes.
			d.emit(Event{Data: []byte{rs, b}, Timestamp: ts})
		case rs == 0xF1, rs == 0xF3:
			// MTC quarter frame / song select -- 2 bytes, one-shot.
			d.emit(Event{Data: []byte{rs, b}, Timestamp: ts})
			d.runningStatus = 0
		default:
			// Unsupported running status for a data byte.
			d.runningStatus = 0
		}
		return pos
	}
	return pos
}

func (d *Decoder) appendSysex(b byte) {
	if len(d.sysexBuf) < d.sysexCap {
		d.sysexBuf = append(d.sysexBuf, b)
	} else {
		d.sysexOver = true
	}
}

func (d *Decoder) deliverSysex(ts uint32) {
	buf := make([]byte, len(d.sysexBuf))
	copy(buf, d.sysexBuf)
	d.emit(Event{Data: buf, Timestamp: ts})
	d.resetSysex()
}

func (d *Decoder) resetSysex() {
	d.inSysex = false
	d.segmenting = false
	d.sysexBuf = d.sysexBuf[:0]
}
