package midi

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func collect(t *testing.T) (*Decoder, *[]Event) {
	t.Helper()
	events := &[]Event{}
	d := NewDecoder(64, func(e Event) {
		*events = append(*events, e)
	})
	return d, events
}

func TestDecodeSingleNoteOn(t *testing.T) {
	d, events := collect(t)
	d.Decode([]byte{0x00, 0x90, 0x3C, 0x64}, true, 1000)
	want := []Event{{Data: []byte{0x90, 0x3C, 0x64}, Timestamp: 1000}}
	if diff := cmp.Diff(want, *events); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRunningStatus(t *testing.T) {
	d, events := collect(t)
	// First note-on carries status; second note-on omits it (running status).
	d.Decode([]byte{0x00, 0x90, 0x3C, 0x64, 0x00, 0x40, 0x00}, true, 0)
	want := []Event{
		{Data: []byte{0x90, 0x3C, 0x64}, Timestamp: 0},
		{Data: []byte{0x90, 0x40, 0x00}, Timestamp: 0},
	}
	if diff := cmp.Diff(want, *events); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRunningStatusAcrossCalls(t *testing.T) {
	d, events := collect(t)
	d.Decode([]byte{0x00, 0x90, 0x3C, 0x64}, true, 0)
	// Second packet: no status byte, relies on running status from before.
	d.Decode([]byte{0x00, 0x44, 0x50}, true, 100)
	want := []Event{
		{Data: []byte{0x90, 0x3C, 0x64}, Timestamp: 0},
		{Data: []byte{0x90, 0x44, 0x50}, Timestamp: 100},
	}
	if diff := cmp.Diff(want, *events); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeNoLeadingDelta(t *testing.T) {
	d, events := collect(t)
	d.Decode([]byte{0x90, 0x3C, 0x64}, false, 5)
	want := []Event{{Data: []byte{0x90, 0x3C, 0x64}, Timestamp: 5}}
	if diff := cmp.Diff(want, *events); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeTwoByteCommand(t *testing.T) {
	d, events := collect(t)
	d.Decode([]byte{0x00, 0xC0, 0x05}, true, 0) // program change
	want := []Event{{Data: []byte{0xC0, 0x05}, Timestamp: 0}}
	if diff := cmp.Diff(want, *events); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRealTimeBetweenCommands(t *testing.T) {
	d, events := collect(t)
	// At top level, a Real Time byte is its own delta-time-prefixed
	// "command" like any other; it just carries no status of its own and
	// does not disturb running status for what follows.
	d.Decode([]byte{0x00, 0x90, 0x3C, 0x64, 0x00, 0xF8, 0x00, 0x40, 0x00}, true, 0)
	want := []Event{
		{Data: []byte{0x90, 0x3C, 0x64}, Timestamp: 0},
		{Data: []byte{0xF8}, Timestamp: 0},
		{Data: []byte{0x90, 0x40, 0x00}, Timestamp: 0},
	}
	if diff := cmp.Diff(want, *events); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRealTimeInterleavedInsideSysex(t *testing.T) {
	d, events := collect(t)
	// F0 .. (F8 interleaved) .. F7, all one segment, no delta-times inside.
	d.Decode([]byte{0x00, 0xF0, 0x7E, 0xF8, 0x7F, 0xF7}, true, 10)
	want := []Event{
		{Data: []byte{0xF8}, Timestamp: 10},
		{Data: []byte{0xF0, 0x7E, 0x7F, 0xF7}, Timestamp: 10},
	}
	if diff := cmp.Diff(want, *events); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeSysexAcrossTwoPackets(t *testing.T) {
	d, events := collect(t)
	// Packet A: 00 F0 7E 7F 06 01 F0 -- begins a segment, then ends it (F0).
	d.Decode([]byte{0x00, 0xF0, 0x7E, 0x7F, 0x06, 0x01, 0xF0}, true, 500)
	if len(*events) != 0 {
		t.Fatalf("expected no event after first packet, got %+v", *events)
	}
	// Packet B: 00 F7 06 02 F7 -- starts next segment then completes SysEx.
	d.Decode([]byte{0x00, 0xF7, 0x06, 0x02, 0xF7}, true, 600)
	want := []Event{
		{Data: []byte{0xF0, 0x7E, 0x7F, 0x06, 0x01, 0x06, 0x02, 0xF7}, Timestamp: 600},
	}
	if diff := cmp.Diff(want, *events); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeSysexCancel(t *testing.T) {
	d, events := collect(t)
	d.Decode([]byte{0x00, 0xF0, 0x01, 0x02, 0xF4}, true, 0)
	if len(*events) != 0 {
		t.Fatalf("expected cancelled SysEx to deliver nothing, got %+v", *events)
	}
	// Decoder must be usable again afterwards.
	d.Decode([]byte{0x00, 0x90, 0x10, 0x20}, true, 1)
	want := []Event{{Data: []byte{0x90, 0x10, 0x20}, Timestamp: 1}}
	if diff := cmp.Diff(want, *events); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeSysexOverflowSetsFlagButStillDelivers(t *testing.T) {
	d, events := collect(t)
	d.sysexCap = 4
	d.sysexBuf = make([]byte, 0, 4)
	d.Decode([]byte{0x00, 0xF0, 1, 2, 3, 4, 5, 6, 0xF7}, true, 0)
	if !d.SysexOverflowed() {
		t.Fatalf("expected SysexOverflowed to be true")
	}
	if len(*events) != 1 {
		t.Fatalf("expected one (truncated) SysEx event, got %+v", *events)
	}
	if len((*events)[0].Data) != 4 {
		t.Fatalf("expected truncated payload of 4 bytes, got %d", len((*events)[0].Data))
	}
}

func TestDecodeSongPositionPointerClearsRunningStatus(t *testing.T) {
	d, events := collect(t)
	// F2 (song position pointer) is one-shot: must not persist as running status.
	d.Decode([]byte{0x00, 0xF2, 0x10, 0x20}, true, 0)
	// Next "command" omits a status byte -- with F2 cleared, this is an
	// orphan data byte and must be ignored, not misread as another F2.
	d.Decode([]byte{0x00, 0x30}, true, 1)
	want := []Event{{Data: []byte{0xF2, 0x10, 0x20}, Timestamp: 0}}
	if diff := cmp.Diff(want, *events); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeEmptyPayloadYieldsNoEvents(t *testing.T) {
	d, events := collect(t)
	d.Decode(nil, false, 0)
	if len(*events) != 0 {
		t.Fatalf("expected no events for an empty payload, got %+v", *events)
	}
}

func TestDecodeTrailingDeltaWithNoCommandIsDropped(t *testing.T) {
	d, events := collect(t)
	d.Decode([]byte{0x00, 0x90, 0x10, 0x20, 0x05}, true, 0)
	want := []Event{{Data: []byte{0x90, 0x10, 0x20}, Timestamp: 0}}
	if diff := cmp.Diff(want, *events); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDecoderResetClearsRunningStatusAndSysex(t *testing.T) {
	d, events := collect(t)
	d.Decode([]byte{0x00, 0xF0, 0x01, 0x02}, true, 0) // mid-SysEx, no terminator
	d.Reset()
	d.Decode([]byte{0x00, 0x10}, true, 1) // orphan data byte: running status was cleared
	if len(*events) != 0 {
		t.Fatalf("expected no events after reset, got %+v", *events)
	}
}
