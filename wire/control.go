// Package wire implements the on-the-wire byte layout for the AppleMIDI
// session-control commands (IN, OK, NO, BY, CK, RS) and for RTP-MIDI data
// packets. It only encodes and parses fixed byte layouts; it has no notion
// of session state, timers, or MIDI semantics.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// Errors returned while parsing a session-control datagram. Per spec.md
// §4.A / §7, a packet that fails any of these checks is discarded silently
// by the caller -- the error exists so callers can log it, not to halt
// processing.
var (
	ErrShortPacket    = errors.New("wire: packet shorter than its fixed header")
	ErrBadPreamble    = errors.New("wire: missing 0xFF 0xFF preamble")
	ErrUnknownCommand = errors.New("wire: unrecognized command code")
	ErrNameTooLong    = errors.New("wire: session name exceeds 63 bytes")
)

const (
	preambleByte = 0xFF

	// MaxSessionNameLen is the largest session name spec.md §3 allows,
	// not counting the terminating NUL.
	MaxSessionNameLen = 63

	// noNameBodyLen is the body length (after the 2-byte command code) of
	// OK/NO/BY: version + token + ssrc, 4 bytes apiece.
	noNameBodyLen = 12
)

// Invitation is the body of an IN command: version, initiator token, ssrc,
// and a NUL-terminated session name.
type Invitation struct {
	Version uint32
	Token   uint32
	SSRC    uint32
	Name    string
}

// EncodeInvitation serializes an IN command.
func EncodeInvitation(inv Invitation) []byte {
	return encodeNamed("IN", inv)
}

// DecodeInvitation parses an IN command body. buf must start at the
// preamble and include exactly the bytes received on the socket.
func DecodeInvitation(buf []byte) (Invitation, error) {
	cmd, inv, err := decodeNamed(buf)
	if err != nil {
		return Invitation{}, err
	}
	if cmd != "IN" {
		return Invitation{}, ErrUnknownCommand
	}
	return inv, nil
}

// Reply is the body of an OK/NO command. The original AppleMIDI wire format
// carries no name on replies, but the 2024-07-07 revision of the reference
// implementation (see original_source/RTP_MIDI.cpp release notes) added an
// optional trailing session name to invitation replies. EncodeReply emits it
// when Name is non-empty; DecodeReply never requires it -- a reply with no
// trailing bytes still parses with Name == "".
type Reply struct {
	Accept bool
	Version uint32
	Token   uint32
	SSRC    uint32
	Name    string
}

// EncodeReply serializes an OK (Accept == true) or NO (Accept == false) command.
func EncodeReply(r Reply) []byte {
	cmd := "NO"
	if r.Accept {
		cmd = "OK"
	}
	return encodeNamed(cmd, Invitation{Version: r.Version, Token: r.Token, SSRC: r.SSRC, Name: r.Name})
}

// DecodeReply parses an OK or NO command.
func DecodeReply(buf []byte) (Reply, error) {
	cmd, inv, err := decodeNamed(buf)
	if err != nil {
		return Reply{}, err
	}
	if cmd != "OK" && cmd != "NO" {
		return Reply{}, ErrUnknownCommand
	}
	return Reply{Accept: cmd == "OK", Version: inv.Version, Token: inv.Token, SSRC: inv.SSRC, Name: inv.Name}, nil
}

// Bye is the body of a BY command: version, initiator token, ssrc.
type Bye struct {
	Version uint32
	Token   uint32
	SSRC    uint32
}

// EncodeBye serializes a BY command.
func EncodeBye(b Bye) []byte {
	buf := make([]byte, 4+noNameBodyLen)
	writeHeader(buf, "BY")
	binary.BigEndian.PutUint32(buf[4:8], b.Version)
	binary.BigEndian.PutUint32(buf[8:12], b.Token)
	binary.BigEndian.PutUint32(buf[12:16], b.SSRC)
	return buf
}

// DecodeBye parses a BY command.
func DecodeBye(buf []byte) (Bye, error) {
	cmd, body, err := checkHeader(buf, noNameBodyLen)
	if err != nil {
		return Bye{}, err
	}
	if cmd != "BY" {
		return Bye{}, ErrUnknownCommand
	}
	return Bye{
		Version: binary.BigEndian.Uint32(body[0:4]),
		Token:   binary.BigEndian.Uint32(body[4:8]),
		SSRC:    binary.BigEndian.Uint32(body[8:12]),
	}, nil
}

// Sync is the body of a CK command: the three round-trip timestamps, split
// into high/low 32-bit halves per spec.md §3 (the session's latency
// arithmetic uses only the low halves; the high halves are carried for wire
// compatibility and always round-trip as written).
type Sync struct {
	SSRC                           uint32
	Count                          byte
	TS1H, TS1L, TS2H, TS2L, TS3H, TS3L uint32
}

const syncBodyLen = 4 + 1 + 3 + 6*4 // ssrc, count, pad, six timestamps

// EncodeSync serializes a CK command.
func EncodeSync(s Sync) []byte {
	buf := make([]byte, 4+syncBodyLen)
	writeHeader(buf, "CK")
	b := buf[4:]
	binary.BigEndian.PutUint32(b[0:4], s.SSRC)
	b[4] = s.Count
	// b[5:8] left as zero padding
	binary.BigEndian.PutUint32(b[8:12], s.TS1H)
	binary.BigEndian.PutUint32(b[12:16], s.TS1L)
	binary.BigEndian.PutUint32(b[16:20], s.TS2H)
	binary.BigEndian.PutUint32(b[20:24], s.TS2L)
	binary.BigEndian.PutUint32(b[24:28], s.TS3H)
	binary.BigEndian.PutUint32(b[28:32], s.TS3L)
	return buf
}

// DecodeSync parses a CK command.
func DecodeSync(buf []byte) (Sync, error) {
	cmd, body, err := checkHeader(buf, syncBodyLen)
	if err != nil {
		return Sync{}, err
	}
	if cmd != "CK" {
		return Sync{}, ErrUnknownCommand
	}
	return Sync{
		SSRC:  binary.BigEndian.Uint32(body[0:4]),
		Count: body[4],
		TS1H:  binary.BigEndian.Uint32(body[8:12]),
		TS1L:  binary.BigEndian.Uint32(body[12:16]),
		TS2H:  binary.BigEndian.Uint32(body[16:20]),
		TS2L:  binary.BigEndian.Uint32(body[20:24]),
		TS3H:  binary.BigEndian.Uint32(body[24:28]),
		TS3L:  binary.BigEndian.Uint32(body[28:32]),
	}, nil
}

// Recovery is the body of an RS command: the receiver's acknowledgement of
// the highest RTP sequence number it has seen.
type Recovery struct {
	SSRC         uint32
	LastSequence uint16
}

const recoveryBodyLen = 4 + 2 + 2 // ssrc, sequence, pad

// EncodeRecovery serializes an RS command.
func EncodeRecovery(r Recovery) []byte {
	buf := make([]byte, 4+recoveryBodyLen)
	writeHeader(buf, "RS")
	b := buf[4:]
	binary.BigEndian.PutUint32(b[0:4], r.SSRC)
	binary.BigEndian.PutUint16(b[4:6], r.LastSequence)
	return buf
}

// DecodeRecovery parses an RS command.
func DecodeRecovery(buf []byte) (Recovery, error) {
	cmd, body, err := checkHeader(buf, recoveryBodyLen)
	if err != nil {
		return Recovery{}, err
	}
	if cmd != "RS" {
		return Recovery{}, ErrUnknownCommand
	}
	return Recovery{
		SSRC:         binary.BigEndian.Uint32(body[0:4]),
		LastSequence: binary.BigEndian.Uint16(body[4:6]),
	}, nil
}

// SniffCommand reports the two-byte command code of a session-control
// datagram, or ok == false if buf is too short or lacks the preamble. It
// does not validate the body length -- callers dispatch on the code first,
// then call the matching Decode* which performs the full length check.
func SniffCommand(buf []byte) (code string, ok bool) {
	if len(buf) < 4 {
		return "", false
	}
	if buf[0] != preambleByte || buf[1] != preambleByte {
		return "", false
	}
	return string(buf[2:4]), true
}

// IsSessionControl reports whether buf begins with the session-control
// preamble 0xFF 0xFF, distinguishing it from an RTP-MIDI data packet
// (which begins 0x80 0x61).
func IsSessionControl(buf []byte) bool {
	return len(buf) >= 2 && buf[0] == preambleByte && buf[1] == preambleByte
}

func writeHeader(buf []byte, cmd string) {
	buf[0] = preambleByte
	buf[1] = preambleByte
	buf[2] = cmd[0]
	buf[3] = cmd[1]
}

// checkHeader validates the preamble and returns the command code and the
// body slice (buf[4:]), truncated to exactly bodyLen bytes if buf carries
// more (trailing bytes beyond a fixed-body command are ignored, not
// rejected -- this is what lets EncodeReply's optional name extension
// coexist with strict fixed-body parsing).
func checkHeader(buf []byte, bodyLen int) (cmd string, body []byte, err error) {
	if len(buf) < 4 {
		return "", nil, ErrShortPacket
	}
	if buf[0] != preambleByte || buf[1] != preambleByte {
		return "", nil, ErrBadPreamble
	}
	if len(buf) < 4+bodyLen {
		return "", nil, ErrShortPacket
	}
	return string(buf[2:4]), buf[4 : 4+bodyLen], nil
}

func encodeNamed(cmd string, inv Invitation) []byte {
	name := inv.Name
	if len(name) > MaxSessionNameLen {
		name = name[:MaxSessionNameLen]
	}
	buf := make([]byte, 4+noNameBodyLen+len(name)+1)
	writeHeader(buf, cmd)
	binary.BigEndian.PutUint32(buf[4:8], inv.Version)
	binary.BigEndian.PutUint32(buf[8:12], inv.Token)
	binary.BigEndian.PutUint32(buf[12:16], inv.SSRC)
	copy(buf[16:], name)
	// buf[len(buf)-1] is already zero (NUL terminator)
	return buf
}

// decodeNamed parses the common "version, token, ssrc, [NUL-terminated name]"
// shape shared by IN and, optionally, OK/NO.
func decodeNamed(buf []byte) (cmd string, inv Invitation, err error) {
	cmd, body, err := checkHeader(buf, noNameBodyLen)
	if err != nil {
		return "", Invitation{}, err
	}
	inv.Version = binary.BigEndian.Uint32(body[0:4])
	inv.Token = binary.BigEndian.Uint32(body[4:8])
	inv.SSRC = binary.BigEndian.Uint32(body[8:12])

	rest := buf[4+noNameBodyLen:]
	if nul := bytes.IndexByte(rest, 0); nul >= 0 {
		inv.Name = string(rest[:nul])
	}
	return cmd, inv, nil
}
