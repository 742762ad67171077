// Package rtpmidi implements a cross-platform RTP-MIDI endpoint: the
// AppleMIDI session-control handshake plus the RTP-MIDI payload codec
// (RFC 6295). See doc.go for an overview of how the pieces fit together.
package rtpmidi

import (
	"net"

	"github.com/bbouchez/RTP-MIDI/internal/rtplog"
	"github.com/bbouchez/RTP-MIDI/midi"
	"github.com/bbouchez/RTP-MIDI/session"
)

// Status mirrors session.Status's four-value public status code
// (spec.md §4.E/§6): 0 closed, 1 inviting, 2 syncing, 3 opened.
type Status = session.Status

const (
	StatusClosed   = session.StatusClosed
	StatusInviting = session.StatusInviting
	StatusSyncing  = session.StatusSyncing
	StatusOpened   = session.StatusOpened
)

// Event is a decoded MIDI message delivered to the host callback (spec.md
// §6 "Callback"): raw bytes plus the local_clock timestamp (100 µs units)
// at which the command's delta-time placed it.
type Event = midi.Event

// Callback receives one decoded Event at a time, invoked synchronously
// from the goroutine calling RunStep.
type Callback = midi.Callback

// Endpoint is one RTP-MIDI session participant, either an initiator
// (actively invites a peer) or a listener (waits to be invited). It wraps
// session.Session, the spec.md §4.D state machine, with the constructor
// and naming spec.md §4.E's façade specifies.
type Endpoint struct {
	s *session.Session
}

// New constructs a closed Endpoint. sysexBufferSize bounds the SysEx
// reassembly buffer (midi.DefaultSysexBufferSize when <= 0); callback may
// be nil and set later with SetCallback. An optional logger receives
// diagnostic events (internal/rtplog); pass nil to discard them.
func New(sysexBufferSize int, callback Callback, log rtplog.Logger) *Endpoint {
	return &Endpoint{s: session.NewSession(sysexBufferSize, callback, log)}
}

// SetCallback atomically replaces the event callback (spec.md §4.E).
func (e *Endpoint) SetCallback(fn Callback) { e.s.SetCallback(fn) }

// SetSessionName sets the name advertised in invitations and replies. It
// rejects names longer than wire.MaxSessionNameLen (63) bytes.
func (e *Endpoint) SetSessionName(name string) error { return e.s.SetSessionName(name) }

// InitiateSession binds local sockets and starts a session attempt
// (spec.md §4.D "Entry"). localIP is the interface to bind on;
// localCtrlPort/localDataPort of 0 let the OS choose; when both are 0 the
// data socket is bound at the OS-chosen control port + 1 (the paired-port
// convention). For a
// listener, peerIP/peerCtrlPort/peerDataPort may be left zero and are
// learned from the first invitation.
func (e *Endpoint) InitiateSession(localIP net.IP, localCtrlPort, localDataPort int, peerIP net.IP, peerCtrlPort, peerDataPort int, isInitiator bool) error {
	return e.s.InitiateSession(localIP, localCtrlPort, localDataPort, peerIP, peerCtrlPort, peerDataPort, isInitiator)
}

// CloseSession tears the session down, sending BY and releasing sockets
// (spec.md §4.D "Teardown").
func (e *Endpoint) CloseSession() error { return e.s.CloseSession() }

// RestartSession resets counters and identity and relaunches the
// invitation handshake. Meaningful only for an initiator.
func (e *Endpoint) RestartSession() { e.s.RestartSession() }

// RunStep advances the session state machine by one tick. The host calls
// it at roughly 1 ms cadence from a single dedicated goroutine.
func (e *Endpoint) RunStep() { e.s.RunStep() }

// SubmitMIDI pushes raw MIDI bytes onto the outbound FIFO, returning false
// when the session is not OPENED or the FIFO is full (spec.md §4.E).
func (e *Endpoint) SubmitMIDI(b []byte) bool { return e.s.SubmitMIDI(b) }

// Submit is SubmitMIDI's error-returning counterpart, distinguishing
// session.ErrNotOpened from session.ErrFIFOFull.
func (e *Endpoint) Submit(b []byte) error { return e.s.Submit(b) }

// Status reports the coarse session status.
func (e *Endpoint) Status() Status { return e.s.Status() }

// Latency returns the most recently measured round-trip latency in 100 µs
// units, or ok == false if no measurement has completed yet.
func (e *Endpoint) Latency() (latency uint32, ok bool) { return e.s.Latency() }

// PollConnectionLost, PollPeerClosed, and PollConnectionRefused return and
// clear their sticky, one-shot event flag (spec.md §4.E/§7).
func (e *Endpoint) PollConnectionLost() bool    { return e.s.PollConnectionLost() }
func (e *Endpoint) PollPeerClosed() bool        { return e.s.PollPeerClosed() }
func (e *Endpoint) PollConnectionRefused() bool { return e.s.PollConnectionRefused() }
