// Package session implements the AppleMIDI session-control state machine
// (spec.md §4.D): handshake, clock sync, keepalive, and teardown, plus the
// opened-state MIDI send/receive path built on the wire and midi packages.
//
// A Session is driven by a single caller invoking RunStep at roughly 1 ms
// cadence; that is the only goroutine that touches session, socket, or
// decoder state. SubmitMIDI may be called concurrently from a second
// producer goroutine -- it only touches the FIFO's write side. The sticky
// event flags and the public status/latency getters are atomics so a third
// goroutine can poll them without coordinating with the run-step caller.
package session

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bbouchez/RTP-MIDI/internal/rtplog"
	"github.com/bbouchez/RTP-MIDI/internal/transport"
	"github.com/bbouchez/RTP-MIDI/midi"
	"github.com/bbouchez/RTP-MIDI/wire"
)

// protocolVersion is the AppleMIDI version field carried in every
// session-control command (spec.md §4.A).
const protocolVersion = 2

// initialRemoteTimeout is the countdown set on InitiateSession/restart,
// per the original source's InitiateSession (see SPEC_FULL.md §4): 16
// missed sync intervals, documented there as "11 widely-spaced rounds
// plus the first 5 close-spaced ones". A completed CK round tightens
// this to 4 (spec.md §4.D), which is what actually guards OPENED.
const initialRemoteTimeout = 16

// Errors returned by Submit, the error-returning counterpart to the
// spec.md façade's bool-returning SubmitMIDI.
var (
	ErrNotOpened = errors.New("session: not opened")
	ErrFIFOFull  = errors.New("session: outbound FIFO full")
)

// Session is one AppleMIDI endpoint's session state, in either the
// initiator or listener role.
type Session struct {
	log rtplog.Logger

	// Identity, reassigned on every InitiateSession/restart.
	ssrc           uint32
	initiatorToken uint32
	sessionName    string

	// Peer binding: zero until learned (listener) or until InitiateSession
	// is called with a known peer (initiator).
	peerIP       net.IP
	peerCtrlPort int
	peerDataPort int

	transport *transport.Pair

	// Clocks and counters (spec.md §3).
	timeCounter uint32
	localClock  uint32
	txSeq       uint16
	lastRxSeq   uint16
	lastAckSeq  uint16

	// Single EventTime timer, shared by every state that arms one.
	timerRunning bool
	remainingMs  uint32

	remoteTimeout  int
	inviteCount    int
	syncSeqCounter int

	// Clock-sync scratch: only the low halves are stored. Timestamps this
	// endpoint generates carry a 0 high half; a peer's TS1/TS2 high halves
	// are echoed back from the received CK, so non-zero ones round-trip.
	ts1l, ts2l, ts3l uint32

	// Sticky, one-shot event flags: set by the run-step, read-and-cleared
	// by the host from any goroutine.
	connectionLost    atomic.Bool
	peerClosedFlag    atomic.Bool
	connectionRefused atomic.Bool

	// Mirrors of state and latency the public façade can read without
	// racing the run-step goroutine.
	statusPublic atomic.Int32
	latencyValue atomic.Uint32
	latencyKnown atomic.Bool

	decoder *midi.Decoder
	fifo    *midi.FIFO
	framer  outFramer

	locked atomic.Bool

	state       State
	isInitiator bool

	callbackMu sync.Mutex
	callback   midi.Callback
}

// NewSession constructs a closed, unbound Session. sysexBufCap bounds the
// decoder's SysEx reassembly buffer (midi.DefaultSysexBufferSize if <= 0).
// callback may be nil and set later with SetCallback.
func NewSession(sysexBufCap int, callback midi.Callback, log rtplog.Logger) *Session {
	if log == nil {
		log = rtplog.NoOp()
	}
	s := &Session{
		log:   log,
		fifo:  midi.NewFIFO(midi.DefaultFIFOCapacity),
		state: StateClosed,
	}
	s.callback = callback
	s.decoder = midi.NewDecoder(sysexBufCap, s.invokeCallback)
	s.statusPublic.Store(int32(StatusClosed))
	return s
}

func (s *Session) invokeCallback(e midi.Event) {
	s.callbackMu.Lock()
	cb := s.callback
	s.callbackMu.Unlock()
	if cb != nil {
		cb(e)
	}
}

// SetCallback atomically replaces the event callback, locking the endpoint
// for the duration of the swap so the run-step never observes a half
// updated pair (spec.md §4.E/§5).
func (s *Session) SetCallback(fn midi.Callback) {
	s.locked.Store(true)
	defer s.locked.Store(false)
	s.callbackMu.Lock()
	s.callback = fn
	s.callbackMu.Unlock()
}

// SetSessionName sets the session name advertised in IN/OK/NO. It rejects
// names over wire.MaxSessionNameLen bytes (spec.md §3/§4.E).
func (s *Session) SetSessionName(name string) error {
	if len(name) > wire.MaxSessionNameLen {
		return wire.ErrNameTooLong
	}
	s.sessionName = name
	return nil
}

func randomUint32() (uint32, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("session: read random bytes: %w", err)
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// InitiateSession binds local sockets and starts a new session attempt
// (spec.md §4.D "Entry"). localIP is the address to bind both sockets on;
// localCtrlPort/localDataPort may be 0 to let the OS choose. When
// localDataPort is 0 and localCtrlPort is also 0 (OS-assigned control
// port), the data socket is bound at ctrl_port+1, the paired-port
// convention. peerIP/peerCtrlPort/peerDataPort seed the initiator's known
// peer; a listener passes zero values and learns them from the first
// invitation.
func (s *Session) InitiateSession(localIP net.IP, localCtrlPort, localDataPort int, peerIP net.IP, peerCtrlPort, peerDataPort int, isInitiator bool) error {
	ssrc, err := randomUint32()
	if err != nil {
		return err
	}
	token, err := randomUint32()
	if err != nil {
		return err
	}

	var tr *transport.Pair
	if localDataPort == 0 && localCtrlPort == 0 {
		tr, err = transport.OpenPaired(localIP, 0, 0, s.log)
	} else {
		tr, err = transport.Open(
			&net.UDPAddr{IP: localIP, Port: localCtrlPort},
			&net.UDPAddr{IP: localIP, Port: localDataPort},
			s.log,
		)
	}
	if err != nil {
		return fmt.Errorf("session: initiate: %w", err)
	}

	s.transport = tr
	s.ssrc = ssrc
	s.initiatorToken = token
	s.peerIP = peerIP
	s.peerCtrlPort = peerCtrlPort
	s.peerDataPort = peerDataPort
	s.timeCounter = 0
	s.localClock = 0
	s.txSeq = 0
	s.lastRxSeq = 0
	s.lastAckSeq = 0
	s.inviteCount = 0
	s.syncSeqCounter = 0
	s.remoteTimeout = initialRemoteTimeout
	s.latencyKnown.Store(false)
	s.connectionLost.Store(false)
	s.peerClosedFlag.Store(false)
	s.connectionRefused.Store(false)
	s.isInitiator = isInitiator
	s.decoder.Reset()
	s.framer = outFramer{}

	if isInitiator {
		s.setState(StateInviteControl)
	} else {
		s.setState(StateWaitInviteCtrl)
	}
	s.armTimer(1)
	s.locked.Store(false)
	return nil
}

func (s *Session) setState(st State) {
	s.state = st
	s.statusPublic.Store(int32(st.Status()))
}

func (s *Session) setLatency(v uint32) {
	s.latencyValue.Store(v)
	s.latencyKnown.Store(true)
}

func (s *Session) armTimer(ms uint32) {
	s.remainingMs = ms
	s.timerRunning = ms > 0
}

func (s *Session) peerCtrlAddr() *net.UDPAddr { return &net.UDPAddr{IP: s.peerIP, Port: s.peerCtrlPort} }
func (s *Session) peerDataAddr() *net.UDPAddr { return &net.UDPAddr{IP: s.peerIP, Port: s.peerDataPort} }

// Status reports the coarse session status (spec.md §4.E/§6). Safe to call
// from any goroutine.
func (s *Session) Status() Status { return Status(s.statusPublic.Load()) }

// Latency returns the most recently measured round-trip latency in 100 µs
// units, or ok == false if no measurement has completed yet.
func (s *Session) Latency() (latency uint32, ok bool) {
	if !s.latencyKnown.Load() {
		return 0, false
	}
	return s.latencyValue.Load(), true
}

// SubmitMIDI pushes raw MIDI bytes onto the outbound FIFO. It fails
// (returns false) when the session is not OPENED or the FIFO is full
// (spec.md §4.E/§7).
func (s *Session) SubmitMIDI(b []byte) bool {
	if Status(s.statusPublic.Load()) != StatusOpened {
		return false
	}
	return s.fifo.Push(b)
}

// Submit is equivalent to SubmitMIDI but distinguishes "not opened" from
// "FIFO full" via a sentinel error instead of a bare bool.
func (s *Session) Submit(b []byte) error {
	if Status(s.statusPublic.Load()) != StatusOpened {
		return ErrNotOpened
	}
	if !s.fifo.Push(b) {
		return ErrFIFOFull
	}
	return nil
}

// PollConnectionLost, PollPeerClosed, and PollConnectionRefused return and
// clear their sticky event flag (spec.md §4.E/§7: "all sticky flags are
// one-shot").
func (s *Session) PollConnectionLost() bool    { return s.connectionLost.Swap(false) }
func (s *Session) PollPeerClosed() bool        { return s.peerClosedFlag.Swap(false) }
func (s *Session) PollConnectionRefused() bool { return s.connectionRefused.Swap(false) }

// RunStep advances the session state machine by one tick. The host calls
// it at roughly 1 ms cadence; all effects below happen in the order
// spec.md §4.D's "Run step" lists.
func (s *Session) RunStep() {
	s.timeCounter += 10
	s.localClock += 10

	if s.locked.Load() {
		return
	}

	timerEvent := false
	if s.timerRunning {
		if s.remainingMs <= 1 {
			s.remainingMs = 0
			s.timerRunning = false
			timerEvent = true
		} else {
			s.remainingMs--
		}
	}

	if timerEvent && (s.state == StateWaitInviteData || s.state == StateWaitClockSync) {
		s.revertToWaitInvite()
	}

	var acceptedCtrl, acceptedData, rejectedCtrl, rejectedData bool
	for {
		dg, ok := s.transport.TryRecvCtrl()
		if !ok {
			break
		}
		a, r := s.dispatchCtrl(dg)
		acceptedCtrl = acceptedCtrl || a
		rejectedCtrl = rejectedCtrl || r
	}
	for {
		dg, ok := s.transport.TryRecvData()
		if !ok {
			break
		}
		a, r := s.dispatchData(dg)
		acceptedData = acceptedData || a
		rejectedData = rejectedData || r
	}

	if rejectedCtrl || rejectedData {
		s.partnerClose()
		s.connectionRefused.Store(true)
		acceptedCtrl, acceptedData = false, false
	}

	if s.isInitiator {
		s.runInitiatorBranch(timerEvent, acceptedCtrl, acceptedData)
	}

	if s.state == StateOpened {
		s.runOpenedSendingPath(timerEvent)
	}
}

func (s *Session) revertToWaitInvite() {
	s.setState(StateWaitInviteCtrl)
	s.peerIP = nil
	s.peerCtrlPort = 0
	s.peerDataPort = 0
}

// --- control-socket dispatch ---

func (s *Session) dispatchCtrl(dg transport.Datagram) (accepted, rejected bool) {
	if !wire.IsSessionControl(dg.Data) {
		s.log.Debugw("session: dropping non-control datagram on ctrl socket", "from", dg.From)
		return false, false
	}
	code, ok := wire.SniffCommand(dg.Data)
	if !ok {
		return false, false
	}
	switch code {
	case "IN":
		s.handleInvitationCtrl(dg)
	case "OK":
		return s.handleReplyCtrl(dg, true)
	case "NO":
		return s.handleReplyCtrl(dg, false)
	case "BY":
		s.handleBye(dg)
	case "RS":
		s.handleRecovery(dg)
	default:
		s.log.Debugw("session: unrecognized ctrl command", "code", code, "from", dg.From)
	}
	return false, false
}

func (s *Session) handleInvitationCtrl(dg transport.Datagram) {
	if s.isInitiator {
		return // an initiator never receives an invite; explicit no-op
	}
	inv, err := wire.DecodeInvitation(dg.Data)
	if err != nil {
		s.log.Debugw("session: malformed IN on ctrl", "error", err)
		return
	}
	switch s.state {
	case StateWaitInviteCtrl:
		s.initiatorToken = inv.Token
		s.peerIP = dg.From.IP
		s.peerCtrlPort = dg.From.Port
		s.sendReply(true, true, inv.Token, dg.From)
		s.armTimer(5000)
		s.setState(StateWaitInviteData)
	case StateWaitInviteData:
		if s.peerIP != nil && dg.From.IP.Equal(s.peerIP) && dg.From.Port == s.peerCtrlPort {
			s.sendReply(true, true, inv.Token, dg.From)
			s.armTimer(5000)
		} else {
			s.sendReply(true, false, inv.Token, dg.From)
		}
	default:
		// already past the invite phase of this attempt; ignore
	}
}

func (s *Session) handleReplyCtrl(dg transport.Datagram, accept bool) (accepted, rejected bool) {
	if _, err := wire.DecodeReply(dg.Data); err != nil {
		s.log.Debugw("session: malformed reply on ctrl", "error", err)
		return false, false
	}
	if !s.isInitiator || s.state != StateInviteControl {
		return false, false
	}
	if s.peerIP == nil || !dg.From.IP.Equal(s.peerIP) || dg.From.Port != s.peerCtrlPort {
		return false, false
	}
	return accept, !accept
}

func (s *Session) handleBye(dg transport.Datagram) {
	if _, err := wire.DecodeBye(dg.Data); err != nil {
		s.log.Debugw("session: malformed BY", "error", err)
		return
	}
	if s.peerIP == nil || !dg.From.IP.Equal(s.peerIP) {
		return
	}
	s.partnerClose()
}

func (s *Session) handleRecovery(dg transport.Datagram) {
	if _, err := wire.DecodeRecovery(dg.Data); err != nil {
		s.log.Debugw("session: malformed RS", "error", err)
	}
}

// --- data-socket dispatch ---

func (s *Session) dispatchData(dg transport.Datagram) (accepted, rejected bool) {
	if wire.IsRTPMIDI(dg.Data) {
		s.handleDataPacket(dg)
		return false, false
	}
	if !wire.IsSessionControl(dg.Data) {
		return false, false
	}
	code, ok := wire.SniffCommand(dg.Data)
	if !ok {
		return false, false
	}
	switch code {
	case "IN":
		s.handleInvitationData(dg)
	case "OK":
		return s.handleReplyData(dg, true)
	case "NO":
		return s.handleReplyData(dg, false)
	case "CK":
		s.handleSync(dg)
	default:
		s.log.Debugw("session: unrecognized data command", "code", code, "from", dg.From)
	}
	return false, false
}

func (s *Session) handleInvitationData(dg transport.Datagram) {
	if s.isInitiator || s.state != StateWaitInviteData {
		return
	}
	inv, err := wire.DecodeInvitation(dg.Data)
	if err != nil {
		s.log.Debugw("session: malformed IN on data", "error", err)
		return
	}
	if s.peerIP == nil || !dg.From.IP.Equal(s.peerIP) {
		return
	}
	s.peerDataPort = dg.From.Port
	s.sendReply(false, true, inv.Token, dg.From)
	s.armTimer(2000)
	s.setState(StateWaitClockSync)
}

func (s *Session) handleReplyData(dg transport.Datagram, accept bool) (accepted, rejected bool) {
	if _, err := wire.DecodeReply(dg.Data); err != nil {
		s.log.Debugw("session: malformed reply on data", "error", err)
		return false, false
	}
	if !s.isInitiator || s.state != StateInviteData {
		return false, false
	}
	if s.peerIP == nil || !dg.From.IP.Equal(s.peerIP) || dg.From.Port != s.peerDataPort {
		return false, false
	}
	return accept, !accept
}

func (s *Session) handleDataPacket(dg transport.Datagram) {
	if s.peerIP == nil || !dg.From.IP.Equal(s.peerIP) {
		return
	}
	hdr, flags, list, err := wire.DecodeDataPacket(dg.Data)
	if err != nil {
		s.log.Debugw("session: malformed RTP-MIDI packet", "error", err)
		return
	}
	s.lastRxSeq = hdr.Sequence
	s.decoder.Decode(list, flags.Delta, s.localClock)
}

func (s *Session) handleSync(dg transport.Datagram) {
	if s.peerIP == nil || !dg.From.IP.Equal(s.peerIP) {
		return
	}
	sync, err := wire.DecodeSync(dg.Data)
	if err != nil {
		s.log.Debugw("session: malformed CK", "error", err)
		return
	}
	switch sync.Count {
	case 0:
		s.ts1l = sync.TS1L
		s.sendSync(1, sync.TS1H, s.ts1l, 0, s.timeCounter, 0, 0, s.peerDataAddr())
	case 1:
		s.ts1l = sync.TS1L
		s.ts2l = sync.TS2L
		s.setLatency(s.timeCounter - s.ts1l)
		s.remoteTimeout = 4
		s.sendSync(2, sync.TS1H, s.ts1l, sync.TS2H, s.ts2l, 0, s.timeCounter, s.peerDataAddr())
		if s.isInitiator && s.state == StateClockSync1 {
			s.syncSeqCounter = 0
			s.setState(StateOpened)
		}
	case 2:
		s.ts1l = sync.TS1L
		s.ts2l = sync.TS2L
		s.ts3l = sync.TS3L
		s.setLatency(s.timeCounter - s.ts2l)
		s.remoteTimeout = 4
		s.syncSeqCounter = 0
		s.setState(StateOpened)
	}
}

// --- initiator branch (spec.md §4.D "Initiator branch") ---

func (s *Session) runInitiatorBranch(timerEvent, acceptedCtrl, acceptedData bool) {
	switch s.state {
	case StateInviteControl:
		if acceptedCtrl {
			s.sendInvitation(false, s.peerDataAddr())
			s.armTimer(100)
			s.setState(StateInviteData)
		} else if timerEvent {
			s.sendInvitation(true, s.peerCtrlAddr())
			s.armTimer(1000)
			s.inviteCount++
		}
	case StateInviteData:
		if acceptedData {
			s.setState(StateClockSync0)
		} else if timerEvent {
			if s.inviteCount > 12 {
				s.restart()
			} else {
				s.sendInvitation(false, s.peerDataAddr())
				s.armTimer(1000)
				s.inviteCount++
			}
		}
	case StateClockSync0:
		s.sendSync(0, 0, s.timeCounter, 0, 0, 0, 0, s.peerDataAddr())
		s.setState(StateClockSync1)
	}
}

// --- opened-state sending path (spec.md §4.D "Opened-state sending path") ---

func (s *Session) runOpenedSendingPath(timerEvent bool) {
	s.trySendOutboundMIDI()

	if timerEvent {
		if s.lastRxSeq != s.lastAckSeq {
			s.sendRecovery(s.lastRxSeq, s.peerCtrlAddr())
			s.lastAckSeq = s.lastRxSeq
		}
		if s.isInitiator {
			s.sendSync(0, 0, s.timeCounter, 0, 0, 0, 0, s.peerDataAddr())
		}
		s.syncSeqCounter++
		rearm := uint32(1500)
		if s.syncSeqCounter > 5 {
			rearm = 10000
		}
		s.armTimer(rearm)
		if s.remoteTimeout > 0 {
			s.remoteTimeout--
		}
	}

	if s.remoteTimeout == 0 {
		s.connectionLost.Store(true)
		if s.isInitiator {
			s.restart()
		} else {
			s.revertToWaitInvite()
		}
	}
}

func (s *Session) trySendOutboundMIDI() {
	var peek [wire.MaxRTPLoad]byte
	n := s.fifo.Peek(peek[:])
	if n == 0 {
		return
	}
	piece, consumed, ok := s.framer.next(peek[:n])
	if !ok {
		return // not enough bytes yet for a complete command
	}
	s.fifo.Drain(consumed)
	if len(piece) == 0 {
		return // an orphan data byte was dropped; nothing to send
	}

	buf, err := wire.EncodeDataPacket(
		wire.DataHeader{Sequence: s.txSeq, Timestamp: s.timeCounter, SSRC: s.ssrc},
		wire.PayloadFlags{Long: true},
		piece,
	)
	if err != nil {
		s.log.Warnw("session: failed to encode outbound RTP-MIDI packet", "error", err)
		return
	}
	if err := s.transport.WriteData(buf, s.peerDataAddr()); err != nil {
		s.log.Warnw("session: failed to send RTP-MIDI packet", "error", err)
		return
	}
	s.txSeq++
}

// --- teardown (spec.md §4.D "Teardown") ---

// CloseSession tears down the session. A listener still waiting for its
// first invitation closes silently; otherwise it marks the endpoint
// closed, locks it, sends BY, lingers 50 ms for the datagram to leave, and
// releases the sockets.
func (s *Session) CloseSession() error {
	if !s.isInitiator && s.state == StateWaitInviteCtrl {
		s.setState(StateClosed)
		return s.releaseTransport()
	}

	s.locked.Store(true)
	defer s.locked.Store(false)

	if s.peerIP != nil && s.transport != nil {
		buf := wire.EncodeBye(wire.Bye{Version: protocolVersion, Token: s.initiatorToken, SSRC: s.ssrc})
		if err := s.transport.WriteCtrl(buf, s.peerCtrlAddr()); err != nil {
			s.log.Warnw("session: failed to send BY", "error", err)
		}
	}
	time.Sleep(50 * time.Millisecond)
	s.setState(StateClosed)
	return s.releaseTransport()
}

func (s *Session) releaseTransport() error {
	if s.transport == nil {
		return nil
	}
	err := s.transport.Close()
	s.transport = nil
	return err
}

func (s *Session) partnerClose() {
	s.timerRunning = false
	s.peerClosedFlag.Store(true)
	if s.isInitiator {
		s.setState(StateClosed)
	} else {
		s.revertToWaitInvite()
	}
}

// RestartSession resets sequence counters and identity and relaunches the
// invitation handshake. It is only meaningful for an initiator (spec.md
// §9's open question resolves the listener timeout path to the explicit
// "revert to WAIT_INVITE_CTRL" branch instead); calling it as a listener
// is a no-op.
func (s *Session) RestartSession() { s.restart() }

func (s *Session) restart() {
	if !s.isInitiator {
		return
	}
	if ssrc, err := randomUint32(); err == nil {
		s.ssrc = ssrc
	}
	if token, err := randomUint32(); err == nil {
		s.initiatorToken = token
	}
	s.txSeq = 0
	s.lastRxSeq = 0
	s.lastAckSeq = 0
	s.inviteCount = 0
	s.syncSeqCounter = 0
	s.remoteTimeout = initialRemoteTimeout
	s.latencyKnown.Store(false)
	s.decoder.Reset()
	s.framer = outFramer{}
	s.setState(StateInviteControl)
	s.armTimer(1000)
}

// --- wire-level send helpers ---

func (s *Session) sendInvitation(ctrl bool, to *net.UDPAddr) {
	buf := wire.EncodeInvitation(wire.Invitation{
		Version: protocolVersion,
		Token:   s.initiatorToken,
		SSRC:    s.ssrc,
		Name:    s.sessionName,
	})
	s.writeSessionControl(ctrl, buf, to, "IN")
}

func (s *Session) sendReply(ctrl bool, accept bool, token uint32, to *net.UDPAddr) {
	buf := wire.EncodeReply(wire.Reply{
		Accept:  accept,
		Version: protocolVersion,
		Token:   token,
		SSRC:    s.ssrc,
		Name:    s.sessionName,
	})
	s.writeSessionControl(ctrl, buf, to, "OK/NO")
}

func (s *Session) sendSync(count byte, ts1h, ts1l, ts2h, ts2l, ts3h, ts3l uint32, to *net.UDPAddr) {
	buf := wire.EncodeSync(wire.Sync{
		SSRC: s.ssrc, Count: count,
		TS1H: ts1h, TS1L: ts1l,
		TS2H: ts2h, TS2L: ts2l,
		TS3H: ts3h, TS3L: ts3l,
	})
	if err := s.transport.WriteData(buf, to); err != nil {
		s.log.Warnw("session: failed to send CK", "error", err)
	}
}

func (s *Session) sendRecovery(lastSeq uint16, to *net.UDPAddr) {
	buf := wire.EncodeRecovery(wire.Recovery{SSRC: s.ssrc, LastSequence: lastSeq})
	if err := s.transport.WriteCtrl(buf, to); err != nil {
		s.log.Warnw("session: failed to send RS", "error", err)
	}
}

func (s *Session) writeSessionControl(ctrl bool, buf []byte, to *net.UDPAddr, label string) {
	var err error
	if ctrl {
		err = s.transport.WriteCtrl(buf, to)
	} else {
		err = s.transport.WriteData(buf, to)
	}
	if err != nil {
		s.log.Warnw("session: failed to send session-control command", "command", label, "error", err)
	}
}
