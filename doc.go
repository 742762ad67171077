/*
Package rtpmidi implements an RTP-MIDI endpoint: the AppleMIDI
session-control handshake (invitation, clock synchronization, keepalive,
teardown) paired with the RTP-MIDI payload codec of RFC 6295.

An endpoint owns a pair of UDP sockets, control and data, and advances a
single state machine one tick at a time. There is no background
goroutine driving the protocol; the host application calls RunStep on
its own ~1 ms cadence, which keeps every byte of session state (other
than the outbound FIFO and the sticky event flags) confined to one
goroutine.

  +----------------------+
  |       Endpoint       |      public façade (rtpmidi.go)
  |  - New/SetCallback    |
  |  - InitiateSession    |
  |  - RunStep            |
  |  - SubmitMIDI/Submit  |
  +-----------+----------+
              | wraps
  +-----------v----------+        +----------------------+
  |   session.Session     |  uses |  internal/transport   |
  |  - state machine      +------>+  - ctrl + data sockets|
  |  - clock sync         |       |  - reader goroutines  |
  |  - outbound framer     |       +----------------------+
  +-----+------------+----+
        |            |
  uses  |            | uses
        v            v
  +-----------+  +-------------+
  |   wire    |  |    midi     |
  | - session |  | - FIFO      |
  |   control |  | - decoder   |
  | - RTP-MIDI|  | - VLQ       |
  |   payload |  +-------------+
  +-----------+

Figure 1: package layout.

# Session lifecycle

An endpoint is either an initiator, which sends Invitation (IN) packets
until a peer accepts, or a listener, which waits for one. Both sides run
the same three-way clock synchronization (CK, count 0/1/2) before the
session reaches OPENED. Once open, outbound MIDI bytes queued with
SubmitMIDI are framed into RTP-MIDI payloads and sent on the data
socket; inbound payloads are decoded and delivered to the host callback.
A missed keepalive budget (remote_timeout) reverts a listener to
waiting for a new invitation and causes an initiator to restart its own
invitation sequence.

# Packages

wire implements the session-control packet bodies (Invitation, Reply,
Bye, Sync, Recovery) and the RTP-MIDI data packet header, all pure
encode/decode functions over byte slices.

midi implements the MIDI-over-RTP payload: a bounded single-producer
single-consumer FIFO for outbound bytes, a running-status decoder with
SysEx reassembly, and the variable-length-quantity delta-time codec.

internal/transport owns the two UDP sockets a session binds, isolating
the network from the rest of the package so session tests can drive the
state machine against real loopback sockets without a live peer
implementation.

session implements the state machine itself; it is exported so advanced
callers can embed it directly, but most callers use the Endpoint façade
in this package instead.
*/
package rtpmidi
