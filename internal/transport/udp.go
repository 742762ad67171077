// Package transport owns the pair of UDP sockets (control + data) an
// RTP-MIDI endpoint binds to, grounded on wernerd-GoRTP's
// net/rtp.TransportUDP: one socket per port, a background goroutine per
// socket copying datagrams into a channel for the single-threaded run-step
// to drain.
//
// Unlike the teacher, which polls with a short read deadline "until Go
// issue 2116 is solved", this version closes the net.UDPConn to unblock a
// pending ReadFromUDP -- the fix the teacher's comment was waiting for has
// long since landed in net. The two reader goroutines are managed as a
// unit with golang.org/x/sync/errgroup so Close can wait for both to exit.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"

	"golang.org/x/sync/errgroup"

	"github.com/bbouchez/RTP-MIDI/internal/rtplog"
)

// Errors returned by Open/OpenPaired, matching spec.md §6's
// "-1 control socket bind failed, -2 data socket bind failed" error codes
// as testable sentinels instead of magic numbers.
var (
	ErrBindControl = errors.New("transport: control socket bind failed")
	ErrBindData    = errors.New("transport: data socket bind failed")
)

// recvQueueDepth bounds how many not-yet-drained datagrams each socket
// buffers before the reader goroutine starts dropping. The run-step drains
// every tick, so this only absorbs a burst within a single ~1ms tick.
const recvQueueDepth = 64

// maxDatagramSize is larger than any RTP-MIDI or session-control packet this
// endpoint emits or expects to receive.
const maxDatagramSize = 4096

// Datagram is one received UDP packet, tagged with its sender.
type Datagram struct {
	Data []byte
	From *net.UDPAddr
}

// Pair is the bound control and data UDP sockets for one session attempt.
type Pair struct {
	log rtplog.Logger

	ctrlConn *net.UDPConn
	dataConn *net.UDPConn

	ctrlRecv chan Datagram
	dataRecv chan Datagram

	group   *errgroup.Group
	closing chan struct{}
}

// Open binds the control and data sockets and starts their reader
// goroutines. Either address may have Port == 0 to let the OS choose; the
// caller (session.InitiateSession) is responsible for the ctrl_port+1
// pairing convention spec.md §4.D describes -- Open just binds whatever
// addresses it is given.
func Open(localCtrl, localData *net.UDPAddr, log rtplog.Logger) (*Pair, error) {
	if log == nil {
		log = rtplog.NoOp()
	}
	ctrlConn, err := net.ListenUDP("udp", localCtrl)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBindControl, err)
	}
	dataConn, err := net.ListenUDP("udp", localData)
	if err != nil {
		ctrlConn.Close()
		return nil, fmt.Errorf("%w: %v", ErrBindData, err)
	}

	group, _ := errgroup.WithContext(context.Background())
	p := &Pair{
		log:      log,
		ctrlConn: ctrlConn,
		dataConn: dataConn,
		ctrlRecv: make(chan Datagram, recvQueueDepth),
		dataRecv: make(chan Datagram, recvQueueDepth),
		group:    group,
		closing:  make(chan struct{}),
	}
	group.Go(func() error { return p.readLoop("ctrl", ctrlConn, p.ctrlRecv) })
	group.Go(func() error { return p.readLoop("data", dataConn, p.dataRecv) })
	return p, nil
}

// OpenPaired binds the control socket at ctrlPort (0 lets the OS choose),
// then binds the data socket at the paired port, ctrl_port+1, per spec.md
// §4.D's port convention. If dataPort is non-zero it is used verbatim
// instead of deriving it from the control port.
func OpenPaired(ip net.IP, ctrlPort, dataPort int, log rtplog.Logger) (*Pair, error) {
	if log == nil {
		log = rtplog.NoOp()
	}
	ctrlConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: ip, Port: ctrlPort})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBindControl, err)
	}
	if dataPort == 0 {
		dataPort = ctrlConn.LocalAddr().(*net.UDPAddr).Port + 1
	}
	dataConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: ip, Port: dataPort})
	if err != nil {
		ctrlConn.Close()
		return nil, fmt.Errorf("%w: %v", ErrBindData, err)
	}

	group, _ := errgroup.WithContext(context.Background())
	p := &Pair{
		log:      log,
		ctrlConn: ctrlConn,
		dataConn: dataConn,
		ctrlRecv: make(chan Datagram, recvQueueDepth),
		dataRecv: make(chan Datagram, recvQueueDepth),
		group:    group,
		closing:  make(chan struct{}),
	}
	group.Go(func() error { return p.readLoop("ctrl", ctrlConn, p.ctrlRecv) })
	group.Go(func() error { return p.readLoop("data", dataConn, p.dataRecv) })
	return p, nil
}

// LocalCtrlAddr and LocalDataAddr report the bound local addresses -- useful
// when the caller requested an OS-chosen port.
func (p *Pair) LocalCtrlAddr() *net.UDPAddr { return p.ctrlConn.LocalAddr().(*net.UDPAddr) }
func (p *Pair) LocalDataAddr() *net.UDPAddr { return p.dataConn.LocalAddr().(*net.UDPAddr) }

func (p *Pair) readLoop(name string, conn *net.UDPConn, out chan<- Datagram) error {
	buf := make([]byte, maxDatagramSize)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-p.closing:
				return nil
			default:
				p.log.Warnw("transport: socket read failed", "socket", name, "error", err)
				return err
			}
		}
		cp := make([]byte, n)
		copy(cp, buf[:n])
		select {
		case out <- Datagram{Data: cp, From: addr}:
		default:
			p.log.Warnw("transport: receive queue full, dropping datagram", "socket", name)
		}
	}
}

// TryRecvCtrl and TryRecvData return the next queued datagram on the
// respective socket without blocking. ok is false when nothing is queued.
func (p *Pair) TryRecvCtrl() (Datagram, bool) { return tryRecv(p.ctrlRecv) }
func (p *Pair) TryRecvData() (Datagram, bool) { return tryRecv(p.dataRecv) }

func tryRecv(ch <-chan Datagram) (Datagram, bool) {
	select {
	case d := <-ch:
		return d, true
	default:
		return Datagram{}, false
	}
}

// WriteCtrl and WriteData send buf to addr on the respective socket.
func (p *Pair) WriteCtrl(buf []byte, addr *net.UDPAddr) error {
	_, err := p.ctrlConn.WriteToUDP(buf, addr)
	if err != nil {
		return fmt.Errorf("transport: write control socket: %w", err)
	}
	return nil
}

func (p *Pair) WriteData(buf []byte, addr *net.UDPAddr) error {
	_, err := p.dataConn.WriteToUDP(buf, addr)
	if err != nil {
		return fmt.Errorf("transport: write data socket: %w", err)
	}
	return nil
}

// Close unblocks both reader goroutines by closing their sockets, waits for
// them to exit, and reports the first non-nil error either returned. A call
// after the first one does nothing and returns nil.
func (p *Pair) Close() error {
	select {
	case <-p.closing:
		return nil
	default:
	}
	close(p.closing)
	p.ctrlConn.Close()
	p.dataConn.Close()
	return p.group.Wait()
}
