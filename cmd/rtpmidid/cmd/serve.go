package cmd

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bbouchez/RTP-MIDI/internal/rtplog"
	rtpmidi "github.com/bbouchez/RTP-MIDI"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the endpoint until interrupted",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// parsePeer splits "host:ctrlPort" or "host:ctrlPort:dataPort" into an IP
// and the two session-control ports. When dataPort is not given it is
// ctrlPort+1, the paired-port convention.
func parsePeer(addr string) (ip net.IP, ctrlPort, dataPort int, err error) {
	parts := strings.Split(addr, ":")
	if len(parts) < 2 {
		return nil, 0, 0, fmt.Errorf("rtpmidid: peer address %q must be host:ctrl_port[:data_port]", addr)
	}
	resolved := net.ParseIP(parts[0])
	if resolved == nil {
		ips, err := net.LookupIP(parts[0])
		if err != nil || len(ips) == 0 {
			return nil, 0, 0, fmt.Errorf("rtpmidid: resolve peer host %q: %w", parts[0], err)
		}
		resolved = ips[0]
	}
	ctrlPort, err = strconv.Atoi(parts[1])
	if err != nil {
		return nil, 0, 0, fmt.Errorf("rtpmidid: invalid ctrl port %q: %w", parts[1], err)
	}
	if len(parts) == 3 {
		dataPort, err = strconv.Atoi(parts[2])
		if err != nil {
			return nil, 0, 0, fmt.Errorf("rtpmidid: invalid data port %q: %w", parts[2], err)
		}
	} else {
		dataPort = ctrlPort + 1
	}
	return resolved, ctrlPort, dataPort, nil
}

func runServe(c *cobra.Command, args []string) error {
	log, err := rtplog.Development()
	if err != nil {
		return fmt.Errorf("rtpmidid: build logger: %w", err)
	}

	localIP := net.ParseIP(cfg.ListenAddr)
	if localIP == nil {
		return fmt.Errorf("rtpmidid: invalid listen address %q", cfg.ListenAddr)
	}

	var peerIP net.IP
	var peerCtrl, peerData int
	if cfg.PeerAddr != "" {
		peerIP, peerCtrl, peerData, err = parsePeer(cfg.PeerAddr)
		if err != nil {
			return err
		}
	} else if cfg.Initiator {
		return fmt.Errorf("rtpmidid: --peer is required when initiator = true")
	}
	// Listener mode with no configured peer: peerIP/peerCtrl/peerData stay
	// zero and are learned from the first invitation.

	out := make(chan rtpmidi.Event, 256)
	ep := rtpmidi.New(cfg.SysexBuffer, func(e rtpmidi.Event) { out <- e }, log)
	if err := ep.SetSessionName(cfg.Name); err != nil {
		return fmt.Errorf("rtpmidid: set session name: %w", err)
	}

	if err := ep.InitiateSession(localIP, cfg.ListenCtrl, cfg.ListenData, peerIP, peerCtrl, peerData, cfg.Initiator); err != nil {
		return fmt.Errorf("rtpmidid: initiate session: %w", err)
	}
	defer ep.CloseSession()

	log.Infow("rtpmidid: session started", "initiator", cfg.Initiator, "peer", cfg.PeerAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	stdin := make(chan []byte, 64)
	go readStdinMIDI(stdin)

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	lastStatus := rtpmidi.StatusClosed
	for {
		select {
		case <-sigCh:
			log.Infow("rtpmidid: shutting down")
			return nil
		case <-ticker.C:
			ep.RunStep()
			if s := ep.Status(); s != lastStatus {
				log.Infow("rtpmidid: status changed", "status", statusName(s))
				lastStatus = s
			}
			if ep.PollConnectionLost() {
				log.Warnw("rtpmidid: connection lost, peer keepalive missed")
			}
			if ep.PollPeerClosed() {
				log.Infow("rtpmidid: peer closed the session")
			}
			if ep.PollConnectionRefused() {
				log.Warnw("rtpmidid: invitation refused by peer")
			}
		case ev := <-out:
			log.Infow("rtpmidid: received MIDI", "bytes", fmt.Sprintf("% x", ev.Data), "clock", ev.Timestamp)
		case b := <-stdin:
			if !ep.SubmitMIDI(b) {
				log.Warnw("rtpmidid: dropped outbound MIDI, session not open or FIFO full")
			}
		}
	}
}

// readStdinMIDI treats each input line as whitespace-separated hex MIDI
// bytes, e.g. "90 3c 64", and forwards the decoded bytes to ch.
func readStdinMIDI(ch chan<- []byte) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		b := make([]byte, 0, len(fields))
		ok := true
		for _, f := range fields {
			v, err := strconv.ParseUint(f, 16, 8)
			if err != nil {
				ok = false
				break
			}
			b = append(b, byte(v))
		}
		if ok {
			ch <- b
		}
	}
}

func statusName(s rtpmidi.Status) string {
	switch s {
	case rtpmidi.StatusClosed:
		return "closed"
	case rtpmidi.StatusInviting:
		return "inviting"
	case rtpmidi.StatusSyncing:
		return "syncing"
	case rtpmidi.StatusOpened:
		return "opened"
	default:
		return "unknown"
	}
}
