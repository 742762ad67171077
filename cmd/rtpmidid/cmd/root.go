// Package cmd implements the rtpmidid command-line host, grounded on
// strand-protocol-strand/strandctl's cobra layout: a root command with
// persistent config flags and subcommands (serve, version).
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile    string
	listenAddr string
	peerAddr   string
	name       string

	cfg Config
)

var rootCmd = &cobra.Command{
	Use:   "rtpmidid",
	Short: "RTP-MIDI session endpoint",
	Long: `rtpmidid hosts one RTP-MIDI (AppleMIDI) session endpoint: it
invites or waits for a peer, runs the clock-synchronization handshake,
and exchanges MIDI bytes with it over UDP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(c *cobra.Command, args []string) error {
		loaded, err := loadConfig(cfgFile)
		if err != nil {
			return err
		}
		if listenAddr != "" {
			loaded.ListenAddr = listenAddr
		}
		if peerAddr != "" {
			loaded.PeerAddr = peerAddr
		}
		if name != "" {
			loaded.Name = name
		}
		cfg = loaded
		return nil
	},
}

// Execute runs the rtpmidid root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "TOML config file")
	rootCmd.PersistentFlags().StringVar(&listenAddr, "listen", "", "local bind address (overrides config)")
	rootCmd.PersistentFlags().StringVar(&peerAddr, "peer", "", "peer address host:ctrl_port[:data_port] (overrides config)")
	rootCmd.PersistentFlags().StringVar(&name, "name", "", "session name advertised to the peer (overrides config)")
}
