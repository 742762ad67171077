package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// rtpmididVersion is set at build time via
// -ldflags "-X github.com/bbouchez/RTP-MIDI/cmd/rtpmidid/cmd.rtpmididVersion=x.y.z"
var rtpmididVersion = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show rtpmidid's version",
	RunE: func(c *cobra.Command, args []string) error {
		fmt.Fprintf(c.OutOrStdout(), "rtpmidid version %s\n", rtpmididVersion)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
