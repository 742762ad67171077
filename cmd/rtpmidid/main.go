// Command rtpmidid is the RTP-MIDI session host: a cobra CLI that loads a
// TOML config, then runs one endpoint until interrupted. Grounded on
// wernerd-GoRTP/src/net/rtpmain's standalone main(), restructured around
// cobra subcommands and this module's Endpoint façade instead of GoRTP's
// channel-based Session API.
package main

import "github.com/bbouchez/RTP-MIDI/cmd/rtpmidid/cmd"

func main() {
	cmd.Execute()
}
