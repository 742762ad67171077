package cmd

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config is the rtpmidid daemon's TOML configuration, grounded on
// paypal-junodb's test/fakess/config.go use of BurntSushi/toml for a
// standalone network-facing daemon.
type Config struct {
	Name string `toml:"name"`

	ListenAddr string `toml:"listen_addr"`
	ListenCtrl int    `toml:"listen_ctrl_port"`
	ListenData int    `toml:"listen_data_port"`

	PeerAddr string `toml:"peer_addr"`
	PeerCtrl int    `toml:"peer_ctrl_port"`
	PeerData int    `toml:"peer_data_port"`

	Initiator   bool `toml:"initiator"`
	SysexBuffer int  `toml:"sysex_buffer_size"`
	FIFOCap     int  `toml:"fifo_capacity"`
}

// defaultConfig mirrors junodb's package-level Conf default-value pattern:
// sane values the TOML file only needs to override.
func defaultConfig() Config {
	return Config{
		Name:        "rtpmidid",
		ListenAddr:  "0.0.0.0",
		ListenCtrl:  5004,
		ListenData:  0,
		Initiator:   false,
		SysexBuffer: 512,
		FIFOCap:     2048,
	}
}

// loadConfig reads path, if non-empty, over top of defaultConfig.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("rtpmidid: load config %s: %w", path, err)
	}
	return cfg, nil
}
