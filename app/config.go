package app

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"example.com/frag_share/pkg/codec"
	"example.com/frag_share/pkg/share"
	"example.com/frag_share/pkg/shorten"
)

// Config is the deployment-tunable surface of the orchestrator.
type Config struct {
	Origin           string   `toml:"origin"`
	Path             string   `toml:"path"`
	SignalURL        string   `toml:"signal_url"`
	ShortenerURL     string   `toml:"shortener_url"`
	QRLimit          int      `toml:"qr_limit"`
	HardCap          int      `toml:"hard_cap"`
	CompressionLevel int      `toml:"compression_level"`
	GuestTimeoutS    int      `toml:"guest_timeout_s"`
	HostGraceS       int      `toml:"host_grace_s"`
	DebounceMS       int      `toml:"debounce_ms"`
	STUNURLs         []string `toml:"stun_urls"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		Origin:           "https://frag.example",
		Path:             "/",
		SignalURL:        "ws://localhost:8080",
		ShortenerURL:     shorten.DefaultBaseURL,
		QRLimit:          share.DefaultQRLimit,
		HardCap:          share.DefaultHardCap,
		CompressionLevel: codec.DefaultLevel,
		GuestTimeoutS:    30,
		HostGraceS:       3,
		DebounceMS:       300,
	}
}

// LoadConfig reads a TOML config file over the defaults. A missing file is
// not an error; the defaults stand alone.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations that break the three-way branch or the
// protocol's timing bounds.
func (c Config) Validate() error {
	if c.QRLimit <= 0 || c.HardCap <= 0 {
		return fmt.Errorf("qr_limit and hard_cap must be positive")
	}
	if c.QRLimit >= c.HardCap {
		return fmt.Errorf("qr_limit (%d) must be below hard_cap (%d)", c.QRLimit, c.HardCap)
	}
	if c.GuestTimeoutS <= 0 {
		return fmt.Errorf("guest_timeout_s must be positive")
	}
	if c.HostGraceS <= 0 {
		return fmt.Errorf("host_grace_s must be positive")
	}
	if c.DebounceMS < 0 {
		return fmt.Errorf("debounce_ms must not be negative")
	}
	return nil
}

// Thresholds returns the classifier cut-offs.
func (c Config) Thresholds() share.Thresholds {
	return share.Thresholds{QRLimit: c.QRLimit, HardCap: c.HardCap}
}

// GuestTimeout bounds the guest's connect phase.
func (c Config) GuestTimeout() time.Duration {
	return time.Duration(c.GuestTimeoutS) * time.Second
}

// HostGrace is the host's post-delivery linger.
func (c Config) HostGrace() time.Duration {
	return time.Duration(c.HostGraceS) * time.Second
}

// Debounce is the window for coalescing rapid share recomputations.
func (c Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}
