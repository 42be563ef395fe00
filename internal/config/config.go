// Package config loads the runner's TOML configuration: delimiters, the
// counterparty send script and log file, receive timing, and output
// locations. Missing fields fall back to the conventional defaults.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/tapewire/fixconf/internal/expr"
)

// Duration is a time.Duration that unmarshals from TOML strings like "4s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Config is the full runner configuration.
type Config struct {
	// FieldSep separates groups in spec expressions and fields in the
	// human-typable base message form.
	FieldSep string `toml:"field_separator"`

	// MultiSep separates candidate values within one expression group.
	MultiSep string `toml:"multi_value_separator"`

	// SendScript is handed each SOH-encoded message as its argument.
	SendScript string `toml:"send_script"`

	// CounterpartyLog is the file polled for response lines.
	CounterpartyLog string `toml:"counterparty_log"`

	// ReceiveTimeout bounds the wait for each response.
	ReceiveTimeout Duration `toml:"receive_timeout"`

	// PollInterval is the delay between counterparty log polls.
	PollInterval Duration `toml:"poll_interval"`

	// OutputDir receives the result and summary CSV files.
	OutputDir string `toml:"output_dir"`

	// Database is an optional SQLite path for the persistent run log.
	// Empty disables the store.
	Database string `toml:"database"`
}

// Default returns the conventional configuration.
func Default() Config {
	return Config{
		FieldSep:        "|",
		MultiSep:        "~",
		SendScript:      "./send_fix_message.sh",
		CounterpartyLog: "./logs/Current",
		ReceiveTimeout:  Duration{4 * time.Second},
		PollInterval:    Duration{500 * time.Millisecond},
		OutputDir:       "output",
	}
}

// Load reads a TOML config file, applies defaults for omitted fields and
// validates the result. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks delimiter sanity and timing bounds.
func (c Config) Validate() error {
	if c.FieldSep == "" || c.MultiSep == "" {
		return fmt.Errorf("separators must not be empty")
	}
	if c.FieldSep == c.MultiSep {
		return fmt.Errorf("field and multi-value separators must differ")
	}
	for name, sep := range map[string]string{"field_separator": c.FieldSep, "multi_value_separator": c.MultiSep} {
		if sep == "=" {
			return fmt.Errorf("%s must not be '='", name)
		}
		if sep == "\x01" {
			return fmt.Errorf("%s must not be the wire delimiter", name)
		}
	}
	if c.ReceiveTimeout.Duration <= 0 {
		return fmt.Errorf("receive_timeout must be positive")
	}
	if c.PollInterval.Duration <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if c.SendScript == "" {
		return fmt.Errorf("send_script is required")
	}
	if c.CounterpartyLog == "" {
		return fmt.Errorf("counterparty_log is required")
	}
	return nil
}

// Syntax returns the expression syntax derived from the separators.
func (c Config) Syntax() expr.Syntax {
	return expr.Syntax{FieldSep: c.FieldSep, MultiSep: c.MultiSep}
}
