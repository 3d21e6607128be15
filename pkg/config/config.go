// Package config loads and validates the host configuration file.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BBAmod/AnyCubic-Kobra-Printer/pkg/errors"
)

// Duration decodes YAML scalars like "30s" or "2m" into a time.Duration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the top-level configuration document.
type Config struct {
	Machine   MachineConfig   `yaml:"machine"`
	Serial    SerialConfig    `yaml:"serial"`
	Panel     PanelConfig     `yaml:"panel"`
	Recovery  RecoveryConfig  `yaml:"recovery"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// MachineConfig identifies the printer.
type MachineConfig struct {
	// Name is the machine identity reported by the firmware, used to
	// strip the prefix from status messages (e.g. "AnyCubic Kobra").
	Name string `yaml:"name"`

	// MediaDir is the directory presented as the printable media root.
	MediaDir string `yaml:"media_dir"`

	// GridRows/GridCols describe the bed probe mesh.
	GridRows int `yaml:"grid_rows"`
	GridCols int `yaml:"grid_cols"`

	// ZMaxPos is the travel limit used to clamp the outage raise.
	ZMaxPos float64 `yaml:"z_max_pos"`
}

// SerialConfig describes the panel link.
type SerialConfig struct {
	Device   string `yaml:"device"`
	BaudRate int    `yaml:"baud_rate"`

	// Socket, when set, connects to a panel simulator instead of a tty.
	Socket string `yaml:"socket"`
}

// PanelConfig holds panel UI defaults.
type PanelConfig struct {
	// Language is "chs" or "eng".
	Language string `yaml:"language"`

	// AudioOn enables the panel beeper at startup.
	AudioOn bool `yaml:"audio_on"`

	// CaseLightOn is the startup state of the chamber light.
	CaseLightOn bool `yaml:"case_light_on"`
}

// RecoveryConfig holds power-loss recovery settings.
type RecoveryConfig struct {
	// Enabled turns the recovery engine on.
	Enabled bool `yaml:"enabled"`

	// StorePath is the file backing the snapshot record.
	StorePath string `yaml:"store_path"`

	// SaveInterval is the minimum time between periodic saves.
	SaveInterval Duration `yaml:"save_interval"`

	// MinZChange forces a save when Z rises by at least this much (mm).
	MinZChange float64 `yaml:"min_z_change"`

	// ZRaise is the lift applied when saving on outage (mm).
	ZRaise float64 `yaml:"z_raise"`

	// OutageThreshold is the ADC reading below which the supply is
	// considered failing.
	OutageThreshold int `yaml:"outage_threshold"`

	// BackupPower indicates a capacitor bank is present, allowing the
	// retract-and-raise sequence during an outage.
	BackupPower bool `yaml:"backup_power"`
}

// BridgeConfig holds the status API server settings.
type BridgeConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// TelemetryConfig holds the MQTT job-event publisher settings.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled"`

	// BrokerURL is an mqtt:// or tcp:// URL, optionally with a path
	// used as the topic prefix and a client-id query parameter.
	BrokerURL string `yaml:"broker_url"`
}

// Default returns a Config populated with working defaults.
func Default() Config {
	return Config{
		Machine: MachineConfig{
			Name:     "AnyCubic Kobra",
			MediaDir: "/mnt/UDISK",
			GridRows: 5,
			GridCols: 5,
			ZMaxPos:  250,
		},
		Serial: SerialConfig{
			Device:   "/dev/ttyS1",
			BaudRate: 115200,
		},
		Panel: PanelConfig{
			Language: "chs",
			AudioOn:  true,
		},
		Recovery: RecoveryConfig{
			Enabled:         true,
			StorePath:       "/var/lib/kobra/plr.bin",
			SaveInterval:    Duration(60 * time.Second),
			MinZChange:      0.05,
			ZRaise:          2,
			OutageThreshold: 2200,
		},
		Bridge: BridgeConfig{
			Listen: ":7125",
		},
		Telemetry: TelemetryConfig{},
	}
}

// Load reads, parses and validates a YAML config file. Omitted options
// keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.ConfigLoadError(path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.ConfigLoadError(path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks configuration correctness. It does not mutate the
// configuration.
func (c *Config) Validate() error {
	if c.Machine.Name == "" {
		return errors.ConfigValidationError("machine.name", "must not be empty")
	}
	if c.Machine.GridRows < 2 || c.Machine.GridCols < 2 {
		return errors.ConfigValidationError("machine.grid_rows", "probe grid must be at least 2x2")
	}
	if c.Machine.ZMaxPos <= 0 {
		return errors.ConfigValidationError("machine.z_max_pos", "must be positive")
	}
	if c.Serial.Device == "" && c.Serial.Socket == "" {
		return errors.ConfigValidationError("serial.device", "either device or socket is required")
	}
	if c.Serial.BaudRate <= 0 {
		return errors.ConfigValidationError("serial.baud_rate", "must be positive")
	}
	switch c.Panel.Language {
	case "chs", "eng":
	default:
		return errors.ConfigValidationError("panel.language", "must be \"chs\" or \"eng\"")
	}
	if c.Recovery.Enabled {
		if c.Recovery.StorePath == "" {
			return errors.ConfigValidationError("recovery.store_path", "required when recovery is enabled")
		}
		if c.Recovery.SaveInterval <= 0 {
			return errors.ConfigValidationError("recovery.save_interval", "must be positive")
		}
		if c.Recovery.MinZChange <= 0 {
			return errors.ConfigValidationError("recovery.min_z_change", "must be positive")
		}
		if c.Recovery.OutageThreshold <= 0 {
			return errors.ConfigValidationError("recovery.outage_threshold", "must be positive")
		}
	}
	if c.Bridge.Enabled && c.Bridge.Listen == "" {
		return errors.ConfigValidationError("bridge.listen", "required when bridge is enabled")
	}
	if c.Telemetry.Enabled && c.Telemetry.BrokerURL == "" {
		return errors.ConfigValidationError("telemetry.broker_url", "required when telemetry is enabled")
	}
	return nil
}
