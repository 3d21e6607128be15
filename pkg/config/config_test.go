package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BBAmod/AnyCubic-Kobra-Printer/pkg/errors"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kobra.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeTempConfig(t, "serial:\n  device: /dev/ttyUSB0\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Serial.Device != "/dev/ttyUSB0" {
		t.Errorf("device = %q, want /dev/ttyUSB0", cfg.Serial.Device)
	}
	if cfg.Serial.BaudRate != 115200 {
		t.Errorf("baud = %d, want default 115200", cfg.Serial.BaudRate)
	}
	if cfg.Machine.Name != "AnyCubic Kobra" {
		t.Errorf("machine name = %q, want default", cfg.Machine.Name)
	}
	if cfg.Recovery.MinZChange != 0.05 {
		t.Errorf("min_z_change = %v, want default 0.05", cfg.Recovery.MinZChange)
	}
	if cfg.Recovery.SaveInterval.Std() != 60*time.Second {
		t.Errorf("save_interval = %v, want default 60s", cfg.Recovery.SaveInterval)
	}
}

func TestLoadFullDocument(t *testing.T) {
	path := writeTempConfig(t, `
machine:
  name: Kobra Max
  media_dir: /media/sd
  grid_rows: 4
  grid_cols: 4
  z_max_pos: 300
serial:
  device: /dev/ttyS1
  baud_rate: 250000
panel:
  language: eng
  audio_on: false
recovery:
  enabled: true
  store_path: /tmp/plr.bin
  save_interval: 30s
  min_z_change: 0.1
  z_raise: 5
  outage_threshold: 2100
  backup_power: true
bridge:
  enabled: true
  listen: ":8080"
telemetry:
  enabled: true
  broker_url: mqtt://localhost:1883/kobra
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Machine.Name != "Kobra Max" {
		t.Errorf("machine name = %q", cfg.Machine.Name)
	}
	if cfg.Panel.Language != "eng" {
		t.Errorf("language = %q", cfg.Panel.Language)
	}
	if cfg.Recovery.SaveInterval.Std() != 30*time.Second {
		t.Errorf("save_interval = %v", cfg.Recovery.SaveInterval)
	}
	if !cfg.Recovery.BackupPower {
		t.Error("backup_power not parsed")
	}
	if cfg.Telemetry.BrokerURL != "mqtt://localhost:1883/kobra" {
		t.Errorf("broker_url = %q", cfg.Telemetry.BrokerURL)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/kobra.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, errors.ErrConfigLoad) {
		t.Errorf("error code = %v, want CONFIG_LOAD", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		option string
	}{
		{"empty machine name", func(c *Config) { c.Machine.Name = "" }, "machine.name"},
		{"tiny grid", func(c *Config) { c.Machine.GridRows = 1 }, "machine.grid_rows"},
		{"no transport", func(c *Config) { c.Serial.Device = ""; c.Serial.Socket = "" }, "serial.device"},
		{"bad baud", func(c *Config) { c.Serial.BaudRate = 0 }, "serial.baud_rate"},
		{"bad language", func(c *Config) { c.Panel.Language = "fra" }, "panel.language"},
		{"no store path", func(c *Config) { c.Recovery.StorePath = "" }, "recovery.store_path"},
		{"zero interval", func(c *Config) { c.Recovery.SaveInterval = 0 }, "recovery.save_interval"},
		{"bridge without listen", func(c *Config) { c.Bridge.Enabled = true; c.Bridge.Listen = "" }, "bridge.listen"},
		{"telemetry without broker", func(c *Config) { c.Telemetry.Enabled = true }, "telemetry.broker_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, errors.ErrConfigValidation) {
				t.Errorf("error code = %v, want CONFIG_VALIDATION", err)
			}
		})
	}

	t.Run("defaults valid", func(t *testing.T) {
		cfg := Default()
		if err := cfg.Validate(); err != nil {
			t.Errorf("defaults should validate: %v", err)
		}
	})
}
