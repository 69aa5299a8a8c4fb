package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sweeney/pulse-sensor/internal/pipeline"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultValidates(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
sensor:
  i2c_bus: 0
  poll_ms: 25
mqtt:
  broker: tcp://192.168.1.200:1883
http:
  addr: ":9090"
  ws_broker: ws://192.168.1.200:9001
led:
  enabled: true
  pin: 21
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Sensor.I2CBus != 0 {
		t.Errorf("i2c_bus: got %d, want 0", cfg.Sensor.I2CBus)
	}
	if cfg.Sensor.PollMs != 25 {
		t.Errorf("poll_ms: got %d, want 25", cfg.Sensor.PollMs)
	}
	if cfg.Sensor.ADCBits != 14 {
		t.Errorf("adc_bits should keep default 14, got %d", cfg.Sensor.ADCBits)
	}
	if cfg.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("broker: got %q", cfg.MQTT.Broker)
	}
	if cfg.MQTT.ClientID != "pulse-sensor" {
		t.Errorf("client_id should keep default, got %q", cfg.MQTT.ClientID)
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Errorf("http addr: got %q", cfg.HTTP.Addr)
	}
	if !cfg.LED.Enabled || cfg.LED.Pin != 21 {
		t.Errorf("led: %+v", cfg.LED)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := writeConfig(t, "sensor: [not a map")
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad adc bits", func(c *Config) { c.Sensor.ADCBits = 7 }},
		{"zero poll", func(c *Config) { c.Sensor.PollMs = 0 }},
		{"zero ready timeout", func(c *Config) { c.Sensor.ReadyTimeoutMs = 0 }},
		{"negative i2c bus", func(c *Config) { c.Sensor.I2CBus = -1 }},
		{"oversized lowpass", func(c *Config) { c.Tuning.LowpassWindow = 64 }},
		{"empty broker", func(c *Config) { c.MQTT.Broker = "" }},
		{"negative heartbeat", func(c *Config) { c.MQTT.HeartbeatMs = -1 }},
		{"led bad pin", func(c *Config) { c.LED.Enabled = true; c.LED.Pin = -4 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestPipelineConfig(t *testing.T) {
	cfg := Default()
	cfg.Sensor.PollMs = 25
	cfg.Tuning.BaselineShift = 6
	cfg.Tuning.SmoothingWindow = 4

	p := PipelineConfig(cfg)
	if p.SampleIntervalTicks != 25 {
		t.Errorf("sample interval: got %d, want 25", p.SampleIntervalTicks)
	}
	if p.BaselineShift != 6 {
		t.Errorf("baseline shift: got %d, want 6", p.BaselineShift)
	}
	if p.SmoothingWindow != 4 {
		t.Errorf("smoothing window: got %d, want 4", p.SmoothingWindow)
	}
	if p.LowpassWindow != pipeline.DefaultConfig().LowpassWindow {
		t.Errorf("lowpass window should keep default, got %d", p.LowpassWindow)
	}
}
