// Package config loads and validates the pulse-sensor daemon configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/pulse-sensor/internal/pipeline"
)

// Config is the top-level daemon configuration.
type Config struct {
	Sensor SensorConfig `yaml:"sensor"`
	Tuning TuningConfig `yaml:"tuning"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
	HTTP   HTTPConfig   `yaml:"http"`
	LED    LEDConfig    `yaml:"led"`
}

// SensorConfig selects the I2C bus and acquisition parameters.
type SensorConfig struct {
	I2CBus         int `yaml:"i2c_bus"`
	ADCBits        int `yaml:"adc_bits"`
	PollMs         int `yaml:"poll_ms"`
	ReadyTimeoutMs int `yaml:"ready_timeout_ms"`
}

// TuningConfig carries the signal-processing knobs. Zero values fall
// back to the pipeline defaults.
type TuningConfig struct {
	BaselineShift     int `yaml:"baseline_shift"`
	LowpassWindow     int `yaml:"lowpass_window"`
	WarmupSamples     int `yaml:"warmup_samples"`
	NoiseThresholdPct int `yaml:"noise_threshold_pct"`
	OutlierPct        int `yaml:"outlier_pct"`
	SmoothingWindow   int `yaml:"smoothing_window"`
}

// MQTTConfig configures the broker connection.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	HeartbeatMs int    `yaml:"heartbeat_ms"`
}

// HTTPConfig configures the status web server.
type HTTPConfig struct {
	Addr     string `yaml:"addr"`
	WSBroker string `yaml:"ws_broker"`
}

// LEDConfig configures the heartbeat LED.
type LEDConfig struct {
	Enabled bool `yaml:"enabled"`
	Pin     int  `yaml:"pin"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Sensor: SensorConfig{
			I2CBus:         1,
			ADCBits:        14,
			PollMs:         40,
			ReadyTimeoutMs: 500,
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			ClientID:    "pulse-sensor",
			HeartbeatMs: 900000,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		LED: LEDConfig{
			Enabled: false,
			Pin:     12,
		},
	}
}

// Load reads a YAML config file on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration correctness. It does not mutate.
func Validate(cfg Config) error {
	switch cfg.Sensor.ADCBits {
	case 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18:
	default:
		return fmt.Errorf("sensor: adc_bits must be 8..18, got %d", cfg.Sensor.ADCBits)
	}
	if cfg.Sensor.PollMs <= 0 {
		return fmt.Errorf("sensor: poll_ms must be positive, got %d", cfg.Sensor.PollMs)
	}
	if cfg.Sensor.ReadyTimeoutMs <= 0 {
		return fmt.Errorf("sensor: ready_timeout_ms must be positive, got %d", cfg.Sensor.ReadyTimeoutMs)
	}
	if cfg.Sensor.I2CBus < 0 {
		return fmt.Errorf("sensor: i2c_bus must be non-negative, got %d", cfg.Sensor.I2CBus)
	}
	if cfg.Tuning.LowpassWindow > 32 {
		return fmt.Errorf("tuning: lowpass_window must be at most 32, got %d", cfg.Tuning.LowpassWindow)
	}
	if cfg.MQTT.Broker == "" {
		return fmt.Errorf("mqtt: broker must not be empty")
	}
	if cfg.MQTT.HeartbeatMs < 0 {
		return fmt.Errorf("mqtt: heartbeat_ms must be non-negative, got %d", cfg.MQTT.HeartbeatMs)
	}
	if cfg.LED.Enabled && cfg.LED.Pin < 0 {
		return fmt.Errorf("led: pin must be non-negative, got %d", cfg.LED.Pin)
	}
	return nil
}

// PipelineConfig builds the signal-processing configuration from the
// daemon config. Ticks are milliseconds.
func PipelineConfig(cfg Config) pipeline.Config {
	p := pipeline.DefaultConfig()
	p.SampleIntervalTicks = uint32(cfg.Sensor.PollMs)
	if cfg.Tuning.BaselineShift > 0 {
		p.BaselineShift = uint(cfg.Tuning.BaselineShift)
	}
	if cfg.Tuning.LowpassWindow > 0 {
		p.LowpassWindow = cfg.Tuning.LowpassWindow
	}
	if cfg.Tuning.WarmupSamples > 0 {
		p.WarmupSamples = cfg.Tuning.WarmupSamples
	}
	if cfg.Tuning.NoiseThresholdPct > 0 {
		p.NoiseThresholdPct = uint32(cfg.Tuning.NoiseThresholdPct)
	}
	if cfg.Tuning.OutlierPct > 0 {
		p.OutlierPct = uint32(cfg.Tuning.OutlierPct)
	}
	if cfg.Tuning.SmoothingWindow > 0 {
		p.SmoothingWindow = cfg.Tuning.SmoothingWindow
	}
	return p
}
