// Package config loads the host companion settings from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"powercore/core"
	"powercore/host/sim"
	"powercore/protocol"
)

// Config represents the host companion configuration.
type Config struct {
	Serial   SerialConfig   `yaml:"serial"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	FeedHold FeedHoldConfig `yaml:"feed_hold"`
	Log      LogConfig      `yaml:"log"`

	// Board mirrors the firmware tuning so host-side checks and the
	// timing tool agree with the target.
	Board core.Config `yaml:"board"`

	// Sim shapes the simulated board used with -sim.
	Sim sim.Options `yaml:"sim"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port        string        `yaml:"port"`
	Baud        int           `yaml:"baud"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// MQTTConfig contains the status bridge broker settings.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// FeedHoldConfig describes the Linux GPIO line asserted to pause the
// machine feed while the supply is shut down or shorting.
type FeedHoldConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Chip              string `yaml:"chip"`
	Line              int    `yaml:"line"`
	ActiveLow         bool   `yaml:"active_low"`
	ShortAlertPercent uint32 `yaml:"short_alert_percent"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:        "/dev/ttyACM0",
			Baud:        protocol.BaudRate,
			ReadTimeout: 100 * time.Millisecond,
		},
		MQTT: MQTTConfig{
			Enabled:     false,
			Broker:      "tcp://localhost:1883",
			ClientID:    "powercore-host",
			TopicPrefix: "powercore",
		},
		FeedHold: FeedHoldConfig{
			Enabled:           false,
			Chip:              "gpiochip0",
			Line:              17,
			ShortAlertPercent: 25,
		},
		Log: LogConfig{
			Level: "info",
		},
		Board: core.DefaultConfig(),
		Sim:   sim.DefaultOptions(),
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Board.Validate(); err != nil {
		return nil, fmt.Errorf("invalid board section: %w", err)
	}
	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.Baud == 0 {
		c.Serial.Baud = def.Serial.Baud
	}
	if c.Serial.ReadTimeout == 0 {
		c.Serial.ReadTimeout = def.Serial.ReadTimeout
	}

	if c.MQTT.Broker == "" {
		c.MQTT.Broker = def.MQTT.Broker
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = def.MQTT.TopicPrefix
	}

	if c.FeedHold.Chip == "" {
		c.FeedHold.Chip = def.FeedHold.Chip
	}
	if c.FeedHold.ShortAlertPercent == 0 {
		c.FeedHold.ShortAlertPercent = c.Board.ShortAlertPercent
	}

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}
