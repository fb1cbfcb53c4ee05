package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	Input      InputConfig      `yaml:"input"`
	Demod      DemodSettings    `yaml:"demod"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// InputConfig contains IQ input stream settings
type InputConfig struct {
	Path       string `yaml:"path"`        // IQ file path, or "-" for stdin
	SampleRate int    `yaml:"sample_rate"` // Sample rate in Hz
	Bandwidth  int    `yaml:"bandwidth"`   // Channel bandwidth in Hz
	ChunkSize  int    `yaml:"chunk_size"`  // Samples per chunk delivered to the extension
}

// DemodSettings selects the IQ extension and its user parameters
type DemodSettings struct {
	Extension string                 `yaml:"extension"` // Extension name (e.g., "lora")
	Params    map[string]interface{} `yaml:"params"`    // Extension-specific parameter overrides
}

// PrometheusConfig contains Prometheus metrics endpoint settings
type PrometheusConfig struct {
	Enabled        bool   `yaml:"enabled"`         // Enable/disable Prometheus metrics endpoint
	Listen         string `yaml:"listen"`          // Listen address (e.g., ":9090")
	UpdateInterval int    `yaml:"update_interval"` // Demodulator counter scrape interval in seconds
}

// MQTTConfig contains MQTT publishing settings
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`      // Enable/disable MQTT result publishing
	Broker      string `yaml:"broker"`       // MQTT broker URL (e.g., tcp://mqtt.example.com:1883)
	Username    string `yaml:"username"`     // MQTT authentication username
	Password    string `yaml:"password"`     // MQTT authentication password
	TopicPrefix string `yaml:"topic_prefix"` // Topic prefix for all results
	QoS         byte   `yaml:"qos"`          // MQTT Quality of Service level (0, 1, or 2)
	Retain      bool   `yaml:"retain"`       // Retain flag for MQTT messages
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Quiet bool `yaml:"quiet"`
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Input.Path == "" {
		c.Input.Path = "-"
	}
	if c.Input.SampleRate == 0 {
		c.Input.SampleRate = 250000
	}
	if c.Input.Bandwidth == 0 {
		c.Input.Bandwidth = 125000
	}
	if c.Input.ChunkSize == 0 {
		c.Input.ChunkSize = 4096
	}
	if c.Demod.Extension == "" {
		c.Demod.Extension = "lora"
	}
	if c.Prometheus.Listen == "" {
		c.Prometheus.Listen = ":9090"
	}
	if c.Prometheus.UpdateInterval == 0 {
		c.Prometheus.UpdateInterval = 5
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "radio"
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Input.SampleRate <= 0 {
		return fmt.Errorf("input.sample_rate must be positive (got %d)", c.Input.SampleRate)
	}
	if c.Input.Bandwidth <= 0 {
		return fmt.Errorf("input.bandwidth must be positive (got %d)", c.Input.Bandwidth)
	}
	if c.Input.ChunkSize <= 0 {
		return fmt.Errorf("input.chunk_size must be positive (got %d)", c.Input.ChunkSize)
	}
	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.broker is required when MQTT is enabled")
		}
		if c.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2 (got %d)", c.MQTT.QoS)
		}
	}
	if c.Prometheus.Enabled && c.Prometheus.UpdateInterval <= 0 {
		return fmt.Errorf("prometheus.update_interval must be positive (got %d)", c.Prometheus.UpdateInterval)
	}
	return nil
}
