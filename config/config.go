// Package config loads the session configuration: which vehicle is on the
// bus, where the signal dictionary lives, which interfaces carry which bus,
// and optional overrides of the controller limits.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"

	"gm-can-core/values"
)

// DefaultConfigPath is read when no explicit path is given.
const DefaultConfigPath = "config/gmcan.yaml"

// Config is the complete session configuration.
type Config struct {
	Vehicle VehicleConfig `yaml:"vehicle"`
	CAN     CANConfig     `yaml:"can"`
	Log     LogConfig     `yaml:"log"`

	// Params starts from the controller defaults; keys present in the file
	// replace them, including explicit zeros.
	Params values.CarControllerParams `yaml:"params"`
}

// VehicleConfig selects the vehicle variant.
type VehicleConfig struct {
	Fingerprint          string `yaml:"fingerprint"`
	EnableGasInterceptor bool   `yaml:"enableGasInterceptor"`
}

// CANConfig holds the dictionary path and the SocketCAN interface per bus.
type CANConfig struct {
	DictionaryPath string `yaml:"dictionary"`
	Powertrain     string `yaml:"powertrain"`
	SWGMLAN        string `yaml:"swGmlan"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	Stdout     bool   `yaml:"stdout"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is non-empty) and GMCAN_* environment overrides, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Vehicle: VehicleConfig{
			Fingerprint:          string(values.Volt),
			EnableGasInterceptor: false,
		},
		CAN: CANConfig{
			DictionaryPath: "config/can/gm_global_a_powertrain.csv",
			Powertrain:     "vcan0",
			SWGMLAN:        "vcan0",
		},
		Log: LogConfig{
			Level:      "info",
			File:       "gmcan.log",
			Stdout:     true,
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
		Params: values.DefaultCarControllerParams(),
	}
}

func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, cfg)
}

func applyEnvOverrides(cfg *Config) {
	if fp := os.Getenv("GMCAN_FINGERPRINT"); fp != "" {
		cfg.Vehicle.Fingerprint = fp
	}
	if v := os.Getenv("GMCAN_GAS_INTERCEPTOR"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Vehicle.EnableGasInterceptor = b
		}
	}
	if iface := os.Getenv("GMCAN_PT_IFACE"); iface != "" {
		cfg.CAN.Powertrain = iface
	}
	if iface := os.Getenv("GMCAN_SW_GMLAN_IFACE"); iface != "" {
		cfg.CAN.SWGMLAN = iface
	}
	if lvl := os.Getenv("GMCAN_LOG_LEVEL"); lvl != "" {
		cfg.Log.Level = lvl
	}
}

// Validate checks the fingerprint, interfaces and merged controller params.
func (c *Config) Validate() error {
	if _, err := c.Profile(); err != nil {
		return err
	}
	if c.CAN.DictionaryPath == "" {
		return fmt.Errorf("can.dictionary must be set")
	}
	if c.CAN.Powertrain == "" {
		return fmt.Errorf("can.powertrain interface must be set")
	}
	validLevels := []string{"trace", "debug", "info", "warn", "warning", "error", "critical"}
	if !contains(validLevels, strings.ToLower(strings.TrimSpace(c.Log.Level))) {
		return fmt.Errorf("invalid log level %s, must be one of: %v", c.Log.Level, validLevels)
	}
	return c.ControllerParams().Validate()
}

// Profile resolves the vehicle capabilities from the fingerprint.
func (c *Config) Profile() (values.VehicleProfile, error) {
	return values.ResolveProfile(values.Fingerprint(c.Vehicle.Fingerprint), c.Vehicle.EnableGasInterceptor)
}

// ControllerParams returns the controller limits: defaults overlaid with the
// keys set in the config file.
func (c *Config) ControllerParams() values.CarControllerParams {
	return c.Params
}

// Interfaces maps each bus the controller writes to its SocketCAN interface.
func (c *Config) Interfaces() map[values.CanBus]string {
	out := map[values.CanBus]string{values.BusPowertrain: c.CAN.Powertrain}
	if c.CAN.SWGMLAN != "" {
		out[values.BusSWGMLAN] = c.CAN.SWGMLAN
	}
	return out
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
