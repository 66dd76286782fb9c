package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the RENAC bridge.
// All configuration can come from a YAML file, from environment variables,
// or both; environment variables win. A deployment with nothing but
// environment variables (the original container setup) is fully supported.
type Config struct {
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Devices DevicesConfig `yaml:"devices"`
	Polling PollingConfig `yaml:"polling"`
	Logging LoggingConfig `yaml:"logging"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker          MQTTBrokerConfig    `yaml:"broker"`
	Auth            MQTTAuthConfig      `yaml:"auth"`
	QoS             int                 `yaml:"qos"`
	DiscoveryPrefix string              `yaml:"discovery_prefix"`
	Reconnect       MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	TLS  bool   `yaml:"tls"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
// Reconnection itself is handled by the client library; these only bound
// its retry interval.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// DevicesConfig lists the BLE addresses of the bridged hardware.
type DevicesConfig struct {
	Inverter AddressConfig `yaml:"inverter"`
	Wallbox  AddressConfig `yaml:"wallbox"`
}

// AddressConfig holds the addresses for one device kind.
//
// Address is the legacy single-device form; Addresses is a comma or space
// separated list. Both may be set: the legacy address takes priority
// position, duplicates are removed and order is otherwise preserved.
type AddressConfig struct {
	Address   string `yaml:"address"`
	Addresses string `yaml:"addresses"`
}

// Resolve returns the effective address list for this device kind.
func (a AddressConfig) Resolve() []string {
	addrs := SplitAddressList(a.Addresses)
	if a.Address == "" {
		return addrs
	}
	out := []string{a.Address}
	for _, addr := range addrs {
		if addr != a.Address {
			out = append(out, addr)
		}
	}
	return out
}

// SplitAddressList splits a comma/space-separated address list, trimming
// entries and removing duplicates while preserving order.
func SplitAddressList(value string) []string {
	fields := strings.Fields(strings.ReplaceAll(value, ",", " "))
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// PollingConfig contains the device polling intervals, in seconds.
// Fractional seconds are accepted.
type PollingConfig struct {
	SensorInterval   float64 `yaml:"sensor_interval_s"`
	ActuatorInterval float64 `yaml:"actuator_interval_s"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment
// variable overrides.
//
// The loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// An empty path skips the file stage entirely, for environment-only
// deployments.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
// The broker credentials default to the appliance image's built-in account,
// matching the original deployment.
func defaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host: "127.0.0.1",
				Port: 1883,
			},
			Auth: MQTTAuthConfig{
				Username: "renacble",
				Password: "renacble",
			},
			QoS:             1,
			DiscoveryPrefix: "homeassistant",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Polling: PollingConfig{
			SensorInterval:   5,
			ActuatorInterval: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides.
// The variable names are the ones the original deployment documented, kept
// for drop-in compatibility.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("MQTT_USER"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("RENAC_DISCOVERY_PREFIX"); v != "" {
		cfg.MQTT.DiscoveryPrefix = v
	}
	if v := os.Getenv("RENAC_INVERTER_ADDR"); v != "" {
		cfg.Devices.Inverter.Address = v
	}
	if v := os.Getenv("RENAC_INVERTER_ADDRS"); v != "" {
		cfg.Devices.Inverter.Addresses = v
	}
	if v := os.Getenv("RENAC_WALLBOX_ADDR"); v != "" {
		cfg.Devices.Wallbox.Address = v
	}
	if v := os.Getenv("RENAC_WALLBOX_ADDRS"); v != "" {
		cfg.Devices.Wallbox.Addresses = v
	}
	if v := os.Getenv("RENAC_POLL_INTERVAL_S"); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Polling.SensorInterval = secs
		}
	}
	if v := os.Getenv("RENAC_ACTUATOR_POLL_INTERVAL_S"); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Polling.ActuatorInterval = secs
		}
	}
	if v := os.Getenv("RENAC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("RENAC_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.DiscoveryPrefix == "" {
		errs = append(errs, "mqtt.discovery_prefix is required")
	}
	if c.Polling.SensorInterval < 0 {
		errs = append(errs, "polling.sensor_interval_s must not be negative")
	}
	if c.Polling.ActuatorInterval < c.Polling.SensorInterval {
		errs = append(errs, "polling.actuator_interval_s must not be shorter than polling.sensor_interval_s")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetSensorInterval returns the telemetry poll interval as a Duration.
func (c *Config) GetSensorInterval() time.Duration {
	return time.Duration(c.Polling.SensorInterval * float64(time.Second))
}

// GetActuatorInterval returns the actuator refresh interval as a Duration.
func (c *Config) GetActuatorInterval() time.Duration {
	return time.Duration(c.Polling.ActuatorInterval * float64(time.Second))
}
