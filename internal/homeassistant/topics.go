package homeassistant

import (
	"fmt"
	"strings"
)

// DefaultPrefix is the Home Assistant discovery prefix used when none is
// configured.
const DefaultPrefix = "homeassistant"

// Topics builds the MQTT topic strings for one device.
//
// Centralising topic construction keeps the layout consistent between
// discovery configs, state publishes and command subscriptions.
type Topics struct {
	Prefix   string
	DeviceID string
}

// base returns the effective discovery prefix.
func (t Topics) base() string {
	if t.Prefix == "" {
		return DefaultPrefix
	}
	return t.Prefix
}

// Availability returns the per-device availability topic.
// Example: "homeassistant/inverter_123/availability"
func (t Topics) Availability() string {
	return fmt.Sprintf("%s/%s/availability", t.base(), t.DeviceID)
}

// Config returns the retained discovery config topic for one entity.
// Example: "homeassistant/sensor/inverter_123/load_power/config"
func (t Topics) Config(kind, key string) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", t.base(), kind, t.DeviceID, key)
}

// State returns the retained state topic for one entity.
// Example: "homeassistant/sensor/inverter_123/load_power/state"
func (t Topics) State(kind, key string) string {
	return fmt.Sprintf("%s/%s/%s/%s/state", t.base(), kind, t.DeviceID, key)
}

// Command returns the command topic for one writable entity.
// Example: "homeassistant/number/inverter_123/min_soc/set"
func (t Topics) Command(kind, key string) string {
	return fmt.Sprintf("%s/%s/%s/%s/set", t.base(), kind, t.DeviceID, key)
}

// ParseCommandTopic extracts the entity key from an inbound command topic.
//
// A command topic has at least five segments and ends in "set"; the entity
// key is the second-to-last segment. Anything else is not a command.
func ParseCommandTopic(topic string) (key string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) < 5 || parts[len(parts)-1] != "set" {
		return "", false
	}
	return parts[len(parts)-2], true
}
