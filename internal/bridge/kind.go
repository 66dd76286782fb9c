package bridge

import (
	"github.com/renacble/renac-ha-bridge/internal/homeassistant"
)

// Kind is the device category. It selects the entity schema, the device ID
// shape and the display name.
type Kind int

const (
	KindInverter Kind = iota
	KindWallbox
)

// String returns the lowercase kind name used in device IDs.
func (k Kind) String() string {
	switch k {
	case KindInverter:
		return "inverter"
	case KindWallbox:
		return "wallbox"
	}
	return "unknown"
}

// DeviceID derives the stable device identifier from a serial number,
// e.g. "inverter_RN123456".
func (k Kind) DeviceID(serial string) string {
	return k.String() + "_" + serial
}

// DisplayName returns the human-readable device name.
func (k Kind) DisplayName() string {
	switch k {
	case KindInverter:
		return "RENAC Inverter"
	case KindWallbox:
		return "RENAC Wallbox"
	}
	return "RENAC Device"
}

// Entities returns the entity schema for this kind.
func (k Kind) Entities() homeassistant.Entities {
	switch k {
	case KindInverter:
		return homeassistant.InverterEntities
	case KindWallbox:
		return homeassistant.WallboxEntities
	}
	return homeassistant.Entities{}
}

// wallboxExcludedKeys are telemetry fields that identify the device rather
// than measure anything; they never become sensor states.
var wallboxExcludedKeys = map[string]bool{
	"sn":           true,
	"model":        true,
	"manufacturer": true,
	"version":      true,
	"update_time":  true,
}

// filterWallboxTelemetry strips identity keys from a telemetry map.
func filterWallboxTelemetry(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		if wallboxExcludedKeys[k] {
			continue
		}
		out[k] = v
	}
	return out
}
