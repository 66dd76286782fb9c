package homeassistant

import (
	"encoding/json"
	"strings"
)

// discoveryDevice is the device block shared by every entity config.
// Home Assistant groups entities carrying the same identifiers into one
// device in its registry.
type discoveryDevice struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
}

// discoveryConfig is the retained JSON published to an entity's config topic.
//
// Min/Max/Step are pointers so that legitimate zero values (export_limit
// min 0) survive omitempty while sensor configs omit them entirely.
type discoveryConfig struct {
	Name                string          `json:"name"`
	StateTopic          string          `json:"state_topic"`
	CommandTopic        string          `json:"command_topic,omitempty"`
	UniqueID            string          `json:"unique_id"`
	AvailabilityTopic   string          `json:"availability_topic"`
	PayloadAvailable    string          `json:"payload_available"`
	PayloadNotAvailable string          `json:"payload_not_available"`
	Device              discoveryDevice `json:"device"`

	UnitOfMeasurement string   `json:"unit_of_measurement,omitempty"`
	DeviceClass       string   `json:"device_class,omitempty"`
	StateClass        string   `json:"state_class,omitempty"`
	Min               *int     `json:"min,omitempty"`
	Max               *int     `json:"max,omitempty"`
	Step              *int     `json:"step,omitempty"`
	Mode              string   `json:"mode,omitempty"`
	Options           []string `json:"options,omitempty"`
}

// Availability payloads. The offline payload doubles as the Last Will.
const (
	PayloadOnline  = "online"
	PayloadOffline = "offline"
)

// Manufacturer is the device-registry manufacturer for all bridged hardware.
const Manufacturer = "RENAC"

// baseConfig fills the fields every entity kind shares.
func (d *Device) baseConfig(kind, key string) discoveryConfig {
	return discoveryConfig{
		Name:                d.info.Name + " " + entityTitle(key),
		StateTopic:          d.topics.State(kind, key),
		UniqueID:            d.info.ID + "_" + key,
		AvailabilityTopic:   d.topics.Availability(),
		PayloadAvailable:    PayloadOnline,
		PayloadNotAvailable: PayloadOffline,
		Device: discoveryDevice{
			Identifiers:  []string{d.info.ID},
			Name:         d.info.Name,
			Manufacturer: Manufacturer,
			Model:        d.info.Model,
		},
	}
}

// entityTitle turns an entity key into a display name fragment:
// "max_charge_current" becomes "Max Charge Current".
func entityTitle(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// encodeValue renders a state value as an MQTT payload.
//
// Strings go out raw so select and enum states read naturally on the wire
// ("self_use", not "\"self_use\""); everything else is JSON-encoded, which
// for plain numbers is just their decimal form.
func encodeValue(value any) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(v)
	}
}

// decodeCommand interprets an inbound command payload.
//
// The payload is parsed as JSON; if that fails the trimmed raw string is
// used as-is, so both `42` and `self_use` arrive in a usable form.
func decodeCommand(payload []byte) any {
	trimmed := strings.TrimSpace(string(payload))
	var value any
	if err := json.Unmarshal([]byte(trimmed), &value); err != nil {
		return trimmed
	}
	return value
}
