// Package homeassistant publishes RENAC devices to Home Assistant over MQTT
// using the MQTT discovery convention.
//
// This package manages:
//   - Retained discovery config messages for sensors, numbers and selects
//   - Idempotent state publishing (a value is only published when it changes)
//   - Availability via a retained online marker plus a broker-armed Last Will
//   - Command dispatch from /set topics to registered actuator callbacks
//
// # Topic layout
//
//	<prefix>/<kind>/<device_id>/<entity_key>/config   retained discovery config
//	<prefix>/<kind>/<device_id>/<entity_key>/state    retained current value
//	<prefix>/<kind>/<device_id>/<entity_key>/set      inbound commands (writable kinds)
//	<prefix>/<device_id>/availability                 online/offline marker
//
// where <kind> is one of "sensor", "number" or "select" and <prefix>
// defaults to "homeassistant".
//
// # Usage
//
//	dev := homeassistant.NewDevice(client, homeassistant.DeviceInfo{
//	    ID:     "inverter_ABC123",
//	    Name:   "RENAC Inverter",
//	    Model:  "N3-HV-15.0",
//	    Prefix: "homeassistant",
//	}, homeassistant.InverterEntities, logger)
//
//	dev.PublishDiscovery()
//	dev.SetSensorValue("load_power", 742)
package homeassistant
