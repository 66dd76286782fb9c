// Package mqtt provides MQTT client connectivity for the RENAC bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for availability detection
//
// # Architecture
//
// The bridge opens one connection per bridged device. This is deliberate:
// the availability Last Will is a per-connection property, so a crashed
// bridge flips every device to offline in Home Assistant, and a single
// device connection dropping affects only that device.
//
//	RENAC device ↔ supervisor ↔ mqtt.Client ↔ Broker ↔ Home Assistant
//
// # Security Considerations
//
//   - TLS should be enabled for remote brokers (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(mqtt.Options{
//	    Config:      cfg.MQTT,
//	    DeviceID:    "inverter_123",
//	    WillTopic:   "homeassistant/inverter_123/availability",
//	    WillPayload: "offline",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.PublishRetained("homeassistant/inverter_123/availability", []byte("online"))
package mqtt
