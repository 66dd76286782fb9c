// Package renac implements the vendor BLE protocol spoken by RENAC battery
// inverters and EV wallboxes.
//
// This package manages:
//   - BLE connections through a small Adapter abstraction (tinygo bluetooth)
//   - The framed GATT request/response protocol (sequence numbers, CRC-16)
//   - Inverter operations: identity, telemetry overview, parameter get/set
//   - Wallbox telemetry pushed via notifications
//
// # Transport
//
// Both device kinds expose one GATT service with a write characteristic for
// requests and a notify characteristic for responses and unsolicited
// telemetry. Responses are matched to requests by sequence number; frames
// that match no pending request are treated as events.
//
// All blocking operations take a context.Context and honour cancellation.
// Connection loss fails every in-flight request immediately.
package renac
