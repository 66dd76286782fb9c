// Package bridge connects RENAC hardware to Home Assistant.
//
// This package manages:
//   - One supervisor per configured device, owning its connection lifecycle
//   - The disconnected → connecting → connected state machine with retry
//   - Telemetry polling and periodic actuator state refresh (inverters)
//   - Telemetry forwarding from notifications (wallboxes)
//   - Handoff of inbound actuator commands onto the device's own loop
//   - The orchestrator that resolves configured addresses and runs all
//     supervisors in an errgroup
//
// # Failure model
//
// A supervisor never gives up: any error in the connected phase logs, closes
// the transport best-effort, waits, and goes back to connecting. Only context
// cancellation ends a supervisor. One misbehaving device never affects the
// others.
package bridge
