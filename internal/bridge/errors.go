package bridge

import "errors"

// Domain-specific errors for bridge orchestration.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNoDevices is returned at startup when no device addresses are
	// configured at all.
	ErrNoDevices = errors.New("bridge: no devices configured, set RENAC_INVERTER_ADDR(S) and/or RENAC_WALLBOX_ADDR(S)")

	// ErrLinkLost signals that a transport reported itself disconnected
	// mid-loop.
	ErrLinkLost = errors.New("bridge: device link lost")

	// ErrCommandTimeout is returned when a command could not be handed to
	// the device loop, or the device loop did not answer, in time.
	ErrCommandTimeout = errors.New("bridge: command timed out")
)
