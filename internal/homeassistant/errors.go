package homeassistant

import "errors"

// Domain-specific errors for device publishing operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrUnknownEntity is returned when a key is not present in the
	// device's entity table.
	ErrUnknownEntity = errors.New("homeassistant: unknown entity key")

	// ErrNotWritable is returned when an actuator callback is registered
	// for a key that is not a number or select entity.
	ErrNotWritable = errors.New("homeassistant: entity is not writable")

	// ErrCommandRejected is returned by command dispatch when the actuator
	// callback reports failure.
	ErrCommandRejected = errors.New("homeassistant: command rejected by device")
)
