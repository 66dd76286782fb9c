package renac

import "errors"

// Domain-specific errors for the vendor protocol.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotConnected is returned when an operation is attempted without an
	// established connection.
	ErrNotConnected = errors.New("renac: not connected")

	// ErrBadFrame is returned when a frame fails structural validation.
	ErrBadFrame = errors.New("renac: malformed frame")

	// ErrCRCMismatch is returned when a frame's checksum does not verify.
	ErrCRCMismatch = errors.New("renac: CRC mismatch")

	// ErrRequestTimeout is returned when the device does not answer a
	// request in time.
	ErrRequestTimeout = errors.New("renac: request timed out")

	// ErrWriteRejected is returned when the device refuses a parameter write.
	ErrWriteRejected = errors.New("renac: write rejected by device")

	// ErrUnknownWorkMode is returned for a work mode name or code outside
	// the supported set.
	ErrUnknownWorkMode = errors.New("renac: unknown work mode")

	// ErrInvalidValue is returned when an actuator value cannot be coerced
	// to the parameter's type.
	ErrInvalidValue = errors.New("renac: invalid value")
)
