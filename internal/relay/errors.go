package relay

import "errors"

// Domain errors for the relay package.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrInvalidAddress is returned when relay address text is malformed:
	// wrong number of segments, non-numeric or out-of-byte-range values.
	ErrInvalidAddress = errors.New("relay: invalid address format")

	// ErrChannelOutOfRange is returned when a channel is syntactically valid
	// but zero. Channels are one-based.
	ErrChannelOutOfRange = errors.New("relay: channel out of range (must be 1-255)")

	// ErrInvalidAction is returned when an action name or code is unknown.
	ErrInvalidAction = errors.New("relay: invalid action")

	// ErrProtocolValidation is returned when the controller's response does
	// not match the expected echo and padding, or the stream ends early.
	ErrProtocolValidation = errors.New("relay: protocol validation failed")

	// ErrConnectionFailed is returned when the TCP connection to the
	// controller cannot be established.
	ErrConnectionFailed = errors.New("relay: connection to controller failed")

	// ErrInvalidConfig is returned by NewSender for unusable settings.
	ErrInvalidConfig = errors.New("relay: invalid sender configuration")
)
