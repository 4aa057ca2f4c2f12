package dispatch

import "errors"

// Domain errors for the dispatch package.
var (
	// ErrInvalidCommand is returned when a command has an invalid relay,
	// action or source.
	ErrInvalidCommand = errors.New("dispatch: invalid command")

	// ErrInvalidTopic is returned when an MQTT message arrives on a topic
	// that does not name a relay.
	ErrInvalidTopic = errors.New("dispatch: invalid command topic")

	// ErrInvalidPayload is returned when an MQTT command payload cannot be
	// decoded.
	ErrInvalidPayload = errors.New("dispatch: invalid command payload")
)
