package mqtt

import "errors"

// Broker errors. Publish and subscribe failures wrap the paho token error.
var (
	ErrNotConnected     = errors.New("mqtt: client not connected")
	ErrConnectionFailed = errors.New("mqtt: connection failed")
	ErrPublishFailed    = errors.New("mqtt: publish failed")
	ErrSubscribeFailed  = errors.New("mqtt: subscribe failed")

	// ErrInvalidQoS is returned for QoS levels other than 0, 1 or 2.
	ErrInvalidQoS = errors.New("mqtt: QoS must be 0, 1 or 2")

	ErrInvalidTopic = errors.New("mqtt: empty topic")
)
