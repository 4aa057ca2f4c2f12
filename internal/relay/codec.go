package relay

import (
	"bytes"
	"fmt"
)

// Message sizes. These are protocol constants; nothing on the wire carries
// a length.
const (
	PrepareRequestSize  = 16
	PrepareResponseSize = 32
	ActionRequestSize   = 8
	ActionResponseSize  = 32

	// padByte fills every response after the echoed request.
	padByte = 0xFF

	// actionMarker is the fixed byte at offset 5 of an action request.
	actionMarker = 0x64
)

// prepareRequest is the handshake pattern sent before every action.
var prepareRequest = [PrepareRequestSize]byte{
	0xAF, 0x02, 0x04, 0x03, 0x00, 0x00, 0x08, 0x01,
	0x08, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xAF,
}

// PrepareRequest returns the 16-byte prepare message.
func PrepareRequest() [PrepareRequestSize]byte {
	return prepareRequest
}

// ValidatePrepareResponse checks a prepare response: the first 16 bytes must
// echo the prepare request and the remaining 16 must all be 0xFF.
func ValidatePrepareResponse(resp []byte) error {
	return validateEcho("prepare", prepareRequest[:], resp, PrepareResponseSize)
}

// EncodeAction builds the 8-byte action request for a relay.
//
// Layout: [module, channel-1, action, 0xFF, 0xFF, 0x64, 0xFF, 0xFF]
//
// The channel is transmitted zero-based.
//
// Example: Address{3, 4} + ActionOn -> 03 03 01 FF FF 64 FF FF
func EncodeAction(addr Address, action Action) [ActionRequestSize]byte {
	return [ActionRequestSize]byte{
		addr.Module,
		addr.Channel - 1,
		byte(action),
		padByte,
		padByte,
		actionMarker,
		padByte,
		padByte,
	}
}

// ValidateActionResponse checks an action response against the request that
// was sent: the first 8 bytes must echo req and the remaining 24 must all be
// 0xFF.
func ValidateActionResponse(req [ActionRequestSize]byte, resp []byte) error {
	return validateEcho("action", req[:], resp, ActionResponseSize)
}

// validateEcho verifies resp is exactly size bytes, starts with req and is
// padded with 0xFF.
func validateEcho(kind string, req, resp []byte, size int) error {
	if len(resp) != size {
		return fmt.Errorf("%w: %s response is %d bytes, want %d", ErrProtocolValidation, kind, len(resp), size)
	}

	if !bytes.Equal(resp[:len(req)], req) {
		return fmt.Errorf("%w: %s response does not echo request: % X", ErrProtocolValidation, kind, resp[:len(req)])
	}

	for i := len(req); i < size; i++ {
		if resp[i] != padByte {
			return fmt.Errorf("%w: %s response padding invalid at offset %d (0x%02X)", ErrProtocolValidation, kind, i, resp[i])
		}
	}

	return nil
}
