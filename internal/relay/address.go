package relay

import (
	"fmt"
	"strconv"
	"strings"
)

// Address identifies a single relay on the controller.
//
// Format: Module.Channel
//   - Module:  0-255
//   - Channel: 1-255 (one-based, zero is never valid)
//
// Address is a comparable value type and can be used as a map key.
// The zero value is not a valid address; construct with NewAddress or
// ParseAddress.
type Address struct {
	Module  uint8
	Channel uint8
}

// addressSegments is the number of dot-separated parts in an address string.
const addressSegments = 2

// NewAddress creates an Address, rejecting channel 0.
//
// Returns:
//   - Address: The relay address
//   - error: ErrChannelOutOfRange if channel is 0
func NewAddress(module, channel uint8) (Address, error) {
	if channel < 1 {
		return Address{}, fmt.Errorf("%w: got %d", ErrChannelOutOfRange, channel)
	}
	return Address{Module: module, Channel: channel}, nil
}

// ParseAddress parses a "module.channel" string such as "3.2".
//
// Surrounding whitespace is ignored and leading zeros are accepted ("003.002").
// Malformed text returns ErrInvalidAddress. Well-formed text with channel 0
// returns ErrChannelOutOfRange, so callers can tell a typo from an illegal
// value.
//
// Example:
//
//	addr, err := ParseAddress("3.2")
//	if err != nil {
//	    return err
//	}
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)

	parts := strings.Split(s, ".")
	if len(parts) != addressSegments {
		return Address{}, fmt.Errorf("%w: expected format 'module.channel', got %q", ErrInvalidAddress, s)
	}

	module, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil {
		return Address{}, fmt.Errorf("%w: module must be 0-255, got %q", ErrInvalidAddress, parts[0])
	}

	channel, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		return Address{}, fmt.Errorf("%w: channel must be 0-255, got %q", ErrInvalidAddress, parts[1])
	}

	return NewAddress(uint8(module), uint8(channel))
}

// String returns the address in "module.channel" form.
func (a Address) String() string {
	return fmt.Sprintf("%d.%d", a.Module, a.Channel)
}

// IsValid reports whether the channel is within 1-255.
func (a Address) IsValid() bool {
	return a.Channel >= 1
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	if !a.IsValid() {
		return nil, fmt.Errorf("%w: got %d", ErrChannelOutOfRange, a.Channel)
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
