package relay

import (
	"fmt"
	"strconv"
	"strings"
)

// Action is a controller opcode. It is transmitted as a single byte equal
// to its numeric value.
type Action uint8

// Supported actions.
const (
	ActionOff               Action = 0
	ActionOn                Action = 1
	ActionToggle            Action = 2
	ActionDim1              Action = 3
	ActionDim2              Action = 4
	ActionBlinkAndOn        Action = 5
	ActionBlinkAndOff       Action = 6
	ActionBlinkAndOriginal  Action = 7
	ActionOnPassiveInfraRed Action = 8
)

var actionNames = [...]string{
	ActionOff:               "Off",
	ActionOn:                "On",
	ActionToggle:            "Toggle",
	ActionDim1:              "Dim1",
	ActionDim2:              "Dim2",
	ActionBlinkAndOn:        "BlinkAndOn",
	ActionBlinkAndOff:       "BlinkAndOff",
	ActionBlinkAndOriginal:  "BlinkAndOriginal",
	ActionOnPassiveInfraRed: "OnPassiveInfraRed",
}

// Actions returns every supported action in code order.
func Actions() []Action {
	all := make([]Action, len(actionNames))
	for i := range actionNames {
		all[i] = Action(i)
	}
	return all
}

// ParseAction parses an action name (case-insensitive, e.g. "on", "BlinkAndOff")
// or its decimal code ("1").
func ParseAction(s string) (Action, error) {
	s = strings.TrimSpace(s)

	for i, name := range actionNames {
		if strings.EqualFold(s, name) {
			return Action(i), nil
		}
	}

	if code, err := strconv.ParseUint(s, 10, 8); err == nil {
		if a := Action(code); a.IsValid() {
			return a, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrInvalidAction, s)
}

// IsValid reports whether a is a known action code.
func (a Action) IsValid() bool {
	return int(a) < len(actionNames)
}

// String returns the action name, or "Action(n)" for unknown codes.
func (a Action) String() string {
	if !a.IsValid() {
		return fmt.Sprintf("Action(%d)", uint8(a))
	}
	return actionNames[a]
}

// MarshalText implements encoding.TextMarshaler.
func (a Action) MarshalText() ([]byte, error) {
	if !a.IsValid() {
		return nil, fmt.Errorf("%w: code %d", ErrInvalidAction, uint8(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Action) UnmarshalText(text []byte) error {
	parsed, err := ParseAction(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
