package dispatch

import (
	"fmt"
	"time"

	"github.com/nerrad567/homealone/internal/relay"
)

// Source identifies what triggered a command.
type Source string

// Command sources.
const (
	SourceSchedule Source = "schedule"
	SourceAPI      Source = "api"
	SourceMQTT     Source = "mqtt"
	SourceCLI      Source = "cli"
)

// IsValid reports whether s is a known source.
func (s Source) IsValid() bool {
	switch s {
	case SourceSchedule, SourceAPI, SourceMQTT, SourceCLI:
		return true
	}
	return false
}

// Command is a single relay action to execute.
type Command struct {
	Relay  relay.Address
	Action relay.Action
	Source Source

	// JobID and Description are set for scheduled commands.
	JobID       string
	Description string
}

// Validate checks the relay, action and source.
func (c Command) Validate() error {
	if !c.Relay.IsValid() {
		return fmt.Errorf("%w: relay %s", ErrInvalidCommand, c.Relay)
	}
	if !c.Action.IsValid() {
		return fmt.Errorf("%w: action %s", ErrInvalidCommand, c.Action)
	}
	if !c.Source.IsValid() {
		return fmt.Errorf("%w: source %q", ErrInvalidCommand, c.Source)
	}
	return nil
}

// Result is the outcome of a dispatched command.
type Result struct {
	Command   Command
	Success   bool
	Attempts  int
	StartedAt time.Time
	Duration  time.Duration
}

// StateMessage is published to a relay's state topic after each command.
type StateMessage struct {
	Relay      string    `json:"relay"`
	Action     string    `json:"action"`
	Success    bool      `json:"success"`
	Attempts   int       `json:"attempts"`
	Source     string    `json:"source"`
	DurationMS int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}
