package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nerrad567/homealone/internal/relay"
)

// cronParser accepts six-field expressions with seconds first, as well as
// descriptors such as @daily. "?" is accepted in the day fields.
var cronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Job is one scheduled relay action.
type Job struct {
	ID          string        `json:"id"`
	Cron        string        `json:"cron"`
	Relay       relay.Address `json:"relay"`
	Action      relay.Action  `json:"action"`
	Jitter      time.Duration `json:"-"`
	Description string        `json:"description,omitempty"`

	// Line is the source line in the jobs file, zero for jobs built in code.
	Line int `json:"line,omitempty"`
}

// JitterSeconds returns the jitter window in whole seconds.
func (j Job) JitterSeconds() int {
	return int(j.Jitter / time.Second)
}

// Validate checks the cron expression, relay, action and jitter.
func (j Job) Validate() error {
	if _, err := cronParser.Parse(j.Cron); err != nil {
		return fmt.Errorf("%w: cron %q: %w", ErrInvalidJob, j.Cron, err)
	}
	if !j.Relay.IsValid() {
		return fmt.Errorf("%w: relay %s", ErrInvalidJob, j.Relay)
	}
	if !j.Action.IsValid() {
		return fmt.Errorf("%w: action %s", ErrInvalidJob, j.Action)
	}
	if j.Jitter < 0 {
		return fmt.Errorf("%w: jitter must not be negative", ErrInvalidJob)
	}
	return nil
}
