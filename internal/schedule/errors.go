package schedule

import "errors"

// Domain errors for the schedule package.
var (
	// ErrInvalidJob is returned when a job definition cannot be used.
	ErrInvalidJob = errors.New("schedule: invalid job")

	// ErrJobNotFound is returned when a job ID is unknown.
	ErrJobNotFound = errors.New("schedule: job not found")

	// ErrAlreadyStarted is returned by Start on a running scheduler.
	ErrAlreadyStarted = errors.New("schedule: already started")

	// ErrStopped is returned by Start once Stop has been called.
	ErrStopped = errors.New("schedule: scheduler stopped")
)
