package schedule

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/nerrad567/homealone/internal/dispatch"
)

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// cronLogger adapts Logger to cron.Logger.
type cronLogger struct{ l Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

// Options configures a Scheduler.
type Options struct {
	// Location is the zone cron expressions are evaluated in. Default: time.Local.
	Location *time.Location

	Logger Logger
}

// Scheduler fires jobs on their cron triggers and hands them to an executor
// after a random jitter delay.
type Scheduler struct {
	exec    dispatch.Executor
	logger  Logger
	cron    *cron.Cron
	jobs    []Job
	entries map[string]cron.EntryID

	// ctx is cancelled by Stop to abort jitter waits and in-flight sends.
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	started bool

	// jitter picks the delay for a job; replaceable in tests.
	jitter func(window time.Duration) time.Duration
}

// New registers jobs with a new Scheduler. Jobs without an ID are given one.
// The scheduler does not fire until Start is called.
func New(exec dispatch.Executor, jobs []Job, opts Options) (*Scheduler, error) {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	adapter := cronLogger{l: logger}
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		exec:    exec,
		logger:  logger,
		entries: make(map[string]cron.EntryID, len(jobs)),
		ctx:     ctx,
		cancel:  cancel,
		jitter:  randomJitter,
		cron: cron.New(
			cron.WithParser(cronParser),
			cron.WithLocation(loc),
			cron.WithLogger(adapter),
			cron.WithChain(cron.Recover(adapter)),
		),
	}

	for _, job := range jobs {
		if job.ID == "" {
			job.ID = uuid.NewString()
		}
		if _, dup := s.entries[job.ID]; dup {
			cancel()
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidJob, job.ID)
		}
		if err := job.Validate(); err != nil {
			cancel()
			return nil, fmt.Errorf("job %s: %w", job.ID, err)
		}

		id, err := s.cron.AddJob(job.Cron, cron.FuncJob(func() { s.run(s.ctx, job) }))
		if err != nil {
			cancel()
			return nil, fmt.Errorf("%w: cron %q: %w", ErrInvalidJob, job.Cron, err)
		}
		s.entries[job.ID] = id
		s.jobs = append(s.jobs, job)
	}

	return s, nil
}

// Start begins firing jobs.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	if s.ctx.Err() != nil {
		return ErrStopped
	}
	s.started = true
	s.cron.Start()

	s.logger.Info("scheduler started", "jobs", len(s.jobs))
	return nil
}

// Stop stops triggering, cancels in-flight jobs and waits for them to
// return or for ctx to be done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()

	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for running jobs: %w", ctx.Err())
	}
}

// Jobs returns the registered jobs in file order.
func (s *Scheduler) Jobs() []Job {
	return append([]Job(nil), s.jobs...)
}

// Job returns the job with the given ID.
func (s *Scheduler) Job(id string) (Job, error) {
	for _, job := range s.jobs {
		if job.ID == id {
			return job, nil
		}
	}
	return Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
}

// Next returns the next fire time of a job. It is the zero time until the
// scheduler has started.
func (s *Scheduler) Next(id string) (time.Time, error) {
	entryID, ok := s.entries[id]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return s.cron.Entry(entryID).Next, nil
}

// run executes one firing of job.
func (s *Scheduler) run(ctx context.Context, job Job) {
	delay := s.jitter(job.Jitter)

	s.logger.Debug("scheduled job fired",
		"job_id", job.ID,
		"relay", job.Relay.String(),
		"action", job.Action.String(),
		"delay", delay,
	)

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			s.logger.Debug("scheduled job cancelled during jitter wait", "job_id", job.ID)
			return
		}
	}

	_, err := s.exec.Dispatch(ctx, dispatch.Command{
		Relay:       job.Relay,
		Action:      job.Action,
		Source:      dispatch.SourceSchedule,
		JobID:       job.ID,
		Description: job.Description,
	})
	if err != nil {
		s.logger.Error("scheduled job failed", "job_id", job.ID, "description", job.Description, "error", err)
	}
}

// randomJitter returns a uniformly random delay in [0, window).
func randomJitter(window time.Duration) time.Duration {
	if window <= 0 {
		return 0
	}
	return rand.N(window)
}
