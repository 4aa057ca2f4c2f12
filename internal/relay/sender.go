package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/homealone/internal/timeout"
)

// Default sender settings.
const (
	// DefaultPort is the controller's TCP port.
	DefaultPort = 10001

	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = 1

	// DefaultRetryInterval is the fixed delay between attempts.
	DefaultRetryInterval = 100 * time.Millisecond

	// DefaultTimeoutPerAttempt bounds a single connect+prepare+action exchange.
	DefaultTimeoutPerAttempt = 500 * time.Millisecond
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

// SenderConfig holds controller connection and retry settings.
type SenderConfig struct {
	// Host is the controller IP address.
	Host string

	// Port is the controller TCP port.
	// Default: 10001.
	Port int

	// MaxRetries is the number of additional attempts after the first.
	// Zero means a single attempt. Default: 1.
	MaxRetries int

	// RetryInterval is the fixed wait between attempts.
	// Zero means the default, 100ms.
	RetryInterval time.Duration

	// TimeoutPerAttempt bounds one attempt end to end.
	// Zero means the default, 500ms.
	TimeoutPerAttempt time.Duration
}

// DefaultSenderConfig returns the standard settings for a controller.
func DefaultSenderConfig(host string, port int) SenderConfig {
	return SenderConfig{
		Host:              host,
		Port:              port,
		MaxRetries:        DefaultMaxRetries,
		RetryInterval:     DefaultRetryInterval,
		TimeoutPerAttempt: DefaultTimeoutPerAttempt,
	}
}

// Outcome reports how a Send ended.
type Outcome struct {
	// Success is true if the controller acknowledged the action.
	Success bool

	// Attempts is the number of attempts made, including the successful one.
	Attempts int
}

// SenderStats holds cumulative counters for a Sender.
type SenderStats struct {
	Sends     uint64
	Successes uint64
	Failures  uint64
	Attempts  uint64
}

// Sender delivers actions to a relay controller.
//
// Each attempt opens a fresh TCP connection, performs the prepare and action
// exchanges, and closes the connection. A Sender is safe for concurrent use;
// concurrent sends are independent of each other.
type Sender struct {
	cfg  SenderConfig
	addr string

	logger   Logger
	loggerMu sync.RWMutex

	// wait blocks between attempts; replaceable in tests.
	wait func(ctx context.Context, d time.Duration) error

	sends     atomic.Uint64
	successes atomic.Uint64
	failures  atomic.Uint64
	attempts  atomic.Uint64
}

// NewSender validates cfg and creates a Sender.
//
// Zero durations and a zero port are replaced with defaults.
//
// Returns:
//   - *Sender: Ready to send
//   - error: ErrInvalidConfig wrapping the first problem found
func NewSender(cfg SenderConfig) (*Sender, error) {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.RetryInterval == 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if cfg.TimeoutPerAttempt == 0 {
		cfg.TimeoutPerAttempt = DefaultTimeoutPerAttempt
	}

	switch {
	case cfg.Host == "":
		return nil, fmt.Errorf("%w: host is required", ErrInvalidConfig)
	case cfg.Port < 1 || cfg.Port > 65535:
		return nil, fmt.Errorf("%w: port must be 1-65535, got %d", ErrInvalidConfig, cfg.Port)
	case cfg.MaxRetries < 0:
		return nil, fmt.Errorf("%w: max retries must not be negative, got %d", ErrInvalidConfig, cfg.MaxRetries)
	case cfg.RetryInterval < 0:
		return nil, fmt.Errorf("%w: retry interval must not be negative", ErrInvalidConfig)
	case cfg.TimeoutPerAttempt < 0:
		return nil, fmt.Errorf("%w: timeout per attempt must not be negative", ErrInvalidConfig)
	}

	return &Sender{
		cfg:    cfg,
		addr:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		logger: noopLogger{},
		wait:   sleepContext,
	}, nil
}

// SetLogger sets the logger for this sender.
func (s *Sender) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	s.loggerMu.Lock()
	s.logger = logger
	s.loggerMu.Unlock()
}

func (s *Sender) getLogger() Logger {
	s.loggerMu.RLock()
	defer s.loggerMu.RUnlock()
	return s.logger
}

// Config returns the effective configuration.
func (s *Sender) Config() SenderConfig {
	return s.cfg
}

// Stats returns cumulative send counters.
func (s *Sender) Stats() SenderStats {
	return SenderStats{
		Sends:     s.sends.Load(),
		Successes: s.successes.Load(),
		Failures:  s.failures.Load(),
		Attempts:  s.attempts.Load(),
	}
}

// Send delivers action to the relay at addr, retrying on failure.
//
// Up to MaxRetries+1 attempts are made, RetryInterval apart. Every failed
// attempt is logged as a warning. A failure that outlives all attempts is not
// an error: Send returns Outcome{Success: false} and a nil error.
//
// An error is returned only for an invalid address or action, or when ctx is
// done. Cancellation stops immediately, with no further attempts or waits;
// the error wraps ctx's cause so errors.Is(err, context.Canceled) holds.
func (s *Sender) Send(ctx context.Context, addr Address, action Action) (Outcome, error) {
	if !addr.IsValid() {
		return Outcome{}, fmt.Errorf("%w: relay %s", ErrChannelOutOfRange, addr)
	}
	if !action.IsValid() {
		return Outcome{}, fmt.Errorf("%w: code %d", ErrInvalidAction, uint8(action))
	}
	if ctx.Err() != nil {
		return Outcome{}, cancelled(ctx, addr, action)
	}

	s.sends.Add(1)
	maxAttempts := s.cfg.MaxRetries + 1
	req := EncodeAction(addr, action)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		s.attempts.Add(1)

		err := timeout.Do(ctx, s.cfg.TimeoutPerAttempt, func(ctx context.Context) error {
			return s.exchange(ctx, req)
		})
		if err == nil {
			s.successes.Add(1)
			return Outcome{Success: true, Attempts: attempt}, nil
		}

		if ctx.Err() != nil {
			s.failures.Add(1)
			return Outcome{Attempts: attempt}, cancelled(ctx, addr, action)
		}

		s.getLogger().Warn("relay action attempt failed",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"action", action.String(),
			"relay", addr.String(),
			"error", err,
		)

		if attempt < maxAttempts {
			if err := s.wait(ctx, s.cfg.RetryInterval); err != nil {
				s.failures.Add(1)
				return Outcome{Attempts: attempt}, cancelled(ctx, addr, action)
			}
		}
	}

	s.failures.Add(1)
	return Outcome{Attempts: maxAttempts}, nil
}

// TrySend is Send reduced to a success flag.
func (s *Sender) TrySend(ctx context.Context, addr Address, action Action) (bool, error) {
	outcome, err := s.Send(ctx, addr, action)
	return outcome.Success, err
}

// exchange runs one attempt on a fresh connection: prepare, then action.
func (s *Sender) exchange(ctx context.Context, req [ActionRequestSize]byte) error {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConnectionFailed, s.addr, err)
	}
	defer conn.Close()

	// Unblock pending reads and writes as soon as ctx is done.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	prepare := PrepareRequest()
	resp, err := roundTrip(conn, prepare[:], PrepareResponseSize)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	if err := ValidatePrepareResponse(resp); err != nil {
		return err
	}

	resp, err = roundTrip(conn, req[:], ActionResponseSize)
	if err != nil {
		return fmt.Errorf("action: %w", err)
	}
	return ValidateActionResponse(req, resp)
}

// roundTrip writes msg and reads exactly size bytes back.
func roundTrip(conn net.Conn, msg []byte, size int) ([]byte, error) {
	if _, err := conn.Write(msg); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	resp := make([]byte, size)
	n, err := io.ReadFull(conn, resp)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: connection closed after %d of %d bytes", ErrProtocolValidation, n, size)
		}
		return nil, fmt.Errorf("read: %w", err)
	}
	return resp, nil
}

func cancelled(ctx context.Context, addr Address, action Action) error {
	return fmt.Errorf("relay: send %s to %s cancelled: %w", action, addr, context.Cause(ctx))
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
