// Package dispatch executes relay commands and reports their outcomes.
//
// The Dispatcher is the single path from a trigger (schedule, API, MQTT or
// CLI) to the controller. It sends the command through a relay.Sender and
// fans the outcome out to the log, the send history, InfluxDB, the relay's
// MQTT state topic and live event subscribers. Each sink is optional.
package dispatch

import (
	"context"
	"time"

	"github.com/nerrad567/homealone/internal/history"
	"github.com/nerrad567/homealone/internal/infrastructure/mqtt"
	"github.com/nerrad567/homealone/internal/relay"
)

// sinkTimeout bounds the history write after a command completes.
const sinkTimeout = 5 * time.Second

// EventRelayAction is the event channel carrying a StateMessage per
// completed command.
const EventRelayAction = "relay.action"

// Sender delivers an action to a relay.
type Sender interface {
	Send(ctx context.Context, addr relay.Address, action relay.Action) (relay.Outcome, error)
}

// HistoryStore persists command outcomes.
type HistoryStore interface {
	Create(ctx context.Context, rec *history.Record) error
}

// MetricsWriter records command outcomes as time-series points.
type MetricsWriter interface {
	WriteRelaySend(relay, action, source string, success bool, attempts int, duration time.Duration)
}

// Publisher publishes JSON messages to MQTT.
type Publisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// EventSink receives live events. *api.Hub implements it.
type EventSink interface {
	Broadcast(channel string, payload any)
}

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

// Options holds the optional outcome sinks. Nil fields are skipped.
type Options struct {
	History   HistoryStore
	Metrics   MetricsWriter
	Publisher Publisher
	Events    EventSink
	Logger    Logger
}

// Dispatcher executes commands. It is safe for concurrent use.
type Dispatcher struct {
	sender    Sender
	history   HistoryStore
	metrics   MetricsWriter
	publisher Publisher
	events    EventSink
	logger    Logger
	topics    mqtt.Topics
	now       func() time.Time
}

// New creates a Dispatcher around sender.
func New(sender Sender, opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Dispatcher{
		sender:    sender,
		history:   opts.History,
		metrics:   opts.Metrics,
		publisher: opts.Publisher,
		events:    opts.Events,
		logger:    logger,
		now:       time.Now,
	}
}

// Dispatch sends cmd and records the outcome.
//
// A command that fails on every attempt is not an error: the Result reports
// Success false and the failure is logged as a warning. An error is returned
// only for an invalid command or when ctx is done before the send completes;
// in both cases nothing is recorded.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) (Result, error) {
	if err := cmd.Validate(); err != nil {
		return Result{Command: cmd}, err
	}

	start := d.now()
	outcome, err := d.sender.Send(ctx, cmd.Relay, cmd.Action)
	res := Result{
		Command:   cmd,
		Success:   outcome.Success,
		Attempts:  outcome.Attempts,
		StartedAt: start,
		Duration:  d.now().Sub(start),
	}
	if err != nil {
		d.logger.Warn("relay action aborted",
			"relay", cmd.Relay.String(),
			"action", cmd.Action.String(),
			"source", string(cmd.Source),
			"error", err,
		)
		return res, err
	}

	d.log(res)
	d.record(ctx, res)
	d.measure(res)
	d.publish(res)

	return res, nil
}

func (d *Dispatcher) log(res Result) {
	kv := []any{
		"relay", res.Command.Relay.String(),
		"action", res.Command.Action.String(),
		"source", string(res.Command.Source),
		"attempts", res.Attempts,
		"duration", res.Duration,
	}
	if res.Command.Description != "" {
		kv = append(kv, "description", res.Command.Description)
	}

	if res.Success {
		d.logger.Info("relay action succeeded", kv...)
	} else {
		d.logger.Warn("relay action failed", kv...)
	}
}

func (d *Dispatcher) record(ctx context.Context, res Result) {
	if d.history == nil {
		return
	}

	// The command already reached the controller; keep its record even if
	// the caller has gone away.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
	defer cancel()

	rec := &history.Record{
		Relay:       res.Command.Relay.String(),
		Action:      res.Command.Action.String(),
		Source:      string(res.Command.Source),
		JobID:       res.Command.JobID,
		Description: res.Command.Description,
		Success:     res.Success,
		Attempts:    res.Attempts,
		DurationMS:  res.Duration.Milliseconds(),
		CreatedAt:   res.StartedAt,
	}
	if !res.Success {
		rec.Error = "all attempts failed"
	}

	if err := d.history.Create(ctx, rec); err != nil {
		d.logger.Error("failed to record send history", "relay", rec.Relay, "error", err)
	}
}

func (d *Dispatcher) measure(res Result) {
	if d.metrics == nil {
		return
	}
	d.metrics.WriteRelaySend(
		res.Command.Relay.String(),
		res.Command.Action.String(),
		string(res.Command.Source),
		res.Success,
		res.Attempts,
		res.Duration,
	)
}

func (d *Dispatcher) publish(res Result) {
	if d.publisher == nil && d.events == nil {
		return
	}

	msg := newStateMessage(res)
	if d.events != nil {
		d.events.Broadcast(EventRelayAction, msg)
	}
	if d.publisher == nil {
		return
	}
	if err := d.publisher.PublishJSON(d.topics.RelayState(msg.Relay), msg, true); err != nil {
		d.logger.Warn("failed to publish relay state", "relay", msg.Relay, "error", err)
	}
}

func newStateMessage(res Result) StateMessage {
	return StateMessage{
		Relay:      res.Command.Relay.String(),
		Action:     res.Command.Action.String(),
		Success:    res.Success,
		Attempts:   res.Attempts,
		Source:     string(res.Command.Source),
		DurationMS: res.Duration.Milliseconds(),
		Timestamp:  res.StartedAt.UTC(),
	}
}
