package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nerrad567/homealone/internal/infrastructure/mqtt"
	"github.com/nerrad567/homealone/internal/relay"
)

// Executor runs a command. *Dispatcher implements it.
type Executor interface {
	Dispatch(ctx context.Context, cmd Command) (Result, error)
}

// Subscriber registers MQTT message handlers. *mqtt.Client implements it.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// commandPayload is the body of a relay command message.
//
//	{"action": "on", "description": "porch light"}
type commandPayload struct {
	Action      string `json:"action"`
	Description string `json:"description,omitempty"`
}

// CommandBridge turns messages on homealone/command/relay/<module>.<channel>
// into dispatched commands. Commands run on their own goroutines so the
// MQTT client's message routing is never held up by a relay send.
type CommandBridge struct {
	exec   Executor
	sub    Subscriber
	qos    byte
	logger Logger
	topics mqtt.Topics
	wg     sync.WaitGroup
}

// NewCommandBridge creates a bridge. A nil logger disables logging.
func NewCommandBridge(exec Executor, sub Subscriber, qos byte, logger Logger) *CommandBridge {
	if logger == nil {
		logger = noopLogger{}
	}
	return &CommandBridge{exec: exec, sub: sub, qos: qos, logger: logger}
}

// Start subscribes to every relay command topic. Commands run with ctx, so
// cancelling it aborts in-flight sends.
func (b *CommandBridge) Start(ctx context.Context) error {
	topic := b.topics.AllRelayCommands()
	err := b.sub.Subscribe(topic, b.qos, func(topic string, payload []byte) error {
		return b.HandleMessage(ctx, topic, payload)
	})
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	b.logger.Info("mqtt command bridge started", "topic", topic)
	return nil
}

// HandleMessage decodes one command message and starts dispatching it in the
// background. It returns once the message is decoded; only decode errors are
// reported. Dispatch failures are logged.
func (b *CommandBridge) HandleMessage(ctx context.Context, topic string, payload []byte) error {
	cmd, err := b.decode(topic, payload)
	if err != nil {
		b.logger.Warn("rejected mqtt command", "topic", topic, "error", err)
		return err
	}

	b.logger.Debug("mqtt command received", "relay", cmd.Relay.String(), "action", cmd.Action.String())

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if _, err := b.exec.Dispatch(ctx, cmd); err != nil {
			b.logger.Error("mqtt command failed", "relay", cmd.Relay.String(), "action", cmd.Action.String(), "error", err)
		}
	}()
	return nil
}

// Wait blocks until every dispatch started by HandleMessage has returned.
func (b *CommandBridge) Wait() {
	b.wg.Wait()
}

func (b *CommandBridge) decode(topic string, payload []byte) (Command, error) {
	text, ok := b.topics.RelayFromCommandTopic(topic)
	if !ok {
		return Command{}, fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}
	addr, err := relay.ParseAddress(text)
	if err != nil {
		return Command{}, fmt.Errorf("%w: %w", ErrInvalidTopic, err)
	}

	var body commandPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return Command{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	action, err := relay.ParseAction(body.Action)
	if err != nil {
		return Command{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	return Command{
		Relay:       addr,
		Action:      action,
		Source:      SourceMQTT,
		Description: body.Description,
	}, nil
}
