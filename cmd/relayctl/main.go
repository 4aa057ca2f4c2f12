// relayctl sends a single action to a relay controller and reports the
// outcome. It is meant for wiring checks and ad-hoc switching:
//
//	relayctl -host 192.168.0.147 -relay 3.4 -action on
//	relayctl -host 192.168.0.147 -relay 2.4 -action BlinkAndOff -retries 3
//
// With -issue-token it instead prints an API bearer token signed with
// HOMEALONE_API_JWT_SECRET:
//
//	relayctl -issue-token -subject dashboard -scope read -ttl 720h
//
// Exit status is 0 when the controller acknowledged the action, 1 when every
// attempt failed, and 2 for usage errors.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nerrad567/homealone/internal/auth"
	"github.com/nerrad567/homealone/internal/dispatch"
	"github.com/nerrad567/homealone/internal/infrastructure/config"
	"github.com/nerrad567/homealone/internal/infrastructure/logging"
	"github.com/nerrad567/homealone/internal/relay"
)

var version = "dev"

// Exit codes.
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

// errUsage marks errors caused by bad flags.
var errUsage = errors.New("usage")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	host     string
	port     int
	relay    string
	action   string
	retries  int
	interval time.Duration
	timeout  time.Duration
	verbose  bool

	issueToken bool
	subject    string
	scope      string
	ttl        time.Duration
	secret     string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("relayctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var o options
	fs.StringVar(&o.host, "host", os.Getenv("HOMEALONE_CONTROLLER_HOST"), "controller IP address")
	fs.IntVar(&o.port, "port", relay.DefaultPort, "controller TCP port")
	fs.StringVar(&o.relay, "relay", "", "relay address as module.channel, e.g. 3.4")
	fs.StringVar(&o.action, "action", "", "action name or code: "+actionList())
	fs.IntVar(&o.retries, "retries", relay.DefaultMaxRetries, "retries after the first attempt")
	fs.DurationVar(&o.interval, "interval", relay.DefaultRetryInterval, "wait between attempts")
	fs.DurationVar(&o.timeout, "timeout", relay.DefaultTimeoutPerAttempt, "timeout per attempt")
	fs.BoolVar(&o.verbose, "v", false, "log every attempt")
	fs.BoolVar(&o.issueToken, "issue-token", false, "print an API token instead of sending an action")
	fs.StringVar(&o.subject, "subject", "", "token subject (with -issue-token)")
	fs.StringVar(&o.scope, "scope", string(auth.ScopeControl), "token scope: control or read (with -issue-token)")
	fs.DurationVar(&o.ttl, "ttl", auth.DefaultTTL, "token lifetime (with -issue-token)")

	if err := fs.Parse(args); err != nil {
		return options{}, fmt.Errorf("%w: %w", errUsage, err)
	}
	if o.issueToken {
		o.secret = os.Getenv("HOMEALONE_API_JWT_SECRET")
		if o.subject == "" || o.secret == "" {
			return options{}, fmt.Errorf("%w: -issue-token needs -subject and HOMEALONE_API_JWT_SECRET", errUsage)
		}
		return o, nil
	}
	if o.host == "" || o.relay == "" || o.action == "" {
		fs.Usage()
		return options{}, fmt.Errorf("%w: -host, -relay and -action are required", errUsage)
	}
	if o.interval <= 0 || o.timeout <= 0 {
		return options{}, fmt.Errorf("%w: -interval and -timeout must be positive", errUsage)
	}
	return o, nil
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	if o.issueToken {
		return issueToken(o, stdout, stderr)
	}

	addr, err := relay.ParseAddress(o.relay)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	action, err := relay.ParseAction(o.action)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	sender, err := relay.NewSender(relay.SenderConfig{
		Host:              o.host,
		Port:              o.port,
		MaxRetries:        o.retries,
		RetryInterval:     o.interval,
		TimeoutPerAttempt: o.timeout,
	})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	level := "error"
	if o.verbose {
		level = "debug"
	}
	log := logging.NewWithWriter(config.LoggingConfig{Level: level, Format: "text"}, version, stderr)
	sender.SetLogger(log)

	res, err := dispatch.New(sender, dispatch.Options{Logger: log}).Dispatch(ctx, dispatch.Command{
		Relay:  addr,
		Action: action,
		Source: dispatch.SourceCLI,
	})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailed
	}

	if !res.Success {
		fmt.Fprintf(stdout, "%s %s: failed after %d attempt(s)\n", addr, action, res.Attempts)
		return exitFailed
	}
	fmt.Fprintf(stdout, "%s %s: ok (%d attempt(s), %s)\n", addr, action, res.Attempts, res.Duration.Round(time.Millisecond))
	return exitOK
}

func issueToken(o options, stdout, stderr io.Writer) int {
	scope := auth.Scope(o.scope)
	if scope != auth.ScopeControl && scope != auth.ScopeRead {
		fmt.Fprintf(stderr, "unknown scope %q\n", o.scope)
		return exitUsage
	}
	token, err := auth.GenerateToken(o.subject, scope, o.secret, o.ttl)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	fmt.Fprintln(stdout, token)
	return exitOK
}

func actionList() string {
	actions := relay.Actions()
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = a.String()
	}
	return strings.Join(names, ", ")
}
