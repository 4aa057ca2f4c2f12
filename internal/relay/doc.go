// Package relay is the client for the networked relay (light) controller.
//
// A relay is addressed by a module (the board) and a one-based channel (the
// output on that board). Commands are fixed action codes such as On, Off or
// Toggle.
//
// # Wire protocol
//
// Every send opens a fresh TCP connection and performs two fixed-size
// exchanges. There is no framing; sizes are protocol constants.
//
//	step  dir   bytes  content
//	1     send  16     fixed prepare pattern
//	2     recv  32     echo of step 1 + 16 x 0xFF
//	3     send  8      [module, channel-1, action, 0xFF, 0xFF, 0x64, 0xFF, 0xFF]
//	4     recv  32     echo of step 3 + 24 x 0xFF
//
// The channel goes out zero-based while Address keeps it one-based.
//
// # Retries
//
// Sender wraps each attempt (connect + both exchanges) in one timeout and
// retries whole attempts after a fixed interval. Exhaustion is an ordinary
// outcome reported as false; only the caller's own cancellation is returned
// as an error.
//
// Usage:
//
//	sender, err := relay.NewSender(relay.DefaultSenderConfig("192.168.0.147", 10001))
//	if err != nil {
//	    return err
//	}
//	ok, err := sender.TrySend(ctx, relay.Address{Module: 3, Channel: 4}, relay.ActionOn)
package relay
