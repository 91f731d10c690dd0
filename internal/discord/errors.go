package discord

import (
	"errors"
	"fmt"
)

// ErrNoToken is returned when an identify is attempted before any token has
// been set. The connection never leaves the identifying phase in that case.
var ErrNoToken = errors.New("discord: no token set")

// ErrNotConnected is returned when an application-level command is issued
// outside the Connected state.
var ErrNotConnected = errors.New("discord: not connected")

// DecodeError reports a required-field violation or type mismatch while
// decoding a single gateway message. It fails only the message being
// decoded; the connection logs and discards the offending event.
type DecodeError struct {
	Entity string
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: field %q: %s", e.Entity, e.Field, e.Reason)
}

// ConnectionError reports a transport failure or heartbeat-ack timeout. It
// forces the client to Disconnected; reconnecting is the caller's decision.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// RequestError reports a REST fetch/send failure. It is delivered only
// through the operation's own completion callback.
type RequestError struct {
	Op     string
	Status int
	Err    error
}

func (e *RequestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("request %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("request %s: %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }
