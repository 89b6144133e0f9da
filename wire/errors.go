package wire

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedReply is the cause of a ConnectionError for a reply whose
	// status announces a data chunk but whose fields cannot be parsed: the
	// chunk length is unknown, so the stream cannot be resynchronized.
	ErrMalformedReply = errors.New("malformed reply")

	// ErrLineTooLong is the cause of a ConnectionError for a reply line
	// longer than MaxLineSize.
	ErrLineTooLong = errors.New("reply line too long")
)

// Error types for beanstalk protocol operations.
// Each type tells the caller whether the connection can still be used.

// ConnectionError wraps I/O failures while sending a command or reading its reply:
// refused or reset connections, timeouts, EOF, and replies cut short.
//
// Partial holds whatever bytes of the reply were read before the failure,
// for diagnostics.
//
// Connection handling: the stream position is unknown, CLOSE the connection
type ConnectionError struct {
	Op      string // Operation that failed (dial, write, read)
	Err     error  // Underlying error
	Partial []byte // Reply bytes received before the failure
}

func (e *ConnectionError) Error() string {
	if len(e.Partial) > 0 {
		return fmt.Sprintf("connection error during %s: %v (partial reply %q)", e.Op, e.Err, e.Partial)
	}
	return fmt.Sprintf("connection error during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - the connection is broken
func (e *ConnectionError) ShouldCloseConnection() bool {
	return true
}

// MismatchError is returned when a response line does not match any of the
// replies the command accepts.
//
// This covers the protocol errors (OUT_OF_MEMORY, INTERNAL_ERROR, BAD_FORMAT,
// UNKNOWN_COMMAND), command outcomes such as NOT_FOUND, TIMED_OUT,
// DEADLINE_SOON or NOT_IGNORED, and malformed lines that announce no data
// chunk. They are not told apart by
// type: Line is the verbatim server reply and Status its first token.
//
// Connection handling: the full reply line was consumed, connection can be REUSED
type MismatchError struct {
	Command  Command
	Expected []Status
	Line     string
}

func (e *MismatchError) Error() string {
	expected := make([]string, len(e.Expected))
	for i, s := range e.Expected {
		expected[i] = string(s)
	}
	return fmt.Sprintf("beanstalk: %s: expected %s, got %q", e.Command, strings.Join(expected, " or "), e.Line)
}

// Status returns the status word of the server reply.
func (e *MismatchError) Status() Status {
	status, _, _ := strings.Cut(e.Line, Space)
	return Status(status)
}

// ShouldCloseConnection returns false - the reply was fully read
func (e *MismatchError) ShouldCloseConnection() bool {
	return false
}

// IsStatus reports whether err is a MismatchError whose reply starts with status.
//
//	_, err := client.ReserveWithTimeout(ctx, 0)
//	if wire.IsStatus(err, wire.StatusTimedOut) {
//	    // nothing to do
//	}
func IsStatus(err error, status Status) bool {
	var e *MismatchError
	if errors.As(err, &e) {
		return e.Status() == status
	}
	return false
}

// InvalidNameError is returned when a tube name fails validation.
// Nothing was sent to the server.
//
// Connection handling: connection is still valid
type InvalidNameError struct {
	Name    string
	Message string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("beanstalk: invalid tube name %q: %s", e.Name, e.Message)
}

// ShouldCloseConnection returns false - the request was rejected client-side
func (e *InvalidNameError) ShouldCloseConnection() bool {
	return false
}

// ErrorWithConnectionState is an interface for errors that indicate
// whether the connection should be closed.
// Implemented by all protocol error types.
type ErrorWithConnectionState interface {
	error
	ShouldCloseConnection() bool
}

// ShouldCloseConnection is a helper function to determine if an error
// requires closing the connection.
//
// Returns true for:
//   - ConnectionError
//   - unknown error types
//
// Returns false for:
//   - MismatchError
//   - InvalidNameError
//   - nil
func ShouldCloseConnection(err error) bool {
	if err == nil {
		return false
	}

	var e ErrorWithConnectionState
	if errors.As(err, &e) {
		return e.ShouldCloseConnection()
	}

	// Unknown error type - be conservative and close connection
	return true
}
