package wire

import (
	"strconv"
	"time"
)

// Request represents a beanstalk command.
// This is a low-level container for request data without serialization logic.
type Request struct {
	// Command is the command name: put, reserve, delete, ...
	Command Command

	// Args is the serialized argument list.
	//
	// It contains the exact bytes that appear after the command name on the wire,
	// including the leading spaces (e.g. " 1024 0 60").
	Args Args

	// Body is the job data (put only).
	// The byte count sent on the command line is derived from len(Body).
	Body []byte
}

// Args is a serialized representation of command arguments.
//
// The zero value is ready to use.
type Args []byte

func (a Args) IsEmpty() bool {
	return len(a) == 0
}

func (a *Args) Reset() {
	*a = (*a)[:0]
}

func (a *Args) AddString(s string) {
	*a = append(*a, ' ')
	*a = append(*a, s...)
}

func (a *Args) AddInt(v int) {
	*a = append(*a, ' ')
	*a = strconv.AppendInt(*a, int64(v), 10)
}

func (a *Args) AddUint32(v uint32) {
	*a = append(*a, ' ')
	*a = strconv.AppendUint(*a, uint64(v), 10)
}

func (a *Args) AddUint64(v uint64) {
	*a = append(*a, ' ')
	*a = strconv.AppendUint(*a, v, 10)
}

// AddSeconds appends d as whole seconds. Negative durations are sent as 0.
func (a *Args) AddSeconds(d time.Duration) {
	if d < 0 {
		d = 0
	}
	a.AddUint64(uint64(d / time.Second))
}

// NewRequest creates a new request without arguments.
//
// Use the Add* methods on Args, or the typed constructors below, to build
// complete commands:
//
//	req := NewRequest(CmdKick)
//	req.Args.AddInt(10)
func NewRequest(cmd Command) *Request {
	return &Request{Command: cmd}
}

// NewPutRequest builds "put <pri> <delay> <ttr> <bytes>" followed by body.
func NewPutRequest(body []byte, pri uint32, delay, ttr time.Duration) *Request {
	req := &Request{Command: CmdPut, Body: body}
	req.Args.AddUint32(pri)
	req.Args.AddSeconds(delay)
	req.Args.AddSeconds(ttr)
	return req
}

// NewTubeRequest builds a command whose only argument is a tube name
// (use, watch, ignore, stats-tube).
func NewTubeRequest(cmd Command, tube string) *Request {
	req := &Request{Command: cmd}
	req.Args.AddString(tube)
	return req
}

// NewJobRequest builds a command whose only argument is a job id
// (delete, touch, peek, kick-job, stats-job).
func NewJobRequest(cmd Command, id uint64) *Request {
	req := &Request{Command: cmd}
	req.Args.AddUint64(id)
	return req
}

func NewReleaseRequest(id uint64, pri uint32, delay time.Duration) *Request {
	req := NewJobRequest(CmdRelease, id)
	req.Args.AddUint32(pri)
	req.Args.AddSeconds(delay)
	return req
}

func NewBuryRequest(id uint64, pri uint32) *Request {
	req := NewJobRequest(CmdBury, id)
	req.Args.AddUint32(pri)
	return req
}

func NewReserveWithTimeoutRequest(timeout time.Duration) *Request {
	req := &Request{Command: CmdReserveWithTimeout}
	req.Args.AddSeconds(timeout)
	return req
}

func NewKickRequest(bound int) *Request {
	req := &Request{Command: CmdKick}
	req.Args.AddInt(bound)
	return req
}

func NewPauseTubeRequest(tube string, delay time.Duration) *Request {
	req := NewTubeRequest(CmdPauseTube, tube)
	req.Args.AddSeconds(delay)
	return req
}

// HasBody reports whether the command carries a data chunk after the command line.
func (r *Request) HasBody() bool {
	return r.Command == CmdPut
}
