package beanstalk

import (
	"fmt"

	"github.com/pior/beanstalk/wire"
)

// Job is a job returned by reserve and peek commands.
type Job struct {
	ID   uint64
	Body []byte
}

// JobState names the queues peek can look at.
type JobState string

const (
	StateReady   JobState = "ready"
	StateDelayed JobState = "delayed"
	StateBuried  JobState = "buried"
)

// peekCommand returns the peek-<state> command for s.
func (s JobState) peekCommand() (wire.Command, error) {
	switch s {
	case StateReady:
		return wire.CmdPeekReady, nil
	case StateDelayed:
		return wire.CmdPeekDelayed, nil
	case StateBuried:
		return wire.CmdPeekBuried, nil
	default:
		return "", fmt.Errorf("beanstalk: cannot peek job state %q", string(s))
	}
}

func jobFromResponse(resp *wire.Response) Job {
	return Job{ID: resp.ID, Body: resp.Data}
}
