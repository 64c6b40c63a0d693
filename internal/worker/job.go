package worker

import (
	"context"
	"errors"
)

type JobType int

const (
	Run JobType = iota
	Stop
)

func (t JobType) String() string {
	if t == Stop {
		return "stop"
	}
	return "run"
}

// Job is one unit of work for a chat. Jobs of the same chat run one at a
// time in submission order.
type Job struct {
	Type   JobType
	ChatID int64
	Name   string
	Fn     func(ctx context.Context)
}

var (
	ErrDispatcherBusy    = errors.New("dispatcher queue is full")
	ErrDispatcherStopped = errors.New("dispatcher stopped")
	errNoJobFunc         = errors.New("job has no function")
)
