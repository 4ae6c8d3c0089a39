package fetchqueue

import "fmt"

// Result is the outcome of a Job. Err is set when the fetch failed; Payload
// may still carry whatever the fetcher managed to read.
type Result struct {
	Payload *FetchResult
	Err     error
}

// State is the lifecycle position of a handle as seen by a caller.
type State int

const (
	// StateNotFound means the handle was never submitted or its result has
	// already been consumed.
	StateNotFound State = iota
	// StateQueued means the job waits in one of the queues.
	StateQueued
	// StateWorking means the job is being fetched.
	StateWorking
	// StateDone means the result is ready to be consumed.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "Queue"
	case StateWorking:
		return "Working"
	case StateDone:
		return "Done"
	default:
		return "Not Found"
	}
}

// Class is the queue a job waits in.
type Class int

const (
	// ClassNormal is the serially drained queue.
	ClassNormal Class = iota
	// ClassPriority is the expedited queue.
	ClassPriority
)

func (c Class) String() string {
	if c == ClassPriority {
		return "Priority"
	}
	return "Normal"
}

// Status is the answer to Poll and Consume.
type Status struct {
	State State
	// Class and Position are only meaningful for StateQueued. Position is the
	// zero-based index within Class at the time of the call.
	Class    Class
	Position int
	// Result is only set by Consume when State is StateDone.
	Result *Result
}

func (s Status) String() string {
	if s.State == StateQueued {
		return fmt.Sprintf("%s(%s, %d)", s.State, s.Class, s.Position)
	}
	return s.State.String()
}
