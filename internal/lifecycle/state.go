package lifecycle

import "fmt"

// State is the controller's position in a job's life.
type State int

const (
	StateIdle State = iota
	StateUploading
	StateAwaitingServer
	StatePolling
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateUploading:
		return "uploading"
	case StateAwaitingServer:
		return "awaiting_server"
	case StatePolling:
		return "polling"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Busy reports whether a job is in flight.
func (s State) Busy() bool {
	return s == StateUploading || s == StateAwaitingServer || s == StatePolling
}

// Finished reports whether the job has an outcome.
func (s State) Finished() bool {
	return s == StateSuccess || s == StateError
}

// allowed lists every legal transition. Uploading may skip AwaitingServer
// when the reply arrives before the sent signal is observed.
var allowed = map[State][]State{
	StateIdle:           {StateUploading},
	StateUploading:      {StateAwaitingServer, StatePolling, StateError, StateIdle},
	StateAwaitingServer: {StatePolling, StateError, StateIdle},
	StatePolling:        {StateSuccess, StateError, StateIdle},
	StateSuccess:        {StateUploading, StateIdle},
	StateError:          {StateUploading, StateIdle},
}

func canMove(from, to State) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}
