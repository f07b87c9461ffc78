package dag

import "fmt"

type stateKind int

const (
	StatePending stateKind = iota
	StateBlocked
	StateStarted
	StateTerminated
	StateCancelled
)

// JobState is the scheduler-internal lifecycle state of one watched
// job. Terminated and Cancelled are absorbing — per spec.md §4.5's
// state transition diagram, no further transitions occur from either.
type JobState struct {
	Kind        stateKind
	Success     bool   // meaningful only when Kind == StateTerminated
	CancelledBy string // meaningful only when Kind == StateCancelled
}

func Pending() JobState { return JobState{Kind: StatePending} }
func BlockedState() JobState { return JobState{Kind: StateBlocked} }
func Started() JobState { return JobState{Kind: StateStarted} }

func TerminatedState(success bool) JobState {
	return JobState{Kind: StateTerminated, Success: success}
}

func CancelledState(by string) JobState {
	return JobState{Kind: StateCancelled, CancelledBy: by}
}

func (s JobState) IsTerminal() bool {
	return s.Kind == StateTerminated || s.Kind == StateCancelled
}

func (s JobState) String() string {
	switch s.Kind {
	case StatePending:
		return "Pending"
	case StateBlocked:
		return "Blocked"
	case StateStarted:
		return "Started"
	case StateTerminated:
		return fmt.Sprintf("Terminated(%v)", s.Success)
	case StateCancelled:
		return fmt.Sprintf("Cancelled(by=%s)", s.CancelledBy)
	default:
		return "Unknown"
	}
}
